package norx

import (
	"encoding/binary"
	"fmt"

	"github.com/norx64/norx/internal/mem"
	"github.com/norx64/norx/internal/norx64"
)

// An Input is one staged transfer: a control code, a data block, and the
// number of valid bytes in the block. Key+nonce blocks carry the nonce
// followed by the key and must have Len == KeyNonceSize; header and trailer
// blocks arrive pre-padded and must have Len == BlockSize; payload blocks may
// have any Len from 0 to BlockSize.
type Input struct {
	Code byte
	Data [BlockSize]byte
	Len  int
}

// An OutputKind tags the contents of an output transfer.
type OutputKind uint8

const (
	// OutputNone marks a cycle with no valid output.
	OutputNone OutputKind = iota
	// OutputPayload marks a payload block: ciphertext under encryption,
	// plaintext under decryption.
	OutputPayload
	// OutputTag marks the authentication tag, in the low-order TagSize bytes
	// of the output lane.
	OutputTag
)

// An Output is one output transfer. It is delivered only in a cycle where the
// consumer asserts readiness; until then the engine re-asserts it.
type Output struct {
	Kind OutputKind
	Data [BlockSize]byte
	Len  int
}

type fsmState uint8

const (
	fsmReset fsmState = iota
	fsmIdle
	fsmProcessing
	fsmComputingTag
)

// An Engine is the cycle-level NORX64-4-1 core. The zero value is a reset
// engine ready for a key+nonce block.
//
// The engine holds the single authoritative copy of the 16-word state,
// mutated only by the initializer, the rate-combination step, and the
// permutation. The input stage is decoupled from the permutation pipeline:
// one new block may be staged while the previous block's rounds are still in
// flight, so the current and next phases are buffered across the permutation.
//
// Engines are not concurrent-safe.
type Engine struct {
	state norx64.State

	// Input stage, depth-1 lookahead.
	staged bool
	stage  Input

	// Phase and mode latched at dispatch, held across the permutation.
	current Phase
	next    Phase
	mode    Mode

	fsm        fsmState
	rounds     int
	tagPending bool
}

// NewEngine returns a reset engine.
func NewEngine() *Engine {
	return &Engine{fsm: fsmIdle}
}

// Reset returns the engine to its power-on state, destroying all keyed
// material.
func (e *Engine) Reset() {
	*e = Engine{fsm: fsmIdle}
}

// Step advances the engine by one control cycle. in is the upstream transfer
// being offered, or nil when none is available; outReady reports downstream
// readiness to accept an output transfer this cycle.
//
// Step reports whether the offered input was accepted into the stage and
// returns the output transfer for the cycle; an Output with Kind OutputNone
// carries no data. A valid output is considered delivered only in a cycle
// where outReady is true, and is re-asserted every cycle until then. While a
// computed tag is pending delivery, no staged input is dispatched.
func (e *Engine) Step(in *Input, outReady bool) (accepted bool, out Output) {
	switch e.fsm {
	case fsmReset:
		e.Reset()
	case fsmIdle:
		out = e.idle(outReady)
	case fsmProcessing:
		e.processRound()
	case fsmComputingTag:
		e.tagRound()
	}

	// The stage frees up in the same cycle its block is dispatched, so a new
	// offer can land one cycle behind the permutation.
	if !e.staged && in != nil {
		e.stage = *in
		e.staged = true
		accepted = true
	}
	return accepted, out
}

func (e *Engine) idle(outReady bool) (out Output) {
	// A freshly computed, undelivered tag blocks all dispatch.
	if e.tagPending {
		out.Kind = OutputTag
		out.Len = TagSize
		for i := range TagSize / 8 {
			binary.LittleEndian.PutUint64(out.Data[8*i:], e.state[i])
		}
		if outReady {
			e.tagPending = false
		}
		return out
	}

	if !e.staged {
		return out
	}

	current, next, mode := Decode(e.stage.Code)
	switch current {
	case PhaseKeyNonce:
		e.initialize(next)
	case PhaseHeader, PhaseTrailer:
		e.absorb(current, next)
	case PhasePlaintext, PhaseCiphertext:
		// Payload absorption emits an output block in the same cycle, so
		// dispatch stalls until the consumer can take it.
		if !outReady {
			return out
		}
		out = e.crypt(current, next, mode)
	default:
		// Unknown code: discard the staged block untouched so a valid one
		// can arrive.
		e.staged = false
	}
	return out
}

// initialize rebuilds the state from a key+nonce block and starts the
// two-sweep initialization sequence. The domain constant for the next phase
// is injected between the sweeps, inside processRound.
func (e *Engine) initialize(next Phase) {
	if e.stage.Len != KeyNonceSize {
		panic(fmt.Sprintf("norx: key+nonce block must be %d bytes, got %d", KeyNonceSize, e.stage.Len))
	}

	var nonce [NonceSize]byte
	var key [KeySize]byte
	copy(nonce[:], e.stage.Data[:NonceSize])
	copy(key[:], e.stage.Data[NonceSize:KeyNonceSize])
	norx64.Init(&e.state, &nonce, &key)

	e.begin(PhaseKeyNonce, next, Encryption, 2*rounds)
}

// absorb XORs a full-width header or trailer block into the rate and starts
// the permutation for the next phase.
func (e *Engine) absorb(current, next Phase) {
	if e.stage.Len != BlockSize {
		panic(fmt.Sprintf("norx: %s block must be %d bytes, got %d", current, BlockSize, e.stage.Len))
	}

	for i := range norx64.RateWords {
		e.state[i] ^= binary.LittleEndian.Uint64(e.stage.Data[8*i:])
	}
	e.state[15] ^= domain(next)
	e.begin(current, next, Encryption, rounds)
}

// crypt combines a payload block with the rate, emitting the transformed
// block, and starts the permutation for the next phase. Under encryption the
// new rate is the padded plaintext XORed in; under decryption it is the
// received ciphertext with keystream retained for unreceived trailing bytes,
// plus the padding-byte corrections for a partial block.
func (e *Engine) crypt(current, next Phase, mode Mode) (out Output) {
	n := e.stage.Len
	if n < 0 || n > BlockSize {
		panic(fmt.Sprintf("norx: payload length %d exceeds block size", n))
	}

	var rate [BlockSize]byte
	e.rateBytes(&rate)

	out.Kind = OutputPayload
	out.Len = n
	mem.XOR(out.Data[:n], rate[:n], e.stage.Data[:n])

	if mode == Decryption {
		copy(rate[:n], e.stage.Data[:n])
	} else {
		copy(rate[:n], out.Data[:n])
	}
	if n < BlockSize {
		rate[n] ^= 0x01
		rate[BlockSize-1] ^= 0x80
	}
	e.setRate(&rate)

	e.state[15] ^= domain(next)
	e.begin(current, next, mode, rounds)
	return out
}

// begin latches the dispatched block's phases and mode, consumes the stage,
// and hands control to the permutation.
func (e *Engine) begin(current, next Phase, mode Mode, n int) {
	e.current, e.next, e.mode = current, next, mode
	e.rounds = n
	e.fsm = fsmProcessing
	e.staged = false
}

func (e *Engine) processRound() {
	norx64.Round(&e.state)
	e.rounds--

	// Two-sweep key+nonce initialization: the next phase's domain constant is
	// injected at the boundary between the sweeps.
	if e.current == PhaseKeyNonce && e.rounds == rounds {
		e.state[15] ^= domain(e.next)
	}

	if e.rounds == 0 {
		if e.next == PhaseTag {
			// The tag requires one more full permutation after the last
			// absorbed phase.
			e.rounds = rounds
			e.fsm = fsmComputingTag
		} else {
			e.fsm = fsmIdle
		}
	}
}

func (e *Engine) tagRound() {
	norx64.Round(&e.state)
	e.rounds--
	if e.rounds == 0 {
		e.tagPending = true
		e.fsm = fsmIdle
	}
}

// Busy reports whether the engine still holds work: a staged block awaiting
// dispatch, a permutation in flight, or a tag pending delivery. An idle,
// non-busy engine has produced every output implied by the input it accepted.
func (e *Engine) Busy() bool {
	return e.staged || e.fsm == fsmProcessing || e.fsm == fsmComputingTag || e.tagPending
}

func (e *Engine) rateBytes(b *[BlockSize]byte) {
	for i := range norx64.RateWords {
		binary.LittleEndian.PutUint64(b[8*i:], e.state[i])
	}
}

func (e *Engine) setRate(b *[BlockSize]byte) {
	for i := range norx64.RateWords {
		e.state[i] = binary.LittleEndian.Uint64(b[8*i:])
	}
}
