package norx

import "fmt"

// A Phase is the semantic role of the block occupying the input stage, or of
// the block that will occupy it next.
type Phase uint8

const (
	PhaseUnknown Phase = iota
	PhaseKeyNonce
	PhaseHeader
	PhasePlaintext
	PhaseCiphertext
	PhasePayload
	PhaseTrailer
	PhaseTag
)

func (p Phase) String() string {
	switch p {
	case PhaseKeyNonce:
		return "key+nonce"
	case PhaseHeader:
		return "header"
	case PhasePlaintext:
		return "plaintext"
	case PhaseCiphertext:
		return "ciphertext"
	case PhasePayload:
		return "payload"
	case PhaseTrailer:
		return "trailer"
	case PhaseTag:
		return "tag"
	default:
		return "unknown"
	}
}

// A Mode selects the direction of the payload datapath. Its value is
// meaningful only while ciphertext is being absorbed; everywhere else it
// defaults to Encryption.
type Mode uint8

const (
	Encryption Mode = iota
	Decryption
)

func (m Mode) String() string {
	if m == Decryption {
		return "decryption"
	}
	return "encryption"
}

// Control codes accepted alongside each input block. Each code names the
// phase of the block it accompanies and the phase of the block that will
// follow it; the latter selects the domain separation constant injected into
// the capacity before the next permutation.
const (
	CodeKeyNonceHeader    byte = 1
	CodeKeyNoncePayload   byte = 2
	CodeHeaderHeader      byte = 3
	CodeHeaderPayload     byte = 4
	CodeHeaderTag         byte = 5
	CodePlaintextPayload  byte = 6
	CodePlaintextTrailer  byte = 7
	CodePlaintextTag      byte = 8
	CodeCiphertextPayload byte = 9
	CodeCiphertextTrailer byte = 10
	CodeCiphertextTag     byte = 11
	CodeTrailerTrailer    byte = 12
	CodeTrailerTag        byte = 13
	CodeKeyNonceTrailer   byte = 14
	CodeKeyNonceTag       byte = 15
	CodeHeaderTrailer     byte = 16
)

// Decode maps a control code to the phase of the accompanying block, the
// phase of the block that will follow it, and the cipher mode. Codes outside
// the table decode to Unknown phases and the default Encryption mode.
func Decode(code byte) (current, next Phase, mode Mode) {
	switch code {
	case CodeKeyNonceHeader:
		return PhaseKeyNonce, PhaseHeader, Encryption
	case CodeKeyNoncePayload:
		return PhaseKeyNonce, PhasePayload, Encryption
	case CodeHeaderHeader:
		return PhaseHeader, PhaseHeader, Encryption
	case CodeHeaderPayload:
		return PhaseHeader, PhasePayload, Encryption
	case CodeHeaderTag:
		return PhaseHeader, PhaseTag, Encryption
	case CodePlaintextPayload:
		return PhasePlaintext, PhasePayload, Encryption
	case CodePlaintextTrailer:
		return PhasePlaintext, PhaseTrailer, Encryption
	case CodePlaintextTag:
		return PhasePlaintext, PhaseTag, Encryption
	case CodeCiphertextPayload:
		return PhaseCiphertext, PhasePayload, Decryption
	case CodeCiphertextTrailer:
		return PhaseCiphertext, PhaseTrailer, Decryption
	case CodeCiphertextTag:
		return PhaseCiphertext, PhaseTag, Decryption
	case CodeTrailerTrailer:
		return PhaseTrailer, PhaseTrailer, Encryption
	case CodeTrailerTag:
		return PhaseTrailer, PhaseTag, Encryption
	case CodeKeyNonceTrailer:
		return PhaseKeyNonce, PhaseTrailer, Encryption
	case CodeKeyNonceTag:
		return PhaseKeyNonce, PhaseTag, Encryption
	case CodeHeaderTrailer:
		return PhaseHeader, PhaseTrailer, Encryption
	default:
		return PhaseUnknown, PhaseUnknown, Encryption
	}
}

// CodeFor is the inverse of Decode: it returns the control code for a block of
// the current phase followed by a block of the next phase. It panics when no
// code exists for the pair, which happens only for sequences the cipher does
// not admit, such as a trailer block followed by a header block.
func CodeFor(current, next Phase) byte {
	switch current {
	case PhaseKeyNonce:
		switch next {
		case PhaseHeader:
			return CodeKeyNonceHeader
		case PhasePayload:
			return CodeKeyNoncePayload
		case PhaseTrailer:
			return CodeKeyNonceTrailer
		case PhaseTag:
			return CodeKeyNonceTag
		}
	case PhaseHeader:
		switch next {
		case PhaseHeader:
			return CodeHeaderHeader
		case PhasePayload:
			return CodeHeaderPayload
		case PhaseTrailer:
			return CodeHeaderTrailer
		case PhaseTag:
			return CodeHeaderTag
		}
	case PhasePlaintext:
		switch next {
		case PhasePayload:
			return CodePlaintextPayload
		case PhaseTrailer:
			return CodePlaintextTrailer
		case PhaseTag:
			return CodePlaintextTag
		}
	case PhaseCiphertext:
		switch next {
		case PhasePayload:
			return CodeCiphertextPayload
		case PhaseTrailer:
			return CodeCiphertextTrailer
		case PhaseTag:
			return CodeCiphertextTag
		}
	case PhaseTrailer:
		switch next {
		case PhaseTrailer:
			return CodeTrailerTrailer
		case PhaseTag:
			return CodeTrailerTag
		}
	}
	panic(fmt.Sprintf("norx: no control code for %s -> %s", current, next))
}

// Domain separation constants, restricted to the low five bits of the last
// capacity word.
const (
	domainHeader  = 0x01
	domainPayload = 0x02
	domainTrailer = 0x04
	domainTag     = 0x08
)

// domain returns the constant injected into the capacity ahead of a block of
// the given phase. Plaintext and ciphertext share the payload domain.
func domain(p Phase) uint64 {
	switch p {
	case PhaseHeader:
		return domainHeader
	case PhasePlaintext, PhaseCiphertext, PhasePayload:
		return domainPayload
	case PhaseTrailer:
		return domainTrailer
	case PhaseTag:
		return domainTag
	default:
		return 0
	}
}
