// Package stream provides streaming encryption and decryption of a single
// NORX64-4-1 message over an io.Writer or io.Reader.
//
// The writer buffers plaintext into rate-width blocks, feeding each full block
// through the engine as it fills and writing the ciphertext out immediately.
// Closing the writer feeds the final partial block, absorbs the trailer, and
// appends the authentication tag, so the writer MUST be closed for the stream
// to be valid.
//
// The reader holds back the trailing TagSize bytes while decrypting, so
// plaintext becomes available before the tag has been verified. Callers must
// not act on any of it until Read has returned io.EOF; a truncated or modified
// stream yields ErrInvalidCiphertext instead.
//
// For maximum throughput, the use of bufio.Reader and bufio.Writer wrappers is
// strongly recommended.
package stream

import (
	"crypto/subtle"
	"errors"
	"io"

	"github.com/norx64/norx"
)

// ErrInvalidCiphertext is returned when a stream is truncated, modified, or
// was produced under a different key, nonce, header, or trailer.
var ErrInvalidCiphertext = errors.New("norx/stream: invalid ciphertext")

// ErrWriterClosed is returned by writes to a closed Writer.
var ErrWriterClosed = errors.New("norx/stream: writer is closed")

// NewWriter returns an io.WriteCloser encrypting everything written to it as
// the payload of a single NORX64-4-1 message, with the header authenticated
// before it and the trailer after it. The ciphertext is written to w as blocks
// fill; Close writes the final block, the tag, and invalidates the writer.
//
// NewWriter panics if the key or nonce lengths are wrong. The nonce must never
// be reused under the same key.
func NewWriter(w io.Writer, key, nonce, header, trailer []byte) io.WriteCloser {
	checkKeyNonce(key, nonce)
	sw := &sealWriter{w: w, header: header, trailer: trailer}
	copy(sw.key[:], key)
	copy(sw.nonce[:], nonce)
	return sw
}

// NewReader returns an io.Reader decrypting a stream produced by NewWriter
// under the same key, nonce, header, and trailer. Read returns
// ErrInvalidCiphertext if the stream is truncated or fails authentication.
//
// NewReader panics if the key or nonce lengths are wrong.
func NewReader(r io.Reader, key, nonce, header, trailer []byte) io.Reader {
	checkKeyNonce(key, nonce)
	or := &openReader{r: r, header: header, trailer: trailer}
	copy(or.key[:], key)
	copy(or.nonce[:], nonce)
	return or
}

func checkKeyNonce(key, nonce []byte) {
	if len(key) != norx.KeySize {
		panic("norx/stream: invalid key size")
	}
	if len(nonce) != norx.NonceSize {
		panic("norx/stream: invalid nonce size")
	}
}

// A coupler drives an engine with one block at a time, collecting the output
// blocks and the tag.
type coupler struct {
	e       norx.Engine
	out     []byte
	tag     [norx.TagSize]byte
	tagDone bool
}

func (c *coupler) feed(in *norx.Input) {
	offered := in
	for {
		accepted, out := c.e.Step(offered, true)
		if accepted {
			offered = nil
		}
		switch out.Kind {
		case norx.OutputPayload:
			c.out = append(c.out, out.Data[:out.Len]...)
		case norx.OutputTag:
			copy(c.tag[:], out.Data[:out.Len])
			c.tagDone = true
		case norx.OutputNone:
		}
		if offered == nil && !c.e.Busy() {
			return
		}
	}
}

// start feeds the key+nonce block and absorbs the header, given whether a
// payload will follow.
func (c *coupler) start(key *[norx.KeySize]byte, nonce *[norx.NonceSize]byte, header []byte, payload, trailer bool) {
	next := norx.PhaseTag
	switch {
	case len(header) > 0:
		next = norx.PhaseHeader
	case payload:
		next = norx.PhasePayload
	case trailer:
		next = norx.PhaseTrailer
	}
	in := norx.Input{Code: norx.CodeFor(norx.PhaseKeyNonce, next), Len: norx.KeyNonceSize}
	copy(in.Data[:norx.NonceSize], nonce[:])
	copy(in.Data[norx.NonceSize:], key[:])
	c.feed(&in)

	c.absorb(norx.PhaseHeader, header, payload, trailer)
}

// absorb feeds a header or trailer segment, padding the last block. A segment
// whose length is a multiple of the block size gets a padded empty final
// block; an empty segment is skipped entirely.
func (c *coupler) absorb(phase norx.Phase, data []byte, payloadNext, trailerNext bool) {
	if len(data) == 0 {
		return
	}

	for len(data) >= norx.BlockSize {
		in := norx.Input{Code: norx.CodeFor(phase, phase), Len: norx.BlockSize}
		copy(in.Data[:], data[:norx.BlockSize])
		c.feed(&in)
		data = data[norx.BlockSize:]
	}

	next := norx.PhaseTag
	switch {
	case payloadNext:
		next = norx.PhasePayload
	case trailerNext:
		next = norx.PhaseTrailer
	}
	in := norx.Input{Code: norx.CodeFor(phase, next), Len: norx.BlockSize}
	copy(in.Data[:], data)
	in.Data[len(data)] ^= 0x01
	in.Data[norx.BlockSize-1] ^= 0x80
	c.feed(&in)
}

// block feeds one payload block. Full blocks name the payload as the next
// phase; the final block, which must be shorter than BlockSize, names the
// trailer or tag.
func (c *coupler) block(phase norx.Phase, data []byte, final, trailerNext bool) {
	next := norx.PhasePayload
	if final {
		next = norx.PhaseTag
		if trailerNext {
			next = norx.PhaseTrailer
		}
	}
	in := norx.Input{Code: norx.CodeFor(phase, next), Len: len(data)}
	copy(in.Data[:], data)
	c.feed(&in)
}

// finish absorbs the trailer and runs the engine until the tag is delivered.
func (c *coupler) finish(trailer []byte) {
	c.absorb(norx.PhaseTrailer, trailer, false, false)
	for !c.tagDone {
		_, out := c.e.Step(nil, true)
		if out.Kind == norx.OutputTag {
			copy(c.tag[:], out.Data[:out.Len])
			c.tagDone = true
		}
	}
}

type sealWriter struct {
	c       coupler
	w       io.Writer
	key     [norx.KeySize]byte
	nonce   [norx.NonceSize]byte
	header  []byte
	trailer []byte
	buf     []byte
	started bool
	wrote   bool
	closed  bool
	err     error
}

func (s *sealWriter) Write(p []byte) (n int, err error) {
	if s.closed {
		return 0, ErrWriterClosed
	}
	if s.err != nil {
		return 0, s.err
	}

	total := len(p)
	s.buf = append(s.buf, p...)

	// Keep a partial block buffered so the final, padded block is only ever
	// fed at Close, when the end of the payload is known.
	for len(s.buf) >= norx.BlockSize {
		s.ensureStarted(true)
		s.c.block(norx.PhasePlaintext, s.buf[:norx.BlockSize], false, false)
		s.buf = s.buf[norx.BlockSize:]
		s.wrote = true
		if err := s.flush(); err != nil {
			s.err = err
			return 0, err
		}
	}
	return total, nil
}

func (s *sealWriter) Close() error {
	if s.closed {
		return nil
	}
	if s.err != nil {
		return s.err
	}
	s.closed = true

	payload := s.wrote || len(s.buf) > 0
	s.ensureStarted(payload)
	if payload {
		s.c.block(norx.PhasePlaintext, s.buf, true, len(s.trailer) > 0)
	}
	s.c.finish(s.trailer)
	s.c.out = append(s.c.out, s.c.tag[:]...)

	clear(s.key[:])
	clear(s.buf)
	return s.flush()
}

// ensureStarted feeds the key+nonce block and the header segment the first
// time a block is dispatched, once the presence of a payload is known.
func (s *sealWriter) ensureStarted(payload bool) {
	if s.started {
		return
	}
	s.started = true
	s.c.start(&s.key, &s.nonce, s.header, payload, len(s.trailer) > 0)
}

func (s *sealWriter) flush() error {
	if len(s.c.out) == 0 {
		return nil
	}
	_, err := s.w.Write(s.c.out)
	s.c.out = s.c.out[:0]
	return err
}

type openReader struct {
	c       coupler
	r       io.Reader
	key     [norx.KeySize]byte
	nonce   [norx.NonceSize]byte
	header  []byte
	trailer []byte

	// pending holds ciphertext read but not yet fed: the trailing TagSize
	// bytes may be the tag, and the block before it may be the final, shorter
	// one, so both are held back until more input or EOF resolves them.
	pending []byte
	started bool
	fed     bool
	eof     bool
	done    bool
	err     error
}

func (o *openReader) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	if o.err != nil {
		return 0, o.err
	}

	for len(o.c.out) == 0 {
		if o.done {
			return 0, io.EOF
		}
		if err := o.fill(); err != nil {
			o.err = err
			return 0, err
		}
	}

	n = min(len(o.c.out), len(p))
	copy(p, o.c.out[:n])
	o.c.out = o.c.out[n:]
	return n, nil
}

// fill reads more ciphertext and decrypts every block known not to be the
// final one. At EOF it splits off the tag, feeds the remainder, and verifies.
func (o *openReader) fill() error {
	if !o.eof {
		var chunk [4096]byte
		n, err := o.r.Read(chunk[:])
		o.pending = append(o.pending, chunk[:n]...)
		switch {
		case errors.Is(err, io.EOF):
			o.eof = true
		case err != nil:
			return err
		}
	}

	// A block may be fed as a full one only if at least one ciphertext byte
	// and the tag follow it.
	for len(o.pending) > norx.BlockSize+norx.TagSize {
		o.ensureStarted(true)
		o.c.block(norx.PhaseCiphertext, o.pending[:norx.BlockSize], false, false)
		o.pending = o.pending[norx.BlockSize:]
		o.fed = true
	}

	if o.eof {
		return o.finish()
	}
	return nil
}

func (o *openReader) finish() error {
	if len(o.pending) < norx.TagSize {
		return ErrInvalidCiphertext
	}
	ciphertext := o.pending[:len(o.pending)-norx.TagSize]
	receivedTag := o.pending[len(ciphertext):]

	payload := o.fed || len(ciphertext) > 0
	o.ensureStarted(payload)
	if len(ciphertext) == norx.BlockSize {
		// A trailing full block is followed by an empty padded one.
		o.c.block(norx.PhaseCiphertext, ciphertext, false, false)
		ciphertext = nil
	}
	if payload {
		o.c.block(norx.PhaseCiphertext, ciphertext, true, len(o.trailer) > 0)
	}
	o.c.finish(o.trailer)

	if subtle.ConstantTimeCompare(receivedTag, o.c.tag[:]) == 0 {
		clear(o.c.out)
		o.c.out = nil
		return ErrInvalidCiphertext
	}
	o.done = true
	clear(o.key[:])
	return nil
}

func (o *openReader) ensureStarted(payload bool) {
	if o.started {
		return
	}
	o.started = true
	o.c.start(&o.key, &o.nonce, o.header, payload, len(o.trailer) > 0)
}

var (
	_ io.WriteCloser = (*sealWriter)(nil)
	_ io.Reader      = (*openReader)(nil)
)
