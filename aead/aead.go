// Package aead implements the NORX64-4-1 authenticated cipher on top of the
// norx streaming engine.
//
// Encrypt and Decrypt expose the full NORX surface: an authenticated header
// absorbed before the payload and an authenticated trailer absorbed after it.
// New wraps the same construction as a cipher.AEAD, mapping the additional
// data to the header and leaving the trailer empty.
package aead

import (
	"crypto/cipher"
	"crypto/subtle"
	"errors"

	"github.com/norx64/norx"
	"github.com/norx64/norx/internal/mem"
)

// KeySize is the size of a NORX64 key, in bytes.
const KeySize = norx.KeySize

// NonceSize is the size of a NORX64 nonce, in bytes.
const NonceSize = norx.NonceSize

// TagSize is the number of bytes Encrypt appends to the plaintext.
const TagSize = norx.TagSize

// ErrInvalidCiphertext is returned when a ciphertext is invalid or was
// produced under a different key, nonce, header, or trailer.
var ErrInvalidCiphertext = errors.New("norx/aead: invalid ciphertext")

// Encrypt encrypts and authenticates payload, authenticating header and
// trailer alongside it, and appends the ciphertext followed by the TagSize
// byte tag to dst, returning the resulting slice.
//
// Encrypt panics if the key or nonce lengths are wrong. The nonce must never
// be reused under the same key.
func Encrypt(dst, key, nonce, header, payload, trailer []byte) []byte {
	checkKeyNonce(key, nonce)

	ret, out := mem.SliceForAppend(dst, len(payload)+TagSize)
	var d driver
	d.out = out[:0]
	d.keyNonce(key, nonce, len(header) > 0, len(payload) > 0, len(trailer) > 0)
	d.absorb(norx.PhaseHeader, header, len(payload) > 0, len(trailer) > 0)
	d.crypt(norx.PhasePlaintext, payload, len(trailer) > 0)
	d.absorb(norx.PhaseTrailer, trailer, false, false)
	d.finish(out[len(payload):])
	return ret
}

// Decrypt decrypts the ciphertext produced by Encrypt, verifying the trailing
// tag against the key, nonce, header, and trailer. If the ciphertext is
// authentic it appends the payload to dst and returns the resulting slice;
// otherwise the decrypted bytes are zeroed and ErrInvalidCiphertext is
// returned.
//
// Decrypt panics if the key or nonce lengths are wrong.
func Decrypt(dst, key, nonce, header, ciphertextAndTag, trailer []byte) ([]byte, error) {
	checkKeyNonce(key, nonce)
	if len(ciphertextAndTag) < TagSize {
		return nil, ErrInvalidCiphertext
	}

	ciphertext := ciphertextAndTag[:len(ciphertextAndTag)-TagSize]
	receivedTag := ciphertextAndTag[len(ciphertext):]
	var expectedTag [TagSize]byte

	ret, payload := mem.SliceForAppend(dst, len(ciphertext))
	var d driver
	d.out = payload[:0]
	d.keyNonce(key, nonce, len(header) > 0, len(ciphertext) > 0, len(trailer) > 0)
	d.absorb(norx.PhaseHeader, header, len(ciphertext) > 0, len(trailer) > 0)
	d.crypt(norx.PhaseCiphertext, ciphertext, len(trailer) > 0)
	d.absorb(norx.PhaseTrailer, trailer, false, false)
	d.finish(expectedTag[:])

	if subtle.ConstantTimeCompare(receivedTag, expectedTag[:]) == 0 {
		clear(payload)
		return nil, ErrInvalidCiphertext
	}
	return ret, nil
}

// New returns a cipher.AEAD using the given key. Seal and Open authenticate
// the additional data as the NORX header; the trailer is left empty.
//
// New panics if the key length is wrong.
func New(key []byte) cipher.AEAD {
	if len(key) != KeySize {
		panic("norx/aead: invalid key size")
	}
	a := new(aead)
	copy(a.key[:], key)
	return a
}

type aead struct {
	key [KeySize]byte
}

func (a *aead) NonceSize() int {
	return NonceSize
}

func (a *aead) Overhead() int {
	return TagSize
}

func (a *aead) Seal(dst, nonce, plaintext, additionalData []byte) []byte {
	if len(nonce) != NonceSize {
		panic("norx/aead: invalid nonce size")
	}
	return Encrypt(dst, a.key[:], nonce, additionalData, plaintext, nil)
}

func (a *aead) Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		panic("norx/aead: invalid nonce size")
	}
	return Decrypt(dst, a.key[:], nonce, additionalData, ciphertext, nil)
}

var _ cipher.AEAD = (*aead)(nil)

func checkKeyNonce(key, nonce []byte) {
	if len(key) != KeySize {
		panic("norx/aead: invalid key size")
	}
	if len(nonce) != NonceSize {
		panic("norx/aead: invalid nonce size")
	}
}

// A driver feeds a complete control-code sequence to an engine, collecting
// payload output as it streams back. Empty segments are skipped entirely: no
// block and no domain injection for that phase.
type driver struct {
	e       norx.Engine
	out     []byte
	tag     [TagSize]byte
	tagDone bool
}

// feed offers one block to the engine and runs cycles until it is accepted
// and the engine goes idle, collecting any output produced along the way.
func (d *driver) feed(in *norx.Input) {
	offered := in
	for {
		accepted, out := d.e.Step(offered, true)
		if accepted {
			offered = nil
		}
		switch out.Kind {
		case norx.OutputPayload:
			d.out = append(d.out, out.Data[:out.Len]...)
		case norx.OutputTag:
			copy(d.tag[:], out.Data[:out.Len])
			d.tagDone = true
		case norx.OutputNone:
		}
		if offered == nil && !d.e.Busy() {
			return
		}
	}
}

// keyNonce feeds the key+nonce block, choosing as next phase the first
// non-empty segment, or the tag when all three are empty.
func (d *driver) keyNonce(key, nonce []byte, header, payload, trailer bool) {
	next := norx.PhaseTag
	switch {
	case header:
		next = norx.PhaseHeader
	case payload:
		next = norx.PhasePayload
	case trailer:
		next = norx.PhaseTrailer
	}

	in := norx.Input{Code: norx.CodeFor(norx.PhaseKeyNonce, next), Len: norx.KeyNonceSize}
	copy(in.Data[:NonceSize], nonce)
	copy(in.Data[NonceSize:norx.KeyNonceSize], key)
	d.feed(&in)
}

// absorb feeds a header or trailer segment as full-width blocks, applying the
// multi-rate padding to the last one. A segment whose length is a multiple of
// the block size gets a padded empty final block.
func (d *driver) absorb(phase norx.Phase, data []byte, payloadNext, trailerNext bool) {
	if len(data) == 0 {
		return
	}

	for len(data) >= norx.BlockSize {
		in := norx.Input{Code: norx.CodeFor(phase, phase), Len: norx.BlockSize}
		copy(in.Data[:], data[:norx.BlockSize])
		d.feed(&in)
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
	d.feed(&in)
}

// crypt feeds a payload segment. Full blocks carry Len == BlockSize; the
// final block always carries Len < BlockSize (possibly zero) so the engine
// applies the padding corrections exactly once.
func (d *driver) crypt(phase norx.Phase, data []byte, trailerNext bool) {
	if len(data) == 0 {
		return
	}

	for len(data) >= norx.BlockSize {
		in := norx.Input{Code: norx.CodeFor(phase, norx.PhasePayload), Len: norx.BlockSize}
		copy(in.Data[:], data[:norx.BlockSize])
		d.feed(&in)
		data = data[norx.BlockSize:]
	}

	next := norx.PhaseTag
	if trailerNext {
		next = norx.PhaseTrailer
	}
	in := norx.Input{Code: norx.CodeFor(phase, next), Len: len(data)}
	copy(in.Data[:], data)
	d.feed(&in)
}

// finish runs the engine until the tag is delivered and copies it out.
func (d *driver) finish(tag []byte) {
	for !d.tagDone {
		_, out := d.e.Step(nil, true)
		if out.Kind == norx.OutputTag {
			copy(d.tag[:], out.Data[:out.Len])
			d.tagDone = true
		}
	}
	copy(tag, d.tag[:])
}
