package stream_test

import (
	"bytes"
	"crypto/sha3"
	"io"
	"testing"

	fuzz "github.com/trailofbits/go-fuzz-utils"

	"github.com/norx64/norx/aead"
	"github.com/norx64/norx/stream"
)

// FuzzStreamEquivalence writes a random payload through the streaming writer
// in random-sized chunks and checks that the result is byte-identical to the
// one-shot encryption, and that the streaming reader recovers it.
func FuzzStreamEquivalence(f *testing.F) {
	drbg := sha3.NewSHAKE128()
	_, _ = drbg.Write([]byte("norx stream"))

	for range 10 {
		seed := make([]byte, 1024)
		_, _ = drbg.Read(seed)
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		tp, err := fuzz.NewTypeProvider(data)
		if err != nil {
			t.Skip(err)
		}

		var key [aead.KeySize]byte
		var nonce [aead.NonceSize]byte
		kb, err := tp.GetBytes()
		if err != nil {
			t.Skip(err)
		}
		copy(key[:], kb)
		nb, err := tp.GetBytes()
		if err != nil {
			t.Skip(err)
		}
		copy(nonce[:], nb)

		header, err := tp.GetBytes()
		if err != nil {
			t.Skip(err)
		}
		trailer, err := tp.GetBytes()
		if err != nil {
			t.Skip(err)
		}
		chunk, err := tp.GetUint16()
		if err != nil {
			t.Skip(err)
		}
		payload, err := tp.GetBytes()
		if err != nil {
			t.Skip(err)
		}

		sealed := bytes.NewBuffer(nil)
		w := stream.NewWriter(sealed, key[:], nonce[:], header, trailer)
		rest := payload
		for len(rest) > 0 {
			n := min(int(chunk%257)+1, len(rest))
			if _, err := w.Write(rest[:n]); err != nil {
				t.Fatal(err)
			}
			rest = rest[n:]
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}

		want := aead.Encrypt(nil, key[:], nonce[:], header, payload, trailer)
		if !bytes.Equal(sealed.Bytes(), want) {
			t.Errorf("stream = %x, want %x", sealed.Bytes(), want)
		}

		r := stream.NewReader(bytes.NewReader(sealed.Bytes()), key[:], nonce[:], header, trailer)
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("read %x, want %x", got, payload)
		}
	})
}
