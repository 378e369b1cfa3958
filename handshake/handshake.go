// Package handshake implements an ephemeral key agreement using Ristretto255,
// deriving directional NORX64-4-1 keys and nonces for a two-party session.
//
// The handshake is equivalent to the "NN" pattern from the [Noise Protocol
// Framework]: it provides forward secrecy but no authentication, which is left
// to the application layer.
//
//	NN:
//	-> e
//	<- e, ee
//
// Both directions of the session are keyed independently: the initiator
// encrypts with its send keys and decrypts with its receive keys, and the
// responder does the reverse. A nonce derived here is good for exactly one
// message per direction; longer sessions must ratchet or renegotiate.
//
// [Noise Protocol Framework]: http://www.noiseprotocol.org/noise.html#protocol-names-and-modifiers
package handshake

import (
	"crypto/sha3"
	"errors"
	"io"

	"github.com/gtank/ristretto255"

	"github.com/norx64/norx"
)

// MessageSize is the size, in bytes, of each party's handshake message: an
// encoded Ristretto255 element.
const MessageSize = 32

// ErrInvalidHandshake is returned when a handshake message is not a canonical
// Ristretto255 encoding.
var ErrInvalidHandshake = errors.New("norx/handshake: invalid handshake")

// Keys is one direction's session keying material.
type Keys struct {
	Key   [norx.KeySize]byte
	Nonce [norx.NonceSize]byte
}

// InitiatorFinish is a callback which accepts the responder's message and
// completes the handshake, returning the initiator's send and receive keys.
type InitiatorFinish = func(response []byte) (send, recv Keys, err error)

// Initiate starts the handshake from the initiator role, returning a finish
// function and a request to be transmitted to the responder.
func Initiate(domain string, rand io.Reader) (finish InitiatorFinish, request []byte, err error) {
	// Generate an ephemeral key pair.
	var r [64]byte
	if _, err := io.ReadFull(rand, r[:]); err != nil {
		return nil, nil, err
	}
	dIE, _ := ristretto255.NewScalar().SetUniformBytes(r[:])
	qIE := ristretto255.NewIdentityElement().ScalarBaseMult(dIE)
	request = qIE.Bytes()

	// Wait for the responder's response.
	finish = func(response []byte) (send, recv Keys, err error) {
		if len(response) != MessageSize {
			return Keys{}, Keys{}, ErrInvalidHandshake
		}

		// Decode the responder's ephemeral public key.
		qRE, _ := ristretto255.NewIdentityElement().SetCanonicalBytes(response)
		if qRE == nil {
			return Keys{}, Keys{}, ErrInvalidHandshake
		}

		// Calculate the ephemeral-ephemeral shared secret and derive both
		// directions from the transcript.
		iErE := ristretto255.NewIdentityElement().ScalarMult(dIE, qRE)
		send, recv = derive(domain, request, response, iErE.Bytes())
		return send, recv, nil
	}

	return finish, request, nil
}

// Respond accepts the handshake from the responder role, given a domain
// separation string, a source of random data, and the initiator's request.
// It returns the responder's send and receive keys and a response to be
// transmitted to the initiator.
func Respond(domain string, rand io.Reader, request []byte) (send, recv Keys, response []byte, err error) {
	if len(request) != MessageSize {
		return Keys{}, Keys{}, nil, ErrInvalidHandshake
	}

	// Decode the initiator's ephemeral public key.
	qIE, _ := ristretto255.NewIdentityElement().SetCanonicalBytes(request)
	if qIE == nil {
		return Keys{}, Keys{}, nil, ErrInvalidHandshake
	}

	// Generate an ephemeral key pair.
	var r [64]byte
	if _, err := io.ReadFull(rand, r[:]); err != nil {
		return Keys{}, Keys{}, nil, err
	}
	dRE, _ := ristretto255.NewScalar().SetUniformBytes(r[:])
	qRE := ristretto255.NewIdentityElement().ScalarBaseMult(dRE)
	response = qRE.Bytes()

	// Calculate the ephemeral-ephemeral shared secret and derive both
	// directions from the transcript. The initiator's send direction is the
	// responder's receive direction.
	iErE := ristretto255.NewIdentityElement().ScalarMult(dRE, qIE)
	recv, send = derive(domain, request, response, iErE.Bytes())
	return send, recv, response, nil
}

// derive expands the handshake transcript into the two directions' keying
// material, initiator-to-responder first.
func derive(domain string, qIE, qRE, shared []byte) (i2r, r2i Keys) {
	kdf := sha3.NewSHAKE128()
	for _, part := range [][]byte{[]byte(domain), qIE, qRE, shared} {
		_, _ = kdf.Write(lengthPrefix(part))
		_, _ = kdf.Write(part)
	}
	_, _ = kdf.Read(i2r.Key[:])
	_, _ = kdf.Read(i2r.Nonce[:])
	_, _ = kdf.Read(r2i.Key[:])
	_, _ = kdf.Read(r2i.Nonce[:])
	return i2r, r2i
}

func lengthPrefix(b []byte) []byte {
	return []byte{byte(len(b)), byte(len(b) >> 8)}
}
