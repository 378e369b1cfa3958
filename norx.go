// Package norx implements the NORX64-4-1 authenticated encryption engine: a
// 1024-bit permutation state absorbing key, nonce, header, payload, and
// trailer blocks under domain-separated phases, producing encrypted or
// decrypted payload blocks and a 256-bit authentication tag.
//
// The core of the package is the cycle-level Engine: one Step call advances
// the control state machine by one cycle, with valid/ready handshakes on both
// the input stage and the output lane, so callers control exactly when blocks
// enter and leave. Most callers want the aead or stream packages instead,
// which drive the Engine with complete control-code sequences.
//
// [NORX]: https://norx.io
package norx

const (
	// KeySize is the size of a NORX64 key, in bytes.
	KeySize = 32
	// NonceSize is the size of a NORX64 nonce, in bytes.
	NonceSize = 16
	// TagSize is the size of the authentication tag, in bytes.
	TagSize = 32
	// BlockSize is the rate width: the size of one data block, in bytes.
	BlockSize = 96
	// KeyNonceSize is the size of a key+nonce block: the nonce followed by
	// the key.
	KeyNonceSize = NonceSize + KeySize
)

// rounds is the number of permutation rounds per invocation; key+nonce
// initialization runs two back-to-back invocations.
const rounds = 4
