// Package crypto provides the cryptographic primitives shared by the gateway
// and its client: ed25519 transaction signing and BLAKE3 hashing.
package crypto

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) [32]byte {
	return blake3.Sum256(data)
}

// HashParts hashes a sequence of byte strings. Each part is length-prefixed
// so that ("ab","c") and ("a","bc") never collide.
func HashParts(parts ...[]byte) [32]byte {
	h := blake3.New()
	var lenBuf [4]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(p)))
		h.Write(lenBuf[:])
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
