// Package types defines the Solana primitive types handled by the gateway.
package types

import (
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"
)

// HashSize is the length of a hash (e.g. a recent blockhash) in bytes.
const HashSize = 32

// Hash represents a 256-bit hash value, base58 encoded on the wire.
type Hash [HashSize]byte

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the base58-encoded hash.
func (h Hash) String() string {
	return base58.Encode(h[:])
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// MarshalJSON encodes the hash as a base58 string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a base58 string into a hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*h = Hash{}
		return nil
	}
	parsed, err := ParseHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash decodes a base58 string into a Hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if err := decodeFixed(s, h[:], "hash"); err != nil {
		return Hash{}, err
	}
	return h, nil
}

// decodeFixed base58-decodes s into dst, which must match the decoded length.
func decodeFixed(s string, dst []byte, what string) error {
	if s == "" {
		return fmt.Errorf("empty %s", what)
	}
	b, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", what, err)
	}
	if len(b) != len(dst) {
		return fmt.Errorf("%s must be %d bytes, got %d", what, len(dst), len(b))
	}
	copy(dst, b)
	return nil
}
