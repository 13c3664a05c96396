package types

import (
	"bytes"
	"encoding/json"

	"github.com/mr-tron/base58"
)

// PublicKeySize is the length of an ed25519 account address in bytes.
const PublicKeySize = 32

// PublicKey is a Solana account address.
type PublicKey [PublicKeySize]byte

// ParsePublicKey decodes a base58 account address.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	if err := decodeFixed(s, pk[:], "public key"); err != nil {
		return PublicKey{}, err
	}
	return pk, nil
}

// MustParsePublicKey is like ParsePublicKey but panics on error.
// Only for package-level constants.
func MustParsePublicKey(s string) PublicKey {
	pk, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// PublicKeyFromBytes copies b into a PublicKey. b must be 32 bytes.
func PublicKeyFromBytes(b []byte) (PublicKey, bool) {
	var pk PublicKey
	if len(b) != PublicKeySize {
		return pk, false
	}
	copy(pk[:], b)
	return pk, true
}

// IsZero returns true if the key is all zeros (the system program).
func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

// Equals reports whether two keys are identical.
func (pk PublicKey) Equals(other PublicKey) bool {
	return bytes.Equal(pk[:], other[:])
}

// String returns the base58-encoded address.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// Bytes returns a copy of the key as a byte slice.
func (pk PublicKey) Bytes() []byte {
	b := make([]byte, PublicKeySize)
	copy(b, pk[:])
	return b
}

// MarshalJSON encodes the key as a base58 string.
func (pk PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(pk.String())
}

// UnmarshalJSON decodes a base58 string into a key.
func (pk *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePublicKey(s)
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}
