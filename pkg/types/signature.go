package types

import (
	"encoding/json"

	"github.com/mr-tron/base58"
)

// SignatureSize is the length of an ed25519 signature in bytes.
const SignatureSize = 64

// Signature is a transaction signature. The first signature of a
// transaction doubles as its identifier.
type Signature [SignatureSize]byte

// ParseSignature decodes a base58 signature.
func ParseSignature(s string) (Signature, error) {
	var sig Signature
	if err := decodeFixed(s, sig[:], "signature"); err != nil {
		return Signature{}, err
	}
	return sig, nil
}

// IsZero returns true for an empty signature slot.
func (s Signature) IsZero() bool {
	return s == Signature{}
}

// String returns the base58-encoded signature.
func (s Signature) String() string {
	return base58.Encode(s[:])
}

// MarshalJSON encodes the signature as a base58 string.
func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a base58 string into a signature.
func (s *Signature) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseSignature(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
