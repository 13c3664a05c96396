package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/Klingon-tech/clawshield/pkg/types"
)

// Signer signs messages with an ed25519 key.
type Signer interface {
	// Sign produces an ed25519 signature over the raw message.
	Sign(message []byte) (types.Signature, error)
	// PublicKey returns the signer's account address.
	PublicKey() types.PublicKey
}

// PrivateKey wraps an ed25519 private key.
type PrivateKey struct {
	key ed25519.PrivateKey
}

// GenerateKey creates a new random ed25519 private key.
func GenerateKey() (*PrivateKey, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromSeed creates a PrivateKey from a 32-byte ed25519 seed.
func PrivateKeyFromSeed(seed []byte) (*PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &PrivateKey{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from the 64-byte seed||pubkey
// layout used by solana-keygen JSON files.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(b))
	}
	pk, err := PrivateKeyFromSeed(b[:ed25519.SeedSize])
	if err != nil {
		return nil, err
	}
	if string(pk.key[ed25519.SeedSize:]) != string(b[ed25519.SeedSize:]) {
		return nil, fmt.Errorf("public key half does not match seed")
	}
	return pk, nil
}

// Sign produces an ed25519 signature over the message.
func (pk *PrivateKey) Sign(message []byte) (types.Signature, error) {
	var sig types.Signature
	if len(pk.key) != ed25519.PrivateKeySize {
		return sig, fmt.Errorf("private key is zeroed")
	}
	copy(sig[:], ed25519.Sign(pk.key, message))
	return sig, nil
}

// PublicKey returns the account address of the key.
func (pk *PrivateKey) PublicKey() types.PublicKey {
	var out types.PublicKey
	copy(out[:], pk.key[ed25519.SeedSize:])
	return out
}

// Seed returns the 32-byte ed25519 seed.
func (pk *PrivateKey) Seed() []byte {
	return pk.key.Seed()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	for i := range pk.key {
		pk.key[i] = 0
	}
	pk.key = nil
}

// VerifySignature checks an ed25519 signature over message against the
// given account address. Returns false on any error.
func VerifySignature(message []byte, sig types.Signature, pub types.PublicKey) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), message, sig[:])
}
