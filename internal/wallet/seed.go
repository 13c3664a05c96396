package wallet

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Klingon-tech/clawshield/pkg/crypto"
	"github.com/mr-tron/base58"
	"github.com/tyler-smith/go-bip39"
)

// SeedSize is the length of a BIP-39 seed in bytes.
const SeedSize = 64

// SeedFromMnemonic derives the 512-bit BIP-39 seed (PBKDF2-SHA512).
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	return seed, nil
}

// ParseSecretKey accepts a secret key as exported by common Solana
// tooling: a solana-keygen JSON byte array, or base58 of the 64-byte
// seed||pubkey pair or of the bare 32-byte seed.
func ParseSecretKey(s string) (*crypto.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty secret key")
	}

	var raw []byte
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("parse keypair json: %w", err)
		}
		raw = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("keypair byte %d out of range: %d", i, v)
			}
			raw[i] = byte(v)
		}
	} else {
		var err error
		if raw, err = base58.Decode(s); err != nil {
			return nil, fmt.Errorf("decode base58 secret key: %w", err)
		}
	}
	defer zero(raw)

	switch len(raw) {
	case 32:
		return crypto.PrivateKeyFromSeed(raw)
	case 64:
		return crypto.PrivateKeyFromBytes(raw)
	default:
		return nil, fmt.Errorf("secret key must be 32 or 64 bytes, got %d", len(raw))
	}
}

// EncodeSecretKey returns the base58 seed||pubkey form accepted by
// ParseSecretKey and by browser wallets' import dialogs.
func EncodeSecretKey(key *crypto.PrivateKey) string {
	pub := key.PublicKey()
	raw := make([]byte, 0, 64)
	raw = append(raw, key.Seed()...)
	raw = append(raw, pub[:]...)
	defer zero(raw)
	return base58.Encode(raw)
}
