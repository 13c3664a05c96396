// Package wallet stores the operator's Solana signing key for the CLI:
// BIP-39 backup phrases, imported secret keys and an encrypted keystore.
package wallet

import (
	"fmt"

	"github.com/Klingon-tech/clawshield/pkg/crypto"
	"github.com/tyler-smith/go-bip39"
)

// MnemonicEntropyBits is the entropy size for 24-word mnemonics.
const MnemonicEntropyBits = 256

// GenerateMnemonic creates a new 24-word BIP-39 mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks word count, wordlist membership and checksum.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// KeyFromMnemonic derives the signing key the way `solana-keygen recover`
// does without a derivation path: the first 32 bytes of the BIP-39 seed
// are the ed25519 seed.
func KeyFromMnemonic(mnemonic, passphrase string) (*crypto.PrivateKey, error) {
	seed, err := SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	defer zero(seed)
	return crypto.PrivateKeyFromSeed(seed[:32])
}
