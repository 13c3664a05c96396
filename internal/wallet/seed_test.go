package wallet

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/Klingon-tech/clawshield/pkg/crypto"
	"github.com/mr-tron/base58"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestSeedFromMnemonic_KnownVector(t *testing.T) {
	// BIP-39 reference vector, passphrase "TREZOR".
	seed, err := SeedFromMnemonic(testMnemonic, "TREZOR")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	want, _ := hex.DecodeString("c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04")
	if !bytes.Equal(seed, want) {
		t.Errorf("seed = %x, want %x", seed, want)
	}
	if len(seed) != SeedSize {
		t.Errorf("seed length = %d, want %d", len(seed), SeedSize)
	}
}

func TestSeedFromMnemonic_Invalid(t *testing.T) {
	for _, m := range []string{"", "not valid words here"} {
		if _, err := SeedFromMnemonic(m, ""); err == nil {
			t.Errorf("SeedFromMnemonic(%q) should fail", m)
		}
	}
}

func TestKeyFromMnemonic(t *testing.T) {
	seed, err := SeedFromMnemonic(testMnemonic, "TREZOR")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	key, err := KeyFromMnemonic(testMnemonic, "TREZOR")
	if err != nil {
		t.Fatalf("KeyFromMnemonic() error: %v", err)
	}
	if !bytes.Equal(key.Seed(), seed[:32]) {
		t.Error("signing key should use the first 32 seed bytes")
	}

	other, err := KeyFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("KeyFromMnemonic() error: %v", err)
	}
	if other.PublicKey() == key.PublicKey() {
		t.Error("passphrase should change the derived key")
	}

	if _, err := KeyFromMnemonic("abandon", ""); err == nil {
		t.Error("invalid mnemonic should fail")
	}
}

func TestParseSecretKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	pub := key.PublicKey()
	full := append(key.Seed(), pub[:]...)

	ints := make([]int, len(full))
	for i, b := range full {
		ints[i] = int(b)
	}
	jsonArr, _ := json.Marshal(ints)

	inputs := map[string]string{
		"encoded":      EncodeSecretKey(key),
		"base58 full":  base58.Encode(full),
		"base58 seed":  base58.Encode(key.Seed()),
		"keygen json":  string(jsonArr),
		"padded input": "  " + base58.Encode(full) + "\n",
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			got, err := ParseSecretKey(in)
			if err != nil {
				t.Fatalf("ParseSecretKey() error: %v", err)
			}
			if got.PublicKey() != pub {
				t.Errorf("public key = %s, want %s", got.PublicKey(), pub)
			}
		})
	}
}

func TestParseSecretKey_Invalid(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	mismatched := append(key.Seed(), make([]byte, 32)...)

	tests := map[string]string{
		"empty":          "",
		"not base58":     "0OIl",
		"wrong length":   base58.Encode(make([]byte, 16)),
		"pubkey half":    base58.Encode(mismatched),
		"json range":     "[256]",
		"malformed json": "[1,2",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseSecretKey(in); err == nil {
				t.Error("ParseSecretKey() should fail")
			}
		})
	}
}
