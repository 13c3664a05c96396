package shieldkey

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func testSignature(fill byte) []byte {
	sig := make([]byte, SignatureSize)
	for i := range sig {
		sig[i] = fill + byte(i)
	}
	return sig
}

func TestDerive_Deterministic(t *testing.T) {
	sigHex := hex.EncodeToString(testSignature(1))

	a, err := Derive(sigHex)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	b, err := Derive(sigHex)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !a.Equal(b) {
		t.Fatal("same signature produced different keys")
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("fingerprints differ")
	}
}

func TestDerive_HexPrefixAndCase(t *testing.T) {
	sigHex := hex.EncodeToString(testSignature(7))

	plain, err := Derive(sigHex)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	prefixed, err := Derive("0x" + sigHex)
	if err != nil {
		t.Fatalf("Derive with 0x: %v", err)
	}
	upper, err := Derive(strings.ToUpper(sigHex))
	if err != nil {
		t.Fatalf("Derive upper: %v", err)
	}
	if !plain.Equal(prefixed) || !plain.Equal(upper) {
		t.Fatal("encoding variants of one signature produced different keys")
	}
}

func TestDerive_DifferentSignatures(t *testing.T) {
	a, _ := Derive(hex.EncodeToString(testSignature(1)))
	b, _ := Derive(hex.EncodeToString(testSignature(2)))
	if a.Equal(b) {
		t.Fatal("different signatures produced equal keys")
	}
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("different keys share a fingerprint")
	}
}

func TestDerive_InvalidFormat(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"prefix only", "0x"},
		{"not hex", "zz" + strings.Repeat("00", 63)},
		{"odd length", strings.Repeat("0", 127)},
		{"too short", strings.Repeat("ab", 32)},
		{"too long", strings.Repeat("ab", 65)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Derive(tt.in)
			if !errors.Is(err, ErrInvalidSignatureFormat) {
				t.Fatalf("Derive(%q) error = %v, want ErrInvalidSignatureFormat", tt.in, err)
			}
		})
	}
}

func TestFromSignature_Layout(t *testing.T) {
	sig := testSignature(3)
	k := FromSignature(sig)

	if !bytes.Equal(k.v1[:], sig[:v1KeySize]) {
		t.Error("v1 is not the signature prefix")
	}
	if !bytes.Equal(k.v2[:], keccak256(sig)) {
		t.Error("v2 is not keccak256(signature)")
	}
	if !bytes.Equal(k.OwnerSecret(), keccak256(k.v2[:])) {
		t.Error("owner secret is not keccak256(v2)")
	}
}

func TestKeccak256_KnownVector(t *testing.T) {
	// keccak256("") as used by Ethereum tooling.
	want := "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	if got := hex.EncodeToString(keccak256(nil)); got != want {
		t.Fatalf("keccak256(\"\") = %s, want %s", got, want)
	}
}

func TestFingerprint_Format(t *testing.T) {
	k := FromSignature(testSignature(9))
	fp := k.Fingerprint()
	if len(fp) != 16 {
		t.Fatalf("fingerprint length = %d, want 16", len(fp))
	}
	if _, err := hex.DecodeString(fp); err != nil {
		t.Fatalf("fingerprint not hex: %v", err)
	}
}

func TestSealOpen(t *testing.T) {
	k := FromSignature(testSignature(4))
	plaintext := []byte("note plaintext")

	ct, err := k.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if ct[0] != versionV2 {
		t.Fatalf("version byte = 0x%02x, want 0x%02x", ct[0], versionV2)
	}
	got, err := k.Open(ct)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("Open = %q, want %q", got, plaintext)
	}
}

func TestSealLegacyOpen(t *testing.T) {
	k := FromSignature(testSignature(5))
	ct, err := k.SealLegacy([]byte("old note"))
	if err != nil {
		t.Fatalf("SealLegacy: %v", err)
	}
	got, err := k.Open(ct)
	if err != nil {
		t.Fatalf("Open legacy: %v", err)
	}
	if string(got) != "old note" {
		t.Fatalf("Open = %q", got)
	}
}

func TestOpen_WrongKey(t *testing.T) {
	a := FromSignature(testSignature(1))
	b := FromSignature(testSignature(2))

	ct, err := a.Seal([]byte("secret"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := b.Open(ct); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("Open with wrong key error = %v, want ErrDecrypt", err)
	}
}

func TestOpen_Tampered(t *testing.T) {
	k := FromSignature(testSignature(6))
	ct, _ := k.Seal([]byte("secret"))

	ct[len(ct)-1] ^= 0xff
	if _, err := k.Open(ct); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("tampered ciphertext error = %v, want ErrDecrypt", err)
	}
	if _, err := k.Open(ct[:10]); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("short ciphertext error = %v, want ErrDecrypt", err)
	}
}

func TestZero(t *testing.T) {
	k := FromSignature(testSignature(8))
	k.Zero()
	if !k.Equal(&Key{}) {
		t.Fatal("Zero left key material behind")
	}
}
