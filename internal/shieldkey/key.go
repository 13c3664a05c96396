// Package shieldkey derives the note encryption key from a wallet signature.
//
// Every flow (balance, shield, withdraw) must obtain its key through Derive.
// Notes are encrypted under this exact key, so a second derivation path that
// frames the signature differently would not fail loudly; it would silently
// decrypt nothing and report a zero balance.
package shieldkey

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/Klingon-tech/clawshield/pkg/crypto"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/sha3"
)

// BalanceMessage is the fixed message a wallet signs to prove ownership.
// The signature over it is the key material for every request.
const BalanceMessage = "ClawShield balance query"

// SignatureSize is the length of a wallet (ed25519) signature.
const SignatureSize = 64

// v1KeySize is the length of the legacy key (signature prefix).
const v1KeySize = 31

// Note ciphertext version tags.
const (
	versionV1 byte = 0x01
	versionV2 byte = 0x02
)

// Errors.
var (
	ErrInvalidSignatureFormat = errors.New("invalid signature format")
	ErrDecrypt                = errors.New("note does not decrypt under this key")
)

// Key is the symmetric key material derived from one wallet signature. It
// lives for a single request and is never persisted.
type Key struct {
	v1     [v1KeySize]byte
	v2     [32]byte
	secret [32]byte
}

// Derive decodes a hex wallet signature and derives the note key from it.
// A leading "0x" is tolerated.
func Derive(signatureHex string) (*Key, error) {
	s := strings.TrimPrefix(strings.TrimSpace(signatureHex), "0x")
	if s == "" {
		return nil, fmt.Errorf("%w: empty signature", ErrInvalidSignatureFormat)
	}
	sig, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignatureFormat, err)
	}
	if len(sig) != SignatureSize {
		return nil, fmt.Errorf("%w: signature must be %d bytes, got %d",
			ErrInvalidSignatureFormat, SignatureSize, len(sig))
	}
	return FromSignature(sig), nil
}

// FromSignature derives the key from raw signature bytes.
//
//	v1     = signature[:31]
//	v2     = keccak256(signature)
//	secret = keccak256(v2)
func FromSignature(sig []byte) *Key {
	k := &Key{}
	copy(k.v1[:], sig)
	copy(k.v2[:], keccak256(sig))
	copy(k.secret[:], keccak256(k.v2[:]))
	return k
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// Equal reports whether two keys hold identical material.
func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	return k.v1 == other.v1 && k.v2 == other.v2 && k.secret == other.secret
}

// Fingerprint returns a short, non-secret identifier for logs and cache
// namespaces.
func (k *Key) Fingerprint() string {
	h := crypto.HashParts([]byte("clawshield/fingerprint"), k.v2[:])
	return hex.EncodeToString(h[:8])
}

// OwnerSecret returns a copy of the note-owner secret used for nullifiers.
func (k *Key) OwnerSecret() []byte {
	out := make([]byte, len(k.secret))
	copy(out, k.secret[:])
	return out
}

// OwnerPublic returns the public owner tag bound into note commitments.
func (k *Key) OwnerPublic() [32]byte {
	return crypto.HashParts([]byte("clawshield/owner"), k.secret[:])
}

// Seal encrypts a note plaintext under the current (v2) key.
// Output: version(1) | nonce(24) | ciphertext.
func (k *Key) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(k.v2[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	out := make([]byte, 0, 1+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, versionV2)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, []byte{versionV2}), nil
}

// Open decrypts a note ciphertext produced under either key version.
// Ciphertexts belonging to other keys fail with ErrDecrypt.
func (k *Key) Open(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 1+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}
	version := ciphertext[0]
	var key []byte
	switch version {
	case versionV2:
		key = k.v2[:]
	case versionV1:
		legacy := crypto.HashParts([]byte("clawshield/v1"), k.v1[:])
		key = legacy[:]
	default:
		return nil, fmt.Errorf("%w: unknown version 0x%02x", ErrDecrypt, version)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	nonce := ciphertext[1 : 1+aead.NonceSize()]
	plaintext, err := aead.Open(nil, nonce, ciphertext[1+aead.NonceSize():], []byte{version})
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// SealLegacy encrypts under the v1 key. Only notes created by old clients
// use this format; it is kept so they can be produced in tests and simnet.
func (k *Key) SealLegacy(plaintext []byte) ([]byte, error) {
	legacy := crypto.HashParts([]byte("clawshield/v1"), k.v1[:])
	aead, err := chacha20poly1305.NewX(legacy[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	out := append([]byte{versionV1}, nonce...)
	return aead.Seal(out, nonce, plaintext, []byte{versionV1}), nil
}

// Zero wipes the key material.
func (k *Key) Zero() {
	for i := range k.v1 {
		k.v1[i] = 0
	}
	for i := range k.v2 {
		k.v2[i] = 0
	}
	for i := range k.secret {
		k.secret[i] = 0
	}
}
