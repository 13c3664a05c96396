// Package tx implements the Solana transaction wire format: decoding,
// encoding, signing and signature verification.
package tx

import (
	"encoding/base64"
	"fmt"

	"github.com/Klingon-tech/clawshield/pkg/crypto"
	"github.com/Klingon-tech/clawshield/pkg/types"
)

// MaxTransactionSize is the largest serialized transaction the network
// accepts (IPv6 MTU minus headers).
const MaxTransactionSize = 1232

// Transaction is a message plus one signature slot per required signer.
// Unsigned slots are all zeros.
type Transaction struct {
	Signatures []types.Signature `json:"signatures"`
	Message    Message           `json:"message"`
}

// New wraps a message in a transaction with empty signature slots.
func New(msg Message) *Transaction {
	return &Transaction{
		Signatures: make([]types.Signature, msg.Header.NumRequiredSignatures),
		Message:    msg,
	}
}

// Unmarshal decodes a wire-format transaction.
func Unmarshal(data []byte) (*Transaction, error) {
	if len(data) > MaxTransactionSize {
		return nil, fmt.Errorf("transaction is %d bytes, max %d", len(data), MaxTransactionSize)
	}
	r := &reader{data: data}

	n, err := r.readCompactU16()
	if err != nil {
		return nil, fmt.Errorf("signature count: %w", err)
	}
	t := &Transaction{Signatures: make([]types.Signature, n)}
	for i := range t.Signatures {
		b, err := r.readN(types.SignatureSize)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		copy(t.Signatures[i][:], b)
	}

	if err := t.Message.decode(r); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if r.remaining() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after transaction", r.remaining())
	}
	if int(t.Message.Header.NumRequiredSignatures) != len(t.Signatures) {
		return nil, fmt.Errorf("%w: header wants %d signatures, have %d slots",
			ErrSignatureCount, t.Message.Header.NumRequiredSignatures, len(t.Signatures))
	}
	return t, nil
}

// UnmarshalBase64 decodes a base64 wire-format transaction.
func UnmarshalBase64(s string) (*Transaction, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	return Unmarshal(data)
}

// MarshalBinary encodes the transaction in wire format. Unsigned
// transactions encode fine; signatures are not checked here.
func (t *Transaction) MarshalBinary() ([]byte, error) {
	msg, err := t.Message.MarshalBinary()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 3+len(t.Signatures)*types.SignatureSize+len(msg))
	buf = appendCompactU16(buf, len(t.Signatures))
	for _, s := range t.Signatures {
		buf = append(buf, s[:]...)
	}
	buf = append(buf, msg...)
	if len(buf) > MaxTransactionSize {
		return nil, fmt.Errorf("transaction is %d bytes, max %d", len(buf), MaxTransactionSize)
	}
	return buf, nil
}

// Base64 returns the base64 wire encoding.
func (t *Transaction) Base64() (string, error) {
	b, err := t.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// ID returns the first signature, which the network uses as the
// transaction identifier.
func (t *Transaction) ID() types.Signature {
	if len(t.Signatures) == 0 {
		return types.Signature{}
	}
	return t.Signatures[0]
}

// FeePayer returns the fee-paying account.
func (t *Transaction) FeePayer() (types.PublicKey, bool) {
	return t.Message.FeePayer()
}

// Sign fills the signature slot of every supplied signer. Signers that are
// not required by the message are an error.
func (t *Transaction) Sign(signers ...crypto.Signer) error {
	msg, err := t.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	required := t.Message.Signers()
	if len(t.Signatures) != len(required) {
		t.Signatures = make([]types.Signature, len(required))
	}
	for _, s := range signers {
		pub := s.PublicKey()
		idx := -1
		for i, k := range required {
			if k == pub {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%s is not a required signer", pub)
		}
		sig, err := s.Sign(msg)
		if err != nil {
			return fmt.Errorf("sign as %s: %w", pub, err)
		}
		t.Signatures[idx] = sig
	}
	return nil
}
