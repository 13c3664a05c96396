package tx

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/clawshield/pkg/crypto"
	"github.com/Klingon-tech/clawshield/pkg/types"
)

// Validation errors.
var (
	ErrNoSigners         = errors.New("message requires no signatures")
	ErrSignatureCount    = errors.New("signature count mismatch")
	ErrMissingSignature  = errors.New("missing signature")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrBadHeader         = errors.New("inconsistent message header")
	ErrBadAccountIndex   = errors.New("instruction account index out of range")
	ErrNoInstructions    = errors.New("message has no instructions")
	ErrDuplicateAccounts = errors.New("duplicate account key")
)

// Validate checks the message structure. It does not look at signatures.
func (m *Message) Validate() error {
	h := m.Header
	if h.NumRequiredSignatures == 0 {
		return ErrNoSigners
	}
	if int(h.NumRequiredSignatures)+int(h.NumReadonlyUnsignedAccounts) > len(m.AccountKeys) {
		return fmt.Errorf("%w: %d signers + %d readonly unsigned > %d keys",
			ErrBadHeader, h.NumRequiredSignatures, h.NumReadonlyUnsignedAccounts, len(m.AccountKeys))
	}
	if h.NumReadonlySignedAccounts >= h.NumRequiredSignatures {
		return fmt.Errorf("%w: fee payer must be writable", ErrBadHeader)
	}
	if len(m.Instructions) == 0 {
		return ErrNoInstructions
	}

	seen := make(map[types.PublicKey]struct{}, len(m.AccountKeys))
	for _, k := range m.AccountKeys {
		if _, ok := seen[k]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateAccounts, k)
		}
		seen[k] = struct{}{}
	}

	total := len(m.AccountKeys)
	for _, l := range m.AddressTableLookups {
		total += len(l.WritableIndexes) + len(l.ReadonlyIndexes)
	}
	for i, ix := range m.Instructions {
		if int(ix.ProgramIDIndex) >= total {
			return fmt.Errorf("%w: instruction %d program index %d", ErrBadAccountIndex, i, ix.ProgramIDIndex)
		}
		for _, a := range ix.Accounts {
			if int(a) >= total {
				return fmt.Errorf("%w: instruction %d account index %d", ErrBadAccountIndex, i, a)
			}
		}
	}
	return nil
}

// VerifySignatures checks that every required signer has a valid signature
// over the message. An unsigned transaction fails with ErrMissingSignature.
func (t *Transaction) VerifySignatures() error {
	signers := t.Message.Signers()
	if len(signers) == 0 {
		return ErrNoSigners
	}
	if len(t.Signatures) != len(signers) {
		return fmt.Errorf("%w: have %d, need %d", ErrSignatureCount, len(t.Signatures), len(signers))
	}
	msg, err := t.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	for i, pub := range signers {
		sig := t.Signatures[i]
		if sig.IsZero() {
			return fmt.Errorf("%w: slot %d (%s)", ErrMissingSignature, i, pub)
		}
		if !crypto.VerifySignature(msg, sig, pub) {
			return fmt.Errorf("%w: slot %d (%s)", ErrInvalidSignature, i, pub)
		}
	}
	return nil
}

// HasAnyValidSignature reports whether at least one slot carries a
// signature that verifies. Used to assert a transaction is fully unsigned.
func (t *Transaction) HasAnyValidSignature() bool {
	signers := t.Message.Signers()
	msg, err := t.Message.MarshalBinary()
	if err != nil {
		return false
	}
	for i, pub := range signers {
		if i >= len(t.Signatures) || t.Signatures[i].IsZero() {
			continue
		}
		if crypto.VerifySignature(msg, t.Signatures[i], pub) {
			return true
		}
	}
	return false
}
