package tx

import (
	"fmt"

	"github.com/Klingon-tech/clawshield/pkg/types"
)

// versionPrefix marks a versioned (v0+) message. Legacy messages start with
// the header byte, which is always < 0x80.
const versionPrefix = 0x80

// MessageHeader describes how the account key list is partitioned.
type MessageHeader struct {
	NumRequiredSignatures       uint8 `json:"numRequiredSignatures"`
	NumReadonlySignedAccounts   uint8 `json:"numReadonlySignedAccounts"`
	NumReadonlyUnsignedAccounts uint8 `json:"numReadonlyUnsignedAccounts"`
}

// CompiledInstruction is an instruction whose accounts are indexes into the
// message account keys.
type CompiledInstruction struct {
	ProgramIDIndex uint8   `json:"programIdIndex"`
	Accounts       []uint8 `json:"accounts"`
	Data           []byte  `json:"data"`
}

// AddressTableLookup loads extra accounts from an on-chain lookup table
// (v0 messages only).
type AddressTableLookup struct {
	AccountKey      types.PublicKey `json:"accountKey"`
	WritableIndexes []uint8         `json:"writableIndexes"`
	ReadonlyIndexes []uint8         `json:"readonlyIndexes"`
}

// Message is the signed portion of a transaction.
type Message struct {
	Versioned           bool                  `json:"versioned"`
	Version             uint8                 `json:"version"`
	Header              MessageHeader         `json:"header"`
	AccountKeys         []types.PublicKey     `json:"accountKeys"`
	RecentBlockhash     types.Hash            `json:"recentBlockhash"`
	Instructions        []CompiledInstruction `json:"instructions"`
	AddressTableLookups []AddressTableLookup  `json:"addressTableLookups,omitempty"`
}

// MarshalBinary encodes the message in wire format. These are the bytes
// every required signer signs.
func (m *Message) MarshalBinary() ([]byte, error) {
	if len(m.AccountKeys) > 0xffff || len(m.Instructions) > 0xffff {
		return nil, fmt.Errorf("message too large")
	}
	buf := make([]byte, 0, 256)
	if m.Versioned {
		buf = append(buf, versionPrefix|m.Version)
	}
	buf = append(buf,
		m.Header.NumRequiredSignatures,
		m.Header.NumReadonlySignedAccounts,
		m.Header.NumReadonlyUnsignedAccounts,
	)

	buf = appendCompactU16(buf, len(m.AccountKeys))
	for _, k := range m.AccountKeys {
		buf = append(buf, k[:]...)
	}
	buf = append(buf, m.RecentBlockhash[:]...)

	buf = appendCompactU16(buf, len(m.Instructions))
	for _, ix := range m.Instructions {
		buf = append(buf, ix.ProgramIDIndex)
		buf = appendCompactU16(buf, len(ix.Accounts))
		buf = append(buf, ix.Accounts...)
		buf = appendCompactU16(buf, len(ix.Data))
		buf = append(buf, ix.Data...)
	}

	if m.Versioned {
		buf = appendCompactU16(buf, len(m.AddressTableLookups))
		for _, l := range m.AddressTableLookups {
			buf = append(buf, l.AccountKey[:]...)
			buf = appendCompactU16(buf, len(l.WritableIndexes))
			buf = append(buf, l.WritableIndexes...)
			buf = appendCompactU16(buf, len(l.ReadonlyIndexes))
			buf = append(buf, l.ReadonlyIndexes...)
		}
	}
	return buf, nil
}

// UnmarshalBinary decodes a wire-format message. The whole input must be
// consumed.
func (m *Message) UnmarshalBinary(data []byte) error {
	r := &reader{data: data}
	if err := m.decode(r); err != nil {
		return err
	}
	if r.remaining() != 0 {
		return fmt.Errorf("%d trailing bytes after message", r.remaining())
	}
	return nil
}

func (m *Message) decode(r *reader) error {
	*m = Message{}

	first, err := r.peekByte()
	if err != nil {
		return fmt.Errorf("message header: %w", err)
	}
	if first&versionPrefix != 0 {
		r.off++
		m.Versioned = true
		m.Version = first &^ versionPrefix
		if m.Version != 0 {
			return fmt.Errorf("unsupported message version %d", m.Version)
		}
	}

	hdr, err := r.readN(3)
	if err != nil {
		return fmt.Errorf("message header: %w", err)
	}
	m.Header = MessageHeader{
		NumRequiredSignatures:       hdr[0],
		NumReadonlySignedAccounts:   hdr[1],
		NumReadonlyUnsignedAccounts: hdr[2],
	}

	nKeys, err := r.readCompactU16()
	if err != nil {
		return fmt.Errorf("account key count: %w", err)
	}
	m.AccountKeys = make([]types.PublicKey, nKeys)
	for i := range m.AccountKeys {
		b, err := r.readN(types.PublicKeySize)
		if err != nil {
			return fmt.Errorf("account key %d: %w", i, err)
		}
		copy(m.AccountKeys[i][:], b)
	}

	bh, err := r.readN(types.HashSize)
	if err != nil {
		return fmt.Errorf("recent blockhash: %w", err)
	}
	copy(m.RecentBlockhash[:], bh)

	nIx, err := r.readCompactU16()
	if err != nil {
		return fmt.Errorf("instruction count: %w", err)
	}
	m.Instructions = make([]CompiledInstruction, nIx)
	for i := range m.Instructions {
		ix := &m.Instructions[i]
		if ix.ProgramIDIndex, err = r.readByte(); err != nil {
			return fmt.Errorf("instruction %d: %w", i, err)
		}
		if ix.Accounts, err = r.readBytes(); err != nil {
			return fmt.Errorf("instruction %d accounts: %w", i, err)
		}
		if ix.Data, err = r.readBytes(); err != nil {
			return fmt.Errorf("instruction %d data: %w", i, err)
		}
	}

	if !m.Versioned {
		return nil
	}
	nLookups, err := r.readCompactU16()
	if err != nil {
		return fmt.Errorf("lookup count: %w", err)
	}
	m.AddressTableLookups = make([]AddressTableLookup, nLookups)
	for i := range m.AddressTableLookups {
		l := &m.AddressTableLookups[i]
		key, err := r.readN(types.PublicKeySize)
		if err != nil {
			return fmt.Errorf("lookup %d: %w", i, err)
		}
		copy(l.AccountKey[:], key)
		if l.WritableIndexes, err = r.readBytes(); err != nil {
			return fmt.Errorf("lookup %d writable: %w", i, err)
		}
		if l.ReadonlyIndexes, err = r.readBytes(); err != nil {
			return fmt.Errorf("lookup %d readonly: %w", i, err)
		}
	}
	return nil
}

// Signers returns the account keys that must sign the message, fee payer
// first.
func (m *Message) Signers() []types.PublicKey {
	n := int(m.Header.NumRequiredSignatures)
	if n > len(m.AccountKeys) {
		n = len(m.AccountKeys)
	}
	out := make([]types.PublicKey, n)
	copy(out, m.AccountKeys[:n])
	return out
}

// FeePayer returns the first account key, which pays transaction fees.
func (m *Message) FeePayer() (types.PublicKey, bool) {
	if len(m.AccountKeys) == 0 || m.Header.NumRequiredSignatures == 0 {
		return types.PublicKey{}, false
	}
	return m.AccountKeys[0], true
}
