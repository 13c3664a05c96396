package tx

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Klingon-tech/clawshield/pkg/crypto"
	"github.com/Klingon-tech/clawshield/pkg/types"
)

var testBlockhash = types.Hash{0x0b, 0x10, 0xc4}

func testKey(tb testing.TB, fill byte) *crypto.PrivateKey {
	tb.Helper()
	k, err := crypto.PrivateKeyFromSeed(bytes.Repeat([]byte{fill}, 32))
	if err != nil {
		tb.Fatalf("key: %v", err)
	}
	return k
}

func buildTransfer(t *testing.T, from *crypto.PrivateKey, to types.PublicKey) *Transaction {
	t.Helper()
	txn, err := NewBuilder(from.PublicKey()).
		SetRecentBlockhash(testBlockhash).
		AddInstruction(Transfer(from.PublicKey(), to, 1_500_000_000)).
		AddInstruction(Memo([]byte("shield"))).
		Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return txn
}

func TestBuilder_AccountOrdering(t *testing.T) {
	payer := testKey(t, 1)
	to := testKey(t, 2).PublicKey()
	txn := buildTransfer(t, payer, to)

	m := txn.Message
	if m.Header.NumRequiredSignatures != 1 {
		t.Errorf("NumRequiredSignatures = %d, want 1", m.Header.NumRequiredSignatures)
	}
	// payer, recipient (writable), system program + memo program (readonly).
	if len(m.AccountKeys) != 4 {
		t.Fatalf("AccountKeys = %d, want 4", len(m.AccountKeys))
	}
	if m.AccountKeys[0] != payer.PublicKey() {
		t.Error("fee payer must be first account")
	}
	if m.AccountKeys[1] != to {
		t.Error("writable recipient must precede readonly programs")
	}
	if m.Header.NumReadonlyUnsignedAccounts != 2 {
		t.Errorf("NumReadonlyUnsignedAccounts = %d, want 2", m.Header.NumReadonlyUnsignedAccounts)
	}
	if len(txn.Signatures) != 1 || !txn.Signatures[0].IsZero() {
		t.Error("new transaction should have one empty signature slot")
	}
}

func TestTransaction_RoundTrip(t *testing.T) {
	payer := testKey(t, 1)
	txn := buildTransfer(t, payer, testKey(t, 2).PublicKey())

	raw, err := txn.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error: %v", err)
	}
	decoded, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	again, err := decoded.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error: %v", err)
	}
	if !bytes.Equal(raw, again) {
		t.Error("round trip should be byte exact")
	}
	if decoded.Message.RecentBlockhash != testBlockhash {
		t.Error("blockhash mismatch")
	}

	b64, err := txn.Base64()
	if err != nil {
		t.Fatalf("Base64() error: %v", err)
	}
	fromB64, err := UnmarshalBase64(b64)
	if err != nil {
		t.Fatalf("UnmarshalBase64() error: %v", err)
	}
	if fromB64.Message.AccountKeys[0] != payer.PublicKey() {
		t.Error("base64 round trip lost fee payer")
	}
}

func TestTransaction_UnsignedFailsVerification(t *testing.T) {
	payer := testKey(t, 1)
	txn := buildTransfer(t, payer, testKey(t, 2).PublicKey())

	err := txn.VerifySignatures()
	if !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("VerifySignatures() = %v, want ErrMissingSignature", err)
	}
	if txn.HasAnyValidSignature() {
		t.Error("unsigned tx should have no valid signature")
	}
}

func TestTransaction_SignAndVerify(t *testing.T) {
	payer := testKey(t, 1)
	txn := buildTransfer(t, payer, testKey(t, 2).PublicKey())

	if err := txn.Sign(payer); err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if err := txn.VerifySignatures(); err != nil {
		t.Fatalf("VerifySignatures() error: %v", err)
	}
	if txn.ID() != txn.Signatures[0] {
		t.Error("ID() should be the first signature")
	}

	raw, _ := txn.MarshalBinary()
	decoded, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if err := decoded.VerifySignatures(); err != nil {
		t.Errorf("decoded signed tx should verify: %v", err)
	}
}

func TestTransaction_TamperedMessage(t *testing.T) {
	payer := testKey(t, 1)
	txn := buildTransfer(t, payer, testKey(t, 2).PublicKey())
	if err := txn.Sign(payer); err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	txn.Message.Instructions[1].Data = []byte("redirect")
	if err := txn.VerifySignatures(); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("VerifySignatures() = %v, want ErrInvalidSignature", err)
	}
}

func TestTransaction_SignWrongKey(t *testing.T) {
	payer := testKey(t, 1)
	txn := buildTransfer(t, payer, testKey(t, 2).PublicKey())
	if err := txn.Sign(testKey(t, 3)); err == nil {
		t.Error("signing with a non-required key should fail")
	}
}

func TestMessage_V0RoundTrip(t *testing.T) {
	payer := testKey(t, 1).PublicKey()
	msg := Message{
		Versioned:       true,
		Header:          MessageHeader{NumRequiredSignatures: 1, NumReadonlyUnsignedAccounts: 1},
		AccountKeys:     []types.PublicKey{payer, MemoProgramID},
		RecentBlockhash: testBlockhash,
		Instructions: []CompiledInstruction{
			{ProgramIDIndex: 1, Accounts: []uint8{0, 2}, Data: []byte{1, 2, 3}},
		},
		AddressTableLookups: []AddressTableLookup{
			{AccountKey: testKey(t, 9).PublicKey(), WritableIndexes: []uint8{4}, ReadonlyIndexes: []uint8{}},
		},
	}
	if err := msg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	raw, err := New(msg).MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error: %v", err)
	}
	decoded, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !decoded.Message.Versioned || decoded.Message.Version != 0 {
		t.Error("decoded message should be v0")
	}
	if len(decoded.Message.AddressTableLookups) != 1 {
		t.Fatal("lookup table lost")
	}
	again, _ := decoded.MarshalBinary()
	if !bytes.Equal(raw, again) {
		t.Error("v0 round trip should be byte exact")
	}
}

func TestUnmarshal_Errors(t *testing.T) {
	payer := testKey(t, 1)
	raw, _ := buildTransfer(t, payer, testKey(t, 2).PublicKey()).MarshalBinary()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated", raw[:len(raw)-3]},
		{"trailing", append(append([]byte{}, raw...), 0x00)},
		{"too large", make([]byte, MaxTransactionSize+1)},
		{"slot count mismatch", append([]byte{0x02}, raw[1:]...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unmarshal(tt.data); err == nil {
				t.Error("Unmarshal() should fail")
			}
		})
	}
}

func TestCompactU16(t *testing.T) {
	tests := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0x00}},
		{0x7f, []byte{0x7f}},
		{0x80, []byte{0x80, 0x01}},
		{0x3fff, []byte{0xff, 0x7f}},
		{0x4000, []byte{0x80, 0x80, 0x01}},
		{0xffff, []byte{0xff, 0xff, 0x03}},
	}
	for _, tt := range tests {
		got := appendCompactU16(nil, tt.n)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("appendCompactU16(%d) = %x, want %x", tt.n, got, tt.want)
		}
		r := &reader{data: got}
		n, err := r.readCompactU16()
		if err != nil || n != tt.n {
			t.Errorf("readCompactU16(%x) = %d, %v; want %d", got, n, err, tt.n)
		}
	}

	for _, bad := range [][]byte{{0x80, 0x00}, {0xff, 0xff, 0x04}, {0x80, 0x80, 0x80, 0x01}} {
		r := &reader{data: bad}
		if _, err := r.readCompactU16(); err == nil {
			t.Errorf("readCompactU16(%x) should fail", bad)
		}
	}
}

func TestMessage_Validate(t *testing.T) {
	payer := testKey(t, 1).PublicKey()
	base := func() Message {
		return Message{
			Header:      MessageHeader{NumRequiredSignatures: 1, NumReadonlyUnsignedAccounts: 1},
			AccountKeys: []types.PublicKey{payer, MemoProgramID},
			Instructions: []CompiledInstruction{
				{ProgramIDIndex: 1, Data: []byte("x")},
			},
		}
	}

	m := base()
	if err := m.Validate(); err != nil {
		t.Fatalf("valid message: %v", err)
	}

	m = base()
	m.Header.NumRequiredSignatures = 0
	if !errors.Is(m.Validate(), ErrNoSigners) {
		t.Error("zero signers should fail")
	}

	m = base()
	m.Instructions[0].ProgramIDIndex = 5
	if !errors.Is(m.Validate(), ErrBadAccountIndex) {
		t.Error("out-of-range program index should fail")
	}

	m = base()
	m.AccountKeys[1] = payer
	if !errors.Is(m.Validate(), ErrDuplicateAccounts) {
		t.Error("duplicate keys should fail")
	}

	m = base()
	m.Instructions = nil
	if !errors.Is(m.Validate(), ErrNoInstructions) {
		t.Error("no instructions should fail")
	}
}
