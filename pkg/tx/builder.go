package tx

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/Klingon-tech/clawshield/pkg/types"
)

// Well-known program IDs.
var (
	SystemProgramID = types.PublicKey{}
	MemoProgramID   = types.MustParsePublicKey("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")
)

// AccountMeta describes an account referenced by an instruction.
type AccountMeta struct {
	PublicKey  types.PublicKey
	IsSigner   bool
	IsWritable bool
}

// Instruction is an uncompiled instruction.
type Instruction struct {
	ProgramID types.PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// Transfer returns a system-program lamport transfer instruction.
func Transfer(from, to types.PublicKey, lamports uint64) Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data, 2)
	binary.LittleEndian.PutUint64(data[4:], lamports)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{PublicKey: from, IsSigner: true, IsWritable: true},
			{PublicKey: to, IsWritable: true},
		},
		Data: data,
	}
}

// Memo returns a memo-program instruction carrying data.
func Memo(data []byte, signers ...types.PublicKey) Instruction {
	ix := Instruction{ProgramID: MemoProgramID, Data: data}
	for _, s := range signers {
		ix.Accounts = append(ix.Accounts, AccountMeta{PublicKey: s, IsSigner: true})
	}
	return ix
}

// Builder compiles instructions into a legacy transaction.
type Builder struct {
	payer        types.PublicKey
	blockhash    types.Hash
	instructions []Instruction
}

// NewBuilder creates a builder with the given fee payer.
func NewBuilder(payer types.PublicKey) *Builder {
	return &Builder{payer: payer}
}

// SetRecentBlockhash sets the blockhash the transaction is valid against.
func (b *Builder) SetRecentBlockhash(h types.Hash) *Builder {
	b.blockhash = h
	return b
}

// AddInstruction appends an instruction.
func (b *Builder) AddInstruction(ix Instruction) *Builder {
	b.instructions = append(b.instructions, ix)
	return b
}

// Build compiles the instructions into an unsigned transaction.
func (b *Builder) Build() (*Transaction, error) {
	if len(b.instructions) == 0 {
		return nil, ErrNoInstructions
	}

	type entry struct {
		meta  AccountMeta
		order int
	}
	entries := map[types.PublicKey]*entry{
		b.payer: {meta: AccountMeta{PublicKey: b.payer, IsSigner: true, IsWritable: true}},
	}
	add := func(m AccountMeta) {
		if e, ok := entries[m.PublicKey]; ok {
			e.meta.IsSigner = e.meta.IsSigner || m.IsSigner
			e.meta.IsWritable = e.meta.IsWritable || m.IsWritable
			return
		}
		entries[m.PublicKey] = &entry{meta: m, order: len(entries)}
	}
	for _, ix := range b.instructions {
		for _, a := range ix.Accounts {
			add(a)
		}
		add(AccountMeta{PublicKey: ix.ProgramID})
	}

	list := make([]*entry, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}
	rank := func(m AccountMeta) int {
		switch {
		case m.IsSigner && m.IsWritable:
			return 0
		case m.IsSigner:
			return 1
		case m.IsWritable:
			return 2
		default:
			return 3
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		ri, rj := rank(list[i].meta), rank(list[j].meta)
		if ri != rj {
			return ri < rj
		}
		return list[i].order < list[j].order
	})
	if len(list) > 0xff {
		return nil, fmt.Errorf("too many accounts: %d", len(list))
	}

	msg := Message{RecentBlockhash: b.blockhash}
	index := make(map[types.PublicKey]uint8, len(list))
	for i, e := range list {
		index[e.meta.PublicKey] = uint8(i)
		msg.AccountKeys = append(msg.AccountKeys, e.meta.PublicKey)
		switch rank(e.meta) {
		case 0:
			msg.Header.NumRequiredSignatures++
		case 1:
			msg.Header.NumRequiredSignatures++
			msg.Header.NumReadonlySignedAccounts++
		case 3:
			msg.Header.NumReadonlyUnsignedAccounts++
		}
	}

	for _, ix := range b.instructions {
		ci := CompiledInstruction{
			ProgramIDIndex: index[ix.ProgramID],
			Data:           append([]byte(nil), ix.Data...),
		}
		for _, a := range ix.Accounts {
			ci.Accounts = append(ci.Accounts, index[a.PublicKey])
		}
		msg.Instructions = append(msg.Instructions, ci)
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return New(msg), nil
}
