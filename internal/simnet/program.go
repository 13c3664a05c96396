package simnet

import (
	"encoding/binary"
	"errors"

	"github.com/Klingon-tech/clawshield/pkg/crypto"
	"github.com/Klingon-tech/clawshield/pkg/tx"
	"github.com/Klingon-tech/clawshield/pkg/types"
)

// Simulated on-chain accounts.
var (
	PoolProgramID = types.PublicKey(crypto.Hash([]byte("clawshield/simnet/pool-program")))
	PoolVault     = types.PublicKey(crypto.Hash([]byte("clawshield/simnet/pool-vault")))
)

const depositTag byte = 0x00

// depositHeaderSize is tag(1) | amount(8) | mint(32) | commitment(32).
const depositHeaderSize = 1 + 8 + types.PublicKeySize + types.HashSize

var errBadInstruction = errors.New("invalid pool instruction")

// deposit is a decoded pool deposit instruction.
type deposit struct {
	Amount     uint64
	Mint       types.PublicKey
	Commitment types.Hash
	Ciphertext []byte
}

// depositInstruction builds the pool instruction that appends one output.
func depositInstruction(owner types.PublicKey, d deposit) tx.Instruction {
	data := make([]byte, depositHeaderSize, depositHeaderSize+len(d.Ciphertext))
	data[0] = depositTag
	binary.LittleEndian.PutUint64(data[1:], d.Amount)
	copy(data[9:], d.Mint[:])
	copy(data[9+types.PublicKeySize:], d.Commitment[:])
	data = append(data, d.Ciphertext...)
	return tx.Instruction{
		ProgramID: PoolProgramID,
		Accounts: []tx.AccountMeta{
			{PublicKey: owner, IsSigner: true, IsWritable: true},
			{PublicKey: PoolVault, IsWritable: true},
		},
		Data: data,
	}
}

func decodeDeposit(data []byte) (deposit, error) {
	if len(data) <= depositHeaderSize || data[0] != depositTag {
		return deposit{}, errBadInstruction
	}
	var d deposit
	d.Amount = binary.LittleEndian.Uint64(data[1:])
	copy(d.Mint[:], data[9:])
	copy(d.Commitment[:], data[9+types.PublicKeySize:])
	d.Ciphertext = append([]byte(nil), data[depositHeaderSize:]...)
	if d.Amount == 0 {
		return deposit{}, errBadInstruction
	}
	return d, nil
}

// poolDeposits extracts every pool deposit from a transaction.
func poolDeposits(t *tx.Transaction) ([]deposit, error) {
	var out []deposit
	keys := t.Message.AccountKeys
	for _, ix := range t.Message.Instructions {
		if int(ix.ProgramIDIndex) >= len(keys) || keys[ix.ProgramIDIndex] != PoolProgramID {
			continue
		}
		d, err := decodeDeposit(ix.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
