package pool

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"

	"github.com/Klingon-tech/clawshield/internal/shieldkey"
	"github.com/Klingon-tech/clawshield/pkg/types"
)

// notePlaintextSize is amount(8) | blinding(32) | mint(32).
const notePlaintextSize = 8 + types.HashSize + types.PublicKeySize

// Note is one shielded output owned by the requester. The mint is zero for
// the native asset.
type Note struct {
	Index      uint64          `json:"index"`
	Commitment types.Hash      `json:"commitment"`
	Nullifier  types.Hash      `json:"nullifier"`
	Amount     uint64          `json:"amount"`
	Blinding   types.Hash      `json:"blinding"`
	Mint       types.PublicKey `json:"mint"`
}

// BalanceOf sums note amounts in base units, saturating at MaxUint64.
func BalanceOf(notes []*Note) uint64 {
	var total uint64
	for _, n := range notes {
		sum, carry := bits.Add64(total, n.Amount, 0)
		if carry != 0 {
			return math.MaxUint64
		}
		total = sum
	}
	return total
}

// newNote creates an output of amount for the key holder with a fresh
// blinding factor. Index and nullifier are assigned once the output lands
// in the tree.
func newNote(h *Hasher, key *shieldkey.Key, amount uint64, mint types.PublicKey) (*Note, error) {
	n := &Note{Amount: amount, Mint: mint}
	if _, err := rand.Read(n.Blinding[:]); err != nil {
		return nil, fmt.Errorf("generate blinding: %w", err)
	}
	n.Commitment = h.Commitment(n.Amount, n.Blinding, key.OwnerPublic(), n.Mint)
	return n, nil
}

func (n *Note) plaintext() []byte {
	buf := make([]byte, notePlaintextSize)
	binary.LittleEndian.PutUint64(buf, n.Amount)
	copy(buf[8:], n.Blinding[:])
	copy(buf[8+types.HashSize:], n.Mint[:])
	return buf
}

// encrypt seals the note for its owner.
func (n *Note) encrypt(key *shieldkey.Key) ([]byte, error) {
	return key.Seal(n.plaintext())
}

// openNote decrypts an output and checks it against its public commitment.
// Outputs that belong to other keys fail with shieldkey.ErrDecrypt.
func openNote(h *Hasher, key *shieldkey.Key, out Output) (*Note, error) {
	pt, err := key.Open(out.Ciphertext)
	if err != nil {
		return nil, err
	}
	if len(pt) != notePlaintextSize {
		return nil, fmt.Errorf("note %d: plaintext is %d bytes, want %d", out.Index, len(pt), notePlaintextSize)
	}
	n := &Note{
		Index:      out.Index,
		Commitment: out.Commitment,
		Amount:     binary.LittleEndian.Uint64(pt),
	}
	copy(n.Blinding[:], pt[8:])
	copy(n.Mint[:], pt[8+types.HashSize:])

	if got := h.Commitment(n.Amount, n.Blinding, key.OwnerPublic(), n.Mint); got != out.Commitment {
		return nil, fmt.Errorf("note %d: commitment mismatch", out.Index)
	}
	n.Nullifier = h.Nullifier(n.Commitment, n.Index, key.OwnerSecret())
	return n, nil
}
