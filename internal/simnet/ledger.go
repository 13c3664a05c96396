package simnet

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Klingon-tech/clawshield/internal/pool"
	"github.com/Klingon-tech/clawshield/internal/rpc"
	"github.com/Klingon-tech/clawshield/internal/rpcclient"
	"github.com/Klingon-tech/clawshield/pkg/crypto"
	"github.com/Klingon-tech/clawshield/pkg/tx"
	"github.com/Klingon-tech/clawshield/pkg/types"
)

// blockhashValidity is how many blocks a blockhash stays usable.
const blockhashValidity = 150

// finalizedDepth is how many slots a transaction needs to be finalized.
const finalizedDepth = 32

// Solana RPC error codes returned by the simulated node.
const (
	codeBlockhashNotFound = -32002
	codeSigVerifyFailure  = -32003
)

// landed records where a transaction executed and whether it failed.
type landed struct {
	slot uint64
	err  json.RawMessage
}

// Ledger is the shared state behind the simulated Solana node and pool
// relayer. All methods are safe for concurrent use.
type Ledger struct {
	mu sync.Mutex

	slot        uint64
	height      uint64
	blockhash   types.Hash
	blockhashes map[types.Hash]uint64 // blockhash -> last valid block height

	txs        map[types.Signature]landed
	outputs    map[string][]pool.Output // mint ("" = native) -> leaves
	nullifiers map[types.Hash]bool
	paid       map[string]uint64 // mint/recipient -> amount paid out

	failNext string
	drop     bool
}

// NewLedger creates a ledger at slot 1 with one valid blockhash.
func NewLedger() *Ledger {
	l := &Ledger{
		blockhashes: make(map[types.Hash]uint64),
		txs:         make(map[types.Signature]landed),
		outputs:     make(map[string][]pool.Output),
		nullifiers:  make(map[types.Hash]bool),
		paid:        make(map[string]uint64),
	}
	l.mu.Lock()
	l.tickLocked()
	l.mu.Unlock()
	return l
}

// Tick advances the ledger by one slot and block.
func (l *Ledger) Tick() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tickLocked()
}

func (l *Ledger) tickLocked() {
	l.slot++
	l.height++
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], l.slot)
	l.blockhash = types.Hash(crypto.HashParts(l.blockhash[:], buf[:]))
	l.blockhashes[l.blockhash] = l.height + blockhashValidity
}

// LatestBlockhash returns the newest blockhash and its expiry height.
func (l *Ledger) LatestBlockhash() (types.Hash, uint64, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.blockhash, l.blockhashes[l.blockhash], l.slot
}

// Height returns the current block height.
func (l *Ledger) Height() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height
}

// FailNext makes the next executed transaction land with an error.
func (l *Ledger) FailNext(reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext = reason
}

// DropTransactions makes accepted transactions vanish without landing.
func (l *Ledger) DropTransactions(drop bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.drop = drop
}

// OutputCount returns the number of leaves for a mint ("" = native).
func (l *Ledger) OutputCount(mint string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.outputs[mint])
}

// Paid returns the total paid to recipient in the given mint.
func (l *Ledger) Paid(recipient types.PublicKey, mint string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paid[mint+"/"+recipient.String()]
}

// AddOutput appends a leaf directly, bypassing transactions.
func (l *Ledger) AddOutput(mint string, commitment types.Hash, ciphertext []byte) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendOutputLocked(mint, commitment, ciphertext)
}

func (l *Ledger) appendOutputLocked(mint string, commitment types.Hash, ciphertext []byte) uint64 {
	idx := uint64(len(l.outputs[mint]))
	l.outputs[mint] = append(l.outputs[mint], pool.Output{
		Index:      idx,
		Commitment: commitment,
		Ciphertext: append([]byte(nil), ciphertext...),
	})
	return idx
}

// Execute verifies and applies a signed transaction. Effects are applied
// only when the transaction lands without error.
func (l *Ledger) Execute(t *tx.Transaction) (types.Signature, *rpc.Error) {
	if err := t.Message.Validate(); err != nil {
		return types.Signature{}, &rpc.Error{Code: rpc.CodeInvalidParams, Message: fmt.Sprintf("invalid transaction: %v", err)}
	}
	if err := t.VerifySignatures(); err != nil {
		return types.Signature{}, &rpc.Error{Code: codeSigVerifyFailure, Message: "Transaction signature verification failure"}
	}
	deposits, err := poolDeposits(t)
	if err != nil {
		return types.Signature{}, &rpc.Error{Code: codeBlockhashNotFound, Message: fmt.Sprintf("Transaction simulation failed: %v", err)}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	lastValid, ok := l.blockhashes[t.Message.RecentBlockhash]
	if !ok || l.height > lastValid {
		return types.Signature{}, &rpc.Error{Code: codeBlockhashNotFound, Message: "Blockhash not found"}
	}
	sig := t.ID()
	if _, dup := l.txs[sig]; dup {
		return types.Signature{}, &rpc.Error{Code: codeBlockhashNotFound, Message: "This transaction has already been processed"}
	}
	if l.drop {
		return sig, nil
	}

	if l.failNext != "" {
		reason, _ := json.Marshal(map[string]string{"simnet": l.failNext})
		l.failNext = ""
		l.txs[sig] = landed{slot: l.slot, err: reason}
		return sig, nil
	}

	for _, d := range deposits {
		mint := ""
		if !d.Mint.IsZero() {
			mint = d.Mint.String()
		}
		l.appendOutputLocked(mint, d.Commitment, d.Ciphertext)
	}
	l.txs[sig] = landed{slot: l.slot}
	return sig, nil
}

// Status returns the Solana status of a signature, or nil if unknown.
func (l *Ledger) Status(sig types.Signature) *rpcclient.SignatureStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statusLocked(sig)
}

func (l *Ledger) statusLocked(sig types.Signature) *rpcclient.SignatureStatus {
	rec, ok := l.txs[sig]
	if !ok {
		return nil
	}
	st := &rpcclient.SignatureStatus{Slot: rec.slot, Err: rec.err}
	depth := l.slot - rec.slot
	switch {
	case depth >= finalizedDepth:
		st.ConfirmationStatus = rpcclient.CommitmentFinalized
	case depth >= 1:
		st.ConfirmationStatus = rpcclient.CommitmentConfirmed
		st.Confirmations = &depth
	default:
		st.ConfirmationStatus = rpcclient.CommitmentProcessed
		st.Confirmations = &depth
	}
	return st
}

// spend validates and applies a withdrawal: inputs must exist, nullifiers
// must be fresh, and the change output is appended.
func (l *Ledger) spend(req *pool.WithdrawRequest) *rpc.Error {
	l.mu.Lock()
	defer l.mu.Unlock()

	known := make(map[types.Hash]bool, len(l.outputs[req.Mint]))
	for _, o := range l.outputs[req.Mint] {
		known[o.Commitment] = true
	}
	for _, c := range req.Inputs {
		if !known[c] {
			return &rpc.Error{Code: rpc.CodeInvalidParams, Message: fmt.Sprintf("unknown input %s", c)}
		}
	}
	seen := make(map[types.Hash]bool, len(req.Nullifiers))
	for _, n := range req.Nullifiers {
		if l.nullifiers[n] || seen[n] {
			return &rpc.Error{Code: rpc.CodeInvalidParams, Message: fmt.Sprintf("nullifier %s already spent", n)}
		}
		seen[n] = true
	}

	for n := range seen {
		l.nullifiers[n] = true
	}
	if req.Change != nil {
		l.appendOutputLocked(req.Mint, req.Change.Commitment, req.Change.Ciphertext)
	}
	l.paid[req.Mint+"/"+req.Recipient.String()] += req.Amount - req.Fee
	return nil
}

// Spent reports the spent flag of each nullifier.
func (l *Ledger) Spent(nullifiers []types.Hash) []bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]bool, len(nullifiers))
	for i, n := range nullifiers {
		out[i] = l.nullifiers[n]
	}
	return out
}

// Outputs returns a page of leaves for a mint.
func (l *Ledger) Outputs(mint string, offset uint64, limit int) ([]pool.Output, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	all := l.outputs[mint]
	total := uint64(len(all))
	if offset >= total || limit <= 0 {
		return []pool.Output{}, total
	}
	end := offset + uint64(limit)
	if end > total {
		end = total
	}
	page := make([]pool.Output, end-offset)
	copy(page, all[offset:end])
	return page, total
}
