// Package pool is the boundary to the shielded-pool protocol: the SDK call
// surface the gateway depends on and a client implementing it against the
// pool relayer.
package pool

import (
	"context"
	"errors"

	"github.com/Klingon-tech/clawshield/internal/shieldkey"
	"github.com/Klingon-tech/clawshield/internal/storage"
	"github.com/Klingon-tech/clawshield/pkg/tx"
	"github.com/Klingon-tech/clawshield/pkg/types"
)

// Errors.
var (
	ErrMintRequired    = errors.New("mint required for token operation")
	ErrMissingSession  = errors.New("owner, key, storage and hasher are required")
	ErrNoSigner        = errors.New("deposit requires a transaction signer")
	ErrNoFunds         = errors.New("no spendable notes")
	ErrAmountBelowFee  = errors.New("amount does not cover the withdraw fee")
	ErrCircuitMismatch = errors.New("relayer circuit does not match local hasher")
	ErrZeroAmount      = errors.New("amount must be positive")
)

// TransactionSigner is called with the unsigned deposit transaction and
// returns it signed. A non-nil error aborts the deposit before relay.
type TransactionSigner func(ctx context.Context, t *tx.Transaction) (*tx.Transaction, error)

// Session is the per-request context every SDK call needs.
type Session struct {
	Owner       types.PublicKey
	Key         *shieldkey.Key
	Storage     storage.Storage
	Hasher      *Hasher
	KeyBasePath string
}

func (s *Session) validate() error {
	if s.Owner.IsZero() || s.Key == nil || s.Storage == nil || s.Hasher == nil {
		return ErrMissingSession
	}
	return nil
}

// UtxoParams selects the notes to fetch. Mint is required for token calls.
type UtxoParams struct {
	Session
	Mint *types.PublicKey
}

// DepositParams shields BaseUnits of an asset.
type DepositParams struct {
	Session
	Mint      *types.PublicKey
	BaseUnits uint64
	Signer    TransactionSigner
}

// DepositResult reports a relayed deposit.
type DepositResult struct {
	Signature types.Signature
}

// WithdrawParams pays BaseUnits of an asset out of the pool to Recipient.
type WithdrawParams struct {
	Session
	Mint      *types.PublicKey
	Recipient types.PublicKey
	BaseUnits uint64
}

// WithdrawResult reports a relayed withdrawal. Amount is what was actually
// spent; it is less than requested when IsPartial is set.
type WithdrawResult struct {
	Signature types.Signature
	IsPartial bool
	Amount    uint64
	Fee       uint64
}

// SDK is the pool SDK call surface.
type SDK interface {
	Utxos(ctx context.Context, p UtxoParams) ([]*Note, error)
	UtxosSPL(ctx context.Context, p UtxoParams) ([]*Note, error)
	Deposit(ctx context.Context, p DepositParams) (*DepositResult, error)
	DepositSPL(ctx context.Context, p DepositParams) (*DepositResult, error)
	Withdraw(ctx context.Context, p WithdrawParams) (*WithdrawResult, error)
	WithdrawSPL(ctx context.Context, p WithdrawParams) (*WithdrawResult, error)
}
