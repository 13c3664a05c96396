package shield

import (
	"context"
	"fmt"
	"strings"

	"github.com/Klingon-tech/clawshield/internal/asset"
	"github.com/Klingon-tech/clawshield/internal/pool"
	"github.com/Klingon-tech/clawshield/internal/shieldkey"
	"github.com/Klingon-tech/clawshield/pkg/types"
)

// WithdrawalResult reports a relayed withdrawal. Fee is in base units of
// the withdrawn asset.
type WithdrawalResult struct {
	TxHash    string
	IsPartial bool
	Fee       uint64
	Amount    float64
	Recipient string
}

// Withdraw moves amount of the asset out of the pool to recipient. The
// relayer signs and pays for the transaction.
func (s *Service) Withdraw(ctx context.Context, owner types.PublicKey, recipient string, a *asset.Config, amount float64, key *shieldkey.Key) (*WithdrawalResult, error) {
	rcpt, err := types.ParsePublicKey(strings.TrimSpace(recipient))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid recipient: %w", ErrValidation, err)
	}
	units, err := a.ToBaseUnits(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	sess, err := s.session(ctx, owner, key)
	if err != nil {
		return nil, err
	}

	p := pool.WithdrawParams{Session: sess, Recipient: rcpt, BaseUnits: units}
	var res *pool.WithdrawResult
	if a.IsNative() {
		res, err = s.sdk.Withdraw(ctx, p)
	} else {
		p.Mint = a.Mint
		res, err = s.sdk.WithdrawSPL(ctx, p)
	}
	if err != nil {
		return nil, sdkError(err)
	}

	s.logger.Info().
		Str("key", key.Fingerprint()).
		Str("token", a.Symbol).
		Str("recipient", rcpt.String()).
		Uint64("units", res.Amount).
		Uint64("fee", res.Fee).
		Bool("partial", res.IsPartial).
		Str("tx", res.Signature.String()).
		Msg("Withdrawal relayed")
	return &WithdrawalResult{
		TxHash:    res.Signature.String(),
		IsPartial: res.IsPartial,
		Fee:       res.Fee,
		Amount:    amount,
		Recipient: rcpt.String(),
	}, nil
}
