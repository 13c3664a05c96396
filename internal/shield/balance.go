package shield

import (
	"context"

	"github.com/Klingon-tech/clawshield/internal/asset"
	"github.com/Klingon-tech/clawshield/internal/pool"
	"github.com/Klingon-tech/clawshield/internal/shieldkey"
	"github.com/Klingon-tech/clawshield/pkg/types"
)

// Balance returns the shielded balance of owner in whole tokens.
func (s *Service) Balance(ctx context.Context, owner types.PublicKey, a *asset.Config, key *shieldkey.Key) (float64, error) {
	sess, err := s.session(ctx, owner, key)
	if err != nil {
		return 0, err
	}

	p := pool.UtxoParams{Session: sess}
	var notes []*pool.Note
	if a.IsNative() {
		notes, err = s.sdk.Utxos(ctx, p)
	} else {
		p.Mint = a.Mint
		notes, err = s.sdk.UtxosSPL(ctx, p)
	}
	if err != nil {
		return 0, sdkError(err)
	}

	units := pool.BalanceOf(notes)
	s.logger.Debug().
		Str("key", key.Fingerprint()).
		Str("token", a.Symbol).
		Int("notes", len(notes)).
		Uint64("units", units).
		Msg("Balance queried")
	return a.FromBaseUnits(units), nil
}
