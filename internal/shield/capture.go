package shield

import (
	"context"
	"errors"
	"fmt"

	"github.com/Klingon-tech/clawshield/internal/asset"
	"github.com/Klingon-tech/clawshield/internal/pool"
	"github.com/Klingon-tech/clawshield/internal/shieldkey"
	"github.com/Klingon-tech/clawshield/pkg/tx"
	"github.com/Klingon-tech/clawshield/pkg/types"
)

// errTxCaptured is returned by the capturing signer to stop the SDK after
// the unsigned transaction has been recorded. It never leaves this package.
var errTxCaptured = errors.New("transaction captured for external signing")

// CapturedTransaction is an unsigned deposit the caller must sign.
type CapturedTransaction struct {
	Serialized string // base64 wire format
	Asset      string
	Amount     float64
	BaseUnits  uint64
}

type captureOutcome int

const (
	captureCaptured captureOutcome = iota + 1
	captureFailed
)

// captureResult is the classified outcome of one interrupted SDK call.
type captureResult struct {
	outcome    captureOutcome
	serialized string
	err        error
}

// capturer is the signing callback handed to the SDK. It never signs; it
// records the transaction and aborts the SDK flow before relay.
type capturer struct {
	owner      types.PublicKey
	calls      int
	serialized string
	violation  error
}

func (c *capturer) sign(_ context.Context, t *tx.Transaction) (*tx.Transaction, error) {
	c.calls++
	switch {
	case c.calls > 1:
		c.violation = fmt.Errorf("signer invoked %d times", c.calls)
	case t == nil:
		c.violation = errors.New("signer received no transaction")
	default:
		c.record(t)
	}
	return nil, errTxCaptured
}

func (c *capturer) record(t *tx.Transaction) {
	if payer, ok := t.FeePayer(); !ok || payer != c.owner {
		c.violation = fmt.Errorf("fee payer %s is not the owner %s", payer, c.owner)
		return
	}
	if t.HasAnyValidSignature() {
		c.violation = errors.New("transaction already carries a signature")
		return
	}
	enc, err := t.Base64()
	if err != nil {
		c.violation = fmt.Errorf("serialize transaction: %w", err)
		return
	}
	c.serialized = enc
}

// result classifies the SDK's return value together with what the signer
// saw. Genuine SDK failures pass through with their message intact.
func (c *capturer) result(sdkErr error) captureResult {
	failed := func(err error) captureResult {
		return captureResult{outcome: captureFailed, err: err}
	}
	switch {
	case c.violation != nil:
		return failed(fmt.Errorf("%w: %v", ErrCaptureFailed, c.violation))
	case sdkErr == nil && c.calls > 0:
		return failed(fmt.Errorf("%w: SDK relayed a transaction the gateway did not sign", ErrCaptureFailed))
	case sdkErr == nil:
		return failed(fmt.Errorf("%w: SDK returned without building a transaction", ErrCaptureFailed))
	case errors.Is(sdkErr, errTxCaptured) && c.serialized != "":
		return captureResult{outcome: captureCaptured, serialized: c.serialized}
	case errors.Is(sdkErr, errTxCaptured):
		return failed(fmt.Errorf("%w: no transaction bytes were recorded", ErrCaptureFailed))
	default:
		return failed(sdkError(sdkErr))
	}
}

// BuildShield runs the SDK deposit flow up to the signing step and returns
// the unsigned transaction. Nothing is broadcast.
func (s *Service) BuildShield(ctx context.Context, owner types.PublicKey, a *asset.Config, amount float64, key *shieldkey.Key) (*CapturedTransaction, error) {
	units, err := a.ToBaseUnits(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	sess, err := s.session(ctx, owner, key)
	if err != nil {
		return nil, err
	}

	c := &capturer{owner: owner}
	p := pool.DepositParams{Session: sess, BaseUnits: units, Signer: c.sign}
	var sdkErr error
	if a.IsNative() {
		_, sdkErr = s.sdk.Deposit(ctx, p)
	} else {
		p.Mint = a.Mint
		_, sdkErr = s.sdk.DepositSPL(ctx, p)
	}

	res := c.result(sdkErr)
	if res.outcome != captureCaptured {
		s.logger.Warn().
			Err(res.err).
			Str("key", key.Fingerprint()).
			Str("token", a.Symbol).
			Msg("Shield build failed")
		return nil, res.err
	}

	s.logger.Info().
		Str("key", key.Fingerprint()).
		Str("token", a.Symbol).
		Uint64("units", units).
		Msg("Unsigned shield transaction built")
	return &CapturedTransaction{
		Serialized: res.serialized,
		Asset:      a.Symbol,
		Amount:     amount,
		BaseUnits:  units,
	}, nil
}
