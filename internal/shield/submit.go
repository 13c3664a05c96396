package shield

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Klingon-tech/clawshield/internal/rpcclient"
	"github.com/Klingon-tech/clawshield/pkg/tx"
	"github.com/Klingon-tech/clawshield/pkg/types"
)

// StatusConfirmed is the only status Submit reports on success.
const StatusConfirmed = "confirmed"

// SubmissionResult reports a confirmed transaction.
type SubmissionResult struct {
	TxHash string
	Status string
	Slot   uint64
}

// Submit broadcasts a signed transaction and waits until it is confirmed,
// fails on chain, or its blockhash expires.
func (s *Service) Submit(ctx context.Context, signedTxBase64 string) (*SubmissionResult, error) {
	enc := strings.TrimSpace(signedTxBase64)
	if enc == "" {
		return nil, fmt.Errorf("%w: signed transaction required", ErrValidation)
	}
	t, err := tx.UnmarshalBase64(enc)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed transaction: %w", ErrValidation, err)
	}
	if err := t.VerifySignatures(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmissionRejected, err)
	}

	client := s.rpc.Get()
	bh, err := client.GetLatestBlockhash(ctx, s.cfg.Commitment)
	if err != nil {
		return nil, fmt.Errorf("%w: latest blockhash: %w", ErrRPC, err)
	}

	retries := s.cfg.MaxRetries
	sig, err := client.SendTransaction(ctx, enc, rpcclient.SendOptions{
		SkipPreflight:       false,
		PreflightCommitment: s.cfg.Commitment,
		MaxRetries:          &retries,
	})
	if err != nil {
		var rpcErr *rpcclient.RPCError
		if errors.As(err, &rpcErr) {
			return nil, fmt.Errorf("%w: %w", ErrSubmissionRejected, err)
		}
		return nil, fmt.Errorf("%w: send transaction: %w", ErrRPC, err)
	}
	s.logger.Info().Str("tx", sig.String()).Msg("Transaction sent")

	slot, err := s.confirm(ctx, client, sig, bh.LastValidBlockHeight)
	if err != nil {
		s.logger.Warn().Err(err).Str("tx", sig.String()).Msg("Transaction not confirmed")
		return nil, err
	}
	s.logger.Info().Str("tx", sig.String()).Uint64("slot", slot).Msg("Transaction confirmed")
	return &SubmissionResult{TxHash: sig.String(), Status: StatusConfirmed, Slot: slot}, nil
}

// confirm polls the signature status until it settles or the block height
// passes lastValid.
func (s *Service) confirm(ctx context.Context, client *rpcclient.Client, sig types.Signature, lastValid uint64) (uint64, error) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		statuses, err := client.GetSignatureStatuses(ctx, sig)
		if err != nil {
			if ctx.Err() != nil {
				return 0, fmt.Errorf("confirm %s: %w", sig, ctx.Err())
			}
			return 0, fmt.Errorf("%w: signature status: %w", ErrRPC, err)
		}
		if st := statuses[0]; st != nil {
			if st.Failed() {
				return 0, fmt.Errorf("%w: transaction %s failed: %s", ErrSubmissionRejected, sig, st.Err)
			}
			if st.Confirmed() {
				return st.Slot, nil
			}
		}

		height, err := client.GetBlockHeight(ctx, s.cfg.Commitment)
		if err != nil {
			if ctx.Err() != nil {
				return 0, fmt.Errorf("confirm %s: %w", sig, ctx.Err())
			}
			return 0, fmt.Errorf("%w: block height: %w", ErrRPC, err)
		}
		if height > lastValid {
			return 0, fmt.Errorf("%w: block height %d passed %d", ErrConfirmationTimeout, height, lastValid)
		}

		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("confirm %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}
