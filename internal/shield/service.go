// Package shield implements the gateway operations: balance queries,
// unsigned deposit construction, withdrawals, submission of signed
// transactions and the health probe.
//
// Every operation is stateless. The note key is derived per request by the
// caller and handed in; scan state lives in a fresh storage.Memory that is
// dropped when the call returns.
package shield

import (
	"context"
	"fmt"
	"time"

	klog "github.com/Klingon-tech/clawshield/internal/log"
	"github.com/Klingon-tech/clawshield/internal/pool"
	"github.com/Klingon-tech/clawshield/internal/rpcclient"
	"github.com/Klingon-tech/clawshield/internal/shieldkey"
	"github.com/Klingon-tech/clawshield/internal/storage"
	"github.com/Klingon-tech/clawshield/pkg/types"
	"github.com/rs/zerolog"
)

// ProtocolVersion is reported by the health probe.
const ProtocolVersion = "1.0"

// Config holds the service settings.
type Config struct {
	Network      string
	CircuitPath  string
	Commitment   string
	MaxRetries   uint
	PollInterval time.Duration
}

// DefaultConfig returns mainnet settings.
func DefaultConfig() Config {
	return Config{
		Network:      "mainnet-beta",
		CircuitPath:  "public/circuit2",
		Commitment:   rpcclient.CommitmentConfirmed,
		MaxRetries:   3,
		PollInterval: 500 * time.Millisecond,
	}
}

// Service runs the gateway operations against a pool SDK and a Solana node.
type Service struct {
	sdk     pool.SDK
	hashers *pool.HasherProvider
	rpc     *rpcclient.Provider
	cfg     Config
	logger  zerolog.Logger
}

// New creates a service.
func New(sdk pool.SDK, hashers *pool.HasherProvider, rpc *rpcclient.Provider, cfg Config) *Service {
	if cfg.Commitment == "" {
		cfg.Commitment = rpcclient.CommitmentConfirmed
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	return &Service{
		sdk:     sdk,
		hashers: hashers,
		rpc:     rpc,
		cfg:     cfg,
		logger:  klog.Shield,
	}
}

// session assembles the per-request SDK context with a fresh store.
func (s *Service) session(ctx context.Context, owner types.PublicKey, key *shieldkey.Key) (pool.Session, error) {
	if owner.IsZero() {
		return pool.Session{}, fmt.Errorf("%w: owner public key required", ErrValidation)
	}
	if key == nil {
		return pool.Session{}, fmt.Errorf("%w: signature required", ErrValidation)
	}
	h, err := s.hashers.Get(ctx)
	if err != nil {
		return pool.Session{}, sdkError(err)
	}
	return pool.Session{
		Owner:       owner,
		Key:         key,
		Storage:     storage.NewMemory(),
		Hasher:      h,
		KeyBasePath: s.cfg.CircuitPath,
	}, nil
}
