package shield

import (
	"context"
	"fmt"
)

// Health is the result of a connectivity probe.
type Health struct {
	Healthy         bool
	Network         string
	SolanaVersion   string
	ProtocolVersion string
	Err             error
}

// Health checks that the Solana node answers. It never fails; problems are
// reported in the result.
func (s *Service) Health(ctx context.Context) Health {
	h := Health{Network: s.cfg.Network, ProtocolVersion: ProtocolVersion}
	v, err := s.rpc.Get().GetVersion(ctx)
	if err != nil {
		h.Err = fmt.Errorf("%w: %w", ErrRPC, err)
		return h
	}
	h.Healthy = true
	h.SolanaVersion = v.SolanaCore
	return h
}
