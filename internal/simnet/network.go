// Package simnet runs an in-process Solana node and shielded-pool relayer
// backed by one shared ledger. It exists for local development and
// end-to-end tests; nothing here is consensus-accurate.
package simnet

import (
	"fmt"
	"sync"
	"time"

	klog "github.com/Klingon-tech/clawshield/internal/log"
	"github.com/Klingon-tech/clawshield/internal/rpc"
	"github.com/Klingon-tech/clawshield/pkg/crypto"
	"github.com/rs/zerolog"
)

// Config controls the simulated network.
type Config struct {
	SolanaAddr  string
	RelayerAddr string

	// Circuit is the circuit name the relayer accepts.
	Circuit      string
	FeeRateBps   uint64
	RentFee      uint64 // lamports, native withdrawals
	TokenRentFee uint64 // base units, token withdrawals

	Version    string
	FeatureSet uint32

	// SlotInterval advances the ledger on a timer. Zero advances one slot
	// per status poll instead, which keeps tests deterministic.
	SlotInterval time.Duration
}

// DefaultConfig returns a config bound to ephemeral localhost ports.
func DefaultConfig() Config {
	return Config{
		SolanaAddr:   "127.0.0.1:0",
		RelayerAddr:  "127.0.0.1:0",
		Circuit:      "circuit2",
		FeeRateBps:   35,
		RentFee:      1_000_000,
		TokenRentFee: 100_000,
		Version:      "1.18.22",
		FeatureSet:   3580551090,
	}
}

// Network is a running simulated network.
type Network struct {
	cfg        Config
	ledger     *Ledger
	relayerKey *crypto.PrivateKey
	logger     zerolog.Logger

	solana  *rpc.Server
	relayer *rpc.Server

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a network. Call Start to begin serving.
func New(cfg Config) (*Network, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("relayer key: %w", err)
	}
	n := &Network{
		cfg:        cfg,
		ledger:     NewLedger(),
		relayerKey: key,
		logger:     klog.Simnet,
		solana:     rpc.New(cfg.SolanaAddr, rpc.Options{}),
		relayer:    rpc.New(cfg.RelayerAddr, rpc.Options{}),
		stop:       make(chan struct{}),
	}
	n.registerSolana(n.solana)
	n.registerRelayer(n.relayer)
	return n, nil
}

// Start binds both listeners and, when configured, the slot timer.
func (n *Network) Start() error {
	if err := n.solana.Start(); err != nil {
		return fmt.Errorf("solana rpc: %w", err)
	}
	if err := n.relayer.Start(); err != nil {
		n.solana.Stop()
		return fmt.Errorf("relayer rpc: %w", err)
	}
	if n.cfg.SlotInterval > 0 {
		n.wg.Add(1)
		go n.produceSlots()
	}
	n.logger.Info().
		Str("solana", n.SolanaURL()).
		Str("relayer", n.RelayerURL()).
		Str("circuit", n.cfg.Circuit).
		Msg("Simulated network started")
	return nil
}

func (n *Network) produceSlots() {
	defer n.wg.Done()
	ticker := time.NewTicker(n.cfg.SlotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-n.stop:
			return
		case <-ticker.C:
			n.ledger.Tick()
		}
	}
}

// Stop shuts both servers down.
func (n *Network) Stop() error {
	close(n.stop)
	n.wg.Wait()
	err1 := n.solana.Stop()
	err2 := n.relayer.Stop()
	if err1 != nil {
		return err1
	}
	return err2
}

// Ledger exposes the shared state for inspection and fault injection.
func (n *Network) Ledger() *Ledger {
	return n.ledger
}

// SolanaURL returns the Solana JSON-RPC endpoint.
func (n *Network) SolanaURL() string {
	return n.solana.URL()
}

// RelayerURL returns the pool relayer endpoint.
func (n *Network) RelayerURL() string {
	return n.relayer.URL()
}
