// Package node assembles the gateway process from its configuration so it
// can be embedded in any binary.
package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Klingon-tech/clawshield/config"
	"github.com/Klingon-tech/clawshield/internal/api"
	klog "github.com/Klingon-tech/clawshield/internal/log"
	"github.com/Klingon-tech/clawshield/internal/pool"
	"github.com/Klingon-tech/clawshield/internal/rpcclient"
	"github.com/Klingon-tech/clawshield/internal/shield"
	"github.com/rs/zerolog"
)

// Node is a fully-initialized gateway.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	solana  *rpcclient.Provider
	hashers *pool.HasherProvider
	service *shield.Service
	server  *api.Server

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and wires a Node. Nothing listens until Start.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Init logger ──────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "clawshield.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.WithComponent("node")

	logger.Info().
		Str("network", string(cfg.Network)).
		Str("solana", cfg.Solana.RPCURL).
		Str("relayer", cfg.Pool.RelayerURL).
		Str("commitment", cfg.Solana.Commitment).
		Msg("Starting ClawShield gateway")

	// ── 2. Upstream clients ─────────────────────────────────────────
	solana := rpcclient.NewProvider(cfg.Solana.RPCURL, cfg.Solana.Timeout)
	relayer := rpcclient.NewWithTimeout(cfg.Pool.RelayerURL, cfg.Solana.Timeout)

	// ── 3. Pool SDK ─────────────────────────────────────────────────
	circuit := expandHome(cfg.Pool.CircuitPath)
	hashers := pool.NewHasherProvider(circuit)
	sdk := pool.NewClient(relayer)

	// ── 4. Gateway service ──────────────────────────────────────────
	service := shield.New(sdk, hashers, solana, shield.Config{
		Network:      string(cfg.Network),
		CircuitPath:  circuit,
		Commitment:   cfg.Solana.Commitment,
		MaxRetries:   cfg.Submit.MaxRetries,
		PollInterval: cfg.Submit.PollInterval,
	})

	// ── 5. HTTP API ─────────────────────────────────────────────────
	server := api.New(cfg.ListenAddr(), service, api.Options{
		AllowedIPs:  cfg.API.AllowedIPs,
		CORSOrigins: cfg.API.CORSOrigins,
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &Node{
		cfg:     cfg,
		logger:  logger,
		solana:  solana,
		hashers: hashers,
		service: service,
		server:  server,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start binds the HTTP listener and warms the hasher in the background.
func (n *Node) Start() error {
	if err := n.server.Start(); err != nil {
		return err
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.warmUp()
	}()

	n.logger.Info().
		Str("api", n.server.URL()).
		Msg("Gateway ready")
	return nil
}

// warmUp initializes the hasher and probes the Solana node once so
// configuration problems show up in the log at startup rather than on
// the first request.
func (n *Node) warmUp() {
	ctx, cancel := context.WithTimeout(n.ctx, 30*time.Second)
	defer cancel()

	if h, err := n.hashers.Get(ctx); err != nil {
		n.logger.Warn().Err(err).Msg("Hasher init failed")
	} else {
		n.logger.Debug().Str("circuit", h.Circuit()).Msg("Hasher ready")
	}

	health := n.service.Health(ctx)
	if !health.Healthy {
		n.logger.Warn().Err(health.Err).Msg("Solana node unreachable")
		return
	}
	n.logger.Info().
		Str("version", health.SolanaVersion).
		Msg("Connected to Solana node")
}

// Stop shuts the HTTP server down and waits for background work.
func (n *Node) Stop() {
	n.cancel()
	n.wg.Wait()

	if err := n.server.Stop(); err != nil {
		n.logger.Warn().Err(err).Msg("API shutdown")
	}
	n.logger.Info().Msg("Goodbye!")
	klog.Close()
}

// APIAddr returns the address the HTTP server is listening on.
func (n *Node) APIAddr() string {
	return n.server.Addr()
}

// APIURL returns the base URL of the HTTP server.
func (n *Node) APIURL() string {
	return n.server.URL()
}

// Service returns the gateway service.
func (n *Node) Service() *shield.Service {
	return n.service
}
