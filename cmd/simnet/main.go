// Command simnet serves an in-process Solana node and shielded-pool
// relayer for local development.
//
// Usage: go run ./cmd/simnet/ [--solana=127.0.0.1:8899] [--relayer=127.0.0.1:8900]
//
// Point clawshieldd at it with --network=localnet. Ctrl+C to stop.
package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Klingon-tech/clawshield/config"
	klog "github.com/Klingon-tech/clawshield/internal/log"
	"github.com/Klingon-tech/clawshield/internal/simnet"
)

func main() {
	cfg := simnet.DefaultConfig()
	cfg.SolanaAddr = hostPort(config.LocalnetRPC)
	cfg.RelayerAddr = hostPort(config.LocalnetRelayer)

	fs := flag.NewFlagSet("simnet", flag.ExitOnError)
	fs.StringVar(&cfg.SolanaAddr, "solana", cfg.SolanaAddr, "Solana JSON-RPC listen address")
	fs.StringVar(&cfg.RelayerAddr, "relayer", cfg.RelayerAddr, "Relayer JSON-RPC listen address")
	fs.StringVar(&cfg.Circuit, "circuit", cfg.Circuit, "Circuit name the relayer accepts")
	fs.Uint64Var(&cfg.FeeRateBps, "fee-bps", cfg.FeeRateBps, "Withdrawal fee rate in basis points")
	fs.DurationVar(&cfg.SlotInterval, "slot-interval", 400*time.Millisecond, "Slot time (0 = advance on status polls)")
	logLevel := fs.String("log-level", "info", "Log level")
	fs.Parse(os.Args[1:])

	if err := klog.Init(*logLevel, false, ""); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := klog.WithComponent("simnet")

	n, err := simnet.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create network")
	}
	if err := n.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start network")
	}

	logger.Info().
		Str("solana", n.SolanaURL()).
		Str("relayer", n.RelayerURL()).
		Str("circuit", cfg.Circuit).
		Dur("slot", cfg.SlotInterval).
		Msg("=== ClawShield simnet running ===")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := n.Stop(); err != nil {
		logger.Warn().Err(err).Msg("Shutdown")
	}
	logger.Info().Msg("Goodbye!")
}

// hostPort returns the host:port part of a localnet URL.
func hostPort(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}
