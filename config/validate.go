package config

import (
	"fmt"
	"net/url"

	klog "github.com/Klingon-tech/clawshield/internal/log"
)

// Validate checks the configuration for operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	switch cfg.Network {
	case Mainnet, Devnet, Testnet, Localnet:
	default:
		return fmt.Errorf("network must be one of %q, %q, %q or %q", Mainnet, Devnet, Testnet, Localnet)
	}

	if err := validateURL(cfg.Solana.RPCURL, "solana.rpc"); err != nil {
		return err
	}
	switch cfg.Solana.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("solana.commitment must be processed, confirmed or finalized")
	}
	if cfg.Solana.Timeout <= 0 {
		return fmt.Errorf("solana.timeout must be positive")
	}

	if err := validateURL(cfg.Pool.RelayerURL, "pool.relayer"); err != nil {
		return err
	}
	if cfg.Pool.CircuitPath == "" {
		return fmt.Errorf("pool.circuit is required")
	}

	if cfg.API.Port < 0 || cfg.API.Port > 65535 {
		return fmt.Errorf("api.port must be in range [0, 65535]")
	}
	if cfg.Submit.PollInterval <= 0 {
		return fmt.Errorf("submit.poll must be positive")
	}
	if !klog.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not a valid level", cfg.Log.Level)
	}
	return nil
}

func validateURL(raw, field string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL", field)
	}
	return nil
}
