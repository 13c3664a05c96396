// Package config handles gateway configuration.
//
// Settings are resolved in this order, later sources winning:
//   - built-in defaults for the selected network
//   - a .env file
//   - the key = value config file
//   - process environment
//   - command-line flags
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

// NetworkType identifies the Solana cluster the gateway serves.
type NetworkType string

const (
	Mainnet  NetworkType = "mainnet-beta"
	Devnet   NetworkType = "devnet"
	Testnet  NetworkType = "testnet"
	Localnet NetworkType = "localnet"
)

// Config holds the gateway runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Upstream Solana node
	Solana SolanaConfig

	// Shielded pool relayer
	Pool PoolConfig

	// HTTP API
	API APIConfig

	// Transaction submission
	Submit SubmitConfig

	// Logging
	Log LogConfig
}

// SolanaConfig holds Solana RPC settings.
type SolanaConfig struct {
	RPCURL     string        `conf:"solana.rpc"`
	Commitment string        `conf:"solana.commitment"`
	Timeout    time.Duration `conf:"solana.timeout"` // Per-call HTTP timeout.
}

// PoolConfig holds pool relayer settings.
type PoolConfig struct {
	RelayerURL  string `conf:"pool.relayer"`
	CircuitPath string `conf:"pool.circuit"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Addr        string   `conf:"api.addr"`
	Port        int      `conf:"api.port"`
	AllowedIPs  []string `conf:"api.allowed"`
	CORSOrigins []string `conf:"api.cors"` // Allowed CORS origins ("*" = all).
}

// SubmitConfig holds broadcast and confirmation settings.
type SubmitConfig struct {
	MaxRetries   uint          `conf:"submit.maxretries"`
	PollInterval time.Duration `conf:"submit.poll"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// ListenAddr returns the API host:port.
func (c *Config) ListenAddr() string {
	return c.API.Addr + ":" + strconv.Itoa(c.API.Port)
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.clawshield
//	macOS:   ~/Library/Application Support/ClawShield
//	Windows: %APPDATA%\ClawShield
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clawshield"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "ClawShield")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "ClawShield")
		}
		return filepath.Join(home, "AppData", "Roaming", "ClawShield")
	default:
		return filepath.Join(home, ".clawshield")
	}
}

// KeystoreDir returns the client keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.DataDir, string(c.Network), "keystore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "clawshield.conf")
}
