package config

import "time"

// Default Solana endpoints per cluster.
const (
	MainnetRPC  = "https://api.mainnet-beta.solana.com"
	DevnetRPC   = "https://api.devnet.solana.com"
	TestnetRPC  = "https://api.testnet.solana.com"
	LocalnetRPC = "http://127.0.0.1:8899"

	// LocalnetRelayer is where cmd/simnet serves the pool relayer.
	LocalnetRelayer = "http://127.0.0.1:8900"
)

// DefaultMainnet returns the default configuration for mainnet. The pool
// relayer has no public default and must be configured.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Solana: SolanaConfig{
			RPCURL:     MainnetRPC,
			Commitment: "confirmed",
			Timeout:    30 * time.Second,
		},
		Pool: PoolConfig{
			CircuitPath: "public/circuit2",
		},
		API: APIConfig{
			Addr:       "127.0.0.1",
			Port:       3000,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Submit: SubmitConfig{
			MaxRetries:   3,
			PollInterval: 500 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultDevnet returns the default configuration for devnet.
func DefaultDevnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Devnet
	cfg.Solana.RPCURL = DevnetRPC
	return cfg
}

// DefaultTestnet returns the default configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.Solana.RPCURL = TestnetRPC
	return cfg
}

// DefaultLocalnet returns a configuration that talks to cmd/simnet.
func DefaultLocalnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Localnet
	cfg.Solana.RPCURL = LocalnetRPC
	cfg.Pool.RelayerURL = LocalnetRelayer
	cfg.Submit.PollInterval = 100 * time.Millisecond
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Devnet:
		return DefaultDevnet()
	case Testnet:
		return DefaultTestnet()
	case Localnet:
		return DefaultLocalnet()
	default:
		return DefaultMainnet()
	}
}
