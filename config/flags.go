package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Version is the gateway release.
const Version = "0.1.0"

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string
	EnvFile string

	// Solana
	RPCURL     string
	Commitment string

	// Pool
	Relayer string
	Circuit string

	// API
	APIAddr    string
	APIPort    int
	APIAllowed string
	APICORS    string

	// Submission
	MaxRetries int
	Poll       time.Duration

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetLogJSON bool
}

// ParseFlags parses command-line arguments (without the program name).
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("clawshieldd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.Network, "network", "", "Solana cluster (mainnet-beta, devnet, testnet, localnet)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")
	fs.StringVar(&f.EnvFile, "env-file", ".env", "Dotenv file path")

	// Solana
	fs.StringVar(&f.RPCURL, "rpc-url", "", "Solana JSON-RPC URL")
	fs.StringVar(&f.Commitment, "commitment", "", "Commitment level (processed, confirmed, finalized)")

	// Pool
	fs.StringVar(&f.Relayer, "relayer", "", "Shielded pool relayer URL")
	fs.StringVar(&f.Circuit, "circuit", "", "Circuit path")

	// API
	fs.StringVar(&f.APIAddr, "api-addr", "", "HTTP listen address")
	fs.IntVar(&f.APIPort, "api-port", 0, "HTTP listen port")
	fs.StringVar(&f.APIAllowed, "api-allowed", "", "Allowed IPs for the API (comma-separated)")
	fs.StringVar(&f.APICORS, "api-cors", "", "Allowed CORS origins (comma-separated)")

	// Submission
	fs.IntVar(&f.MaxRetries, "max-retries", -1, "sendTransaction retry count")
	fs.DurationVar(&f.Poll, "poll", 0, "Confirmation poll interval")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			f.Help = true
			return f, nil
		}
		return nil, err
	}
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.Args = fs.Args()

	// A positional argument stops the parser; flags after it would be
	// silently dropped.
	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("flag %q was not parsed (positional argument stopped parsing)", arg)
		}
	}
	return f, nil
}

// ApplyFlags applies command-line flags to cfg.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Network != "" {
		cfg.Network = NetworkType(f.Network)
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// Solana
	if f.RPCURL != "" {
		cfg.Solana.RPCURL = f.RPCURL
	}
	if f.Commitment != "" {
		cfg.Solana.Commitment = strings.ToLower(f.Commitment)
	}

	// Pool
	if f.Relayer != "" {
		cfg.Pool.RelayerURL = f.Relayer
	}
	if f.Circuit != "" {
		cfg.Pool.CircuitPath = f.Circuit
	}

	// API
	if f.APIAddr != "" {
		cfg.API.Addr = f.APIAddr
	}
	if f.APIPort != 0 {
		cfg.API.Port = f.APIPort
	}
	if f.APIAllowed != "" {
		cfg.API.AllowedIPs = parseStringList(f.APIAllowed)
	}
	if f.APICORS != "" {
		cfg.API.CORSOrigins = parseStringList(f.APICORS)
	}

	// Submission
	if f.MaxRetries >= 0 {
		cfg.Submit.MaxRetries = uint(f.MaxRetries)
	}
	if f.Poll != 0 {
		cfg.Submit.PollInterval = f.Poll
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// PrintUsage writes the daemon help text.
func PrintUsage(w io.Writer) {
	usage := `ClawShield - stateless HTTP gateway to the Solana shielded pool

Usage:
  clawshieldd [options]
  clawshieldd --help

Commands:
  --help, -h      Show this help message
  --version, -v   Show version information

Core Options:
  --network       Solana cluster: mainnet-beta (default), devnet, testnet, localnet
  --datadir       Data directory (default: ~/.clawshield)
  --config, -c    Config file path (default: <datadir>/clawshield.conf)
  --env-file      Dotenv file (default: .env)

Solana Options:
  --rpc-url       Solana JSON-RPC URL (env: SOLANA_RPC_URL)
  --commitment    processed, confirmed (default) or finalized

Pool Options:
  --relayer       Pool relayer URL (env: POOL_RELAYER_URL)
  --circuit       Circuit path (env: CLAWSHIELD_CIRCUIT_PATH)

API Options:
  --api-addr      HTTP listen address (default: 127.0.0.1)
  --api-port      HTTP listen port (default: 3000)
  --api-allowed   Allowed client IPs/CIDRs (comma-separated)
  --api-cors      Allowed CORS origins (comma-separated)

Submission Options:
  --max-retries   sendTransaction retry count (default: 3)
  --poll          Confirmation poll interval (default: 500ms)

Logging Options:
  --log-level     Log level: debug, info, warn, error (default: info)
  --log-file      Log file path (default: stdout)
  --log-json      Output logs as JSON

Examples:
  # Serve mainnet through a relayer
  clawshieldd --relayer=https://relayer.example

  # Serve a local simnet
  clawshieldd --network=localnet
`
	fmt.Fprint(w, usage)
}

// Load resolves the configuration from defaults, the .env file, the config
// file, the process environment and args, in that order. Help and version
// requests are returned in Flags without loading anything.
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		return nil, nil, err
	}
	if flags.Help || flags.Version {
		return nil, flags, nil
	}

	// The network picks the defaults, so resolve it first.
	cfg := Default(NetworkType(strings.ToLower(flags.Network)))
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	dotenv, err := LoadDotEnv(flags.EnvFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading env file: %w", err)
	}
	if err := ApplyEnv(cfg, dotenv); err != nil {
		return nil, nil, fmt.Errorf("applying env file: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	if err := ApplyEnv(cfg, processEnv()); err != nil {
		return nil, nil, fmt.Errorf("applying environment: %w", err)
	}

	// Flags have the highest precedence.
	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory and a default config file if
// they don't already exist. Safe to call on every start.
func EnsureDataDirs(cfg *Config) error {
	for _, dir := range []string{cfg.DataDir, cfg.LogsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}
