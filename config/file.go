package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile reads a key = value config file. Lines starting with # are
// comments. A missing file yields an empty map.
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}
		values[strings.TrimSpace(key)] = unquote(strings.TrimSpace(value))
	}

	return values, scanner.Err()
}

func unquote(value string) string {
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}

// ApplyFileConfig applies config file values to cfg.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets one setting by its conf key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	// Solana
	case "solana.rpc":
		cfg.Solana.RPCURL = value
	case "solana.commitment":
		cfg.Solana.Commitment = strings.ToLower(value)
	case "solana.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Solana.Timeout = d

	// Pool
	case "pool.relayer":
		cfg.Pool.RelayerURL = value
	case "pool.circuit":
		cfg.Pool.CircuitPath = value

	// API
	case "api.addr":
		cfg.API.Addr = value
	case "api.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.API.Port = port
	case "api.allowed":
		cfg.API.AllowedIPs = parseStringList(value)
	case "api.cors":
		cfg.API.CORSOrigins = parseStringList(value)

	// Submit
	case "submit.maxretries":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		cfg.Submit.MaxRetries = uint(n)
	case "submit.poll":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Submit.PollInterval = d

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a commented default config file.
func WriteDefaultConfig(path string, network NetworkType) error {
	cfg := Default(network)
	relayer := "# pool.relayer = https://relayer.example"
	if cfg.Pool.RelayerURL != "" {
		relayer = "pool.relayer = " + cfg.Pool.RelayerURL
	}

	content := `# ClawShield Gateway Configuration
#
# Environment variables SOLANA_RPC_URL, POOL_RELAYER_URL and
# CLAWSHIELD_CIRCUIT_PATH override the values below. Command-line flags
# override everything.

# Network: mainnet-beta, devnet, testnet or localnet
network = ` + string(network) + `

# ============================================================================
# Solana
# ============================================================================

solana.rpc = ` + cfg.Solana.RPCURL + `
solana.commitment = ` + cfg.Solana.Commitment + `
solana.timeout = ` + cfg.Solana.Timeout.String() + `

# ============================================================================
# Shielded Pool
# ============================================================================

` + relayer + `
pool.circuit = ` + cfg.Pool.CircuitPath + `

# ============================================================================
# HTTP API
# ============================================================================

api.addr = ` + cfg.API.Addr + `
api.port = ` + strconv.Itoa(cfg.API.Port) + `
api.allowed = 127.0.0.1
# CORS allowed origins ("*" for all)
# api.cors = http://localhost:3000

# ============================================================================
# Submission
# ============================================================================

submit.maxretries = ` + strconv.FormatUint(uint64(cfg.Submit.MaxRetries), 10) + `
submit.poll = ` + cfg.Submit.PollInterval.String() + `

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
