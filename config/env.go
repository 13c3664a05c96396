package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// envKeys maps environment variables to config keys.
var envKeys = map[string]string{
	"SOLANA_RPC_URL":          "solana.rpc",
	"POOL_RELAYER_URL":        "pool.relayer",
	"CLAWSHIELD_CIRCUIT_PATH": "pool.circuit",
	"CLAWSHIELD_LOG_LEVEL":    "log.level",
}

// LoadDotEnv reads a .env file. A missing file yields an empty map.
func LoadDotEnv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return values, nil
}

// ApplyEnv applies the recognised variables from env to cfg. Unrelated
// variables are ignored.
func ApplyEnv(cfg *Config, env map[string]string) error {
	for name, key := range envKeys {
		value, ok := env[name]
		if !ok || value == "" {
			continue
		}
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("env %s: %w", name, err)
		}
	}
	return nil
}

// processEnv returns the recognised variables from the process environment.
func processEnv() map[string]string {
	env := make(map[string]string, len(envKeys))
	for name := range envKeys {
		if v, ok := os.LookupEnv(name); ok {
			env[name] = v
		}
	}
	return env
}
