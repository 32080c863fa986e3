// Package config handles application configuration. Unlike a full node
// (which splits config into consensus-critical genesis rules and per-node
// runtime settings), this indexer has no consensus rules of its own — it
// only configures where it listens, where it persists, and which upstream
// node it follows. Configuration is environment-variable only.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultMaxCount is MAX_COUNT's value when the environment variable is
// unset.
const DefaultMaxCount = 100

// Config holds this process's runtime configuration, sourced entirely from
// the environment.
type Config struct {
	// Port is the TCP port the downstream JSON-RPC server listens on.
	Port int
	// Listen is the bind address for the downstream JSON-RPC server.
	Listen string
	// DataPath is the root directory under which the column-family store
	// opens its database (at DataPath/data).
	DataPath string

	// BitcoindRPCURL is the upstream full node's JSON-RPC endpoint.
	BitcoindRPCURL string
	// BitcoindRPCUsername is the Basic-Auth username for the upstream
	// node, if any.
	BitcoindRPCUsername string
	// BitcoindRPCPassword is the Basic-Auth password for the upstream
	// node. A password with no username is rejected by internal/rpcclient.
	BitcoindRPCPassword string

	// MaxCount caps how many UTXOs listunspent returns in one call.
	MaxCount int
}

// Load reads configuration from the environment: OXTU_PORT,
// OXTU_LISTEN, DATABASE_PATH, BITCOIND_RPC_URL (required),
// BITCOIND_RPC_USERNAME, BITCOIND_RPC_PASSWORD, MAX_COUNT.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     envInt("OXTU_PORT", 8080),
		Listen:   envString("OXTU_LISTEN", "0.0.0.0"),
		DataPath: envString("DATABASE_PATH", "./data"),

		BitcoindRPCURL:      os.Getenv("BITCOIND_RPC_URL"),
		BitcoindRPCUsername: os.Getenv("BITCOIND_RPC_USERNAME"),
		BitcoindRPCPassword: os.Getenv("BITCOIND_RPC_PASSWORD"),

		MaxCount: envInt("MAX_COUNT", DefaultMaxCount),
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks for obvious operator mistakes. BITCOIND_RPC_URL is the
// one required setting — everything else has a usable default.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.BitcoindRPCURL == "" {
		return fmt.Errorf("BITCOIND_RPC_URL is required")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("OXTU_PORT must be in range [0, 65535]")
	}
	if cfg.MaxCount <= 0 {
		return fmt.Errorf("MAX_COUNT must be positive")
	}
	if cfg.BitcoindRPCUsername == "" && cfg.BitcoindRPCPassword != "" {
		return fmt.Errorf("BITCOIND_RPC_USERNAME is required when BITCOIND_RPC_PASSWORD is set")
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
