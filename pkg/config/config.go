package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration, read once from the environment at
// startup. Immutable after Load; no locking required.
type Config struct {
	Host string
	Port int

	RPCURL     string
	ChainID    uint64
	PrivateKey string // raw hex, 0x prefix optional
	FactoryAddress string

	APIKeys []string

	RateLimitWindow time.Duration
	RateLimitMax    int

	LogLevel string
	LogJSON  bool

	// Receipt waiting is bounded by BlockTime * ReceiptTimeoutBlocks.
	BlockTime            time.Duration
	ReceiptTimeoutBlocks int

	LedgerSize    int
	ShutdownGrace time.Duration
}

// ValidationError carries every missing or malformed field found during
// Load, so operators see the whole batch in one run.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration:\n  - " + strings.Join(e.Problems, "\n  - ")
}

// Load reads the full configuration from the environment. All problems are
// collected and returned together; a nil error means the config is usable.
// RPC reachability is deliberately not checked here: the health probe
// reports connectivity, and the gateway dials lazily.
func Load() (*Config, error) {
	var problems []string

	cfg := &Config{
		Host:     envOr("GATEWAY_HOST", "0.0.0.0"),
		RPCURL:   os.Getenv("RPC_URL"),
		LogLevel: envOr("LOG_LEVEL", "info"),
	}

	cfg.Port = envIntOr("GATEWAY_PORT", 3000, &problems)
	cfg.LogJSON = envBoolOr("LOG_JSON", true, &problems)

	if cfg.RPCURL == "" {
		problems = append(problems, "RPC_URL is required")
	}

	if raw := os.Getenv("CHAIN_ID"); raw == "" {
		problems = append(problems, "CHAIN_ID is required")
	} else if id, err := strconv.ParseUint(raw, 10, 64); err != nil {
		problems = append(problems, fmt.Sprintf("CHAIN_ID %q is not a number", raw))
	} else {
		cfg.ChainID = id
	}

	cfg.PrivateKey = strings.TrimPrefix(os.Getenv("OPERATOR_PRIVATE_KEY"), "0x")
	if cfg.PrivateKey == "" {
		problems = append(problems, "OPERATOR_PRIVATE_KEY is required")
	}

	cfg.FactoryAddress = os.Getenv("FACTORY_ADDRESS")
	if cfg.FactoryAddress == "" {
		problems = append(problems, "FACTORY_ADDRESS is required")
	}

	for _, key := range strings.Split(os.Getenv("API_KEYS"), ",") {
		if key = strings.TrimSpace(key); key != "" {
			cfg.APIKeys = append(cfg.APIKeys, key)
		}
	}
	if len(cfg.APIKeys) == 0 {
		problems = append(problems, "API_KEYS must contain at least one key")
	}

	cfg.RateLimitWindow = time.Duration(envIntOr("RATE_LIMIT_WINDOW_MS", 60000, &problems)) * time.Millisecond
	cfg.RateLimitMax = envIntOr("RATE_LIMIT_MAX_REQUESTS", 100, &problems)
	cfg.BlockTime = time.Duration(envIntOr("GATEWAY_BLOCK_TIME_MS", 15000, &problems)) * time.Millisecond
	cfg.ReceiptTimeoutBlocks = envIntOr("GATEWAY_RECEIPT_TIMEOUT_BLOCKS", 8, &problems)
	cfg.LedgerSize = envIntOr("OPERATION_LEDGER_SIZE", 1000, &problems)
	cfg.ShutdownGrace = time.Duration(envIntOr("SHUTDOWN_GRACE_MS", 10000, &problems)) * time.Millisecond

	if cfg.RateLimitWindow <= 0 {
		problems = append(problems, "RATE_LIMIT_WINDOW_MS must be positive")
	}
	if cfg.RateLimitMax <= 0 {
		problems = append(problems, "RATE_LIMIT_MAX_REQUESTS must be positive")
	}
	if cfg.LedgerSize <= 0 {
		problems = append(problems, "OPERATION_LEDGER_SIZE must be positive")
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return cfg, nil
}

// ListenAddr is the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ReceiptTimeout is the deadline for waiting on a transaction receipt.
func (c *Config) ReceiptTimeout() time.Duration {
	return c.BlockTime * time.Duration(c.ReceiptTimeoutBlocks)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int, problems *[]string) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s %q is not a number", key, raw))
		return def
	}
	return v
}

func envBoolOr(key string, def bool, problems *[]string) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s %q is not a boolean", key, raw))
		return def
	}
	return v
}
