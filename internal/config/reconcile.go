package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// ReconcileConfig holds configuration for replaying a raw log file into the entity store.
type ReconcileConfig struct {
	RPCURL      string
	In          string
	Errors      string
	BatchSize   int
	LogLevel    string
	MetricsAddr string
	Store       StoreConfig
}

// LoadReconcile merges config file, environment variables, and flags into ReconcileConfig.
func LoadReconcile(cfgFile string, flags *pflag.FlagSet) (ReconcileConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"errors":      "./data/decode_errors.jsonl",
		"batch-size":  1000,
		"log-level":   "info",
		"store":       StoreMemory,
		"migrate":     true,
		"cursor-name": "main",
	})
	if err != nil {
		return ReconcileConfig{}, err
	}

	cfg := ReconcileConfig{
		RPCURL:      v.GetString("rpc"),
		In:          v.GetString("in"),
		Errors:      v.GetString("errors"),
		BatchSize:   v.GetInt("batch-size"),
		LogLevel:    v.GetString("log-level"),
		MetricsAddr: v.GetString("metrics-addr"),
		Store:       loadStore(v),
	}

	if cfg.In == "" {
		return ReconcileConfig{}, fmt.Errorf("input path is required")
	}
	if cfg.BatchSize <= 0 {
		return ReconcileConfig{}, fmt.Errorf("batch-size must be positive")
	}
	if cfg.Store.NeedsRPC() && cfg.RPCURL == "" {
		return ReconcileConfig{}, fmt.Errorf("rpc url is required when fetch-token-meta or fetch-gas is set")
	}
	if err := cfg.Store.Validate(); err != nil {
		return ReconcileConfig{}, err
	}
	return cfg, nil
}
