package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "POOLGRAPH"

// Store kinds accepted by the store key.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds configuration for the run command, loaded from flags, env, or config file.
type Config struct {
	RPCURL            string
	FromBlock         uint64
	ToBlock           uint64
	Addresses         []string
	Topic0            []string
	BatchSize         uint64
	Out               string
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	LogLevel          string

	// Reconcile applies fetched logs to the entity store instead of writing JSONL.
	Reconcile   bool
	Errors      string
	MetricsAddr string
	Store       StoreConfig
}

// StoreConfig selects and configures the entity store.
type StoreConfig struct {
	Kind           string
	PGDSN          string
	Migrate        bool
	CursorName     string
	FetchTokenMeta bool
	FetchGas       bool
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"batch-size":         uint64(2000),
		"out":                "./data/logs.jsonl",
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-enabled": true,
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
		"log-level":          "info",
		"errors":             "./data/decode_errors.jsonl",
		"store":              StoreMemory,
		"migrate":            true,
		"cursor-name":        "main",
	})
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		Addresses:         getStringSlice(v, "address"),
		Topic0:            getStringSlice(v, "topic0"),
		BatchSize:         v.GetUint64("batch-size"),
		Out:               v.GetString("out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
		Reconcile:         v.GetBool("reconcile"),
		Errors:            v.GetString("errors"),
		MetricsAddr:       v.GetString("metrics-addr"),
		Store:             loadStore(v),
	}

	if cfg.Reconcile {
		if err := cfg.Store.Validate(); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// NeedsRPC reports whether the store options make RPC calls while reconciling.
func (s StoreConfig) NeedsRPC() bool {
	return s.FetchTokenMeta || s.FetchGas
}

// Validate checks the store selection.
func (s StoreConfig) Validate() error {
	switch s.Kind {
	case StoreMemory:
		return nil
	case StorePostgres:
		if s.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required for store %q", s.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", s.Kind, StoreMemory, StorePostgres)
	}
}

func loadStore(v *viper.Viper) StoreConfig {
	return StoreConfig{
		Kind:           strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		PGDSN:          v.GetString("pg-dsn"),
		Migrate:        v.GetBool("migrate"),
		CursorName:     v.GetString("cursor-name"),
		FetchTokenMeta: v.GetBool("fetch-token-meta"),
		FetchGas:       v.GetBool("fetch-gas"),
	}
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
