package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "poolgraph",
		Short:        "Pool, position and swap entity reconciler for v4-style pool managers",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch logs from RPC into JSONL, or straight into the entity store with --reconcile",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "", "RPC URL")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	runCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	runCmd.Flags().StringSlice("address", nil, "emitter addresses: pool manager, position manager, tracked tokens (comma-separated)")
	runCmd.Flags().StringSlice("topic0", nil, "topic0 filter (comma-separated), defaults to every decodable event")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	runCmd.Flags().String("out", "./data/logs.jsonl", "output JSONL path")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	runCmd.Flags().Bool("reconcile", false, "apply logs to the entity store instead of writing JSONL")
	addStoreFlags(runCmd)

	root.AddCommand(runCmd)

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Replay a raw log JSONL file into the entity store",
		RunE:  runReconcile,
	}

	reconcileCmd.Flags().String("in", "", "input raw logs JSONL")
	reconcileCmd.Flags().Int("batch-size", 1000, "records per processing batch")
	reconcileCmd.Flags().String("rpc", "", "RPC URL, needed only with --fetch-token-meta")
	reconcileCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	addStoreFlags(reconcileCmd)

	root.AddCommand(reconcileCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("store", "memory", "entity store (memory, postgres)")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for --store postgres")
	cmd.Flags().Bool("migrate", true, "apply embedded schema migrations on start")
	cmd.Flags().String("cursor-name", "main", "name of the stored progress cursor, empty disables skipping")
	cmd.Flags().Bool("fetch-token-meta", false, "read symbol, name and decimals over RPC for new tokens")
	cmd.Flags().Bool("fetch-gas", false, "fill swap gas used and gas price from transaction receipts")
	cmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9102)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
