package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolGraph/internal/chain"
	"poolGraph/internal/config"
	"poolGraph/internal/model"
	"poolGraph/internal/storage"
)

func runReconcile(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReconcile(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := pipelineOptions{
		Store:       cfg.Store,
		ErrorsPath:  cfg.Errors,
		MetricsAddr: cfg.MetricsAddr,
	}
	if cfg.Store.NeedsRPC() {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
		opts.Chain = chainClient
	}

	pipe, err := openPipeline(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer pipe.Close()

	input, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer input.Close()

	logger.Info("reconcile start",
		zap.String("in", cfg.In),
		zap.String("store", cfg.Store.Kind),
		zap.String("cursor", cfg.Store.CursorName),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Bool("fetch_token_meta", cfg.Store.FetchTokenMeta),
		zap.Bool("fetch_gas", cfg.Store.FetchGas),
		zap.String("errors", cfg.Errors),
	)

	onBadLine := func(line int, err error) {
		logger.Warn("bad input line", zap.Int("line", line), zap.Error(err))
		pipe.writeDecodeError(model.DecodeError{Error: fmt.Sprintf("line %d: %v", line, err)})
	}
	err = storage.ReadLogBatches(input, cfg.BatchSize, onBadLine, func(batch []model.LogRecord) error {
		return pipe.processor.PutLogBatch(ctx, batch)
	})
	pipe.summary("reconcile complete")
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", cfg.In, err)
	}
	return nil
}
