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
	"poolGraph/internal/dex"
	"poolGraph/internal/indexer"
	"poolGraph/internal/storage"
)

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	addresses, err := indexer.ParseAddresses(cfg.Addresses)
	if err != nil {
		return err
	}
	if len(addresses) == 0 {
		return fmt.Errorf("address list is required")
	}

	decoder, err := dex.NewDecoder()
	if err != nil {
		return err
	}
	topic0, err := indexer.ParseTopic0(cfg.Topic0, decoder.Topic0s())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	var sink storage.Storage
	var pipe *pipeline
	var resume indexer.ResumeSource
	checkpointEnabled := cfg.CheckpointEnabled
	if cfg.Reconcile {
		pipe, err = openPipeline(ctx, pipelineOptions{
			Store:       cfg.Store,
			ErrorsPath:  cfg.Errors,
			MetricsAddr: cfg.MetricsAddr,
			Chain:       chainClient,
		}, logger)
		if err != nil {
			return err
		}
		defer pipe.Close()
		sink = pipe.processor
		checkpointEnabled, resume = pipe.progress(cfg.Store)
	} else {
		sink = storage.NewJsonlStorage(cfg.Out)
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		Addresses:         addresses,
		Topic0:            topic0,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: checkpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		Resume:            resume,
	}, chainClient, sink, logger)

	logger.Info("indexer start",
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("addresses", len(addresses)),
		zap.Int("topic0", len(topic0)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Bool("reconcile", cfg.Reconcile),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", checkpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	err = runner.Run(ctx)
	if pipe != nil {
		pipe.summary("reconcile summary")
	}
	return err
}
