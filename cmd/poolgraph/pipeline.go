package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"poolGraph/internal/config"
	"poolGraph/internal/dex"
	"poolGraph/internal/indexer"
	"poolGraph/internal/model"
	"poolGraph/internal/reconcile"
	"poolGraph/internal/storage"
	"poolGraph/internal/storage/memory"
	"poolGraph/internal/storage/postgres"
)

// pipeline is the decode and reconcile chain shared by run --reconcile and
// reconcile.
type pipeline struct {
	decoder   *dex.Decoder
	engine    *reconcile.Engine
	processor *reconcile.Processor
	memStore  *memory.Store
	errors    *jsonlWriter
	closers   []func()
	logger    *zap.Logger
}

// chainReader backs the RPC-driven store options. *chain.Client satisfies it.
type chainReader interface {
	dex.ContractCaller
	reconcile.GasSource
}

type pipelineOptions struct {
	Store       config.StoreConfig
	ErrorsPath  string
	MetricsAddr string

	// Chain backs --fetch-token-meta and --fetch-gas. May be nil.
	Chain chainReader
}

func openPipeline(ctx context.Context, opts pipelineOptions, logger *zap.Logger) (*pipeline, error) {
	p := &pipeline{logger: logger}
	ok := false
	defer func() {
		if !ok {
			p.Close()
		}
	}()

	decoder, err := dex.NewDecoder()
	if err != nil {
		return nil, err
	}
	p.decoder = decoder

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if opts.MetricsAddr != "" {
		p.closers = append(p.closers, serveMetrics(opts.MetricsAddr, registry, logger))
	}

	entities, err := p.openStore(ctx, opts.Store)
	if err != nil {
		return nil, err
	}

	engineCfg := reconcile.Config{
		CursorName: opts.Store.CursorName,
		Metrics:    reconcile.NewMetrics(registry),
	}
	if opts.Chain != nil {
		if opts.Store.FetchTokenMeta {
			engineCfg.TokenMeta = dex.NewTokenMetaFetcher(opts.Chain, logger)
		}
		if opts.Store.FetchGas {
			engineCfg.Gas = opts.Chain
		}
	}
	engine := reconcile.NewEngine(engineCfg, entities, logger)
	p.engine = engine

	if opts.ErrorsPath != "" {
		p.errors, err = newJSONLWriter(opts.ErrorsPath, false)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, func() {
			if err := p.errors.Close(); err != nil {
				logger.Warn("close errors file", zap.Error(err))
			}
		})
	}

	p.processor = reconcile.NewProcessor(engine, decoder, reconcile.ProcessorConfig{
		Unsupported:   reconcile.UnsupportedIs(dex.ErrUnsupportedLog),
		OnDecodeError: p.writeDecodeError,
	}, logger)

	ok = true
	return p, nil
}

func (p *pipeline) openStore(ctx context.Context, cfg config.StoreConfig) (storage.EntityStore, error) {
	switch cfg.Kind {
	case config.StorePostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, store.Close)
		if cfg.Migrate {
			if err := store.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		p.logger.Info("entity store ready", zap.String("store", cfg.Kind), zap.String("dsn", redactDSN(cfg.PGDSN)))
		return store, nil
	case config.StoreMemory:
		p.memStore = memory.NewStore()
		p.logger.Info("entity store ready", zap.String("store", cfg.Kind))
		return p.memStore, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Kind)
	}
}

func (p *pipeline) writeDecodeError(record model.DecodeError) {
	if p.errors == nil {
		return
	}
	if err := p.errors.Write(record); err != nil {
		p.logger.Warn("write decode error", zap.Error(err))
	}
}

// progress decides how `run --reconcile` tracks where to resume. The
// checkpoint file only records what reached the sink, so it is turned off
// here: a memory store forgets everything on exit, and a persistent store
// resumes from its own cursor.
func (p *pipeline) progress(store config.StoreConfig) (checkpoint bool, resume indexer.ResumeSource) {
	if store.Kind == config.StoreMemory {
		return false, nil
	}
	if store.CursorName == "" {
		p.logger.Warn("no cursor name set, a restart replays the whole range")
		return false, nil
	}
	return false, p.engine
}

// summary logs processor totals and, for the memory store, entity counts.
func (p *pipeline) summary(msg string) {
	fields := p.processor.Stats().Fields()
	if p.memStore != nil {
		for kind, n := range p.memStore.Counts() {
			fields = append(fields, zap.Int(kind, n))
		}
	}
	p.logger.Info(msg, fields...)
}

// Close releases resources in reverse order of acquisition.
func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
	p.closers = nil
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		// key=value DSNs may carry a password anywhere.
		return "[redacted]"
	}
	return u.Redacted()
}
