package indexer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"poolGraph/internal/model"
	"poolGraph/internal/storage"
)

// LogSource is the chain access the runner needs. *chain.Client satisfies it.
type LogSource interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// ResumeSource reports where a sink with its own progress record wants the
// runner to start. *reconcile.Engine satisfies it.
type ResumeSource interface {
	ResumeBlock(ctx context.Context) (block uint64, ok bool, err error)
}

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	FromBlock         uint64
	ToBlock           uint64
	Addresses         []common.Address
	Topic0            []common.Hash
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration

	// Resume, when set, moves the start up to the sink's own progress. Use it
	// instead of the checkpoint file when the sink persists what it applied.
	Resume ResumeSource
}

// Runner pulls logs range by range and hands each batch to storage sorted
// by (block, log index).
type Runner struct {
	cfg        RunConfig
	chain      LogSource
	storage    storage.Storage
	logger     *zap.Logger
	retry      retryPolicy
	seen       map[string]struct{}
	checkpoint *CheckpointStore
	now        func() time.Time
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, source LogSource, sink storage.Storage, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		chain:      source,
		storage:    sink,
		logger:     logger,
		retry:      newRetryPolicy(cfg.MaxRetries, cfg.RetryBackoff),
		seen:       make(map[string]struct{}),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
		now:        time.Now,
	}
}

// Run syncs from the configured start (or the checkpoint) up to ToBlock, or
// the chain head when ToBlock is zero.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.Addresses) == 0 {
		return fmt.Errorf("at least one address is required")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()

	from, to, err := r.window(ctx, chainIDValue)
	if err != nil {
		return err
	}
	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.syncRange(ctx, chainIDValue, blockRange); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) window(ctx context.Context, chainID uint64) (from, to uint64, err error) {
	from, to = r.cfg.FromBlock, r.cfg.ToBlock
	if to == 0 {
		if err := r.retry.do(ctx, func(ctx context.Context) error {
			var err error
			to, err = r.chain.LatestBlockNumber(ctx)
			return err
		}); err != nil {
			return 0, 0, fmt.Errorf("get latest block: %w", err)
		}
	}

	if r.cfg.Resume != nil {
		block, ok, err := r.cfg.Resume.ResumeBlock(ctx)
		if err != nil {
			return 0, 0, fmt.Errorf("load resume point: %w", err)
		}
		if ok && block > from {
			from = block
			r.logger.Info("resume from sink progress", zap.Uint64("from", from))
		}
	}

	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return 0, 0, err
	}
	if ok {
		if cp.ChainID != 0 && cp.ChainID != chainID {
			return 0, 0, fmt.Errorf("checkpoint belongs to chain %d, connected to %d", cp.ChainID, chainID)
		}
		if cp.LastProcessedBlock >= from {
			from = cp.LastProcessedBlock + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
		}
	}
	return from, to, nil
}

func (r *Runner) syncRange(ctx context.Context, chainID uint64, blockRange BlockRange) error {
	r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

	var logs []types.Log
	err := r.retry.do(ctx, func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, blockRange.From, blockRange.To, r.cfg.Addresses, r.cfg.Topic0)
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("filter logs: %w", err)
	}

	ingestedAt := r.now()
	timestamps := make(map[uint64]uint64)
	records := make([]model.LogRecord, 0, len(logs))
	for _, log := range logs {
		if r.isDuplicate(log) {
			continue
		}
		ts, ok := timestamps[log.BlockNumber]
		if !ok {
			if ts, err = r.blockTimestamp(ctx, log.BlockNumber); err != nil {
				return fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}
			timestamps[log.BlockNumber] = ts
		}
		records = append(records, toLogRecord(chainID, log, ts, ingestedAt))
	}
	model.SortLogRecords(records)

	if err := r.storage.PutLogBatch(ctx, records); err != nil {
		return fmt.Errorf("store logs: %w", err)
	}
	if err := r.checkpoint.Save(chainID, blockRange.To); err != nil {
		return err
	}

	r.logger.Info("batch complete", zap.Int("logs", len(records)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	return nil
}

func (r *Runner) blockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := r.retry.do(ctx, func(ctx context.Context) error {
		var err error
		ts, err = r.chain.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}

// isDuplicate drops a log already delivered under the same block hash and
// index. A removal notice differs from the original delivery.
func (r *Runner) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%s:%d:%t", log.BlockHash.Hex(), log.Index, log.Removed)
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}
