package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"poolGraph/internal/model"
)

// LogDecoder turns raw logs into events. Errors accepted by
// ProcessorConfig.Unsupported mark logs outside the tracked set.
type LogDecoder interface {
	Decode(log model.LogRecord) (model.Event, error)
}

// ProcessorConfig wires optional hooks into the Processor.
type ProcessorConfig struct {
	// Unsupported reports whether a decode error means "not a tracked log".
	Unsupported func(err error) bool

	// OnDecodeError receives every log that failed to decode.
	OnDecodeError func(model.DecodeError)
}

// Stats summarizes what a Processor did with the logs it was given.
type Stats struct {
	Total       int
	Removed     int
	Unsupported int
	Failed      int
	Outcomes    map[Outcome]int
}

// Fields renders the stats as zap fields.
func (s Stats) Fields() []zap.Field {
	fields := []zap.Field{
		zap.Int("total", s.Total),
		zap.Int("removed", s.Removed),
		zap.Int("unsupported", s.Unsupported),
		zap.Int("failed", s.Failed),
	}
	for _, outcome := range []Outcome{OutcomeApplied, OutcomeOrphaned, OutcomeIgnored, OutcomeDuplicate, OutcomeObserved, OutcomeSkipped} {
		fields = append(fields, zap.Int(string(outcome), s.Outcomes[outcome]))
	}
	return fields
}

// Processor decodes log batches and applies them to an Engine in chain order.
// It satisfies storage.Storage so the indexer can feed it directly.
type Processor struct {
	engine  *Engine
	decoder LogDecoder
	cfg     ProcessorConfig
	logger  *zap.Logger
	stats   Stats
}

// NewProcessor builds a Processor.
func NewProcessor(engine *Engine, decoder LogDecoder, cfg ProcessorConfig, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		engine:  engine,
		decoder: decoder,
		cfg:     cfg,
		logger:  logger,
		stats:   Stats{Outcomes: make(map[Outcome]int)},
	}
}

// Stats returns a copy of the running totals.
func (p *Processor) Stats() Stats {
	out := p.stats
	out.Outcomes = make(map[Outcome]int, len(p.stats.Outcomes))
	for k, v := range p.stats.Outcomes {
		out.Outcomes[k] = v
	}
	return out
}

// PutLogBatch sorts logs by (block, log index) and applies each one. Decode
// failures are reported and skipped; a store error aborts the batch.
func (p *Processor) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	if p.engine == nil || p.decoder == nil {
		return fmt.Errorf("processor is not configured")
	}

	ordered := make([]model.LogRecord, len(logs))
	copy(ordered, logs)
	model.SortLogRecords(ordered)

	for _, record := range ordered {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.stats.Total++

		if record.Removed {
			p.stats.Removed++
			p.engine.metrics.observeLogSkipped("removed")
			p.logger.Debug("removed log skipped",
				zap.Uint64("block", record.BlockNumber),
				zap.Uint64("log_index", record.LogIndex),
			)
			continue
		}

		event, err := p.decoder.Decode(record)
		if err != nil {
			if p.isUnsupported(err) {
				p.stats.Unsupported++
				p.engine.metrics.observeLogSkipped("unsupported")
				continue
			}
			p.stats.Failed++
			p.engine.metrics.observeDecodeFailure()
			p.logger.Warn("decode failed",
				zap.Uint64("block", record.BlockNumber),
				zap.Uint64("log_index", record.LogIndex),
				zap.String("address", record.Address),
				zap.String("topic0", record.Topic0()),
				zap.Error(err),
			)
			if p.cfg.OnDecodeError != nil {
				p.cfg.OnDecodeError(DecodeErrorFromRecord(record, err))
			}
			continue
		}

		outcome, err := p.engine.Apply(ctx, event)
		if err != nil {
			return err
		}
		p.stats.Outcomes[outcome]++
	}
	return nil
}

func (p *Processor) isUnsupported(err error) bool {
	if p.cfg.Unsupported != nil {
		return p.cfg.Unsupported(err)
	}
	return false
}

// DecodeErrorFromRecord builds the error record written for a failed log.
func DecodeErrorFromRecord(record model.LogRecord, err error) model.DecodeError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return model.DecodeError{
		ChainID:     record.ChainID,
		BlockNumber: record.BlockNumber,
		BlockHash:   record.BlockHash,
		TxHash:      record.TxHash,
		LogIndex:    record.LogIndex,
		Address:     record.Address,
		Topic0:      record.Topic0(),
		Error:       msg,
	}
}

// UnsupportedIs returns a ProcessorConfig.Unsupported matcher for target.
func UnsupportedIs(target error) func(error) bool {
	return func(err error) bool {
		return errors.Is(err, target)
	}
}
