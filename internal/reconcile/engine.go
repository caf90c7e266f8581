package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"poolGraph/internal/model"
	"poolGraph/internal/storage"
)

// Config controls engine behavior.
type Config struct {
	// CursorName enables the stored cursor. Events at or before it are skipped.
	CursorName string

	// TokenMeta, when set, supplies defaults for newly created tokens.
	TokenMeta TokenMetadataSource

	// Gas, when set, fills swap gas fields from transaction receipts.
	Gas GasSource

	Metrics *Metrics
}

// Engine applies decoded events to the entity store, one session per event.
// Callers must deliver events in chain order and must not call Apply
// concurrently: reducers read, modify and write without compare-and-swap.
type Engine struct {
	cfg       Config
	store     storage.EntityStore
	tokenMeta TokenMetadataSource
	gas       GasSource
	metrics   *Metrics
	logger    *zap.Logger
}

// NewEngine builds an Engine over store.
func NewEngine(cfg Config, store storage.EntityStore, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:       cfg,
		store:     store,
		tokenMeta: cfg.TokenMeta,
		gas:       cfg.Gas,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// Apply runs the reducer for event and commits its writes atomically.
// Domain conditions such as orphans are reported through the Outcome; an
// error means the store failed and nothing from this event was committed.
func (e *Engine) Apply(ctx context.Context, event model.Event) (Outcome, error) {
	if e.store == nil {
		return "", fmt.Errorf("entity store is nil")
	}
	if event == nil {
		return "", fmt.Errorf("event is nil")
	}

	start := time.Now()
	meta := event.Metadata()

	sess, err := e.store.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin session: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = sess.Rollback(ctx)
		}
	}()

	if e.cfg.CursorName != "" {
		cursor, ok, err := sess.Cursor(ctx, e.cfg.CursorName)
		if err != nil {
			return "", fmt.Errorf("load cursor: %w", err)
		}
		if ok && !meta.Cursor().After(cursor) {
			e.logger.Debug("event behind cursor",
				zap.String("kind", string(event.Kind())),
				zap.Uint64("block", meta.BlockNumber),
				zap.Uint64("log_index", meta.LogIndex),
				zap.Uint64("cursor_block", cursor.BlockNumber),
				zap.Uint64("cursor_log_index", cursor.LogIndex),
			)
			e.metrics.observeEvent(event.Kind(), OutcomeSkipped, meta.BlockNumber, time.Since(start))
			return OutcomeSkipped, nil
		}
	}

	outcome, err := e.dispatch(ctx, sess, event)
	if err != nil {
		return "", fmt.Errorf("apply %s at block %d log %d: %w", event.Kind(), meta.BlockNumber, meta.LogIndex, err)
	}

	if e.cfg.CursorName != "" {
		if err := sess.PutCursor(ctx, e.cfg.CursorName, meta.Cursor()); err != nil {
			return "", fmt.Errorf("save cursor: %w", err)
		}
	}

	if err := sess.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit session: %w", err)
	}
	committed = true

	e.metrics.observeEvent(event.Kind(), outcome, meta.BlockNumber, time.Since(start))
	return outcome, nil
}

func (e *Engine) dispatch(ctx context.Context, sess storage.Session, event model.Event) (Outcome, error) {
	switch ev := event.(type) {
	case model.PoolInitializedEvent:
		return e.applyPoolInitialized(ctx, sess, ev)
	case model.SwapEvent:
		return e.applySwap(ctx, sess, ev)
	case model.LiquidityModifiedEvent:
		return e.applyLiquidityModified(ctx, sess, ev)
	case model.ProtocolFeeUpdatedEvent:
		return e.applyProtocolFeeUpdated(ctx, sess, ev)
	case model.TokenTransferEvent:
		return e.applyTokenTransfer(ctx, sess, ev)
	case model.TokenApprovalEvent:
		e.logger.Debug("approval",
			zap.String("token", TokenKey(ev.Meta.Address)),
			zap.String("owner", ev.Owner),
			zap.String("spender", ev.Spender),
			zap.String("value", bigString(ev.Value)),
		)
		return OutcomeObserved, nil
	case model.PositionLiquidityIncreasedEvent:
		e.logger.Debug("increase liquidity",
			zap.String("token_id", bigString(ev.TokenID)),
			zap.String("liquidity", bigString(ev.Liquidity)),
			zap.String("amount0", bigString(ev.Amount0)),
			zap.String("amount1", bigString(ev.Amount1)),
		)
		return OutcomeObserved, nil
	case model.PositionLiquidityDecreasedEvent:
		e.logger.Debug("decrease liquidity",
			zap.String("token_id", bigString(ev.TokenID)),
			zap.String("liquidity", bigString(ev.Liquidity)),
			zap.String("amount0", bigString(ev.Amount0)),
			zap.String("amount1", bigString(ev.Amount1)),
		)
		return OutcomeObserved, nil
	case model.FeesCollectedEvent:
		e.logger.Debug("collect",
			zap.String("token_id", bigString(ev.TokenID)),
			zap.String("recipient", ev.Recipient),
			zap.String("amount0", bigString(ev.Amount0)),
			zap.String("amount1", bigString(ev.Amount1)),
		)
		return OutcomeObserved, nil
	default:
		return "", fmt.Errorf("unsupported event type %T", event)
	}
}

// ResumeBlock reports the block of the stored cursor, the first block a
// fetcher still has to deliver. The block is returned rather than the next
// one because it may be only partly applied; the cursor skips the rest.
// ok is false when no cursor is configured or none was stored yet.
func (e *Engine) ResumeBlock(ctx context.Context) (block uint64, ok bool, err error) {
	if e.cfg.CursorName == "" || e.store == nil {
		return 0, false, nil
	}
	sess, err := e.store.Begin(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("begin session: %w", err)
	}
	defer func() { _ = sess.Rollback(ctx) }()

	cursor, ok, err := sess.Cursor(ctx, e.cfg.CursorName)
	if err != nil {
		return 0, false, fmt.Errorf("load cursor: %w", err)
	}
	return cursor.BlockNumber, ok, nil
}
