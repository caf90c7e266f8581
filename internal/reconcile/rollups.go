package reconcile

import (
	"context"
	"fmt"

	"poolGraph/internal/storage"
)

func incrementPoolCount(ctx context.Context, sess storage.Session, timestamp uint64) error {
	stats, err := getOrCreateGlobalStats(ctx, sess, timestamp)
	if err != nil {
		return err
	}
	updated := stats
	updated.PoolCount = stats.PoolCount + 1
	updated.UpdatedAt = timestamp
	if err := sess.PutGlobalStats(ctx, updated); err != nil {
		return fmt.Errorf("put global stats: %w", err)
	}
	return nil
}

func incrementTransactionCount(ctx context.Context, sess storage.Session, timestamp uint64) error {
	stats, err := getOrCreateGlobalStats(ctx, sess, timestamp)
	if err != nil {
		return err
	}
	updated := stats
	updated.TransactionCount = stats.TransactionCount + 1
	updated.UpdatedAt = timestamp
	if err := sess.PutGlobalStats(ctx, updated); err != nil {
		return fmt.Errorf("put global stats: %w", err)
	}
	return nil
}
