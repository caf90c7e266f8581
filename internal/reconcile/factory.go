package reconcile

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"poolGraph/internal/model"
	"poolGraph/internal/storage"
)

const (
	defaultTokenSymbol   = "UNKNOWN"
	defaultTokenName     = "Unknown Token"
	defaultTokenDecimals = 18
)

// TokenMetadataSource supplies ERC-20 metadata for tokens seen for the first time.
type TokenMetadataSource interface {
	TokenMeta(ctx context.Context, address string) (model.TokenMeta, error)
}

func defaultToken(id string) model.Token {
	return model.Token{
		ID:          id,
		Symbol:      defaultTokenSymbol,
		Name:        defaultTokenName,
		Decimals:    defaultTokenDecimals,
		TotalSupply: new(big.Int),
	}
}

// getOrCreate returns the stored record for id, or persists and returns
// newFn(id) when it is absent. The hit path performs no write.
func getOrCreate[T any](
	ctx context.Context,
	id string,
	get func(context.Context, string) (T, bool, error),
	put func(context.Context, T) error,
	newFn func(string) T,
) (T, error) {
	existing, ok, err := get(ctx, id)
	if err != nil {
		var zero T
		return zero, err
	}
	if ok {
		return existing, nil
	}
	created := newFn(id)
	if err := put(ctx, created); err != nil {
		var zero T
		return zero, err
	}
	return created, nil
}

func (e *Engine) getOrCreateToken(ctx context.Context, sess storage.Session, address string) (model.Token, error) {
	token, err := getOrCreate(ctx, TokenKey(address), sess.Token, sess.PutToken, func(id string) model.Token {
		return e.tokenDefaults(ctx, id)
	})
	if err != nil {
		return model.Token{}, fmt.Errorf("get or create token %s: %w", address, err)
	}
	return token, nil
}

func (e *Engine) tokenDefaults(ctx context.Context, id string) model.Token {
	token := defaultToken(id)
	if e.tokenMeta == nil {
		return token
	}

	meta, err := e.tokenMeta.TokenMeta(ctx, id)
	if err != nil {
		e.logger.Warn("token metadata unavailable, using defaults", zap.String("token", id), zap.Error(err))
		return token
	}
	meta = meta.Sanitized()
	if meta.Symbol != "" {
		token.Symbol = meta.Symbol
	}
	if meta.Name != "" {
		token.Name = meta.Name
	}
	token.Decimals = meta.Decimals
	return token
}

func getOrCreateUser(ctx context.Context, sess storage.Session, address string) (model.User, error) {
	user, err := getOrCreate(ctx, UserKey(address), sess.User, sess.PutUser, func(id string) model.User {
		return model.User{ID: id}
	})
	if err != nil {
		return model.User{}, fmt.Errorf("get or create user %s: %w", address, err)
	}
	return user, nil
}

func getOrCreateGlobalStats(ctx context.Context, sess storage.Session, timestamp uint64) (model.GlobalStats, error) {
	stats, err := getOrCreate(ctx, model.GlobalStatsID, sess.GlobalStats, sess.PutGlobalStats, func(id string) model.GlobalStats {
		return model.GlobalStats{
			ID:             id,
			TotalVolumeUSD: decimal.Zero,
			TotalTVL:       decimal.Zero,
			UpdatedAt:      timestamp,
		}
	})
	if err != nil {
		return model.GlobalStats{}, fmt.Errorf("get or create global stats: %w", err)
	}
	return stats, nil
}
