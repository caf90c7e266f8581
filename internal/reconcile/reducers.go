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

func (e *Engine) applyPoolInitialized(ctx context.Context, sess storage.Session, ev model.PoolInitializedEvent) (Outcome, error) {
	poolID := PoolKey(ev.PoolID)

	existing, ok, err := sess.Pool(ctx, poolID)
	if err != nil {
		return "", fmt.Errorf("get pool: %w", err)
	}
	if ok {
		if existing.Token0 != TokenKey(ev.Currency0) || existing.Token1 != TokenKey(ev.Currency1) || existing.Fee != ev.Fee {
			e.logger.Warn("conflicting pool re-initialization ignored",
				zap.String("pool", poolID),
				zap.String("stored_token0", existing.Token0),
				zap.String("stored_token1", existing.Token1),
				zap.Uint32("stored_fee", existing.Fee),
				zap.String("token0", TokenKey(ev.Currency0)),
				zap.String("token1", TokenKey(ev.Currency1)),
				zap.Uint32("fee", ev.Fee),
				zap.Uint64("block", ev.Meta.BlockNumber),
			)
		} else {
			e.logger.Debug("pool already initialized", zap.String("pool", poolID), zap.Uint64("block", ev.Meta.BlockNumber))
		}
		return OutcomeDuplicate, nil
	}

	token0, err := e.getOrCreateToken(ctx, sess, ev.Currency0)
	if err != nil {
		return "", err
	}
	token1, err := e.getOrCreateToken(ctx, sess, ev.Currency1)
	if err != nil {
		return "", err
	}

	pool := model.Pool{
		ID:                   poolID,
		Token0:               token0.ID,
		Token1:               token1.ID,
		Fee:                  ev.Fee,
		TickSpacing:          ev.TickSpacing,
		Hooks:                normalizeHex(ev.Hooks),
		PoolManager:          normalizeHex(ev.Meta.Address),
		Tick:                 0,
		SqrtPriceX96:         new(big.Int),
		Liquidity:            new(big.Int),
		FeeGrowthGlobal0X128: new(big.Int),
		FeeGrowthGlobal1X128: new(big.Int),
		CreatedAt:            ev.Meta.BlockTimestamp,
		CreatedAtBlock:       ev.Meta.BlockNumber,
		VolumeUSD:            decimal.Zero,
		TVLUSD:               decimal.Zero,
	}
	if err := sess.PutPool(ctx, pool); err != nil {
		return "", fmt.Errorf("put pool: %w", err)
	}

	if err := incrementPoolCount(ctx, sess, ev.Meta.BlockTimestamp); err != nil {
		return "", err
	}
	return OutcomeApplied, nil
}

func (e *Engine) applySwap(ctx context.Context, sess storage.Session, ev model.SwapEvent) (Outcome, error) {
	user, err := getOrCreateUser(ctx, sess, ev.Sender)
	if err != nil {
		return "", err
	}

	pool, ok, err := sess.Pool(ctx, PoolKey(ev.PoolID))
	if err != nil {
		return "", fmt.Errorf("get pool: %w", err)
	}
	if !ok {
		e.logger.Warn("pool not found for swap event",
			zap.String("pool", PoolKey(ev.PoolID)),
			zap.String("sender", user.ID),
			zap.Uint64("block", ev.Meta.BlockNumber),
			zap.Uint64("log_index", ev.Meta.LogIndex),
		)
		return OutcomeOrphaned, nil
	}

	swapID := SwapKey(ev.Meta.BlockHash, ev.Meta.LogIndex)
	if _, exists, err := sess.Swap(ctx, swapID); err != nil {
		return "", fmt.Errorf("get swap: %w", err)
	} else if exists {
		e.logger.Debug("swap already recorded", zap.String("swap", swapID))
		return OutcomeDuplicate, nil
	}

	gasUsed, gasPrice := e.swapGas(ctx, ev.Meta)
	swap := model.Swap{
		ID:           swapID,
		Transaction:  normalizeHex(ev.Meta.BlockHash),
		Pool:         pool.ID,
		Origin:       user.ID,
		Recipient:    user.ID,
		Amount0:      cloneInt(ev.Amount0),
		Amount1:      cloneInt(ev.Amount1),
		AmountUSD:    decimal.Zero,
		Tick:         ev.Tick,
		SqrtPriceX96: cloneInt(ev.SqrtPriceX96),
		Liquidity:    cloneInt(ev.Liquidity),
		GasUsed:      gasUsed,
		GasPrice:     gasPrice,
		Timestamp:    ev.Meta.BlockTimestamp,
		BlockNumber:  ev.Meta.BlockNumber,
		LogIndex:     ev.Meta.LogIndex,
	}
	if err := sess.PutSwap(ctx, swap); err != nil {
		return "", fmt.Errorf("put swap: %w", err)
	}

	updatedPool := pool
	updatedPool.Tick = ev.Tick
	updatedPool.SqrtPriceX96 = cloneInt(ev.SqrtPriceX96)
	updatedPool.Liquidity = cloneInt(ev.Liquidity)
	if err := sess.PutPool(ctx, updatedPool); err != nil {
		return "", fmt.Errorf("put pool: %w", err)
	}

	updatedUser := user
	updatedUser.SwapCount = user.SwapCount + 1
	if err := sess.PutUser(ctx, updatedUser); err != nil {
		return "", fmt.Errorf("put user: %w", err)
	}

	if err := incrementTransactionCount(ctx, sess, ev.Meta.BlockTimestamp); err != nil {
		return "", err
	}
	return OutcomeApplied, nil
}

func (e *Engine) applyLiquidityModified(ctx context.Context, sess storage.Session, ev model.LiquidityModifiedEvent) (Outcome, error) {
	user, err := getOrCreateUser(ctx, sess, ev.Sender)
	if err != nil {
		return "", err
	}

	pool, ok, err := sess.Pool(ctx, PoolKey(ev.PoolID))
	if err != nil {
		return "", fmt.Errorf("get pool: %w", err)
	}
	if !ok {
		e.logger.Warn("pool not found for modify liquidity event",
			zap.String("pool", PoolKey(ev.PoolID)),
			zap.String("owner", user.ID),
			zap.Uint64("block", ev.Meta.BlockNumber),
			zap.Uint64("log_index", ev.Meta.LogIndex),
		)
		return OutcomeOrphaned, nil
	}

	positionID := PositionKey(user.ID, pool.ID, ev.TickLower, ev.TickUpper)
	delta := cloneInt(ev.LiquidityDelta)

	position, ok, err := sess.Position(ctx, positionID)
	if err != nil {
		return "", fmt.Errorf("get position: %w", err)
	}

	if !ok {
		liquidity := new(big.Int)
		if delta.Sign() > 0 {
			liquidity.Set(delta)
		}
		created := model.Position{
			ID:                  positionID,
			Owner:               user.ID,
			Pool:                pool.ID,
			TickLower:           ev.TickLower,
			TickUpper:           ev.TickUpper,
			Liquidity:           liquidity,
			DepositedToken0:     new(big.Int),
			DepositedToken1:     new(big.Int),
			WithdrawnToken0:     new(big.Int),
			WithdrawnToken1:     new(big.Int),
			CollectedFeesToken0: new(big.Int),
			CollectedFeesToken1: new(big.Int),
			CreatedAt:           ev.Meta.BlockTimestamp,
			CreatedAtBlock:      ev.Meta.BlockNumber,
			UpdatedAt:           ev.Meta.BlockTimestamp,
			UpdatedAtBlock:      ev.Meta.BlockNumber,
		}
		if err := sess.PutPosition(ctx, created); err != nil {
			return "", fmt.Errorf("put position: %w", err)
		}

		updatedUser := user
		updatedUser.PositionCount = user.PositionCount + 1
		if err := sess.PutUser(ctx, updatedUser); err != nil {
			return "", fmt.Errorf("put user: %w", err)
		}
		return OutcomeApplied, nil
	}

	// No clamping on update: the position carries the signed sum of deltas.
	updated := position
	updated.Liquidity = new(big.Int).Add(cloneInt(position.Liquidity), delta)
	updated.UpdatedAt = ev.Meta.BlockTimestamp
	updated.UpdatedAtBlock = ev.Meta.BlockNumber
	if updated.Liquidity.Sign() < 0 {
		e.logger.Warn("position liquidity negative",
			zap.String("position", positionID),
			zap.String("liquidity", updated.Liquidity.String()),
			zap.Uint64("block", ev.Meta.BlockNumber),
		)
	}
	if err := sess.PutPosition(ctx, updated); err != nil {
		return "", fmt.Errorf("put position: %w", err)
	}
	return OutcomeApplied, nil
}

func (e *Engine) applyProtocolFeeUpdated(ctx context.Context, sess storage.Session, ev model.ProtocolFeeUpdatedEvent) (Outcome, error) {
	pool, ok, err := sess.Pool(ctx, PoolKey(ev.PoolID))
	if err != nil {
		return "", fmt.Errorf("get pool: %w", err)
	}
	if !ok {
		return OutcomeIgnored, nil
	}

	updated := pool
	updated.ProtocolFee = ev.ProtocolFee
	if err := sess.PutPool(ctx, updated); err != nil {
		return "", fmt.Errorf("put pool: %w", err)
	}
	return OutcomeApplied, nil
}

// applyTokenTransfer tracks supply from mints and burns only. Supply is
// counted from the moment the token was first referenced, so burns of
// earlier mints can push it below zero.
func (e *Engine) applyTokenTransfer(ctx context.Context, sess storage.Session, ev model.TokenTransferEvent) (Outcome, error) {
	token, ok, err := sess.Token(ctx, TokenKey(ev.Meta.Address))
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}
	if !ok {
		return OutcomeIgnored, nil
	}

	value := cloneInt(ev.Value)
	supply := cloneInt(token.TotalSupply)
	switch {
	case isZeroAddress(ev.From):
		supply.Add(supply, value)
	case isZeroAddress(ev.To):
		supply.Sub(supply, value)
		if supply.Sign() < 0 {
			e.logger.Debug("token supply below zero",
				zap.String("token", token.ID),
				zap.String("total_supply", supply.String()),
			)
		}
	default:
		return OutcomeObserved, nil
	}

	updated := token
	updated.TotalSupply = supply
	if err := sess.PutToken(ctx, updated); err != nil {
		return "", fmt.Errorf("put token: %w", err)
	}
	return OutcomeApplied, nil
}

// cloneInt copies v so stored records never share a mutable *big.Int; nil becomes zero.
func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
