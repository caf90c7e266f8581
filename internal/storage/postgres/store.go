package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolGraph/internal/model"
	"poolGraph/internal/storage"
)

// Store provides Postgres persistence for the entity graph.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Begin opens a transaction-backed session.
func (s *Store) Begin(ctx context.Context) (storage.Session, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Session{tx: tx}, nil
}

// Session runs every read and write inside one database transaction.
type Session struct {
	tx pgx.Tx
}

func (s *Session) Token(ctx context.Context, id string) (model.Token, bool, error) {
	var (
		token  model.Token
		supply string
	)
	row := s.tx.QueryRow(ctx, `
		SELECT id, symbol, name, decimals, total_supply::text
		FROM tokens WHERE id = $1
	`, id)
	if err := row.Scan(&token.ID, &token.Symbol, &token.Name, &token.Decimals, &supply); err != nil {
		return notFound(token, err)
	}
	var err error
	if token.TotalSupply, err = parseBig(supply); err != nil {
		return model.Token{}, false, fmt.Errorf("token %s total_supply: %w", id, err)
	}
	return token, true, nil
}

func (s *Session) PutToken(ctx context.Context, token model.Token) error {
	if token.ID == "" {
		return fmt.Errorf("%w: token id is empty", storage.ErrInvalidInput)
	}
	_, err := s.tx.Exec(ctx, `
		INSERT INTO tokens (id, symbol, name, decimals, total_supply, updated_at)
		VALUES ($1, $2, $3, $4, $5::text::numeric, now())
		ON CONFLICT (id) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name,
			decimals = EXCLUDED.decimals,
			total_supply = EXCLUDED.total_supply,
			updated_at = now()
	`,
		token.ID,
		token.Symbol,
		token.Name,
		int16(token.Decimals),
		bigText(token.TotalSupply),
	)
	if err != nil {
		return fmt.Errorf("upsert token %s: %w", token.ID, err)
	}
	return nil
}

func (s *Session) Pool(ctx context.Context, id string) (model.Pool, bool, error) {
	var (
		pool                                         model.Pool
		sqrtPrice, liquidity, feeGrowth0, feeGrowth1 string
		volumeUSD, tvlUSD                            string
		createdAt, createdAtBlock                    int64
	)
	row := s.tx.QueryRow(ctx, `
		SELECT id, token0, token1, fee, tick_spacing, hooks, pool_manager, protocol_fee, tick,
			sqrt_price_x96::text, liquidity::text, fee_growth_global0_x128::text, fee_growth_global1_x128::text,
			created_at, created_at_block, volume_usd::text, tvl_usd::text
		FROM pools WHERE id = $1
	`, id)
	if err := row.Scan(
		&pool.ID, &pool.Token0, &pool.Token1, &pool.Fee, &pool.TickSpacing, &pool.Hooks, &pool.PoolManager,
		&pool.ProtocolFee, &pool.Tick,
		&sqrtPrice, &liquidity, &feeGrowth0, &feeGrowth1,
		&createdAt, &createdAtBlock, &volumeUSD, &tvlUSD,
	); err != nil {
		return notFound(pool, err)
	}
	pool.CreatedAt = uint64(createdAt)
	pool.CreatedAtBlock = uint64(createdAtBlock)

	var p parser
	pool.SqrtPriceX96 = p.big("sqrt_price_x96", sqrtPrice)
	pool.Liquidity = p.big("liquidity", liquidity)
	pool.FeeGrowthGlobal0X128 = p.big("fee_growth_global0_x128", feeGrowth0)
	pool.FeeGrowthGlobal1X128 = p.big("fee_growth_global1_x128", feeGrowth1)
	pool.VolumeUSD = p.decimal("volume_usd", volumeUSD)
	pool.TVLUSD = p.decimal("tvl_usd", tvlUSD)
	if p.err != nil {
		return model.Pool{}, false, fmt.Errorf("pool %s: %w", id, p.err)
	}
	return pool, true, nil
}

func (s *Session) PutPool(ctx context.Context, pool model.Pool) error {
	if pool.ID == "" {
		return fmt.Errorf("%w: pool id is empty", storage.ErrInvalidInput)
	}
	_, err := s.tx.Exec(ctx, `
		INSERT INTO pools (
			id, token0, token1, fee, tick_spacing, hooks, pool_manager, protocol_fee, tick,
			sqrt_price_x96, liquidity, fee_growth_global0_x128, fee_growth_global1_x128,
			created_at, created_at_block, volume_usd, tvl_usd, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			$10::text::numeric, $11::text::numeric, $12::text::numeric, $13::text::numeric,
			$14, $15, $16::text::numeric, $17::text::numeric, now()
		)
		ON CONFLICT (id) DO UPDATE SET
			protocol_fee = EXCLUDED.protocol_fee,
			tick = EXCLUDED.tick,
			sqrt_price_x96 = EXCLUDED.sqrt_price_x96,
			liquidity = EXCLUDED.liquidity,
			fee_growth_global0_x128 = EXCLUDED.fee_growth_global0_x128,
			fee_growth_global1_x128 = EXCLUDED.fee_growth_global1_x128,
			volume_usd = EXCLUDED.volume_usd,
			tvl_usd = EXCLUDED.tvl_usd,
			updated_at = now()
	`,
		pool.ID,
		pool.Token0,
		pool.Token1,
		int32(pool.Fee),
		pool.TickSpacing,
		pool.Hooks,
		pool.PoolManager,
		int32(pool.ProtocolFee),
		pool.Tick,
		bigText(pool.SqrtPriceX96),
		bigText(pool.Liquidity),
		bigText(pool.FeeGrowthGlobal0X128),
		bigText(pool.FeeGrowthGlobal1X128),
		int64(pool.CreatedAt),
		int64(pool.CreatedAtBlock),
		pool.VolumeUSD.String(),
		pool.TVLUSD.String(),
	)
	if err != nil {
		return fmt.Errorf("upsert pool %s: %w", pool.ID, err)
	}
	return nil
}

func (s *Session) User(ctx context.Context, id string) (model.User, bool, error) {
	var (
		user                     model.User
		positionCount, swapCount int64
	)
	row := s.tx.QueryRow(ctx, `SELECT id, position_count, swap_count FROM users WHERE id = $1`, id)
	if err := row.Scan(&user.ID, &positionCount, &swapCount); err != nil {
		return notFound(user, err)
	}
	user.PositionCount = uint64(positionCount)
	user.SwapCount = uint64(swapCount)
	return user, true, nil
}

func (s *Session) PutUser(ctx context.Context, user model.User) error {
	if user.ID == "" {
		return fmt.Errorf("%w: user id is empty", storage.ErrInvalidInput)
	}
	_, err := s.tx.Exec(ctx, `
		INSERT INTO users (id, position_count, swap_count, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET
			position_count = EXCLUDED.position_count,
			swap_count = EXCLUDED.swap_count,
			updated_at = now()
	`, user.ID, int64(user.PositionCount), int64(user.SwapCount))
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", user.ID, err)
	}
	return nil
}

func (s *Session) Position(ctx context.Context, id string) (model.Position, bool, error) {
	var (
		position                                      model.Position
		liquidity, dep0, dep1, wd0, wd1, fees0, fees1 string
		createdAt, createdAtBlock                     int64
		updatedAt, updatedAtBlock                     int64
	)
	row := s.tx.QueryRow(ctx, `
		SELECT id, owner, pool, tick_lower, tick_upper,
			liquidity::text, deposited_token0::text, deposited_token1::text,
			withdrawn_token0::text, withdrawn_token1::text,
			collected_fees_token0::text, collected_fees_token1::text,
			created_at, created_at_block, updated_at, updated_at_block
		FROM positions WHERE id = $1
	`, id)
	if err := row.Scan(
		&position.ID, &position.Owner, &position.Pool, &position.TickLower, &position.TickUpper,
		&liquidity, &dep0, &dep1, &wd0, &wd1, &fees0, &fees1,
		&createdAt, &createdAtBlock, &updatedAt, &updatedAtBlock,
	); err != nil {
		return notFound(position, err)
	}
	position.CreatedAt = uint64(createdAt)
	position.CreatedAtBlock = uint64(createdAtBlock)
	position.UpdatedAt = uint64(updatedAt)
	position.UpdatedAtBlock = uint64(updatedAtBlock)

	var p parser
	position.Liquidity = p.big("liquidity", liquidity)
	position.DepositedToken0 = p.big("deposited_token0", dep0)
	position.DepositedToken1 = p.big("deposited_token1", dep1)
	position.WithdrawnToken0 = p.big("withdrawn_token0", wd0)
	position.WithdrawnToken1 = p.big("withdrawn_token1", wd1)
	position.CollectedFeesToken0 = p.big("collected_fees_token0", fees0)
	position.CollectedFeesToken1 = p.big("collected_fees_token1", fees1)
	if p.err != nil {
		return model.Position{}, false, fmt.Errorf("position %s: %w", id, p.err)
	}
	return position, true, nil
}

func (s *Session) PutPosition(ctx context.Context, position model.Position) error {
	if position.ID == "" {
		return fmt.Errorf("%w: position id is empty", storage.ErrInvalidInput)
	}
	_, err := s.tx.Exec(ctx, `
		INSERT INTO positions (
			id, owner, pool, tick_lower, tick_upper,
			liquidity, deposited_token0, deposited_token1, withdrawn_token0, withdrawn_token1,
			collected_fees_token0, collected_fees_token1,
			created_at, created_at_block, updated_at, updated_at_block
		) VALUES (
			$1, $2, $3, $4, $5,
			$6::text::numeric, $7::text::numeric, $8::text::numeric, $9::text::numeric, $10::text::numeric,
			$11::text::numeric, $12::text::numeric,
			$13, $14, $15, $16
		)
		ON CONFLICT (id) DO UPDATE SET
			liquidity = EXCLUDED.liquidity,
			deposited_token0 = EXCLUDED.deposited_token0,
			deposited_token1 = EXCLUDED.deposited_token1,
			withdrawn_token0 = EXCLUDED.withdrawn_token0,
			withdrawn_token1 = EXCLUDED.withdrawn_token1,
			collected_fees_token0 = EXCLUDED.collected_fees_token0,
			collected_fees_token1 = EXCLUDED.collected_fees_token1,
			updated_at = EXCLUDED.updated_at,
			updated_at_block = EXCLUDED.updated_at_block
	`,
		position.ID,
		position.Owner,
		position.Pool,
		position.TickLower,
		position.TickUpper,
		bigText(position.Liquidity),
		bigText(position.DepositedToken0),
		bigText(position.DepositedToken1),
		bigText(position.WithdrawnToken0),
		bigText(position.WithdrawnToken1),
		bigText(position.CollectedFeesToken0),
		bigText(position.CollectedFeesToken1),
		int64(position.CreatedAt),
		int64(position.CreatedAtBlock),
		int64(position.UpdatedAt),
		int64(position.UpdatedAtBlock),
	)
	if err != nil {
		return fmt.Errorf("upsert position %s: %w", position.ID, err)
	}
	return nil
}

func (s *Session) Swap(ctx context.Context, id string) (model.Swap, bool, error) {
	var (
		swap                                    model.Swap
		amount0, amount1, amountUSD             string
		sqrtPrice, liquidity, gasUsed, gasPrice string
		timestamp, blockNumber, logIndex        int64
	)
	row := s.tx.QueryRow(ctx, `
		SELECT id, transaction_ref, pool, origin, recipient,
			amount0::text, amount1::text, amount_usd::text, tick,
			sqrt_price_x96::text, liquidity::text, gas_used::text, gas_price::text,
			timestamp, block_number, log_index
		FROM swaps WHERE id = $1
	`, id)
	if err := row.Scan(
		&swap.ID, &swap.Transaction, &swap.Pool, &swap.Origin, &swap.Recipient,
		&amount0, &amount1, &amountUSD, &swap.Tick,
		&sqrtPrice, &liquidity, &gasUsed, &gasPrice,
		&timestamp, &blockNumber, &logIndex,
	); err != nil {
		return notFound(swap, err)
	}
	swap.Timestamp = uint64(timestamp)
	swap.BlockNumber = uint64(blockNumber)
	swap.LogIndex = uint64(logIndex)

	var p parser
	swap.Amount0 = p.big("amount0", amount0)
	swap.Amount1 = p.big("amount1", amount1)
	swap.AmountUSD = p.decimal("amount_usd", amountUSD)
	swap.SqrtPriceX96 = p.big("sqrt_price_x96", sqrtPrice)
	swap.Liquidity = p.big("liquidity", liquidity)
	swap.GasUsed = p.big("gas_used", gasUsed)
	swap.GasPrice = p.big("gas_price", gasPrice)
	if p.err != nil {
		return model.Swap{}, false, fmt.Errorf("swap %s: %w", id, p.err)
	}
	return swap, true, nil
}

// PutSwap inserts a swap. Swaps are immutable, so an existing id is left as is.
func (s *Session) PutSwap(ctx context.Context, swap model.Swap) error {
	if swap.ID == "" {
		return fmt.Errorf("%w: swap id is empty", storage.ErrInvalidInput)
	}
	_, err := s.tx.Exec(ctx, `
		INSERT INTO swaps (
			id, transaction_ref, pool, origin, recipient,
			amount0, amount1, amount_usd, tick,
			sqrt_price_x96, liquidity, gas_used, gas_price,
			timestamp, block_number, log_index
		) VALUES (
			$1, $2, $3, $4, $5,
			$6::text::numeric, $7::text::numeric, $8::text::numeric, $9,
			$10::text::numeric, $11::text::numeric, $12::text::numeric, $13::text::numeric,
			$14, $15, $16
		)
		ON CONFLICT (id) DO NOTHING
	`,
		swap.ID,
		swap.Transaction,
		swap.Pool,
		swap.Origin,
		swap.Recipient,
		bigText(swap.Amount0),
		bigText(swap.Amount1),
		swap.AmountUSD.String(),
		swap.Tick,
		bigText(swap.SqrtPriceX96),
		bigText(swap.Liquidity),
		bigText(swap.GasUsed),
		bigText(swap.GasPrice),
		int64(swap.Timestamp),
		int64(swap.BlockNumber),
		int64(swap.LogIndex),
	)
	if err != nil {
		return fmt.Errorf("insert swap %s: %w", swap.ID, err)
	}
	return nil
}

func (s *Session) GlobalStats(ctx context.Context, id string) (model.GlobalStats, bool, error) {
	var (
		stats                       model.GlobalStats
		poolCount, txCount, updated int64
		totalVolumeUSD, totalTVL    string
	)
	row := s.tx.QueryRow(ctx, `
		SELECT id, pool_count, transaction_count, total_volume_usd::text, total_tvl::text, updated_at
		FROM global_stats WHERE id = $1
	`, id)
	if err := row.Scan(&stats.ID, &poolCount, &txCount, &totalVolumeUSD, &totalTVL, &updated); err != nil {
		return notFound(stats, err)
	}
	stats.PoolCount = uint64(poolCount)
	stats.TransactionCount = uint64(txCount)
	stats.UpdatedAt = uint64(updated)

	var p parser
	stats.TotalVolumeUSD = p.decimal("total_volume_usd", totalVolumeUSD)
	stats.TotalTVL = p.decimal("total_tvl", totalTVL)
	if p.err != nil {
		return model.GlobalStats{}, false, fmt.Errorf("global stats %s: %w", id, p.err)
	}
	return stats, true, nil
}

func (s *Session) PutGlobalStats(ctx context.Context, stats model.GlobalStats) error {
	if stats.ID == "" {
		return fmt.Errorf("%w: global stats id is empty", storage.ErrInvalidInput)
	}
	_, err := s.tx.Exec(ctx, `
		INSERT INTO global_stats (id, pool_count, transaction_count, total_volume_usd, total_tvl, updated_at)
		VALUES ($1, $2, $3, $4::text::numeric, $5::text::numeric, $6)
		ON CONFLICT (id) DO UPDATE SET
			pool_count = EXCLUDED.pool_count,
			transaction_count = EXCLUDED.transaction_count,
			total_volume_usd = EXCLUDED.total_volume_usd,
			total_tvl = EXCLUDED.total_tvl,
			updated_at = EXCLUDED.updated_at
	`,
		stats.ID,
		int64(stats.PoolCount),
		int64(stats.TransactionCount),
		stats.TotalVolumeUSD.String(),
		stats.TotalTVL.String(),
		int64(stats.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert global stats: %w", err)
	}
	return nil
}

// Cursor returns the last applied (block, log index) for name.
func (s *Session) Cursor(ctx context.Context, name string) (model.Cursor, bool, error) {
	if name == "" {
		return model.Cursor{}, false, fmt.Errorf("state name required")
	}
	var block, logIndex int64
	row := s.tx.QueryRow(ctx, `SELECT block_number, log_index FROM reconcile_state WHERE name = $1`, name)
	if err := row.Scan(&block, &logIndex); err != nil {
		return notFound(model.Cursor{}, err)
	}
	return model.Cursor{BlockNumber: uint64(block), LogIndex: uint64(logIndex)}, true, nil
}

// PutCursor upserts the cursor for name.
func (s *Session) PutCursor(ctx context.Context, name string, cursor model.Cursor) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.tx.Exec(ctx, `
		INSERT INTO reconcile_state (name, block_number, log_index, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET block_number = EXCLUDED.block_number, log_index = EXCLUDED.log_index, updated_at = now()
	`, name, int64(cursor.BlockNumber), int64(cursor.LogIndex))
	if err != nil {
		return fmt.Errorf("save cursor %s: %w", name, err)
	}
	return nil
}

func (s *Session) Commit(ctx context.Context) error {
	return s.tx.Commit(ctx)
}

func (s *Session) Rollback(ctx context.Context) error {
	if err := s.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func notFound[T any](zero T, err error) (T, bool, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return zero, false, nil
	}
	return zero, false, err
}
