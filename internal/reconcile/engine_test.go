package reconcile

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"poolGraph/internal/model"
	"poolGraph/internal/storage"
	"poolGraph/internal/storage/memory"
)

const (
	testManager  = "0x000000000004444c5dc75cB358380D2e3dE08A90"
	testToken0   = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	testToken1   = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	testPool1    = "0x21C67E77068DE97969BA93D4AAB21826D33CA12BB9F565D8496E8FDA8A82CA27"
	testPool2    = "0x00000000000000000000000000000000000000000000000000000000000000f2"
	testSender   = "0x66A9893cC07D91D95644AEDD05D03f95e1dBA8Af"
	blockHash101 = "0x5C0B3A4D2D1A0F6E0A3C0B8A7E1F9E6D5C4B3A2918273645546372819A0B1C2D"
)

func newTestEngine(t *testing.T, cfg Config) (*Engine, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewEngine(cfg, store, zap.NewNop()), store
}

func meta(block, logIndex uint64) model.EventMeta {
	return model.EventMeta{
		BlockNumber:    block,
		BlockTimestamp: 1_700_000_000 + block*12,
		BlockHash:      blockHash101,
		LogIndex:       logIndex,
		Address:        testManager,
	}
}

func initEvent(poolID string, block uint64) model.PoolInitializedEvent {
	return model.PoolInitializedEvent{
		Meta:        meta(block, 0),
		PoolID:      poolID,
		Currency0:   testToken0,
		Currency1:   testToken1,
		Fee:         3000,
		TickSpacing: 60,
		Hooks:       "0x0000000000000000000000000000000000000000",
	}
}

func swapEvent(poolID string, block, logIndex uint64, tick int32, sqrtPrice, liquidity int64) model.SwapEvent {
	return model.SwapEvent{
		Meta:         meta(block, logIndex),
		PoolID:       poolID,
		Sender:       testSender,
		Amount0:      big.NewInt(-1000),
		Amount1:      big.NewInt(2000),
		SqrtPriceX96: big.NewInt(sqrtPrice),
		Liquidity:    big.NewInt(liquidity),
		Tick:         tick,
	}
}

func modifyEvent(poolID string, block, logIndex uint64, delta int64) model.LiquidityModifiedEvent {
	return model.LiquidityModifiedEvent{
		Meta:           meta(block, logIndex),
		PoolID:         poolID,
		Sender:         testSender,
		TickLower:      -100,
		TickUpper:      100,
		LiquidityDelta: big.NewInt(delta),
	}
}

func transferEvent(token, from, to string, block, logIndex uint64, value int64) model.TokenTransferEvent {
	m := meta(block, logIndex)
	m.Address = token
	return model.TokenTransferEvent{Meta: m, From: from, To: to, Value: big.NewInt(value)}
}

func apply(t *testing.T, engine *Engine, event model.Event) Outcome {
	t.Helper()
	outcome, err := engine.Apply(context.Background(), event)
	require.NoError(t, err)
	return outcome
}

// read opens a fresh session so assertions only see committed state.
func read(t *testing.T, store storage.EntityStore) storage.Session {
	t.Helper()
	sess, err := store.Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Rollback(context.Background()) })
	return sess
}

func TestPoolInitializedThenSwap(t *testing.T) {
	engine, store := newTestEngine(t, Config{})
	ctx := context.Background()

	require.Equal(t, OutcomeApplied, apply(t, engine, initEvent(testPool1, 100)))

	sess := read(t, store)
	pool, ok, err := sess.Pool(ctx, PoolKey(testPool1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(0), pool.Tick)
	require.Equal(t, 0, pool.Liquidity.Sign())
	require.Equal(t, 0, pool.SqrtPriceX96.Sign())
	require.Equal(t, uint32(3000), pool.Fee)
	require.Equal(t, TokenKey(testToken0), pool.Token0)
	require.Equal(t, TokenKey(testManager), pool.PoolManager)
	require.Equal(t, uint64(100), pool.CreatedAtBlock)

	token0, ok, err := sess.Token(ctx, TokenKey(testToken0))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "UNKNOWN", token0.Symbol)
	require.Equal(t, uint8(18), token0.Decimals)
	require.Equal(t, 0, token0.TotalSupply.Sign())

	stats, ok, err := sess.GlobalStats(ctx, model.GlobalStatsID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), stats.PoolCount)
	require.Equal(t, meta(100, 0).BlockTimestamp, stats.UpdatedAt)

	require.Equal(t, OutcomeApplied, apply(t, engine, swapEvent(testPool1, 101, 2, 50, 123456, 1000)))

	sess = read(t, store)
	swap, ok, err := sess.Swap(ctx, SwapKey(blockHash101, 2))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, PoolKey(testPool1), swap.Pool)
	require.Equal(t, UserKey(testSender), swap.Origin)
	require.Equal(t, "-1000", swap.Amount0.String())
	require.Equal(t, uint64(101), swap.BlockNumber)
	require.True(t, swap.AmountUSD.IsZero())

	pool, _, err = sess.Pool(ctx, PoolKey(testPool1))
	require.NoError(t, err)
	require.Equal(t, int32(50), pool.Tick)
	require.Equal(t, "123456", pool.SqrtPriceX96.String())
	require.Equal(t, "1000", pool.Liquidity.String())

	user, ok, err := sess.User(ctx, UserKey(testSender))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), user.SwapCount)

	stats, _, err = sess.GlobalStats(ctx, model.GlobalStatsID)
	require.NoError(t, err)
	require.Equal(t, uint64(1), stats.TransactionCount)
	require.Equal(t, uint64(1), stats.PoolCount)
	require.Equal(t, meta(101, 2).BlockTimestamp, stats.UpdatedAt)
}

func TestSwapOverwritesPoolState(t *testing.T) {
	engine, store := newTestEngine(t, Config{})
	apply(t, engine, initEvent(testPool1, 100))
	apply(t, engine, swapEvent(testPool1, 101, 1, 50, 123456, 1000))
	apply(t, engine, swapEvent(testPool1, 102, 0, -20, 99999, 400))

	pool, _, err := read(t, store).Pool(context.Background(), PoolKey(testPool1))
	require.NoError(t, err)
	require.Equal(t, int32(-20), pool.Tick)
	require.Equal(t, "99999", pool.SqrtPriceX96.String())
	require.Equal(t, "400", pool.Liquidity.String())
}

func TestLiquidityModifiedRunningSum(t *testing.T) {
	engine, store := newTestEngine(t, Config{})
	ctx := context.Background()
	apply(t, engine, initEvent(testPool1, 100))

	require.Equal(t, OutcomeApplied, apply(t, engine, modifyEvent(testPool1, 101, 0, 500)))
	positionID := PositionKey(testSender, testPool1, -100, 100)

	sess := read(t, store)
	position, ok, err := sess.Position(ctx, positionID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "500", position.Liquidity.String())
	user, _, err := sess.User(ctx, UserKey(testSender))
	require.NoError(t, err)
	require.Equal(t, uint64(1), user.PositionCount)

	require.Equal(t, OutcomeApplied, apply(t, engine, modifyEvent(testPool1, 102, 0, -200)))

	sess = read(t, store)
	position, _, err = sess.Position(ctx, positionID)
	require.NoError(t, err)
	require.Equal(t, "300", position.Liquidity.String())
	require.Equal(t, uint64(101), position.CreatedAtBlock)
	require.Equal(t, uint64(102), position.UpdatedAtBlock)
	user, _, err = sess.User(ctx, UserKey(testSender))
	require.NoError(t, err)
	require.Equal(t, uint64(1), user.PositionCount)
}

func TestLiquidityModifiedClampsFirstDeltaOnly(t *testing.T) {
	engine, store := newTestEngine(t, Config{})
	ctx := context.Background()
	apply(t, engine, initEvent(testPool1, 100))

	apply(t, engine, modifyEvent(testPool1, 101, 0, -50))
	positionID := PositionKey(testSender, testPool1, -100, 100)
	position, ok, err := read(t, store).Position(ctx, positionID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, position.Liquidity.Sign())

	apply(t, engine, modifyEvent(testPool1, 102, 0, -30))
	position, _, err = read(t, store).Position(ctx, positionID)
	require.NoError(t, err)
	require.Equal(t, "-30", position.Liquidity.String())
}

func TestDistinctTickRangesAreDistinctPositions(t *testing.T) {
	engine, store := newTestEngine(t, Config{})
	ctx := context.Background()
	apply(t, engine, initEvent(testPool1, 100))

	first := modifyEvent(testPool1, 101, 0, 100)
	second := modifyEvent(testPool1, 101, 1, 200)
	second.TickLower, second.TickUpper = -10, 10
	apply(t, engine, first)
	apply(t, engine, second)

	user, _, err := read(t, store).User(ctx, UserKey(testSender))
	require.NoError(t, err)
	require.Equal(t, uint64(2), user.PositionCount)
	require.Equal(t, 2, store.Counts()["positions"])
}

func TestOrphanEvents(t *testing.T) {
	engine, store := newTestEngine(t, Config{})
	ctx := context.Background()

	require.Equal(t, OutcomeOrphaned, apply(t, engine, swapEvent(testPool2, 101, 2, 50, 123456, 1000)))
	require.Equal(t, OutcomeOrphaned, apply(t, engine, modifyEvent(testPool2, 101, 3, 500)))

	sess := read(t, store)
	_, ok, err := sess.Swap(ctx, SwapKey(blockHash101, 2))
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = sess.Pool(ctx, PoolKey(testPool2))
	require.NoError(t, err)
	require.False(t, ok, "orphan events must not fabricate a pool")
	_, ok, err = sess.GlobalStats(ctx, model.GlobalStatsID)
	require.NoError(t, err)
	require.False(t, ok)

	user, ok, err := sess.User(ctx, UserKey(testSender))
	require.NoError(t, err)
	require.True(t, ok, "sender is still recorded")
	require.Equal(t, uint64(0), user.SwapCount)
	require.Equal(t, uint64(0), user.PositionCount)
	require.Equal(t, 0, store.Counts()["positions"])
}

func TestPoolReinitializationIsDuplicate(t *testing.T) {
	engine, store := newTestEngine(t, Config{})
	apply(t, engine, initEvent(testPool1, 100))
	apply(t, engine, swapEvent(testPool1, 101, 0, 50, 123456, 1000))

	again := initEvent(testPool1, 105)
	again.Fee = 500
	require.Equal(t, OutcomeDuplicate, apply(t, engine, again))

	sess := read(t, store)
	stats, _, err := sess.GlobalStats(context.Background(), model.GlobalStatsID)
	require.NoError(t, err)
	require.Equal(t, uint64(1), stats.PoolCount)
	pool, _, err := sess.Pool(context.Background(), PoolKey(testPool1))
	require.NoError(t, err)
	require.Equal(t, uint32(3000), pool.Fee)
	require.Equal(t, int32(50), pool.Tick, "running state survives re-initialization")
}

func TestDuplicateSwapNotCountedTwice(t *testing.T) {
	engine, store := newTestEngine(t, Config{})
	apply(t, engine, initEvent(testPool1, 100))
	apply(t, engine, swapEvent(testPool1, 101, 2, 50, 123456, 1000))
	require.Equal(t, OutcomeDuplicate, apply(t, engine, swapEvent(testPool1, 101, 2, 70, 1, 1)))

	sess := read(t, store)
	user, _, err := sess.User(context.Background(), UserKey(testSender))
	require.NoError(t, err)
	require.Equal(t, uint64(1), user.SwapCount)
	pool, _, err := sess.Pool(context.Background(), PoolKey(testPool1))
	require.NoError(t, err)
	require.Equal(t, int32(50), pool.Tick)
}

func TestTokenTransferSupply(t *testing.T) {
	engine, store := newTestEngine(t, Config{})
	ctx := context.Background()
	zero := "0x0000000000000000000000000000000000000000"
	holder := "0x1111111111111111111111111111111111111111"

	require.Equal(t, OutcomeIgnored, apply(t, engine, transferEvent(testToken0, zero, holder, 99, 0, 10)))

	apply(t, engine, initEvent(testPool1, 100))
	require.Equal(t, OutcomeApplied, apply(t, engine, transferEvent(testToken0, zero, holder, 101, 0, 1000)))
	require.Equal(t, OutcomeObserved, apply(t, engine, transferEvent(testToken0, holder, testSender, 101, 1, 400)))
	require.Equal(t, OutcomeApplied, apply(t, engine, transferEvent(testToken0, holder, zero, 101, 2, 250)))

	token, _, err := read(t, store).Token(ctx, TokenKey(testToken0))
	require.NoError(t, err)
	require.Equal(t, "750", token.TotalSupply.String())

	require.Equal(t, OutcomeApplied, apply(t, engine, transferEvent(testToken0, holder, zero, 102, 0, 1000)))
	token, _, err = read(t, store).Token(ctx, TokenKey(testToken0))
	require.NoError(t, err)
	require.Equal(t, "-250", token.TotalSupply.String())
}

func TestProtocolFeeUpdated(t *testing.T) {
	engine, store := newTestEngine(t, Config{})
	event := model.ProtocolFeeUpdatedEvent{Meta: meta(101, 0), PoolID: testPool1, ProtocolFee: 1000}

	require.Equal(t, OutcomeIgnored, apply(t, engine, event))
	apply(t, engine, initEvent(testPool1, 100))
	require.Equal(t, OutcomeApplied, apply(t, engine, event))

	pool, _, err := read(t, store).Pool(context.Background(), PoolKey(testPool1))
	require.NoError(t, err)
	require.Equal(t, uint32(1000), pool.ProtocolFee)
}

func TestObservationalEvents(t *testing.T) {
	engine, store := newTestEngine(t, Config{})
	events := []model.Event{
		model.TokenApprovalEvent{Meta: meta(1, 0), Owner: testSender, Spender: testManager, Value: big.NewInt(1)},
		model.PositionLiquidityIncreasedEvent{Meta: meta(1, 1), TokenID: big.NewInt(7), Liquidity: big.NewInt(1)},
		model.PositionLiquidityDecreasedEvent{Meta: meta(1, 2), TokenID: big.NewInt(7), Liquidity: big.NewInt(1)},
		model.FeesCollectedEvent{Meta: meta(1, 3), TokenID: big.NewInt(7), Recipient: testSender},
	}
	for _, event := range events {
		require.Equal(t, OutcomeObserved, apply(t, engine, event), "kind %s", event.Kind())
	}
	for name, count := range store.Counts() {
		require.Zero(t, count, "unexpected %s written", name)
	}
}

func TestCursorSkipsReplayedEvents(t *testing.T) {
	engine, store := newTestEngine(t, Config{CursorName: "main"})
	ctx := context.Background()

	apply(t, engine, initEvent(testPool1, 100))
	apply(t, engine, swapEvent(testPool1, 101, 2, 50, 123456, 1000))

	require.Equal(t, OutcomeSkipped, apply(t, engine, swapEvent(testPool1, 101, 2, 50, 123456, 1000)))
	require.Equal(t, OutcomeSkipped, apply(t, engine, swapEvent(testPool1, 101, 1, 10, 1, 1)))
	require.Equal(t, OutcomeApplied, apply(t, engine, swapEvent(testPool1, 101, 3, 60, 2, 2)))

	sess := read(t, store)
	cursor, ok, err := sess.Cursor(ctx, "main")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, model.Cursor{BlockNumber: 101, LogIndex: 3}, cursor)

	user, _, err := sess.User(ctx, UserKey(testSender))
	require.NoError(t, err)
	require.Equal(t, uint64(2), user.SwapCount)
}

type stubTokenMeta struct {
	meta map[string]model.TokenMeta
}

func (s stubTokenMeta) TokenMeta(_ context.Context, address string) (model.TokenMeta, error) {
	meta, ok := s.meta[address]
	if !ok {
		return model.TokenMeta{}, errors.New("call reverted")
	}
	return meta, nil
}

func TestTokenMetadataSource(t *testing.T) {
	source := stubTokenMeta{meta: map[string]model.TokenMeta{
		TokenKey(testToken0): {Symbol: "USDC", Name: "USD Coin", Decimals: 6},
	}}
	engine, store := newTestEngine(t, Config{TokenMeta: source})
	apply(t, engine, initEvent(testPool1, 100))

	sess := read(t, store)
	token0, _, err := sess.Token(context.Background(), TokenKey(testToken0))
	require.NoError(t, err)
	require.Equal(t, "USDC", token0.Symbol)
	require.Equal(t, uint8(6), token0.Decimals)

	token1, _, err := sess.Token(context.Background(), TokenKey(testToken1))
	require.NoError(t, err)
	require.Equal(t, "UNKNOWN", token1.Symbol)
	require.Equal(t, "Unknown Token", token1.Name)
	require.Equal(t, uint8(18), token1.Decimals)
}

func TestTokenMetadataSanitized(t *testing.T) {
	source := stubTokenMeta{meta: map[string]model.TokenMeta{
		TokenKey(testToken0): {Symbol: "M\xff\x00K", Name: "Bad\x00 Token\xfe", Decimals: 8},
		TokenKey(testToken1): {Symbol: "\x00\xff", Name: "\x00", Decimals: 6},
	}}
	engine, store := newTestEngine(t, Config{TokenMeta: source})
	apply(t, engine, initEvent(testPool1, 100))

	sess := read(t, store)
	token0, _, err := sess.Token(context.Background(), TokenKey(testToken0))
	require.NoError(t, err)
	require.Equal(t, "MK", token0.Symbol)
	require.Equal(t, "Bad Token", token0.Name)
	require.Equal(t, uint8(8), token0.Decimals)

	token1, _, err := sess.Token(context.Background(), TokenKey(testToken1))
	require.NoError(t, err)
	require.Equal(t, "UNKNOWN", token1.Symbol, "nothing printable left keeps the default")
	require.Equal(t, "Unknown Token", token1.Name)
	require.Equal(t, uint8(6), token1.Decimals)
}

type stubGas struct {
	gas   map[string]model.TxGas
	calls int
}

func (s *stubGas) TxGas(_ context.Context, txHash string) (model.TxGas, error) {
	s.calls++
	gas, ok := s.gas[txHash]
	if !ok {
		return model.TxGas{}, errors.New("receipt not found")
	}
	return gas, nil
}

func TestSwapGasFromReceipts(t *testing.T) {
	source := &stubGas{gas: map[string]model.TxGas{
		"0xaa": {GasUsed: big.NewInt(150000), GasPrice: big.NewInt(2_000_000_000)},
	}}
	engine, store := newTestEngine(t, Config{Gas: source})
	ctx := context.Background()
	apply(t, engine, initEvent(testPool1, 100))

	withReceipt := swapEvent(testPool1, 101, 1, 50, 123456, 1000)
	withReceipt.Meta.TxHash = "0xaa"
	missing := swapEvent(testPool1, 101, 2, 51, 123456, 1000)
	missing.Meta.TxHash = "0xbb"
	noHash := swapEvent(testPool1, 101, 3, 52, 123456, 1000)

	require.Equal(t, OutcomeApplied, apply(t, engine, withReceipt))
	require.Equal(t, OutcomeApplied, apply(t, engine, missing))
	require.Equal(t, OutcomeApplied, apply(t, engine, noHash))
	require.Equal(t, 2, source.calls, "swaps without a tx hash skip the lookup")

	sess := read(t, store)
	swap, _, err := sess.Swap(ctx, SwapKey(blockHash101, 1))
	require.NoError(t, err)
	require.Equal(t, "150000", swap.GasUsed.String())
	require.Equal(t, "2000000000", swap.GasPrice.String())

	for _, logIndex := range []uint64{2, 3} {
		swap, ok, err := sess.Swap(ctx, SwapKey(blockHash101, logIndex))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 0, swap.GasUsed.Sign())
		require.Equal(t, 0, swap.GasPrice.Sign())
	}
}

func TestSwapGasDisabledByDefault(t *testing.T) {
	engine, store := newTestEngine(t, Config{})
	apply(t, engine, initEvent(testPool1, 100))
	event := swapEvent(testPool1, 101, 1, 50, 123456, 1000)
	event.Meta.TxHash = "0xaa"
	apply(t, engine, event)

	swap, _, err := read(t, store).Swap(context.Background(), SwapKey(blockHash101, 1))
	require.NoError(t, err)
	require.Equal(t, 0, swap.GasUsed.Sign())
	require.Equal(t, 0, swap.GasPrice.Sign())
}

func TestResumeBlock(t *testing.T) {
	ctx := context.Background()

	untracked, _ := newTestEngine(t, Config{})
	apply(t, untracked, initEvent(testPool1, 100))
	_, ok, err := untracked.ResumeBlock(ctx)
	require.NoError(t, err)
	require.False(t, ok, "no cursor name means no resume point")

	engine, _ := newTestEngine(t, Config{CursorName: "main"})
	_, ok, err = engine.ResumeBlock(ctx)
	require.NoError(t, err)
	require.False(t, ok, "nothing applied yet")

	apply(t, engine, initEvent(testPool1, 100))
	apply(t, engine, swapEvent(testPool1, 101, 2, 50, 123456, 1000))
	block, ok, err := engine.ResumeBlock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(101), block)
}

// failingStore fails every PutGlobalStats so swaps error after partial writes.
type failingStore struct {
	*memory.Store
}

func (f failingStore) Begin(ctx context.Context) (storage.Session, error) {
	sess, err := f.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return failingSession{Session: sess}, nil
}

type failingSession struct {
	storage.Session
}

func (failingSession) PutGlobalStats(context.Context, model.GlobalStats) error {
	return errors.New("disk full")
}

func TestStoreFailureRollsBackEvent(t *testing.T) {
	store := memory.NewStore()
	healthy := NewEngine(Config{}, store, zap.NewNop())
	_, err := healthy.Apply(context.Background(), initEvent(testPool1, 100))
	require.NoError(t, err)

	broken := NewEngine(Config{CursorName: "main"}, failingStore{Store: store}, zap.NewNop())
	_, err = broken.Apply(context.Background(), swapEvent(testPool1, 101, 2, 50, 123456, 1000))
	require.Error(t, err)

	sess := read(t, store)
	_, ok, err := sess.Swap(context.Background(), SwapKey(blockHash101, 2))
	require.NoError(t, err)
	require.False(t, ok)
	pool, _, err := sess.Pool(context.Background(), PoolKey(testPool1))
	require.NoError(t, err)
	require.Equal(t, int32(0), pool.Tick)
	_, ok, err = sess.Cursor(context.Background(), "main")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	engine, _ := newTestEngine(t, Config{Metrics: metrics})

	apply(t, engine, initEvent(testPool1, 100))
	apply(t, engine, swapEvent(testPool2, 101, 0, 1, 1, 1))

	require.Equal(t, 1.0, gatherValue(t, reg, "poolgraph_events_total", map[string]string{"kind": "pool_initialized", "outcome": "applied"}))
	require.Equal(t, 1.0, gatherValue(t, reg, "poolgraph_events_total", map[string]string{"kind": "swap", "outcome": "orphaned"}))
	require.Equal(t, 101.0, gatherValue(t, reg, "poolgraph_last_applied_block", nil))
}

func gatherValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					continue metrics
				}
			}
			if counter := metric.GetCounter(); counter != nil {
				return counter.GetValue()
			}
			return metric.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}
