package dex

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"poolGraph/internal/model"
)

// ErrUnsupportedLog marks logs the decoder deliberately does not handle.
var ErrUnsupportedLog = errors.New("unsupported log")

type eventSource int

const (
	sourcePoolManager eventSource = iota
	sourcePositionManager
	sourceERC20
)

type route struct {
	source eventSource
	event  abi.Event
}

// Decoder turns raw logs from the pool manager, the position manager and
// ERC20 tokens into typed events.
type Decoder struct {
	routes map[string]route
}

// NewDecoder builds a decoder for every supported event signature.
func NewDecoder() (*Decoder, error) {
	poolABI, err := PoolManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool manager abi: %w", err)
	}
	positionABI, err := PositionManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse position manager abi: %w", err)
	}
	erc20ABI, err := ERC20EventsABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	routes := make(map[string]route)
	add := func(source eventSource, parsed abi.ABI, names ...string) {
		for _, name := range names {
			event := parsed.Events[name]
			routes[strings.ToLower(event.ID.Hex())] = route{source: source, event: event}
		}
	}
	add(sourcePoolManager, poolABI, "Initialize", "Swap", "ModifyLiquidity", "ProtocolFeeUpdated")
	add(sourcePositionManager, positionABI, "IncreaseLiquidity", "DecreaseLiquidity", "Collect")
	add(sourceERC20, erc20ABI, "Transfer", "Approval")

	return &Decoder{routes: routes}, nil
}

// CanDecode checks if the topic0 is supported.
func (d *Decoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.routes[strings.ToLower(topic0)]
	return ok
}

// Topic0s returns every supported event signature, sorted.
func (d *Decoder) Topic0s() []common.Hash {
	out := make([]common.Hash, 0, len(d.routes))
	for _, r := range d.routes {
		out = append(out, r.event.ID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}

// Decode converts a LogRecord into a model.Event.
func (d *Decoder) Decode(log model.LogRecord) (model.Event, error) {
	topic0 := log.Topic0()
	if topic0 == "" {
		return nil, fmt.Errorf("missing topic0")
	}
	r, ok := d.routes[strings.ToLower(topic0)]
	if !ok {
		return nil, fmt.Errorf("%w: topic0 %s", ErrUnsupportedLog, topic0)
	}
	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid emitter address: %s", log.Address)
	}
	// ERC721 shares the Transfer/Approval signatures but indexes the third argument.
	if r.source == sourceERC20 && len(log.Topics) == 4 {
		return nil, fmt.Errorf("%w: erc721 %s", ErrUnsupportedLog, r.event.Name)
	}

	values, err := unpackLog(r.event, log)
	if err != nil {
		return nil, err
	}

	meta := model.EventMeta{
		BlockNumber:    log.BlockNumber,
		BlockTimestamp: log.Timestamp,
		BlockHash:      log.BlockHash,
		TxHash:         log.TxHash,
		LogIndex:       log.LogIndex,
		Address:        log.Address,
	}
	v := valueReader{values: values}

	var event model.Event
	switch r.event.Name {
	case "Initialize":
		event = model.PoolInitializedEvent{
			Meta:        meta,
			PoolID:      v.hash("id"),
			Currency0:   v.address("currency0"),
			Currency1:   v.address("currency1"),
			Fee:         v.uint24("fee"),
			TickSpacing: v.int24("tickSpacing"),
			Hooks:       v.address("hooks"),
		}
	case "Swap":
		event = model.SwapEvent{
			Meta:         meta,
			PoolID:       v.hash("id"),
			Sender:       v.address("sender"),
			Amount0:      v.bigInt("amount0"),
			Amount1:      v.bigInt("amount1"),
			SqrtPriceX96: v.bigInt("sqrtPriceX96"),
			Liquidity:    v.bigInt("liquidity"),
			Tick:         v.int24("tick"),
		}
	case "ModifyLiquidity":
		event = model.LiquidityModifiedEvent{
			Meta:           meta,
			PoolID:         v.hash("id"),
			Sender:         v.address("sender"),
			TickLower:      v.int24("tickLower"),
			TickUpper:      v.int24("tickUpper"),
			LiquidityDelta: v.bigInt("liquidityDelta"),
			Salt:           v.hash("salt"),
		}
	case "ProtocolFeeUpdated":
		event = model.ProtocolFeeUpdatedEvent{
			Meta:        meta,
			PoolID:      v.hash("id"),
			ProtocolFee: v.uint24("protocolFee"),
		}
	case "IncreaseLiquidity":
		event = model.PositionLiquidityIncreasedEvent{
			Meta:      meta,
			TokenID:   v.bigInt("tokenId"),
			Liquidity: v.bigInt("liquidity"),
			Amount0:   v.bigInt("amount0"),
			Amount1:   v.bigInt("amount1"),
		}
	case "DecreaseLiquidity":
		event = model.PositionLiquidityDecreasedEvent{
			Meta:      meta,
			TokenID:   v.bigInt("tokenId"),
			Liquidity: v.bigInt("liquidity"),
			Amount0:   v.bigInt("amount0"),
			Amount1:   v.bigInt("amount1"),
		}
	case "Collect":
		event = model.FeesCollectedEvent{
			Meta:      meta,
			TokenID:   v.bigInt("tokenId"),
			Recipient: v.address("recipient"),
			Amount0:   v.bigInt("amount0"),
			Amount1:   v.bigInt("amount1"),
		}
	case "Transfer":
		event = model.TokenTransferEvent{
			Meta:  meta,
			From:  v.address("from"),
			To:    v.address("to"),
			Value: v.bigInt("value"),
		}
	case "Approval":
		event = model.TokenApprovalEvent{
			Meta:    meta,
			Owner:   v.address("owner"),
			Spender: v.address("spender"),
			Value:   v.bigInt("value"),
		}
	default:
		return nil, fmt.Errorf("unsupported event name: %s", r.event.Name)
	}

	if v.err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.event.Name, v.err)
	}
	return event, nil
}

func unpackLog(event abi.Event, log model.LogRecord) (map[string]interface{}, error) {
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return nil, err
	}

	values := make(map[string]interface{}, len(event.Inputs))
	if err := abi.ParseTopicsIntoMap(values, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	nonIndexed := event.Inputs.NonIndexed()
	if len(nonIndexed) == 0 {
		return values, nil
	}
	data, err := hexutil.Decode(log.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	if err := nonIndexed.UnpackIntoMap(values, data); err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

// valueReader extracts typed fields from unpacked ABI values, keeping the
// first conversion error.
type valueReader struct {
	values map[string]interface{}
	err    error
}

func (r *valueReader) fail(name string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%s: %w", name, err)
	}
}

func (r *valueReader) get(name string) (interface{}, bool) {
	value, ok := r.values[name]
	if !ok {
		r.fail(name, fmt.Errorf("missing value"))
	}
	return value, ok
}

func (r *valueReader) bigInt(name string) *big.Int {
	value, ok := r.get(name)
	if !ok {
		return nil
	}
	out, err := asBigInt(value)
	if err != nil {
		r.fail(name, err)
		return nil
	}
	return out
}

func (r *valueReader) address(name string) string {
	value, ok := r.get(name)
	if !ok {
		return ""
	}
	addr, err := asAddress(value)
	if err != nil {
		r.fail(name, err)
		return ""
	}
	return addr.Hex()
}

func (r *valueReader) hash(name string) string {
	value, ok := r.get(name)
	if !ok {
		return ""
	}
	hash, err := asHash(value)
	if err != nil {
		r.fail(name, err)
		return ""
	}
	return hash.Hex()
}

func (r *valueReader) int24(name string) int32 {
	value := r.bigInt(name)
	if value == nil {
		return 0
	}
	out, err := int24FromBig(value)
	if err != nil {
		r.fail(name, err)
		return 0
	}
	return out
}

func (r *valueReader) uint24(name string) uint32 {
	value := r.bigInt(name)
	if value == nil {
		return 0
	}
	out, err := uint24FromBig(value)
	if err != nil {
		r.fail(name, err)
		return 0
	}
	return out
}
