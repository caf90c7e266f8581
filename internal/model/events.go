package model

import "math/big"

// EventKind names an event variant. Values double as metric labels.
type EventKind string

const (
	KindPoolInitialized            EventKind = "pool_initialized"
	KindSwap                       EventKind = "swap"
	KindLiquidityModified          EventKind = "liquidity_modified"
	KindProtocolFeeUpdated         EventKind = "protocol_fee_updated"
	KindTokenTransfer              EventKind = "token_transfer"
	KindTokenApproval              EventKind = "token_approval"
	KindPositionLiquidityIncreased EventKind = "position_liquidity_increased"
	KindPositionLiquidityDecreased EventKind = "position_liquidity_decreased"
	KindFeesCollected              EventKind = "fees_collected"
)

// EventMeta is the log context shared by every event.
type EventMeta struct {
	BlockNumber    uint64 `json:"block_number"`
	BlockTimestamp uint64 `json:"block_timestamp"`
	BlockHash      string `json:"block_hash"`
	TxHash         string `json:"tx_hash"`
	LogIndex       uint64 `json:"log_index"`
	Address        string `json:"address"`
}

// Cursor returns the chain position of the event.
func (m EventMeta) Cursor() Cursor {
	return Cursor{BlockNumber: m.BlockNumber, LogIndex: m.LogIndex}
}

// Event is the closed set of decoded events. Only types in this file implement it.
type Event interface {
	Kind() EventKind
	Metadata() EventMeta
	isEvent()
}

// PoolInitializedEvent is emitted by the pool manager when a pool is created.
type PoolInitializedEvent struct {
	Meta        EventMeta
	PoolID      string
	Currency0   string
	Currency1   string
	Fee         uint32
	TickSpacing int32
	Hooks       string
}

// SwapEvent carries the pool state after a swap.
type SwapEvent struct {
	Meta         EventMeta
	PoolID       string
	Sender       string
	Amount0      *big.Int
	Amount1      *big.Int
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
	Tick         int32
}

// LiquidityModifiedEvent is a signed liquidity change over a tick range.
type LiquidityModifiedEvent struct {
	Meta           EventMeta
	PoolID         string
	Sender         string
	TickLower      int32
	TickUpper      int32
	LiquidityDelta *big.Int
	Salt           string
}

// ProtocolFeeUpdatedEvent sets a pool's protocol fee.
type ProtocolFeeUpdatedEvent struct {
	Meta        EventMeta
	PoolID      string
	ProtocolFee uint32
}

// TokenTransferEvent is an ERC-20 Transfer; Meta.Address is the token contract.
type TokenTransferEvent struct {
	Meta  EventMeta
	From  string
	To    string
	Value *big.Int
}

// TokenApprovalEvent is an ERC-20 Approval.
type TokenApprovalEvent struct {
	Meta    EventMeta
	Owner   string
	Spender string
	Value   *big.Int
}

// PositionLiquidityIncreasedEvent is the position manager's IncreaseLiquidity.
type PositionLiquidityIncreasedEvent struct {
	Meta      EventMeta
	TokenID   *big.Int
	Liquidity *big.Int
	Amount0   *big.Int
	Amount1   *big.Int
}

// PositionLiquidityDecreasedEvent is the position manager's DecreaseLiquidity.
type PositionLiquidityDecreasedEvent struct {
	Meta      EventMeta
	TokenID   *big.Int
	Liquidity *big.Int
	Amount0   *big.Int
	Amount1   *big.Int
}

// FeesCollectedEvent is the position manager's Collect.
type FeesCollectedEvent struct {
	Meta      EventMeta
	TokenID   *big.Int
	Recipient string
	Amount0   *big.Int
	Amount1   *big.Int
}

func (e PoolInitializedEvent) Kind() EventKind            { return KindPoolInitialized }
func (e SwapEvent) Kind() EventKind                       { return KindSwap }
func (e LiquidityModifiedEvent) Kind() EventKind          { return KindLiquidityModified }
func (e ProtocolFeeUpdatedEvent) Kind() EventKind         { return KindProtocolFeeUpdated }
func (e TokenTransferEvent) Kind() EventKind              { return KindTokenTransfer }
func (e TokenApprovalEvent) Kind() EventKind              { return KindTokenApproval }
func (e PositionLiquidityIncreasedEvent) Kind() EventKind { return KindPositionLiquidityIncreased }
func (e PositionLiquidityDecreasedEvent) Kind() EventKind { return KindPositionLiquidityDecreased }
func (e FeesCollectedEvent) Kind() EventKind              { return KindFeesCollected }

func (e PoolInitializedEvent) Metadata() EventMeta            { return e.Meta }
func (e SwapEvent) Metadata() EventMeta                       { return e.Meta }
func (e LiquidityModifiedEvent) Metadata() EventMeta          { return e.Meta }
func (e ProtocolFeeUpdatedEvent) Metadata() EventMeta         { return e.Meta }
func (e TokenTransferEvent) Metadata() EventMeta              { return e.Meta }
func (e TokenApprovalEvent) Metadata() EventMeta              { return e.Meta }
func (e PositionLiquidityIncreasedEvent) Metadata() EventMeta { return e.Meta }
func (e PositionLiquidityDecreasedEvent) Metadata() EventMeta { return e.Meta }
func (e FeesCollectedEvent) Metadata() EventMeta              { return e.Meta }

func (PoolInitializedEvent) isEvent()            {}
func (SwapEvent) isEvent()                       {}
func (LiquidityModifiedEvent) isEvent()          {}
func (ProtocolFeeUpdatedEvent) isEvent()         {}
func (TokenTransferEvent) isEvent()              {}
func (TokenApprovalEvent) isEvent()              {}
func (PositionLiquidityIncreasedEvent) isEvent() {}
func (PositionLiquidityDecreasedEvent) isEvent() {}
func (FeesCollectedEvent) isEvent()              {}
