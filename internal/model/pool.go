package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Pool is a liquidity venue registered with the pool manager.
type Pool struct {
	ID                   string          `json:"id"`
	Token0               string          `json:"token0"`
	Token1               string          `json:"token1"`
	Fee                  uint32          `json:"fee"`
	TickSpacing          int32           `json:"tick_spacing"`
	Hooks                string          `json:"hooks"`
	PoolManager          string          `json:"pool_manager"`
	ProtocolFee          uint32          `json:"protocol_fee"`
	Tick                 int32           `json:"tick"`
	SqrtPriceX96         *big.Int        `json:"sqrt_price_x96"`
	Liquidity            *big.Int        `json:"liquidity"`
	FeeGrowthGlobal0X128 *big.Int        `json:"fee_growth_global0_x128"`
	FeeGrowthGlobal1X128 *big.Int        `json:"fee_growth_global1_x128"`
	CreatedAt            uint64          `json:"created_at"`
	CreatedAtBlock       uint64          `json:"created_at_block"`
	VolumeUSD            decimal.Decimal `json:"volume_usd"`
	TVLUSD               decimal.Decimal `json:"tvl_usd"`
}
