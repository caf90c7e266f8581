package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Swap is an immutable record of a single swap event.
// Transaction holds the block hash, matching the swap key. Gas fields stay
// zero unless receipt enrichment is enabled.
type Swap struct {
	ID           string          `json:"id"`
	Transaction  string          `json:"transaction"`
	Pool         string          `json:"pool"`
	Origin       string          `json:"origin"`
	Recipient    string          `json:"recipient"`
	Amount0      *big.Int        `json:"amount0"`
	Amount1      *big.Int        `json:"amount1"`
	AmountUSD    decimal.Decimal `json:"amount_usd"`
	Tick         int32           `json:"tick"`
	SqrtPriceX96 *big.Int        `json:"sqrt_price_x96"`
	Liquidity    *big.Int        `json:"liquidity"`
	GasUsed      *big.Int        `json:"gas_used"`
	GasPrice     *big.Int        `json:"gas_price"`
	Timestamp    uint64          `json:"timestamp"`
	BlockNumber  uint64          `json:"block_number"`
	LogIndex     uint64          `json:"log_index"`
}
