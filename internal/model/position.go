package model

import "math/big"

// Position is an owner's liquidity in one pool over one tick range.
// Liquidity is signed: it is the running sum of every delta applied to the range.
type Position struct {
	ID                  string   `json:"id"`
	Owner               string   `json:"owner"`
	Pool                string   `json:"pool"`
	TickLower           int32    `json:"tick_lower"`
	TickUpper           int32    `json:"tick_upper"`
	Liquidity           *big.Int `json:"liquidity"`
	DepositedToken0     *big.Int `json:"deposited_token0"`
	DepositedToken1     *big.Int `json:"deposited_token1"`
	WithdrawnToken0     *big.Int `json:"withdrawn_token0"`
	WithdrawnToken1     *big.Int `json:"withdrawn_token1"`
	CollectedFeesToken0 *big.Int `json:"collected_fees_token0"`
	CollectedFeesToken1 *big.Int `json:"collected_fees_token1"`
	CreatedAt           uint64   `json:"created_at"`
	CreatedAtBlock      uint64   `json:"created_at_block"`
	UpdatedAt           uint64   `json:"updated_at"`
	UpdatedAtBlock      uint64   `json:"updated_at_block"`
}
