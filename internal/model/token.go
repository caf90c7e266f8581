package model

import "math/big"

// Token is an ERC-20 contract referenced by at least one pool.
// TotalSupply only reflects mints and burns observed after the record was created.
type Token struct {
	ID          string   `json:"id"`
	Symbol      string   `json:"symbol"`
	Name        string   `json:"name"`
	Decimals    uint8    `json:"decimals"`
	TotalSupply *big.Int `json:"total_supply"`
}
