package model

import "math/big"

// TxGas is the gas a transaction consumed and the price it paid per unit.
type TxGas struct {
	GasUsed  *big.Int `json:"gas_used"`
	GasPrice *big.Int `json:"gas_price"`
}
