package model

// User is a wallet address seen as a swapper or liquidity owner.
type User struct {
	ID            string `json:"id"`
	PositionCount uint64 `json:"position_count"`
	SwapCount     uint64 `json:"swap_count"`
}
