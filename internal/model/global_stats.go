package model

import "github.com/shopspring/decimal"

// GlobalStatsID is the key of the singleton GlobalStats record.
const GlobalStatsID = "1"

// GlobalStats holds process-wide rollups.
type GlobalStats struct {
	ID               string          `json:"id"`
	PoolCount        uint64          `json:"pool_count"`
	TransactionCount uint64          `json:"transaction_count"`
	TotalVolumeUSD   decimal.Decimal `json:"total_volume_usd"`
	TotalTVL         decimal.Decimal `json:"total_tvl"`
	UpdatedAt        uint64          `json:"updated_at"`
}
