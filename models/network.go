package models

import "time"

// NetworkStats is one observation of Bitcoin network statistics.
type NetworkStats struct {
	FeeSatVB    float64   `json:"fee_sat_vb"`
	BlockHeight int64     `json:"block_height"`
	MiningPool  string    `json:"mining_pool"`
	HashrateEH  float64   `json:"hashrate_eh"`
	Difficulty  float64   `json:"difficulty"`
	ObservedAt  time.Time `json:"observed_at"`
}
