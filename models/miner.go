package models

import "time"

// MinerReading is the last known state of one local miner, keyed by host.
// An unreachable miner keeps its last known hashrate and best difficulty
// so the display can decay gracefully instead of dropping to zero.
type MinerReading struct {
	Host           string    `json:"host"`
	HashrateTH     float64   `json:"hashrate_th"`
	BestDifficulty float64   `json:"best_difficulty"`
	LastSeen       time.Time `json:"last_seen"`
	Reachable      bool      `json:"reachable"`
}

// MinerHealth is the coarse tier of the local miner fleet.
type MinerHealth string

const (
	// MinerHidden means no miners are configured; the subsystem does not
	// exist, which is distinct from every miner being down.
	MinerHidden   MinerHealth = "hidden"
	MinerHealthy  MinerHealth = "healthy"
	MinerDegraded MinerHealth = "degraded"
	MinerDown     MinerHealth = "down"
)

// MinerAggregate is derived from the current reading set on every read;
// it is never stored.
type MinerAggregate struct {
	TotalHashrateTH float64     `json:"total_hashrate_th"`
	BestDifficulty  float64     `json:"best_difficulty"`
	ReachableCount  int         `json:"reachable_count"`
	ActiveCount     int         `json:"active_count"`
	TotalCount      int         `json:"total_count"`
	Health          MinerHealth `json:"health"`
}
