package models

import "time"

// Freshness classifies the age of a subsystem's last successful update.
type Freshness string

const (
	Fresh  Freshness = "fresh"
	Stale  Freshness = "stale"
	Failed Freshness = "failed"
)

// HealthLevel is the single coarse indicator shown by the renderer.
type HealthLevel string

const (
	HealthGreen  HealthLevel = "green"
	HealthOrange HealthLevel = "orange"
	HealthRed    HealthLevel = "red"
)

// SubsystemHealth describes one data source's freshness.
type SubsystemHealth struct {
	LastSuccess time.Time     `json:"last_success"`
	Age         time.Duration `json:"age"`
	Freshness   Freshness     `json:"freshness"`
}

// HealthReport is the full freshness picture across subsystems. Miners is
// only meaningful when MinersTracked is set; a hidden miner subsystem does
// not participate in the overall indicator.
type HealthReport struct {
	Prices        SubsystemHealth `json:"prices"`
	Miners        SubsystemHealth `json:"miners"`
	Network       SubsystemHealth `json:"network"`
	MinersTracked bool            `json:"miners_tracked"`
	Overall       HealthLevel     `json:"overall"`
}
