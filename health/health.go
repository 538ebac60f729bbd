package health

import (
	"time"

	"crypto-ticker-core/models"
)

// failedFactor is how many timeouts must elapse before a stale subsystem is
// considered failed rather than merely stale.
const failedFactor = 2

// Inputs carries the last-success timestamps and per-subsystem timeouts the
// classification runs against.
type Inputs struct {
	Now time.Time

	PriceLastSuccess   time.Time
	MinerLastSuccess   time.Time
	NetworkLastSuccess time.Time

	PriceTimeout   time.Duration
	MinerTimeout   time.Duration
	NetworkTimeout time.Duration

	MinersTracked bool
}

// Classify derives the freshness of every subsystem and the single coarse
// indicator from the given timestamps. It is a pure function with no side
// effects and may be called at any frequency.
func Classify(in Inputs) models.HealthReport {
	report := models.HealthReport{
		Prices:        classifyOne(in.Now, in.PriceLastSuccess, in.PriceTimeout),
		Network:       classifyOne(in.Now, in.NetworkLastSuccess, in.NetworkTimeout),
		MinersTracked: in.MinersTracked,
	}
	if in.MinersTracked {
		report.Miners = classifyOne(in.Now, in.MinerLastSuccess, in.MinerTimeout)
	}

	tracked := []models.SubsystemHealth{report.Prices, report.Network}
	if in.MinersTracked {
		tracked = append(tracked, report.Miners)
	}

	exceeded := 0
	for _, s := range tracked {
		if s.Freshness != models.Fresh {
			exceeded++
		}
	}
	switch exceeded {
	case 0:
		report.Overall = models.HealthGreen
	case len(tracked):
		report.Overall = models.HealthRed
	default:
		report.Overall = models.HealthOrange
	}

	return report
}

func classifyOne(now, lastSuccess time.Time, timeout time.Duration) models.SubsystemHealth {
	s := models.SubsystemHealth{LastSuccess: lastSuccess}
	if lastSuccess.IsZero() {
		s.Freshness = models.Failed
		return s
	}

	s.Age = now.Sub(lastSuccess)
	switch {
	case s.Age <= timeout:
		s.Freshness = models.Fresh
	case s.Age <= failedFactor*timeout:
		s.Freshness = models.Stale
	default:
		s.Freshness = models.Failed
	}
	return s
}
