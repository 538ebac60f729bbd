package miners

import "crypto-ticker-core/models"

// Aggregate reduces the current reading set to one fleet-wide view. It is a
// pure function invoked on every read, never cached.
//
// Total hashrate sums reachable miners only. Best difficulty is the maximum
// across all readings, reachable or not: it is an achieved result for the
// session, not a live gauge. A miner counts as active when it is reachable
// and hashing at or above the configured floor.
func Aggregate(readings []models.MinerReading, configured int, activeThreshold float64) models.MinerAggregate {
	agg := models.MinerAggregate{TotalCount: configured}
	if configured == 0 {
		agg.Health = models.MinerHidden
		return agg
	}

	for _, r := range readings {
		if r.BestDifficulty > agg.BestDifficulty {
			agg.BestDifficulty = r.BestDifficulty
		}
		if !r.Reachable {
			continue
		}
		agg.ReachableCount++
		agg.TotalHashrateTH += r.HashrateTH
		if r.HashrateTH >= activeThreshold {
			agg.ActiveCount++
		}
	}

	switch {
	case agg.ReachableCount == 0:
		agg.Health = models.MinerDown
	case agg.ReachableCount == configured && agg.ActiveCount == configured:
		agg.Health = models.MinerHealthy
	default:
		agg.Health = models.MinerDegraded
	}
	return agg
}
