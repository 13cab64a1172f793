package discovery

import (
	"rateScope/internal/amount"
	"rateScope/internal/model"
)

// SelectBest returns the candidate with the highest TVL. Ties keep the
// first pool encountered (strict greater-than scan), and unparseable TVL
// values rank as zero rather than disqualifying a pool. The second return
// is false when no candidates exist.
func SelectBest(pools []model.PoolSummary) (model.PoolSummary, bool) {
	if len(pools) == 0 {
		return model.PoolSummary{}, false
	}

	best := pools[0]
	bestTVL := amount.ParseOrZero(best.TVL)
	for _, pool := range pools[1:] {
		if tvl := amount.ParseOrZero(pool.TVL); tvl.GreaterThan(bestTVL) {
			best = pool
			bestTVL = tvl
		}
	}
	return best, true
}
