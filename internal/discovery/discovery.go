// Package discovery finds candidate liquidity pools pairing a target token
// with the native asset, across the supported pool-index APIs.
package discovery

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"rateScope/internal/model"
)

// Index is one upstream pool-index API. Discover returns every pool that
// pairs the target mint with the native asset. Upstream failures degrade
// the result set and are logged; Discover never returns an error.
type Index interface {
	Discover(ctx context.Context, target solana.PublicKey) []model.PoolSummary
}

// DiscoverAll collects candidates from every index and deduplicates them
// by pool address, keeping first-seen order.
func DiscoverAll(ctx context.Context, indexes []Index, target solana.PublicKey) []model.PoolSummary {
	seen := make(map[string]struct{})
	pools := make([]model.PoolSummary, 0)
	for _, index := range indexes {
		for _, pool := range index.Discover(ctx, target) {
			if _, ok := seen[pool.Address]; ok {
				continue
			}
			seen[pool.Address] = struct{}{}
			pools = append(pools, pool)
		}
	}
	return pools
}
