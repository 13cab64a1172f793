package discovery

import (
	"testing"

	"rateScope/internal/model"
)

func TestSelectBestPicksMaxTVL(t *testing.T) {
	pools := []model.PoolSummary{
		{Address: "A", TVL: "100"},
		{Address: "B", TVL: "500"},
		{Address: "C", TVL: "250"},
	}

	best, ok := SelectBest(pools)
	if !ok {
		t.Fatalf("expected a selection")
	}
	if best.Address != "B" {
		t.Fatalf("selected %s, want B", best.Address)
	}
}

func TestSelectBestTieKeepsFirst(t *testing.T) {
	pools := []model.PoolSummary{
		{Address: "first", TVL: "500"},
		{Address: "second", TVL: "500"},
	}

	best, ok := SelectBest(pools)
	if !ok {
		t.Fatalf("expected a selection")
	}
	if best.Address != "first" {
		t.Fatalf("tie broke to %s, want first", best.Address)
	}
}

func TestSelectBestUnparseableTVLRanksZero(t *testing.T) {
	pools := []model.PoolSummary{
		{Address: "garbage", TVL: "not-a-number"},
		{Address: "small", TVL: "0.01"},
	}

	best, ok := SelectBest(pools)
	if !ok {
		t.Fatalf("expected a selection")
	}
	if best.Address != "small" {
		t.Fatalf("selected %s, want small", best.Address)
	}

	// All-zero candidates still select the first, never skip.
	pools = []model.PoolSummary{
		{Address: "only", TVL: ""},
	}
	best, ok = SelectBest(pools)
	if !ok || best.Address != "only" {
		t.Fatalf("zero-TVL pool not selected: %+v ok=%v", best, ok)
	}
}

func TestSelectBestEmpty(t *testing.T) {
	if _, ok := SelectBest(nil); ok {
		t.Fatalf("expected no selection for empty input")
	}
}
