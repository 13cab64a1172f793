package discovery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"rateScope/internal/model"
)

func TestDLMMIndexDiscoverFiltersPairs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pair/all" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]dlmmRecord{
			{Address: "xy", Name: "TKN-SOL", MintX: testTarget.String(), MintY: testNative.String(), Liquidity: "150", BinStep: 25, BaseFeePct: "0.1"},
			{Address: "yx", Name: "SOL-TKN", MintX: testNative.String(), MintY: testTarget.String(), Liquidity: "80", BinStep: 10},
			{Address: "unrelated", Name: "TKN-USDC", MintX: testTarget.String(), MintY: testOther.String(), Liquidity: "999"},
			// Duplicate address must be kept once.
			{Address: "xy", Name: "TKN-SOL", MintX: testTarget.String(), MintY: testNative.String(), Liquidity: "150"},
		})
	}))
	defer srv.Close()

	idx := NewDLMMIndex(srv.URL, testNative, nil)
	pools := idx.Discover(context.Background(), testTarget)

	if len(pools) != 2 {
		t.Fatalf("got %d pools, want 2: %+v", len(pools), pools)
	}
	if pools[0].Address != "xy" || pools[1].Address != "yx" {
		t.Fatalf("unexpected pools: %+v", pools)
	}
	if pools[0].Source != model.SourceDLMM {
		t.Fatalf("source %s, want %s", pools[0].Source, model.SourceDLMM)
	}
	if pools[0].BinStep != 25 || pools[0].BaseFeePct != "0.1" {
		t.Fatalf("bin metadata not carried: %+v", pools[0])
	}
}

func TestDLMMIndexDiscoverDegradesOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	idx := NewDLMMIndex(srv.URL, testNative, nil)
	if pools := idx.Discover(context.Background(), testTarget); len(pools) != 0 {
		t.Fatalf("expected no pools from failing index, got %+v", pools)
	}
}
