package watch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"rateScope/internal/discovery"
	"rateScope/internal/model"
	"rateScope/internal/quote"
	"rateScope/internal/storage"
)

var (
	testTarget = solana.PublicKeyFromBytes(bytes.Repeat([]byte{7}, 32))
	testNative = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
)

type fakeIndex struct {
	pools []model.PoolSummary
}

func (f fakeIndex) Discover(context.Context, solana.PublicKey) []model.PoolSummary {
	return f.pools
}

type fakeQuoter struct {
	source model.PoolSource
	res    *quote.Result
	err    error
	panics bool

	lastPool model.PoolSummary
}

func (f *fakeQuoter) Source() model.PoolSource { return f.source }

func (f *fakeQuoter) Quote(_ context.Context, pool model.PoolSummary, _ quote.Context) (*quote.Result, error) {
	f.lastPool = pool
	if f.panics {
		panic("quote blew up")
	}
	return f.res, f.err
}

type fakeChainInfo struct {
	slot, epoch uint64
	err         error
}

func (f fakeChainInfo) CurrentSlot(context.Context) (uint64, error)  { return f.slot, f.err }
func (f fakeChainInfo) CurrentEpoch(context.Context) (uint64, error) { return f.epoch, f.err }

type memSink struct {
	observations []model.PriceObservation
}

func (m *memSink) Append(_ context.Context, obs model.PriceObservation) error {
	m.observations = append(m.observations, obs)
	return nil
}

func testConfig() Config {
	return Config{
		Target:         testTarget,
		Native:         testNative,
		NativeSymbol:   "SOL",
		NativeDecimals: 9,
		Interval:       time.Millisecond,
		SlippageBps:    50,
	}
}

func TestRunCycleSelectsMostLiquidPoolAndNormalizes(t *testing.T) {
	index := fakeIndex{pools: []model.PoolSummary{
		{Address: "A", Source: model.SourceWhirlpool, TVL: "100"},
		{Address: "B", Source: model.SourceWhirlpool, TVL: "500"},
	}}
	quoter := &fakeQuoter{
		source: model.SourceWhirlpool,
		res: &quote.Result{
			Quote:       model.Quote{AmountOut: 2_500_000, FeeAmount: 500_000},
			OutDecimals: 6,
			Symbol:      "TKN",
		},
	}

	r := NewRunner(testConfig(), []discovery.Index{index}, []quote.Quoter{quoter}, fakeChainInfo{slot: 42, epoch: 7}, nil, &bytes.Buffer{}, nil)
	obs := r.RunCycle(context.Background())

	if obs.Error != "" {
		t.Fatalf("unexpected error: %s", obs.Error)
	}
	if quoter.lastPool.Address != "B" {
		t.Fatalf("quoted pool %s, want B", quoter.lastPool.Address)
	}
	if obs.AmountOutPerSol != "2.500000" {
		t.Fatalf("amount out = %s, want 2.500000", obs.AmountOutPerSol)
	}
	if obs.FeePaid != "0.000500000" {
		t.Fatalf("fee = %s, want 0.000500000", obs.FeePaid)
	}
	if obs.TokenSymbol != "TKN" || obs.Pool != "B" {
		t.Fatalf("unexpected observation: %+v", obs)
	}
	if obs.SpotPrice != "" {
		t.Fatalf("spot price should be absent when unavailable, got %s", obs.SpotPrice)
	}
	if obs.Timestamp == "" {
		t.Fatalf("timestamp missing")
	}
}

func TestRunCycleNoPoolFound(t *testing.T) {
	quoter := &fakeQuoter{source: model.SourceWhirlpool}
	r := NewRunner(testConfig(), []discovery.Index{fakeIndex{}}, []quote.Quoter{quoter}, fakeChainInfo{}, nil, &bytes.Buffer{}, nil)

	obs := r.RunCycle(context.Background())
	if obs.Error != "no pool found" {
		t.Fatalf("error = %q, want no pool found", obs.Error)
	}
	if obs.Timestamp == "" {
		t.Fatalf("error observation must still carry a timestamp")
	}
}

func TestRunCycleQuoteFailureBecomesErrorObservation(t *testing.T) {
	index := fakeIndex{pools: []model.PoolSummary{{Address: "A", Source: model.SourceDLMM, TVL: "1"}}}
	quoter := &fakeQuoter{source: model.SourceDLMM, err: errors.New("pool state unavailable: empty account")}

	r := NewRunner(testConfig(), []discovery.Index{index}, []quote.Quoter{quoter}, fakeChainInfo{}, nil, &bytes.Buffer{}, nil)
	obs := r.RunCycle(context.Background())

	if !strings.Contains(obs.Error, "pool state unavailable") {
		t.Fatalf("error = %q", obs.Error)
	}
}

func TestRunCycleIsolatesPanics(t *testing.T) {
	index := fakeIndex{pools: []model.PoolSummary{{Address: "A", Source: model.SourceDLMM, TVL: "1"}}}
	quoter := &fakeQuoter{source: model.SourceDLMM, panics: true}

	r := NewRunner(testConfig(), []discovery.Index{index}, []quote.Quoter{quoter}, fakeChainInfo{}, nil, &bytes.Buffer{}, nil)
	obs := r.RunCycle(context.Background())

	if !strings.Contains(obs.Error, "cycle panic") {
		t.Fatalf("error = %q, want a cycle panic record", obs.Error)
	}
}

func TestRunPersistsEveryCycleUntilCanceled(t *testing.T) {
	index := fakeIndex{pools: []model.PoolSummary{{Address: "A", Source: model.SourceWhirlpool, TVL: "1"}}}
	quoter := &fakeQuoter{
		source: model.SourceWhirlpool,
		res: &quote.Result{
			Quote:       model.Quote{AmountOut: 1_000_000},
			OutDecimals: 6,
			Symbol:      "TKN",
		},
	}
	sink := &memSink{}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	r := NewRunner(testConfig(), []discovery.Index{index}, []quote.Quoter{quoter}, fakeChainInfo{}, []storage.Storage{sink}, &bytes.Buffer{}, nil)
	err := r.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run returned %v, want deadline exceeded", err)
	}

	if len(sink.observations) == 0 {
		t.Fatalf("no observations persisted")
	}
	for _, obs := range sink.observations {
		if obs.Error != "" {
			t.Fatalf("unexpected error observation: %+v", obs)
		}
	}
}

func TestRunValidatesDependencies(t *testing.T) {
	cfg := testConfig()
	quoter := &fakeQuoter{source: model.SourceWhirlpool, res: &quote.Result{}}

	r := NewRunner(cfg, nil, []quote.Quoter{quoter}, fakeChainInfo{}, nil, &bytes.Buffer{}, nil)
	if err := r.Run(context.Background()); err == nil {
		t.Fatalf("expected error with no indexes")
	}

	cfg.Interval = 0
	r = NewRunner(cfg, []discovery.Index{fakeIndex{}}, []quote.Quoter{quoter}, fakeChainInfo{}, nil, &bytes.Buffer{}, nil)
	if err := r.Run(context.Background()); err == nil {
		t.Fatalf("expected error with zero interval")
	}
}
