// Package watch drives the polling loop: discover pools, select the most
// liquid one, quote it, present the observation, and persist it.
package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"rateScope/internal/amount"
	"rateScope/internal/discovery"
	"rateScope/internal/model"
	"rateScope/internal/quote"
	"rateScope/internal/storage"
)

// Chain is the slice of chain access the driver itself needs for quote
// context. The two lookups are independent and fetched concurrently.
type Chain interface {
	CurrentSlot(ctx context.Context) (uint64, error)
	CurrentEpoch(ctx context.Context) (uint64, error)
}

// Config holds runtime settings for the watcher.
type Config struct {
	Target         solana.PublicKey
	Native         solana.PublicKey
	NativeSymbol   string
	NativeDecimals uint8
	Interval       time.Duration
	SlippageBps    uint32
}

// Runner polls pool indexes and quote engines on a fixed cadence. Each
// cycle is isolated: any failure becomes an error observation and the
// next cycle still runs.
type Runner struct {
	cfg     Config
	indexes []discovery.Index
	quoters map[model.PoolSource]quote.Quoter
	chain   Chain
	sinks   []storage.Storage
	out     io.Writer
	logger  *zap.Logger
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg Config, indexes []discovery.Index, quoters []quote.Quoter, chain Chain, sinks []storage.Storage, out io.Writer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = os.Stdout
	}

	bySource := make(map[model.PoolSource]quote.Quoter, len(quoters))
	for _, q := range quoters {
		bySource[q.Source()] = q
	}

	return &Runner{
		cfg:     cfg,
		indexes: indexes,
		quoters: bySource,
		chain:   chain,
		sinks:   sinks,
		out:     out,
		logger:  logger,
	}
}

// Run executes polling cycles until the context is canceled. The delay is
// measured from the end of one pass to the start of the next, so a slow
// pass never causes overlapping work.
func (r *Runner) Run(ctx context.Context) error {
	if len(r.indexes) == 0 {
		return fmt.Errorf("at least one pool index is required")
	}
	if len(r.quoters) == 0 {
		return fmt.Errorf("at least one quote engine is required")
	}
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.cfg.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}

	for {
		obs := r.RunCycle(ctx)
		r.present(obs)
		r.persist(ctx, obs)

		timer := time.NewTimer(r.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RunCycle executes one discover, select, quote, present, persist pass and
// always returns an observation; failures are folded into its Error field.
func (r *Runner) RunCycle(ctx context.Context) (obs model.PriceObservation) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("cycle panicked", zap.Any("panic", rec))
			obs = r.errorObservation(fmt.Sprintf("cycle panic: %v", rec))
		}
	}()

	pools := discovery.DiscoverAll(ctx, r.indexes, r.cfg.Target)
	r.logger.Debug("discovery complete", zap.Int("candidates", len(pools)))

	best, ok := discovery.SelectBest(pools)
	if !ok {
		return r.errorObservation("no pool found")
	}

	quoter, ok := r.quoters[best.Source]
	if !ok {
		return r.errorObservation(fmt.Sprintf("no quote engine for source %s", best.Source))
	}

	qc, err := r.quoteContext(ctx)
	if err != nil {
		r.logger.Warn("chain context fetch failed", zap.Error(err))
		return r.errorObservation(fmt.Sprintf("chain context: %v", err))
	}

	res, err := quoter.Quote(ctx, best, qc)
	if err != nil {
		r.logger.Warn("quote failed",
			zap.String("pool", best.Address),
			zap.String("source", string(best.Source)),
			zap.Error(err),
		)
		return r.errorObservation(err.Error())
	}

	outUI := amount.FromRaw(res.Quote.AmountOut, res.OutDecimals)
	feeUI := amount.FromRaw(res.Quote.FeeAmount, r.cfg.NativeDecimals)

	obs = model.PriceObservation{
		Pool:            best.Address,
		Source:          best.Source,
		TokenMint:       r.cfg.Target.String(),
		TokenSymbol:     res.Symbol,
		AmountOutPerSol: outUI.StringFixed(int32(res.OutDecimals)),
		FeePaid:         feeUI.StringFixed(int32(r.cfg.NativeDecimals)),
		TVL:             amount.ParseOrZero(best.TVL).StringFixed(2),
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	}
	if res.SpotPriceOK {
		obs.SpotPrice = res.SpotPrice.String()
	}
	return obs
}

// quoteContext assembles the slot/epoch/time context for a quote.
func (r *Runner) quoteContext(ctx context.Context) (quote.Context, error) {
	var (
		wg          sync.WaitGroup
		slot, epoch uint64
		slotErr     error
		epochErr    error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		slot, slotErr = r.chain.CurrentSlot(ctx)
	}()
	go func() {
		defer wg.Done()
		epoch, epochErr = r.chain.CurrentEpoch(ctx)
	}()
	wg.Wait()

	if slotErr != nil {
		return quote.Context{}, fmt.Errorf("current slot: %w", slotErr)
	}
	if epochErr != nil {
		return quote.Context{}, fmt.Errorf("current epoch: %w", epochErr)
	}

	return quote.Context{
		Slot:        slot,
		Epoch:       epoch,
		UnixTime:    time.Now().Unix(),
		SlippageBps: r.cfg.SlippageBps,
	}, nil
}

func (r *Runner) errorObservation(reason string) model.PriceObservation {
	return model.PriceObservation{
		TokenMint: r.cfg.Target.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Error:     reason,
	}
}

// present prints a labeled, human-readable projection of the observation.
func (r *Runner) present(obs model.PriceObservation) {
	if obs.Error != "" {
		fmt.Fprintf(r.out, "[%s] %s: error: %s\n", obs.Timestamp, obs.TokenMint, obs.Error)
		return
	}

	fmt.Fprintf(r.out, "[%s] 1 %s = %s %s via %s pool %s (spot %s, fee %s %s, tvl %s)\n",
		obs.Timestamp,
		r.cfg.NativeSymbol,
		obs.AmountOutPerSol,
		obs.TokenSymbol,
		obs.Source,
		obs.Pool,
		orDash(obs.SpotPrice),
		obs.FeePaid,
		r.cfg.NativeSymbol,
		obs.TVL,
	)
}

// persist appends the observation to every sink; sink failures are logged
// and never stop the driver.
func (r *Runner) persist(ctx context.Context, obs model.PriceObservation) {
	for _, sink := range r.sinks {
		if err := sink.Append(ctx, obs); err != nil {
			r.logger.Warn("persist observation failed", zap.Error(err))
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
