// Package quote computes executable swap quotes for a fixed one-unit
// native-asset input against a pool's current on-chain state.
package quote

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"rateScope/internal/model"
)

// ErrStateUnavailable reports that a pool's on-chain state account is
// missing or unparseable, so no quote can be attempted.
var ErrStateUnavailable = errors.New("pool state unavailable")

// UnknownSymbol is the sentinel used when a token symbol cannot be
// resolved from pool metadata.
const UnknownSymbol = "UNKNOWN"

// ChainReader is the slice of chain access the quote engines need.
type ChainReader interface {
	AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error)
	MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
}

// Context carries the per-cycle chain context a quote is computed under.
type Context struct {
	Slot        uint64
	Epoch       uint64
	UnixTime    int64
	SlippageBps uint32
}

// Result is a quote plus everything needed to normalize and label it.
// SpotPrice is always expressed as token units per one native unit,
// regardless of which side each asset occupies in the pool.
type Result struct {
	Quote       model.Quote
	OutDecimals uint8
	SpotPrice   decimal.Decimal
	SpotPriceOK bool
	Symbol      string
}

// Quoter prices a fixed one-native-unit input against one pool. The two
// implementations cover the two venue families; the driver picks one by
// the pool's Source.
type Quoter interface {
	Source() model.PoolSource
	Quote(ctx context.Context, pool model.PoolSummary, qc Context) (*Result, error)
}

// applySlippage converts an expected output into a minimum output.
func applySlippage(out decimal.Decimal, slippageBps uint32) decimal.Decimal {
	factor := decimal.New(int64(10000-slippageBps), -4)
	return out.Mul(factor)
}

// rawUint64 floors a raw decimal amount into a uint64 base-unit value.
func rawUint64(d decimal.Decimal) (uint64, error) {
	floored := d.Floor()
	if floored.Sign() < 0 {
		return 0, fmt.Errorf("negative raw amount %s", d)
	}
	bi := floored.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("raw amount %s overflows uint64", d)
	}
	return bi.Uint64(), nil
}

// fetchDecimals loads both mints' decimal counts concurrently; the two
// lookups have no data dependency.
func fetchDecimals(ctx context.Context, chain ChainReader, first, second solana.PublicKey) (uint8, uint8, error) {
	var (
		wg         sync.WaitGroup
		decA, decB uint8
		errA, errB error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		decA, errA = chain.MintDecimals(ctx, first)
	}()
	go func() {
		defer wg.Done()
		decB, errB = chain.MintDecimals(ctx, second)
	}()
	wg.Wait()

	if errA != nil {
		return 0, 0, fmt.Errorf("mint %s decimals: %w", first, errA)
	}
	if errB != nil {
		return 0, 0, fmt.Errorf("mint %s decimals: %w", second, errB)
	}
	return decA, decB, nil
}

// u128FromLE decodes a little-endian unsigned 128-bit field.
func u128FromLE(b []byte) *big.Int {
	lo := new(big.Int).SetBytes(reverse(b[:8]))
	hi := new(big.Int).SetBytes(reverse(b[8:16]))
	return hi.Lsh(hi, 64).Or(hi, lo)
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
