package quote

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rateScope/internal/amount"
	"rateScope/internal/model"
)

// LbPair account layout offsets (8-byte discriminator, 32-byte static
// parameters, 32-byte variable parameters, bump and seed bytes precede
// the active bin id).
const (
	lbPairOffsetActiveID = 76
	lbPairOffsetBinStep  = 80
	lbPairOffsetMintX    = 88
	lbPairOffsetMintY    = 120
	lbPairMinLen         = lbPairOffsetMintY + 32
)

// Bin array account layout: discriminator, i64 index, version plus
// padding, lb pair pubkey, then a fixed array of bins. Only the two
// leading reserve fields of each bin matter for quoting.
const (
	binArrayOffsetBins = 56
	binSize            = 144
	binsPerArray       = 70
	binArrayMinLen     = binArrayOffsetBins + binsPerArray*binSize
)

// binStepDenominator converts a bin step in basis points to a fraction.
const binStepDenominator = 10_000

// binArraySeed is the PDA seed prefix for bin array accounts.
var binArraySeed = []byte("bin_array")

type lbPairState struct {
	ActiveID int32
	BinStep  uint16
	MintX    solana.PublicKey
	MintY    solana.PublicKey
}

func decodeLbPair(data []byte) (lbPairState, error) {
	if len(data) < lbPairMinLen {
		return lbPairState{}, fmt.Errorf("account data too short: %d bytes", len(data))
	}
	return lbPairState{
		ActiveID: int32(binary.LittleEndian.Uint32(data[lbPairOffsetActiveID:])),
		BinStep:  binary.LittleEndian.Uint16(data[lbPairOffsetBinStep:]),
		MintX:    solana.PublicKeyFromBytes(data[lbPairOffsetMintX : lbPairOffsetMintX+32]),
		MintY:    solana.PublicKeyFromBytes(data[lbPairOffsetMintY : lbPairOffsetMintY+32]),
	}, nil
}

// Bin is one price bin's liquidity, in raw base units of each side.
type Bin struct {
	ID      int32
	AmountX uint64
	AmountY uint64
}

func decodeBinArray(data []byte, arrayIndex int64) ([]Bin, error) {
	if len(data) < binArrayMinLen {
		return nil, fmt.Errorf("bin array too short: %d bytes", len(data))
	}
	bins := make([]Bin, 0, binsPerArray)
	lower := arrayIndex * binsPerArray
	for i := 0; i < binsPerArray; i++ {
		off := binArrayOffsetBins + i*binSize
		bins = append(bins, Bin{
			ID:      int32(lower + int64(i)),
			AmountX: binary.LittleEndian.Uint64(data[off:]),
			AmountY: binary.LittleEndian.Uint64(data[off+8:]),
		})
	}
	return bins, nil
}

// binArrayIndex maps a bin id to the index of the array holding it,
// flooring toward negative infinity.
func binArrayIndex(binID int32) int64 {
	idx := int64(binID) / binsPerArray
	if binID < 0 && int64(binID)%binsPerArray != 0 {
		idx--
	}
	return idx
}

// SpotBinPrice is the instantaneous price implied by the active bin:
// (1 + binStep/10000)^activeID scaled by 10^(decimalsX - decimalsY).
// It is a point estimate of Y per X that ignores liquidity depth.
func SpotBinPrice(binStep uint16, activeID int32, decimalsX, decimalsY uint8) decimal.Decimal {
	return binRawRate(binStep, activeID).Mul(amount.Pow10(int32(decimalsX) - int32(decimalsY)))
}

// binRawRate is the per-bin exchange rate in raw base units (raw Y per
// raw X); the decimal factors of the UI price cancel at raw scale.
func binRawRate(binStep uint16, binID int32) decimal.Decimal {
	base := decimal.New(1, 0).Add(decimal.New(int64(binStep), 0).Div(decimal.New(binStepDenominator, 0)))
	return amount.PowInt(base, binID)
}

// WalkBins simulates swapping a raw input amount against the bin
// liquidity, starting at the active bin and consuming bins in the trade
// direction until the input is exhausted or no liquidity remains. Selling
// X consumes Y reserves walking down; selling Y consumes X reserves
// walking up. Returns the raw output and whether input was left over.
func WalkBins(bins []Bin, activeID int32, binStep uint16, amountIn decimal.Decimal, sellX bool) (decimal.Decimal, bool) {
	byID := make(map[int32]Bin, len(bins))
	for _, b := range bins {
		byID[b.ID] = b
	}

	out := decimal.Zero
	remaining := amountIn
	id := activeID
	for remaining.Sign() > 0 {
		bin, ok := byID[id]
		if !ok {
			break
		}
		rate := binRawRate(binStep, id)

		if sellX {
			availY := amount.FromRaw(bin.AmountY, 0)
			if availY.Sign() > 0 {
				capIn := availY.Div(rate)
				if remaining.LessThanOrEqual(capIn) {
					out = out.Add(remaining.Mul(rate))
					remaining = decimal.Zero
					break
				}
				out = out.Add(availY)
				remaining = remaining.Sub(capIn)
			}
			id--
		} else {
			availX := amount.FromRaw(bin.AmountX, 0)
			if availX.Sign() > 0 {
				capIn := availX.Mul(rate)
				if remaining.LessThanOrEqual(capIn) {
					out = out.Add(remaining.Div(rate))
					remaining = decimal.Zero
					break
				}
				out = out.Add(availX)
				remaining = remaining.Sub(capIn)
			}
			id++
		}
	}

	return out, remaining.Sign() > 0
}

// ResolveSymbol derives the tracked token's symbol from a pool display
// name such as "TOKEN-SOL", returning the side that is not the native
// symbol. Names with fewer than two components resolve to the unknown
// sentinel instead of failing.
func ResolveSymbol(name, nativeSymbol string) string {
	parts := strings.Split(name, "-")
	if len(parts) < 2 {
		return UnknownSymbol
	}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" && !strings.EqualFold(part, nativeSymbol) {
			return part
		}
	}
	return UnknownSymbol
}

// BinQuoter prices against DLMM pools whose liquidity is discretized into
// price bins, by simulating the trade bin by bin.
type BinQuoter struct {
	chain        ChainReader
	native       solana.PublicKey
	nativeSymbol string
	programID    solana.PublicKey
	logger       *zap.Logger
}

// NewBinQuoter builds a DLMM quote engine. programID is the on-chain
// program owning the bin array PDAs.
func NewBinQuoter(chain ChainReader, native solana.PublicKey, nativeSymbol string, programID solana.PublicKey, logger *zap.Logger) *BinQuoter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BinQuoter{
		chain:        chain,
		native:       native,
		nativeSymbol: nativeSymbol,
		programID:    programID,
		logger:       logger,
	}
}

// Source reports the venue family this engine covers.
func (q *BinQuoter) Source() model.PoolSource {
	return model.SourceDLMM
}

// Quote simulates selling one native unit into the pool's bins. The spot
// price is computed independently of the simulation; if it cannot be
// derived the quote proceeds and the price is reported unavailable.
func (q *BinQuoter) Quote(ctx context.Context, pool model.PoolSummary, qc Context) (*Result, error) {
	address, err := solana.PublicKeyFromBase58(pool.Address)
	if err != nil {
		return nil, fmt.Errorf("pool address: %w", err)
	}

	data, err := q.chain.AccountData(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateUnavailable, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty account %s", ErrStateUnavailable, pool.Address)
	}

	st, err := decodeLbPair(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateUnavailable, err)
	}

	binStep := st.BinStep
	if binStep == 0 {
		binStep = pool.BinStep
	}

	var sellX bool
	switch q.native {
	case st.MintX:
		sellX = true
	case st.MintY:
		sellX = false
	default:
		return nil, fmt.Errorf("pool %s does not contain the native mint", pool.Address)
	}

	decimalsX, decimalsY, err := fetchDecimals(ctx, q.chain, st.MintX, st.MintY)
	if err != nil {
		return nil, err
	}

	spot, spotOK := q.spotTokenPerNative(binStep, st.ActiveID, decimalsX, decimalsY, sellX)
	if !spotOK {
		q.logger.Warn("dlmm spot price unavailable",
			zap.String("pool", pool.Address),
			zap.Int32("active_id", st.ActiveID),
			zap.Uint16("bin_step", binStep),
		)
	}

	decIn, decOut := decimalsX, decimalsY
	if !sellX {
		decIn, decOut = decimalsY, decimalsX
	}

	rawIn := amount.Pow10(int32(decIn))
	feeFraction := amount.ParseOrZero(pool.BaseFeePct).Div(decimal.New(100, 0))
	fee := rawIn.Mul(feeFraction)
	netIn := rawIn.Sub(fee)

	bins, err := q.fetchBins(ctx, address, st.ActiveID, sellX)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateUnavailable, err)
	}

	q.logger.Debug("dlmm quote",
		zap.String("pool", pool.Address),
		zap.Uint64("slot", qc.Slot),
		zap.Uint64("epoch", qc.Epoch),
		zap.Int32("active_id", st.ActiveID),
		zap.Int("bins", len(bins)),
		zap.Bool("sell_x", sellX),
	)

	out, exhausted := WalkBins(bins, st.ActiveID, binStep, netIn, sellX)
	if exhausted {
		q.logger.Warn("dlmm liquidity exhausted before input",
			zap.String("pool", pool.Address),
			zap.Int32("active_id", st.ActiveID),
		)
	}
	minOut := applySlippage(out, qc.SlippageBps)

	outRaw, err := rawUint64(minOut)
	if err != nil {
		return nil, fmt.Errorf("amount out: %w", err)
	}
	feeRaw, err := rawUint64(fee)
	if err != nil {
		return nil, fmt.Errorf("fee: %w", err)
	}

	return &Result{
		Quote:       model.Quote{AmountOut: outRaw, FeeAmount: feeRaw},
		OutDecimals: decOut,
		SpotPrice:   spot,
		SpotPriceOK: spotOK,
		Symbol:      ResolveSymbol(pool.Name, q.nativeSymbol),
	}, nil
}

// spotTokenPerNative reorients the bin spot price (Y per X) into token
// units per native unit.
func (q *BinQuoter) spotTokenPerNative(binStep uint16, activeID int32, decimalsX, decimalsY uint8, nativeIsX bool) (decimal.Decimal, bool) {
	price := SpotBinPrice(binStep, activeID, decimalsX, decimalsY)
	if nativeIsX {
		return price, true
	}
	if price.IsZero() {
		return decimal.Zero, false
	}
	return decimal.New(1, 0).Div(price), true
}

// fetchBins loads the active bin array plus the next two in the trade
// direction. Arrays that do not exist simply bound the walk.
func (q *BinQuoter) fetchBins(ctx context.Context, pair solana.PublicKey, activeID int32, sellX bool) ([]Bin, error) {
	step := int64(-1)
	if !sellX {
		step = 1
	}

	start := binArrayIndex(activeID)
	indexes := []int64{start, start + step, start + 2*step}

	type fetched struct {
		bins []Bin
		err  error
	}
	results := make([]fetched, len(indexes))

	var wg sync.WaitGroup
	for i, idx := range indexes {
		wg.Add(1)
		go func(i int, idx int64) {
			defer wg.Done()
			bins, err := q.fetchBinArray(ctx, pair, idx)
			results[i] = fetched{bins: bins, err: err}
		}(i, idx)
	}
	wg.Wait()

	bins := make([]Bin, 0, binsPerArray*len(indexes))
	for i, res := range results {
		if res.err != nil {
			// The active array must exist; outer arrays bound the walk.
			if i == 0 {
				return nil, res.err
			}
			q.logger.Debug("bin array unavailable",
				zap.Int64("array_index", indexes[i]),
				zap.Error(res.err),
			)
			continue
		}
		bins = append(bins, res.bins...)
	}
	return bins, nil
}

func (q *BinQuoter) fetchBinArray(ctx context.Context, pair solana.PublicKey, arrayIndex int64) ([]Bin, error) {
	address, err := binArrayAddress(pair, arrayIndex, q.programID)
	if err != nil {
		return nil, fmt.Errorf("derive bin array %d: %w", arrayIndex, err)
	}

	data, err := q.chain.AccountData(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("fetch bin array %d: %w", arrayIndex, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("bin array %d missing", arrayIndex)
	}

	return decodeBinArray(data, arrayIndex)
}

// binArrayAddress derives the PDA of one bin array account.
func binArrayAddress(pair solana.PublicKey, arrayIndex int64, programID solana.PublicKey) (solana.PublicKey, error) {
	indexLE := make([]byte, 8)
	binary.LittleEndian.PutUint64(indexLE, uint64(arrayIndex))
	address, _, err := solana.FindProgramAddress(
		[][]byte{binArraySeed, pair.Bytes(), indexLE},
		programID,
	)
	return address, err
}
