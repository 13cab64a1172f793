package quote

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rateScope/internal/amount"
	"rateScope/internal/model"
)

// Whirlpool account layout offsets (8-byte discriminator, config pubkey,
// bump, tick spacing and seed precede the fee rate).
const (
	whirlpoolOffsetFeeRate   = 45
	whirlpoolOffsetLiquidity = 49
	whirlpoolOffsetSqrtPrice = 65
	whirlpoolOffsetTick      = 81
	whirlpoolOffsetMintA     = 101
	whirlpoolOffsetMintB     = 181
	whirlpoolMinLen          = whirlpoolOffsetMintB + 32
)

// whirlpoolFeeDenominator converts the stored fee rate (hundredths of a
// basis point) into a fraction.
const whirlpoolFeeDenominator = 1_000_000

type whirlpoolState struct {
	FeeRate   uint16
	Liquidity *big.Int
	SqrtPrice *big.Int
	Tick      int32
	MintA     solana.PublicKey
	MintB     solana.PublicKey
}

func decodeWhirlpool(data []byte) (whirlpoolState, error) {
	if len(data) < whirlpoolMinLen {
		return whirlpoolState{}, fmt.Errorf("account data too short: %d bytes", len(data))
	}
	return whirlpoolState{
		FeeRate:   binary.LittleEndian.Uint16(data[whirlpoolOffsetFeeRate:]),
		Liquidity: u128FromLE(data[whirlpoolOffsetLiquidity:]),
		SqrtPrice: u128FromLE(data[whirlpoolOffsetSqrtPrice:]),
		Tick:      int32(binary.LittleEndian.Uint32(data[whirlpoolOffsetTick:])),
		MintA:     solana.PublicKeyFromBytes(data[whirlpoolOffsetMintA : whirlpoolOffsetMintA+32]),
		MintB:     solana.PublicKeyFromBytes(data[whirlpoolOffsetMintB : whirlpoolOffsetMintB+32]),
	}, nil
}

// PriceFromSqrtPrice converts a Q64.64 square-root price into the pool's
// raw price, expressed as units of side B per unit of side A.
func PriceFromSqrtPrice(sqrtPrice *big.Int, decimalsA, decimalsB uint8) decimal.Decimal {
	sqrt := decimal.NewFromBigInt(sqrtPrice, 0).Div(twoPow64)
	return sqrt.Mul(sqrt).Mul(amount.Pow10(int32(decimalsA) - int32(decimalsB)))
}

var twoPow64 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 64), 0)

// WhirlpoolQuoter prices against concentrated-liquidity pools that expose
// an aggregate state account with a Q64.64 square-root price.
type WhirlpoolQuoter struct {
	chain  ChainReader
	native solana.PublicKey
	logger *zap.Logger
}

// NewWhirlpoolQuoter builds a whirlpool quote engine.
func NewWhirlpoolQuoter(chain ChainReader, native solana.PublicKey, logger *zap.Logger) *WhirlpoolQuoter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhirlpoolQuoter{chain: chain, native: native, logger: logger}
}

// Source reports the venue family this engine covers.
func (q *WhirlpoolQuoter) Source() model.PoolSource {
	return model.SourceWhirlpool
}

// Quote prices one native unit of input against the pool's current state.
// The fee is charged in the input asset; the returned amount out already
// has slippage applied.
func (q *WhirlpoolQuoter) Quote(ctx context.Context, pool model.PoolSummary, qc Context) (*Result, error) {
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

	st, err := decodeWhirlpool(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateUnavailable, err)
	}

	var nativeIsA bool
	switch q.native {
	case st.MintA:
		nativeIsA = true
	case st.MintB:
		nativeIsA = false
	default:
		return nil, fmt.Errorf("pool %s does not contain the native mint", pool.Address)
	}

	decimalsA, decimalsB, err := fetchDecimals(ctx, q.chain, st.MintA, st.MintB)
	if err != nil {
		return nil, err
	}

	q.logger.Debug("whirlpool quote",
		zap.String("pool", pool.Address),
		zap.Uint64("slot", qc.Slot),
		zap.Uint64("epoch", qc.Epoch),
		zap.Int64("unix_time", qc.UnixTime),
		zap.Int32("tick", st.Tick),
	)

	// Raw price is side B per side A; the observation wants token per
	// native, so invert whenever the tracked token sits on side A.
	rawPrice := PriceFromSqrtPrice(st.SqrtPrice, decimalsA, decimalsB)
	var tokenPerNative decimal.Decimal
	if nativeIsA {
		tokenPerNative = rawPrice
	} else {
		if rawPrice.IsZero() {
			return nil, fmt.Errorf("pool %s has zero price", pool.Address)
		}
		tokenPerNative = decimal.New(1, 0).Div(rawPrice)
	}

	decIn, decOut := decimalsA, decimalsB
	symbol := pool.SymbolB
	if !nativeIsA {
		decIn, decOut = decimalsB, decimalsA
		symbol = pool.SymbolA
	}
	if symbol == "" {
		symbol = UnknownSymbol
	}

	rawIn := amount.Pow10(int32(decIn))
	feeFraction := decimal.New(int64(st.FeeRate), 0).Div(decimal.New(whirlpoolFeeDenominator, 0))
	fee := rawIn.Mul(feeFraction)
	netIn := rawIn.Sub(fee)

	out := netIn.Mul(tokenPerNative).Mul(amount.Pow10(int32(decOut) - int32(decIn)))
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
		SpotPrice:   tokenPerNative,
		SpotPriceOK: true,
		Symbol:      symbol,
	}, nil
}
