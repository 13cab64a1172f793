// Package amount normalizes raw integer on-chain amounts into
// decimal-correct human values.
package amount

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// DivisionPrecision is the number of fractional digits kept by reciprocal
// and per-bin rate divisions. Raised above the library default so inverted
// prices do not drift at token scales.
const DivisionPrecision = 24

func init() {
	if decimal.DivisionPrecision < DivisionPrecision {
		decimal.DivisionPrecision = DivisionPrecision
	}
}

// FromRaw converts a raw integer amount into its human value given the
// mint's decimal count.
func FromRaw(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
}

// FromBigRaw converts a raw big integer amount into its human value.
func FromBigRaw(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// Pow10 returns 10^n exactly, including negative n.
func Pow10(n int32) decimal.Decimal {
	return decimal.New(1, n)
}

// PowInt raises base to an integer power by squaring. Negative exponents
// take the reciprocal at DivisionPrecision.
func PowInt(base decimal.Decimal, exp int32) decimal.Decimal {
	if exp == 0 {
		return decimal.New(1, 0)
	}

	neg := exp < 0
	n := exp
	if neg {
		n = -n
	}

	result := decimal.New(1, 0)
	factor := base
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(factor)
		}
		n >>= 1
		if n > 0 {
			factor = factor.Mul(factor)
		}
	}

	if neg {
		return decimal.New(1, 0).Div(result)
	}
	return result
}

// ParseOrZero parses a decimal string, treating missing or malformed
// values as zero rather than an error.
func ParseOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
