package amount

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFromRaw(t *testing.T) {
	got := FromRaw(2500000, 6)
	if got.String() != "2.5" {
		t.Fatalf("FromRaw(2500000, 6) = %s, want 2.5", got)
	}

	if got := FromRaw(1, 9); got.String() != "0.000000001" {
		t.Fatalf("FromRaw(1, 9) = %s, want 0.000000001", got)
	}

	if got := FromRaw(0, 6); !got.IsZero() {
		t.Fatalf("FromRaw(0, 6) = %s, want 0", got)
	}
}

func TestPow10(t *testing.T) {
	if got := Pow10(3); got.String() != "1000" {
		t.Fatalf("Pow10(3) = %s", got)
	}
	if got := Pow10(-6); got.String() != "0.000001" {
		t.Fatalf("Pow10(-6) = %s", got)
	}
	if got := Pow10(0); got.String() != "1" {
		t.Fatalf("Pow10(0) = %s", got)
	}
}

func TestPowInt(t *testing.T) {
	base := decimal.RequireFromString("1.0025")

	if got := PowInt(base, 0); got.String() != "1" {
		t.Fatalf("exp 0: %s", got)
	}

	want := base.Mul(base).Mul(base)
	if got := PowInt(base, 3); !got.Equal(want) {
		t.Fatalf("exp 3: %s != %s", got, want)
	}

	// Negative exponent is the reciprocal of the positive power under the
	// same division precision.
	wantNeg := decimal.New(1, 0).Div(want)
	if got := PowInt(base, -3); !got.Equal(wantNeg) {
		t.Fatalf("exp -3: %s != %s", got, wantNeg)
	}
}

func TestParseOrZero(t *testing.T) {
	if got := ParseOrZero("123.45"); got.String() != "123.45" {
		t.Fatalf("valid: %s", got)
	}
	if got := ParseOrZero(""); !got.IsZero() {
		t.Fatalf("empty: %s", got)
	}
	if got := ParseOrZero("not-a-number"); !got.IsZero() {
		t.Fatalf("garbage: %s", got)
	}
}
