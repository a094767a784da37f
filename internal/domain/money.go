package domain

import "github.com/shopspring/decimal"

// Money is a monetary amount in minor currency units. All fee math happens
// on integers; percentages are applied once, at commission computation.
type Money int64

func (m Money) Int64() int64 { return int64(m) }

// PercentOf returns pct percent of base, rounded half up on minor units.
func PercentOf(base Money, pct decimal.Decimal) Money {
	v := decimal.NewFromInt(int64(base)).Mul(pct).Div(decimal.NewFromInt(100))
	// decimal.Round rounds half away from zero, which is half up for
	// the non-negative amounts this ledger deals in.
	return Money(v.Round(0).IntPart())
}
