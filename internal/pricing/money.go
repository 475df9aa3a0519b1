package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

var half = decimal.NewFromFloat(0.5)

// roundTo rounds v to places decimal places with ties going towards +Inf, so
// -2.5 rounds to -2 and 2.5 to 3. Going through the shortest decimal
// representation keeps values such as 408.8 or 2.675 from being nudged by
// their binary approximation. NaN and ±Inf round to 0.
func roundTo(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return roundHalfUp(decimal.NewFromFloat(v), places).InexactFloat64()
}

func roundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Shift(places).Add(half).Floor().Shift(-places)
}

func pence(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// money converts a float amount to a decimal, treating NaN and ±Inf as zero.
func money(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
