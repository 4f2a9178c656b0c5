package gstr1

import "github.com/shopspring/decimal"

// round2 rounds half to even at two decimal places.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).RoundBank(2).InexactFloat64()
}

func formatAmount(v float64) string {
	return decimal.NewFromFloat(v).RoundBank(2).StringFixed(2)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
