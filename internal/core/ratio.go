package core

import "math"

// SafeRatio returns num/den, or 0 when den is zero or the result is not finite.
func SafeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	r := num / den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// Percent returns num/den*100 rounded to two decimals, 0 on a zero denominator.
func Percent(num, den float64) float64 {
	return Round2(SafeRatio(num, den) * 100)
}

// Round2 rounds half away from zero to two decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
