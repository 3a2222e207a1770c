package patterns

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// variance is the population variance of xs around m.
func variance(xs []float64, m float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		d := x - m
		s += d * d
	}
	return s / float64(len(xs))
}

func amountsOf(es []expense) []float64 {
	out := make([]float64, len(es))
	for i, e := range es {
		out[i] = e.amount
	}
	return out
}

func sumExpenses(es []expense) float64 {
	var s float64
	for _, e := range es {
		s += e.amount
	}
	return s
}
