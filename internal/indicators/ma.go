package indicators

import "math"

// window returns the trailing period values; a short series yields all of it.
func window(values []float64, period int) []float64 {
	if period < 1 {
		period = 1
	}
	if len(values) <= period {
		return values
	}
	return values[len(values)-period:]
}

// SMA calculates the simple moving average of the last period values.
// A series shorter than period averages what is available.
func SMA(values []float64, period int) float64 {
	w := window(values, period)
	if len(w) == 0 {
		return math.NaN()
	}
	return Sum(w, len(w)) / float64(len(w))
}

// Sum adds the last period values.
func Sum(values []float64, period int) float64 {
	sum := 0.0
	for _, v := range window(values, period) {
		sum += v
	}
	return sum
}

// EMA runs an exponential moving average over the whole series, seeded with the first value.
func EMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	if period < 1 {
		period = 1
	}
	alpha := 2 / float64(period+1)
	ema := values[0]
	for _, v := range values[1:] {
		ema = alpha*v + (1-alpha)*ema
	}
	return ema
}

// WMA weights the last period values linearly, newest heaviest.
func WMA(values []float64, period int) float64 {
	w := window(values, period)
	if len(w) == 0 {
		return math.NaN()
	}
	num, den := 0.0, 0.0
	for i, v := range w {
		weight := float64(i + 1)
		num += v * weight
		den += weight
	}
	return num / den
}

// wmaSeries returns the rolling WMA at every bar.
func wmaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		out[i] = WMA(values[:i+1], period)
	}
	return out
}

// HMA is the Hull moving average: WMA(2*WMA(n/2) - WMA(n), sqrt(n)).
func HMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	if period < 2 {
		return WMA(values, 1)
	}
	half := wmaSeries(values, period/2)
	full := wmaSeries(values, period)
	diff := make([]float64, len(values))
	for i := range values {
		diff[i] = 2*half[i] - full[i]
	}
	return WMA(diff, int(math.Round(math.Sqrt(float64(period)))))
}

// Stdev is the population standard deviation of the last period values.
func Stdev(values []float64, period int) float64 {
	w := window(values, period)
	if len(w) == 0 {
		return math.NaN()
	}
	mean := SMA(w, len(w))
	acc := 0.0
	for _, v := range w {
		acc += (v - mean) * (v - mean)
	}
	return math.Sqrt(acc / float64(len(w)))
}

// Highest returns the maximum of the last period values.
func Highest(values []float64, period int) float64 {
	w := window(values, period)
	if len(w) == 0 {
		return math.NaN()
	}
	out := w[0]
	for _, v := range w[1:] {
		out = math.Max(out, v)
	}
	return out
}

// Lowest returns the minimum of the last period values.
func Lowest(values []float64, period int) float64 {
	w := window(values, period)
	if len(w) == 0 {
		return math.NaN()
	}
	out := w[0]
	for _, v := range w[1:] {
		out = math.Min(out, v)
	}
	return out
}
