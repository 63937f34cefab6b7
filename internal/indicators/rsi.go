package indicators

// NeutralRSI is returned when there is not enough movement to measure.
const NeutralRSI = 50.0

// RSI computes a Relative Strength Index over the last period changes, using plain
// averages of gains and losses. Fewer than two values or a flat window yield NeutralRSI.
func RSI(values []float64, period int) float64 {
	if period < 1 {
		period = 14
	}
	w := window(values, period+1)
	if len(w) <= 1 {
		return NeutralRSI
	}

	gain, loss := 0.0, 0.0
	for i := 1; i < len(w); i++ {
		change := w[i] - w[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}
	count := float64(len(w) - 1)
	avgGain, avgLoss := gain/count, loss/count
	if avgGain+avgLoss == 0 {
		return NeutralRSI
	}
	if avgLoss == 0 {
		avgLoss = 1e-9
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
