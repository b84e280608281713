package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// windowValues collects the finite values of xs[i-window+1 .. i].
func windowValues(xs []float64, i, window int, buf []float64) []float64 {
	buf = buf[:0]
	start := i - window + 1
	if start < 0 {
		start = 0
	}
	for k := start; k <= i; k++ {
		if !math.IsNaN(xs[k]) {
			buf = append(buf, xs[k])
		}
	}
	return buf
}

// RollingMean returns the trailing mean over window values. A position yields NaN
// until at least minPeriods non-NaN observations are in the window.
func RollingMean(xs []float64, window, minPeriods int) []float64 {
	out := make([]float64, len(xs))
	buf := make([]float64, 0, window)
	for i := range xs {
		buf = windowValues(xs, i, window, buf)
		if len(buf) < minPeriods || len(buf) == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.Mean(buf, nil)
	}
	return out
}

// RollingStd returns the trailing sample standard deviation (ddof=1).
func RollingStd(xs []float64, window, minPeriods int) []float64 {
	out := make([]float64, len(xs))
	buf := make([]float64, 0, window)
	for i := range xs {
		buf = windowValues(xs, i, window, buf)
		if len(buf) < minPeriods || len(buf) < 2 {
			out[i] = math.NaN()
			continue
		}
		out[i] = stat.StdDev(buf, nil)
	}
	return out
}

// RollingSum returns the trailing sum; any NaN inside a full window yields NaN.
func RollingSum(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	buf := make([]float64, 0, window)
	for i := range xs {
		buf = windowValues(xs, i, window, buf)
		if len(buf) < window {
			out[i] = math.NaN()
			continue
		}
		out[i] = floats.Sum(buf)
	}
	return out
}

// EWMMean is the bias-adjusted exponentially weighted mean with alpha = 2/(span+1).
// NaN observations are skipped and keep decaying the older weights.
func EWMMean(xs []float64, span int) []float64 {
	out := make([]float64, len(xs))
	alpha := 2.0 / (float64(span) + 1.0)
	decay := 1 - alpha
	num, den := 0.0, 0.0
	seen := false
	for i, x := range xs {
		num *= decay
		den *= decay
		if !math.IsNaN(x) {
			num += x
			den++
			seen = true
		}
		if !seen {
			out[i] = math.NaN()
			continue
		}
		out[i] = num / den
	}
	return out
}

// sign mirrors numpy.sign: NaN stays NaN, ±Inf map to ±1.
func sign(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return math.NaN()
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
