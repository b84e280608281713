package labels

import "math"

// InterpolateLimit fills NaN gaps by linear interpolation between the surrounding known
// values. Inside a gap only the first and last limit positions are filled, so a long gap
// keeps its middle unknown. Leading and trailing gaps take the nearest known value,
// again limited to the limit positions adjacent to it.
func InterpolateLimit(xs []float64, limit int) []float64 {
	out := append([]float64(nil), xs...)
	n := len(out)
	i := 0
	for i < n {
		if !math.IsNaN(out[i]) {
			i++
			continue
		}
		start := i
		for i < n && math.IsNaN(out[i]) {
			i++
		}
		end := i // exclusive
		left, right := start-1, end
		for k := start; k < end; k++ {
			fromLeft := k - start
			fromRight := end - 1 - k
			switch {
			case left >= 0 && right < n:
				if fromLeft < limit || fromRight < limit {
					w := float64(k-left) / float64(right-left)
					out[k] = xs[left] + w*(xs[right]-xs[left])
				}
			case left < 0 && right < n:
				if fromRight < limit {
					out[k] = xs[right]
				}
			case left >= 0 && right >= n:
				if fromLeft < limit {
					out[k] = xs[left]
				}
			}
		}
	}
	return out
}

// round3 rounds to three decimals, half away from zero.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
