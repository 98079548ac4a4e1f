package repcheck

import (
	"math"
	"sort"
)

// AngleAtVertex returns the angle in degrees at vertex b formed by the rays
// b->a and b->c. A zero-length ray yields 0.
func AngleAtVertex(a, b, c Point) float64 {
	bax, bay := a.X-b.X, a.Y-b.Y
	bcx, bcy := c.X-b.X, c.Y-b.Y

	normBA := math.Hypot(bax, bay)
	normBC := math.Hypot(bcx, bcy)
	if normBA == 0 || normBC == 0 {
		return 0
	}

	cosine := (bax*bcx + bay*bcy) / (normBA * normBC)
	cosine = math.Max(-1, math.Min(1, cosine))
	return math.Acos(cosine) * 180 / math.Pi
}

// TrunkAngle is the angle of the hip->shoulder segment above horizontal.
// A vertical segment (no horizontal offset) yields 0.
func TrunkAngle(shoulder, hip Point) float64 {
	dx := math.Abs(shoulder.X - hip.X)
	if dx == 0 {
		return 0
	}
	dy := hip.Y - shoulder.Y
	return math.Atan2(dy, dx) * 180 / math.Pi
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	count := 0
	for _, v := range values {
		if !isFinite(v) {
			continue
		}
		total += v
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func minValue(values []float64) float64 {
	min := 0.0
	found := false
	for _, v := range values {
		if !isFinite(v) {
			continue
		}
		if !found || v < min {
			min = v
			found = true
		}
	}
	return min
}

func maxValue(values []float64) float64 {
	max := 0.0
	found := false
	for _, v := range values {
		if !isFinite(v) {
			continue
		}
		if !found || v > max {
			max = v
			found = true
		}
	}
	return max
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := average(values)
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func pctChange(start, end float64) float64 {
	if start == 0 {
		return 0
	}
	return ((end / start) - 1.0) * 100.0
}

func firstValue(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[0]
}

func lastValue(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
