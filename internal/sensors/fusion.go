package sensors

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Weights returns the fusion weight of each window slot, oldest first:
// slot i gets max(1, (i+1)/2) with integer division, so the newest
// readings count up to about twice as much as the oldest.
func Weights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		k := (i + 1) / 2
		if k < 1 {
			k = 1
		}
		w[i] = float64(k)
	}
	return w
}

// Median returns the median of values without modifying them. Even-length
// input averages the two middle elements; empty input returns 0.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// Fuse combines a window of readings, oldest first, into the filtered
// channels of a Snapshot. Metadata fields (beacon, starting pose, trail)
// are left for the caller to merge. The weights are recomputed from the
// window length on every call.
func Fuse(window []RawReading) Snapshot {
	n := len(window)
	if n == 0 {
		return Snapshot{}
	}
	weights := Weights(n)

	front := make([]float64, n)
	left := make([]float64, n)
	right := make([]float64, n)
	xs := make([]float64, n)
	ys := make([]float64, n)
	thetas := make([]float64, n)
	compass := make([]float64, n)
	ground := make([]float64, n)
	battery := make([]float64, n)

	for i, r := range window {
		front[i] = r.Obstacles.Front
		left[i] = r.Obstacles.Left
		right[i] = r.Obstacles.Right
		xs[i] = r.Pose.X
		ys[i] = r.Pose.Y
		thetas[i] = r.Pose.Theta
		compass[i] = r.Compass
		ground[i] = float64(r.Ground)
		battery[i] = float64(r.BatteryVoltage)
	}

	return Snapshot{
		Tick: window[n-1].Tick,
		// median rejects the occasional reflection outlier better than a mean
		Obstacles: Obstacles{
			Front: Median(front),
			Left:  Median(left),
			Right: Median(right),
		},
		Pose: Pose{
			X:     stat.Mean(xs, weights),
			Y:     stat.Mean(ys, weights),
			Theta: CircularMean(thetas, weights),
		},
		Compass:        CircularMean(compass, weights),
		Ground:         stat.Mean(ground, weights),
		BatteryVoltage: stat.Mean(battery, weights),
	}
}
