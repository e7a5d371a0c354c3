package sensors

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const twoPi = 2 * math.Pi

// WrapAngle maps theta into (-pi, pi]. Non-finite input maps to 0.
func WrapAngle(theta float64) float64 {
	if math.IsNaN(theta) || math.IsInf(theta, 0) {
		return 0
	}
	w := math.Mod(theta+math.Pi, twoPi)
	if w < 0 {
		w += twoPi
	}
	w -= math.Pi
	if w <= -math.Pi {
		w = math.Pi
	}
	return w
}

// AngleDifference returns a - b wrapped into (-pi, pi].
func AngleDifference(a, b float64) float64 {
	return WrapAngle(a - b)
}

// CircularMean returns the weighted mean direction of angles, wrapped into
// (-pi, pi]. weights may be nil for equal weighting. The mean of an empty
// set, or of vectors that cancel out exactly, is 0.
func CircularMean(angles, weights []float64) float64 {
	if len(angles) == 0 {
		return 0
	}
	return WrapAngle(stat.CircularMean(angles, weights))
}
