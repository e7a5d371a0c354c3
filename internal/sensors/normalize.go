package sensors

import "github.com/banshee-data/robot.sensors/internal/units"

// ObstacleCalibration converts raw IR rangefinder counts into centimetres.
type ObstacleCalibration struct {
	Floor    uint    // counts below Floor are raised to it
	Offset   uint    // subtracted before inversion
	Constant float64 // distance = Constant / (count - Offset)
	Max      float64 // upper clamp, also the "nothing in range" value
}

// DefaultObstacleCalibration returns the calibration of the MR32 Sharp
// rangefinders.
func DefaultObstacleCalibration() ObstacleCalibration {
	return ObstacleCalibration{Floor: 160, Offset: 80, Constant: 6200, Max: 70}
}

// Normalize returns the distance in centimetres for a raw ADC count, always
// within [0, Max].
func (c ObstacleCalibration) Normalize(count uint) float64 {
	if count < c.Floor {
		count = c.Floor
	}
	adjusted := float64(count) - float64(c.Offset)
	if adjusted <= 0 {
		// saturated sensor, usually nothing in range
		return c.Max
	}
	d := c.Constant / adjusted
	if d > c.Max {
		d = c.Max
	}
	if d < 0 {
		d = 0
	}
	return d
}

// NormalizeObstacle normalises a raw rangefinder count with the default
// calibration.
func NormalizeObstacle(count uint) float64 {
	return DefaultObstacleCalibration().Normalize(count)
}

// NormalizeCompass converts whole compass degrees to radians. The result is
// not range-reduced; fusion wraps it.
func NormalizeCompass(deg int) float64 {
	return units.DegreesToRadians(float64(deg))
}
