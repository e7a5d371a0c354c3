// Package units provides shared constants and conversions for angle units
package units

import "math"

// Unit constants
const (
	Radians = "rad"
	Degrees = "deg"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Radians, Degrees}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "rad, deg"
}

// DegreesToRadians converts an angle in degrees to radians without any range
// reduction.
func DegreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// RadiansToDegrees converts an angle in radians to degrees without any range
// reduction.
func RadiansToDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// ConvertAngle converts an angle from radians to the target units.
// Snapshots store angles in radians.
func ConvertAngle(rad float64, targetUnits string) float64 {
	switch targetUnits {
	case Degrees:
		return RadiansToDegrees(rad)
	case Radians:
		return rad
	default:
		return rad // default to radians if unknown unit
	}
}
