package sensors

import "fmt"

// Pose is an odometric position in metres with a heading in radians.
type Pose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// IsZero reports whether all three pose components are exactly zero.
func (p Pose) IsZero() bool {
	return p.X == 0 && p.Y == 0 && p.Theta == 0
}

func (p Pose) String() string {
	return fmt.Sprintf("x=%5.3f, y=%5.3f, t=%5.3f", p.X, p.Y, p.Theta)
}

// PoseDelta is an additive pose adjustment.
type PoseDelta struct {
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	DTheta float64 `json:"dtheta"`
}

// Obstacles holds calibrated rangefinder distances in centimetres.
type Obstacles struct {
	Front float64 `json:"front"`
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// Beacon is the state of the beacon photosensor sweep.
type Beacon struct {
	Visible           bool    `json:"visible"`
	RelativeDirection float64 `json:"relative_direction"` // radians, robot frame
}

// AnalogFrame is one analog conversion from the robot: raw rangefinder ADC
// counts and the battery voltage reading.
type AnalogFrame struct {
	Front   uint `json:"front"`
	Left    uint `json:"left"`
	Right   uint `json:"right"`
	Battery int  `json:"battery"`
}

// RawReading is the unfiltered state captured during one tick.
//
// Channels not read in a tick's Mode keep the value from the last tick that
// read them. Headings are not range-reduced at capture time.
type RawReading struct {
	Tick             uint64    `json:"tick"`
	Mode             Mode      `json:"mode"`
	Obstacles        Obstacles `json:"obstacles"`
	Ground           int       `json:"ground"`
	Compass          float64   `json:"compass"`
	Pose             Pose      `json:"pose"`
	Beacon           Beacon    `json:"beacon"`
	BatteryVoltage   int       `json:"battery_voltage"`
	AtBeaconArea     bool      `json:"at_beacon_area"`
	StartingPose     Pose      `json:"starting_pose"`
	DirectionToStart float64   `json:"direction_to_start"`
}

// Snapshot is the filtered robot state handed to the behavior layer.
//
// Obstacles are window medians, Pose.X/Y, Ground and BatteryVoltage are
// weighted means and Pose.Theta/Compass are weighted circular means in
// (-pi, pi]. Beacon, AtBeaconArea, StartingPose, DirectionToStart and
// Breadcrumbs are carried over from the newest raw reading and the trail.
type Snapshot struct {
	Tick             uint64    `json:"tick"`
	Obstacles        Obstacles `json:"obstacles"`
	Ground           float64   `json:"ground"`
	Compass          float64   `json:"compass"`
	Pose             Pose      `json:"pose"`
	BatteryVoltage   float64   `json:"battery_voltage"`
	Beacon           Beacon    `json:"beacon"`
	AtBeaconArea     bool      `json:"at_beacon_area"`
	StartingPose     Pose      `json:"starting_pose"`
	DirectionToStart float64   `json:"direction_to_start"`
	Breadcrumbs      []Pose    `json:"breadcrumbs"`
}

// clone returns a copy that shares no backing storage with s.
func (s Snapshot) clone() Snapshot {
	out := s
	if s.Breadcrumbs != nil {
		out.Breadcrumbs = make([]Pose, len(s.Breadcrumbs))
		copy(out.Breadcrumbs, s.Breadcrumbs)
	}
	return out
}
