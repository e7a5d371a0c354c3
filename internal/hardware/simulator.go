package hardware

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"

	"github.com/banshee-data/robot.sensors/internal/sensors"
)

// ErrChannelDisabled is returned when a channel is read before it was
// enabled.
var ErrChannelDisabled = errors.New("sensor channel disabled")

// Simulator is a synthetic robot driving a circle inside a square arena with
// a beacon at the centre and a beacon area mark on the far side of the
// circle. Each ReadPose call advances the simulation by one tick.
type Simulator struct {
	mu sync.Mutex

	// Configuration
	CircleRadius   float64 // metres
	TickArc        float64 // radians of the circle travelled per tick
	ArenaHalfWidth float64 // metres from arena centre to each wall
	CompassOffset  int     // degrees between magnetic north and odometry zero
	CompassNoise   float64 // degrees, standard deviation
	PoseNoise      float64 // metres, standard deviation
	OutlierRate    float64 // probability of a spurious rangefinder reflection
	BeaconWidth    float64 // radians, half-width of the photosensor cone
	AreaRadius     float64 // metres, radius of the ground mark

	calibration sensors.ObstacleCalibration

	step      int
	servo     int
	obstacles bool
	ground    bool
	battery   float64
	rng       *rand.Rand
}

var _ sensors.Source = (*Simulator)(nil)

// NewSimulator creates a simulator with a deterministic noise source.
func NewSimulator(seed int64) *Simulator {
	return &Simulator{
		CircleRadius:   0.6,
		TickArc:        2 * math.Pi / 400,
		ArenaHalfWidth: 1.0,
		CompassOffset:  12,
		CompassNoise:   2,
		PoseNoise:      0.002,
		OutlierRate:    0.05,
		BeaconWidth:    0.12,
		AreaRadius:     0.15,
		calibration:    sensors.DefaultObstacleCalibration(),
		battery:        84,
		rng:            rand.New(rand.NewSource(seed)),
	}
}

// truePose is the noiseless pose at the current step. The circle starts at
// the origin heading along +x and is centred at (0, R).
func (s *Simulator) truePose() sensors.Pose {
	a := float64(s.step) * s.TickArc
	r := s.CircleRadius
	return sensors.Pose{
		X:     r * math.Sin(a),
		Y:     r * (1 - math.Cos(a)),
		Theta: sensors.WrapAngle(a),
	}
}

// beaconPosition is the centre of the arena.
func (s *Simulator) beaconPosition() (float64, float64) {
	return 0, s.CircleRadius
}

// areaPosition is the point of the circle opposite the start.
func (s *Simulator) areaPosition() (float64, float64) {
	return 0, 2 * s.CircleRadius
}

// ReadPose advances one tick and returns the odometric pose.
func (s *Simulator) ReadPose(context.Context) (sensors.Pose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step++
	s.battery -= 0.001
	p := s.truePose()
	p.X += s.rng.NormFloat64() * s.PoseNoise
	p.Y += s.rng.NormFloat64() * s.PoseNoise
	return p, nil
}

// ReadCompass returns the heading in whole degrees with noise and a fixed
// magnetic offset.
func (s *Simulator) ReadCompass(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deg := s.truePose().Theta*180/math.Pi + float64(s.CompassOffset) + s.rng.NormFloat64()*s.CompassNoise
	return int(math.Round(deg)), nil
}

// ReadAnalog returns rangefinder counts for the distance to the arena wall
// along each sensor's bearing, plus the battery reading.
func (s *Simulator) ReadAnalog(context.Context) (sensors.AnalogFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.obstacles {
		return sensors.AnalogFrame{}, ErrChannelDisabled
	}
	p := s.truePose()
	return sensors.AnalogFrame{
		Front:   s.countAt(p, 0),
		Left:    s.countAt(p, math.Pi/4),
		Right:   s.countAt(p, -math.Pi/4),
		Battery: int(math.Round(s.battery)),
	}, nil
}

// countAt inverts the obstacle calibration for the wall distance seen at
// bearing relative to the robot heading.
func (s *Simulator) countAt(p sensors.Pose, bearing float64) uint {
	if s.rng.Float64() < s.OutlierRate {
		return s.calibration.Floor + uint(s.rng.Intn(40))
	}
	cm := s.wallDistance(p, p.Theta+bearing) * 100
	if cm >= s.calibration.Max {
		return 0
	}
	return uint(s.calibration.Constant/cm) + s.calibration.Offset
}

// wallDistance is the ray length from p along heading to the square arena
// boundary centred on the circle centre.
func (s *Simulator) wallDistance(p sensors.Pose, heading float64) float64 {
	cx, cy := s.beaconPosition()
	dx, dy := math.Cos(heading), math.Sin(heading)
	best := math.Inf(1)
	for _, wall := range []struct{ pos, origin, dir float64 }{
		{cx + s.ArenaHalfWidth, p.X, dx},
		{cx - s.ArenaHalfWidth, p.X, dx},
		{cy + s.ArenaHalfWidth, p.Y, dy},
		{cy - s.ArenaHalfWidth, p.Y, dy},
	} {
		if wall.dir == 0 {
			continue
		}
		if t := (wall.pos - wall.origin) / wall.dir; t > 0 && t < best {
			best = t
		}
	}
	return best
}

// ReadGround reports bit 0 set while over the beacon area mark.
func (s *Simulator) ReadGround(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ground {
		return 0, ErrChannelDisabled
	}
	p := s.truePose()
	ax, ay := s.areaPosition()
	if math.Hypot(p.X-ax, p.Y-ay) <= s.AreaRadius {
		return 1, nil
	}
	return 0, nil
}

// ReadBeaconVisible reports whether the servo points within BeaconWidth of
// the beacon.
func (s *Simulator) ReadBeaconVisible(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.truePose()
	bx, by := s.beaconPosition()
	bearing := sensors.AngleDifference(math.Atan2(by-p.Y, bx-p.X), p.Theta)
	servo := float64(s.servo) / 15 * math.Pi / 2
	return math.Abs(sensors.AngleDifference(bearing, servo)) <= s.BeaconWidth, nil
}

// SetBeaconServo moves the simulated servo.
func (s *Simulator) SetBeaconServo(_ context.Context, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servo = position
	return nil
}

// ServoPosition returns the last commanded servo position.
func (s *Simulator) ServoPosition() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.servo
}

// Step returns the number of ticks simulated.
func (s *Simulator) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

func (s *Simulator) EnableObstacles(context.Context) error {
	s.setChannel(&s.obstacles, true)
	return nil
}

func (s *Simulator) EnableGround(context.Context) error {
	s.setChannel(&s.ground, true)
	return nil
}

func (s *Simulator) DisableObstacles(context.Context) error {
	s.setChannel(&s.obstacles, false)
	return nil
}

func (s *Simulator) DisableGround(context.Context) error {
	s.setChannel(&s.ground, false)
	return nil
}

func (s *Simulator) setChannel(ch *bool, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*ch = on
}
