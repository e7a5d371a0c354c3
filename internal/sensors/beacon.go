package sensors

import "math"

// ScanDirection is the direction the beacon servo is currently travelling.
type ScanDirection int

const (
	ScanLeft ScanDirection = iota
	ScanRight
)

func (d ScanDirection) String() string {
	if d == ScanRight {
		return "right"
	}
	return "left"
}

// ScanConfig bounds the beacon servo sweep. Positions run from -Limit to
// +Limit; Buffer is the half-width of the narrowed window around a sighting
// and Step the servo travel per tick.
type ScanConfig struct {
	Limit  int
	Buffer int
	Step   int
}

// DefaultScanConfig matches the MR32 beacon turret.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{Limit: 15, Buffer: 3, Step: 2}
}

// normalized raises fields below 1 to 1. Loaded configs already reject
// them; this covers ScanConfigs built in code.
func (c ScanConfig) normalized() ScanConfig {
	if c.Limit < 1 {
		c.Limit = 1
	}
	if c.Buffer < 1 {
		c.Buffer = 1
	}
	if c.Step < 1 {
		c.Step = 1
	}
	return c
}

// holdTicks is how long a sighting is held without a fresh detection.
func (c ScanConfig) holdTicks() int {
	return 3 * c.Buffer
}

// BeaconScanner is the sweep state machine for the beacon photosensor.
//
// A sighting narrows the window to Buffer positions either side of where it
// happened. Once 3*Buffer ticks pass without another sighting the beacon is
// reported lost and the window widens back to the full range.
type BeaconScanner struct {
	cfg       ScanConfig
	position  int
	direction ScanDirection
	left      int
	right     int
	hold      int
	beacon    Beacon
}

// NewBeaconScanner starts a scanner at the centre of the full window,
// moving left.
func NewBeaconScanner(cfg ScanConfig) *BeaconScanner {
	cfg = cfg.normalized()
	return &BeaconScanner{
		cfg:       cfg,
		direction: ScanLeft,
		left:      -cfg.Limit,
		right:     cfg.Limit,
	}
}

// Step feeds one beacon reading into the machine. It returns the resulting
// beacon state and the servo position to command for the next tick.
func (s *BeaconScanner) Step(visible bool) (Beacon, int) {
	if visible {
		s.beacon.Visible = true
		s.beacon.RelativeDirection = s.directionAt(s.position)
		s.hold = 0
		s.left = max(s.position-s.cfg.Buffer, -s.cfg.Limit)
		s.right = min(s.position+s.cfg.Buffer, s.cfg.Limit)
	}

	if s.beacon.Visible && s.hold > s.cfg.holdTicks() {
		s.left, s.right = -s.cfg.Limit, s.cfg.Limit
		s.beacon.Visible = false
		s.hold = 0
	} else {
		s.hold++
	}

	switch {
	case s.position <= s.left:
		s.direction = ScanRight
	case s.position >= s.right:
		s.direction = ScanLeft
	}

	if s.direction == ScanLeft {
		s.position -= s.cfg.Step
	} else {
		s.position += s.cfg.Step
	}
	s.position = min(max(s.position, s.left), s.right)

	return s.beacon, s.position
}

// directionAt maps a servo position to a bearing in radians; the full
// servo range spans a half turn.
func (s *BeaconScanner) directionAt(position int) float64 {
	return float64(position) / float64(s.cfg.Limit) * math.Pi / 2
}

// Position returns the current servo position.
func (s *BeaconScanner) Position() int { return s.position }

// Direction returns the current sweep direction.
func (s *BeaconScanner) Direction() ScanDirection { return s.direction }

// Window returns the current sweep window bounds.
func (s *BeaconScanner) Window() (left, right int) { return s.left, s.right }

// Beacon returns the last reported beacon state.
func (s *BeaconScanner) Beacon() Beacon { return s.beacon }

// HoldCount returns the ticks since the last sighting.
func (s *BeaconScanner) HoldCount() int { return s.hold }

// Config returns the scan configuration in use.
func (s *BeaconScanner) Config() ScanConfig { return s.cfg }
