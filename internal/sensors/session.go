package sensors

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/banshee-data/robot.sensors/internal/monitoring"
	"github.com/banshee-data/robot.sensors/internal/timeutil"
)

// ErrSessionClosed is returned by operations on a session after Shutdown.
var ErrSessionClosed = errors.New("sensors: session closed")

// Correction sources reported to a CorrectionHook.
const (
	CorrectionSourceManual = "manual"
	CorrectionSourcePolicy = "policy"
)

// Correction describes one change to the pose offset.
type Correction struct {
	Tick   uint64    `json:"tick"`
	Delta  PoseDelta `json:"delta"`
	Offset PoseDelta `json:"offset"`
	Source string    `json:"source"`
}

// CorrectionHook is notified after every offset change.
type CorrectionHook func(c Correction)

// Option configures a Session at Initialize time.
type Option func(*Session)

// WithSettings overrides the default acquisition settings.
func WithSettings(s Settings) Option {
	return func(sess *Session) { sess.settings = s }
}

// WithClock sets the clock used to pace priming and settling ticks.
func WithClock(c timeutil.Clock) Option {
	return func(sess *Session) {
		if c != nil {
			sess.clock = c
		}
	}
}

// WithCorrectionPolicy installs the policy consulted by periodic drift
// checks.
func WithCorrectionPolicy(p CorrectionPolicy) Option {
	return func(sess *Session) { sess.policy = p }
}

// WithCorrectionHook registers a callback for offset changes.
func WithCorrectionHook(h CorrectionHook) Option {
	return func(sess *Session) { sess.hook = h }
}

// Session owns all acquisition state between Initialize and Shutdown: the
// ring buffer, beacon scanner, pose offset and breadcrumb trail.
//
// Ticks are serialized. Read-only accessors may be called from other
// goroutines while the control loop is running.
type Session struct {
	mu sync.Mutex

	id       string
	src      Source
	clock    timeutil.Clock
	settings Settings
	policy   CorrectionPolicy
	hook     CorrectionHook

	buffer    *RingBuffer
	scanner   *BeaconScanner
	corrector *Corrector
	trail     *Trail

	ticks           uint64
	initialized     bool
	closed          bool
	compassBaseline float64

	raw      RawReading
	filtered Snapshot
}

// Initialize enables the hardware channels, primes the ring buffer with
// PrimingCycles rounds of BufferDepth ticks and captures the compass
// baseline before the last round.
func Initialize(ctx context.Context, src Source, opts ...Option) (*Session, error) {
	if src == nil {
		return nil, errors.New("sensors: nil source")
	}
	s := &Session{
		id:       uuid.NewString(),
		src:      src,
		clock:    timeutil.RealClock{},
		settings: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.buffer = NewRingBuffer(s.settings.BufferDepth)
	s.scanner = NewBeaconScanner(s.settings.Scan)
	s.corrector = NewCorrector(s.policy)
	s.trail = NewTrail(s.settings.BreadcrumbCapacity, s.settings.BreadcrumbDecimation)

	err := multierr.Combine(
		src.EnableObstacles(ctx),
		src.EnableGround(ctx),
	)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("enable sensor channels: %w", err), disableChannels(context.WithoutCancel(ctx), src))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cycles := max(s.settings.PrimingCycles, 1)
	for i := 0; i < cycles; i++ {
		if i == cycles-1 {
			s.compassBaseline = -s.filtered.Compass
		}
		if err := s.settleLocked(ctx, ModeDefault); err != nil {
			return nil, multierr.Append(fmt.Errorf("prime ring buffer: %w", err), disableChannels(context.WithoutCancel(ctx), src))
		}
	}
	s.initialized = true

	monitoring.Logf("sensor session %s initialized after %d ticks (compass baseline %.3f rad)", s.id, s.ticks, s.compassBaseline)
	return s, nil
}

// Shutdown disables the hardware channels and closes the session.
func (s *Session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	err := disableChannels(ctx, s.src)
	monitoring.Logf("sensor session %s closed after %d ticks", s.id, s.ticks)
	return err
}

// disableChannels turns off obstacle and ground sensing.
func disableChannels(ctx context.Context, src ChannelSwitch) error {
	return multierr.Combine(
		src.DisableObstacles(ctx),
		src.DisableGround(ctx),
	)
}

// AcquireRaw runs one refresh cycle in mode and returns the unfiltered
// reading it captured.
func (s *Session) AcquireRaw(ctx context.Context, mode Mode) (RawReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshLocked(ctx, mode); err != nil {
		return RawReading{}, err
	}
	return s.raw, nil
}

// AcquireFiltered runs one refresh cycle in mode and returns the fused
// snapshot.
func (s *Session) AcquireFiltered(ctx context.Context, mode Mode) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshLocked(ctx, mode); err != nil {
		return Snapshot{}, err
	}
	return s.filtered.clone(), nil
}

// AcquireSettled waits a tick period and refreshes, BufferDepth times, so
// the whole window reflects the current mode. Used after a mode change or a
// stop when the behavior layer needs a fully fresh view.
func (s *Session) AcquireSettled(ctx context.Context, mode Mode) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.settleLocked(ctx, mode); err != nil {
		return Snapshot{}, err
	}
	return s.filtered.clone(), nil
}

// LastRaw returns the reading from the most recent tick without touching the
// hardware.
func (s *Session) LastRaw() RawReading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw
}

// LastFiltered returns the snapshot from the most recent tick without
// touching the hardware.
func (s *Session) LastFiltered() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filtered.clone()
}

// ApplyPoseCorrection adds to the pose offset. It applies from the next
// tick on; readings already in the buffer are not rewritten.
func (s *Session) ApplyPoseCorrection(dx, dy, dtheta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.corrector.Apply(dx, dy, dtheta)
	s.notify(PoseDelta{DX: dx, DY: dy, DTheta: dtheta}, CorrectionSourceManual)
	return nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Settings returns the acquisition settings in use.
func (s *Session) Settings() Settings { return s.settings }

// Ticks returns the number of refresh cycles run so far, priming included.
func (s *Session) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Initialized reports whether priming has completed.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// CompassBaseline returns the negated filtered compass heading captured
// while priming.
func (s *Session) CompassBaseline() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compassBaseline
}

// Offset returns the accumulated pose offset.
func (s *Session) Offset() PoseDelta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.corrector.Offset()
}

// TrailLength returns the travelled distance along the breadcrumbs in
// metres.
func (s *Session) TrailLength() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trail.PathLength()
}

// ScanPosition returns the beacon servo position and sweep window.
func (s *Session) ScanPosition() (position, left, right int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	left, right = s.scanner.Window()
	return s.scanner.Position(), left, right
}

func (s *Session) settleLocked(ctx context.Context, mode Mode) error {
	for i := 0; i < s.buffer.Depth(); i++ {
		s.clock.Sleep(s.settings.TickPeriod)
		if err := s.refreshLocked(ctx, mode); err != nil {
			return err
		}
	}
	return nil
}

// refreshLocked runs one tick: read the channels mode enables, derive the
// extra values, push, fuse, sample the trail and run the periodic drift
// check. Hardware read failures keep the previous value of that channel.
func (s *Session) refreshLocked(ctx context.Context, mode Mode) error {
	if s.closed {
		return ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !mode.Valid() {
		mode = ModeDefault
	}
	channels := mode.Channels()

	s.ticks++
	r := s.raw
	r.Tick = s.ticks
	r.Mode = mode

	if p, err := s.src.ReadPose(ctx); err != nil {
		s.readFailed("pose", err)
	} else {
		r.Pose = s.corrector.Correct(p)
	}

	if deg, err := s.src.ReadCompass(ctx); err != nil {
		s.readFailed("compass", err)
	} else {
		r.Compass = NormalizeCompass(deg)
	}

	if frame, err := s.src.ReadAnalog(ctx); err != nil {
		s.readFailed("analog", err)
	} else {
		cal := s.settings.Obstacle
		r.Obstacles = Obstacles{
			Front: plausible(cal.Normalize(frame.Front), s.filtered.Obstacles.Front),
			Left:  plausible(cal.Normalize(frame.Left), s.filtered.Obstacles.Left),
			Right: plausible(cal.Normalize(frame.Right), s.filtered.Obstacles.Right),
		}
		r.BatteryVoltage = frame.Battery
	}

	if channels.Beacon {
		visible, err := s.src.ReadBeaconVisible(ctx)
		if err != nil {
			s.readFailed("beacon", err)
			visible = false
		}
		beacon, pos := s.scanner.Step(visible)
		r.Beacon = beacon
		if err := s.src.SetBeaconServo(ctx, pos); err != nil {
			s.readFailed("beacon servo", err)
		}
	}

	if channels.Ground {
		if g, err := s.src.ReadGround(ctx); err != nil {
			s.readFailed("ground", err)
		} else {
			r.Ground = g
		}
	}

	s.extrasLocked(&r)

	s.buffer.Push(r)
	fused := Fuse(s.buffer.Readings())
	s.trail.MaybeSample(r.Pose)

	fused.Beacon = r.Beacon
	fused.AtBeaconArea = r.AtBeaconArea
	fused.StartingPose = r.StartingPose
	fused.DirectionToStart = r.DirectionToStart
	fused.Breadcrumbs = s.trail.Poses()

	s.raw = r
	s.filtered = fused

	if s.initialized && s.ticks%s.settings.offsetCheckInterval() == 0 {
		s.checkOffsetLocked()
	}

	monitoring.Debugf("tick %d mode=%s pose=[%s] compass=%.3f obst=[%.1f %.1f %.1f] ground=%d beacon=%t/%.3f",
		r.Tick, mode, r.Pose, r.Compass, r.Obstacles.Front, r.Obstacles.Left, r.Obstacles.Right,
		r.Ground, r.Beacon.Visible, r.Beacon.RelativeDirection)
	return nil
}

// extrasLocked fills the values derived from the other channels. The
// starting pose is the first pose seen while it is still all zeros.
func (s *Session) extrasLocked(r *RawReading) {
	if r.StartingPose.IsZero() {
		r.StartingPose = r.Pose
	}
	bearing := math.Atan2(r.StartingPose.Y-r.Pose.Y, r.StartingPose.X-r.Pose.X)
	r.DirectionToStart = AngleDifference(bearing, r.Pose.Theta)
	r.AtBeaconArea = r.Ground > 0
}

func (s *Session) checkOffsetLocked() {
	delta, changed := s.corrector.Check(DriftInput{
		Tick:            s.ticks,
		Filtered:        s.filtered.clone(),
		CompassBaseline: s.compassBaseline,
	})
	if changed {
		s.notify(delta, CorrectionSourcePolicy)
	}
}

func (s *Session) notify(delta PoseDelta, source string) {
	if s.hook == nil {
		return
	}
	s.hook(Correction{
		Tick:   s.ticks,
		Delta:  delta,
		Offset: s.corrector.Offset(),
		Source: source,
	})
}

func (s *Session) readFailed(channel string, err error) {
	monitoring.Logf("sensor session %s tick %d: %s read failed, keeping previous value: %v", s.id, s.ticks, channel, err)
}

// plausible substitutes the previous filtered value for an inconclusive
// obstacle distance.
func plausible(distance, previous float64) float64 {
	if distance <= 0 {
		return previous
	}
	return distance
}
