package sensors

import "github.com/banshee-data/robot.sensors/internal/monitoring"

// DriftInput is what a correction policy sees at each periodic check.
type DriftInput struct {
	Tick            uint64
	Filtered        Snapshot
	CompassBaseline float64
	Offset          PoseDelta
}

// CorrectionPolicy decides whether a periodic drift check should adjust the
// pose offset. Returning ok=false leaves the offset untouched.
type CorrectionPolicy interface {
	Evaluate(in DriftInput) (delta PoseDelta, ok bool)
}

// CorrectionPolicyFunc adapts a function to CorrectionPolicy.
type CorrectionPolicyFunc func(in DriftInput) (PoseDelta, bool)

func (f CorrectionPolicyFunc) Evaluate(in DriftInput) (PoseDelta, bool) {
	return f(in)
}

// IdentityPolicy never corrects. Odometry stays the source of truth for the
// pose; compass heading is reported but never folded back into it, so the
// pose the motion controller integrates and the one reported here agree.
// Corrections only happen through explicit ApplyPoseCorrection calls.
type IdentityPolicy struct{}

func (IdentityPolicy) Evaluate(DriftInput) (PoseDelta, bool) {
	return PoseDelta{}, false
}

// Corrector holds the additive pose offset for a session.
type Corrector struct {
	offset PoseDelta
	policy CorrectionPolicy
	checks int
}

// NewCorrector returns a zero-offset corrector. A nil policy means
// IdentityPolicy.
func NewCorrector(policy CorrectionPolicy) *Corrector {
	if policy == nil {
		policy = IdentityPolicy{}
	}
	return &Corrector{policy: policy}
}

// Apply adds the deltas to the accumulated offset.
func (c *Corrector) Apply(dx, dy, dtheta float64) {
	c.offset.DX += dx
	c.offset.DY += dy
	c.offset.DTheta += dtheta
	monitoring.Logf("pose correction: dx=%5.3f, dy=%5.3f, dt=%5.3f", c.offset.DX, c.offset.DY, c.offset.DTheta)
}

// Offset returns the accumulated offset.
func (c *Corrector) Offset() PoseDelta {
	return c.offset
}

// Correct returns p shifted by the accumulated offset. The heading is not
// wrapped.
func (c *Corrector) Correct(p Pose) Pose {
	return Pose{
		X:     p.X + c.offset.DX,
		Y:     p.Y + c.offset.DY,
		Theta: p.Theta + c.offset.DTheta,
	}
}

// Check runs the periodic drift evaluation and applies whatever the policy
// returns. It reports whether the offset changed.
func (c *Corrector) Check(in DriftInput) (PoseDelta, bool) {
	c.checks++
	in.Offset = c.offset
	delta, ok := c.policy.Evaluate(in)
	if !ok {
		return PoseDelta{}, false
	}
	c.Apply(delta.DX, delta.DY, delta.DTheta)
	return delta, true
}

// Checks returns how many periodic checks have run.
func (c *Corrector) Checks() int {
	return c.checks
}
