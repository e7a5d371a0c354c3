package sensors

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// Trail is the bounded breadcrumb history of past poses.
//
// Every Decimation-th call to MaybeSample commits a pose. The cursor
// saturates at Capacity-1: once full, later samples overwrite the last slot
// and the earliest part of the route is kept.
type Trail struct {
	slots      []Pose
	decimation int
	counter    int
	cursor     int
}

// NewTrail creates an empty trail. Capacity and decimation below 1 are
// raised to 1.
func NewTrail(capacity, decimation int) *Trail {
	if capacity < 1 {
		capacity = 1
	}
	if decimation < 1 {
		decimation = 1
	}
	return &Trail{
		slots:      make([]Pose, capacity),
		decimation: decimation,
		cursor:     -1,
	}
}

// MaybeSample is called once per tick and reports whether p was committed.
// The first call always commits.
func (t *Trail) MaybeSample(p Pose) bool {
	sampled := false
	if t.counter%t.decimation == 0 {
		t.cursor = min(t.cursor+1, len(t.slots)-1)
		t.slots[t.cursor] = p
		t.counter = 0
		sampled = true
	}
	t.counter++
	return sampled
}

// Cursor returns the index of the newest breadcrumb, or -1 before the first
// sample.
func (t *Trail) Cursor() int { return t.cursor }

// Len returns the number of committed breadcrumbs.
func (t *Trail) Len() int { return t.cursor + 1 }

// Capacity returns the maximum number of breadcrumbs.
func (t *Trail) Capacity() int { return len(t.slots) }

// Full reports whether the cursor has saturated.
func (t *Trail) Full() bool { return t.cursor == len(t.slots)-1 }

// Poses returns a copy of the breadcrumbs up to and including the cursor.
func (t *Trail) Poses() []Pose {
	out := make([]Pose, t.Len())
	copy(out, t.slots[:t.Len()])
	return out
}

// LineString returns the trail as a planar line in metres.
func (t *Trail) LineString() orb.LineString {
	return poseLine(t.slots[:t.Len()])
}

// PathLength returns the travelled distance along the trail in metres.
func (t *Trail) PathLength() float64 {
	if t.Len() < 2 {
		return 0
	}
	return planar.Length(t.LineString())
}

// SimplifyPath reduces a pose sequence with Douglas-Peucker.
func SimplifyPath(poses []Pose, tolerance float64) orb.LineString {
	ls := poseLine(poses)
	if len(ls) < 3 || tolerance <= 0 {
		return ls
	}
	s := simplify.DouglasPeucker(tolerance).Simplify(ls.Clone())
	if out, ok := s.(orb.LineString); ok {
		return out
	}
	return ls
}

func poseLine(poses []Pose) orb.LineString {
	ls := make(orb.LineString, len(poses))
	for i, p := range poses {
		ls[i] = orb.Point{p.X, p.Y}
	}
	return ls
}
