package monitor

import (
	"net/http"
	"strconv"

	"github.com/banshee-data/robot.sensors/internal/sensors"
	"github.com/banshee-data/robot.sensors/internal/units"
)

// snapshotInUnits converts every angle of s from radians. The breadcrumb
// slice is copied before conversion.
func snapshotInUnits(s sensors.Snapshot, u string) sensors.Snapshot {
	if u == units.Radians {
		return s
	}
	s.Compass = units.ConvertAngle(s.Compass, u)
	s.Pose.Theta = units.ConvertAngle(s.Pose.Theta, u)
	s.StartingPose.Theta = units.ConvertAngle(s.StartingPose.Theta, u)
	s.DirectionToStart = units.ConvertAngle(s.DirectionToStart, u)
	s.Beacon.RelativeDirection = units.ConvertAngle(s.Beacon.RelativeDirection, u)
	if s.Breadcrumbs != nil {
		crumbs := make([]sensors.Pose, len(s.Breadcrumbs))
		for i, p := range s.Breadcrumbs {
			p.Theta = units.ConvertAngle(p.Theta, u)
			crumbs[i] = p
		}
		s.Breadcrumbs = crumbs
	}
	return s
}

func rawInUnits(r sensors.RawReading, u string) sensors.RawReading {
	if u == units.Radians {
		return r
	}
	r.Compass = units.ConvertAngle(r.Compass, u)
	r.Pose.Theta = units.ConvertAngle(r.Pose.Theta, u)
	r.StartingPose.Theta = units.ConvertAngle(r.StartingPose.Theta, u)
	r.DirectionToStart = units.ConvertAngle(r.DirectionToStart, u)
	r.Beacon.RelativeDirection = units.ConvertAngle(r.Beacon.RelativeDirection, u)
	return r
}

func floatParam(r *http.Request, name string, def float64) (float64, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// intParam parses a positive integer parameter, clamped to limit.
func intParam(r *http.Request, name string, def, limit int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return min(n, limit), true
}
