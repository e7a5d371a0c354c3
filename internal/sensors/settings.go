package sensors

import (
	"time"

	"github.com/banshee-data/robot.sensors/internal/config"
)

// Settings are the acquisition parameters for one Session.
type Settings struct {
	TickPeriod            time.Duration
	BufferDepth           int
	PrimingCycles         int
	OffsetCheckMultiplier int
	BreadcrumbCapacity    int
	BreadcrumbDecimation  int
	Scan                  ScanConfig
	Obstacle              ObstacleCalibration
}

// DefaultSettings returns the values the robot runs with out of the box.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.EmptySensorConfig())
}

// SettingsFromConfig builds Settings from a loaded config. A nil config
// yields the defaults.
func SettingsFromConfig(cfg *config.SensorConfig) Settings {
	if cfg == nil {
		cfg = config.EmptySensorConfig()
	}
	return Settings{
		TickPeriod:            cfg.GetTickPeriod(),
		BufferDepth:           cfg.GetBufferDepth(),
		PrimingCycles:         cfg.GetPrimingCycles(),
		OffsetCheckMultiplier: cfg.GetOffsetCheckMultiplier(),
		BreadcrumbCapacity:    cfg.GetBreadcrumbCapacity(),
		BreadcrumbDecimation:  cfg.GetBreadcrumbDecimation(),
		Scan: ScanConfig{
			Limit:  cfg.GetServoLimit(),
			Buffer: cfg.GetServoBuffer(),
			Step:   cfg.GetServoStep(),
		},
		Obstacle: ObstacleCalibration{
			Floor:    uint(max(0, cfg.GetObstacleFloor())),
			Offset:   uint(max(0, cfg.GetObstacleOffset())),
			Constant: cfg.GetObstacleConstant(),
			Max:      cfg.GetObstacleMax(),
		},
	}
}

// offsetCheckInterval is the tick spacing of periodic drift checks.
func (s Settings) offsetCheckInterval() uint64 {
	n := s.OffsetCheckMultiplier * s.BufferDepth
	if n < 1 {
		n = 1
	}
	return uint64(n)
}
