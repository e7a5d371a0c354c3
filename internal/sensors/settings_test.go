package sensors

import (
	"testing"

	"github.com/banshee-data/robot.sensors/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestSettingsFromConfig_NegativeCalibrationClamped(t *testing.T) {
	t.Parallel()

	floor, offset := -5, -1
	cfg := config.EmptySensorConfig()
	cfg.ObstacleFloor = &floor
	cfg.ObstacleOffset = &offset

	s := SettingsFromConfig(cfg)
	assert.Equal(t, uint(0), s.Obstacle.Floor)
	assert.Equal(t, uint(0), s.Obstacle.Offset)
	// a close object still reads as close
	assert.Less(t, s.Obstacle.Normalize(1000), 10.0)
}
