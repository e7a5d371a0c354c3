package sensors

import (
	"math"
	"testing"

	"github.com/banshee-data/robot.sensors/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeights(t *testing.T) {
	t.Parallel()

	if diff := cmp.Diff([]float64{1, 1, 1, 2, 2}, Weights(5)); diff != "" {
		t.Errorf("Weights(5) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{1}, Weights(1)); diff != "" {
		t.Errorf("Weights(1) mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, Weights(0))
}

func TestMedian(t *testing.T) {
	t.Parallel()

	t.Run("odd", func(t *testing.T) {
		in := []float64{1, 3, 2, 5, 4}
		assert.Equal(t, 3.0, Median(in))
		assert.Equal(t, []float64{1, 3, 2, 5, 4}, in, "input must not be reordered")
	})
	t.Run("even", func(t *testing.T) {
		assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	})
	t.Run("single", func(t *testing.T) {
		assert.Equal(t, 7.0, Median([]float64{7}))
	})
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, 0.0, Median(nil))
	})
}

func readingAt(tick uint64, x, theta, front float64, ground int) RawReading {
	return RawReading{
		Tick:           tick,
		Pose:           Pose{X: x, Theta: theta},
		Compass:        theta,
		Obstacles:      Obstacles{Front: front, Left: front, Right: front},
		Ground:         ground,
		BatteryVoltage: 80,
	}
}

func TestFuse_ObstacleMedianRejectsOutlier(t *testing.T) {
	t.Parallel()

	window := []RawReading{
		readingAt(1, 0, 0, 20, 0),
		readingAt(2, 0, 0, 20, 0),
		readingAt(3, 0, 0, 70, 0), // reflection
		readingAt(4, 0, 0, 21, 0),
		readingAt(5, 0, 0, 19, 0),
	}
	got := Fuse(window)
	assert.Equal(t, 20.0, got.Obstacles.Front)
	assert.Equal(t, uint64(5), got.Tick)
}

func TestFuse_WeightedMeans(t *testing.T) {
	t.Parallel()

	window := []RawReading{
		readingAt(1, 0, 0, 10, 0),
		readingAt(2, 0, 0, 10, 0),
		readingAt(3, 0, 0, 10, 0),
		readingAt(4, 7, 0, 10, 7),
		readingAt(5, 7, 0, 10, 7),
	}
	got := Fuse(window)

	// weights 1,1,1,2,2 sum to 7
	assert.InDelta(t, 4.0, got.Pose.X, 1e-9)
	assert.InDelta(t, 4.0, got.Ground, 1e-9)
	assert.InDelta(t, 80.0, got.BatteryVoltage, 1e-9)
}

func TestFuse_HeadingAcrossDiscontinuity(t *testing.T) {
	t.Parallel()

	window := []RawReading{
		readingAt(1, 0, math.Pi-0.05, 10, 0),
		readingAt(2, 0, -math.Pi+0.05, 10, 0),
		readingAt(3, 0, math.Pi-0.05, 10, 0),
		readingAt(4, 0, -math.Pi+0.05, 10, 0),
		readingAt(5, 0, 3*math.Pi, 10, 0), // unwrapped capture
	}
	got := Fuse(window)

	testutil.AssertAngleNear(t, math.Pi, got.Pose.Theta, 0.05)
	testutil.AssertAngleNear(t, math.Pi, got.Compass, 0.05)
	assert.Greater(t, got.Pose.Theta, -math.Pi)
	assert.LessOrEqual(t, got.Pose.Theta, math.Pi)
}

func TestFuse_PrimedBufferHasNoBias(t *testing.T) {
	t.Parallel()

	r := readingAt(1, 1.5, 0.4, 33, 2)
	r.Pose.Y = -2
	b := NewRingBuffer(5)
	b.Push(r)

	got := Fuse(b.Readings())
	require.Equal(t, 5, b.Len())
	assert.InDelta(t, 1.5, got.Pose.X, 1e-12)
	assert.InDelta(t, -2.0, got.Pose.Y, 1e-12)
	assert.InDelta(t, 0.4, got.Pose.Theta, 1e-12)
	assert.InDelta(t, 0.4, got.Compass, 1e-12)
	assert.Equal(t, 33.0, got.Obstacles.Front)
	assert.InDelta(t, 2.0, got.Ground, 1e-12)
}

func TestFuse_Empty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Snapshot{}, Fuse(nil))
}
