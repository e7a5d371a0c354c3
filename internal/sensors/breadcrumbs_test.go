package sensors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrail_Decimation(t *testing.T) {
	t.Parallel()

	tr := NewTrail(10, 10)
	assert.Equal(t, -1, tr.Cursor())

	committed := 0
	for i := 0; i < 25; i++ {
		if tr.MaybeSample(Pose{X: float64(i)}) {
			committed++
		}
	}
	// calls 1, 11 and 21
	assert.Equal(t, 3, committed)
	assert.Equal(t, []Pose{{X: 0}, {X: 10}, {X: 20}}, tr.Poses())
}

func TestTrail_SaturatesInsteadOfWrapping(t *testing.T) {
	t.Parallel()

	tr := NewTrail(3, 1)
	for i := 0; i < 6; i++ {
		tr.MaybeSample(Pose{X: float64(i)})
		require.LessOrEqual(t, tr.Cursor(), 2)
	}
	assert.True(t, tr.Full())
	assert.Equal(t, 3, tr.Len())
	// the earliest segment is kept, the last slot is overwritten
	assert.Equal(t, []Pose{{X: 0}, {X: 1}, {X: 5}}, tr.Poses())
}

func TestTrail_SaturatesWithDecimation(t *testing.T) {
	t.Parallel()

	tr := NewTrail(3, 10)
	for i := 0; i < 45; i++ {
		tr.MaybeSample(Pose{X: float64(i)})
		require.LessOrEqual(t, tr.Len(), 3)
		if i >= 20 {
			require.Equal(t, 2, tr.Cursor(), "call %d", i)
		}
	}
	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, []Pose{{X: 0}, {X: 10}, {X: 40}}, tr.Poses())
}

func TestTrail_PosesIsACopy(t *testing.T) {
	t.Parallel()

	tr := NewTrail(2, 1)
	tr.MaybeSample(Pose{X: 1})
	got := tr.Poses()
	got[0].X = 99
	assert.Equal(t, 1.0, tr.Poses()[0].X)
}

func TestTrail_PathLength(t *testing.T) {
	t.Parallel()

	tr := NewTrail(5, 1)
	assert.Equal(t, 0.0, tr.PathLength())
	tr.MaybeSample(Pose{X: 0, Y: 0})
	tr.MaybeSample(Pose{X: 3, Y: 4})
	tr.MaybeSample(Pose{X: 3, Y: 5})
	assert.InDelta(t, 6.0, tr.PathLength(), 1e-9)
}

func TestSimplifyPath_DropsCollinearPoints(t *testing.T) {
	t.Parallel()

	poses := []Pose{{X: 0}, {X: 1, Y: 0.001}, {X: 2}, {X: 3}, {X: 3, Y: 2}}
	ls := SimplifyPath(poses, 0.01)
	require.Len(t, ls, 3)
	assert.Equal(t, 0.0, ls[0][0])
	assert.Equal(t, 3.0, ls[1][0])
	assert.Equal(t, 2.0, ls[2][1])

	// no tolerance keeps everything
	assert.Len(t, SimplifyPath(poses, 0), 5)
}
