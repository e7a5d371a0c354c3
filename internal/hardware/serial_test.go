package hardware

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/robot.sensors/internal/sensors"
	"github.com/banshee-data/robot.sensors/internal/serialmux"
	"github.com/banshee-data/robot.sensors/internal/timeutil"
)

// controller answers the line protocol with fixed readings.
func controller(cmd string) string {
	switch {
	case cmd == "A":
		return "A 400 200 1000 84"
	case cmd == "G":
		return "G 3"
	case cmd == "C":
		return "C 90"
	case cmd == "P":
		return "P 0.5 -0.25 1.5"
	case cmd == "B":
		return "B 1"
	case strings.HasPrefix(cmd, "EN "), strings.HasPrefix(cmd, "DIS "), strings.HasPrefix(cmd, "S "):
		return "OK"
	}
	return "ERR unknown " + cmd
}

func startSource(t *testing.T, respond serialmux.Responder, timeout time.Duration) (*SerialSource, *serialmux.ResponderPort) {
	t.Helper()
	port := serialmux.NewResponderPort(respond)
	mux := serialmux.NewSerialMux(port)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = mux.Monitor(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		_ = mux.Close()
		<-done
	})
	return NewSerialSource(mux, timeout), port
}

func TestSerialSource_Reads(t *testing.T) {
	src, _ := startSource(t, controller, time.Second)
	ctx := context.Background()

	frame, err := src.ReadAnalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, sensors.AnalogFrame{Front: 400, Left: 200, Right: 1000, Battery: 84}, frame)

	g, err := src.ReadGround(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, g)

	c, err := src.ReadCompass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 90, c)

	p, err := src.ReadPose(ctx)
	require.NoError(t, err)
	assert.Equal(t, sensors.Pose{X: 0.5, Y: -0.25, Theta: 1.5}, p)

	visible, err := src.ReadBeaconVisible(ctx)
	require.NoError(t, err)
	assert.True(t, visible)
}

func TestSerialSource_Commands(t *testing.T) {
	src, port := startSource(t, controller, time.Second)
	ctx := context.Background()

	require.NoError(t, src.EnableObstacles(ctx))
	require.NoError(t, src.EnableGround(ctx))
	require.NoError(t, src.SetBeaconServo(ctx, -4))
	require.NoError(t, src.DisableObstacles(ctx))
	require.NoError(t, src.DisableGround(ctx))

	assert.Equal(t, []string{"EN O", "EN G", "S -4", "DIS O", "DIS G"}, port.Commands())
}

func TestSerialSource_DeviceError(t *testing.T) {
	src, _ := startSource(t, func(string) string { return "ERR adc busy" }, time.Second)

	_, err := src.ReadAnalog(context.Background())
	require.ErrorIs(t, err, serialmux.ErrDeviceError)
	assert.Contains(t, err.Error(), "adc busy")

	err = src.EnableObstacles(context.Background())
	assert.ErrorIs(t, err, serialmux.ErrDeviceError)
}

func TestSerialSource_MalformedReplies(t *testing.T) {
	replies := map[string]string{
		"A": "A 1 2 3",
		"G": "G x",
		"C": "C",
		"P": "P 1 two 3",
		"B": "B",
	}
	src, _ := startSource(t, func(cmd string) string { return replies[cmd] }, time.Second)
	ctx := context.Background()

	_, err := src.ReadAnalog(ctx)
	assert.Error(t, err)
	_, err = src.ReadGround(ctx)
	assert.Error(t, err)
	_, err = src.ReadCompass(ctx)
	assert.Error(t, err)
	_, err = src.ReadPose(ctx)
	assert.Error(t, err)
	_, err = src.ReadBeaconVisible(ctx)
	assert.Error(t, err)
}

func TestSerialSource_NegativeCount(t *testing.T) {
	src, _ := startSource(t, func(string) string { return "A -1 2 3 80" }, time.Second)
	_, err := src.ReadAnalog(context.Background())
	assert.ErrorContains(t, err, "negative count")
}

func TestSerialSource_Timeout(t *testing.T) {
	src, _ := startSource(t, nil, 30*time.Millisecond)

	start := time.Now()
	_, err := src.ReadCompass(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSerialSource_DefaultTimeout(t *testing.T) {
	src := NewSerialSource(serialmux.NewDisabledSerialMux(), 0)
	assert.Equal(t, DefaultRequestTimeout, src.timeout)

	_, err := src.ReadPose(context.Background())
	assert.ErrorIs(t, err, serialmux.ErrDisabled)
}

func TestSerialSource_DrivesSession(t *testing.T) {
	src, port := startSource(t, controller, time.Second)
	clock := timeutil.NewMockClock(time.Unix(0, 0))

	s, err := sensors.Initialize(context.Background(), src, sensors.WithClock(clock))
	require.NoError(t, err)

	snap := s.LastFiltered()
	assert.InDelta(t, 6200.0/320.0, snap.Obstacles.Front, 1e-9)
	assert.InDelta(t, 6200.0/120.0, snap.Obstacles.Left, 1e-9)
	assert.InDelta(t, 6200.0/920.0, snap.Obstacles.Right, 1e-9)
	assert.InDelta(t, 1.5, snap.Pose.Theta, 1e-9)
	assert.True(t, snap.AtBeaconArea)

	raw, err := s.AcquireRaw(context.Background(), sensors.ModeSearchingForBeacon)
	require.NoError(t, err)
	assert.True(t, raw.Beacon.Visible)

	require.NoError(t, s.Shutdown(context.Background()))
	cmds := port.Commands()
	assert.Equal(t, []string{"EN O", "EN G"}, cmds[:2])
	assert.Equal(t, []string{"DIS O", "DIS G"}, cmds[len(cmds)-2:])
	assert.Contains(t, cmds, fmt.Sprintf("S %d", -2))
}
