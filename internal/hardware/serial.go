// Package hardware provides the sensors.Source implementations: a serial
// link to the robot controller and a simulator for running without one.
package hardware

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/robot.sensors/internal/sensors"
	"github.com/banshee-data/robot.sensors/internal/serialmux"
)

// DefaultRequestTimeout bounds one request/reply exchange.
const DefaultRequestTimeout = 200 * time.Millisecond

// SerialSource reads the robot's sensors over the controller's line protocol.
type SerialSource struct {
	mux     serialmux.SerialMuxInterface
	timeout time.Duration
}

var _ sensors.Source = (*SerialSource)(nil)

// NewSerialSource wraps a running mux. Monitor must be running on mux for
// replies to be delivered. A non-positive timeout uses
// DefaultRequestTimeout.
func NewSerialSource(mux serialmux.SerialMuxInterface, timeout time.Duration) *SerialSource {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &SerialSource{mux: mux, timeout: timeout}
}

func (s *SerialSource) request(ctx context.Context, command, kind string) (serialmux.Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	line, err := s.mux.Request(ctx, command, kind)
	if err != nil {
		return serialmux.Reply{}, err
	}
	return serialmux.ParseReply(line)
}

func (s *SerialSource) ack(ctx context.Context, command string) error {
	if _, err := s.request(ctx, command, serialmux.ReplyOK); err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	return nil
}

// ReadAnalog requests one conversion of the rangefinders and battery.
func (s *SerialSource) ReadAnalog(ctx context.Context) (sensors.AnalogFrame, error) {
	reply, err := s.request(ctx, "A", serialmux.ReplyAnalog)
	if err != nil {
		return sensors.AnalogFrame{}, fmt.Errorf("read analog: %w", err)
	}
	v, err := reply.Ints(4)
	if err != nil {
		return sensors.AnalogFrame{}, fmt.Errorf("read analog: %w", err)
	}
	for i := 0; i < 3; i++ {
		if v[i] < 0 {
			return sensors.AnalogFrame{}, fmt.Errorf("read analog: negative count %d", v[i])
		}
	}
	return sensors.AnalogFrame{
		Front:   uint(v[0]),
		Left:    uint(v[1]),
		Right:   uint(v[2]),
		Battery: v[3],
	}, nil
}

// ReadGround requests the line sensor mask.
func (s *SerialSource) ReadGround(ctx context.Context) (int, error) {
	reply, err := s.request(ctx, "G", serialmux.ReplyGround)
	if err != nil {
		return 0, fmt.Errorf("read ground: %w", err)
	}
	v, err := reply.Ints(1)
	if err != nil {
		return 0, fmt.Errorf("read ground: %w", err)
	}
	return v[0], nil
}

// ReadCompass requests the compass heading in degrees.
func (s *SerialSource) ReadCompass(ctx context.Context) (int, error) {
	reply, err := s.request(ctx, "C", serialmux.ReplyCompass)
	if err != nil {
		return 0, fmt.Errorf("read compass: %w", err)
	}
	v, err := reply.Ints(1)
	if err != nil {
		return 0, fmt.Errorf("read compass: %w", err)
	}
	return v[0], nil
}

// ReadPose requests the odometric pose.
func (s *SerialSource) ReadPose(ctx context.Context) (sensors.Pose, error) {
	reply, err := s.request(ctx, "P", serialmux.ReplyPose)
	if err != nil {
		return sensors.Pose{}, fmt.Errorf("read pose: %w", err)
	}
	v, err := reply.Floats(3)
	if err != nil {
		return sensors.Pose{}, fmt.Errorf("read pose: %w", err)
	}
	return sensors.Pose{X: v[0], Y: v[1], Theta: v[2]}, nil
}

// ReadBeaconVisible requests the beacon photosensor state.
func (s *SerialSource) ReadBeaconVisible(ctx context.Context) (bool, error) {
	reply, err := s.request(ctx, "B", serialmux.ReplyBeacon)
	if err != nil {
		return false, fmt.Errorf("read beacon: %w", err)
	}
	v, err := reply.Ints(1)
	if err != nil {
		return false, fmt.Errorf("read beacon: %w", err)
	}
	return v[0] != 0, nil
}

// SetBeaconServo commands the beacon servo position.
func (s *SerialSource) SetBeaconServo(ctx context.Context, position int) error {
	return s.ack(ctx, fmt.Sprintf("S %d", position))
}

func (s *SerialSource) EnableObstacles(ctx context.Context) error  { return s.ack(ctx, "EN O") }
func (s *SerialSource) EnableGround(ctx context.Context) error     { return s.ack(ctx, "EN G") }
func (s *SerialSource) DisableObstacles(ctx context.Context) error { return s.ack(ctx, "DIS O") }
func (s *SerialSource) DisableGround(ctx context.Context) error    { return s.ack(ctx, "DIS G") }
