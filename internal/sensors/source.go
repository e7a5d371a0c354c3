package sensors

import "context"

// AnalogReader performs one analog conversion of the rangefinders and the
// battery monitor.
type AnalogReader interface {
	ReadAnalog(ctx context.Context) (AnalogFrame, error)
}

// GroundReader reads the line sensor bitmask.
type GroundReader interface {
	ReadGround(ctx context.Context) (int, error)
}

// CompassReader reads the magnetic compass heading in whole degrees.
type CompassReader interface {
	ReadCompass(ctx context.Context) (int, error)
}

// PoseReader reads the odometric pose integrated by the motor controller.
type PoseReader interface {
	ReadPose(ctx context.Context) (Pose, error)
}

// BeaconReader reads the beacon photosensor.
type BeaconReader interface {
	ReadBeaconVisible(ctx context.Context) (bool, error)
}

// ServoWriter positions the beacon sensor servo.
type ServoWriter interface {
	SetBeaconServo(ctx context.Context, position int) error
}

// ChannelSwitch powers the obstacle and ground sensor channels.
type ChannelSwitch interface {
	EnableObstacles(ctx context.Context) error
	EnableGround(ctx context.Context) error
	DisableObstacles(ctx context.Context) error
	DisableGround(ctx context.Context) error
}

// Source is the full hardware capability set consumed by a Session.
// Implementations live outside this package (serial link, simulator, test
// fakes).
type Source interface {
	AnalogReader
	GroundReader
	CompassReader
	PoseReader
	BeaconReader
	ServoWriter
	ChannelSwitch
}
