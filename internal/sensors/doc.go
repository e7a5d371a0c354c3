// Package sensors owns the acquisition, buffering and filtering core of the
// robot controller.
//
// Responsibilities: normalising raw rangefinder and compass readings,
// driving the beacon servo sweep, keeping a fixed-depth ring buffer of
// recent readings, fusing it into a filtered snapshot (median for obstacle
// channels, weighted mean for linear channels, weighted circular mean for
// headings), sampling the breadcrumb trail and holding the additive pose
// offset.
// Key types: Session, RawReading, Snapshot, Source.
//
// Dependency rule: sensors depends on config, monitoring, timeutil and units
// only. Hardware transports implement Source from the outside and no SQL or
// HTTP code is allowed in this package.
//
// All mutable state belongs to one Session between Initialize and Shutdown.
// Ticks are serialised by the session; one refresh always runs to
// completion.
package sensors
