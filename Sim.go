package racegym

import "errors"

var (
	// ErrClosed is returned when a Session is used after Close.
	ErrClosed = errors.New("simulation session is closed")

	// ErrNoVehicle is returned by Step when no vehicle is active, that
	// is, when Step is called before Reset.
	ErrNoVehicle = errors.New("no active vehicle: call Reset first")

	// ErrShortObservation is returned when the simulation reports fewer
	// observation values than the requested capacity, which violates
	// its contract.
	ErrShortObservation = errors.New("simulation returned a short observation")
)

// SimService opens sessions against the native racing simulation. The
// production implementation is NativeService; tests substitute fakes.
type SimService interface {
	// Open starts a new simulation session. If windowed is true, the
	// simulation creates a window and renders into it on every step.
	Open(windowed bool) (Session, error)
}

// Session is one running simulation instance, holding one track and
// its vehicles. A Session is owned by exactly one Environment and is
// not safe for concurrent use. Every call blocks until the simulation
// returns; none of them are pure.
//
// A Session must not be used after Close. Close itself may be called
// more than once; calls after the first are no-ops.
type Session interface {
	// LoadTrack loads the track asset at the given filesystem path
	// into the session. A vehicle can only be spawned after a track
	// has been loaded.
	LoadTrack(path string) error

	// AddVehicle spawns a vehicle at the given longitudinal track
	// position and returns its handle.
	AddVehicle(position float64) (Vehicle, error)

	// RemoveVehicle removes a vehicle previously returned by
	// AddVehicle. The handle must not be used afterwards.
	RemoveVehicle(v Vehicle) error

	// Advance steps the simulated time forward by one fixed tick.
	Advance() error

	// TrackPosition returns the vehicle's longitudinal coordinate
	// along the track, in [0, track length).
	TrackPosition(v Vehicle) (float64, error)

	// TrackLength returns the length of the loaded track.
	TrackLength() (int, error)

	// OffTrack reports whether the vehicle has left the drivable
	// track surface.
	OffTrack(v Vehicle) (bool, error)

	// TrackNormal returns the track's outward normal (x, z) at the
	// given longitudinal position.
	TrackNormal(position float64) (nx, nz float64, err error)

	// Observation fills at most capacity observation values for the
	// vehicle and returns them. A result shorter than capacity means
	// the simulation failed internally; callers must treat a short
	// read as a service fault.
	Observation(v Vehicle, capacity int) ([]float64, error)

	// Close shuts the session down and releases all of its resources.
	Close() error
}

// Vehicle is a handle to one controllable vehicle inside a Session.
// Handles are opaque; they are only ever passed back to the Session
// that created them.
type Vehicle interface {
	// SetControl applies steering, throttle and brake inputs. The
	// inputs take effect on the next Advance.
	SetControl(steer, throttle, brake float64) error

	// Velocity returns the vehicle's velocity in world space.
	Velocity() (vx, vy, vz float64, err error)
}
