// Package racegym provides Go bindings for a native vehicle-racing
// simulation, exposed through the standard episodic reinforcement-
// learning environment interface.
//
// The simulation lives in the racegym_sim shared library built from
// the sim/ directory; run sim/build_sim.sh before using this package,
// or point RACEGYM_SIM_LIB at an existing build. Each Environment owns
// one simulation session and drives a single vehicle around a circular
// track. The reward on every step is the wraparound-corrected progress
// along the track, with a velocity-projected penalty when the vehicle
// leaves the drivable surface.
package racegym

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// ObservationSize is the fixed length of every observation vector:
	// 40 track waypoints in the vehicle's local frame (x, z pairs)
	// followed by longitudinal velocity, lateral velocity, and yaw
	// rate.
	ObservationSize = 83

	// ActionSize is the fixed length of every action vector: steering
	// and a combined throttle/brake axis, both in [-1, 1].
	ActionSize = 2
)

// RenderMode selects how a simulation session presents itself.
type RenderMode string

const (
	// RenderNone runs the simulation headless.
	RenderNone RenderMode = ""

	// RenderHuman opens a window; the simulation renders into it on
	// every step.
	RenderHuman RenderMode = "human"
)

// Info carries per-step metadata. The environment itself sets
// "track_position" (float64) and "off_track" (bool) on every step;
// wrappers may add further keys such as "lap_time" and
// "total_distance".
type Info map[string]interface{}

// Environment describes an episodic reinforcement-learning
// environment.
type Environment interface {
	// Name gets the name of the environment
	Name() string

	// Seed seeds the random source used to draw spawn positions
	Seed(seed uint64)

	// Reset starts a new episode and returns the initial observation
	Reset() (*mat.VecDense, Info, error)

	// Step takes one environmental step given some action a and
	// returns the next observation, the reward, whether the episode
	// terminated, whether it was truncated, and per-step metadata
	Step(a *mat.VecDense) (*mat.VecDense, float64, bool, bool, Info, error)

	// ActionSpace returns the action space as a Go data structure
	ActionSpace() Space

	// ObservationSpace returns the observation space as a Go data
	// structure
	ObservationSpace() Space

	// Render renders the environment
	Render()

	// Close performs cleanup of environment resources. It is safe to
	// call more than once.
	Close() error
}

// RaceEnv drives one vehicle through the native racing simulation. It
// owns its simulation session exclusively and is not safe for
// concurrent use; parallelism comes from running independent RaceEnvs.
type RaceEnv struct {
	service SimService
	session Session
	vehicle Vehicle

	track      string
	renderMode RenderMode

	trackLength int
	progress    ProgressTracker
	src         rand.Source

	actionSpace      Space
	observationSpace Space
}

// Make returns a new Environment running the named track against the
// native simulation library. It fails if the library has not been
// built or the render mode is invalid.
func Make(track string, mode RenderMode) (Environment, error) {
	service, err := NewNativeService()
	if err != nil {
		return nil, fmt.Errorf("make: %v", err)
	}
	return New(service, track, mode)
}

// New returns a new Environment running the named track against the
// given simulation service.
func New(service SimService, track string, mode RenderMode) (Environment, error) {
	if mode != RenderNone && mode != RenderHuman {
		return nil, fmt.Errorf("new: render mode must be %q or %q, got %q",
			RenderHuman, RenderNone, mode)
	}

	session, err := service.Open(mode == RenderHuman)
	if err != nil {
		return nil, fmt.Errorf("new: could not open session: %v", err)
	}

	// The session must not leak if construction fails past this point.
	actionSpace, err := NewBox([]float64{-1, -1}, []float64{1, 1})
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("new: %v", err)
	}

	low := make([]float64, ObservationSize)
	high := make([]float64, ObservationSize)
	for i := range low {
		low[i] = math.Inf(-1)
		high[i] = math.Inf(1)
	}
	observationSpace, err := NewBox(low, high)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("new: %v", err)
	}

	return &RaceEnv{
		service:          service,
		session:          session,
		track:            track,
		renderMode:       mode,
		src:              rand.NewSource(uint64(time.Now().UnixNano())),
		actionSpace:      actionSpace,
		observationSpace: observationSpace,
	}, nil
}

// Name gets the name of the environment
func (r *RaceEnv) Name() string {
	return fmt.Sprintf("RaceGym(%v)", r.track)
}

// Seed seeds the random source used to draw spawn positions on Reset.
func (r *RaceEnv) Seed(seed uint64) {
	r.src.Seed(seed)
}

// ActionSpace returns the action space as a Go data structure
func (r *RaceEnv) ActionSpace() Space {
	return r.actionSpace
}

// ObservationSpace returns the observation space as a Go data structure
func (r *RaceEnv) ObservationSpace() Space {
	return r.observationSpace
}

// TrackLength returns the length of the loaded track. It is zero
// before the first Reset.
func (r *RaceEnv) TrackLength() int {
	return r.trackLength
}

// TrackPosition returns the vehicle's last known longitudinal track
// position.
func (r *RaceEnv) TrackPosition() float64 {
	return r.progress.Last()
}

// Reset starts a new episode: it loads the track, replaces any active
// vehicle with a fresh one spawned uniformly at random along the
// track, and returns the initial observation together with an empty
// metadata map.
func (r *RaceEnv) Reset() (*mat.VecDense, Info, error) {
	if r.session == nil {
		session, err := r.service.Open(r.renderMode == RenderHuman)
		if err != nil {
			return nil, nil, fmt.Errorf("reset: could not open session: %v",
				err)
		}
		r.session = session
	}

	path, err := TrackPath(r.track)
	if err != nil {
		return nil, nil, fmt.Errorf("reset: %v", err)
	}
	if err := r.session.LoadTrack(path); err != nil {
		return nil, nil, fmt.Errorf("reset: could not load track: %v", err)
	}

	if r.vehicle != nil {
		if err := r.session.RemoveVehicle(r.vehicle); err != nil {
			return nil, nil, fmt.Errorf("reset: could not remove vehicle: %v",
				err)
		}
		r.vehicle = nil
	}

	length, err := r.session.TrackLength()
	if err != nil {
		return nil, nil, fmt.Errorf("reset: %v", err)
	}

	spawn := distuv.Uniform{Min: 0, Max: float64(length), Src: r.src}.Rand()
	vehicle, err := r.session.AddVehicle(spawn)
	if err != nil {
		return nil, nil, fmt.Errorf("reset: could not spawn vehicle: %v", err)
	}
	r.vehicle = vehicle
	r.trackLength = length
	r.progress.Reset(length, spawn)

	obs, err := sampleObservation(r.session, r.vehicle)
	if err != nil {
		return nil, nil, fmt.Errorf("reset: %w", err)
	}
	return obs, Info{}, nil
}

// Step applies the action to the active vehicle, advances the
// simulation by one tick, and returns the next observation, the
// progress reward, the terminated and truncated flags, and per-step
// metadata. The combined throttle/brake axis a[1] maps to throttle
// a[1] and brake -a[1]. Truncation never happens at this layer; use
// the wrappers package for a time limit.
func (r *RaceEnv) Step(a *mat.VecDense) (*mat.VecDense, float64, bool, bool, Info, error) {
	if r.session == nil || r.vehicle == nil {
		return nil, 0, false, false, nil, fmt.Errorf("step: %w", ErrNoVehicle)
	}
	if a == nil || a.Len() != ActionSize {
		return nil, 0, false, false, nil, fmt.Errorf("step: action must "+
			"have length %v", ActionSize)
	}

	steer := a.AtVec(0)
	axis := a.AtVec(1)
	if err := r.vehicle.SetControl(steer, axis, -axis); err != nil {
		return nil, 0, false, false, nil, fmt.Errorf("step: %v", err)
	}
	if err := r.session.Advance(); err != nil {
		return nil, 0, false, false, nil, fmt.Errorf("step: %v", err)
	}

	position, err := r.session.TrackPosition(r.vehicle)
	if err != nil {
		return nil, 0, false, false, nil, fmt.Errorf("step: %v", err)
	}
	reward := r.progress.Advance(position)

	terminated := false
	offTrack, err := r.session.OffTrack(r.vehicle)
	if err != nil {
		return nil, 0, false, false, nil, fmt.Errorf("step: %v", err)
	}
	if offTrack {
		terminated = true
		penalty, err := offTrackPenalty(r.session, r.vehicle, position)
		if err != nil {
			return nil, 0, false, false, nil, fmt.Errorf("step: %v", err)
		}
		reward -= penalty
	}

	obs, err := sampleObservation(r.session, r.vehicle)
	if err != nil {
		return nil, 0, false, false, nil, fmt.Errorf("step: %w", err)
	}

	info := Info{
		"track_position": position,
		"off_track":      offTrack,
	}
	return obs, reward, terminated, false, info, nil
}

// Render renders the environment. The window is handled by the
// simulation itself in RenderHuman mode, so this is a no-op.
func (r *RaceEnv) Render() {}

// Close shuts down the simulation session and releases its resources.
// Calling Close again after it has succeeded is a no-op.
func (r *RaceEnv) Close() error {
	if r.session == nil {
		return nil
	}
	err := r.session.Close()
	r.session = nil
	r.vehicle = nil
	return err
}
