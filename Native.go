package racegym

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ebitengine/purego"
)

// SimLibEnvVar names the environment variable that overrides the
// native library search. When set, it must point directly at the
// shared library file.
const SimLibEnvVar = "RACEGYM_SIM_LIB"

// simLibrary holds the registered entry points of the racegym_sim
// shared library.
type simLibrary struct {
	init              func(windowed int32) uintptr
	step              func(ctx uintptr)
	shutdown          func(ctx uintptr)
	loadTrack         func(ctx uintptr, path string)
	addVehicle        func(ctx uintptr, position float32) uintptr
	removeVehicle     func(ctx, vehicle uintptr)
	setVehicleControl func(vehicle uintptr, steer, throttle, brake float32)
	trackPosition     func(ctx, vehicle uintptr) float32
	trackLength       func(ctx uintptr) int32
	offTrack          func(ctx, vehicle uintptr) int32
	observation       func(ctx, vehicle uintptr, out *float32, capacity int32) int32
	velocity          func(vehicle uintptr, out *float32)
	trackNormal       func(ctx uintptr, position float32, out *float32)
}

// NativeService is the production SimService. It loads the racegym_sim
// shared library once and opens sessions against it.
type NativeService struct {
	lib *simLibrary
}

// libraryName returns the platform file name of the simulation library.
func libraryName() string {
	switch runtime.GOOS {
	case "windows":
		return "racegym_sim.dll"
	case "darwin":
		return "libracegym_sim.dylib"
	default:
		return "libracegym_sim.so"
	}
}

// packageRoot returns the directory containing this package's source.
// The sim/ build tree and the tracks/ assets are resolved relative to
// it.
func packageRoot() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		wd, err := os.Getwd()
		if err != nil {
			return "."
		}
		return wd
	}
	return filepath.Dir(file)
}

// findSimLibrary searches the build output locations for the
// simulation library, preferring a Release build over a Debug one.
func findSimLibrary() (string, error) {
	if p := os.Getenv(SimLibEnvVar); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("findSimLibrary: %v=%v does not exist",
				SimLibEnvVar, p)
		}
		return p, nil
	}

	root := packageRoot()
	name := libraryName()
	candidates := []string{
		filepath.Join(root, "sim", "build", "Release", name),
		filepath.Join(root, "sim", "build", "Debug", name),
		filepath.Join(root, "sim", "build", name),
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("findSimLibrary: %v not found in any of %v; "+
		"build it with sim/build_sim.sh or set %v", name, candidates,
		SimLibEnvVar)
}

// NewNativeService locates and loads the racegym_sim shared library
// and registers its entry points. The library is searched for under
// sim/build relative to the package root, unless RACEGYM_SIM_LIB
// points elsewhere.
func NewNativeService() (*NativeService, error) {
	path, err := findSimLibrary()
	if err != nil {
		return nil, err
	}

	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("newNativeService: could not load %v: %v",
			path, err)
	}

	lib := new(simLibrary)
	purego.RegisterLibFunc(&lib.init, handle, "sim_init")
	purego.RegisterLibFunc(&lib.step, handle, "sim_step")
	purego.RegisterLibFunc(&lib.shutdown, handle, "sim_shutdown")
	purego.RegisterLibFunc(&lib.loadTrack, handle, "sim_load_track")
	purego.RegisterLibFunc(&lib.addVehicle, handle, "sim_add_vehicle")
	purego.RegisterLibFunc(&lib.removeVehicle, handle, "sim_remove_vehicle")
	purego.RegisterLibFunc(&lib.setVehicleControl, handle,
		"sim_set_vehicle_control")
	purego.RegisterLibFunc(&lib.trackPosition, handle,
		"sim_get_vehicle_track_position")
	purego.RegisterLibFunc(&lib.trackLength, handle, "sim_get_track_length")
	purego.RegisterLibFunc(&lib.offTrack, handle, "sim_is_vehicle_off_track")
	purego.RegisterLibFunc(&lib.observation, handle, "sim_get_observation")
	purego.RegisterLibFunc(&lib.velocity, handle, "sim_get_vehicle_velocity")
	purego.RegisterLibFunc(&lib.trackNormal, handle, "sim_get_track_normal")

	return &NativeService{lib: lib}, nil
}

// Open starts a new simulation session. A null context from the
// library indicates the service violated its contract and is fatal.
func (n *NativeService) Open(windowed bool) (Session, error) {
	var w int32
	if windowed {
		w = 1
	}
	ctx := n.lib.init(w)
	if ctx == 0 {
		return nil, fmt.Errorf("open: sim_init returned a null context")
	}
	return &nativeSession{lib: n.lib, ctx: ctx}, nil
}

// nativeSession wraps one sim context. The closed flag guards against
// re-entering sim_shutdown, which is undefined at the boundary.
type nativeSession struct {
	lib    *simLibrary
	ctx    uintptr
	closed bool
}

func (s *nativeSession) guard(op string) error {
	if s.closed {
		return fmt.Errorf("%v: %w", op, ErrClosed)
	}
	return nil
}

func (s *nativeSession) handleOf(op string, v Vehicle) (uintptr, error) {
	nv, ok := v.(*nativeVehicle)
	if !ok || nv == nil {
		return 0, fmt.Errorf("%v: vehicle does not belong to this session", op)
	}
	return nv.handle, nil
}

func (s *nativeSession) LoadTrack(path string) error {
	if err := s.guard("loadTrack"); err != nil {
		return err
	}
	s.lib.loadTrack(s.ctx, path)
	return nil
}

func (s *nativeSession) AddVehicle(position float64) (Vehicle, error) {
	if err := s.guard("addVehicle"); err != nil {
		return nil, err
	}
	handle := s.lib.addVehicle(s.ctx, float32(position))
	if handle == 0 {
		return nil, fmt.Errorf("addVehicle: sim_add_vehicle returned a " +
			"null handle")
	}
	return &nativeVehicle{lib: s.lib, handle: handle}, nil
}

func (s *nativeSession) RemoveVehicle(v Vehicle) error {
	if err := s.guard("removeVehicle"); err != nil {
		return err
	}
	handle, err := s.handleOf("removeVehicle", v)
	if err != nil {
		return err
	}
	s.lib.removeVehicle(s.ctx, handle)
	return nil
}

func (s *nativeSession) Advance() error {
	if err := s.guard("advance"); err != nil {
		return err
	}
	s.lib.step(s.ctx)
	return nil
}

func (s *nativeSession) TrackPosition(v Vehicle) (float64, error) {
	if err := s.guard("trackPosition"); err != nil {
		return 0, err
	}
	handle, err := s.handleOf("trackPosition", v)
	if err != nil {
		return 0, err
	}
	return float64(s.lib.trackPosition(s.ctx, handle)), nil
}

func (s *nativeSession) TrackLength() (int, error) {
	if err := s.guard("trackLength"); err != nil {
		return 0, err
	}
	length := int(s.lib.trackLength(s.ctx))
	if length <= 0 {
		return 0, fmt.Errorf("trackLength: non-positive track length %v",
			length)
	}
	return length, nil
}

func (s *nativeSession) OffTrack(v Vehicle) (bool, error) {
	if err := s.guard("offTrack"); err != nil {
		return false, err
	}
	handle, err := s.handleOf("offTrack", v)
	if err != nil {
		return false, err
	}
	return s.lib.offTrack(s.ctx, handle) != 0, nil
}

func (s *nativeSession) TrackNormal(position float64) (float64, float64, error) {
	if err := s.guard("trackNormal"); err != nil {
		return 0, 0, err
	}
	var out [2]float32
	s.lib.trackNormal(s.ctx, float32(position), &out[0])
	return float64(out[0]), float64(out[1]), nil
}

func (s *nativeSession) Observation(v Vehicle, capacity int) ([]float64, error) {
	if err := s.guard("observation"); err != nil {
		return nil, err
	}
	handle, err := s.handleOf("observation", v)
	if err != nil {
		return nil, err
	}
	buf := make([]float32, capacity)
	n := int(s.lib.observation(s.ctx, handle, &buf[0], int32(capacity)))
	if n < 0 {
		n = 0
	}
	if n > capacity {
		n = capacity
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = float64(buf[i])
	}
	return out, nil
}

func (s *nativeSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.lib.shutdown(s.ctx)
	s.ctx = 0
	return nil
}

// nativeVehicle is an opaque vehicle handle inside a native session.
type nativeVehicle struct {
	lib    *simLibrary
	handle uintptr
}

func (v *nativeVehicle) SetControl(steer, throttle, brake float64) error {
	v.lib.setVehicleControl(v.handle, float32(steer), float32(throttle),
		float32(brake))
	return nil
}

func (v *nativeVehicle) Velocity() (float64, float64, float64, error) {
	var out [3]float32
	v.lib.velocity(v.handle, &out[0])
	return float64(out[0]), float64(out[1]), float64(out[2]), nil
}
