package wrappers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/racegym"
)

// trackEnv is the part of *racegym.RaceEnv the Monitor needs to
// account for distance on a circular track.
type trackEnv interface {
	TrackLength() int
	TrackPosition() float64
}

// Monitor wraps a racegym.Environment and records per-episode
// telemetry. On every step it accumulates the episode reward, the
// episode length, and the total distance travelled along the track
// (wraparound-corrected), and it watches for lap completions. The
// telemetry is injected into the per-step metadata map:
//
//   - "lap_time" (float64): steps taken for the lap that completed on
//     this step; present only on such steps. A lap may complete
//     mid-episode.
//   - "total_distance", "episode_reward", "episode_length" (float64):
//     present on the final step of an episode.
//
// Distance and lap accounting need the track length; when the wrapped
// chain does not bottom out in a *racegym.RaceEnv, only reward and
// length are recorded.
type Monitor struct {
	racegym.Environment

	trackLength float64
	haveLast    bool
	last        float64

	steps         int
	rewardSum     float64
	totalDistance float64
	lapProgress   float64
	lapStart      int
}

// NewMonitor returns a new Monitor wrapper on a racegym Environment.
func NewMonitor(env racegym.Environment) *Monitor {
	return &Monitor{Environment: env}
}

// Reset starts a new episode and clears the accumulated telemetry.
func (m *Monitor) Reset() (*mat.VecDense, racegym.Info, error) {
	obs, info, err := m.Environment.Reset()
	if err != nil {
		return obs, info, err
	}

	m.steps = 0
	m.rewardSum = 0
	m.totalDistance = 0
	m.lapProgress = 0
	m.lapStart = 0
	m.haveLast = false
	m.trackLength = 0

	if te, ok := baseEnv(m.Environment).(trackEnv); ok {
		m.trackLength = float64(te.TrackLength())
		m.last = te.TrackPosition()
		m.haveLast = true
	}
	return obs, info, nil
}

// Step takes one environmental step and folds this step's telemetry
// into the returned metadata map.
func (m *Monitor) Step(a *mat.VecDense) (*mat.VecDense, float64, bool, bool, racegym.Info, error) {
	obs, reward, terminated, truncated, info, err := m.Environment.Step(a)
	if err != nil {
		return obs, reward, terminated, truncated, info, err
	}

	m.steps++
	m.rewardSum += reward
	if info == nil {
		info = racegym.Info{}
	}

	if pos, ok := info["track_position"].(float64); ok && m.trackLength > 0 {
		if !m.haveLast {
			m.last = pos
			m.haveLast = true
		} else {
			delta := racegym.WrapDelta(pos-m.last, m.trackLength)
			m.last = pos
			m.totalDistance += delta

			// The signed accumulator keeps backward driving from
			// shortening the next lap.
			m.lapProgress += delta
			if m.lapProgress >= m.trackLength {
				info["lap_time"] = float64(m.steps - m.lapStart)
				m.lapProgress -= m.trackLength
				m.lapStart = m.steps
			}
		}
	}

	if terminated || truncated {
		info["total_distance"] = m.totalDistance
		info["episode_reward"] = m.rewardSum
		info["episode_length"] = float64(m.steps)
	}
	return obs, reward, terminated, truncated, info, nil
}

// Name gets the name of the environment
func (m *Monitor) Name() string {
	return fmt.Sprintf("Monitor(%v)", m.Environment.Name())
}

// Unwrap returns the wrapped Environment
func (m *Monitor) Unwrap() racegym.Environment {
	return m.Environment
}
