package wrappers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/racegym"
)

// TimeLimit wraps a racegym.Environment and truncates episodes after a
// maximum number of steps. The base environment never truncates on its
// own, so this wrapper is the only source of a true truncated flag.
type TimeLimit struct {
	racegym.Environment

	maxEpisodeSteps int
	elapsed         int
}

// NewTimeLimit creates a new TimeLimit wrapper on a racegym
// Environment.
func NewTimeLimit(env racegym.Environment, maxEpisodeSteps int) (*TimeLimit, error) {
	if maxEpisodeSteps <= 0 {
		return nil, fmt.Errorf("newTimeLimit: maxEpisodeSteps must be positive")
	}
	return &TimeLimit{
		Environment:     env,
		maxEpisodeSteps: maxEpisodeSteps,
	}, nil
}

// Reset starts a new episode and restarts the step counter.
func (t *TimeLimit) Reset() (*mat.VecDense, racegym.Info, error) {
	t.elapsed = 0
	return t.Environment.Reset()
}

// Step takes one environmental step and raises the truncated flag once
// the episode reaches the step limit without terminating.
func (t *TimeLimit) Step(a *mat.VecDense) (*mat.VecDense, float64, bool, bool, racegym.Info, error) {
	obs, reward, terminated, truncated, info, err := t.Environment.Step(a)
	if err != nil {
		return obs, reward, terminated, truncated, info, err
	}
	t.elapsed++
	if t.elapsed >= t.maxEpisodeSteps && !terminated {
		truncated = true
	}
	return obs, reward, terminated, truncated, info, nil
}

// Name gets the name of the environment
func (t *TimeLimit) Name() string {
	return fmt.Sprintf("TimeLimit(steps: %v)(%v)", t.maxEpisodeSteps,
		t.Environment.Name())
}

// Unwrap returns the wrapped Environment
func (t *TimeLimit) Unwrap() racegym.Environment {
	return t.Environment
}
