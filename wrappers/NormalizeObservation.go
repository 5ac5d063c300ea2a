package wrappers

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/racegym"
)

// NormalizeObservation wraps a racegym.Environment and standardizes
// every observation with a running estimate of the elementwise mean
// and variance (Welford's algorithm). The statistics can be copied
// between environments so that an evaluation environment sees
// observations on the same scale as the training environments.
type NormalizeObservation struct {
	racegym.Environment

	mean     []float64
	m2       []float64
	count    float64
	epsilon  float64
	updating bool
}

// NewNormalizeObservation returns a new NormalizeObservation wrapper
// on a racegym Environment.
func NewNormalizeObservation(env racegym.Environment) *NormalizeObservation {
	return &NormalizeObservation{
		Environment: env,
		mean:        make([]float64, racegym.ObservationSize),
		m2:          make([]float64, racegym.ObservationSize),
		epsilon:     1e-8,
		updating:    true,
	}
}

// SetUpdating controls whether observations update the running
// statistics. Evaluation environments typically freeze their
// statistics after synchronizing from the training side.
func (n *NormalizeObservation) SetUpdating(updating bool) {
	n.updating = updating
}

// Stats returns copies of the running mean, variance, and sample
// count.
func (n *NormalizeObservation) Stats() (mean, variance []float64, count float64) {
	mean = append([]float64{}, n.mean...)
	variance = make([]float64, len(n.m2))
	if n.count > 0 {
		for i := range variance {
			variance[i] = n.m2[i] / n.count
		}
	}
	return mean, variance, n.count
}

// SetStats replaces the running statistics with the given mean,
// variance, and sample count.
func (n *NormalizeObservation) SetStats(mean, variance []float64, count float64) error {
	if len(mean) != len(n.mean) || len(variance) != len(n.m2) {
		return fmt.Errorf("setStats: expected statistics of length %v, "+
			"got %v and %v", len(n.mean), len(mean), len(variance))
	}
	copy(n.mean, mean)
	for i := range variance {
		n.m2[i] = variance[i] * count
	}
	n.count = count
	return nil
}

// normalize updates the running statistics with obs (when updating)
// and returns the standardized observation.
func (n *NormalizeObservation) normalize(obs *mat.VecDense) *mat.VecDense {
	if obs == nil || obs.Len() != len(n.mean) {
		return obs
	}

	if n.updating {
		n.count++
		for i := 0; i < obs.Len(); i++ {
			x := obs.AtVec(i)
			delta := x - n.mean[i]
			n.mean[i] += delta / n.count
			n.m2[i] += delta * (x - n.mean[i])
		}
	}
	if n.count == 0 {
		return obs
	}

	out := mat.NewVecDense(obs.Len(), nil)
	for i := 0; i < obs.Len(); i++ {
		variance := n.m2[i] / n.count
		out.SetVec(i, (obs.AtVec(i)-n.mean[i])/math.Sqrt(variance+n.epsilon))
	}
	return out
}

// Reset starts a new episode and returns the normalized initial
// observation.
func (n *NormalizeObservation) Reset() (*mat.VecDense, racegym.Info, error) {
	obs, info, err := n.Environment.Reset()
	if err != nil {
		return obs, info, err
	}
	return n.normalize(obs), info, nil
}

// Step takes one environmental step and returns the normalized
// observation.
func (n *NormalizeObservation) Step(a *mat.VecDense) (*mat.VecDense, float64, bool, bool, racegym.Info, error) {
	obs, reward, terminated, truncated, info, err := n.Environment.Step(a)
	if err != nil {
		return obs, reward, terminated, truncated, info, err
	}
	return n.normalize(obs), reward, terminated, truncated, info, err
}

// Name gets the name of the environment
func (n *NormalizeObservation) Name() string {
	return fmt.Sprintf("NormalizeObservation(%v)", n.Environment.Name())
}

// Unwrap returns the wrapped Environment
func (n *NormalizeObservation) Unwrap() racegym.Environment {
	return n.Environment
}

// findNormalize walks a wrapper chain looking for a
// NormalizeObservation wrapper.
func findNormalize(env racegym.Environment) *NormalizeObservation {
	for env != nil {
		if n, ok := env.(*NormalizeObservation); ok {
			return n
		}
		u, ok := env.(Unwrapper)
		if !ok {
			return nil
		}
		env = u.Unwrap()
	}
	return nil
}

// SyncNormalization copies the observation-normalization statistics
// from src's wrapper chain into dst's and freezes dst's statistics.
// It returns an error when either chain carries no
// NormalizeObservation wrapper; evaluation callers treat that as a
// no-op and proceed with their local statistics.
func SyncNormalization(src, dst racegym.Environment) error {
	from := findNormalize(src)
	if from == nil {
		return fmt.Errorf("syncNormalization: source has no " +
			"NormalizeObservation wrapper")
	}
	to := findNormalize(dst)
	if to == nil {
		return fmt.Errorf("syncNormalization: destination has no " +
			"NormalizeObservation wrapper")
	}

	mean, variance, count := from.Stats()
	if err := to.SetStats(mean, variance, count); err != nil {
		return fmt.Errorf("syncNormalization: %v", err)
	}
	to.SetUpdating(false)
	return nil
}
