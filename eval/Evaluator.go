// Package eval runs batches of complete episodes against a frozen
// policy and reduces the per-episode telemetry into summary
// statistics, periodically, during an external training loop.
package eval

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/samuelfneumann/racegym"
	"github.com/samuelfneumann/racegym/wrappers"
)

// Policy chooses an action given an observation. When deterministic is
// true the policy must suppress its exploration noise.
type Policy interface {
	Predict(obs *mat.VecDense, deterministic bool) (*mat.VecDense, error)
}

// Record summarizes one evaluation pass. Lap statistics are zero when
// no lap completed during the pass.
type Record struct {
	Timesteps         int     `json:"timesteps"`
	MeanDistance      float64 `json:"mean_distance"`
	StdDistance       float64 `json:"std_distance"`
	MeanLapTime       float64 `json:"mean_lap_time"`
	StdLapTime        float64 `json:"std_lap_time"`
	MinLapTime        float64 `json:"min_lap_time"`
	Laps              int     `json:"n_laps"`
	MeanReward        float64 `json:"mean_reward"`
	MeanEpisodeLength float64 `json:"mean_ep_length"`
}

// Config configures an Evaluator.
type Config struct {
	// Environments are the evaluation environments, stepped in
	// lockstep. They should be wrapped in a wrappers.Monitor so that
	// distance and lap telemetry is available.
	Environments []racegym.Environment

	// TrainEnv, when non-nil, is the environment (chain) whose
	// observation-normalization statistics are copied into the
	// evaluation environments before each pass. A chain without a
	// normalization wrapper is tolerated.
	TrainEnv racegym.Environment

	// NEpisodes is the number of episode completions per evaluation
	// pass. Defaults to 5.
	NEpisodes int

	// EvalFreq is the number of OnStep calls between evaluation
	// passes. Defaults to 10000.
	EvalFreq int

	// Deterministic selects deterministic policy actions during
	// evaluation.
	Deterministic bool

	// Verbose prints a summary of each pass to standard output.
	Verbose bool

	// Recorder receives the scalar metrics of each pass. Defaults to
	// a LogRecorder.
	Recorder Recorder
}

// Evaluator periodically measures a policy's performance by running
// complete episodes across its evaluation environments and reducing
// the collected telemetry. The history of evaluation records is owned
// by the Evaluator and lives for its lifetime.
type Evaluator struct {
	envs          []racegym.Environment
	trainEnv      racegym.Environment
	nEpisodes     int
	evalFreq      int
	deterministic bool
	verbose       bool
	recorder      Recorder

	calls     int
	timesteps int
	history   []Record
}

// New returns a new Evaluator for the given configuration.
func New(config *Config) (*Evaluator, error) {
	if config == nil || len(config.Environments) == 0 {
		return nil, fmt.Errorf("new: at least one evaluation environment " +
			"is required")
	}

	nEpisodes := config.NEpisodes
	if nEpisodes <= 0 {
		nEpisodes = 5
	}
	evalFreq := config.EvalFreq
	if evalFreq <= 0 {
		evalFreq = 10000
	}
	recorder := config.Recorder
	if recorder == nil {
		recorder = NewLogRecorder()
	}

	return &Evaluator{
		envs:          config.Environments,
		trainEnv:      config.TrainEnv,
		nEpisodes:     nEpisodes,
		evalFreq:      evalFreq,
		deterministic: config.Deterministic,
		verbose:       config.Verbose,
		recorder:      recorder,
	}, nil
}

// OnStep is called by the training loop after every completed
// optimizer step. Every EvalFreq calls it runs an evaluation pass and
// returns its record; otherwise it returns nil. Training is paused for
// the duration of the pass.
func (e *Evaluator) OnStep(policy Policy, timesteps int) (*Record, error) {
	e.calls++
	e.timesteps = timesteps
	if e.calls%e.evalFreq != 0 {
		return nil, nil
	}
	record, err := e.Evaluate(policy)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Evaluate runs one evaluation pass: it resets every environment,
// steps them all under the policy until NEpisodes episode completions
// have been observed across the batch, and reduces the collected
// telemetry into a Record appended to the history.
//
// Completions are counted, not pre-allocated per environment, so the
// pass may observe up to len(environments)-1 completions more than
// NEpisodes when several environments finish in the same sweep.
func (e *Evaluator) Evaluate(policy Policy) (Record, error) {
	e.syncNormalization()

	obs := make([]*mat.VecDense, len(e.envs))
	for i, env := range e.envs {
		o, _, err := env.Reset()
		if err != nil {
			return Record{}, fmt.Errorf("evaluate: could not reset "+
				"environment %v: %v", i, err)
		}
		obs[i] = o
	}

	var distances, lapTimes, rewards, lengths []float64
	completed := 0
	for completed < e.nEpisodes {
		for i, env := range e.envs {
			action, err := policy.Predict(obs[i], e.deterministic)
			if err != nil {
				return Record{}, fmt.Errorf("evaluate: %v", err)
			}
			o, _, terminated, truncated, info, err := env.Step(action)
			if err != nil {
				return Record{}, fmt.Errorf("evaluate: %v", err)
			}

			// A lap may complete mid-episode, independent of episode
			// termination, so every step is scanned.
			if lapTime, ok := info["lap_time"].(float64); ok {
				lapTimes = append(lapTimes, lapTime)
			}

			if terminated || truncated {
				completed++
				if distance, ok := info["total_distance"].(float64); ok {
					distances = append(distances, distance)
				}
				if reward, ok := info["episode_reward"].(float64); ok {
					rewards = append(rewards, reward)
				}
				if length, ok := info["episode_length"].(float64); ok {
					lengths = append(lengths, length)
				}

				o, _, err = env.Reset()
				if err != nil {
					return Record{}, fmt.Errorf("evaluate: could not reset "+
						"environment %v: %v", i, err)
				}
			}
			obs[i] = o
		}
	}

	record := Record{
		Timesteps:         e.timesteps,
		MeanDistance:      meanOrZero(distances),
		StdDistance:       stdOrZero(distances),
		MeanLapTime:       meanOrZero(lapTimes),
		StdLapTime:        stdOrZero(lapTimes),
		MinLapTime:        minOrZero(lapTimes),
		Laps:              len(lapTimes),
		MeanReward:        meanOrZero(rewards),
		MeanEpisodeLength: meanOrZero(lengths),
	}
	e.history = append(e.history, record)
	e.record(record)
	if e.verbose {
		e.print(record)
	}
	return record, nil
}

// syncNormalization copies normalization statistics from the training
// environment into each evaluation environment. A training side
// without a normalization wrapper is an intentional fallback:
// evaluation proceeds with its local statistics.
func (e *Evaluator) syncNormalization() {
	if e.trainEnv == nil {
		return
	}
	for _, env := range e.envs {
		if err := wrappers.SyncNormalization(e.trainEnv, env); err != nil {
			return
		}
	}
}

// History returns a copy of the evaluation records collected so far,
// in evaluation order.
func (e *Evaluator) History() []Record {
	return append([]Record{}, e.history...)
}

// record emits the pass's metrics. Lap keys are emitted only when at
// least one lap completed.
func (e *Evaluator) record(r Record) {
	e.recorder.Record("eval/mean_distance", r.MeanDistance)
	e.recorder.Record("eval/std_distance", r.StdDistance)
	e.recorder.Record("eval/mean_reward", r.MeanReward)
	e.recorder.Record("eval/mean_ep_length", r.MeanEpisodeLength)
	if r.Laps > 0 {
		e.recorder.Record("eval/mean_lap_time", r.MeanLapTime)
		e.recorder.Record("eval/std_lap_time", r.StdLapTime)
		e.recorder.Record("eval/min_lap_time", r.MinLapTime)
		e.recorder.Record("eval/n_laps_completed", float64(r.Laps))
	}
}

func (e *Evaluator) print(r Record) {
	fmt.Printf("Eval results at step %v:\n", r.Timesteps)
	fmt.Printf("  Mean distance: %.2f ± %.2f\n", r.MeanDistance,
		r.StdDistance)
	fmt.Printf("  Mean reward: %.2f\n", r.MeanReward)
	if r.Laps > 0 {
		fmt.Printf("  Mean lap time: %.2f ± %.2f steps\n", r.MeanLapTime,
			r.StdLapTime)
		fmt.Printf("  Best lap time: %.2f steps\n", r.MinLapTime)
		fmt.Printf("  Total laps completed: %v\n", r.Laps)
	}
}

func meanOrZero(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// stdOrZero is the population standard deviation, matching the
// convention of the distance and lap-time summaries consumers expect.
func stdOrZero(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := stat.Mean(xs, nil)
	return math.Sqrt(stat.MomentAbout(2, xs, mean, nil))
}

func minOrZero(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return floats.Min(xs)
}
