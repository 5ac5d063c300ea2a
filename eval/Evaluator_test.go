package eval_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/racegym"
	"github.com/samuelfneumann/racegym/eval"
)

// stepResult is one scripted step of an evalEnv.
type stepResult struct {
	reward float64
	done   bool
	info   racegym.Info
}

// evalEnv replays a scripted sequence of step results, looping forever
// so that any number of episodes can be drawn from it.
type evalEnv struct {
	script []stepResult
	i      int
	resets int
	steps  int
}

func (e *evalEnv) observation() *mat.VecDense {
	return mat.NewVecDense(racegym.ObservationSize, nil)
}

func (e *evalEnv) Name() string { return "eval-script" }

func (e *evalEnv) Seed(uint64) {}

func (e *evalEnv) Reset() (*mat.VecDense, racegym.Info, error) {
	e.resets++
	return e.observation(), racegym.Info{}, nil
}

func (e *evalEnv) Step(a *mat.VecDense) (*mat.VecDense, float64, bool, bool, racegym.Info, error) {
	r := e.script[e.i%len(e.script)]
	e.i++
	e.steps++
	return e.observation(), r.reward, r.done, false, r.info, nil
}

func (e *evalEnv) ActionSpace() racegym.Space { return nil }

func (e *evalEnv) ObservationSpace() racegym.Space { return nil }

func (e *evalEnv) Render() {}

func (e *evalEnv) Close() error { return nil }

// zeroPolicy always returns the zero action.
type zeroPolicy struct {
	calls int
}

func (p *zeroPolicy) Predict(obs *mat.VecDense, deterministic bool) (*mat.VecDense, error) {
	p.calls++
	return mat.NewVecDense(racegym.ActionSize, nil), nil
}

// mapRecorder captures recorded metrics by key.
type mapRecorder struct {
	values map[string]float64
}

func newMapRecorder() *mapRecorder {
	return &mapRecorder{values: make(map[string]float64)}
}

func (m *mapRecorder) Record(key string, value float64) {
	m.values[key] = value
}

// completionStep ends an episode carrying the monitor telemetry.
func completionStep(distance, reward, length float64) stepResult {
	return stepResult{
		reward: reward,
		done:   true,
		info: racegym.Info{
			"track_position": 0.0,
			"off_track":      true,
			"total_distance": distance,
			"episode_reward": reward,
			"episode_length": length,
		},
	}
}

func TestEvaluateReduction(t *testing.T) {
	env := &evalEnv{script: []stepResult{
		completionStep(10, 1, 5),
		completionStep(20, 2, 5),
		completionStep(30, 3, 5),
	}}
	recorder := newMapRecorder()

	evaluator, err := eval.New(&eval.Config{
		Environments: []racegym.Environment{env},
		NEpisodes:    3,
		Recorder:     recorder,
	})
	require.NoError(t, err)

	record, err := evaluator.Evaluate(&zeroPolicy{})
	require.NoError(t, err)

	require.InDelta(t, 20.0, record.MeanDistance, 1e-9)
	require.InDelta(t, math.Sqrt(200.0/3.0), record.StdDistance, 1e-9)
	require.InDelta(t, 8.16, record.StdDistance, 1e-2)
	require.InDelta(t, 2.0, record.MeanReward, 1e-9)
	require.InDelta(t, 5.0, record.MeanEpisodeLength, 1e-9)

	// No laps completed: stored record holds zeros, logged output
	// omits the lap keys entirely.
	require.Equal(t, 0, record.Laps)
	require.Equal(t, 0.0, record.MeanLapTime)
	require.Equal(t, 0.0, record.MinLapTime)
	require.Contains(t, recorder.values, "eval/mean_distance")
	require.Contains(t, recorder.values, "eval/std_distance")
	require.Contains(t, recorder.values, "eval/mean_reward")
	require.Contains(t, recorder.values, "eval/mean_ep_length")
	require.NotContains(t, recorder.values, "eval/mean_lap_time")
	require.NotContains(t, recorder.values, "eval/n_laps_completed")

	history := evaluator.History()
	require.Len(t, history, 1)
	require.Equal(t, record, history[0])
}

func TestEvaluateLapScan(t *testing.T) {
	// Laps complete mid-episode, independent of episode termination.
	env := &evalEnv{script: []stepResult{
		{reward: 1, info: racegym.Info{"lap_time": 50.0}},
		{reward: 1, info: racegym.Info{"lap_time": 40.0}},
		completionStep(100, 2, 3),
	}}
	recorder := newMapRecorder()

	evaluator, err := eval.New(&eval.Config{
		Environments: []racegym.Environment{env},
		NEpisodes:    2,
		Recorder:     recorder,
	})
	require.NoError(t, err)

	record, err := evaluator.Evaluate(&zeroPolicy{})
	require.NoError(t, err)

	require.Equal(t, 4, record.Laps)
	require.InDelta(t, 45.0, record.MeanLapTime, 1e-9)
	require.InDelta(t, 40.0, record.MinLapTime, 1e-9)
	require.InDelta(t, 5.0, record.StdLapTime, 1e-9)
	require.Contains(t, recorder.values, "eval/mean_lap_time")
	require.InDelta(t, 4.0, recorder.values["eval/n_laps_completed"], 1e-9)
}

func TestEvaluateOvershoot(t *testing.T) {
	// All three environments complete on every sweep, so one sweep
	// past NEpisodes overshoots by batch size - 1 at most.
	envs := []racegym.Environment{
		&evalEnv{script: []stepResult{completionStep(1, 1, 1)}},
		&evalEnv{script: []stepResult{completionStep(2, 2, 1)}},
		&evalEnv{script: []stepResult{completionStep(3, 3, 1)}},
	}

	evaluator, err := eval.New(&eval.Config{
		Environments: envs,
		NEpisodes:    4,
		Recorder:     newMapRecorder(),
	})
	require.NoError(t, err)

	record, err := evaluator.Evaluate(&zeroPolicy{})
	require.NoError(t, err)

	// 4 needed, 3 complete per sweep: two sweeps observe 6.
	require.Equal(t, 6, envs[0].(*evalEnv).steps+
		envs[1].(*evalEnv).steps+envs[2].(*evalEnv).steps)
	require.InDelta(t, 2.0, record.MeanDistance, 1e-9)
}

func TestEvaluateZeroActionPolicy(t *testing.T) {
	// Ten steps of 0.5 progress per step: cumulative reward is
	// step count times the per-step advance.
	script := make([]stepResult, 10)
	for i := 0; i < 9; i++ {
		script[i] = stepResult{reward: 0.5, info: racegym.Info{}}
	}
	script[9] = completionStep(5.0, 5.0, 10)

	env := &evalEnv{script: script}
	policy := &zeroPolicy{}

	evaluator, err := eval.New(&eval.Config{
		Environments: []racegym.Environment{env},
		NEpisodes:    1,
		Recorder:     newMapRecorder(),
	})
	require.NoError(t, err)

	record, err := evaluator.Evaluate(policy)
	require.NoError(t, err)
	require.InDelta(t, 5.0, record.MeanReward, 1e-9)
	require.InDelta(t, 5.0, record.MeanDistance, 1e-9)
	require.Equal(t, 10, policy.calls)
}

func TestOnStepFrequency(t *testing.T) {
	env := &evalEnv{script: []stepResult{completionStep(1, 1, 1)}}

	evaluator, err := eval.New(&eval.Config{
		Environments: []racegym.Environment{env},
		NEpisodes:    1,
		EvalFreq:     3,
		Recorder:     newMapRecorder(),
	})
	require.NoError(t, err)

	policy := &zeroPolicy{}
	for i := 1; i <= 6; i++ {
		record, err := evaluator.OnStep(policy, i)
		require.NoError(t, err)
		if i%3 == 0 {
			require.NotNil(t, record)
			require.Equal(t, i, record.Timesteps)
		} else {
			require.Nil(t, record)
		}
	}
	require.Len(t, evaluator.History(), 2)
}

func TestNewRequiresEnvironments(t *testing.T) {
	_, err := eval.New(&eval.Config{})
	require.Error(t, err)
}
