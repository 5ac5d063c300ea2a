package wrappers_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/racegym/wrappers"
)

func TestClipActionClamps(t *testing.T) {
	env := newScriptEnv(t, 100, 1, 0)
	clipped := wrappers.NewClipAction(env)

	_, _, err := clipped.Reset()
	require.NoError(t, err)

	_, _, _, _, _, err = clipped.Step(mat.NewVecDense(2, []float64{2.5, -3}))
	require.NoError(t, err)

	require.InDelta(t, 1.0, env.lastAction.AtVec(0), 1e-9)
	require.InDelta(t, -1.0, env.lastAction.AtVec(1), 1e-9)
}

func TestClipActionPassesThroughInBounds(t *testing.T) {
	env := newScriptEnv(t, 100, 1, 0)
	clipped := wrappers.NewClipAction(env)

	_, _, err := clipped.Reset()
	require.NoError(t, err)

	_, _, _, _, _, err = clipped.Step(mat.NewVecDense(2, []float64{0.25, -0.5}))
	require.NoError(t, err)

	require.InDelta(t, 0.25, env.lastAction.AtVec(0), 1e-9)
	require.InDelta(t, -0.5, env.lastAction.AtVec(1), 1e-9)
}
