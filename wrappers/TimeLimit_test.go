package wrappers_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/racegym/wrappers"
)

func TestNewTimeLimitRejectsNonPositiveCutoff(t *testing.T) {
	env := newScriptEnv(t, 100, 1, 0)
	_, err := wrappers.NewTimeLimit(env, 0)
	require.Error(t, err)
}

func TestTimeLimitTruncates(t *testing.T) {
	env := newScriptEnv(t, 100, 1, 0)
	limited, err := wrappers.NewTimeLimit(env, 5)
	require.NoError(t, err)

	_, _, err = limited.Reset()
	require.NoError(t, err)

	done := false
	i := 0
	for !done {
		var terminated, truncated bool
		_, _, terminated, truncated, _, err = limited.Step(zeroAction())
		require.NoError(t, err)
		require.False(t, terminated)
		done = truncated
		i++
	}
	require.Equal(t, 5, i)
}

func TestTimeLimitDefersToTermination(t *testing.T) {
	// Termination before the cutoff must not be reported as
	// truncation.
	env := newScriptEnv(t, 100, 1, 3)
	limited, err := wrappers.NewTimeLimit(env, 3)
	require.NoError(t, err)

	_, _, err = limited.Reset()
	require.NoError(t, err)
	var terminated, truncated bool
	for i := 0; i < 3; i++ {
		_, _, terminated, truncated, _, err = limited.Step(zeroAction())
		require.NoError(t, err)
	}
	require.True(t, terminated)
	require.False(t, truncated)
}

func TestTimeLimitResetRestartsCounter(t *testing.T) {
	env := newScriptEnv(t, 100, 1, 0)
	limited, err := wrappers.NewTimeLimit(env, 3)
	require.NoError(t, err)

	_, _, err = limited.Reset()
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, _, _, _, _, err = limited.Step(zeroAction())
		require.NoError(t, err)
	}

	_, _, err = limited.Reset()
	require.NoError(t, err)
	_, _, _, truncated, _, err := limited.Step(zeroAction())
	require.NoError(t, err)
	require.False(t, truncated)
}
