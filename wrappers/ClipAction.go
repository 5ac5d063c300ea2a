package wrappers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/racegym"
)

// ClipAction wraps a racegym.Environment and clips actions elementwise
// into the bounds of the environment's action space before they are
// applied.
type ClipAction struct {
	racegym.Environment
}

// NewClipAction returns a new ClipAction wrapper on a racegym
// Environment.
func NewClipAction(env racegym.Environment) *ClipAction {
	return &ClipAction{Environment: env}
}

// Action clips the argument action to the legal bounds of the wrapped
// environment's action space.
func (c *ClipAction) Action(a *mat.VecDense) *mat.VecDense {
	if a == nil {
		return nil
	}
	space := c.Environment.ActionSpace()
	low, high := space.Low(), space.High()

	clipped := mat.NewVecDense(a.Len(), nil)
	for i := 0; i < a.Len(); i++ {
		v := a.AtVec(i)
		if i < low.Len() && v < low.AtVec(i) {
			v = low.AtVec(i)
		}
		if i < high.Len() && v > high.AtVec(i) {
			v = high.AtVec(i)
		}
		clipped.SetVec(i, v)
	}
	return clipped
}

// Step takes one environmental step with the clipped action.
func (c *ClipAction) Step(a *mat.VecDense) (*mat.VecDense, float64, bool, bool, racegym.Info, error) {
	return c.Environment.Step(c.Action(a))
}

// Name gets the name of the environment
func (c *ClipAction) Name() string {
	return fmt.Sprintf("ClipAction(%v)", c.Environment.Name())
}

// Unwrap returns the wrapped Environment
func (c *ClipAction) Unwrap() racegym.Environment {
	return c.Environment
}
