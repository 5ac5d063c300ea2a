package racegym

import "gonum.org/v1/gonum/mat"

// Space describes a space of actions, observations, etc. in R^n.
type Space interface {
	// Sample takes a sample from within the space's bounds
	Sample() *mat.VecDense

	// Contains returns whether x is in the space
	Contains(x interface{}) bool

	// Seed seeds the sampler for the space
	Seed(uint64)

	// Low returns the lower bounds of the space
	Low() *mat.VecDense

	// High returns the upper bounds of the space
	High() *mat.VecDense
}
