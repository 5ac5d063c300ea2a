package racegym

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// Box represents a (possibly unbounded) box in R^n. Specifically, a
// Box represents the Cartesian product of n closed intervals. Each
// interval has the form of one of [a, b], (-∞, b], [a, ∞), or
// (-∞, ∞) for a, b ϵ R.
type Box struct {
	rng *distmv.Uniform
	rand.Source
	low, high                  *mat.VecDense
	boundedBelow, boundedAbove []bool
}

// NewBox returns a Box with the given elementwise lower and upper
// bounds.
func NewBox(low, high []float64) (*Box, error) {
	if len(low) != len(high) {
		return nil, fmt.Errorf("newBox: bounds have different lengths: "+
			"%v != %v", len(low), len(high))
	}
	if len(low) == 0 {
		return nil, fmt.Errorf("newBox: bounds cannot be empty")
	}

	boundedBelow := make([]bool, len(low))
	for i := range boundedBelow {
		boundedBelow[i] = math.Inf(-1) < low[i]
	}

	boundedAbove := make([]bool, len(high))
	for i := range boundedAbove {
		boundedAbove[i] = math.Inf(1) > high[i]
	}

	// Random number generator for sampling from the space
	src := rand.NewSource(uint64(time.Now().UnixNano()))
	bounds := make([]r1.Interval, len(low))
	for i := range bounds {
		bounds[i] = r1.Interval{Min: low[i], Max: high[i]}
	}
	rng := distmv.NewUniform(bounds, src)

	return &Box{
		rng:          rng,
		Source:       src,
		low:          mat.NewVecDense(len(low), append([]float64{}, low...)),
		high:         mat.NewVecDense(len(high), append([]float64{}, high...)),
		boundedBelow: boundedBelow,
		boundedAbove: boundedAbove,
	}, nil
}

// Sample takes a sample from within the space's bounds
func (b *Box) Sample() *mat.VecDense {
	sample := b.rng.Rand(nil)
	return mat.NewVecDense(len(sample), sample)
}

// Contains returns whether in is in the space. The argument in must
// be either a []float64 or *mat.VecDense
func (b *Box) Contains(in interface{}) bool {
	x, ok := in.([]float64)
	if !ok {
		vec, ok := in.(*mat.VecDense)
		if !ok {
			return false
		}
		x = vec.RawVector().Data
	}
	if len(x) != b.low.Len() {
		return false
	}

	for i := range x {
		if x[i] < b.low.AtVec(i) || x[i] > b.high.AtVec(i) {
			return false
		}
	}
	return true
}

// High returns the upper bounds of the space
func (b *Box) High() *mat.VecDense {
	return b.high
}

// Low returns the lower bounds of the space
func (b *Box) Low() *mat.VecDense {
	return b.low
}

// BoundedAbove returns whether the space is bounded above
func (b *Box) BoundedAbove() []bool {
	return b.boundedAbove
}

// BoundedBelow returns whether the space is bounded below
func (b *Box) BoundedBelow() []bool {
	return b.boundedBelow
}
