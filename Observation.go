package racegym

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// sampleObservation requests a fresh fixed-length observation vector
// for the vehicle. The simulation fills fewer than ObservationSize
// values only on internal error, so a short read is surfaced as
// ErrShortObservation rather than returned to the caller.
func sampleObservation(session Session, vehicle Vehicle) (*mat.VecDense, error) {
	data, err := session.Observation(vehicle, ObservationSize)
	if err != nil {
		return nil, fmt.Errorf("sampleObservation: %v", err)
	}
	if len(data) < ObservationSize {
		return nil, fmt.Errorf("sampleObservation: got %v of %v values: %w",
			len(data), ObservationSize, ErrShortObservation)
	}
	return mat.NewVecDense(ObservationSize, data[:ObservationSize]), nil
}
