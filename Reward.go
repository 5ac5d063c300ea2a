package racegym

import (
	"fmt"
	"math"
)

// offTrackPenalty computes the penalty applied when the vehicle leaves
// the drivable surface: the magnitude of the vehicle's planar (x, z)
// velocity projected onto the track's outward normal at the vehicle's
// current track position. The vertical velocity component is
// discarded.
//
// The absolute value keeps the penalty non-negative whichever way the
// vehicle is moving relative to the track centerline.
func offTrackPenalty(session Session, vehicle Vehicle, position float64) (float64, error) {
	vx, _, vz, err := vehicle.Velocity()
	if err != nil {
		return 0, fmt.Errorf("offTrackPenalty: could not read velocity: %v",
			err)
	}

	nx, nz, err := session.TrackNormal(position)
	if err != nil {
		return 0, fmt.Errorf("offTrackPenalty: could not read track "+
			"normal: %v", err)
	}

	return math.Abs(vx*nx + vz*nz), nil
}
