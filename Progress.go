package racegym

// ProgressTracker converts successive raw track positions into signed
// progress deltas that are continuous across the track's wraparound
// point.
//
// The correction assumes no single step moves the vehicle by more than
// half the track length. This is a precondition, not a heuristic: a
// larger step is indistinguishable from a wrap in the opposite
// direction, and the delta sign silently flips.
type ProgressTracker struct {
	length float64
	last   float64
}

// Reset fixes the track length and the starting position for a new
// episode.
func (p *ProgressTracker) Reset(length int, position float64) {
	p.length = float64(length)
	p.last = position
}

// Advance records the new position and returns the wraparound-corrected
// delta from the previous one. The magnitude of the returned delta
// never exceeds half the track length.
func (p *ProgressTracker) Advance(position float64) float64 {
	delta := WrapDelta(position-p.last, p.length)
	p.last = position
	return delta
}

// Last returns the most recently recorded track position.
func (p *ProgressTracker) Last() float64 {
	return p.last
}

// Length returns the track length set by the last Reset.
func (p *ProgressTracker) Length() float64 {
	return p.length
}

// WrapDelta folds a raw position delta on a circular track of the
// given length into [-length/2, length/2].
func WrapDelta(delta, length float64) float64 {
	if delta > length/2 {
		// Wrapped backward through the start line, e.g. 0.1 -> 9.9 on
		// a length-10 track.
		delta -= length
	} else if delta < -length/2 {
		// Wrapped forward past the end of the track.
		delta += length
	}
	return delta
}
