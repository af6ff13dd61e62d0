package service

// EdgeDetector turns a stream of lock-state levels into unlock edges.
//
// The first observation only primes the detector. When primeOnUnlocked is
// set and that first observation is unlocked, it is reported as an edge so
// a daemon started inside an unlocked session still pairs once.
type EdgeDetector struct {
	primeOnUnlocked bool
	primed          bool
	locked          bool
}

func NewEdgeDetector(handshakeOnStart bool) *EdgeDetector {
	return &EdgeDetector{primeOnUnlocked: handshakeOnStart}
}

// Observe records the current level and reports a Locked to Unlocked
// transition.
func (d *EdgeDetector) Observe(locked bool) bool {
	if !d.primed {
		d.primed = true
		d.locked = locked
		return !locked && d.primeOnUnlocked
	}
	edge := d.locked && !locked
	d.locked = locked
	return edge
}
