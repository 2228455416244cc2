package tablet

// wheelDomain is the size of the slider's circular value space (raw readings
// are 6-bit positions, 0..63).
const wheelDomain = 64

// WheelTracker turns successive absolute slider readings into bounded
// relative deltas, choosing the shorter path around the wrap point. The zero
// value is the defined initial state; sessions must start from a fresh
// tracker so a previous device's position never leaks into a new one.
type WheelTracker struct {
	last int32
}

// Observe reports the corrected delta between raw and the previous reading.
// A zero delta reports ok=false and leaves the tracker untouched, so feeding
// the same position twice is idempotent.
func (w *WheelTracker) Observe(raw uint8) (int32, bool) {
	delta := int32(raw) - w.last
	if delta > wheelDomain/2 {
		delta -= wheelDomain
	} else if delta < -wheelDomain/2 {
		delta += wheelDomain
	}
	if delta == 0 {
		return 0, false
	}
	w.last = int32(raw)
	return delta, true
}
