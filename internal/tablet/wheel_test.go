package tablet

import "testing"

func TestWheelTrackerDeltas(t *testing.T) {
	tests := []struct {
		name   string
		inputs []uint8
		deltas []int32
	}{
		{
			name:   "forward steps",
			inputs: []uint8{1, 2, 5},
			deltas: []int32{1, 1, 3},
		},
		{
			name:   "backward wrap takes short path",
			inputs: []uint8{0, 63},
			deltas: []int32{0, -1},
		},
		{
			name:   "forward wrap takes short path",
			inputs: []uint8{60, 2},
			deltas: []int32{-4, 6},
		},
		{
			name:   "half domain is not corrected",
			inputs: []uint8{0, 32},
			deltas: []int32{0, 32},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var w WheelTracker
			for i, raw := range test.inputs {
				delta, ok := w.Observe(raw)
				if test.deltas[i] == 0 {
					if ok {
						t.Errorf("input %d: expected no delta, got %d", raw, delta)
					}
					continue
				}
				if !ok {
					t.Errorf("input %d: expected delta %d, got none", raw, test.deltas[i])
					continue
				}
				if delta != test.deltas[i] {
					t.Errorf("input %d: expected delta %d, got %d", raw, test.deltas[i], delta)
				}
			}
		})
	}
}

func TestWheelTrackerIdempotent(t *testing.T) {
	var w WheelTracker
	if _, ok := w.Observe(10); !ok {
		t.Fatal("first observation should report a delta")
	}
	if delta, ok := w.Observe(10); ok {
		t.Fatalf("repeated observation reported delta %d", delta)
	}
	// The position must not have drifted.
	if delta, ok := w.Observe(11); !ok || delta != 1 {
		t.Fatalf("expected delta 1 after repeat, got %d (ok=%v)", delta, ok)
	}
}
