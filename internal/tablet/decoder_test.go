package tablet

import (
	"testing"

	"go.uber.org/zap"
)

func testCapability(t *testing.T, product uint16) Capability {
	t.Helper()
	cap, ok := Lookup(Identity{Vendor: VendorID, Product: product})
	if !ok {
		t.Fatalf("missing catalog entry for %04x", product)
	}
	return cap
}

func assertEvents(t *testing.T, got, want []Event) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestDecodePenHover(t *testing.T) {
	d := NewDecoder(zap.NewNop(), testCapability(t, 0x8528))
	packet := []byte{0x02, 0x80, 0x12, 0x34, 0x00, 0x56, 0x80, 0x00, 0x10, 0x20}
	assertEvents(t, d.Decode(packet), []Event{
		ToolProximityEvent(ToolPen, true),
		PositionEvent(0x1234, 0x0056),
		PressureEvent(0x8000 >> 6),
		TiltEvent(0x10, 0x20),
		ButtonEvent(ButtonTouch, false),
		ButtonEvent(ButtonStylus, false),
		FrameSyncEvent(),
	})
}

func TestDecodePenTouchingEraser(t *testing.T) {
	d := NewDecoder(zap.NewNop(), testCapability(t, 0x8528))
	packet := []byte{0x02, 0x20 | 0x01 | 0x02, 0x00, 0x10, 0x00, 0x20, 0x40, 0x00, 0x05, 0x06}
	assertEvents(t, d.Decode(packet), []Event{
		ToolProximityEvent(ToolEraser, true),
		PositionEvent(0x10, 0x20),
		PressureEvent(0x4000 >> 6),
		TiltEvent(0x05, 0x06),
		ButtonEvent(ButtonTouch, true),
		ButtonEvent(ButtonStylus, true),
		FrameSyncEvent(),
	})
}

func TestDecodePenOutOfProximity(t *testing.T) {
	d := NewDecoder(zap.NewNop(), testCapability(t, 0x8528))
	// No hover, leave or touch bit: position, pressure and tilt are stale
	// and must not be reported.
	packet := []byte{0x02, 0x00, 0x12, 0x34, 0x00, 0x56, 0x80, 0x00, 0x10, 0x20}
	assertEvents(t, d.Decode(packet), []Event{
		ToolProximityEvent(ToolPen, false),
		ButtonEvent(ButtonTouch, false),
		ButtonEvent(ButtonStylus, false),
		FrameSyncEvent(),
	})
}

func TestDecodePenLittleEndianCoords(t *testing.T) {
	cap := testCapability(t, 0x8532)
	cap.LittleEndianCoords = true
	d := NewDecoder(zap.NewNop(), cap)
	packet := []byte{0x02, 0x80, 0x34, 0x12, 0x56, 0x00, 0x00, 0x40, 0x00, 0x00}
	events := d.Decode(packet)
	assertEvents(t, events[:2], []Event{
		ToolProximityEvent(ToolPen, true),
		PositionEvent(0x1234, 0x0056),
	})
}

func TestDecodePenShortPacket(t *testing.T) {
	d := NewDecoder(zap.NewNop(), testCapability(t, 0x8528))
	packet := []byte{0x02, 0x80, 0x12, 0x34, 0x00, 0x56, 0x80, 0x00, 0x10}
	if events := d.Decode(packet); len(events) != 0 {
		t.Fatalf("expected no events from a short pen packet, got %v", events)
	}
}

func TestDecodeUnknownMessageType(t *testing.T) {
	for _, model := range Models() {
		d := NewDecoder(zap.NewNop(), model)
		packet := []byte{0xff, 0x55, 0xa2, 0xaa, 0xa4, 0x00, 0x00, 0x00, 0x00, 0x00}
		if events := d.Decode(packet); len(events) != 0 {
			t.Errorf("%s: expected no events, got %v", model.Name, events)
		}
	}
}

func TestDecodeButtonBanks(t *testing.T) {
	tests := []struct {
		name    string
		product uint16
		packet  []byte
		want    []Event
	}{
		{
			name:    "left bank buttons",
			product: 0x8528,
			packet:  []byte{0x01, 0x55, 0xa0 | 0x02 | 0x08, 0x00, 0x00},
			want: []Event{
				ButtonEvent(Button1, true),
				ButtonEvent(Button2, false),
				ButtonEvent(Button3, true),
				FrameSyncEvent(),
			},
		},
		{
			name:    "both banks on dual bank model",
			product: 0x8505,
			packet:  []byte{0x01, 0x55, 0xa0 | 0x04, 0xaa, 0xa0 | 0x02, 0x00},
			want: []Event{
				ButtonEvent(Button1, false),
				ButtonEvent(Button2, true),
				ButtonEvent(Button3, false),
				ButtonEvent(Button5, true),
				ButtonEvent(Button6, false),
				ButtonEvent(Button7, false),
				FrameSyncEvent(),
			},
		},
		{
			name:    "right bank ignored without layout",
			product: 0x8528,
			packet:  []byte{0x01, 0x00, 0x00, 0xaa, 0xa0 | 0x02, 0x00},
			want:    []Event{FrameSyncEvent()},
		},
		{
			name:    "no marker matches",
			product: 0x8528,
			packet:  []byte{0x01, 0x00, 0xa2, 0x00, 0xa4},
			want:    []Event{FrameSyncEvent()},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			d := NewDecoder(zap.NewNop(), testCapability(t, test.product))
			assertEvents(t, d.Decode(test.packet), test.want)
		})
	}
}

func TestDecodeWheel(t *testing.T) {
	d := NewDecoder(zap.NewNop(), testCapability(t, 0x8528))

	// First movement away from the initial position.
	events := d.Decode([]byte{0x01, 0x55, 0x03, 0x00, 0x00})
	assertEvents(t, events, []Event{WheelEvent(3), FrameSyncEvent()})

	// Same position again: only the frame marker.
	events = d.Decode([]byte{0x01, 0x55, 0x03, 0x00, 0x00})
	assertEvents(t, events, []Event{FrameSyncEvent()})

	// Wrap around the top of the domain.
	events = d.Decode([]byte{0x01, 0x55, 0x3e, 0x00, 0x00})
	assertEvents(t, events, []Event{WheelEvent(-5), FrameSyncEvent()})
}

func TestDecodeWheelDisabled(t *testing.T) {
	cap := testCapability(t, 0x8528)
	cap.SupportsWheel = false
	d := NewDecoder(zap.NewNop(), cap)
	events := d.Decode([]byte{0x01, 0x55, 0x03, 0x00, 0x00})
	assertEvents(t, events, []Event{FrameSyncEvent()})
}

func TestDecodePadButtons(t *testing.T) {
	tests := []struct {
		name    string
		product uint16
		packet  []byte
		want    []Event
	}{
		{
			name:    "four slot pad",
			product: 0x8521,
			packet:  []byte{0x0c, 0x00, 0x00, 0x01 | 0x08},
			want: []Event{
				ButtonEvent(Button0, true),
				ButtonEvent(Button1, false),
				ButtonEvent(Button2, false),
				ButtonEvent(Button3, true),
				FrameSyncEvent(),
			},
		},
		{
			name:    "seven slot pad",
			product: 0x8532,
			packet:  []byte{0x0c, 0x00, 0x00, 0x40},
			want: []Event{
				ButtonEvent(Button1, false),
				ButtonEvent(Button2, false),
				ButtonEvent(Button3, false),
				ButtonEvent(Button4, false),
				ButtonEvent(Button5, false),
				ButtonEvent(Button6, false),
				ButtonEvent(Button7, true),
				FrameSyncEvent(),
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			d := NewDecoder(zap.NewNop(), testCapability(t, test.product))
			assertEvents(t, d.Decode(test.packet), test.want)
		})
	}
}

func TestDecodePadShortPacket(t *testing.T) {
	d := NewDecoder(zap.NewNop(), testCapability(t, 0x8521))
	if events := d.Decode([]byte{0x0c, 0x00, 0x00}); len(events) != 0 {
		t.Fatalf("expected no events, got %v", events)
	}
}
