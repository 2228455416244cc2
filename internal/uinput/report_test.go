package uinput

import (
	"bytes"
	"testing"

	"github.com/hanvon-linux/hanvond/internal/tablet"
)

func capabilityFor(t *testing.T, product uint16) tablet.Capability {
	t.Helper()
	cap, ok := tablet.Lookup(tablet.Identity{Vendor: tablet.VendorID, Product: product})
	if !ok {
		t.Fatalf("missing catalog entry for %04x", product)
	}
	return cap
}

func applyFrame(r *reportState, events ...tablet.Event) [][]byte {
	for _, ev := range events {
		r.apply(ev)
	}
	return r.flush()
}

func TestPenFrameReport(t *testing.T) {
	r := newReportState(capabilityFor(t, 0x8528))
	reports := applyFrame(r,
		tablet.ToolProximityEvent(tablet.ToolPen, true),
		tablet.PositionEvent(0x1234, 0x0056),
		tablet.PressureEvent(512),
		tablet.TiltEvent(0x10, 0x20),
		tablet.ButtonEvent(tablet.ButtonTouch, false),
		tablet.ButtonEvent(tablet.ButtonStylus, false),
	)
	if len(reports) != 1 {
		t.Fatalf("expected one report, got %d", len(reports))
	}
	want := []byte{
		penReportID,
		penFlagInRange,
		0x34, 0x12, // x, little-endian
		0x56, 0x00, // y
		0x00, 0x02, // pressure 512
		0x10, 0x20, // tilt
	}
	if !bytes.Equal(reports[0], want) {
		t.Errorf("expected report % x, got % x", want, reports[0])
	}
}

func TestEraserTouchReport(t *testing.T) {
	r := newReportState(capabilityFor(t, 0x8528))
	reports := applyFrame(r,
		tablet.ToolProximityEvent(tablet.ToolEraser, true),
		tablet.PositionEvent(1, 2),
		tablet.PressureEvent(100),
		tablet.TiltEvent(0, 0),
		tablet.ButtonEvent(tablet.ButtonTouch, true),
		tablet.ButtonEvent(tablet.ButtonStylus, false),
	)
	if len(reports) != 1 {
		t.Fatalf("expected one report, got %d", len(reports))
	}
	flags := reports[0][1]
	for _, expect := range []struct {
		name string
		flag uint8
	}{
		{"in-range", penFlagInRange},
		{"invert", penFlagInvert},
		{"tip", penFlagTip},
		{"eraser", penFlagEraser},
	} {
		if flags&expect.flag == 0 {
			t.Errorf("expected %s flag set, flags=%08b", expect.name, flags)
		}
	}
}

func TestPadButtonsAndWheelReport(t *testing.T) {
	r := newReportState(capabilityFor(t, 0x8528))
	reports := applyFrame(r,
		tablet.ButtonEvent(tablet.Button1, true),
		tablet.WheelEvent(-3),
	)
	if len(reports) != 1 {
		t.Fatalf("expected one report, got %d", len(reports))
	}
	want := []byte{padReportID, 0x02, 0xfd}
	if !bytes.Equal(reports[0], want) {
		t.Errorf("expected report % x, got % x", want, reports[0])
	}

	// Next frame: the wheel delta must not repeat, the button holds.
	reports = applyFrame(r, tablet.ButtonEvent(tablet.Button2, true))
	want = []byte{padReportID, 0x06, 0x00}
	if !bytes.Equal(reports[0], want) {
		t.Errorf("expected report % x, got % x", want, reports[0])
	}
}

func TestUntouchedReportsNotFlushed(t *testing.T) {
	r := newReportState(capabilityFor(t, 0x8528))
	if reports := r.flush(); len(reports) != 0 {
		t.Fatalf("expected no reports, got %d", len(reports))
	}
	reports := applyFrame(r, tablet.WheelEvent(1))
	if len(reports) != 1 || reports[0][0] != padReportID {
		t.Fatalf("expected only the pad report, got %v", reports)
	}
}

func TestUnknownButtonSlotIgnored(t *testing.T) {
	cap := capabilityFor(t, 0x8528)
	r := newReportState(cap)
	reports := applyFrame(r, tablet.ButtonEvent(tablet.Button7, true))
	if len(reports) != 0 {
		t.Fatalf("expected no reports for unmapped slot, got %v", reports)
	}
}

func TestDescriptorBuilds(t *testing.T) {
	for _, model := range tablet.Models() {
		desc := buildDescriptor(model)
		if len(desc) == 0 {
			t.Errorf("%s: empty descriptor", model.Name)
			continue
		}
		if !bytes.Contains(desc, []byte{reportID, penReportID}) {
			t.Errorf("%s: descriptor missing pen report", model.Name)
		}
		if !bytes.Contains(desc, []byte{reportID, padReportID}) {
			t.Errorf("%s: descriptor missing pad report", model.Name)
		}
		// Balanced collections.
		opens := bytes.Count(desc, []byte{collection, collApp}) + bytes.Count(desc, []byte{collection, collPhysical})
		closes := bytes.Count(desc, []byte{endCollection})
		if opens != closes {
			t.Errorf("%s: unbalanced collections (%d open, %d close)", model.Name, opens, closes)
		}
	}
}
