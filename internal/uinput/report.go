package uinput

import (
	"encoding/binary"

	"github.com/hanvon-linux/hanvond/internal/tablet"
)

// Pen report flag bits, matching the descriptor's declaration order.
const (
	penFlagTip     = 1 << 0
	penFlagBarrel  = 1 << 1
	penFlagInvert  = 1 << 2
	penFlagEraser  = 1 << 3
	penFlagInRange = 1 << 4
)

const (
	penReportLen = 10 // id + flags + x16 + y16 + pressure16 + tilt + tilt
	padReportLen = 3  // id + buttons + wheel
)

// reportState folds semantic events into the two report layouts. Absolute
// fields persist between frames; the wheel delta is consumed by each flush.
type reportState struct {
	buttonBits map[tablet.Button]uint8

	flags    uint8
	x        uint16
	y        uint16
	pressure uint16
	tiltX    uint8
	tiltY    uint8

	padButtons uint8
	wheel      int8

	penTouched bool
	padTouched bool
}

// newReportState assigns every pad button slot of the capability a bit in
// the pad report, in the order the descriptor declared them.
func newReportState(cap tablet.Capability) *reportState {
	bits := make(map[tablet.Button]uint8)
	for _, bank := range [][]tablet.Button{cap.LeftButtons, cap.RightButtons, cap.PadButtons} {
		for _, b := range bank {
			if _, ok := bits[b]; ok {
				continue
			}
			bits[b] = uint8(1 << uint(len(bits)))
		}
	}
	return &reportState{buttonBits: bits}
}

func (r *reportState) setFlag(flag uint8, on bool) {
	if on {
		r.flags |= flag
	} else {
		r.flags &^= flag
	}
}

// apply folds one event into the report state and reports which report it
// touched.
func (r *reportState) apply(ev tablet.Event) {
	switch ev.Type {
	case tablet.EventToolProximity:
		r.setFlag(penFlagInRange, ev.Active)
		r.setFlag(penFlagInvert, ev.Tool == tablet.ToolEraser && ev.Active)
		if !ev.Active {
			// Out of range: the eraser flag cannot stay latched.
			r.setFlag(penFlagEraser, false)
		}
		r.penTouched = true
	case tablet.EventAbsolutePosition:
		r.x = uint16(ev.X)
		r.y = uint16(ev.Y)
		r.penTouched = true
	case tablet.EventPressure:
		r.pressure = uint16(ev.Pressure)
		r.penTouched = true
	case tablet.EventTilt:
		r.tiltX = uint8(ev.X)
		r.tiltY = uint8(ev.Y)
		r.penTouched = true
	case tablet.EventButton:
		switch ev.Button {
		case tablet.ButtonTouch:
			r.setFlag(penFlagTip, ev.Pressed)
			if r.flags&penFlagInvert != 0 {
				r.setFlag(penFlagEraser, ev.Pressed)
			}
			r.penTouched = true
		case tablet.ButtonStylus, tablet.ButtonStylus2:
			r.setFlag(penFlagBarrel, ev.Pressed)
			r.penTouched = true
		default:
			bit, ok := r.buttonBits[ev.Button]
			if !ok {
				return
			}
			if ev.Pressed {
				r.padButtons |= bit
			} else {
				r.padButtons &^= bit
			}
			r.padTouched = true
		}
	case tablet.EventWheelDelta:
		delta := ev.Delta
		if delta > 127 {
			delta = 127
		} else if delta < -127 {
			delta = -127
		}
		r.wheel = int8(delta)
		r.padTouched = true
	}
}

// flush returns the wire reports touched since the last flush and arms the
// state for the next frame. Multibyte HID report fields are little-endian.
func (r *reportState) flush() [][]byte {
	var reports [][]byte
	if r.penTouched {
		report := make([]byte, penReportLen)
		report[0] = penReportID
		report[1] = r.flags
		binary.LittleEndian.PutUint16(report[2:4], r.x)
		binary.LittleEndian.PutUint16(report[4:6], r.y)
		binary.LittleEndian.PutUint16(report[6:8], r.pressure)
		report[8] = r.tiltX
		report[9] = r.tiltY
		reports = append(reports, report)
		r.penTouched = false
	}
	if r.padTouched {
		report := []byte{padReportID, r.padButtons, byte(r.wheel)}
		reports = append(reports, report)
		r.wheel = 0
		r.padTouched = false
	}
	return reports
}
