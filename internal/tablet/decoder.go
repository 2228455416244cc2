package tablet

import (
	"encoding/binary"

	"go.uber.org/zap"
)

// Message types reported in the first byte of every packet.
const (
	msgButtons    = 0x01 // general purpose buttons / wheel slider
	msgPen        = 0x02 // pen position, pressure, tilt and status
	msgPadButtons = 0x0c // compact pad button message (0906 models)
)

// Pen status bits (packet byte 1).
const (
	penStatusTouch    = 0x01
	penStatusStylus   = 0x02
	penStatusStylus2  = 0x04 // reserved, not reported by known firmware
	penStatusLeaving  = 0x10
	penStatusEraser   = 0x20
	penStatusHovering = 0x80
)

// Bank markers of the general button message.
const (
	leftBankMarker  = 0x55
	rightBankMarker = 0xaa
)

// Decoder turns raw interrupt packets into ordered semantic events for one
// device session. It owns the session's wheel state; construct a new Decoder
// per session so the slider position starts from a defined value.
type Decoder struct {
	log   *zap.Logger
	cap   Capability
	wheel WheelTracker
}

func NewDecoder(log *zap.Logger, cap Capability) *Decoder {
	return &Decoder{
		log: log,
		cap: cap,
	}
}

func (d *Decoder) Capability() Capability {
	return d.cap
}

// Decode interprets one packet. Unknown message types and packets shorter
// than their message's minimum length yield no events and a diagnostic;
// decoding never mutates state on a malformed packet. Every recognized
// packet produces a sequence terminated by exactly one FrameSync.
func (d *Decoder) Decode(buf []byte) []Event {
	if len(buf) == 0 {
		d.log.Debug("empty packet")
		return nil
	}
	var events []Event
	switch buf[0] {
	case msgButtons:
		if len(buf) < 5 {
			d.log.Debug("button packet too short", zap.Int("len", len(buf)))
			return nil
		}
		events = d.decodeButtons(buf)
	case msgPen:
		if len(buf) < PacketLen {
			d.log.Debug("pen packet too short", zap.Int("len", len(buf)))
			return nil
		}
		events = d.decodePen(buf)
	case msgPadButtons:
		if len(buf) < 4 {
			d.log.Debug("pad packet too short", zap.Int("len", len(buf)))
			return nil
		}
		events = d.decodePad(buf)
	default:
		d.log.Debug("unknown message type",
			zap.Uint8("type", buf[0]),
			zap.Int("len", len(buf)))
		return nil
	}
	return append(events, FrameSyncEvent())
}

// decodeButtons handles the general button/wheel message. Each bank is
// guarded by its marker byte; a status byte with the 0xa0 pattern in the
// upper nibble carries button flags, anything in the 6-bit range is a slider
// position.
func (d *Decoder) decodeButtons(buf []byte) []Event {
	var events []Event
	if buf[1] == leftBankMarker {
		events = d.decodeBank(events, d.cap.LeftButtons, buf[2])
	}
	if buf[3] == rightBankMarker {
		events = d.decodeBank(events, d.cap.RightButtons, buf[4])
	}
	return events
}

func (d *Decoder) decodeBank(events []Event, bank []Button, status byte) []Event {
	if status&0xf0 == 0xa0 {
		// Bank slot 0 is never carried by this message.
		for i, bit := range []byte{0x02, 0x04, 0x08} {
			slot := i + 1
			if slot >= len(bank) {
				break
			}
			events = append(events, ButtonEvent(bank[slot], status&bit != 0))
		}
		return events
	}
	if status <= 0x3f && d.cap.SupportsWheel {
		if delta, ok := d.wheel.Observe(status); ok {
			events = append(events, WheelEvent(delta))
		}
	}
	return events
}

// decodePen handles the full 10-byte pen message. Position, pressure and
// tilt are only trustworthy while the pen is reported near the surface;
// touch and stylus button state are valid regardless.
func (d *Decoder) decodePen(buf []byte) []Event {
	status := buf[1]
	tool := ToolPen
	if status&penStatusEraser != 0 {
		tool = ToolEraser
	}
	active := status&(penStatusHovering|penStatusLeaving|penStatusTouch) != 0

	events := make([]Event, 0, 6)
	events = append(events, ToolProximityEvent(tool, active))
	if active {
		var x, y uint16
		if d.cap.LittleEndianCoords {
			x = binary.LittleEndian.Uint16(buf[2:4])
			y = binary.LittleEndian.Uint16(buf[4:6])
		} else {
			x = binary.BigEndian.Uint16(buf[2:4])
			y = binary.BigEndian.Uint16(buf[4:6])
		}
		pressure := binary.BigEndian.Uint16(buf[6:8]) >> 6
		events = append(events,
			PositionEvent(int32(x), int32(y)),
			PressureEvent(int32(pressure)),
			// Tilt bytes are passed through unscaled. Signedness is
			// unvalidated on real hardware.
			TiltEvent(int32(buf[8]), int32(buf[9])),
		)
	}
	events = append(events,
		ButtonEvent(ButtonTouch, status&penStatusTouch != 0),
		ButtonEvent(ButtonStylus, status&penStatusStylus != 0),
	)
	return events
}

// decodePad handles the compact 0x0c button message. The capability's pad
// layout defines how many flag bits of the status byte are meaningful.
func (d *Decoder) decodePad(buf []byte) []Event {
	status := buf[3]
	events := make([]Event, 0, len(d.cap.PadButtons))
	for i, slot := range d.cap.PadButtons {
		if i >= 8 {
			break
		}
		events = append(events, ButtonEvent(slot, status&(1<<uint(i)) != 0))
	}
	return events
}
