package uinput

import "github.com/hanvon-linux/hanvond/internal/tablet"

// Report IDs used by the generated descriptor. The pen report carries the
// digitizer state, the pad report carries tablet buttons and the wheel.
const (
	penReportID = 0x01
	padReportID = 0x02
)

// HID descriptor item prefixes (short items, one-byte payload unless noted).
const (
	usagePage       = 0x05
	usage           = 0x09
	logicalMin      = 0x15
	logicalMax16    = 0x26
	logicalMax8     = 0x25
	reportSize      = 0x75
	reportCount     = 0x95
	reportID        = 0x85
	input           = 0x81
	collection      = 0xa1
	endCollection   = 0xc0
	usageMin        = 0x19
	usageMax        = 0x29
	inputDataVar    = 0x02 // data, variable, absolute
	inputDataVarRel = 0x06 // data, variable, relative
	inputConst      = 0x03 // constant padding
)

const (
	pageGenericDesktop = 0x01
	pageDigitizer      = 0x0d
	pageButton         = 0x09

	usageDigitizer   = 0x01
	usageStylus      = 0x20
	usageTipSwitch   = 0x42
	usageBarrel      = 0x44
	usageInvert      = 0x3c
	usageEraser      = 0x45
	usageInRange     = 0x32
	usageTipPressure = 0x30
	usageXTilt       = 0x3d
	usageYTilt       = 0x3e

	usageX       = 0x30
	usageY       = 0x31
	usageWheel   = 0x38
	usageKeypad  = 0x07
	collPhysical = 0x00
	collApp      = 0x01
)

// buildDescriptor produces the HID report descriptor for one tablet model.
// Axis maxima come straight from the capability so the host maps absolute
// coordinates without rescaling. The pad report is only described when the
// model has pad buttons or a wheel.
func buildDescriptor(cap tablet.Capability) []byte {
	d := newDescBuilder()

	// Pen collection.
	d.item(usagePage, pageDigitizer)
	d.item(usage, usageDigitizer)
	d.item(collection, collApp)
	{
		d.item(reportID, penReportID)
		d.item(usage, usageStylus)
		d.item(collection, collPhysical)
		{
			// Flag bits: tip, barrel, invert, eraser, in-range + padding.
			d.item(usagePage, pageDigitizer)
			d.item(usage, usageTipSwitch)
			d.item(usage, usageBarrel)
			d.item(usage, usageInvert)
			d.item(usage, usageEraser)
			d.item(usage, usageInRange)
			d.item(logicalMin, 0)
			d.item(logicalMax8, 1)
			d.item(reportSize, 1)
			d.item(reportCount, 5)
			d.item(input, inputDataVar)
			d.item(reportCount, 3)
			d.item(input, inputConst)

			// Absolute position.
			d.item(usagePage, pageGenericDesktop)
			d.item(usage, usageX)
			d.item16(logicalMax16, uint16(cap.MaxX))
			d.item(reportSize, 16)
			d.item(reportCount, 1)
			d.item(input, inputDataVar)
			d.item(usage, usageY)
			d.item16(logicalMax16, uint16(cap.MaxY))
			d.item(input, inputDataVar)

			// Pressure and tilt.
			d.item(usagePage, pageDigitizer)
			d.item(usage, usageTipPressure)
			d.item16(logicalMax16, uint16(cap.MaxPressure-1))
			d.item(input, inputDataVar)
			d.item(usage, usageXTilt)
			d.item16(logicalMax16, uint16(cap.MaxTiltX))
			d.item(reportSize, 8)
			d.item(input, inputDataVar)
			d.item(usage, usageYTilt)
			d.item16(logicalMax16, uint16(cap.MaxTiltY))
			d.item(input, inputDataVar)
		}
		d.raw(endCollection)
	}
	d.raw(endCollection)

	buttons := padButtonCount(cap)
	if buttons > 0 || cap.SupportsWheel {
		// Pad collection: tablet buttons and the relative wheel.
		d.item(usagePage, pageGenericDesktop)
		d.item(usage, usageKeypad)
		d.item(collection, collApp)
		{
			d.item(reportID, padReportID)
			if buttons > 0 {
				d.item(usagePage, pageButton)
				d.item(usageMin, 1)
				d.item(usageMax, byte(buttons))
				d.item(logicalMin, 0)
				d.item(logicalMax8, 1)
				d.item(reportSize, 1)
				d.item(reportCount, byte(buttons))
				d.item(input, inputDataVar)
				if buttons < 8 {
					d.item(reportCount, byte(8-buttons))
					d.item(input, inputConst)
				}
			} else {
				d.item(reportSize, 8)
				d.item(reportCount, 1)
				d.item(input, inputConst)
			}
			if cap.SupportsWheel {
				d.item(usagePage, pageGenericDesktop)
				d.item(usage, usageWheel)
				d.raw(logicalMin, 0x81) // -127
				d.item(logicalMax8, 127)
				d.item(reportSize, 8)
				d.item(reportCount, 1)
				d.item(input, inputDataVarRel)
			} else {
				d.item(reportSize, 8)
				d.item(reportCount, 1)
				d.item(input, inputConst)
			}
		}
		d.raw(endCollection)
	}

	return d.bytes
}

// padButtonCount is the number of distinct pad button slots a model can
// report across the general and compact button messages.
func padButtonCount(cap tablet.Capability) int {
	seen := make(map[tablet.Button]struct{})
	for _, bank := range [][]tablet.Button{cap.LeftButtons, cap.RightButtons, cap.PadButtons} {
		for _, b := range bank {
			seen[b] = struct{}{}
		}
	}
	return len(seen)
}

type descBuilder struct {
	bytes []byte
}

func newDescBuilder() *descBuilder {
	return &descBuilder{bytes: make([]byte, 0, 128)}
}

func (d *descBuilder) raw(b ...byte) {
	d.bytes = append(d.bytes, b...)
}

func (d *descBuilder) item(prefix, value byte) {
	// Short item with a one-byte payload: bSize bits already encoded in
	// the prefix constants above (01).
	d.bytes = append(d.bytes, prefix, value)
}

func (d *descBuilder) item16(prefix byte, value uint16) {
	d.bytes = append(d.bytes, prefix, byte(value), byte(value>>8))
}
