package tablet

import "fmt"

// Tool identifies which end of the pen is near the surface.
type Tool uint8

const (
	ToolPen Tool = iota
	ToolEraser
)

func (t Tool) String() string {
	if t == ToolEraser {
		return "eraser"
	}
	return "pen"
}

// Button is a logical button slot. The sink decides how slots map to the
// host's input codes; the decoder only ever names slots.
type Button uint8

const (
	ButtonTouch Button = iota
	ButtonStylus
	ButtonStylus2
	Button0
	Button1
	Button2
	Button3
	Button4
	Button5
	Button6
	Button7
)

var buttonNames = map[Button]string{
	ButtonTouch:   "touch",
	ButtonStylus:  "stylus",
	ButtonStylus2: "stylus2",
	Button0:       "btn0",
	Button1:       "btn1",
	Button2:       "btn2",
	Button3:       "btn3",
	Button4:       "btn4",
	Button5:       "btn5",
	Button6:       "btn6",
	Button7:       "btn7",
}

func (b Button) String() string {
	if name, ok := buttonNames[b]; ok {
		return name
	}
	return fmt.Sprintf("btn?%d", uint8(b))
}

type EventType uint8

const (
	EventToolProximity EventType = iota
	EventAbsolutePosition
	EventPressure
	EventTilt
	EventButton
	EventWheelDelta
	EventFrameSync
)

// Event is one semantic input event decoded from a raw packet. All events
// between two FrameSync markers belong to the same atomic input frame.
type Event struct {
	Type EventType

	// EventToolProximity
	Tool   Tool
	Active bool

	// EventAbsolutePosition and EventTilt
	X int32
	Y int32

	// EventPressure
	Pressure int32

	// EventButton
	Button  Button
	Pressed bool

	// EventWheelDelta
	Delta int32
}

func ToolProximityEvent(tool Tool, active bool) Event {
	return Event{Type: EventToolProximity, Tool: tool, Active: active}
}

func PositionEvent(x, y int32) Event {
	return Event{Type: EventAbsolutePosition, X: x, Y: y}
}

func PressureEvent(value int32) Event {
	return Event{Type: EventPressure, Pressure: value}
}

func TiltEvent(x, y int32) Event {
	return Event{Type: EventTilt, X: x, Y: y}
}

func ButtonEvent(button Button, pressed bool) Event {
	return Event{Type: EventButton, Button: button, Pressed: pressed}
}

func WheelEvent(delta int32) Event {
	return Event{Type: EventWheelDelta, Delta: delta}
}

func FrameSyncEvent() Event {
	return Event{Type: EventFrameSync}
}

func (e Event) String() string {
	switch e.Type {
	case EventToolProximity:
		if e.Active {
			return "+" + e.Tool.String()
		}
		return "-" + e.Tool.String()
	case EventAbsolutePosition:
		return fmt.Sprintf("pos=%d,%d", e.X, e.Y)
	case EventPressure:
		return fmt.Sprintf("pressure=%d", e.Pressure)
	case EventTilt:
		return fmt.Sprintf("tilt=%d,%d", e.X, e.Y)
	case EventButton:
		if e.Pressed {
			return "+" + e.Button.String()
		}
		return "-" + e.Button.String()
	case EventWheelDelta:
		if e.Delta > 0 {
			return fmt.Sprintf("wheel+=%d", e.Delta)
		}
		return fmt.Sprintf("wheel-=%d", -e.Delta)
	case EventFrameSync:
		return "sync"
	}
	return "(unknown)"
}
