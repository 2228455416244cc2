package tabletsvc

import (
	"context"
	"errors"

	"github.com/hanvon-linux/hanvond/internal/tablet"
)

// Tolerated failure modes during claim and teardown. Backends translate
// their transport's error codes into these sentinels so the session can
// decide which steps are best-effort.
var (
	ErrNotSupported = errors.New("operation not supported")
	ErrNotFound     = errors.New("not found")
	ErrNoDevice     = errors.New("no such device")
)

// interruptEndpoint is the interrupt IN endpoint shared by the whole family.
const interruptEndpoint = 0x81

// Device is one physical unit as seen by the hotplug monitor. Two units may
// share an identity, so ownership comparisons go through Is, which compares
// the underlying physical device.
type Device interface {
	Identity() tablet.Identity
	Open() (Handle, error)
	Is(other Device) bool
	String() string
}

// Handle is an open device. The session claims exactly one interface on it
// and submits interrupt transfers against the family's fixed endpoint.
type Handle interface {
	// DetachKernelDriver removes exclusive kernel ownership of the claimed
	// interface. Backends without that concept return ErrNotSupported,
	// which callers treat as non-fatal.
	DetachKernelDriver() error
	// AttachKernelDriver is the best-effort inverse, used during teardown.
	AttachKernelDriver() error
	ClaimInterface() error
	ReleaseInterface() error
	// PrepareTransfer allocates a reusable interrupt transfer of packetLen
	// bytes against endpoint. Each Submit produces exactly one call to
	// complete; completions are delivered on the backend's own goroutine.
	PrepareTransfer(endpoint uint8, packetLen int, complete func(Completion)) (Transfer, error)
	Close() error
}

// Transfer is one in-flight-capable interrupt request. Submit may be called
// again after each completion; Cancel aborts a pending submission and the
// completion it produces reports TransferCancelled.
type Transfer interface {
	Submit() error
	Cancel() error
	Close() error
}

type TransferStatus uint8

const (
	TransferCompleted TransferStatus = iota
	TransferCancelled
	TransferError
)

func (s TransferStatus) String() string {
	switch s {
	case TransferCompleted:
		return "completed"
	case TransferCancelled:
		return "cancelled"
	default:
		return "error"
	}
}

// Completion is the result of one submitted transfer. Transfer identifies
// the submission's origin: consumers that queue completions must discard
// ones whose transfer they no longer own, or a result produced before a
// teardown could leak into the next session. Data aliases the transfer's
// buffer trimmed to the actual length and is only valid until the next
// Submit.
type Completion struct {
	Transfer Transfer
	Status   TransferStatus
	Data     []byte
}

type HotplugEventType uint8

const (
	DeviceArrived HotplugEventType = iota
	DeviceLeft
)

type HotplugEvent struct {
	Type   HotplugEventType
	Device Device
}

// Backend supplies hotplug notifications for a vendor filter. Already
// connected matching devices are reported as arrivals before live events.
// The returned channel is closed only on an unrecoverable monitor failure;
// context cancellation ends delivery silently.
type Backend interface {
	Subscribe(ctx context.Context, vendor uint16) (<-chan HotplugEvent, error)
}

// Sink consumes decoded event frames. Everything between two FrameSync
// events is applied as one atomic input frame.
type Sink interface {
	Emit(events []tablet.Event) error
	Close() error
}

// SinkFactory creates the virtual input device for a claimed tablet.
type SinkFactory interface {
	Configure(cap tablet.Capability, id tablet.Identity) (Sink, error)
}
