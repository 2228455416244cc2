package tabletsvc

import (
	"errors"

	"github.com/hanvon-linux/hanvond/internal/tablet"
	"go.uber.org/zap"
)

type SessionState uint8

const (
	StateIdle SessionState = iota
	StateClaimed
	StateRunning
	StateTearingDown
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateClaimed:
		return "claimed"
	case StateRunning:
		return "running"
	default:
		return "tearing-down"
	}
}

// Session owns the resources of at most one physical tablet across its
// lifetime: the open handle, the claimed interface, the prepared transfer
// and the sink. All methods must be called from a single goroutine (the
// service loop); the session itself does no locking.
type Session struct {
	log   *zap.Logger
	sinks SinkFactory

	state    SessionState
	dev      Device
	handle   Handle
	transfer Transfer
	sink     Sink
	decoder  *tablet.Decoder
}

func NewSession(log *zap.Logger, sinks SinkFactory) *Session {
	return &Session{
		log:   log,
		sinks: sinks,
	}
}

func (s *Session) State() SessionState {
	return s.state
}

// Device returns the currently owned physical unit, or nil.
func (s *Session) Device() Device {
	return s.dev
}

// HandleArrival claims the device and starts its transfer cycle. A second
// arrival while a session is active is ignored; only one physical unit is
// driven at a time. Every failure branch unwinds the resources acquired so
// far, in reverse order, and leaves the session Idle.
func (s *Session) HandleArrival(dev Device, cap tablet.Capability, complete func(Completion)) {
	if s.state != StateIdle {
		s.log.Info("ignoring arrival, session already active",
			zap.String("device", dev.String()),
			zap.Stringer("state", s.state))
		return
	}

	log := s.log.With(zap.String("device", dev.String()), zap.String("model", cap.Name))

	handle, err := dev.Open()
	if err != nil {
		log.Error("failed to open device", zap.Error(err))
		return
	}

	err = handle.DetachKernelDriver()
	if err != nil && !errors.Is(err, ErrNotSupported) {
		log.Error("failed to detach kernel driver", zap.Error(err))
		handle.Close()
		return
	}

	err = handle.ClaimInterface()
	if err != nil {
		log.Error("failed to claim interface", zap.Error(err))
		handle.AttachKernelDriver()
		handle.Close()
		return
	}
	s.state = StateClaimed

	sink, err := s.sinks.Configure(cap, dev.Identity())
	if err != nil {
		log.Error("failed to configure sink", zap.Error(err))
		handle.ReleaseInterface()
		handle.AttachKernelDriver()
		handle.Close()
		s.state = StateIdle
		return
	}

	// A fresh decoder also resets the wheel position, so slider state from
	// a previous physical device never leaks into this session.
	decoder := tablet.NewDecoder(log.Named("decoder"), cap)

	transfer, err := handle.PrepareTransfer(interruptEndpoint, tablet.PacketLen, complete)
	if err != nil {
		log.Error("failed to prepare transfer", zap.Error(err))
		sink.Close()
		handle.ReleaseInterface()
		handle.AttachKernelDriver()
		handle.Close()
		s.state = StateIdle
		return
	}

	err = transfer.Submit()
	if err != nil {
		log.Error("failed to submit transfer", zap.Error(err))
		transfer.Close()
		sink.Close()
		handle.ReleaseInterface()
		handle.AttachKernelDriver()
		handle.Close()
		s.state = StateIdle
		return
	}

	s.dev = dev
	s.handle = handle
	s.transfer = transfer
	s.sink = sink
	s.decoder = decoder
	s.state = StateRunning
	log.Info("session started")
}

// HandleCompletion decodes one finished transfer and resubmits. A completion
// that does not belong to the current transfer was queued before a teardown
// and is dropped, so bytes from a departed device never reach the next
// session's sink. Anything but a completed status means the device is going
// away or already gone: the transfer is not resubmitted and cleanup is left
// to HandleDeparture.
func (s *Session) HandleCompletion(c Completion) {
	if s.state != StateRunning {
		return
	}
	if c.Transfer != s.transfer {
		s.log.Debug("dropping completion of a transfer this session does not own",
			zap.Stringer("status", c.Status))
		return
	}
	if c.Status != TransferCompleted {
		s.log.Debug("transfer did not complete, not resubmitting",
			zap.Stringer("status", c.Status))
		return
	}

	events := s.decoder.Decode(c.Data)
	if len(events) > 0 {
		if err := s.sink.Emit(events); err != nil {
			s.log.Error("failed to emit events", zap.Error(err))
		}
	}

	if s.state != StateRunning {
		return
	}
	if err := s.transfer.Submit(); err != nil {
		// The session stays Running but will receive no further
		// completions until the device is re-plugged.
		s.log.Error("failed to resubmit transfer", zap.Error(err))
	}
}

// HandleDeparture tears the session down if dev is the owned physical unit.
// Departures of unrelated devices, including ones sharing our vendor and
// product IDs, are ignored.
func (s *Session) HandleDeparture(dev Device) {
	if s.dev == nil || !s.dev.Is(dev) {
		s.log.Debug("ignoring departure of unrelated device",
			zap.String("device", dev.String()))
		return
	}
	s.teardown()
}

// Shutdown runs the departure teardown for whatever is still active. Safe to
// call after a departure already cleaned up; the second call is a no-op.
func (s *Session) Shutdown() {
	if s.dev == nil {
		return
	}
	s.teardown()
}

// teardown releases everything in reverse acquisition order. Each step
// tolerates the errors expected when the hardware has already vanished and
// never aborts the remaining steps. The transfer is always cancelled and
// freed before the handle it was submitted against is closed.
func (s *Session) teardown() {
	log := s.log.With(zap.String("device", s.dev.String()))
	log.Info("tearing down session")
	s.state = StateTearingDown

	if s.transfer != nil {
		err := s.transfer.Cancel()
		if err != nil && !errors.Is(err, ErrNotFound) {
			log.Warn("failed to cancel transfer", zap.Error(err))
		}
		s.transfer.Close()
		s.transfer = nil
	}

	if s.sink != nil {
		if err := s.sink.Close(); err != nil {
			log.Warn("failed to destroy sink", zap.Error(err))
		}
		s.sink = nil
	}

	if s.handle != nil {
		err := s.handle.ReleaseInterface()
		if err != nil && !errors.Is(err, ErrNoDevice) {
			log.Warn("failed to release interface", zap.Error(err))
		}
		if err := s.handle.AttachKernelDriver(); err != nil &&
			!errors.Is(err, ErrNoDevice) && !errors.Is(err, ErrNotSupported) {
			log.Warn("failed to re-attach kernel driver", zap.Error(err))
		}
		if err := s.handle.Close(); err != nil {
			log.Warn("failed to close handle", zap.Error(err))
		}
		s.handle = nil
	}

	s.decoder = nil
	s.dev = nil
	s.state = StateIdle
	log.Info("session closed")
}
