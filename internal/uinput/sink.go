// Package uinput emits decoded tablet frames as a Linux virtual input
// device backed by the uhid kernel interface.
package uinput

import (
	"context"
	"fmt"

	"github.com/hanvon-linux/hanvond/internal/tablet"
	"github.com/hanvon-linux/hanvond/internal/tabletsvc"
	"github.com/psanford/uhid"
	"go.uber.org/zap"
)

// Factory creates one uhid device per claimed tablet.
type Factory struct {
	log *zap.Logger
}

func NewFactory(log *zap.Logger) *Factory {
	return &Factory{log: log}
}

func (f *Factory) Configure(cap tablet.Capability, id tablet.Identity) (tabletsvc.Sink, error) {
	descriptor := buildDescriptor(cap)
	dev, err := uhid.NewDevice(cap.Name, descriptor)
	if err != nil {
		return nil, fmt.Errorf("failed to create uhid device: %w", err)
	}
	dev.Data.Bus = 0x03 // BUS_USB
	dev.Data.VendorID = uint32(id.Vendor)
	dev.Data.ProductID = uint32(id.Product)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := dev.Open(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open uhid device: %w", err)
	}

	sink := &uhidSink{
		log:    f.log.With(zap.String("model", cap.Name)),
		dev:    dev,
		cancel: cancel,
		state:  newReportState(cap),
	}
	// The kernel talks back over the same channel (start/open and output
	// reports); nothing there is relevant for a pure input device, but the
	// channel must be drained.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				sink.log.Debug("uhid event", zap.Uint32("type", uint32(ev.Type)))
			}
		}
	}()
	sink.log.Info("virtual input device created")
	return sink, nil
}

type uhidSink struct {
	log    *zap.Logger
	dev    *uhid.Device
	cancel context.CancelFunc
	state  *reportState
}

// Emit folds one or more frames into report state and injects the touched
// reports at each frame boundary, so every frame reaches the host as an
// atomic update per report.
func (s *uhidSink) Emit(events []tablet.Event) error {
	for _, ev := range events {
		if ev.Type != tablet.EventFrameSync {
			s.state.apply(ev)
			continue
		}
		for _, report := range s.state.flush() {
			if err := s.dev.InjectEvent(report); err != nil {
				return fmt.Errorf("failed to inject report: %w", err)
			}
		}
	}
	return nil
}

func (s *uhidSink) Close() error {
	s.cancel()
	err := s.dev.Close()
	s.log.Info("virtual input device destroyed")
	return err
}
