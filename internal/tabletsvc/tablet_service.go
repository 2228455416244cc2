package tabletsvc

import (
	"context"
	"fmt"

	"github.com/hanvon-linux/hanvond/internal/configsvc"
	"github.com/hanvon-linux/hanvond/internal/tablet"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

// Config is the daemon's hot-reloadable tablet configuration.
type Config struct {
	Quirks []Quirk `yaml:"quirks"`
}

// Quirk overrides catalog data for one product, for flags that still need
// per-unit hardware validation. Overrides apply to sessions started after
// the config change.
type Quirk struct {
	Product            uint16 `yaml:"product"`
	Name               string `yaml:"name"`
	LittleEndianCoords *bool  `yaml:"littleEndianCoords"`
	DisableWheel       *bool  `yaml:"disableWheel"`
}

// Service drives the single device session from one loop: hotplug arrivals
// and departures from the backend and transfer completions from the
// session's own submissions are serialized here, so the session needs no
// locking.
type Service struct {
	log        *zap.Logger
	backend    Backend
	sinks      SinkFactory
	config     *configsvc.Service
	configPath string

	quirks      *xsync.MapOf[uint16, Quirk]
	session     *Session
	completions chan Completion
	ready       chan struct{}
}

func New(log *zap.Logger, backend Backend, sinks SinkFactory, config *configsvc.Service, configPath string) *Service {
	return &Service{
		log:         log,
		backend:     backend,
		sinks:       sinks,
		config:      config,
		configPath:  configPath,
		quirks:      xsync.NewMapOf[uint16, Quirk](),
		session:     NewSession(log.Named("session"), sinks),
		completions: make(chan Completion, 1),
		ready:       make(chan struct{}),
	}
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Start subscribes to hotplug notifications and runs the event loop until
// the context is cancelled. Failure to establish the monitor is a startup
// error; everything after that is contained per-device.
func (s *Service) Start(ctx context.Context) error {
	if s.config != nil && s.configPath != "" {
		select {
		case <-ctx.Done():
			return nil
		case <-s.config.Ready():
		}
		cfg, err := configsvc.Register(s.config, s.configPath, Config{}, func(cfg Config, err error) {
			s.onConfigChange(cfg, err)
		})
		if err != nil {
			s.log.Warn("tablet config not loaded, using catalog defaults", zap.Error(err))
		} else {
			s.applyConfig(cfg)
		}
	}

	events, err := s.backend.Subscribe(ctx, tablet.VendorID)
	if err != nil {
		return fmt.Errorf("failed to subscribe to hotplug events: %w", err)
	}

	close(s.ready)
	s.log.Info("Tablet service started")

	for {
		select {
		case <-ctx.Done():
			s.session.Shutdown()
			return nil
		case ev, ok := <-events:
			if !ok {
				s.session.Shutdown()
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("hotplug monitor terminated")
			}
			s.handleHotplug(ctx, ev)
		case c := <-s.completions:
			s.session.HandleCompletion(c)
		}
	}
}

func (s *Service) handleHotplug(ctx context.Context, ev HotplugEvent) {
	switch ev.Type {
	case DeviceArrived:
		id := ev.Device.Identity()
		cap, ok := tablet.Lookup(id)
		if !ok {
			s.log.Debug("ignoring unsupported device", zap.Stringer("identity", id))
			return
		}
		s.session.HandleArrival(ev.Device, s.applyQuirks(cap), func(c Completion) {
			select {
			case <-ctx.Done():
			case s.completions <- c:
			}
		})
	case DeviceLeft:
		s.session.HandleDeparture(ev.Device)
	}
}

func (s *Service) onConfigChange(cfg Config, err error) {
	if err != nil {
		s.log.Error("failed to reload tablet config", zap.Error(err))
		return
	}
	s.applyConfig(cfg)
	s.log.Info("tablet config reloaded", zap.Int("quirks", len(cfg.Quirks)))
}

func (s *Service) applyConfig(cfg Config) {
	s.quirks.Clear()
	for _, q := range cfg.Quirks {
		s.quirks.Store(q.Product, q)
	}
}

func (s *Service) applyQuirks(cap tablet.Capability) tablet.Capability {
	q, ok := s.quirks.Load(cap.Product)
	if !ok {
		return cap
	}
	if q.Name != "" {
		cap.Name = q.Name
	}
	if q.LittleEndianCoords != nil {
		cap.LittleEndianCoords = *q.LittleEndianCoords
	}
	if q.DisableWheel != nil && *q.DisableWheel {
		cap.SupportsWheel = false
	}
	return cap
}
