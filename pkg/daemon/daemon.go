package daemon

import (
	"context"
	"fmt"

	"github.com/hanvon-linux/hanvond/internal/configsvc"
	"github.com/hanvon-linux/hanvond/internal/tablet"
	"github.com/hanvon-linux/hanvond/internal/tabletsvc"
	"github.com/hanvon-linux/hanvond/internal/tabletsvc/linux"
	"github.com/hanvon-linux/hanvond/internal/uinput"
	"github.com/sstallion/go-hid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// Daemon wires the services together: the config watcher, the USB backend
// and the tablet service that bridges packets to the uhid sink.
type Daemon struct {
	config Config

	log       *zap.Logger
	configSvc *configsvc.Service
	backend   *linux.Backend
	tabletSvc *tabletsvc.Service
}

func NewDaemon(config Config) (*Daemon, error) {
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000000")
	loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	configSvc := configsvc.New(logger.Named("config"))
	backend := linux.NewBackend(logger.Named("usb"))
	sinks := uinput.NewFactory(logger.Named("uinput"))
	tabletSvc := tabletsvc.New(logger.Named("tablet"), backend, sinks, configSvc, config.TabletConfig)

	return &Daemon{
		config:    config,
		log:       logger,
		configSvc: configSvc,
		backend:   backend,
		tabletSvc: tabletSvc,
	}, nil
}

// Run starts the daemon and blocks until the context is cancelled. A failure
// to bring up the USB subsystem or the hotplug monitor is returned as a
// startup error; per-device failures afterwards only end up in the log.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer d.backend.Close()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return d.configSvc.Start(groupCtx)
	})
	group.Go(func() error {
		return d.tabletSvc.Start(groupCtx)
	})

	err := group.Wait()
	if err != nil {
		return fmt.Errorf("daemon failed: %w", err)
	}
	return nil
}

// DeviceInfo is the list-devices view of one attached HID interface.
type DeviceInfo struct {
	Identity  string `json:"identity"`
	Model     string `json:"model,omitempty"`
	Supported bool   `json:"supported"`
	Path      string `json:"path"`
	Serial    string `json:"serial,omitempty"`
	Product   string `json:"product,omitempty"`
}

// ListDevices enumerates the vendor's attached HID interfaces. It is a
// diagnostic surface; the daemon itself discovers devices over udev.
func (d *Daemon) ListDevices() ([]DeviceInfo, error) {
	if err := hid.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize hidapi: %w", err)
	}
	defer hid.Exit()

	var devices []DeviceInfo
	err := hid.Enumerate(tablet.VendorID, hid.ProductIDAny, func(info *hid.DeviceInfo) error {
		id := tablet.Identity{Vendor: info.VendorID, Product: info.ProductID}
		dev := DeviceInfo{
			Identity:  id.String(),
			Supported: tablet.Supported(id),
			Path:      info.Path,
			Serial:    info.SerialNbr,
			Product:   info.ProductStr,
		}
		if cap, ok := tablet.Lookup(id); ok {
			dev.Model = cap.Name
		}
		devices = append(devices, dev)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	return devices, nil
}
