// Package linux implements the tabletsvc USB capability on top of libusb
// (via gousb) for transfers and udev for hotplug notifications.
package linux

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/gousb"
	"github.com/hanvon-linux/hanvond/internal/tablet"
	"github.com/hanvon-linux/hanvond/internal/tabletsvc"
	"github.com/jochenvg/go-udev"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

// Backend watches the usb_device subsystem over a udev netlink monitor and
// opens matching devices through libusb. Departure events carry no usable
// attributes anymore, so arrivals are remembered by syspath until the unit
// leaves.
type Backend struct {
	log  *zap.Logger
	udev *udev.Udev
	usb  *gousb.Context

	present *xsync.MapOf[string, *usbDevice]
}

func NewBackend(log *zap.Logger) *Backend {
	return &Backend{
		log:     log,
		udev:    &udev.Udev{},
		present: xsync.NewMapOf[string, *usbDevice](),
	}
}

// Close releases the libusb context. Call only after the subscription
// context is done and the session torn down.
func (b *Backend) Close() error {
	if b.usb != nil {
		return b.usb.Close()
	}
	return nil
}

func (b *Backend) Subscribe(ctx context.Context, vendor uint16) (<-chan tabletsvc.HotplugEvent, error) {
	monitor := b.udev.NewMonitorFromNetlink("udev")
	if monitor == nil {
		return nil, fmt.Errorf("udev netlink monitor unavailable")
	}
	err := monitor.FilterAddMatchSubsystemDevtype("usb", "usb_device")
	if err != nil {
		return nil, fmt.Errorf("failed to filter udev monitor: %w", err)
	}
	devCh, err := monitor.DeviceChan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start udev monitor: %w", err)
	}

	b.usb = gousb.NewContext()

	existing, err := b.enumerate(vendor)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate usb devices: %w", err)
	}

	out := make(chan tabletsvc.HotplugEvent, 8)
	go func() {
		defer close(out)
		for _, dev := range existing {
			b.present.Store(dev.syspath, dev)
			select {
			case <-ctx.Done():
				return
			case out <- tabletsvc.HotplugEvent{Type: tabletsvc.DeviceArrived, Device: dev}:
			}
		}
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-devCh:
				if !ok {
					return
				}
				ev, ok := b.translate(d, vendor)
				if !ok {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case out <- ev:
				}
			}
		}
	}()
	return out, nil
}

func (b *Backend) translate(d *udev.Device, vendor uint16) (tabletsvc.HotplugEvent, bool) {
	switch d.Action() {
	case "add":
		dev, ok := b.deviceFromUdev(d, vendor)
		if !ok {
			return tabletsvc.HotplugEvent{}, false
		}
		b.present.Store(dev.syspath, dev)
		b.log.Debug("usb device arrived",
			zap.Stringer("identity", dev.id),
			zap.String("syspath", dev.syspath))
		return tabletsvc.HotplugEvent{Type: tabletsvc.DeviceArrived, Device: dev}, true
	case "remove":
		dev, ok := b.present.LoadAndDelete(d.Syspath())
		if !ok {
			return tabletsvc.HotplugEvent{}, false
		}
		b.log.Debug("usb device left",
			zap.Stringer("identity", dev.id),
			zap.String("syspath", dev.syspath))
		return tabletsvc.HotplugEvent{Type: tabletsvc.DeviceLeft, Device: dev}, true
	}
	return tabletsvc.HotplugEvent{}, false
}

func (b *Backend) enumerate(vendor uint16) ([]*usbDevice, error) {
	e := b.udev.NewEnumerate()
	err := e.AddMatchSubsystem("usb")
	if err != nil {
		return nil, err
	}
	udevDevices, err := e.Devices()
	if err != nil {
		return nil, err
	}
	var devices []*usbDevice
	for _, d := range udevDevices {
		if d.Devtype() != "usb_device" {
			continue
		}
		dev, ok := b.deviceFromUdev(d, vendor)
		if !ok {
			continue
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

func (b *Backend) deviceFromUdev(d *udev.Device, vendor uint16) (*usbDevice, bool) {
	vid, err := strconv.ParseUint(d.SysattrValue("idVendor"), 16, 16)
	if err != nil || uint16(vid) != vendor {
		return nil, false
	}
	pid, err := strconv.ParseUint(d.SysattrValue("idProduct"), 16, 16)
	if err != nil {
		return nil, false
	}
	bus, err := strconv.Atoi(d.SysattrValue("busnum"))
	if err != nil {
		return nil, false
	}
	address, err := strconv.Atoi(d.SysattrValue("devnum"))
	if err != nil {
		return nil, false
	}
	return &usbDevice{
		b:       b,
		syspath: d.Syspath(),
		id:      tablet.Identity{Vendor: uint16(vid), Product: uint16(pid)},
		bus:     bus,
		address: address,
	}, true
}

// usbDevice is one physical unit, pinned by bus/address. The same *usbDevice
// instance is used for the arrival and the matching departure, so session
// ownership checks compare the underlying unit and not just the identity.
type usbDevice struct {
	b       *Backend
	syspath string
	id      tablet.Identity
	bus     int
	address int
}

func (d *usbDevice) Identity() tablet.Identity { return d.id }

func (d *usbDevice) Is(other tabletsvc.Device) bool {
	o, ok := other.(*usbDevice)
	return ok && o.syspath == d.syspath && o.bus == d.bus && o.address == d.address
}

func (d *usbDevice) String() string {
	return fmt.Sprintf("%s@%d.%d", d.id, d.bus, d.address)
}

func (d *usbDevice) Open() (tabletsvc.Handle, error) {
	devs, err := d.b.usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Bus == d.bus && desc.Address == d.address
	})
	// OpenDevices can return opened devices together with an error for
	// unrelated ones; anything beyond the first match is closed again.
	for _, extra := range devs[min(len(devs), 1):] {
		extra.Close()
	}
	if len(devs) == 0 {
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", d, err)
		}
		return nil, fmt.Errorf("device %s is gone: %w", d, tabletsvc.ErrNoDevice)
	}
	return &usbHandle{log: d.b.log, dev: devs[0]}, nil
}

type usbHandle struct {
	log  *zap.Logger
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
}

func (h *usbHandle) DetachKernelDriver() error {
	// libusb's auto-detach covers both directions: the kernel driver is
	// detached at claim time and re-attached when the interface is
	// released.
	err := h.dev.SetAutoDetach(true)
	if err != nil {
		return mapUSBError(err)
	}
	return nil
}

func (h *usbHandle) AttachKernelDriver() error {
	// Re-attach is performed by libusb on release, see DetachKernelDriver.
	return nil
}

func (h *usbHandle) ClaimInterface() error {
	cfg, err := h.dev.Config(1)
	if err != nil {
		return fmt.Errorf("failed to select configuration: %w", mapUSBError(err))
	}
	intf, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		return fmt.Errorf("failed to claim interface: %w", mapUSBError(err))
	}
	h.cfg = cfg
	h.intf = intf
	return nil
}

func (h *usbHandle) ReleaseInterface() error {
	if h.intf != nil {
		h.intf.Close()
		h.intf = nil
	}
	if h.cfg != nil {
		err := h.cfg.Close()
		h.cfg = nil
		if err != nil {
			return mapUSBError(err)
		}
	}
	return nil
}

func (h *usbHandle) PrepareTransfer(endpoint uint8, packetLen int, complete func(tabletsvc.Completion)) (tabletsvc.Transfer, error) {
	if h.intf == nil {
		return nil, fmt.Errorf("interface not claimed")
	}
	ep, err := h.intf.InEndpoint(int(endpoint & 0x0f))
	if err != nil {
		return nil, fmt.Errorf("failed to open endpoint %#02x: %w", endpoint, mapUSBError(err))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &usbTransfer{
		log:      h.log,
		ep:       ep,
		buf:      make([]byte, packetLen),
		complete: complete,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

func (h *usbHandle) Close() error {
	return h.dev.Close()
}

// usbTransfer runs one blocking interrupt read per Submit and reports the
// outcome through the completion callback, mirroring the submit/callback
// cycle of an asynchronous libusb transfer. Interrupt reads have no timeout;
// they persist until data arrives or the transfer is cancelled.
type usbTransfer struct {
	log      *zap.Logger
	ep       *gousb.InEndpoint
	buf      []byte
	complete func(tabletsvc.Completion)

	ctx    context.Context
	cancel context.CancelFunc
}

func (t *usbTransfer) Submit() error {
	if t.ctx.Err() != nil {
		return fmt.Errorf("transfer already cancelled: %w", tabletsvc.ErrNotFound)
	}
	go func() {
		n, err := t.ep.ReadContext(t.ctx, t.buf)
		switch {
		case t.ctx.Err() != nil:
			t.complete(tabletsvc.Completion{Transfer: t, Status: tabletsvc.TransferCancelled})
		case err != nil:
			t.log.Debug("interrupt transfer failed", zap.Error(err))
			t.complete(tabletsvc.Completion{Transfer: t, Status: tabletsvc.TransferError})
		default:
			t.complete(tabletsvc.Completion{Transfer: t, Status: tabletsvc.TransferCompleted, Data: t.buf[:n]})
		}
	}()
	return nil
}

func (t *usbTransfer) Cancel() error {
	t.cancel()
	return nil
}

func (t *usbTransfer) Close() error {
	t.cancel()
	return nil
}

func mapUSBError(err error) error {
	var usbErr gousb.Error
	if !errors.As(err, &usbErr) {
		return err
	}
	switch usbErr {
	case gousb.ErrorNotSupported:
		return fmt.Errorf("%v: %w", err, tabletsvc.ErrNotSupported)
	case gousb.ErrorNotFound:
		return fmt.Errorf("%v: %w", err, tabletsvc.ErrNotFound)
	case gousb.ErrorNoDevice:
		return fmt.Errorf("%v: %w", err, tabletsvc.ErrNoDevice)
	}
	return err
}
