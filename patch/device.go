package patch

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// ErrNoAdapter is returned when the noop backend reports no adapter.
var ErrNoAdapter = errors.New("patch: no GPU adapter available")

// HeadlessDevice is a GPU device on the wgpu noop backend. It accepts every
// call and renders nothing, which is enough to drive the full build, upload
// and draw path without a window or a real GPU.
//
// HeadlessDevice implements gpucontext.DeviceProvider and exposes its HAL
// handles the same way a host application does, so it can be passed to
// NewHALBuilderFromProvider.
type HeadlessDevice struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
}

// NewHeadlessDevice opens the first noop adapter.
func NewHeadlessDevice() (*HeadlessDevice, error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("patch: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("patch: open adapter: %w", err)
	}
	return &HeadlessDevice{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
	}, nil
}

// Device returns nil; the headless device has no gpucontext wrapper.
func (d *HeadlessDevice) Device() gpucontext.Device { return nil }

// Queue returns nil; see Device.
func (d *HeadlessDevice) Queue() gpucontext.Queue { return nil }

// Adapter returns nil; see Device.
func (d *HeadlessDevice) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined: there is no surface.
func (d *HeadlessDevice) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// HalDevice returns the underlying hal.Device.
func (d *HeadlessDevice) HalDevice() any { return d.device }

// HalQueue returns the underlying hal.Queue.
func (d *HeadlessDevice) HalQueue() any { return d.queue }

// HAL returns the typed device and queue.
func (d *HeadlessDevice) HAL() (hal.Device, hal.Queue) {
	return d.device, d.queue
}

// Destroy releases the device and instance.
func (d *HeadlessDevice) Destroy() {
	if d.device != nil {
		d.device.Destroy()
		d.device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	d.queue = nil
}

var _ gpucontext.DeviceProvider = (*HeadlessDevice)(nil)
