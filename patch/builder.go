package patch

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/patchstream/content"
	"github.com/gogpu/patchstream/spatial"
)

// DefaultResolution is the number of grid quads per cell side.
const DefaultResolution = 32

var (
	// ErrUnknownCell is returned when the builder cannot resolve a cell id.
	ErrUnknownCell = errors.New("patch: unknown cell")

	// ErrNoContent is returned when a build is requested without a level.
	ErrNoContent = errors.New("patch: no level content")

	// ErrNilProvider is returned when a nil device provider is passed.
	ErrNilProvider = errors.New("patch: device provider is nil")

	// ErrNoHALDevice is returned when a provider does not expose HAL types.
	ErrNoHALDevice = errors.New("patch: provider does not expose a HAL device and queue")
)

// CellLookup resolves cell ids to their bounds.
// spatial.Quadtree implements CellLookup.
type CellLookup interface {
	Cell(id int) (spatial.Cell, bool)
}

// BuilderOption configures a HALBuilder.
type BuilderOption func(*builderOptions)

type builderOptions struct {
	resolution int
}

// WithResolution sets the number of grid quads per cell side.
func WithResolution(n int) BuilderOption {
	return func(o *builderOptions) {
		o.resolution = n
	}
}

// HALBuilder builds terrain patches into GPU buffers on a wgpu HAL device.
//
// Build is safe for concurrent use: mesh assembly runs in parallel and only
// resource creation and upload are serialized.
type HALBuilder struct {
	device     hal.Device
	queue      hal.Queue
	cells      CellLookup
	resolution int

	// uploadMu serializes buffer creation and queue writes.
	uploadMu sync.Mutex
}

// NewHALBuilder creates a builder that allocates patch buffers on device and
// uploads them through queue. The builder does not own the device.
func NewHALBuilder(device hal.Device, queue hal.Queue, cells CellLookup, opts ...BuilderOption) (*HALBuilder, error) {
	if device == nil || queue == nil {
		return nil, ErrNoHALDevice
	}
	if cells == nil {
		return nil, fmt.Errorf("patch: cell lookup is nil")
	}

	o := builderOptions{resolution: DefaultResolution}
	for _, opt := range opts {
		opt(&o)
	}
	if o.resolution < 1 || o.resolution > maxResolution {
		return nil, fmt.Errorf("%w: %d", ErrInvalidResolution, o.resolution)
	}

	return &HALBuilder{
		device:     device,
		queue:      queue,
		cells:      cells,
		resolution: o.resolution,
	}, nil
}

// NewHALBuilderFromProvider creates a builder on the device shared by a host
// application. The provider must implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue.
func NewHALBuilderFromProvider(provider gpucontext.DeviceProvider, cells CellLookup, opts ...BuilderOption) (*HALBuilder, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	device, queue, err := halFromProvider(provider)
	if err != nil {
		return nil, err
	}
	return NewHALBuilder(device, queue, cells, opts...)
}

func halFromProvider(provider any) (hal.Device, hal.Queue, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, nil, ErrNoHALDevice
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALDevice)
	}
	return device, queue, nil
}

// Resolution returns the grid quads per cell side.
func (b *HALBuilder) Resolution() int {
	return b.resolution
}

// Build assembles the terrain mesh of a cell and uploads it to the GPU.
func (b *HALBuilder) Build(cellID int, level *content.Level) (*Patch, error) {
	if level == nil {
		return nil, ErrNoContent
	}
	cell, ok := b.cells.Cell(cellID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCell, cellID)
	}

	mesh, err := BuildTerrainMesh(level, cell.Bounds, b.resolution)
	if err != nil {
		return nil, fmt.Errorf("patch: cell %d mesh: %w", cellID, err)
	}

	b.uploadMu.Lock()
	defer b.uploadMu.Unlock()

	vertBuf, err := b.createAndUploadBuffer(fmt.Sprintf("patch_%d_verts", cellID), mesh.VertexBytes(),
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("patch: cell %d: %w", cellID, err)
	}
	idxBuf, err := b.createAndUploadBuffer(fmt.Sprintf("patch_%d_indices", cellID), mesh.IndexBytes(),
		gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
	if err != nil {
		b.device.DestroyBuffer(vertBuf)
		return nil, fmt.Errorf("patch: cell %d: %w", cellID, err)
	}

	device := b.device
	res := Resources{
		VertexBuffer: vertBuf,
		IndexBuffer:  idxBuf,
		VertexCount:  uint32(mesh.VertexCount()), //nolint:gosec // bounded by maxResolution
		IndexCount:   uint32(len(mesh.Indices)),  //nolint:gosec // bounded by maxResolution
		Bounds:       mesh.Bounds,
		Material:     level.Material,
	}
	return New(cellID, res, func() {
		device.DestroyBuffer(idxBuf)
		device.DestroyBuffer(vertBuf)
	}), nil
}

// createAndUploadBuffer creates a GPU buffer and uploads data.
func (b *HALBuilder) createAndUploadBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	b.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}
