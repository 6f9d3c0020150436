// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package patch builds and draws render-ready terrain patches: one bundle of
// GPU geometry per spatial cell.
//
// A Patch owns its GPU buffers. There is no finalizer: whoever removes a
// patch from the streaming cache must call Destroy, and Destroy releases the
// buffers exactly once no matter how often it is called.
package patch

import (
	"sync/atomic"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/patchstream/content"
	"github.com/gogpu/patchstream/spatial"
)

// Resources is the GPU-side content of a patch.
type Resources struct {
	VertexBuffer hal.Buffer
	IndexBuffer  hal.Buffer
	VertexCount  uint32
	IndexCount   uint32

	// Bounds is the world box of the geometry, including its real height
	// range.
	Bounds spatial.AABB

	// Material is shared with every other patch of the level and is not
	// released with the patch.
	Material *content.Material
}

// Patch is the render-ready geometry of one cell.
//
// Thread safety: accessors are safe for concurrent use. Destroy is safe to
// call concurrently; exactly one call releases the resources.
type Patch struct {
	cellID    int
	res       Resources
	release   func()
	destroyed atomic.Bool
}

// New creates a patch for cellID. release is called exactly once by the
// first Destroy and may be nil.
func New(cellID int, res Resources, release func()) *Patch {
	return &Patch{cellID: cellID, res: res, release: release}
}

// CellID returns the id of the cell this patch was built for.
func (p *Patch) CellID() int {
	return p.cellID
}

// Resources returns the patch's GPU resources.
func (p *Patch) Resources() Resources {
	return p.res
}

// TriangleCount returns the number of indexed triangles in the patch.
func (p *Patch) TriangleCount() int {
	return int(p.res.IndexCount / 3)
}

// Destroy releases the patch's GPU resources. Only the first call has an
// effect; it returns true for that call and false afterwards.
func (p *Patch) Destroy() bool {
	if !p.destroyed.CompareAndSwap(false, true) {
		return false
	}
	if p.release != nil {
		p.release()
	}
	return true
}

// Destroyed reports whether Destroy has been called.
func (p *Patch) Destroyed() bool {
	return p.destroyed.Load()
}
