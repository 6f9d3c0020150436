package patch

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// frameTimeout bounds the wait for a submitted frame.
const frameTimeout = 5 * time.Second

// PassRecorder issues patch draw calls into an open HAL render pass.
//
// The caller owns the pass and its pipeline state; PassRecorder only binds
// each patch's buffers and records one indexed draw. It is not safe for
// concurrent use, matching the render pass it wraps.
type PassRecorder struct {
	pass      hal.RenderPassEncoder
	draws     int
	triangles int
}

// NewPassRecorder wraps pass.
func NewPassRecorder(pass hal.RenderPassEncoder) *PassRecorder {
	return &PassRecorder{pass: pass}
}

// IssueDraw records one indexed draw of p and returns the number of
// triangles submitted. Nil, destroyed and empty patches record nothing.
func (r *PassRecorder) IssueDraw(p *Patch) int {
	if p == nil || p.Destroyed() {
		return 0
	}
	res := p.res
	if res.IndexCount == 0 || res.VertexBuffer == nil || res.IndexBuffer == nil {
		return 0
	}

	r.pass.SetVertexBuffer(0, res.VertexBuffer, 0)
	r.pass.SetIndexBuffer(res.IndexBuffer, gputypes.IndexFormatUint32, 0)
	r.pass.DrawIndexed(res.IndexCount, 1, 0, 0, 0)

	tris := p.TriangleCount()
	r.draws++
	r.triangles += tris
	return tris
}

// Draws returns the number of draw calls recorded so far.
func (r *PassRecorder) Draws() int { return r.draws }

// Triangles returns the number of triangles recorded so far.
func (r *PassRecorder) Triangles() int { return r.triangles }

// FrameStats summarizes one recorded frame.
type FrameStats struct {
	Draws     int
	Triangles int
}

// RecordFrame encodes a single render pass, lets record fill it through a
// PassRecorder, then submits the commands and waits for the GPU.
//
// The pass has no attachments bound; a windowed host supplies its own pass
// and uses NewPassRecorder directly.
func RecordFrame(device hal.Device, queue hal.Queue, label string, record func(*PassRecorder)) (FrameStats, error) {
	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: label + "_encoder",
	})
	if err != nil {
		return FrameStats{}, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return FrameStats{}, fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: label + "_pass",
	})
	rec := NewPassRecorder(rp)
	if record != nil {
		record(rec)
	}
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return FrameStats{}, fmt.Errorf("end encoding: %w", err)
	}
	defer device.FreeCommandBuffer(cmdBuf)

	fence, err := device.CreateFence()
	if err != nil {
		return FrameStats{}, fmt.Errorf("create fence: %w", err)
	}
	defer device.DestroyFence(fence)

	if err := queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return FrameStats{}, fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := device.Wait(fence, 1, frameTimeout)
	if err != nil || !fenceOK {
		return FrameStats{}, fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}

	return FrameStats{Draws: rec.Draws(), Triangles: rec.Triangles()}, nil
}
