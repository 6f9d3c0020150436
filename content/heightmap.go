package content

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDimensions is returned for heightmaps with a side shorter
	// than two samples.
	ErrInvalidDimensions = errors.New("content: heightmap needs at least 2x2 samples")

	// ErrSampleCount is returned when the sample slice does not match the
	// heightmap dimensions.
	ErrSampleCount = errors.New("content: sample count does not match dimensions")
)

// Heightmap is a regular grid of normalized heights in [0, 1], stored row by
// row along Z.
type Heightmap struct {
	width, depth int
	samples      []float32
}

// NewHeightmap wraps samples as a width x depth heightmap. Samples are
// clamped to [0, 1]. The slice is copied.
func NewHeightmap(width, depth int, samples []float32) (*Heightmap, error) {
	if width < 2 || depth < 2 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, depth)
	}
	if len(samples) != width*depth {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSampleCount, len(samples), width*depth)
	}

	s := make([]float32, len(samples))
	for i, v := range samples {
		s[i] = min(max(v, 0), 1)
	}
	return &Heightmap{width: width, depth: depth, samples: s}, nil
}

// Width returns the number of samples along X.
func (h *Heightmap) Width() int { return h.width }

// Depth returns the number of samples along Z.
func (h *Heightmap) Depth() int { return h.depth }

// At returns the sample at grid position (x, z), clamped to the grid.
func (h *Heightmap) At(x, z int) float32 {
	x = min(max(x, 0), h.width-1)
	z = min(max(z, 0), h.depth-1)
	return h.samples[z*h.width+x]
}

// Sample returns the bilinearly interpolated height at normalized
// coordinates u, v in [0, 1]. Coordinates outside the range are clamped.
func (h *Heightmap) Sample(u, v float32) float32 {
	u = min(max(u, 0), 1)
	v = min(max(v, 0), 1)

	fx := u * float32(h.width-1)
	fz := v * float32(h.depth-1)
	x0, z0 := int(fx), int(fz)
	tx, tz := fx-float32(x0), fz-float32(z0)

	a := h.At(x0, z0)
	b := h.At(x0+1, z0)
	c := h.At(x0, z0+1)
	d := h.At(x0+1, z0+1)

	top := a + (b-a)*tx
	bottom := c + (d-c)*tx
	return top + (bottom-top)*tz
}

// Samples returns a copy of the raw samples.
func (h *Heightmap) Samples() []float32 {
	out := make([]float32, len(h.samples))
	copy(out, h.samples)
	return out
}
