package patch

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/patchstream/content"
	"github.com/gogpu/patchstream/spatial"
)

// VertexStride is the size in bytes of one terrain vertex:
// position (3 x f32) followed by normal (3 x f32).
const VertexStride = 24

// maxResolution keeps index counts well inside uint32.
const maxResolution = 1024

// ErrInvalidResolution is returned for grid resolutions outside [1, 1024].
var ErrInvalidResolution = errors.New("patch: invalid grid resolution")

// Mesh is CPU-side terrain geometry for one cell.
type Mesh struct {
	// Vertices holds VertexStride/4 floats per vertex.
	Vertices []float32
	Indices  []uint32
	Bounds   spatial.AABB
}

// VertexCount returns the number of vertices.
func (m Mesh) VertexCount() int {
	return len(m.Vertices) / (VertexStride / 4)
}

// BuildTerrainMesh samples the level heightmap over the XZ extent of bounds
// on a (resolution+1) x (resolution+1) vertex grid and triangulates it with
// counter-clockwise winding seen from +Y.
func BuildTerrainMesh(level *content.Level, bounds spatial.AABB, resolution int) (Mesh, error) {
	if resolution < 1 || resolution > maxResolution {
		return Mesh{}, fmt.Errorf("%w: %d", ErrInvalidResolution, resolution)
	}

	side := resolution + 1
	size := bounds.Size()
	stepX := size[0] / float32(resolution)
	stepZ := size[2] / float32(resolution)

	verts := make([]float32, 0, side*side*6)
	minY, maxY := float32(math.Inf(1)), float32(math.Inf(-1))
	for j := 0; j < side; j++ {
		z := bounds.Min[2] + float32(j)*stepZ
		for i := 0; i < side; i++ {
			x := bounds.Min[0] + float32(i)*stepX
			y := level.HeightAt(x, z)

			// Central differences over one grid step.
			dx := level.HeightAt(x+stepX, z) - level.HeightAt(x-stepX, z)
			dz := level.HeightAt(x, z+stepZ) - level.HeightAt(x, z-stepZ)
			n := mgl32.Vec3{-dx / (2 * stepX), 1, -dz / (2 * stepZ)}.Normalize()

			verts = append(verts, x, y, z, n[0], n[1], n[2])
			minY = min(minY, y)
			maxY = max(maxY, y)
		}
	}

	indices := make([]uint32, 0, resolution*resolution*6)
	for j := 0; j < resolution; j++ {
		for i := 0; i < resolution; i++ {
			i0 := uint32(j*side + i) //nolint:gosec // bounded by maxResolution
			i1 := i0 + 1
			i2 := i0 + uint32(side) //nolint:gosec // bounded by maxResolution
			i3 := i2 + 1
			indices = append(indices, i0, i2, i1, i1, i2, i3)
		}
	}

	return Mesh{
		Vertices: verts,
		Indices:  indices,
		Bounds: spatial.AABB{
			Min: mgl32.Vec3{bounds.Min[0], minY, bounds.Min[2]},
			Max: mgl32.Vec3{bounds.Max[0], maxY, bounds.Max[2]},
		},
	}, nil
}

// VertexBytes returns the vertex data as little-endian bytes for upload.
func (m Mesh) VertexBytes() []byte {
	out := make([]byte, len(m.Vertices)*4)
	for i, f := range m.Vertices {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// IndexBytes returns the index data as little-endian bytes for upload.
func (m Mesh) IndexBytes() []byte {
	out := make([]byte, len(m.Indices)*4)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint32(out[i*4:], idx)
	}
	return out
}
