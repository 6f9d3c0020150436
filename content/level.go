package content

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/patchstream/spatial"
)

var (
	// ErrNoHeightmap is returned when a level is created without terrain.
	ErrNoHeightmap = errors.New("content: level has no heightmap")

	// ErrUnknownFormat is returned by Open for unrecognized file extensions.
	ErrUnknownFormat = errors.New("content: unknown heightmap format")
)

// Level is the shared content handle passed to every patch build.
// It is immutable and safe for concurrent reads.
type Level struct {
	Name string

	// Bounds is the world box the heightmap is stretched over. Height 0
	// maps to Bounds.Min.Y and height 1 to Bounds.Max.Y.
	Bounds spatial.AABB

	Heights *Heightmap

	// Material may be nil for levels that are built without shading, such
	// as in tests.
	Material *Material
}

// NewLevel validates and assembles a level.
func NewLevel(name string, bounds spatial.AABB, heights *Heightmap, material *Material) (*Level, error) {
	if heights == nil {
		return nil, ErrNoHeightmap
	}
	if bounds.Empty() {
		return nil, fmt.Errorf("content: level %q: %w", name, spatial.ErrEmptyBounds)
	}
	return &Level{Name: name, Bounds: bounds, Heights: heights, Material: material}, nil
}

// HeightAt returns the terrain height in world units at world position (x, z).
func (l *Level) HeightAt(x, z float32) float32 {
	size := l.Bounds.Size()
	u := (x - l.Bounds.Min[0]) / size[0]
	v := (z - l.Bounds.Min[2]) / size[2]
	return l.Bounds.Min[1] + l.Heights.Sample(u, v)*size[1]
}

// Open reads a heightmap file. ".png", ".jpg" and ".jpeg" files are decoded
// as images; ".hmap" and ".zst" files are read as raw zstd streams.
func Open(path string) (*Heightmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("content: open heightmap: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
		return DecodeImage(f)
	case ".hmap", ".zst":
		return ReadRaw(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Ext(path))
	}
}
