package spatial

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// maxDepth bounds subdivision regardless of the requested leaf size.
const maxDepth = 12

var (
	// ErrEmptyBounds is returned when the world bounds have no XZ area.
	ErrEmptyBounds = errors.New("spatial: empty world bounds")

	// ErrInvalidLeafSize is returned for a non-positive leaf size.
	ErrInvalidLeafSize = errors.New("spatial: leaf size must be positive")
)

// quadNode is a node of a static quadtree over the XZ plane.
// Leaves carry the index of their cell; inner nodes have four children.
type quadNode struct {
	bounds AABB
	depth  int
	child  [4]*quadNode
	cell   int
}

// Quadtree partitions a world box into square-ish leaf cells on the XZ
// plane. Each leaf spans the full Y range of the world.
//
// The tree is built once and is immutable afterwards, so it is safe for
// concurrent use.
type Quadtree struct {
	root  *quadNode
	cells []Cell
}

// NewQuadtree subdivides bounds on X and Z until every leaf is at most
// leafSize wide on both axes (or maxDepth is reached). Leaf ids are assigned
// in depth-first order starting at 0.
func NewQuadtree(bounds AABB, leafSize float32) (*Quadtree, error) {
	if leafSize <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLeafSize, leafSize)
	}
	if bounds.Empty() {
		return nil, ErrEmptyBounds
	}

	q := &Quadtree{}
	q.root = q.build(bounds, 0, leafSize)
	return q, nil
}

func (q *Quadtree) build(b AABB, depth int, leafSize float32) *quadNode {
	n := &quadNode{bounds: b, depth: depth}

	size := b.Size()
	if (size[0] <= leafSize && size[2] <= leafSize) || depth >= maxDepth {
		n.cell = len(q.cells)
		q.cells = append(q.cells, Cell{ID: n.cell, Bounds: b, Center: b.Center()})
		return n
	}

	mx := (b.Min[0] + b.Max[0]) * 0.5
	mz := (b.Min[2] + b.Max[2]) * 0.5
	quads := [4]AABB{
		{Min: b.Min, Max: mgl32.Vec3{mx, b.Max[1], mz}},
		{Min: mgl32.Vec3{mx, b.Min[1], b.Min[2]}, Max: mgl32.Vec3{b.Max[0], b.Max[1], mz}},
		{Min: mgl32.Vec3{b.Min[0], b.Min[1], mz}, Max: mgl32.Vec3{mx, b.Max[1], b.Max[2]}},
		{Min: mgl32.Vec3{mx, b.Min[1], mz}, Max: b.Max},
	}
	for i, qb := range quads {
		n.child[i] = q.build(qb, depth+1, leafSize)
	}
	return n
}

// Bounds returns the world bounds covered by the tree.
func (q *Quadtree) Bounds() AABB {
	return q.root.bounds
}

// Len returns the number of leaf cells.
func (q *Quadtree) Len() int {
	return len(q.cells)
}

// LeafCells returns every leaf cell in id order.
// The returned slice is a copy.
func (q *Quadtree) LeafCells() []Cell {
	out := make([]Cell, len(q.cells))
	copy(out, q.cells)
	return out
}

// Cell returns the leaf cell with the given id.
func (q *Quadtree) Cell(id int) (Cell, bool) {
	if id < 0 || id >= len(q.cells) {
		return Cell{}, false
	}
	return q.cells[id], true
}

// CellsIntersecting returns the leaf cells whose bounds intersect v, in
// depth-first order.
func (q *Quadtree) CellsIntersecting(v Volume) []Cell {
	var out []Cell
	q.query(q.root, v, &out)
	return out
}

func (q *Quadtree) query(n *quadNode, v Volume, out *[]Cell) {
	if !v.IntersectsAABB(n.bounds) {
		return
	}
	if n.child[0] == nil {
		*out = append(*out, q.cells[n.cell])
		return
	}
	for _, c := range n.child {
		q.query(c, v, out)
	}
}
