// Package spatial provides the spatial index the streamer queries for
// visible cells: axis-aligned boxes, view frusta and a static quadtree
// that partitions a world into leaf cells with stable integer ids.
package spatial

import "github.com/go-gl/mathgl/mgl32"

// Volume is a region of space that can be tested against boxes.
// Both AABB and Frustum implement Volume.
type Volume interface {
	IntersectsAABB(b AABB) bool
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max mgl32.Vec3
}

// Box creates an AABB from two corners in any order.
func Box(a, b mgl32.Vec3) AABB {
	return AABB{
		Min: mgl32.Vec3{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2])},
		Max: mgl32.Vec3{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2])},
	}
}

// Center returns the midpoint of the box.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the box extent along each axis.
func (b AABB) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Empty reports whether the box has no volume on the X or Z axis.
func (b AABB) Empty() bool {
	return b.Max[0] <= b.Min[0] || b.Max[2] <= b.Min[2] || b.Max[1] < b.Min[1]
}

// IntersectsAABB reports whether the two boxes overlap. Touching faces count
// as overlap.
func (b AABB) IntersectsAABB(o AABB) bool {
	return b.Min[0] <= o.Max[0] && b.Max[0] >= o.Min[0] &&
		b.Min[1] <= o.Max[1] && b.Max[1] >= o.Min[1] &&
		b.Min[2] <= o.Max[2] && b.Max[2] >= o.Min[2]
}

// Contains reports whether o lies entirely inside b.
func (b AABB) Contains(o AABB) bool {
	return o.Min[0] >= b.Min[0] && o.Max[0] <= b.Max[0] &&
		o.Min[1] >= b.Min[1] && o.Max[1] <= b.Max[1] &&
		o.Min[2] >= b.Min[2] && o.Max[2] <= b.Max[2]
}

// Cell is a leaf region of the spatial index.
type Cell struct {
	// ID is stable for the lifetime of the index and unique per leaf.
	ID     int
	Bounds AABB
	Center mgl32.Vec3
}

// DistanceSq returns the squared distance from p to the cell center.
func (c Cell) DistanceSq(p mgl32.Vec3) float32 {
	d := c.Center.Sub(p)
	return d.Dot(d)
}
