package spatial

import "github.com/go-gl/mathgl/mgl32"

// Plane is a plane in Hessian form: points p with Normal·p + D >= 0 are on
// the inner side.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// Distance returns the signed distance of p from the plane, scaled by the
// length of Normal.
func (p Plane) Distance(v mgl32.Vec3) float32 {
	return p.Normal.Dot(v) + p.D
}

func planeFromRow(r mgl32.Vec4) Plane {
	n := r.Vec3()
	l := n.Len()
	if l == 0 {
		return Plane{Normal: n, D: r[3]}
	}
	return Plane{Normal: n.Mul(1 / l), D: r[3] / l}
}

// Frustum is a camera view volume bounded by six planes
// (left, right, bottom, top, near, far).
type Frustum struct {
	Planes [6]Plane
}

// FrustumFromMatrix extracts the frustum planes from a combined
// projection * view matrix using OpenGL clip conventions (-w <= z <= w).
func FrustumFromMatrix(m mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := m.Row(0), m.Row(1), m.Row(2), m.Row(3)
	return Frustum{Planes: [6]Plane{
		planeFromRow(r3.Add(r0)),
		planeFromRow(r3.Sub(r0)),
		planeFromRow(r3.Add(r1)),
		planeFromRow(r3.Sub(r1)),
		planeFromRow(r3.Add(r2)),
		planeFromRow(r3.Sub(r2)),
	}}
}

// Camera describes a perspective camera.
type Camera struct {
	Eye, Target, Up mgl32.Vec3

	// FovY is the vertical field of view in degrees.
	FovY      float32
	Aspect    float32
	Near, Far float32
}

// ViewProjection returns the combined projection * view matrix.
func (c Camera) ViewProjection() mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(c.FovY), c.Aspect, c.Near, c.Far)
	view := mgl32.LookAtV(c.Eye, c.Target, c.Up)
	return proj.Mul4(view)
}

// Frustum returns the camera's view volume.
func (c Camera) Frustum() Frustum {
	return FrustumFromMatrix(c.ViewProjection())
}

// IntersectsAABB reports whether the box is at least partially inside the
// frustum. The test is conservative: boxes near frustum corners may be
// reported as intersecting although they are outside.
func (f Frustum) IntersectsAABB(b AABB) bool {
	for _, p := range f.Planes {
		// Corner of the box furthest along the plane normal.
		var v mgl32.Vec3
		for i := 0; i < 3; i++ {
			if p.Normal[i] >= 0 {
				v[i] = b.Max[i]
			} else {
				v[i] = b.Min[i]
			}
		}
		if p.Distance(v) < 0 {
			return false
		}
	}
	return true
}
