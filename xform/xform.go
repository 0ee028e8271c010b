// Package xform implements the rigid placement of an island's local-frame
// mesh into the archipelago's shared world, and the coordinate abstraction
// between user space and the internal walkable-XY/up-Z frame (spec §3
// island transform, §6 coordinate abstraction).
package xform

import (
	"github.com/arl/gogeo/f32/d3"
	"github.com/arl/math32"
)

// Transform places an island's local mesh into the archipelago's internal
// world frame: a rotation about the up axis (Z) followed by a translation.
// Internally, Z is always up and XY the walkable plane (spec §3), so only a
// single yaw angle is needed regardless of which CoordinateSystem the
// caller uses at the boundary.
type Transform struct {
	Position d3.Vec3
	Yaw      float32 // radians, rotation about +Z
}

// Identity returns the transform that leaves points unchanged.
func Identity() Transform { return Transform{} }

// Point maps a local-frame point into world space.
func (t Transform) Point(p d3.Vec3) d3.Vec3 {
	s, c := math32.Sin(t.Yaw), math32.Cos(t.Yaw)
	return d3.NewVec3XYZ(
		p[0]*c-p[1]*s+t.Position[0],
		p[0]*s+p[1]*c+t.Position[1],
		p[2]+t.Position[2],
	)
}

// Bounds maps a local-frame axis-aligned box into world space by
// transforming all eight corners and re-enclosing them (rotation
// invalidates axis-alignment, so the result is conservative, not tight).
func (t Transform) Bounds(min, max d3.Vec3) (wmin, wmax d3.Vec3) {
	corners := [8]d3.Vec3{
		d3.NewVec3XYZ(min[0], min[1], min[2]),
		d3.NewVec3XYZ(max[0], min[1], min[2]),
		d3.NewVec3XYZ(min[0], max[1], min[2]),
		d3.NewVec3XYZ(max[0], max[1], min[2]),
		d3.NewVec3XYZ(min[0], min[1], max[2]),
		d3.NewVec3XYZ(max[0], min[1], max[2]),
		d3.NewVec3XYZ(min[0], max[1], max[2]),
		d3.NewVec3XYZ(max[0], max[1], max[2]),
	}
	wmin = t.Point(corners[0])
	wmax = wmin
	for _, c := range corners[1:] {
		wp := t.Point(c)
		for i := 0; i < 3; i++ {
			if wp[i] < wmin[i] {
				wmin[i] = wp[i]
			}
			if wp[i] > wmax[i] {
				wmax[i] = wp[i]
			}
		}
	}
	return wmin, wmax
}

// CoordinateSystem converts between a caller's coordinate frame and the
// internal frame (spec §6). Two canonical modes are provided; a caller
// using neither implements the interface directly.
type CoordinateSystem interface {
	// ToInternal converts a user-space point into the internal frame.
	ToInternal(user d3.Vec3) d3.Vec3
	// FromInternal converts an internal-frame point back into user space.
	FromInternal(internal d3.Vec3) d3.Vec3
}

// ThreeD is the 3D coordinate system: user X->X, Y->Z (up), Z->-Y (forward).
type ThreeD struct{}

func (ThreeD) ToInternal(u d3.Vec3) d3.Vec3 {
	return d3.NewVec3XYZ(u[0], -u[2], u[1])
}

func (ThreeD) FromInternal(i d3.Vec3) d3.Vec3 {
	return d3.NewVec3XYZ(i[0], i[2], -i[1])
}

// TwoD is the 2D coordinate system: user XY maps straight onto internal
// XY, with Z always 0.
type TwoD struct{}

func (TwoD) ToInternal(u d3.Vec3) d3.Vec3 {
	return d3.NewVec3XYZ(u[0], u[1], 0)
}

func (TwoD) FromInternal(i d3.Vec3) d3.Vec3 {
	return d3.NewVec3XYZ(i[0], i[1], 0)
}
