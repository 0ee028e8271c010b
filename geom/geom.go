// Package geom implements the low-level 2D/3D edge, triangle and bounding
// box primitives the rest of the archipelago is built on. Everything works
// in the archipelago's internal frame: XY is the walkable plane, Z is up.
package geom

import (
	"math"

	"github.com/arl/gogeo/f32"
	"github.com/arl/gogeo/f32/d3"
	"github.com/arl/math32"
)

// Edge is a line segment between two points in the internal frame.
type Edge struct {
	A, B d3.Vec3
}

// Bbox is an axis-aligned bounding box.
type Bbox struct {
	Min, Max d3.Vec3
}

// EmptyBbox returns an inverted bbox suitable as the identity for Union.
func EmptyBbox() Bbox {
	return Bbox{
		Min: d3.NewVec3XYZ(math.MaxFloat32, math.MaxFloat32, math.MaxFloat32),
		Max: d3.NewVec3XYZ(-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32),
	}
}

// FromPoint returns a degenerate bbox containing a single point.
func FromPoint(p d3.Vec3) Bbox {
	return Bbox{Min: p, Max: p}
}

// ExpandPoint grows b, in place, to contain p.
func (b *Bbox) ExpandPoint(p d3.Vec3) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// Union returns the smallest bbox containing both a and b.
func Union(a, b Bbox) Bbox {
	out := a
	out.ExpandPoint(b.Min)
	out.ExpandPoint(b.Max)
	return out
}

// Inflate returns b grown by r on every axis.
func (b Bbox) Inflate(r float32) Bbox {
	d := d3.NewVec3XYZ(r, r, r)
	return Bbox{Min: b.Min.Sub(d), Max: b.Max.Add(d)}
}

// Overlaps reports whether a and b intersect, including touching.
func (a Bbox) Overlaps(b Bbox) bool {
	for i := 0; i < 3; i++ {
		if a.Min[i] > b.Max[i] || a.Max[i] < b.Min[i] {
			return false
		}
	}
	return true
}

// ContainsPoint reports whether p lies within b (inclusive).
func (b Bbox) ContainsPoint(p d3.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Center returns the bbox midpoint.
func (b Bbox) Center() d3.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// WidestAxis returns the index (0, 1 or 2) of the bbox's longest extent.
func (b Bbox) WidestAxis() int {
	d := b.Max.Sub(b.Min)
	axis := 0
	if d[1] > d[axis] {
		axis = 1
	}
	if d[2] > d[axis] {
		axis = 2
	}
	return axis
}

// perp2D returns the 2D (XY) perpendicular dot product (the Z of the 3D
// cross product), the standard left/right turn test.
func perp2D(a, b d3.Vec3) float32 {
	return a[0]*b[1] - a[1]*b[0]
}

// Overlap is the result of clipping one edge's parameter range against
// another shape: [TMin, TMax] is the surviving sub-interval of the edge, in
// the edge's own parameter space (0 at A, 1 at B).
type Overlap struct {
	TMin, TMax float32
}

// NearCollinearEdges detects two edges that coincide to tolerance in the XY
// plane, even when not exactly shared. It projects each edge onto the
// other, intersects the resulting parameter intervals, and checks that the
// corresponding 3D endpoints are within tolSqr of each other. It returns the
// two overlap endpoints (one per edge) when they match, or ok=false.
//
// This is how two islands whose boundary edges are only approximately
// aligned get stitched together by the link builder (spec §4.1, §4.5).
func NearCollinearEdges(e1, e2 Edge, tolSqr float32) (p1, p2 d3.Vec3, ok bool) {
	d1 := e1.B.Sub(e1.A)
	d2 := e2.B.Sub(e2.A)

	len1Sqr := d1.Dot2D(d1)
	len2Sqr := d2.Dot2D(d2)
	if len1Sqr < 1e-12 || len2Sqr < 1e-12 {
		return d3.Vec3{}, d3.Vec3{}, false
	}

	// Project e2's endpoints onto e1's parameter space, and vice versa.
	t0 := projectParam(e1, e2.A)
	t1 := projectParam(e1, e2.B)
	if t0 > t1 {
		t0, t1 = t1, t0
	}
	t0 = f32.Clamp(t0, 0, 1)
	t1 = f32.Clamp(t1, 0, 1)

	s0 := projectParam(e2, e1.A)
	s1 := projectParam(e2, e1.B)
	if s0 > s1 {
		s0, s1 = s1, s0
	}
	s0 = f32.Clamp(s0, 0, 1)
	s1 = f32.Clamp(s1, 0, 1)

	// Overlap along e1, in e1's own parameter space.
	lo := math32.Max(0, t0)
	hi := math32.Min(1, t1)
	if lo >= hi {
		return d3.Vec3{}, d3.Vec3{}, false
	}

	a0 := lerp(e1.A, e1.B, lo)
	a1 := lerp(e1.A, e1.B, hi)

	lo2 := math32.Max(0, s0)
	hi2 := math32.Min(1, s1)
	if lo2 >= hi2 {
		return d3.Vec3{}, d3.Vec3{}, false
	}
	b0 := lerp(e2.A, e2.B, lo2)
	b1 := lerp(e2.A, e2.B, hi2)

	// The two edges run in opposite directions when stitching boundary
	// edges (both wound CCW, so shared edges face each other); pair the
	// nearer endpoints.
	d00 := d3.Vec3Dist2DSqr(a0, b0)
	d01 := d3.Vec3Dist2DSqr(a0, b1)
	distSqr := func(a, b d3.Vec3) float32 { d := a.Dist(b); return d * d }
	var m0, m1 d3.Vec3
	if d00 <= d01 {
		if distSqr(a0, b0) > tolSqr || distSqr(a1, b1) > tolSqr {
			return d3.Vec3{}, d3.Vec3{}, false
		}
		m0 = midpoint(a0, b0)
		m1 = midpoint(a1, b1)
	} else {
		if distSqr(a0, b1) > tolSqr || distSqr(a1, b0) > tolSqr {
			return d3.Vec3{}, d3.Vec3{}, false
		}
		m0 = midpoint(a0, b1)
		m1 = midpoint(a1, b0)
	}
	return m0, m1, true
}

func projectParam(e Edge, p d3.Vec3) float32 {
	d := e.B.Sub(e.A)
	lenSqr := d.Dot2D(d)
	if lenSqr < 1e-12 {
		return 0
	}
	w := p.Sub(e.A)
	return w.Dot2D(d) / lenSqr
}

func lerp(a, b d3.Vec3, t float32) d3.Vec3 {
	return a.Add(b.Sub(a).Scale(t))
}

func midpoint(a, b d3.Vec3) d3.Vec3 {
	return a.Add(b).Scale(0.5)
}

// Triangle is three points in the internal frame, CCW as seen from +Z.
type Triangle struct {
	A, B, C d3.Vec3
}

// ClipEdgeToTriangle clips an edge's parameter range to the part that lies
// within the triangle's XY footprint, via three perp-dot half-plane tests
// (Liang-Barsky style), and further narrows the range so that the vertical
// (Z) distance between the edge and the triangle's plane stays below
// maxVerticalDistance across the whole retained range. It returns the final
// [tMin, tMax] in the edge's own parameter space, or ok=false if nothing
// survives.
func ClipEdgeToTriangle(e Edge, tri Triangle, maxVerticalDistance float32) (ov Overlap, ok bool) {
	tMin, tMax := float32(0), float32(1)
	d := e.B.Sub(e.A)

	verts := [3]d3.Vec3{tri.A, tri.B, tri.C}
	for i := 0; i < 3; i++ {
		p0 := verts[i]
		p1 := verts[(i+1)%3]
		edge := p1.Sub(p0)
		// Inward normal test via perp dot: points strictly inside have a
		// positive perp2D(edge, point-p0) for a CCW triangle.
		num := perp2D(edge, p0.Sub(e.A))
		den := perp2D(edge, d)
		if math32.Abs(den) < 1e-9 {
			// Edge parallel to this triangle edge: reject if outside.
			if num > 0 {
				return Overlap{}, false
			}
			continue
		}
		t := num / den
		if den > 0 {
			if t > tMax {
				return Overlap{}, false
			}
			if t > tMin {
				tMin = t
			}
		} else {
			if t < tMin {
				return Overlap{}, false
			}
			if t < tMax {
				tMax = t
			}
		}
	}
	if tMin >= tMax {
		return Overlap{}, false
	}

	// Narrow further by vertical distance to the triangle's plane, sampled
	// at both ends of the surviving range (the plane and the edge are both
	// affine in t, so the gate is monotonic/linear between them; sampling
	// the endpoints is sufficient and matches the teacher's edge-vs-plane
	// clipping in detour/mesh.go's closestHeight helpers).
	n := planeNormal(tri)
	if n[2] == 0 {
		return Overlap{}, false
	}
	planeZ := func(p d3.Vec3) float32 {
		// Solve n . (p - tri.A) = 0 for z.
		return tri.A[2] - (n[0]*(p[0]-tri.A[0])+n[1]*(p[1]-tri.A[1]))/n[2]
	}
	for _, t := range []float32{tMin, tMax} {
		p := lerp(e.A, e.B, t)
		if math32.Abs(p[2]-planeZ(p)) > maxVerticalDistance {
			return narrowByVertical(e, tri, maxVerticalDistance, tMin, tMax)
		}
	}
	return Overlap{TMin: tMin, TMax: tMax}, true
}

// narrowByVertical samples [tMin, tMax] at 17 evenly spaced parameters and
// returns the span from the first to the last sample where the vertical gate
// holds, for when it doesn't hold uniformly across the range.
func narrowByVertical(e Edge, tri Triangle, maxVerticalDistance, tMin, tMax float32) (Overlap, bool) {
	n := planeNormal(tri)
	planeZ := func(p d3.Vec3) float32 {
		return tri.A[2] - (n[0]*(p[0]-tri.A[0])+n[1]*(p[1]-tri.A[1]))/n[2]
	}
	ok := func(t float32) bool {
		p := lerp(e.A, e.B, t)
		return math32.Abs(p[2]-planeZ(p)) <= maxVerticalDistance
	}
	const steps = 16
	lo, hi := tMin, tMax
	var lastGood float32 = -1
	var firstGood float32 = -1
	for i := 0; i <= steps; i++ {
		t := lo + (hi-lo)*float32(i)/float32(steps)
		if ok(t) {
			if firstGood < 0 {
				firstGood = t
			}
			lastGood = t
		}
	}
	if firstGood < 0 {
		return Overlap{}, false
	}
	return Overlap{TMin: firstGood, TMax: lastGood}, firstGood < lastGood
}

func planeNormal(tri Triangle) d3.Vec3 {
	u := tri.B.Sub(tri.A)
	v := tri.C.Sub(tri.A)
	return d3.NewVec3XYZ(
		u[1]*v[2]-u[2]*v[1],
		u[2]*v[0]-u[0]*v[2],
		u[0]*v[1]-u[1]*v[0],
	)
}

// SignedArea2D returns twice the signed area of the polygon (triangle-fan
// style, works for any vertex count) in the XY plane. Positive for CCW
// winding.
func SignedArea2D(pts []d3.Vec3) float32 {
	var area float32
	for i := 1; i+1 < len(pts); i++ {
		area += perp2D(pts[i].Sub(pts[0]), pts[i+1].Sub(pts[0]))
	}
	return area
}

// PointInPolygon2D reports whether p lies within the (convex or concave)
// polygon pts when both are projected to XY, using a winding/crossing test.
func PointInPolygon2D(p d3.Vec3, pts []d3.Vec3) bool {
	inside := false
	n := len(pts)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := pts[i], pts[j]
		if ((vi[1] > p[1]) != (vj[1] > p[1])) &&
			(p[0] < (vj[0]-vi[0])*(p[1]-vi[1])/(vj[1]-vi[1])+vi[0]) {
			inside = !inside
		}
	}
	return inside
}
