// Package navmesh implements nav-mesh validation: it takes a raw polygon
// soup and derives the per-polygon edge connectivity, boundary edges,
// centers and bounds a ValidatedMesh needs (spec §3, §4.3). Validation is a
// pure function; a ValidatedMesh is immutable and safe to share by
// reference across islands (spec §4.4, §9).
package navmesh

import (
	"github.com/arl/gogeo/f32/d3"
	"github.com/arl/math32"

	"github.com/arl/archipelago/geom"
)

const planarTolerance = 1e-3
const areaEpsilon = 1e-6

// RawMesh is the input to Validate: an unvalidated polygon soup in an
// island's local frame.
type RawMesh struct {
	Vertices         []d3.Vec3
	Polygons         [][]int
	PolygonTypeIndex []int // len(Polygons); 0 = default type
	// HeightMesh optionally provides a finer triangle fan per polygon for
	// accurate height sampling (spec §3). May be nil.
	HeightMesh []HeightPolygon
}

// HeightPolygon is a triangle fan (apex + rim vertex indices into the same
// RawMesh.Vertices) used to resolve Z more accurately than the coarse
// polygon plane.
type HeightPolygon struct {
	Apex int
	Rim  []int
}

// Connection describes one polygon edge's neighbor across that edge.
type Connection struct {
	Polygon int
	Edge    int
	Cost    float32
}

// Polygon is one validated, convex, CCW, coplanar face with its derived
// per-edge connectivity.
type Polygon struct {
	Verts       []int        // indices into ValidatedMesh.Vertices
	TypeIndex   int
	Connections []*Connection // len(Verts); nil entry = boundary edge
	Centroid    d3.Vec3
	Bounds      geom.Bbox
	Area        float32
}

// BoundaryEdge identifies one polygon edge with no connectivity partner.
type BoundaryEdge struct {
	Polygon int
	Edge    int
}

// ValidatedMesh is the immutable, shareable output of Validate.
type ValidatedMesh struct {
	Vertices      []d3.Vec3
	Polygons      []Polygon
	BoundaryEdges []BoundaryEdge
	Bounds        geom.Bbox
	HeightMesh    []HeightPolygon
}

// EdgePoints returns the world-local endpoints of polygon p's edge i (the
// segment from vertex i to vertex i+1, wrapping).
func (m *ValidatedMesh) EdgePoints(p, edge int) (d3.Vec3, d3.Vec3) {
	poly := m.Polygons[p]
	n := len(poly.Verts)
	a := m.Vertices[poly.Verts[edge%n]]
	b := m.Vertices[poly.Verts[(edge+1)%n]]
	return a, b
}

type edgeKey struct{ a, b int }

func makeKey(a, b int) edgeKey {
	if a < b {
		return edgeKey{a, b}
	}
	return edgeKey{b, a}
}

type edgeRef struct {
	poly, edge int
	forward    bool // true if the edge in poly runs a->b in ascending-vertex order
}

// Validate checks a raw polygon soup against the invariants in spec §3 and,
// if it passes, derives per-polygon connectivity, boundary edges, centroids,
// bounds and area (spec §4.3). It never mutates raw.
func Validate(raw RawMesh) (*ValidatedMesh, error) {
	if len(raw.Polygons) == 0 || len(raw.Vertices) == 0 {
		return nil, newErr(EmptyMesh, -1, -1, "mesh has no polygons or vertices")
	}
	if raw.PolygonTypeIndex != nil && len(raw.PolygonTypeIndex) != len(raw.Polygons) {
		return nil, newErr(MismatchedTypeIndex, -1, -1, "len(PolygonTypeIndex) must equal len(Polygons) when provided")
	}

	polys := make([]Polygon, len(raw.Polygons))
	edgeTable := make(map[edgeKey][]edgeRef)

	for pi, verts := range raw.Polygons {
		if len(verts) < 3 {
			return nil, newErr(DegeneratePolygon, pi, -1, "polygon has fewer than 3 vertices")
		}
		for _, vi := range verts {
			if vi < 0 || vi >= len(raw.Vertices) {
				return nil, newErr(IndexOutOfBounds, pi, -1, "vertex index out of range")
			}
		}

		pts := make([]d3.Vec3, len(verts))
		for i, vi := range verts {
			pts[i] = raw.Vertices[vi]
		}

		area2 := geom.SignedArea2D(pts)
		if math32.Abs(area2) < areaEpsilon {
			return nil, newErr(DegeneratePolygon, pi, -1, "zero-area polygon")
		}
		if area2 < 0 {
			return nil, newErr(NonCCW, pi, -1, "polygon vertices are not wound counter-clockwise")
		}

		if !isConvex(pts) {
			return nil, newErr(NonConvex, pi, -1, "polygon is not convex")
		}
		if !isCoplanar(pts) {
			return nil, newErr(NonCoplanar, pi, -1, "polygon vertices are not coplanar")
		}

		typeIdx := 0
		if pi < len(raw.PolygonTypeIndex) {
			typeIdx = raw.PolygonTypeIndex[pi]
		}

		bounds := geom.EmptyBbox()
		centroid := d3.NewVec3XYZ(0, 0, 0)
		for _, p := range pts {
			bounds.ExpandPoint(p)
			centroid = centroid.Add(p)
		}
		centroid = centroid.Scale(1.0 / float32(len(pts)))

		polys[pi] = Polygon{
			Verts:       append([]int(nil), verts...),
			TypeIndex:   typeIdx,
			Connections: make([]*Connection, len(verts)),
			Centroid:    centroid,
			Bounds:      bounds,
			Area:        area2 / 2,
		}

		for ei := 0; ei < len(verts); ei++ {
			a := verts[ei]
			b := verts[(ei+1)%len(verts)]
			k := makeKey(a, b)
			edgeTable[k] = append(edgeTable[k], edgeRef{poly: pi, edge: ei, forward: a < b})
		}
	}

	usedVerts := make([]bool, len(raw.Vertices))
	for _, p := range raw.Polygons {
		for _, vi := range p {
			usedVerts[vi] = true
		}
	}
	for _, used := range usedVerts {
		if !used {
			return nil, newErr(IndexOutOfBounds, -1, -1, "unused vertex in mesh")
		}
	}

	var boundaries []BoundaryEdge
	for _, refs := range edgeTable {
		switch len(refs) {
		case 1:
			r := refs[0]
			boundaries = append(boundaries, BoundaryEdge{Polygon: r.poly, Edge: r.edge})
		case 2:
			r0, r1 := refs[0], refs[1]
			if r0.forward == r1.forward {
				return nil, newErr(NonManifoldEdge, r0.poly, r0.edge,
					"edge shared by two polygons with the same winding direction")
			}
			connect(raw.Vertices, &polys, r0, r1)
		default:
			return nil, newErr(NonManifoldEdge, refs[0].poly, refs[0].edge,
				"edge shared by more than two polygons")
		}
	}

	meshBounds := geom.EmptyBbox()
	for _, p := range polys {
		meshBounds = geom.Union(meshBounds, p.Bounds)
	}

	return &ValidatedMesh{
		Vertices:      append([]d3.Vec3(nil), raw.Vertices...),
		Polygons:      polys,
		BoundaryEdges: boundaries,
		Bounds:        meshBounds,
		HeightMesh:    raw.HeightMesh,
	}, nil
}

// connect fills in the mutual connectivity record for the interior edge
// shared by r0 and r1. The traversal cost is the geometric distance
// centroid->edge-midpoint->centroid (spec §4.3 step 4, matching the
// boundary-link builder's own centroid->portal-midpoint->centroid
// convention at link/boundary.go); node-type cost multipliers are applied
// later, once polygons are mapped to an archipelago's registered node
// types, so the cost stored here is the pure geometric component.
func connect(verts []d3.Vec3, polys *[]Polygon, r0, r1 edgeRef) {
	p0 := &(*polys)[r0.poly]
	p1 := &(*polys)[r1.poly]
	cost := geometricEdgeCost(verts, p0, r0.edge, p1)
	p0.Connections[r0.edge] = &Connection{Polygon: r1.poly, Edge: r1.edge, Cost: cost}
	p1.Connections[r1.edge] = &Connection{Polygon: r0.poly, Edge: r0.edge, Cost: cost}
}

func geometricEdgeCost(verts []d3.Vec3, p0 *Polygon, e0 int, p1 *Polygon) float32 {
	n := len(p0.Verts)
	a := verts[p0.Verts[e0%n]]
	b := verts[p0.Verts[(e0+1)%n]]
	mid := a.Add(b).Scale(0.5)
	return p0.Centroid.Dist(mid) + mid.Dist(p1.Centroid)
}

func isConvex(pts []d3.Vec3) bool {
	n := len(pts)
	sign := float32(0)
	for i := 0; i < n; i++ {
		a := pts[i]
		b := pts[(i+1)%n]
		c := pts[(i+2)%n]
		cross := cross2D(b.Sub(a), c.Sub(b))
		if math32.Abs(cross) < 1e-9 {
			continue
		}
		if sign == 0 {
			sign = cross
		} else if (sign > 0) != (cross > 0) {
			return false
		}
	}
	return true
}

func cross2D(a, b d3.Vec3) float32 {
	return a[0]*b[1] - a[1]*b[0]
}

func isCoplanar(pts []d3.Vec3) bool {
	if len(pts) <= 3 {
		return true
	}
	n := bestFitNormal(pts)
	if n.Len() < 1e-12 {
		return false
	}
	n = normalized(n)
	origin := pts[0]
	for _, p := range pts {
		d := math32.Abs(dot3(n, p.Sub(origin)))
		if d > planarTolerance {
			return false
		}
	}
	return true
}

func dot3(a, b d3.Vec3) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// bestFitNormal computes Newell's method normal for a (possibly noisy)
// planar polygon.
func bestFitNormal(pts []d3.Vec3) d3.Vec3 {
	n := d3.NewVec3XYZ(0, 0, 0)
	cnt := len(pts)
	for i := 0; i < cnt; i++ {
		cur := pts[i]
		next := pts[(i+1)%cnt]
		n[0] += (cur[1] - next[1]) * (cur[2] + next[2])
		n[1] += (cur[2] - next[2]) * (cur[0] + next[0])
		n[2] += (cur[0] - next[0]) * (cur[1] + next[1])
	}
	return n
}

func normalized(v d3.Vec3) d3.Vec3 {
	l := v.Len()
	if l < 1e-12 {
		return v
	}
	return v.Scale(1 / l)
}
