package archipelago

import (
	"math"

	"github.com/arl/gogeo/f32/d3"
	"github.com/arl/math32"

	"github.com/arl/archipelago/bvh"
	"github.com/arl/archipelago/geom"
	"github.com/arl/archipelago/idtable"
	"github.com/arl/archipelago/navref"
	fpath "github.com/arl/archipelago/path"
)

type polygonSample struct {
	node     navref.Node
	verts    []d3.Vec3 // world frame
	normal   d3.Vec3
	bounds   geom.Bbox
}

func (a *Archipelago) polygonTree() *bvh.Tree {
	var bounds []geom.Bbox
	var payloads []bvh.Payload
	a.islands.Each(func(id idtable.ID, isl *Island) {
		if isl.Mesh == nil {
			return
		}
		for pi, poly := range isl.Mesh.Polygons {
			verts := make([]d3.Vec3, len(poly.Verts))
			for i, vi := range poly.Verts {
				verts[i] = isl.Transform.Point(isl.Mesh.Vertices[vi])
			}
			wmin, wmax := isl.Transform.Bounds(poly.Bounds.Min, poly.Bounds.Max)
			b := geom.Bbox{Min: wmin, Max: wmax}
			bounds = append(bounds, b)
			payloads = append(payloads, polygonSample{
				node:   navref.Node{Island: id, Polygon: pi},
				verts:  verts,
				normal: newellNormal(verts),
				bounds: b,
			})
		}
	})
	return bvh.Build(bounds, payloads)
}

// newellNormal computes a polygon's best-fit plane normal (Newell's
// method), the same approach navmesh.Validate uses to check coplanarity.
func newellNormal(verts []d3.Vec3) d3.Vec3 {
	var nx, ny, nz float32
	n := len(verts)
	for i := 0; i < n; i++ {
		cur := verts[i]
		next := verts[(i+1)%n]
		nx += (cur[1] - next[1]) * (cur[2] + next[2])
		ny += (cur[2] - next[2]) * (cur[0] + next[0])
		nz += (cur[0] - next[0]) * (cur[1] + next[1])
	}
	v := d3.NewVec3XYZ(nx, ny, nz)
	l := v.Dist(d3.NewVec3XYZ(0, 0, 0))
	if l < 1e-9 {
		return d3.NewVec3XYZ(0, 0, 1)
	}
	return v.Scale(1 / l)
}

func planeZAt(s polygonSample, x, y float32) (float32, bool) {
	if math32.Abs(s.normal[2]) < 1e-6 {
		return 0, false
	}
	p0 := s.verts[0]
	z := p0[2] - (s.normal[0]*(x-p0[0])+s.normal[1]*(y-p0[1]))/s.normal[2]
	return z, true
}

// SamplePoint projects point onto the closest usable polygon within dist's
// horizontal/vertical bounds, weighting candidates above the query point
// differently from those below by vertical_preference_ratio (spec §4.13).
// Ties are broken by lower node polygon index.
func (a *Archipelago) SamplePoint(point d3.Vec3, dist PointSampleDistance) (navref.Node, d3.Vec3, Status) {
	if a.navDataDirty {
		return navref.Node{}, d3.Vec3{}, fail(NavDataDirty)
	}

	q := geom.Bbox{Min: point, Max: point}.Inflate(dist.Horizontal)
	q = geom.Bbox{Min: d3.NewVec3XYZ(q.Min[0], q.Min[1], point[2]-dist.Below), Max: d3.NewVec3XYZ(q.Max[0], q.Max[1], point[2]+dist.Above)}

	tree := a.polygonTree()

	var best polygonSample
	var bestPoint d3.Vec3
	bestScore := float32(math.MaxFloat32)
	found := false

	tree.QueryBox(q, func(pl bvh.Payload) {
		s := pl.(polygonSample)
		x, y, horiz := point[0], point[1], float32(0)
		if !geom.PointInPolygon2D(point, s.verts) {
			// Project onto the nearest point of the polygon's boundary.
			horiz = math.MaxFloat32
			for i, va := range s.verts {
				vb := s.verts[(i+1)%len(s.verts)]
				ex, ey := vb[0]-va[0], vb[1]-va[1]
				t := math32.Max(0, math32.Min(1, ((point[0]-va[0])*ex+(point[1]-va[1])*ey)/(ex*ex+ey*ey)))
				cx, cy := va[0]+ex*t, va[1]+ey*t
				if h := math32.Sqrt((cx-point[0])*(cx-point[0]) + (cy-point[1])*(cy-point[1])); h < horiz {
					x, y, horiz = cx, cy, h
				}
			}
			if horiz > dist.Horizontal {
				return
			}
		}
		z, ok := planeZAt(s, x, y)
		if !ok {
			return
		}
		var score float32
		if point[2] >= z {
			if point[2]-z > dist.Above {
				return
			}
			score = point[2] - z
		} else {
			if z-point[2] > dist.Below {
				return
			}
			score = (z - point[2]) * dist.VerticalPreferenceRatio
		}
		score += horiz
		if !found || score < bestScore || (score == bestScore && polygonLess(s.node, best.node)) {
			found = true
			bestScore = score
			best = s
			bestPoint = d3.NewVec3XYZ(x, y, z)
		}
	})

	if !found {
		return navref.Node{}, d3.Vec3{}, fail(OutOfRange)
	}
	return best.node, bestPoint, Success
}

func polygonLess(a, b navref.Node) bool {
	return a.Polygon < b.Polygon
}

// FindPath is the ad-hoc query for callers outside the tick loop: it
// samples both endpoints and plans a path, honoring per-call node-type cost
// overrides (spec §4.13).
func (a *Archipelago) FindPath(start, end d3.Vec3, overrides map[idtable.ID]float32) (*fpath.Path, Status) {
	if a.navDataDirty {
		return nil, fail(NavDataDirty)
	}
	for _, c := range overrides {
		if c <= 0 {
			return nil, fail(NonPositiveNodeTypeCost)
		}
	}

	startNode, _, st := a.SamplePoint(start, a.opts.PointSampleDistance)
	if st.Failed() {
		return nil, st
	}
	endNode, _, st := a.SamplePoint(end, a.opts.PointSampleDistance)
	if st.Failed() {
		return nil, st
	}

	cost := func(island idtable.ID, polygon int) float32 {
		isl, ok := a.islands.Get(island)
		if !ok || isl.Mesh == nil {
			return 1.0
		}
		typeIdx := isl.Mesh.Polygons[polygon].TypeIndex
		nodeType, ok := isl.TypeMap[typeIdx]
		if !ok {
			return 1.0
		}
		if o, ok := overrides[nodeType]; ok {
			return o
		}
		return a.nodeTypeCost(nodeType)
	}

	p, err := fpath.FindPath(a, startNode, endNode, cost)
	if err != nil {
		return nil, fail(NoPathFound)
	}
	return p, Success
}
