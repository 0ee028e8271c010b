package link

import (
	"sort"

	"github.com/arl/gogeo/f32/d3"

	"github.com/arl/archipelago/bvh"
	"github.com/arl/archipelago/geom"
	"github.com/arl/archipelago/idtable"
	"github.com/arl/archipelago/navref"
)

// AnimationLinkKind is the user-supplied tag carried by an animation link's
// traversal (e.g. "jump-down", "ladder"), opaque to pathfinding.
type AnimationLinkKind string

// AnimationLinkDecl is the user-declared off-mesh connection: two edges in
// world space, a traversal cost, a kind, and whether it can be walked in
// both directions (spec §3, §4.6).
type AnimationLinkDecl struct {
	Start, End    geom.Edge
	Cost          float32
	Kind          AnimationLinkKind
	Bidirectional bool
}

// NodePortal is the node and interval of an animation link edge that falls
// on one real polygon (spec §3: "each portal records the interval of the
// original edge and the node it belongs to").
type NodePortal struct {
	Node     navref.Node
	TMin, TMax float32 // interval on the original edge, in [0,1]
}

// AnimationLinkState mirrors a resolved animation link at runtime: the node
// portals found on each side (spec §4.6, kept sorted by interval).
type AnimationLinkState struct {
	Decl               AnimationLinkDecl
	StartPortals, EndPortals []NodePortal
}

// Usable reports whether both sides resolved to at least one portal (spec
// §4.6: "the link is considered usable if both sides have >= 1 portal").
func (s *AnimationLinkState) Usable() bool {
	return len(s.StartPortals) > 0 && len(s.EndPortals) > 0
}

// PolygonTriangleFan is a polygon's vertices in world space, used to clip
// an animation-link edge the same way §4.1's triangle clip works: a fan of
// triangles from the polygon's centroid.
type PolygonTriangleFan struct {
	Node     navref.Node
	Centroid d3.Vec3
	Bounds   geom.Bbox
	Verts    []d3.Vec3 // world-space, CCW
}

// ResolveAnimationLink snaps decl's two edges onto the polygons in tree,
// producing sorted, possibly-disjoint node portals on each side (spec
// §4.6). maxVerticalDistance bounds how far above/below the polygon plane
// the edge may sit and still count as resolved.
func ResolveAnimationLink(decl AnimationLinkDecl, tree *bvh.Tree, maxVerticalDistance float32) *AnimationLinkState {
	state := &AnimationLinkState{Decl: decl}
	state.StartPortals = resolveEdge(decl.Start, tree, maxVerticalDistance)
	state.EndPortals = resolveEdge(decl.End, tree, maxVerticalDistance)
	return state
}

func resolveEdge(e geom.Edge, tree *bvh.Tree, maxVerticalDistance float32) []NodePortal {
	q := geom.Bbox{Min: e.A, Max: e.A}
	q.ExpandPoint(e.B)

	var portals []NodePortal
	tree.QueryBox(q, func(p bvh.Payload) {
		fan := p.(PolygonTriangleFan)
		n := len(fan.Verts)
		for i := 0; i < n; i++ {
			tri := geom.Triangle{A: fan.Centroid, B: fan.Verts[i], C: fan.Verts[(i+1)%n]}
			ov, ok := geom.ClipEdgeToTriangle(e, tri, maxVerticalDistance)
			if !ok {
				continue
			}
			portals = append(portals, NodePortal{Node: fan.Node, TMin: ov.TMin, TMax: ov.TMax})
		}
	})

	sort.Slice(portals, func(i, j int) bool { return portals[i].TMin < portals[j].TMin })
	return portals
}

// AnimationEdge is a single usable traversal produced by pairing a start
// portal with an end portal; the pathfinder treats each like a boundary
// link with an extra (link id, portal indices) tag (spec §4.6, §9:
// "searching over (start_portal, end_portal) pairs, bounded by small k").
type AnimationEdge struct {
	LinkID              idtable.ID
	From, To            navref.Node
	PortalA, PortalB    d3.Vec3
	Cost                float32
	Kind                AnimationLinkKind
	StartPortal, EndPortal int
}

// Traversals enumerates the usable (start portal, end portal) pairs for a
// resolved animation link, favoring interval-overlapping pairs when any
// exist (closer to what the original edge geometry actually connects) and
// falling back to the full cross product otherwise.
func Traversals(id idtable.ID, state *AnimationLinkState) []AnimationEdge {
	if !state.Usable() {
		return nil
	}
	var out []AnimationEdge
	overlapping := false
	for si, sp := range state.StartPortals {
		for ei, ep := range state.EndPortals {
			if intervalsOverlap(sp, ep) {
				overlapping = true
				out = append(out, animEdge(id, state, si, ei))
			}
		}
	}
	if !overlapping {
		out = out[:0]
		for si := range state.StartPortals {
			for ei := range state.EndPortals {
				out = append(out, animEdge(id, state, si, ei))
			}
		}
	}
	if state.Decl.Bidirectional {
		n := len(out)
		for i := 0; i < n; i++ {
			fwd := out[i]
			out = append(out, AnimationEdge{
				LinkID: id, From: fwd.To, To: fwd.From,
				PortalA: fwd.PortalB, PortalB: fwd.PortalA,
				Cost: fwd.Cost, Kind: fwd.Kind,
				StartPortal: fwd.EndPortal, EndPortal: fwd.StartPortal,
			})
		}
	}
	return out
}

func animEdge(id idtable.ID, state *AnimationLinkState, si, ei int) AnimationEdge {
	sp := state.StartPortals[si]
	ep := state.EndPortals[ei]
	a := lerpEdge(state.Decl.Start, (sp.TMin+sp.TMax)/2)
	b := lerpEdge(state.Decl.End, (ep.TMin+ep.TMax)/2)
	return AnimationEdge{
		LinkID: id, From: sp.Node, To: ep.Node,
		PortalA: a, PortalB: b,
		Cost: state.Decl.Cost, Kind: state.Decl.Kind,
		StartPortal: si, EndPortal: ei,
	}
}

func intervalsOverlap(a, b NodePortal) bool {
	return a.TMin <= b.TMax && b.TMin <= a.TMax
}

func lerpEdge(e geom.Edge, t float32) d3.Vec3 {
	return e.A.Add(e.B.Sub(e.A).Scale(t))
}
