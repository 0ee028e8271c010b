// Package path builds the archipelago-specific A* problem (spec §4.8) and
// follows the resulting path with funnel string-pulling (spec §4.9). It sits
// on top of package astar the same way the teacher's crowd.PathCorridor
// sits on top of detour.NavMeshQuery: astar never sees a polygon, path never
// runs a heap itself.
package path

import (
	"github.com/arl/gogeo/f32/d3"

	"github.com/arl/archipelago/astar"
	"github.com/arl/archipelago/idtable"
	"github.com/arl/archipelago/link"
	"github.com/arl/archipelago/navmesh"
	"github.com/arl/archipelago/navref"
)

// World is the read-only view of archipelago state the pathfinder needs:
// island meshes/transforms, the boundary-link store, and resolved
// animation-link traversals. Implemented by the archipelago package.
type World interface {
	Mesh(island idtable.ID) (*navmesh.ValidatedMesh, bool)
	WorldPoint(island idtable.ID, polygon int, local d3.Vec3) d3.Vec3
	EdgePortal(island idtable.ID, polygon, edge int) (d3.Vec3, d3.Vec3)
	IsDirty(island idtable.ID) bool
	Links() *link.Store
	AnimationEdges(from navref.Node) []link.AnimationEdge
}

// CostOverride resolves the per-agent node-type cost override for a
// polygon, falling back to the archipelago's registered cost when the
// agent has none (spec §3, §4.8).
type CostOverride func(island idtable.ID, polygon int) float32

// SegmentKind distinguishes how a Path segment was traversed.
type SegmentKind int

const (
	// IslandSegment is a corridor of polygons within one island.
	IslandSegment SegmentKind = iota
	// BoundaryLinkSegment crosses a boundary link.
	BoundaryLinkSegment
	// AnimationLinkSegment crosses a resolved animation link.
	AnimationLinkSegment
)

// Segment is one piece of a Path: either a polygon corridor within a single
// island, or a single cross-island link traversal (spec §4.8).
type Segment struct {
	Kind SegmentKind

	// IslandSegment fields.
	Island          idtable.ID
	Corridor        []int // polygon indices
	PortalEdgeIndex []int // len(Corridor)-1

	// Link segment fields.
	LinkID      idtable.ID
	From, To    navref.Node
	PortalA, PortalB d3.Vec3
}

// Path is the multi-segment route the pathfinder returns (spec §4.8).
type Path struct {
	Segments []Segment
	Start, Goal navref.Node
	// UsedLinks is every boundary/animation link id the path crosses; the
	// orchestrator drops the path when one of them is removed (spec §4.9).
	UsedLinks []idtable.ID
	// TouchedIslands is every island any segment of the path visits,
	// checked for a dirty flag by IsValid.
	TouchedIslands []idtable.ID
}

// Index addresses a point along a Path: a segment and a portal within it.
// PortalIndex == len(segment.PortalEdgeIndex) denotes the cross-segment
// portal to the next link segment; any smaller value denotes an intra-
// island portal edge (spec §4.8).
type Index struct {
	Segment int
	Portal  int
}

type action struct {
	kind     SegmentKind
	edge     int // intra-island edge index, for IslandSegment actions
	linkID   idtable.ID
	to       navref.Node
	portalA, portalB d3.Vec3
}

type problem struct {
	world    World
	start, goal navref.Node
	goalCentroid d3.Vec3
	cost     CostOverride
}

func (p *problem) InitialState() interface{} { return p.start }
func (p *problem) IsGoal(s interface{}) bool { return s.(navref.Node) == p.goal }

func (p *problem) Heuristic(s interface{}) float32 {
	node := s.(navref.Node)
	mesh, ok := p.world.Mesh(node.Island)
	if !ok {
		return 0
	}
	c := p.world.WorldPoint(node.Island, node.Polygon, mesh.Polygons[node.Polygon].Centroid)
	return c.Dist(p.goalCentroid)
}

func (p *problem) Successors(s interface{}) []astar.Successor {
	node := s.(navref.Node)
	var out []astar.Successor

	if mesh, ok := p.world.Mesh(node.Island); ok {
		poly := mesh.Polygons[node.Polygon]
		for ei, conn := range poly.Connections {
			if conn == nil {
				continue
			}
			to := navref.Node{Island: node.Island, Polygon: conn.Polygon}
			cost := conn.Cost * p.cost(node.Island, node.Polygon) * p.cost(node.Island, conn.Polygon)
			out = append(out, astar.Successor{
				Cost:   cost,
				Action: action{kind: IslandSegment, edge: ei, to: to},
				State:  to,
			})
		}
	}

	for _, id := range p.world.Links().Outgoing(node) {
		bl, ok := p.world.Links().Get(id)
		if !ok {
			continue
		}
		out = append(out, astar.Successor{
			Cost:   bl.Cost,
			Action: action{kind: BoundaryLinkSegment, linkID: id, to: bl.To, portalA: bl.PortalA, portalB: bl.PortalB},
			State:  bl.To,
		})
	}

	for _, e := range p.world.AnimationEdges(node) {
		out = append(out, astar.Successor{
			Cost:   e.Cost,
			Action: action{kind: AnimationLinkSegment, linkID: e.LinkID, to: e.To, portalA: e.PortalA, portalB: e.PortalB},
			State:  e.To,
		})
	}

	return out
}

// FindPath searches the archipelago's multi-island graph from start to goal
// with A* (spec §4.8). cost supplies every polygon's node-type cost
// multiplier (the archipelago passes its registered costs with any per-agent
// overrides applied) and must not be nil.
func FindPath(world World, start, goal navref.Node, cost CostOverride) (*Path, error) {
	mesh, ok := world.Mesh(goal.Island)
	if !ok {
		return nil, astar.ErrNoPath{}
	}
	goalCentroid := world.WorldPoint(goal.Island, goal.Polygon, mesh.Polygons[goal.Polygon].Centroid)

	p := &problem{world: world, start: start, goal: goal, goalCentroid: goalCentroid, cost: cost}
	res, err := astar.Search(p)
	if err != nil {
		return nil, err
	}
	return buildPath(start, goal, res), nil
}

func buildPath(start, goal navref.Node, res astar.Result) *Path {
	path := &Path{Start: start, Goal: goal}
	touched := map[idtable.ID]bool{start.Island: true}

	var cur *Segment
	ensureIslandSegment := func(island idtable.ID, poly int) {
		if cur == nil || cur.Kind != IslandSegment || cur.Island != island {
			path.Segments = append(path.Segments, Segment{Kind: IslandSegment, Island: island, Corridor: []int{poly}})
			cur = &path.Segments[len(path.Segments)-1]
			return
		}
		cur.Corridor = append(cur.Corridor, poly)
	}

	fromNode := start
	ensureIslandSegment(start.Island, start.Polygon)

	for _, step := range res.Path {
		act := step.Action.(action)
		switch act.kind {
		case IslandSegment:
			cur.PortalEdgeIndex = append(cur.PortalEdgeIndex, act.edge)
			ensureIslandSegment(act.to.Island, act.to.Polygon)
		case BoundaryLinkSegment, AnimationLinkSegment:
			path.Segments = append(path.Segments, Segment{
				Kind: act.kind, LinkID: act.linkID, From: fromNode, To: act.to,
				PortalA: act.portalA, PortalB: act.portalB,
			})
			cur = nil
			ensureIslandSegment(act.to.Island, act.to.Polygon)
		}
		fromNode = act.to
		touched[act.to.Island] = true
	}

	path.UsedLinks = collectLinkIDs(path.Segments)
	for id := range touched {
		path.TouchedIslands = append(path.TouchedIslands, id)
	}
	return path
}

func collectLinkIDs(segs []Segment) []idtable.ID {
	var out []idtable.ID
	for _, s := range segs {
		if s.Kind != IslandSegment {
			out = append(out, s.LinkID)
		}
	}
	return out
}
