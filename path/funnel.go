package path

import (
	"github.com/arl/gogeo/f32/d3"

	"github.com/arl/archipelago/idtable"
)

// portal is one crossing point pair the funnel advances through: the left
// and right apex candidates in the walkable (internal XY) plane.
type portal struct {
	left, right d3.Vec3
	index       Index
}

// Portals enumerates every crossing point of the path, in order, as seen by
// the funnel algorithm: one per intra-island edge, one per boundary link
// (its shared edge), and two per animation link (its start and end points,
// each as a zero-width portal so the string passes exactly through it).
func (p *Path) Portals(world World) []portal {
	var out []portal
	for si, seg := range p.Segments {
		switch seg.Kind {
		case IslandSegment:
			for pi, edge := range seg.PortalEdgeIndex {
				a, b := world.EdgePortal(seg.Island, seg.Corridor[pi], edge)
				out = append(out, portal{left: a, right: b, index: Index{Segment: si, Portal: pi}})
			}
		case BoundaryLinkSegment:
			last := len(seg.PortalEdgeIndex)
			out = append(out, portal{left: seg.PortalA, right: seg.PortalB, index: Index{Segment: si, Portal: last}})
		case AnimationLinkSegment:
			last := len(seg.PortalEdgeIndex)
			out = append(out, portal{left: seg.PortalA, right: seg.PortalA, index: Index{Segment: si, Portal: last}})
			out = append(out, portal{left: seg.PortalB, right: seg.PortalB, index: Index{Segment: si, Portal: last}})
		}
	}
	return out
}

// perp2D is the XY (walkable plane) signed cross product used for all
// funnel left/right turn tests (spec §9: "use the 2D signed cross product
// in the walkable plane, not the original user frame").
func perp2D(a, b d3.Vec3) float32 {
	return a[0]*b[1] - a[1]*b[0]
}

// triArea2D returns twice the signed area of triangle (a, b, c) in XY.
func triArea2D(a, b, c d3.Vec3) float32 {
	return perp2D(b.Sub(a), c.Sub(a))
}

func vecEq(a, b d3.Vec3) bool {
	return a[0] == b[0] && a[1] == b[1] && a[2] == b[2]
}

// FunnelResult is the single next point a straight-line walk can reach.
type FunnelResult struct {
	Point d3.Vec3
	At    Index
}

// FindNextPointInStraightPath runs the Hertel-Mehlhorn-style funnel from
// (startIndex, startPoint) through the path's portals up to (endIndex,
// endPoint), and returns the next point the agent can walk to in a straight
// line (spec §4.9).
func FindNextPointInStraightPath(world World, p *Path, startIndex Index, startPoint d3.Vec3, endIndex Index, endPoint d3.Vec3) FunnelResult {
	portals := p.Portals(world)

	apex := startPoint
	left := startPoint
	right := startPoint
	leftIdx, rightIdx := -1, -1

	for i, pt := range portals {
		if before(pt.index, startIndex) {
			continue
		}
		if after(pt.index, endIndex) {
			break
		}

		l, r := pt.left, pt.right

		if triArea2D(apex, right, r) <= 0 {
			if vecEq(apex, right) || vecEq(apex, left) || triArea2D(apex, left, r) > 0 {
				right = r
				rightIdx = i
			} else {
				result := FunnelResult{Point: left, At: portals[leftIdx].index}
				apex, left, right = left, left, left
				leftIdx, rightIdx = -1, -1
				return result
			}
		}
		if triArea2D(apex, left, l) >= 0 {
			if vecEq(apex, left) || vecEq(apex, right) || triArea2D(apex, right, l) < 0 {
				left = l
				leftIdx = i
			} else {
				result := FunnelResult{Point: right, At: portals[rightIdx].index}
				apex, left, right = right, right, right
				leftIdx, rightIdx = -1, -1
				return result
			}
		}
	}
	return FunnelResult{Point: endPoint, At: endIndex}
}

func before(a, b Index) bool {
	if a.Segment != b.Segment {
		return a.Segment < b.Segment
	}
	return a.Portal < b.Portal
}

func after(a, b Index) bool {
	if a.Segment != b.Segment {
		return a.Segment > b.Segment
	}
	return a.Portal > b.Portal
}

// NodeSegmentIndex returns the index of the segment containing (island,
// polygon), searching forward from hint and wrapping to the start if
// nothing was found there (spec §4.9: "locate the agent's current node in
// the path, searching forward, cheaply").
func (p *Path) NodeSegmentIndex(island idtable.ID, polygon int, hint int) (int, bool) {
	for i := hint; i < len(p.Segments); i++ {
		if segContains(p.Segments[i], island, polygon) {
			return i, true
		}
	}
	for i := 0; i < hint && i < len(p.Segments); i++ {
		if segContains(p.Segments[i], island, polygon) {
			return i, true
		}
	}
	return 0, false
}

func segContains(s Segment, island idtable.ID, polygon int) bool {
	if s.Kind != IslandSegment || s.Island != island {
		return false
	}
	for _, p := range s.Corridor {
		if p == polygon {
			return true
		}
	}
	return false
}

// NextWaypoint computes the next straight-line point an agent positioned at
// agentPos on (agentIsland, agentPolygon) should walk toward, given its
// path and the current target point on (targetIsland, targetPolygon) (spec
// §4.9). hint seeds the forward search for the agent's current segment;
// the returned int is the segment actually found, to be cached as the next
// call's hint.
func NextWaypoint(world World, p *Path, agentIsland idtable.ID, agentPolygon int, agentPos d3.Vec3, targetIsland idtable.ID, targetPolygon int, targetPos d3.Vec3, hint int) (FunnelResult, int) {
	curSeg, _ := p.NodeSegmentIndex(agentIsland, agentPolygon, hint)
	goalSeg, _ := p.NodeSegmentIndex(targetIsland, targetPolygon, len(p.Segments)-1)

	startIdx := Index{Segment: curSeg, Portal: 0}
	endIdx := Index{Segment: goalSeg, Portal: len(p.Segments[goalSeg].PortalEdgeIndex)}

	res := FindNextPointInStraightPath(world, p, startIdx, agentPos, endIdx, targetPos)
	return res, curSeg
}

// TargetReachedKind selects which predicate evaluates "has the agent
// reached its target" (spec §4.9).
type TargetReachedKind int

const (
	Distance TargetReachedKind = iota
	VisibleAtDistance
	StraightPathDistance
)

// TargetReachedCondition configures one of the three predicate variants.
// HasDistance false means "use the agent's radius as d" (spec §4.9).
type TargetReachedCondition struct {
	Kind        TargetReachedKind
	Distance    float32
	HasDistance bool
}

func (c TargetReachedCondition) resolvedDistance(agentRadius float32) float32 {
	if c.HasDistance {
		return c.Distance
	}
	return agentRadius
}

// IsTargetReached evaluates the configured predicate (spec §4.9).
func IsTargetReached(world World, cond TargetReachedCondition, p *Path, agentRadius float32,
	agentIsland idtable.ID, agentPolygon int, agentPos d3.Vec3,
	targetIsland idtable.ID, targetPolygon int, targetPos d3.Vec3, hint int) bool {

	d := cond.resolvedDistance(agentRadius)

	switch cond.Kind {
	case Distance:
		return d3.Vec3Dist2DSqr(agentPos, targetPos) < d*d

	case VisibleAtDistance:
		res, _ := NextWaypoint(world, p, agentIsland, agentPolygon, agentPos, targetIsland, targetPolygon, targetPos, hint)
		goalSeg, _ := p.NodeSegmentIndex(targetIsland, targetPolygon, len(p.Segments)-1)
		endIdx := Index{Segment: goalSeg, Portal: len(p.Segments[goalSeg].PortalEdgeIndex)}
		return res.At == endIdx && agentPos.Dist(targetPos) < d

	case StraightPathDistance:
		if agentPos.Dist(targetPos) >= d {
			return false
		}
		return straightPathLength(world, p, agentIsland, agentPolygon, agentPos, targetIsland, targetPolygon, targetPos, hint) < d
	}
	return false
}

// straightPathLength walks the funnel from the agent to the target, summing
// segment lengths, stopping once the goal portal is reached (spec §4.9
// StraightPathDistance).
func straightPathLength(world World, p *Path, agentIsland idtable.ID, agentPolygon int, agentPos d3.Vec3,
	targetIsland idtable.ID, targetPolygon int, targetPos d3.Vec3, hint int) float32 {

	var total float32
	cur := agentPos
	curIsland, curPolygon := agentIsland, agentPolygon
	curHint := hint
	goalSeg, _ := p.NodeSegmentIndex(targetIsland, targetPolygon, len(p.Segments)-1)
	endIdx := Index{Segment: goalSeg, Portal: len(p.Segments[goalSeg].PortalEdgeIndex)}

	for i := 0; i < len(p.Segments)+1; i++ {
		res, seg := NextWaypoint(world, p, curIsland, curPolygon, cur, targetIsland, targetPolygon, targetPos, curHint)
		total += cur.Dist(res.Point)
		if res.At == endIdx {
			break
		}
		cur = res.Point
		curHint = seg
		if res.At.Segment < len(p.Segments) {
			s := p.Segments[res.At.Segment]
			if s.Kind == IslandSegment && res.At.Portal < len(s.Corridor) {
				curIsland = s.Island
				curPolygon = s.Corridor[res.At.Portal]
			}
		}
	}
	return total
}

// IsValid reports whether p can still be followed: every island it touches
// must be clean, and every boundary link it uses must still exist with the
// same endpoints. Animation-link invalidation is the orchestrator's
// responsibility (spec §4.6, §4.12 step 1), since resolved animation edges
// aren't individually id-stable the way boundary links are.
func (p *Path) IsValid(world World) bool {
	for _, island := range p.TouchedIslands {
		if world.IsDirty(island) {
			return false
		}
	}
	for _, seg := range p.Segments {
		if seg.Kind != BoundaryLinkSegment {
			continue
		}
		bl, ok := world.Links().Get(seg.LinkID)
		if !ok || bl.From != seg.From || bl.To != seg.To {
			return false
		}
	}
	return true
}
