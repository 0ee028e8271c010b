package path

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arl/gogeo/f32/d3"

	"github.com/arl/archipelago/idtable"
	"github.com/arl/archipelago/link"
	"github.com/arl/archipelago/navmesh"
	"github.com/arl/archipelago/navref"
)

// fakeWorld is a single-island World with no links, used to exercise the
// funnel/waypoint/target-reached logic in isolation from the archipelago
// container.
type fakeWorld struct {
	island idtable.ID
	mesh   *navmesh.ValidatedMesh
	links  *link.Store
}

func (w *fakeWorld) Mesh(id idtable.ID) (*navmesh.ValidatedMesh, bool) {
	if id != w.island {
		return nil, false
	}
	return w.mesh, true
}

func (w *fakeWorld) WorldPoint(id idtable.ID, polygon int, local d3.Vec3) d3.Vec3 { return local }

func (w *fakeWorld) EdgePortal(id idtable.ID, polygon, edge int) (d3.Vec3, d3.Vec3) {
	return w.mesh.EdgePoints(polygon, edge)
}

func (w *fakeWorld) IsDirty(id idtable.ID) bool { return false }

func (w *fakeWorld) Links() *link.Store { return w.links }

func (w *fakeWorld) AnimationEdges(n navref.Node) []link.AnimationEdge { return nil }

// lShapedWorld builds the three-polygon L-shaped corridor: a narrow band
// that bends around a notch, so the straight line from one end to the other
// must bend through the middle polygon's inner vertex. Coordinates are laid
// out directly in the internal walkable XY plane (Z constant): navmesh.Validate
// computes winding and area from the X/Y components only (geom.SignedArea2D),
// so a corridor cannot be expressed with its span on the Z axis.
func lShapedWorld(t *testing.T) (*fakeWorld, navref.Node, navref.Node) {
	t.Helper()
	verts := []d3.Vec3{
		d3.NewVec3XYZ(1, 1, 0),
		d3.NewVec3XYZ(1, 11, 0),
		d3.NewVec3XYZ(0, 12, 0),
		d3.NewVec3XYZ(2, 11, 0),
		d3.NewVec3XYZ(3, 12, 0),
		d3.NewVec3XYZ(2, 1, 0),
	}
	raw := navmesh.RawMesh{
		Vertices: verts,
		Polygons: [][]int{
			{0, 1, 2},
			{2, 1, 3, 4},
			{4, 3, 5},
		},
	}
	mesh, err := navmesh.Validate(raw)
	require.NoError(t, err)

	island := idtable.New[int]().Insert(0)
	w := &fakeWorld{island: island, mesh: mesh, links: link.NewStore()}
	start := navref.Node{Island: island, Polygon: 0}
	goal := navref.Node{Island: island, Polygon: 2}
	return w, start, goal
}

func flatCost(idtable.ID, int) float32 { return 1 }

func TestFindNextPointInStraightPathBendsThroughNotch(t *testing.T) {
	w, start, goal := lShapedWorld(t)

	p, err := FindPath(w, start, goal, flatCost)
	require.NoError(t, err)
	require.Len(t, p.Segments, 1)

	startPoint := d3.NewVec3XYZ(1.5, 1, 0)
	endPoint := d3.NewVec3XYZ(2.5, 12, 0)
	startIdx := Index{Segment: 0, Portal: 0}
	endIdx := Index{Segment: 0, Portal: len(p.Segments[0].PortalEdgeIndex)}

	res := FindNextPointInStraightPath(w, p, startIdx, startPoint, endIdx, endPoint)
	require.Equal(t, d3.NewVec3XYZ(1, 11, 0), res.Point)
}

func TestNextWaypointTracksCurrentSegment(t *testing.T) {
	w, start, goal := lShapedWorld(t)
	p, err := FindPath(w, start, goal, flatCost)
	require.NoError(t, err)

	agentPos := d3.NewVec3XYZ(1.5, 1, 0)
	targetPos := d3.NewVec3XYZ(2.5, 12, 0)

	res, seg := NextWaypoint(w, p, start.Island, start.Polygon, agentPos, goal.Island, goal.Polygon, targetPos, 0)
	require.Equal(t, 0, seg)
	require.Equal(t, d3.NewVec3XYZ(1, 11, 0), res.Point)
}

func TestIsTargetReachedDistance(t *testing.T) {
	w, start, goal := lShapedWorld(t)
	p, err := FindPath(w, start, goal, flatCost)
	require.NoError(t, err)

	agentPos := d3.NewVec3XYZ(2.4, 11.9, 0)
	targetPos := d3.NewVec3XYZ(2.5, 12, 0)

	cond := TargetReachedCondition{Kind: Distance, Distance: 0.5, HasDistance: true}
	require.True(t, IsTargetReached(w, cond, p, 0.1, start.Island, start.Polygon, agentPos, goal.Island, goal.Polygon, targetPos, 0))

	far := d3.NewVec3XYZ(1.5, 1, 0)
	require.False(t, IsTargetReached(w, cond, p, 0.1, start.Island, start.Polygon, far, goal.Island, goal.Polygon, targetPos, 0))
}

func TestIsTargetReachedVisibleAtDistance(t *testing.T) {
	w, start, goal := lShapedWorld(t)
	p, err := FindPath(w, start, goal, flatCost)
	require.NoError(t, err)

	// Close to the target and with a clear straight line to it (both points
	// lie in the middle polygon), VisibleAtDistance must report reached.
	agentPos := d3.NewVec3XYZ(2.3, 11.7, 0)
	targetPos := d3.NewVec3XYZ(2.5, 12, 0)
	cond := TargetReachedCondition{Kind: VisibleAtDistance, Distance: 1, HasDistance: true}
	require.True(t, IsTargetReached(w, cond, p, 0.1, start.Island, start.Polygon, agentPos, goal.Island, goal.Polygon, targetPos, 0))
}

func TestIsTargetReachedStraightPathDistance(t *testing.T) {
	w, start, goal := lShapedWorld(t)
	p, err := FindPath(w, start, goal, flatCost)
	require.NoError(t, err)

	// From the far end of the corridor, the straight-line (as-the-crow-flies)
	// distance is short but the path must bend through the notch, so the
	// walked distance is longer: StraightPathDistance must be stricter than
	// Distance here.
	agentPos := d3.NewVec3XYZ(1.5, 1, 0)
	targetPos := d3.NewVec3XYZ(2.5, 12, 0)

	walked := straightPathLength(w, p, start.Island, start.Polygon, agentPos, goal.Island, goal.Polygon, targetPos, 0)
	require.Greater(t, walked, agentPos.Dist(targetPos))

	cond := TargetReachedCondition{Kind: StraightPathDistance, Distance: walked + 1, HasDistance: true}
	require.True(t, IsTargetReached(w, cond, p, 0.1, start.Island, start.Polygon, agentPos, goal.Island, goal.Polygon, targetPos, 0))

	cond.Distance = walked - 1
	require.False(t, IsTargetReached(w, cond, p, 0.1, start.Island, start.Polygon, agentPos, goal.Island, goal.Polygon, targetPos, 0))
}

func TestPathIsValidOnCleanWorld(t *testing.T) {
	w, start, goal := lShapedWorld(t)
	p, err := FindPath(w, start, goal, flatCost)
	require.NoError(t, err)
	require.True(t, p.IsValid(w))
}
