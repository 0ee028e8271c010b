package archipelago

import (
	"testing"

	"github.com/arl/gogeo/f32/d3"
	"github.com/stretchr/testify/require"

	"github.com/arl/archipelago/idtable"
	"github.com/arl/archipelago/navmesh"
	fpath "github.com/arl/archipelago/path"
)

func unitSquareMesh(t *testing.T, typeIdx int) *navmesh.RawMesh {
	t.Helper()
	return &navmesh.RawMesh{
		Vertices: []d3.Vec3{
			d3.NewVec3XYZ(0, 0, 0),
			d3.NewVec3XYZ(1, 0, 0),
			d3.NewVec3XYZ(1, 1, 0),
			d3.NewVec3XYZ(0, 1, 0),
		},
		Polygons:         [][]int{{0, 1, 2, 3}},
		PolygonTypeIndex: []int{typeIdx},
	}
}

func addSquareIsland(t *testing.T, a *Archipelago, pos d3.Vec3, typeIdx int, typeMap map[int]idtable.ID) idtable.ID {
	t.Helper()
	mesh, err := navmesh.Validate(*unitSquareMesh(t, typeIdx))
	require.NoError(t, err)
	id := a.AddIsland()
	ok := a.SetIslandNavData(id, Transform{Position: pos}, mesh, typeMap)
	require.True(t, ok)
	return id
}

func TestSamplePointSingleSquare(t *testing.T) {
	a := New(DefaultOptions())
	addSquareIsland(t, a, d3.NewVec3XYZ(0, 0, 0), 0, nil)
	a.Update(0)

	dist := PointSampleDistance{Horizontal: 0.1, Above: 0.1, Below: 0.1, VerticalPreferenceRatio: 1}

	node, pt, st := a.SamplePoint(d3.NewVec3XYZ(0.5, 0.5, 0), dist)
	require.True(t, st.Succeeded())
	require.Equal(t, 0, node.Polygon)
	require.InDelta(t, 0.5, pt[0], 1e-4)
	require.InDelta(t, 0.5, pt[1], 1e-4)

	_, _, st = a.SamplePoint(d3.NewVec3XYZ(-0.5, 0.5, 0), dist)
	require.True(t, st.Failed())

	wideDist := PointSampleDistance{Horizontal: 0.6, Above: 0.1, Below: 0.1, VerticalPreferenceRatio: 1}
	_, pt, st = a.SamplePoint(d3.NewVec3XYZ(-0.5, 0.5, 0), wideDist)
	require.True(t, st.Succeeded())
	require.InDelta(t, 0.0, pt[0], 1e-4)
}

func TestFindPathTwoIslandBridge(t *testing.T) {
	a := New(DefaultOptions())
	a.opts.EdgeLinkDistance = 0.01
	addSquareIsland(t, a, d3.NewVec3XYZ(0, 0, 0), 0, nil)
	addSquareIsland(t, a, d3.NewVec3XYZ(1, 0, 0), 0, nil)
	a.Update(0)

	p, st := a.FindPath(d3.NewVec3XYZ(0.5, 0.5, 0), d3.NewVec3XYZ(1.5, 0.5, 0), nil)
	require.True(t, st.Succeeded())
	require.NotNil(t, p)
	require.Len(t, p.Segments, 3)
	require.Equal(t, fpath.BoundaryLinkSegment, p.Segments[1].Kind)
}

func TestFindPathDisconnectedIslandsNoPath(t *testing.T) {
	a := New(DefaultOptions())
	a.opts.EdgeLinkDistance = 0.01
	addSquareIsland(t, a, d3.NewVec3XYZ(0, 0, 0), 0, nil)
	addSquareIsland(t, a, d3.NewVec3XYZ(2, 0, 0), 0, nil)
	a.Update(0)

	_, st := a.FindPath(d3.NewVec3XYZ(0.5, 0.5, 0), d3.NewVec3XYZ(2.5, 0.5, 0), nil)
	require.True(t, st.Failed())
}

func TestRegisterNodeTypeRejectsNonPositiveCost(t *testing.T) {
	a := New(DefaultOptions())
	_, st := a.RegisterNodeType(0)
	require.True(t, st.Failed())

	_, st = a.RegisterNodeType(2.0)
	require.True(t, st.Succeeded())
}

func TestAgentReachesTargetOnSameNode(t *testing.T) {
	a := New(DefaultOptions())
	addSquareIsland(t, a, d3.NewVec3XYZ(0, 0, 0), 0, nil)
	a.Update(0)

	id := a.AddAgent(Agent{
		Position:     d3.NewVec3XYZ(0.5, 0.5, 0),
		Radius:       0.1,
		DesiredSpeed: 1,
		MaxSpeed:     1,
		Target:       &Target{Point: d3.NewVec3XYZ(0.51, 0.5, 0)},
	})

	a.Update(0.1)

	ag, ok := a.Agent(id)
	require.True(t, ok)
	require.Equal(t, ReachedTarget, ag.State)
}
