package link

import (
	"testing"

	"github.com/arl/gogeo/f32/d3"
	"github.com/stretchr/testify/require"

	"github.com/arl/archipelago/idtable"
	"github.com/arl/archipelago/navmesh"
	"github.com/arl/archipelago/navref"
	"github.com/arl/archipelago/xform"
)

func unitSquare() *navmesh.ValidatedMesh {
	raw := navmesh.RawMesh{
		Vertices: []d3.Vec3{
			d3.NewVec3XYZ(0, 0, 0),
			d3.NewVec3XYZ(1, 0, 0),
			d3.NewVec3XYZ(1, 1, 0),
			d3.NewVec3XYZ(0, 1, 0),
		},
		Polygons:         [][]int{{0, 1, 2, 3}},
		PolygonTypeIndex: []int{0},
	}
	m, err := navmesh.Validate(raw)
	if err != nil {
		panic(err)
	}
	return m
}

func defaultCost(idtable.ID, int) float32 { return 1.0 }

func TestRebuildStitchesAdjacentIslands(t *testing.T) {
	islands := idtable.New[struct{}]()
	idA := islands.Insert(struct{}{})
	idB := islands.Insert(struct{}{})

	views := map[idtable.ID]IslandView{
		idA: {ID: idA, Mesh: unitSquare(), Transform: xform.Transform{Position: d3.NewVec3XYZ(0, 0, 0)}},
		idB: {ID: idB, Mesh: unitSquare(), Transform: xform.Transform{Position: d3.NewVec3XYZ(1, 0, 0)}},
	}

	s := NewStore()
	s.Rebuild([]idtable.ID{idA, idB}, views, 0.01, defaultCost)

	outA := s.Outgoing(navref.Node{Island: idA, Polygon: 0})
	outB := s.Outgoing(navref.Node{Island: idB, Polygon: 0})
	require.Len(t, outA, 1)
	require.Len(t, outB, 1)

	la, _ := s.Get(outA[0])
	lb, _ := s.Get(outB[0])
	require.Equal(t, outB[0], la.Back)
	require.Equal(t, outA[0], lb.Back)
	require.InDelta(t, la.Cost, lb.Cost, 1e-4)
}

func TestRebuildNoStitchWhenFar(t *testing.T) {
	islands := idtable.New[struct{}]()
	idA := islands.Insert(struct{}{})
	idB := islands.Insert(struct{}{})

	views := map[idtable.ID]IslandView{
		idA: {ID: idA, Mesh: unitSquare(), Transform: xform.Transform{Position: d3.NewVec3XYZ(0, 0, 0)}},
		idB: {ID: idB, Mesh: unitSquare(), Transform: xform.Transform{Position: d3.NewVec3XYZ(2, 0, 0)}},
	}

	s := NewStore()
	s.Rebuild([]idtable.ID{idA, idB}, views, 0.01, defaultCost)

	require.Empty(t, s.Outgoing(navref.Node{Island: idA, Polygon: 0}))
	require.Empty(t, s.Outgoing(navref.Node{Island: idB, Polygon: 0}))
}
