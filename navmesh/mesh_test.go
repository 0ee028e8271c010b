package navmesh

import (
	"testing"

	"github.com/arl/gogeo/f32/d3"
	"github.com/stretchr/testify/require"
)

func square() RawMesh {
	return RawMesh{
		Vertices: []d3.Vec3{
			d3.NewVec3XYZ(0, 0, 0),
			d3.NewVec3XYZ(1, 0, 0),
			d3.NewVec3XYZ(1, 1, 0),
			d3.NewVec3XYZ(0, 1, 0),
		},
		Polygons:         [][]int{{0, 1, 2, 3}},
		PolygonTypeIndex: []int{0},
	}
}

func TestValidateSquareOK(t *testing.T) {
	m, err := Validate(square())
	require.NoError(t, err)
	require.Len(t, m.Polygons, 1)
	require.Len(t, m.BoundaryEdges, 4)
	for _, c := range m.Polygons[0].Connections {
		require.Nil(t, c)
	}
}

func TestValidateEmptyMesh(t *testing.T) {
	_, err := Validate(RawMesh{})
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, EmptyMesh, ve.Kind)
}

func TestValidateDegenerate(t *testing.T) {
	raw := square()
	raw.Polygons = [][]int{{0, 1, 1}}
	_, err := Validate(raw)
	require.Error(t, err)
}

func TestValidateNonCCW(t *testing.T) {
	raw := square()
	// Reverse winding.
	raw.Polygons = [][]int{{3, 2, 1, 0}}
	_, err := Validate(raw)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, NonCCW, ve.Kind)
}

func TestValidateIndexOutOfBounds(t *testing.T) {
	raw := square()
	raw.Polygons = [][]int{{0, 1, 2, 9}}
	_, err := Validate(raw)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, IndexOutOfBounds, ve.Kind)
}

func TestValidateTwoTrianglesShareEdge(t *testing.T) {
	// Two CCW triangles sharing the diagonal (0,2)/(2,0).
	raw := RawMesh{
		Vertices: []d3.Vec3{
			d3.NewVec3XYZ(0, 0, 0),
			d3.NewVec3XYZ(1, 0, 0),
			d3.NewVec3XYZ(1, 1, 0),
			d3.NewVec3XYZ(0, 1, 0),
		},
		Polygons:         [][]int{{0, 1, 2}, {0, 2, 3}},
		PolygonTypeIndex: []int{0, 0},
	}
	m, err := Validate(raw)
	require.NoError(t, err)
	require.Len(t, m.BoundaryEdges, 4)

	// Polygon 0's edge 2 (2->0) connects to polygon 1's edge 0 (0->2), and
	// polygon 1's connection points back at it.
	found := false
	for ei, c := range m.Polygons[0].Connections {
		if c != nil && c.Polygon == 1 {
			found = true
			back := m.Polygons[1].Connections[c.Edge]
			require.NotNil(t, back)
			require.Equal(t, 0, back.Polygon)
			require.Equal(t, ei, back.Edge)
		}
	}
	require.True(t, found)
}

func TestValidateNonManifoldEdge(t *testing.T) {
	// Two triangles both traversing edge (0,1) in the same direction: a
	// well-formed closed mesh never does this, since a shared edge must be
	// walked in opposite directions by its two owning polygons.
	raw := RawMesh{
		Vertices: []d3.Vec3{
			d3.NewVec3XYZ(0, 0, 0),
			d3.NewVec3XYZ(1, 0, 0),
			d3.NewVec3XYZ(0.5, 1, 0),
			d3.NewVec3XYZ(0.5, 2, 0),
		},
		Polygons: [][]int{
			{0, 1, 2},
			{0, 1, 3}, // edge (0,1) also runs 0->1 here: same orientation as polygon 0
		},
		PolygonTypeIndex: []int{0, 0},
	}
	_, err := Validate(raw)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, NonManifoldEdge, ve.Kind)
}
