package avoid

import (
	"testing"

	"github.com/arl/gogeo/f32/d3"
	"github.com/stretchr/testify/require"
)

func TestSolveNoNeighborsReturnsPreferred(t *testing.T) {
	self := Agent{Position: d3.NewVec3XYZ(0, 0, 0), Radius: 0.5}
	preferred := d3.NewVec3XYZ(1, 0, 0)
	p := Params{MaxSpeed: 2, AvoidanceTimeHorizon: 2, ObstacleTimeHorizon: 1}

	got := Solve(self, preferred, nil, nil, p)
	require.InDelta(t, preferred[0], got[0], 1e-4)
	require.InDelta(t, preferred[1], got[1], 1e-4)
}

func TestSolveClampsToMaxSpeed(t *testing.T) {
	self := Agent{Position: d3.NewVec3XYZ(0, 0, 0), Radius: 0.5}
	preferred := d3.NewVec3XYZ(10, 0, 0)
	p := Params{MaxSpeed: 2, AvoidanceTimeHorizon: 2, ObstacleTimeHorizon: 1}

	got := Solve(self, preferred, nil, nil, p)
	speed := got.Dist(d3.NewVec3XYZ(0, 0, 0))
	require.LessOrEqual(t, speed, float32(2.001))
}

// TestSolveHeadOnAgentsDivergeLaterally reproduces the two-agents-swapping-
// targets avoidance-crossing scenario: both agents prefer a velocity
// straight at each other, and after solving, each agent's velocity picks
// up a nonzero lateral (Y) component pushing it off the collision line.
func TestSolveHeadOnAgentsDivergeLaterally(t *testing.T) {
	a := Agent{Position: d3.NewVec3XYZ(-5, 0, 0), Radius: 0.5, IsPathed: true}
	b := Agent{Position: d3.NewVec3XYZ(5, 0, 0), Radius: 0.5, IsPathed: true}

	p := Params{MaxSpeed: 2, AvoidanceTimeHorizon: 100, ObstacleTimeHorizon: 1}

	prefA := d3.NewVec3XYZ(1, 0, 0)
	prefB := d3.NewVec3XYZ(-1, 0, 0)

	gotA := Solve(a, prefA, []Agent{b}, nil, p)
	gotB := Solve(b, prefB, []Agent{a}, nil, p)

	require.NotZero(t, gotA[1])
	require.NotZero(t, gotB[1])
}

func TestObstacleConstraintRepelsFromEdge(t *testing.T) {
	self := Agent{Position: d3.NewVec3XYZ(0, 0.1, 0), Radius: 0.5, Velocity: d3.NewVec3XYZ(0, -1, 0)}
	obs := Obstacle{A: d3.NewVec3XYZ(-5, 0, 0), B: d3.NewVec3XYZ(5, 0, 0)}

	p := Params{MaxSpeed: 2, AvoidanceTimeHorizon: 2, ObstacleTimeHorizon: 1}
	preferred := d3.NewVec3XYZ(0, -1, 0)

	got := Solve(self, preferred, nil, []Obstacle{obs}, p)
	require.Greater(t, got[1], preferred[1])
}
