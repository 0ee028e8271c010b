package astar

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// gridProblem is a simple 1D line graph 0..n used to check basic
// correctness without pulling in the archipelago's node types.
type gridProblem struct {
	n    int
	goal int
}

func (g gridProblem) InitialState() interface{} { return 0 }
func (g gridProblem) IsGoal(s interface{}) bool { return s.(int) == g.goal }
func (g gridProblem) Heuristic(s interface{}) float32 {
	return float32(g.goal - s.(int))
}
func (g gridProblem) Successors(s interface{}) []Successor {
	i := s.(int)
	var out []Successor
	if i+1 <= g.n {
		out = append(out, Successor{Cost: 1, Action: i + 1, State: i + 1})
	}
	return out
}

func TestSearchFindsShortestPath(t *testing.T) {
	res, err := Search(gridProblem{n: 10, goal: 5})
	require.NoError(t, err)
	require.Equal(t, float32(5), res.Cost)
	require.Len(t, res.Path, 5)
	require.Equal(t, 5, res.Path[len(res.Path)-1].State)
}

func TestSearchNoPath(t *testing.T) {
	_, err := Search(gridProblem{n: 3, goal: 100})
	require.Error(t, err)
	require.IsType(t, ErrNoPath{}, err)
}

// branchingProblem has two routes to the goal with different costs, to
// check optimality under a non-trivial graph.
type branchingProblem struct{}

func (branchingProblem) InitialState() interface{} { return "start" }
func (branchingProblem) IsGoal(s interface{}) bool { return s.(string) == "goal" }
func (branchingProblem) Heuristic(s interface{}) float32 {
	if s.(string) == "goal" {
		return 0
	}
	return 1
}
func (branchingProblem) Successors(s interface{}) []Successor {
	switch s.(string) {
	case "start":
		return []Successor{
			{Cost: 10, Action: "via-a", State: "a"},
			{Cost: 1, Action: "via-b", State: "b"},
		}
	case "a":
		return []Successor{{Cost: 1, Action: "finish", State: "goal"}}
	case "b":
		return []Successor{{Cost: 1, Action: "finish", State: "goal"}}
	}
	return nil
}

func TestSearchOptimality(t *testing.T) {
	res, err := Search(branchingProblem{})
	require.NoError(t, err)
	require.Equal(t, float32(2), res.Cost)
	require.Equal(t, "via-b", res.Path[0].Action)
}
