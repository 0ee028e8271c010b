// Package astar implements a generic, heap-based A* search (spec §4.7). The
// search graph is injected through the Problem interface, so the same
// engine drives the archipelago's multi-island pathfinder (package path)
// without knowing anything about islands or polygons — the same split the
// teacher draws between its generic detour.nodeQueue/NodePool machinery and
// the domain-specific NavMeshQuery.FindPath built on top of it.
package astar

import (
	"container/heap"

	assert "github.com/arl/assertgo"
)

// Problem is the graph A* searches over. State and Action are any
// comparable/usable user types; State must be usable as a map key.
type Problem interface {
	// InitialState returns the search's start state.
	InitialState() interface{}

	// IsGoal reports whether state is a goal state.
	IsGoal(state interface{}) bool

	// Successors enumerates the edges out of state as
	// (cost of the edge, action taken, resulting state) triples.
	Successors(state interface{}) []Successor

	// Heuristic estimates the remaining cost from state to the nearest
	// goal. It must be admissible (never overestimate) and must return 0
	// for goal states.
	Heuristic(state interface{}) float32
}

// Successor is one outgoing edge from Problem.Successors.
type Successor struct {
	Cost   float32
	Action interface{}
	State  interface{}
}

// Step is one action taken along a found path.
type Step struct {
	Action interface{}
	State  interface{}
}

// Result is the outcome of a successful search.
type Result struct {
	Path    []Step
	Cost    float32
	Explored int // number of node expansions performed, a search-cost stat
}

// ErrNoPath indicates the goal is unreachable from the initial state.
type ErrNoPath struct{}

func (ErrNoPath) Error() string { return "astar: no path found" }

type searchNode struct {
	state  interface{}
	g      float32
	f      float32
	action interface{} // action that produced this node from its parent
	parent int         // index into the closed table, -1 for the root
}

// heap ordering: A* ordinarily orders by ascending f, but this
// implementation ties-breaks toward larger g (spec §4.7, §9 "A* tie-break
// prefers higher g on equal f"): among equal f-values, prefer the node
// deeper along its path, which reduces re-expansion under a flat or
// near-flat heuristic. This is a correctness-neutral performance choice
// that can change *which* optimal path is returned when several tie.
type openHeap []openEntry

type openEntry struct {
	f, g  float32
	index int // index into the nodes slice
}

func (h openHeap) Len() int { return len(h) }
func (h openHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].g > h[j].g
}
func (h openHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *openHeap) Push(x interface{}) { *h = append(*h, x.(openEntry)) }
func (h *openHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Search runs A* over problem and returns the path of actions from the
// initial state to a goal, in order, or ErrNoPath if none exists.
func Search(problem Problem) (Result, error) {
	start := problem.InitialState()
	assert.True(!problem.IsGoal(start) || problem.Heuristic(start) == 0,
		"heuristic must return 0 at a goal state")

	nodes := []searchNode{{state: start, g: 0, parent: -1}}
	bestEstimate := map[interface{}]float32{}

	h0 := problem.Heuristic(start)
	bestEstimate[start] = h0
	open := &openHeap{{f: h0, g: 0, index: 0}}
	heap.Init(open)

	explored := 0
	for open.Len() > 0 {
		entry := heap.Pop(open).(openEntry)
		idx := entry.index
		node := &nodes[idx]

		// Skip stale duplicates: a better path to this state may have been
		// pushed after this entry, making this entry's f worse than the
		// one currently on record.
		if best, ok := bestEstimate[node.state]; ok && entry.f > best {
			continue
		}

		explored++
		if problem.IsGoal(node.state) {
			return buildResult(nodes, idx, explored), nil
		}

		for _, succ := range problem.Successors(node.state) {
			g := node.g + succ.Cost
			h := problem.Heuristic(succ.State)
			f := g + h

			if best, ok := bestEstimate[succ.State]; ok && f >= best {
				continue
			}
			bestEstimate[succ.State] = f

			nodes = append(nodes, searchNode{
				state:  succ.State,
				g:      g,
				action: succ.Action,
				parent: idx,
			})
			heap.Push(open, openEntry{f: f, g: g, index: len(nodes) - 1})
		}
	}

	return Result{}, ErrNoPath{}
}

func buildResult(nodes []searchNode, goalIdx int, explored int) Result {
	assert.True(goalIdx >= 0 && goalIdx < len(nodes), "goalIdx out of range, goalIdx=%d, len(nodes)=%d", goalIdx, len(nodes))
	var steps []Step
	for i := goalIdx; nodes[i].parent >= 0; i = nodes[i].parent {
		steps = append(steps, Step{Action: nodes[i].action, State: nodes[i].state})
	}
	// Reverse into start->goal order.
	for l, r := 0, len(steps)-1; l < r; l, r = l+1, r-1 {
		steps[l], steps[r] = steps[r], steps[l]
	}
	return Result{Path: steps, Cost: nodes[goalIdx].g, Explored: explored}
}
