// Package bvh implements a static, array-backed bounding volume hierarchy
// over axis-aligned boxes, used to index polygon bounds, boundary edges and
// polygon triangle fans for fast box/point queries (spec §4.2).
package bvh

import (
	"github.com/arl/archipelago/geom"
	"github.com/arl/gogeo/f32/d3"
)

// Payload is the opaque value stored at each leaf.
type Payload = interface{}

type node struct {
	bounds      geom.Bbox
	left, right int32 // child node indices, -1 for a leaf
	payload     Payload
}

// Tree is a static BVH: it is built once from a batch of (bbox, payload)
// entries and answers box/point queries against that fixed snapshot. There
// is no incremental insert/remove or rebalancing; point sampling, the link
// builder and animation-link resolution rebuild a Tree whenever their inputs
// change.
type Tree struct {
	nodes []node
	depth int
}

type entry struct {
	bounds  geom.Bbox
	payload Payload
}

// Build constructs a Tree over the given bbox/payload pairs.
func Build(bounds []geom.Bbox, payloads []Payload) *Tree {
	if len(bounds) != len(payloads) {
		panic("bvh: bounds and payloads length mismatch")
	}
	t := &Tree{}
	if len(bounds) == 0 {
		return t
	}
	entries := make([]entry, len(bounds))
	for i := range bounds {
		entries[i] = entry{bounds: bounds[i], payload: payloads[i]}
	}
	t.nodes = make([]node, 0, 2*len(entries)-1)
	t.build(entries, 0)
	return t
}

// build recursively partitions entries, appending nodes in pre-order, and
// returns the index of the node it created.
func (t *Tree) build(entries []entry, depth int) int32 {
	if depth > t.depth {
		t.depth = depth
	}
	bounds := geom.EmptyBbox()
	for _, e := range entries {
		bounds = geom.Union(bounds, e.bounds)
	}

	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{bounds: bounds, left: -1, right: -1})

	if len(entries) == 1 {
		t.nodes[idx].payload = entries[0].payload
		return idx
	}

	axis := bounds.WidestAxis()
	mid := bounds.Min[axis] + (bounds.Max[axis]-bounds.Min[axis])*0.5

	var left, right []entry
	for _, e := range entries {
		c := e.bounds.Center()
		if c[axis] < mid {
			left = append(left, e)
		} else {
			right = append(right, e)
		}
	}
	// Degenerate split (all centroids on one side, e.g. coincident boxes):
	// fall back to a even halves split so recursion terminates.
	if len(left) == 0 || len(right) == 0 {
		half := len(entries) / 2
		left = entries[:half]
		right = entries[half:]
	}

	leftIdx := t.build(left, depth+1)
	rightIdx := t.build(right, depth+1)
	t.nodes[idx].left = leftIdx
	t.nodes[idx].right = rightIdx
	return idx
}

// Depth returns the tree's maximum depth, used by tests to assert
// reasonable balance.
func (t *Tree) Depth() int { return t.depth }

// Len reports how many leaves the tree holds.
func (t *Tree) Len() int {
	n := 0
	for _, nd := range t.nodes {
		if nd.left < 0 && nd.right < 0 {
			n++
		}
	}
	return n
}

// QueryBox calls visit for every payload whose bbox overlaps q.
func (t *Tree) QueryBox(q geom.Bbox, visit func(Payload)) {
	if len(t.nodes) == 0 {
		return
	}
	t.queryBox(0, q, visit)
}

func (t *Tree) queryBox(idx int32, q geom.Bbox, visit func(Payload)) {
	nd := &t.nodes[idx]
	if !nd.bounds.Overlaps(q) {
		return
	}
	if nd.left < 0 && nd.right < 0 {
		visit(nd.payload)
		return
	}
	if nd.left >= 0 {
		t.queryBox(nd.left, q, visit)
	}
	if nd.right >= 0 {
		t.queryBox(nd.right, q, visit)
	}
}

// QueryPoint calls visit for every payload whose bbox contains p.
func (t *Tree) QueryPoint(p d3.Vec3, visit func(Payload)) {
	if len(t.nodes) == 0 {
		return
	}
	q := geom.FromPoint(p)
	t.queryBox(0, q, visit)
}
