// Package link builds the connections between islands: boundary links,
// stitched automatically between coincident boundary edges of different
// islands (spec §4.5), and animation links, user-declared off-mesh
// connections resolved onto real polygons (spec §4.6). Both are modeled as
// directed edges the pathfinder treats uniformly alongside intra-island
// polygon connectivity.
package link

import (
	"github.com/arl/gogeo/f32/d3"

	"github.com/arl/archipelago/bvh"
	"github.com/arl/archipelago/geom"
	"github.com/arl/archipelago/idtable"
	"github.com/arl/archipelago/navmesh"
	"github.com/arl/archipelago/navref"
	"github.com/arl/archipelago/xform"
)

// BoundaryLink is a directed stitch between two boundary edges on
// different islands that are coincident to tolerance (spec §3). Every
// matched edge pair produces two BoundaryLinks, one per direction, each
// holding the other's ID as Back.
type BoundaryLink struct {
	From, To     navref.Node
	PortalA, PortalB d3.Vec3 // world-frame portal endpoints, shared with Back
	Cost         float32
	Back         idtable.ID
}

// IslandView is the snapshot the link builder needs of one island: its
// validated mesh and its placement in the world.
type IslandView struct {
	ID        idtable.ID
	Mesh      *navmesh.ValidatedMesh
	Transform xform.Transform
}

// TypeCost resolves the per-node-type travel cost multiplier for a
// polygon's type index on a given island (default 1.0, spec §4.4).
type TypeCost func(island idtable.ID, polygon int) float32

type edgeEntry struct {
	island  idtable.ID
	polygon int
	edge    int
	a, b    d3.Vec3
}

// Store owns the boundary-link graph: the links themselves, a node->links
// index, and the cached world-space boundary edges used to rebuild the
// edge BVH whenever islands change.
type Store struct {
	links       *idtable.Table[BoundaryLink]
	byNode      map[navref.Node][]idtable.ID
	islandEdges map[idtable.ID][]edgeEntry
	removed     []idtable.ID
}

// NewStore returns an empty boundary-link store.
func NewStore() *Store {
	return &Store{
		links:       idtable.New[BoundaryLink](),
		byNode:      make(map[navref.Node][]idtable.ID),
		islandEdges: make(map[idtable.ID][]edgeEntry),
	}
}

// Get returns the link for id.
func (s *Store) Get(id idtable.ID) (*BoundaryLink, bool) { return s.links.Get(id) }

// Outgoing returns the ids of all boundary links leaving node.
func (s *Store) Outgoing(node navref.Node) []idtable.ID { return s.byNode[node] }

// DrainRemoved returns and clears the set of link IDs removed since the
// last call, consumed once per tick by the orchestrator to invalidate
// cached paths that reference them (spec §4.5, §4.9).
func (s *Store) DrainRemoved() []idtable.ID {
	out := s.removed
	s.removed = nil
	return out
}

// RemoveIsland drops the cached boundary edges and all links incident to
// island, without rebuilding links for any other island.
func (s *Store) RemoveIsland(island idtable.ID) {
	delete(s.islandEdges, island)
	s.removeLinksForIsland(island)
}

func (s *Store) removeLinksForIsland(island idtable.ID) {
	var toRemove []idtable.ID
	s.links.Each(func(id idtable.ID, l *BoundaryLink) {
		if l.From.Island == island || l.To.Island == island {
			toRemove = append(toRemove, id)
		}
	})
	for _, id := range toRemove {
		s.removeLink(id)
	}
}

func (s *Store) removeLink(id idtable.ID) {
	l, ok := s.links.Get(id)
	if !ok {
		return
	}
	from := l.From
	s.links.Remove(id)
	s.removed = append(s.removed, id)
	ids := s.byNode[from]
	for i, other := range ids {
		if other == id {
			s.byNode[from] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

// Rebuild re-stitches boundary links for the given dirty islands against
// the full set of islands in views (spec §4.5). Islands not in dirty are
// assumed unchanged since the previous call; their cached edges are reused
// to match against.
func (s *Store) Rebuild(dirty []idtable.ID, views map[idtable.ID]IslandView, edgeLinkDistance float32, typeCost TypeCost) {
	for _, id := range dirty {
		s.removeLinksForIsland(id)
		view, ok := views[id]
		if !ok {
			delete(s.islandEdges, id)
			continue
		}
		s.islandEdges[id] = worldBoundaryEdges(view)
	}

	tol := edgeLinkDistance
	tolSqr := tol * tol

	tree := s.buildEdgeTree(tol)

	visited := make(map[[2]navref.Node]bool)
	for _, id := range dirty {
		view, ok := views[id]
		if !ok {
			continue
		}
		for _, e := range s.islandEdges[id] {
			q := geom.Bbox{Min: e.a, Max: e.a}
			q.ExpandPoint(e.b)
			q = q.Inflate(tol)

			tree.QueryBox(q, func(p bvh.Payload) {
				cand := p.(edgeEntry)
				if cand.island == id {
					return
				}
				na := navref.Node{Island: id, Polygon: e.polygon}
				nb := navref.Node{Island: cand.island, Polygon: cand.polygon}
				if visited[[2]navref.Node{na, nb}] || visited[[2]navref.Node{nb, na}] {
					return
				}

				p1, p2, ok := geom.NearCollinearEdges(geom.Edge{A: e.a, B: e.b}, geom.Edge{A: cand.a, B: cand.b}, tolSqr)
				if !ok {
					return
				}
				visited[[2]navref.Node{na, nb}] = true
				visited[[2]navref.Node{nb, na}] = true
				s.addLinkPair(na, nb, p1, p2, view, views[cand.island], e.polygon, cand.polygon, typeCost)
			})
		}
	}
}

func (s *Store) addLinkPair(na, nb navref.Node, p1, p2 d3.Vec3, va, vb IslandView, polyA, polyB int, typeCost TypeCost) {
	centroidA := va.Transform.Point(va.Mesh.Polygons[polyA].Centroid)
	centroidB := vb.Transform.Point(vb.Mesh.Polygons[polyB].Centroid)
	portalMid := p1.Add(p2).Scale(0.5)

	dist := centroidA.Dist(portalMid) + portalMid.Dist(centroidB)
	costA := typeCost(na.Island, polyA)
	costB := typeCost(nb.Island, polyB)
	cost := dist * costA * costB

	idFwd := s.links.Insert(BoundaryLink{From: na, To: nb, PortalA: p1, PortalB: p2, Cost: cost})
	idBack := s.links.Insert(BoundaryLink{From: nb, To: na, PortalA: p2, PortalB: p1, Cost: cost, Back: idFwd})

	fwd, _ := s.links.Get(idFwd)
	fwd.Back = idBack

	s.byNode[na] = append(s.byNode[na], idFwd)
	s.byNode[nb] = append(s.byNode[nb], idBack)
}

func (s *Store) buildEdgeTree(edgeLinkDistance float32) *bvh.Tree {
	var bounds []geom.Bbox
	var payloads []bvh.Payload
	for _, edges := range s.islandEdges {
		for _, e := range edges {
			b := geom.Bbox{Min: e.a, Max: e.a}
			b.ExpandPoint(e.b)
			b = b.Inflate(edgeLinkDistance)
			bounds = append(bounds, b)
			payloads = append(payloads, e)
		}
	}
	return bvh.Build(bounds, payloads)
}

func worldBoundaryEdges(view IslandView) []edgeEntry {
	out := make([]edgeEntry, 0, len(view.Mesh.BoundaryEdges))
	for _, be := range view.Mesh.BoundaryEdges {
		a, b := view.Mesh.EdgePoints(be.Polygon, be.Edge)
		out = append(out, edgeEntry{
			island:  view.ID,
			polygon: be.Polygon,
			edge:    be.Edge,
			a:       view.Transform.Point(a),
			b:       view.Transform.Point(b),
		})
	}
	return out
}
