// Package archipelago is the container and orchestrator: it owns islands,
// agents, characters, node types and animation links, and drives them
// through the per-tick pipeline described by the teacher's detour/crowd
// split (detour owns static nav-mesh queries, crowd owns the per-agent
// update loop; Archipelago folds both roles into one boundary since the
// spec has no standalone "detour" layer of its own).
package archipelago

import (
	"github.com/arl/gogeo/f32/d3"

	"github.com/arl/archipelago/bvh"
	"github.com/arl/archipelago/geom"
	"github.com/arl/archipelago/idtable"
	"github.com/arl/archipelago/link"
	"github.com/arl/archipelago/navmesh"
	"github.com/arl/archipelago/navref"
	"github.com/arl/archipelago/xform"
)

// Transform is a convenience alias so callers configuring islands don't
// need to import package xform directly.
type Transform = xform.Transform

// Archipelago is the container of islands, agents, characters, links and
// node types (spec §3).
type Archipelago struct {
	opts Options

	islands    *idtable.Table[Island]
	agents     *idtable.Table[Agent]
	characters *idtable.Table[Character]
	nodeTypes  *idtable.Table[float32]

	animLinks     *idtable.Table[animLink]
	removedAnim   []idtable.ID

	links *link.Store

	navDataDirty bool
}

type animLink struct {
	decl  link.AnimationLinkDecl
	state *link.AnimationLinkState
}

// New constructs an empty Archipelago with the given options (spec §6).
func New(opts Options) *Archipelago {
	return &Archipelago{
		opts:       opts,
		islands:    idtable.New[Island](),
		agents:     idtable.New[Agent](),
		characters: idtable.New[Character](),
		nodeTypes:  idtable.New[float32](),
		animLinks:  idtable.New[animLink](),
		links:      link.NewStore(),
	}
}

// RegisterNodeType registers a node type with a traversal cost multiplier,
// which must be > 0 (spec §3, §7 NonPositiveNodeTypeCost).
func (a *Archipelago) RegisterNodeType(cost float32) (idtable.ID, Status) {
	if cost <= 0 {
		return idtable.ID{}, fail(NonPositiveNodeTypeCost)
	}
	return a.nodeTypes.Insert(cost), Success
}

func (a *Archipelago) nodeTypeCost(id idtable.ID) float32 {
	if c, ok := a.nodeTypes.Get(id); ok {
		return *c
	}
	return 1.0
}

// AddIsland inserts an empty island (no nav data yet) and returns its id.
func (a *Archipelago) AddIsland() idtable.ID {
	id := a.islands.Insert(Island{})
	inserted, _ := a.islands.Get(id)
	inserted.ID = id
	return id
}

// SetIslandNavData assigns (or replaces) an island's transform, mesh and
// type-index map, marking it dirty (spec §4.4).
func (a *Archipelago) SetIslandNavData(id idtable.ID, transform Transform, mesh *navmesh.ValidatedMesh, typeMap map[int]idtable.ID) bool {
	isl, ok := a.islands.Get(id)
	if !ok {
		return false
	}
	isl.Transform = transform
	isl.Mesh = mesh
	isl.TypeMap = typeMap
	isl.Dirty = true
	a.navDataDirty = true
	return true
}

// SetIslandTransform updates an island's placement, marking it dirty.
func (a *Archipelago) SetIslandTransform(id idtable.ID, t Transform) bool {
	isl, ok := a.islands.Get(id)
	if !ok {
		return false
	}
	isl.Transform = t
	isl.Dirty = true
	a.navDataDirty = true
	return true
}

// RemoveIsland removes an island and all boundary links incident to it.
func (a *Archipelago) RemoveIsland(id idtable.ID) bool {
	if !a.islands.Remove(id) {
		return false
	}
	a.links.RemoveIsland(id)
	a.navDataDirty = true
	return true
}

// AddAgent inserts an agent and returns its id (spec §3).
func (a *Archipelago) AddAgent(ag Agent) idtable.ID {
	ag.State = Idle
	if len(ag.Velocity) == 0 {
		ag.Velocity = d3.NewVec3XYZ(0, 0, 0)
	}
	id := a.agents.Insert(ag)
	inserted, _ := a.agents.Get(id)
	inserted.ID = id
	return id
}

// Agent returns a pointer to the live agent record for id, for the caller
// to read back desired velocity/state or mutate target/radius/etc (spec
// §6: "read back desired_velocity, state").
func (a *Archipelago) Agent(id idtable.ID) (*Agent, bool) { return a.agents.Get(id) }

// RemoveAgent removes an agent.
func (a *Archipelago) RemoveAgent(id idtable.ID) bool { return a.agents.Remove(id) }

// AddCharacter inserts a non-pathed, avoidance-only entity.
func (a *Archipelago) AddCharacter(c Character) idtable.ID {
	id := a.characters.Insert(c)
	inserted, _ := a.characters.Get(id)
	inserted.ID = id
	return id
}

// Character returns the live character record for id.
func (a *Archipelago) Character(id idtable.ID) (*Character, bool) { return a.characters.Get(id) }

// RemoveCharacter removes a character.
func (a *Archipelago) RemoveCharacter(id idtable.ID) bool { return a.characters.Remove(id) }

// AddAnimationLink declares a user off-mesh connection (spec §3, §4.6). It
// is resolved onto polygons during the next Update.
func (a *Archipelago) AddAnimationLink(decl link.AnimationLinkDecl) idtable.ID {
	a.navDataDirty = true
	return a.animLinks.Insert(animLink{decl: decl})
}

// RemoveAnimationLink removes an animation link; outstanding paths that
// cross it are treated as invalidated on the next Update.
func (a *Archipelago) RemoveAnimationLink(id idtable.ID) bool {
	if !a.animLinks.Remove(id) {
		return false
	}
	a.removedAnim = append(a.removedAnim, id)
	return true
}

// Links exposes the boundary-link store (implements path.World).
func (a *Archipelago) Links() *link.Store { return a.links }

// Mesh implements path.World.
func (a *Archipelago) Mesh(island idtable.ID) (*navmesh.ValidatedMesh, bool) {
	isl, ok := a.islands.Get(island)
	if !ok || isl.Mesh == nil {
		return nil, false
	}
	return isl.Mesh, true
}

// WorldPoint implements path.World: transforms a point in an island's local
// frame to world space.
func (a *Archipelago) WorldPoint(island idtable.ID, polygon int, local d3.Vec3) d3.Vec3 {
	isl, ok := a.islands.Get(island)
	if !ok {
		return local
	}
	return isl.Transform.Point(local)
}

// EdgePortal implements path.World: the world-space endpoints of a
// polygon's edge.
func (a *Archipelago) EdgePortal(island idtable.ID, polygon, edge int) (d3.Vec3, d3.Vec3) {
	isl, ok := a.islands.Get(island)
	if !ok || isl.Mesh == nil {
		return d3.Vec3{}, d3.Vec3{}
	}
	la, lb := isl.Mesh.EdgePoints(polygon, edge)
	return isl.Transform.Point(la), isl.Transform.Point(lb)
}

// IsDirty implements path.World.
func (a *Archipelago) IsDirty(island idtable.ID) bool {
	isl, ok := a.islands.Get(island)
	return !ok || isl.Dirty
}

// AnimationEdges implements path.World: the usable traversals out of node
// across every resolved animation link.
func (a *Archipelago) AnimationEdges(node navref.Node) []link.AnimationEdge {
	var out []link.AnimationEdge
	a.animLinks.Each(func(id idtable.ID, al *animLink) {
		if al.state == nil {
			return
		}
		for _, e := range link.Traversals(id, al.state) {
			if e.From == node {
				out = append(out, e)
			}
		}
	})
	return out
}

func (a *Archipelago) islandBvhPayloads() ([]geom.Bbox, []bvh.Payload) {
	var bounds []geom.Bbox
	var payloads []bvh.Payload
	a.islands.Each(func(id idtable.ID, isl *Island) {
		if isl.Mesh == nil {
			return
		}
		bounds = append(bounds, isl.worldBounds())
		payloads = append(payloads, id)
	})
	return bounds, payloads
}
