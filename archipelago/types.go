package archipelago

import (
	"github.com/arl/gogeo/f32/d3"

	"github.com/arl/archipelago/geom"
	"github.com/arl/archipelago/idtable"
	"github.com/arl/archipelago/navmesh"
	"github.com/arl/archipelago/navref"
	fpath "github.com/arl/archipelago/path"
	"github.com/arl/archipelago/xform"
)

// PointSampleDistance bounds sample_point's search volume around a query
// point (spec §6): horizontal radius, vertical distances above/below the
// polygon plane, and a preference ratio used to break ties between
// candidate polygons at different heights.
type PointSampleDistance struct {
	Horizontal              float32
	Above                   float32
	Below                   float32
	VerticalPreferenceRatio float32
}

// Options configures an Archipelago at construction (spec §6).
type Options struct {
	Neighbourhood                float32
	AvoidanceTimeHorizon         float32
	ObstacleAvoidanceTimeHorizon float32
	ObstacleMargin               float32
	EdgeLinkDistance             float32
	PointSampleDistance          PointSampleDistance
	Coords                       xform.CoordinateSystem
}

// DefaultOptions returns the default options (spec §6): edge link distance
// 1cm and a fixed neighbourhood of 5, since there is no archipelago-wide
// agent radius to scale a neighbourhood from.
func DefaultOptions() Options {
	return Options{
		Neighbourhood:                5,
		AvoidanceTimeHorizon:         2,
		ObstacleAvoidanceTimeHorizon: 1,
		ObstacleMargin:               1,
		EdgeLinkDistance:             0.01,
		PointSampleDistance:          PointSampleDistance{Horizontal: 0.5, Above: 1, Below: 1, VerticalPreferenceRatio: 1},
		Coords:                       xform.ThreeD{},
	}
}

// Island is one validated navigation mesh placed in the world via a rigid
// transform (spec §3).
type Island struct {
	ID        idtable.ID
	Transform xform.Transform
	Mesh      *navmesh.ValidatedMesh
	// TypeMap maps the mesh's local polygon type indices onto registered
	// node-type IDs; indices absent from the map use the default cost 1.0
	// (spec §4.4).
	TypeMap map[int]idtable.ID
	Dirty   bool
	Bounds  geom.Bbox
}

func (isl *Island) hasNavData() bool { return isl.Mesh != nil }

func (isl *Island) worldBounds() geom.Bbox {
	if isl.Mesh == nil {
		return geom.EmptyBbox()
	}
	wmin, wmax := isl.Transform.Bounds(isl.Mesh.Bounds.Min, isl.Mesh.Bounds.Max)
	return geom.Bbox{Min: wmin, Max: wmax}
}

// EntityKind distinguishes what an agent's entity target refers to.
type EntityKind int

const (
	EntityAgent EntityKind = iota
	EntityCharacter
)

// EntityRef is a target that tracks another moving entity instead of a
// fixed point (spec §3: "optional target (either a point or a reference to
// another agent)").
type EntityRef struct {
	Kind EntityKind
	ID   idtable.ID
}

// Target is an agent's destination: a fixed point or another entity,
// resolved to a point fresh each tick when it is an entity reference.
type Target struct {
	Point  d3.Vec3
	Entity *EntityRef
}

// AgentState is the agent's computed state each tick (spec §3, §4.12).
type AgentState int

const (
	Idle AgentState = iota
	Moving
	ReachedTarget
	AgentNotOnNavMesh
	TargetNotOnNavMesh
	NoPath
)

func (s AgentState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Moving:
		return "Moving"
	case ReachedTarget:
		return "ReachedTarget"
	case AgentNotOnNavMesh:
		return "AgentNotOnNavMesh"
	case TargetNotOnNavMesh:
		return "TargetNotOnNavMesh"
	case NoPath:
		return "NoPath"
	default:
		return "Unknown"
	}
}

// sampledNode caches an agent or character's last resolved node and the
// point on it, so resampling can be skipped until the entity moves more
// than its radius (spec §4.10).
type sampledNode struct {
	valid bool
	node  navref.Node
	point d3.Vec3
}

// Agent is a pathed, avoidance-participating entity (spec §3).
type Agent struct {
	ID idtable.ID

	Position d3.Vec3
	Velocity d3.Vec3
	Radius   float32

	DesiredSpeed float32
	MaxSpeed     float32

	Target *Target

	// CostOverrides maps node-type id -> cost, overriding the archipelago's
	// registered cost for this agent's pathfinding only.
	CostOverrides map[idtable.ID]float32

	ReachedCondition fpath.TargetReachedCondition

	State AgentState

	sampled       sampledNode
	targetSampled sampledNode
	path          *fpath.Path
	pathHint      int

	DesiredVelocity d3.Vec3
}

// Character is a non-pathed entity that still participates in avoidance
// (spec §3).
type Character struct {
	ID       idtable.ID
	Position d3.Vec3
	Velocity d3.Vec3
	Radius   float32
}
