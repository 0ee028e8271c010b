// Package scene loads archipelago configurations from YAML files
// (gopkg.in/yaml.v2), the way the teacher's sample packages load build
// settings from YAML (sample/solomesh/settings.go, cmd/recast/cmd/config.go)
// — except a scene describes a runnable archipelago (islands, node types,
// agents) rather than a mesh-build configuration.
package scene

import (
	"fmt"
	"io/ioutil"

	yaml "gopkg.in/yaml.v2"

	"github.com/arl/gogeo/f32/d3"

	"github.com/arl/archipelago/archipelago"
	"github.com/arl/archipelago/idtable"
	"github.com/arl/archipelago/navmesh"
)

// Vec3 is the YAML-friendly [x, y, z] form of a point.
type Vec3 [3]float32

func (v Vec3) toD3() d3.Vec3 { return d3.NewVec3XYZ(v[0], v[1], v[2]) }

// Mesh is a raw polygon soup as written in a scene file.
type Mesh struct {
	Vertices []Vec3  `yaml:"vertices"`
	Polygons [][]int `yaml:"polygons"`
	Types    []int   `yaml:"types"`
}

func (m Mesh) toRaw() navmesh.RawMesh {
	verts := make([]d3.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		verts[i] = v.toD3()
	}
	types := m.Types
	if types == nil {
		types = make([]int, len(m.Polygons))
	}
	return navmesh.RawMesh{Vertices: verts, Polygons: m.Polygons, PolygonTypeIndex: types}
}

// NodeType is a named node-type declaration with its traversal cost.
type NodeType struct {
	Name string  `yaml:"name"`
	Cost float32 `yaml:"cost"`
}

// Island is one island declaration: a mesh, a world placement, and the
// mesh-local type index -> node type name mapping.
type Island struct {
	Mesh     Mesh           `yaml:"mesh"`
	Position Vec3           `yaml:"position"`
	Yaw      float32        `yaml:"yaw"`
	TypeMap  map[int]string `yaml:"type_map"`
}

// Agent is one agent declaration.
type Agent struct {
	Position     Vec3    `yaml:"position"`
	Radius       float32 `yaml:"radius"`
	DesiredSpeed float32 `yaml:"desired_speed"`
	MaxSpeed     float32 `yaml:"max_speed"`
	Target       *Vec3   `yaml:"target"`
}

// Options mirrors archipelago.Options in YAML-friendly form.
type Options struct {
	Neighbourhood                float32 `yaml:"neighbourhood"`
	AvoidanceTimeHorizon         float32 `yaml:"avoidance_time_horizon"`
	ObstacleAvoidanceTimeHorizon float32 `yaml:"obstacle_avoidance_time_horizon"`
	ObstacleMargin               float32 `yaml:"obstacle_margin"`
	EdgeLinkDistance             float32 `yaml:"edge_link_distance"`
}

// Scene is the top-level document describing a runnable archipelago.
type Scene struct {
	Options   Options    `yaml:"options"`
	NodeTypes []NodeType `yaml:"node_types"`
	Islands   []Island   `yaml:"islands"`
	Agents    []Agent    `yaml:"agents"`
}

// Load reads and parses a scene file.
func Load(path string) (*Scene, error) {
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Scene
	if err := yaml.Unmarshal(buf, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Build constructs a ready-to-update Archipelago from the scene, validating
// every island's mesh and returning the first validation error found.
func (s *Scene) Build() (*archipelago.Archipelago, error) {
	opts := archipelago.DefaultOptions()
	if s.Options.Neighbourhood > 0 {
		opts.Neighbourhood = s.Options.Neighbourhood
	}
	if s.Options.AvoidanceTimeHorizon > 0 {
		opts.AvoidanceTimeHorizon = s.Options.AvoidanceTimeHorizon
	}
	if s.Options.ObstacleAvoidanceTimeHorizon > 0 {
		opts.ObstacleAvoidanceTimeHorizon = s.Options.ObstacleAvoidanceTimeHorizon
	}
	if s.Options.ObstacleMargin > 0 {
		opts.ObstacleMargin = s.Options.ObstacleMargin
	}
	if s.Options.EdgeLinkDistance > 0 {
		opts.EdgeLinkDistance = s.Options.EdgeLinkDistance
	}

	a := archipelago.New(opts)

	nameToID := make(map[string]idtable.ID, len(s.NodeTypes))
	for _, nt := range s.NodeTypes {
		id, st := a.RegisterNodeType(nt.Cost)
		if st.Failed() {
			return nil, fmt.Errorf("node type %q: %v", nt.Name, st)
		}
		nameToID[nt.Name] = id
	}

	for _, isl := range s.Islands {
		raw := isl.Mesh.toRaw()
		mesh, err := navmesh.Validate(raw)
		if err != nil {
			return nil, err
		}
		typeMap := make(map[int]idtable.ID, len(isl.TypeMap))
		for idx, name := range isl.TypeMap {
			id, ok := nameToID[name]
			if !ok {
				return nil, fmt.Errorf("island type_map references unknown node type %q", name)
			}
			typeMap[idx] = id
		}

		id := a.AddIsland()
		transform := archipelago.Transform{Position: isl.Position.toD3(), Yaw: isl.Yaw}
		if !a.SetIslandNavData(id, transform, mesh, typeMap) {
			return nil, fmt.Errorf("failed to set nav data for island")
		}
	}

	for _, ag := range s.Agents {
		rec := archipelago.Agent{
			Position:     ag.Position.toD3(),
			Radius:       ag.Radius,
			DesiredSpeed: ag.DesiredSpeed,
			MaxSpeed:     ag.MaxSpeed,
		}
		if ag.Target != nil {
			p := ag.Target.toD3()
			rec.Target = &archipelago.Target{Point: p}
		}
		a.AddAgent(rec)
	}

	return a, nil
}
