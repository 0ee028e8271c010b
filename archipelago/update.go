package archipelago

import (
	"github.com/arl/gogeo/f32/d3"
	"golang.org/x/sync/errgroup"

	"github.com/arl/archipelago/avoid"
	"github.com/arl/archipelago/bvh"
	"github.com/arl/archipelago/geom"
	"github.com/arl/archipelago/idtable"
	"github.com/arl/archipelago/link"
	"github.com/arl/archipelago/navref"
	fpath "github.com/arl/archipelago/path"
)

// Update runs one tick of the orchestrator's seven-step pipeline (spec
// §4.12). Steps 1-2 mutate shared archipelago state sequentially; steps
// 3-7 then run concurrently, one errgroup (golang.org/x/sync/errgroup)
// goroutine per agent, since no agent depends on another's result.
func (a *Archipelago) Update(dt float32) {
	a.resolveInvalidations()
	a.rebuildStitching()

	ids := a.agents.IDs()

	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			a.updateAgent(id, dt)
			return nil
		})
	}
	_ = g.Wait()
}

// resolveInvalidations drains the removed-boundary-link and removed-
// animation-link sets, dropping any cached agent path that used them (spec
// §4.12 step 1).
func (a *Archipelago) resolveInvalidations() {
	removedLinks := a.links.DrainRemoved()
	removedAnim := a.removedAnim
	a.removedAnim = nil

	if len(removedLinks) == 0 && len(removedAnim) == 0 {
		return
	}
	removed := make(map[idtable.ID]bool, len(removedLinks)+len(removedAnim))
	for _, id := range removedLinks {
		removed[id] = true
	}
	for _, id := range removedAnim {
		removed[id] = true
	}

	a.agents.Each(func(id idtable.ID, ag *Agent) {
		if ag.path == nil {
			return
		}
		for _, used := range ag.path.UsedLinks {
			if removed[used] {
				ag.path = nil
				return
			}
		}
	})
}

// rebuildStitching re-stitches boundary links for dirty islands and
// re-resolves dirty animation links, then clears dirty flags (spec §4.12
// step 2, §4.5, §4.6).
func (a *Archipelago) rebuildStitching() {
	var dirty []idtable.ID
	views := make(map[idtable.ID]link.IslandView)
	a.islands.Each(func(id idtable.ID, isl *Island) {
		if isl.Mesh == nil {
			return
		}
		views[id] = link.IslandView{ID: id, Mesh: isl.Mesh, Transform: isl.Transform}
		if isl.Dirty {
			dirty = append(dirty, id)
		}
	})

	if len(dirty) > 0 {
		a.links.Rebuild(dirty, views, a.opts.EdgeLinkDistance, a.typeCostOf)
	}

	if len(dirty) > 0 || a.navDataDirty {
		a.resolveAnimationLinks()
	}

	a.islands.Each(func(id idtable.ID, isl *Island) { isl.Dirty = false })
	a.navDataDirty = false
}

func (a *Archipelago) typeCostOf(island idtable.ID, polygon int) float32 {
	isl, ok := a.islands.Get(island)
	if !ok || isl.Mesh == nil {
		return 1.0
	}
	typeIdx := isl.Mesh.Polygons[polygon].TypeIndex
	nodeType, ok := isl.TypeMap[typeIdx]
	if !ok {
		return 1.0
	}
	return a.nodeTypeCost(nodeType)
}

func (a *Archipelago) resolveAnimationLinks() {
	tree := a.buildPolygonTriangleTree()
	a.animLinks.Each(func(id idtable.ID, al *animLink) {
		al.state = link.ResolveAnimationLink(al.decl, tree, a.opts.ObstacleMargin)
	})
}

func (a *Archipelago) buildPolygonTriangleTree() *bvh.Tree {
	var bounds []geom.Bbox
	var payloads []bvh.Payload
	a.islands.Each(func(id idtable.ID, isl *Island) {
		if isl.Mesh == nil {
			return
		}
		for pi, poly := range isl.Mesh.Polygons {
			verts := make([]d3.Vec3, len(poly.Verts))
			for i, vi := range poly.Verts {
				verts[i] = isl.Transform.Point(isl.Mesh.Vertices[vi])
			}
			centroid := isl.Transform.Point(poly.Centroid)
			wmin, wmax := isl.Transform.Bounds(poly.Bounds.Min, poly.Bounds.Max)
			b := geom.Bbox{Min: wmin, Max: wmax}
			bounds = append(bounds, b)
			payloads = append(payloads, link.PolygonTriangleFan{
				Node:     navref.Node{Island: id, Polygon: pi},
				Centroid: centroid,
				Bounds:   b,
				Verts:    verts,
			})
		}
	})
	return bvh.Build(bounds, payloads)
}

// updateAgent runs steps 3-7 for a single agent (spec §4.12). Per-agent
// scratch (sampled node, path, desired velocity, state) is disjoint by
// agent id, so no lock is needed across the fan-out.
func (a *Archipelago) updateAgent(id idtable.ID, dt float32) {
	ag, ok := a.agents.Get(id)
	if !ok {
		return
	}

	a.resample(ag)

	targetPoint, targetNode, targetOK := a.resolveTarget(ag)

	if ag.path != nil && !ag.path.IsValid(a) {
		ag.path = nil
	}
	if ag.path != nil && (ag.path.Start != ag.sampled.node || (targetOK && ag.path.Goal != targetNode)) {
		ag.path = nil
	}

	if !ag.sampled.valid {
		ag.State = AgentNotOnNavMesh
		ag.DesiredVelocity = a.avoidOnly(ag, d3.NewVec3XYZ(0, 0, 0))
		return
	}
	if ag.Target == nil {
		ag.State = Idle
		ag.path = nil
		ag.DesiredVelocity = a.avoidOnly(ag, d3.NewVec3XYZ(0, 0, 0))
		return
	}
	if !targetOK {
		ag.State = TargetNotOnNavMesh
		ag.DesiredVelocity = a.avoidOnly(ag, d3.NewVec3XYZ(0, 0, 0))
		return
	}

	if ag.path == nil {
		cost := a.costOverrideFn(ag)
		p, err := fpath.FindPath(a, ag.sampled.node, targetNode, cost)
		if err != nil {
			ag.State = NoPath
			ag.DesiredVelocity = a.avoidOnly(ag, d3.NewVec3XYZ(0, 0, 0))
			return
		}
		ag.path = p
		ag.pathHint = 0
	}

	reached := fpath.IsTargetReached(a, ag.ReachedCondition, ag.path, ag.Radius,
		ag.sampled.node.Island, ag.sampled.node.Polygon, ag.sampled.point,
		targetNode.Island, targetNode.Polygon, targetPoint, ag.pathHint)

	if reached {
		ag.State = ReachedTarget
		ag.DesiredVelocity = a.avoidOnly(ag, d3.NewVec3XYZ(0, 0, 0))
		return
	}

	res, hint := fpath.NextWaypoint(a, ag.path, ag.sampled.node.Island, ag.sampled.node.Polygon, ag.sampled.point,
		targetNode.Island, targetNode.Polygon, targetPoint, ag.pathHint)
	ag.pathHint = hint
	ag.State = Moving

	dir := res.Point.Sub(ag.sampled.point)
	n := dir.Dist(d3.NewVec3XYZ(0, 0, 0))
	var preferred d3.Vec3
	if n > 1e-6 {
		preferred = dir.Scale(ag.DesiredSpeed / n)
	}
	ag.DesiredVelocity = a.avoidOnly(ag, preferred)
}

func (a *Archipelago) costOverrideFn(ag *Agent) fpath.CostOverride {
	return func(island idtable.ID, polygon int) float32 {
		isl, ok := a.islands.Get(island)
		if !ok || isl.Mesh == nil {
			return 1.0
		}
		typeIdx := isl.Mesh.Polygons[polygon].TypeIndex
		nodeType, ok := isl.TypeMap[typeIdx]
		if !ok {
			return 1.0
		}
		if override, ok := ag.CostOverrides[nodeType]; ok {
			return override
		}
		return a.nodeTypeCost(nodeType)
	}
}

// avoidOnly runs the local-avoidance solve (spec §4.12 step 7).
func (a *Archipelago) avoidOnly(ag *Agent, preferred d3.Vec3) d3.Vec3 {
	var neighbors []avoid.Agent
	a.agents.Each(func(id idtable.ID, other *Agent) {
		if id == ag.ID {
			return
		}
		if d3.Vec3Dist2DSqr(ag.Position, other.Position) > a.opts.Neighbourhood*a.opts.Neighbourhood {
			return
		}
		neighbors = append(neighbors, avoid.Agent{Position: other.Position, Radius: other.Radius, Velocity: other.Velocity, IsPathed: true})
	})
	a.characters.Each(func(id idtable.ID, c *Character) {
		if d3.Vec3Dist2DSqr(ag.Position, c.Position) > a.opts.Neighbourhood*a.opts.Neighbourhood {
			return
		}
		neighbors = append(neighbors, avoid.Agent{Position: c.Position, Radius: c.Radius, Velocity: c.Velocity, IsPathed: false})
	})

	obstacles := a.nearbyObstacles(ag)

	return avoid.Solve(avoid.Agent{Position: ag.Position, Radius: ag.Radius, Velocity: ag.Velocity, IsPathed: true}, preferred, neighbors, obstacles, avoid.Params{
		MaxSpeed:             ag.MaxSpeed,
		AvoidanceTimeHorizon: a.opts.AvoidanceTimeHorizon,
		ObstacleTimeHorizon:  a.opts.ObstacleAvoidanceTimeHorizon,
	})
}

func (a *Archipelago) nearbyObstacles(ag *Agent) []avoid.Obstacle {
	var out []avoid.Obstacle
	a.islands.Each(func(id idtable.ID, isl *Island) {
		if isl.Mesh == nil {
			return
		}
		for _, be := range isl.Mesh.BoundaryEdges {
			la, lb := isl.Mesh.EdgePoints(be.Polygon, be.Edge)
			wa, wb := isl.Transform.Point(la), isl.Transform.Point(lb)
			mid := wa.Add(wb).Scale(0.5)
			if d3.Vec3Dist2DSqr(ag.Position, mid) > a.opts.ObstacleMargin*a.opts.ObstacleMargin {
				continue
			}
			out = append(out, avoid.Obstacle{A: wa, B: wb})
		}
	})
	return out
}
