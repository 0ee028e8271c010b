package archipelago

import (
	"github.com/arl/gogeo/f32/d3"

	"github.com/arl/archipelago/navref"
)

// resample refreshes ag's cached (node, node_point) if it is stale: never
// sampled, or moved more than its radius since the last sample (spec §4.10,
// §4.12 step 3).
func (a *Archipelago) resample(ag *Agent) {
	if ag.sampled.valid && d3.Vec3Dist2DSqr(ag.sampled.point, ag.Position) < ag.Radius*ag.Radius {
		return
	}
	node, point, st := a.SamplePoint(ag.Position, a.opts.PointSampleDistance)
	if st.Failed() {
		ag.sampled = sampledNode{}
		return
	}
	ag.sampled = sampledNode{valid: true, node: node, point: point}
}

// resolveTarget resolves ag's target to a concrete point and sampled node,
// re-sampling the cached target node only if it moved more than the
// agent's radius (spec §4.10, §4.12 step 3: "or the target moved more than
// its radius").
func (a *Archipelago) resolveTarget(ag *Agent) (point d3.Vec3, node navref.Node, ok bool) {
	if ag.Target == nil {
		return d3.Vec3{}, navref.Node{}, false
	}

	point = ag.Target.Point
	if ag.Target.Entity != nil {
		switch ag.Target.Entity.Kind {
		case EntityAgent:
			other, found := a.agents.Get(ag.Target.Entity.ID)
			if !found {
				return d3.Vec3{}, navref.Node{}, false
			}
			point = other.Position
		case EntityCharacter:
			other, found := a.characters.Get(ag.Target.Entity.ID)
			if !found {
				return d3.Vec3{}, navref.Node{}, false
			}
			point = other.Position
		}
	}

	if ag.targetSampled.valid && d3.Vec3Dist2DSqr(ag.targetSampled.point, point) < ag.Radius*ag.Radius {
		return point, ag.targetSampled.node, true
	}

	node, samplePoint, st := a.SamplePoint(point, a.opts.PointSampleDistance)
	if st.Failed() {
		ag.targetSampled = sampledNode{}
		return point, navref.Node{}, false
	}
	ag.targetSampled = sampledNode{valid: true, node: node, point: samplePoint}
	return point, node, true
}
