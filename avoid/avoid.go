// Package avoid computes an agent's constrained optimum velocity from its
// preferred velocity and the set of nearby agents and static obstacle edges,
// using an RVO-style velocity obstacle formulation solved as a 2D linear
// program, with a 3-variable ORCA-style fallback when no feasible velocity
// exists (spec §4.11). There is no single direct analogue for this solver
// in the detour/crowd sample code this module otherwise follows (the
// teacher's crowd.ObstacleAvoidanceQuery samples candidate velocities on a
// grid rather than solving an LP) — the half-plane constraint construction
// and incremental 2D LP below follow the RVO2 formulation the spec
// describes, written in the teacher's style (plain structs, preallocated
// scratch slices, no external solver dependency).
package avoid

import (
	"github.com/arl/gogeo/f32/d3"
	"github.com/arl/math32"
)

// Agent is a moving obstacle: a neighbor with a position, radius, current
// velocity and an IsPathed flag (a pathed agent rather than a passive
// character) used to decide how much of the avoidance burden it shares
// (spec §4.11: "mutual avoidance when the neighbor is also a pathed
// agent").
type Agent struct {
	Position   d3.Vec3
	Radius     float32
	Velocity   d3.Vec3
	IsPathed   bool
}

// Obstacle is a single static edge (island boundary or off-mesh link rim)
// within the obstacle margin of the agent being solved for.
type Obstacle struct {
	A, B d3.Vec3
}

// Params bounds the avoidance solve (spec §4.11, §3 Options).
type Params struct {
	MaxSpeed             float32
	AvoidanceTimeHorizon float32
	ObstacleTimeHorizon  float32
}

// line is a half-plane constraint: velocities v with Perp2D(v-point,
// direction) <= 0 are feasible (direction points along the boundary of the
// infeasible region, point is any point on it).
type line struct {
	point     d3.Vec3
	direction d3.Vec3
}

// Solve computes self's constrained optimum velocity given its preferred
// velocity, nearby agents and nearby static obstacle edges (spec §4.11).
func Solve(self Agent, preferred d3.Vec3, neighbors []Agent, obstacles []Obstacle, p Params) d3.Vec3 {
	var lines []line

	for _, obs := range obstacles {
		if l, ok := obstacleConstraint(self, obs, p.ObstacleTimeHorizon); ok {
			lines = append(lines, l)
		}
	}

	for _, n := range neighbors {
		lines = append(lines, agentConstraint(self, n, p.AvoidanceTimeHorizon))
	}

	result, fail := linearProgram2(lines, p.MaxSpeed, preferred, false)
	if fail < len(lines) {
		result = linearProgram3(lines, fail, p.MaxSpeed, result)
	}
	return result
}

// agentConstraint builds the RVO half-plane for one neighbor (spec §4.11:
// "truncated by avoidance_time_horizon, shifted for mutual avoidance when
// the neighbor is also a pathed agent, or full shift onto the neighbor
// otherwise").
func agentConstraint(self Agent, other Agent, horizon float32) line {
	relPos := other.Position.Sub(self.Position)
	relVel := self.Velocity.Sub(other.Velocity)
	distSqr := d3.Vec3Dist2DSqr(self.Position, other.Position)
	combinedRadius := self.Radius + other.Radius
	combinedRadiusSqr := combinedRadius * combinedRadius

	var u d3.Vec3
	var dir d3.Vec3

	if distSqr > combinedRadiusSqr {
		// No collision yet: truncate the velocity obstacle cone at 1/horizon
		// and project relVel onto its boundary.
		w := relVel.Sub(relPos.Scale(1 / horizon))
		wLengthSqr := dot2D(w, w)
		dotProduct := dot2D(w, relPos)

		if dotProduct < 0 && dotProduct*dotProduct > combinedRadiusSqr*wLengthSqr {
			// Project on cut-off circle.
			wLength := math32.Sqrt(wLengthSqr)
			unitW := w.Scale(1 / wLength)
			dir = d3.NewVec3XYZ(unitW[1], -unitW[0], 0)
			u = unitW.Scale(combinedRadius/horizon - wLength)
		} else {
			// Project on legs.
			leg := math32.Sqrt(distSqr - combinedRadiusSqr)
			if cross2D(relPos, w) > 0 {
				dir = d3.NewVec3XYZ(
					relPos[0]*leg-relPos[1]*combinedRadius,
					relPos[1]*leg+relPos[0]*combinedRadius,
					0,
				).Scale(1 / distSqr)
			} else {
				dir = d3.NewVec3XYZ(
					relPos[0]*leg+relPos[1]*combinedRadius,
					relPos[1]*leg-relPos[0]*combinedRadius,
					0,
				).Scale(-1 / distSqr)
			}
			dotProduct2 := dot2D(relVel, dir)
			u = dir.Scale(dotProduct2).Sub(relVel)
		}
	} else {
		// Already colliding: constrain based on the current time step, not
		// the horizon, to push the agents apart immediately.
		invTimeStep := float32(1.0)
		w := relVel.Sub(relPos.Scale(invTimeStep))
		wLength := w.Dist(d3.NewVec3XYZ(0, 0, 0))
		unitW := w.Scale(1 / wLength)
		dir = d3.NewVec3XYZ(unitW[1], -unitW[0], 0)
		u = unitW.Scale(combinedRadius*invTimeStep - wLength)
	}

	shift := float32(0.5)
	if other.IsPathed {
		shift = 0.5 // both sides pathed: split the correction evenly
	} else {
		shift = 1.0 // passive character: self absorbs the full correction
	}

	point := self.Velocity.Add(u.Scale(shift))
	return line{point: point, direction: dir}
}

// obstacleConstraint builds a static half-plane for one obstacle edge,
// treating it as a zero-velocity neighbor with the edge's perpendicular
// offset as its effective radius contribution (spec §4.11 "nearby boundary
// edges within obstacle_margin").
func obstacleConstraint(self Agent, obs Obstacle, horizon float32) (line, bool) {
	edge := obs.B.Sub(obs.A)
	edgeLenSqr := dot2D(edge, edge)
	if edgeLenSqr < 1e-8 {
		return line{}, false
	}

	toSelf := self.Position.Sub(obs.A)
	t := dot2D(toSelf, edge) / edgeLenSqr
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	closest := obs.A.Add(edge.Scale(t))
	relPos := closest.Sub(self.Position)

	if distSqr := dot2D(relPos, relPos); distSqr < self.Radius*self.Radius {
		// Already overlapping the edge: forbid any velocity component
		// toward it, via a boundary through zero velocity.
		n := math32.Sqrt(distSqr)
		if n < 1e-6 {
			return line{}, false
		}
		return line{point: d3.NewVec3XYZ(0, 0, 0), direction: d3.NewVec3XYZ(-relPos[1]/n, relPos[0]/n, 0)}, true
	}

	w := self.Velocity.Sub(relPos.Scale(1 / horizon))
	wLengthSqr := dot2D(w, w)
	if wLengthSqr < 1e-8 {
		return line{}, false
	}
	wLength := math32.Sqrt(wLengthSqr)
	unitW := w.Scale(1 / wLength)

	dir := d3.NewVec3XYZ(unitW[1], -unitW[0], 0)
	u := unitW.Scale(self.Radius/horizon - wLength)

	return line{point: self.Velocity.Add(u), direction: dir}, true
}

func dot2D(a, b d3.Vec3) float32 { return a[0]*b[0] + a[1]*b[1] }
func cross2D(a, b d3.Vec3) float32 { return a[0]*b[1] - a[1]*b[0] }

// satisfiesConstraint reports whether velocity v lies on the feasible side
// of l.
func satisfiesConstraint(l line, v d3.Vec3) bool {
	return cross2D(l.direction, l.point.Sub(v)) <= 0
}

// linearProgram1 solves the 1D problem of finding the point on lines[lineNo]
// closest to optVelocity (or, if optimizeDirection, furthest in that
// direction) that satisfies every earlier constraint, clamped to radius.
func linearProgram1(lines []line, lineNo int, radius float32, optVelocity d3.Vec3, optimizeDirection bool) (d3.Vec3, bool) {
	l := lines[lineNo]
	dotProduct := dot2D(l.point, l.direction)
	discriminant := dotProduct*dotProduct + radius*radius - dot2D(l.point, l.point)
	if discriminant < 0 {
		return d3.Vec3{}, false
	}

	sqrtDiscriminant := math32.Sqrt(discriminant)
	tLeft := -dotProduct - sqrtDiscriminant
	tRight := -dotProduct + sqrtDiscriminant

	for i := 0; i < lineNo; i++ {
		other := lines[i]
		denominator := cross2D(l.direction, other.direction)
		numerator := cross2D(other.direction, l.point.Sub(other.point))

		if math32.Abs(denominator) < 1e-8 {
			if numerator < 0 {
				return d3.Vec3{}, false
			}
			continue
		}

		t := numerator / denominator
		if denominator >= 0 {
			tRight = math32.Min(tRight, t)
		} else {
			tLeft = math32.Max(tLeft, t)
		}
		if tLeft > tRight {
			return d3.Vec3{}, false
		}
	}

	var t float32
	if optimizeDirection {
		if dot2D(optVelocity, l.direction) > 0 {
			t = tRight
		} else {
			t = tLeft
		}
	} else {
		t = dot2D(l.direction, optVelocity.Sub(l.point))
		if t < tLeft {
			t = tLeft
		} else if t > tRight {
			t = tRight
		}
	}

	return l.point.Add(l.direction.Scale(t)), true
}

// linearProgram2 solves for the feasible velocity closest to preferred
// (or, if optimizeDirection, the feasible velocity furthest along preferred
// as a direction, scaled to maxSpeed), via incremental constraint
// satisfaction (Seidel's randomized LP, specialized to 2 dimensions). It
// returns the number of constraints actually satisfied; a return equal to
// len(lines) means full success.
func linearProgram2(lines []line, maxSpeed float32, preferred d3.Vec3, optimizeDirection bool) (d3.Vec3, int) {
	var result d3.Vec3
	switch {
	case optimizeDirection:
		result = preferred.Scale(maxSpeed)
	case dot2D(preferred, preferred) > maxSpeed*maxSpeed:
		n := preferred.Dist(d3.NewVec3XYZ(0, 0, 0))
		result = preferred.Scale(maxSpeed / n)
	default:
		result = preferred
	}

	for i, l := range lines {
		if satisfiesConstraint(l, result) {
			continue
		}
		v, ok := linearProgram1(lines, i, maxSpeed, preferred, optimizeDirection)
		if !ok {
			return result, i
		}
		result = v
	}
	return result, len(lines)
}

// linearProgram3 is the ORCA-style fallback used when linearProgram2 found
// no velocity satisfying every constraint: starting from the line where
// linearProgram2 first failed, it minimizes the maximum constraint
// violation among the remaining lines (spec §4.11: "3-variable LP that
// finds the velocity minimizing the maximum constraint violation").
func linearProgram3(lines []line, beginLine int, maxSpeed float32, result d3.Vec3) d3.Vec3 {
	var distance float32

	for i := beginLine; i < len(lines); i++ {
		l := lines[i]
		if cross2D(l.direction, l.point.Sub(result)) <= distance {
			continue
		}

		var projLines []line
		for j := 0; j < i; j++ {
			other := lines[j]
			var newLine line
			determinant := cross2D(l.direction, other.direction)
			if math32.Abs(determinant) < 1e-8 {
				if dot2D(l.direction, other.direction) > 0 {
					continue
				}
				newLine.point = l.point.Add(other.point).Scale(0.5)
			} else {
				t := cross2D(other.direction, l.point.Sub(other.point)) / determinant
				newLine.point = l.point.Add(l.direction.Scale(t))
			}
			dir := other.direction.Sub(l.direction)
			n := dir.Dist(d3.NewVec3XYZ(0, 0, 0))
			if n < 1e-8 {
				continue
			}
			newLine.direction = dir.Scale(1 / n)
			projLines = append(projLines, newLine)
		}

		optDir := d3.NewVec3XYZ(-l.direction[1], l.direction[0], 0)
		result, _ = linearProgram2(projLines, maxSpeed, optDir, true)
		distance = cross2D(l.direction, l.point.Sub(result))
	}
	return result
}
