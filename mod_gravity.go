package accretion

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// GravityModule accumulates N-body gravitational attraction and tidal
// torque into ExternalForce/ExternalTorque for every pair of bodies within
// [MinGravityDist, MaxGravityDist] (§4.2). It runs in Physics, after the
// spatial index has been rebuilt for the tick and before the integrator
// consumes the accumulators.
type GravityModule struct{}

func (mod GravityModule) Install(app *App, cmd *Commands) {
	app.UseSystem(System(resetForceAccumulatorsSystem).InStage(Physics))
	app.UseSystem(System(gravitySystem).InStage(Physics))
}

// resetForceAccumulatorsSystem clears every body's accumulator before any
// generator (gravity, boundary, tractor) writes to it this tick (§5).
func resetForceAccumulatorsSystem(cmd *Commands) {
	MakeQuery1[ExternalForce](cmd).Map(func(eid EntityId, f *ExternalForce) bool {
		f.Vec = mgl32.Vec2{}
		return true
	})
	MakeQuery1[ExternalTorque](cmd).Map(func(eid EntityId, t *ExternalTorque) bool {
		t.Scalar = 0
		return true
	})
}

type gravityBody struct {
	id       EntityId
	pos      *Position
	orient   *Orientation
	force    *ExternalForce
	torque   *ExternalTorque
	size     *AsteroidSize
	vertices []mgl32.Vec2 // world-space, for tidal torque
}

func gravitySystem(cfg *SimConfig, idx *SpatialIndex, cmd *Commands) {
	g := cfg.GravityConst
	minDist := cfg.MinGravityDist
	maxDist := cfg.MaxGravityDist
	tidalScale := cfg.TidalTorqueScale

	// Planets DO participate in gravity (I6 only excludes them from
	// formation/impact outcomes), so no PlanetMarker filter here.
	var bodies []gravityBody
	MakeQuery5[Position, Orientation, ExternalForce, ExternalTorque, AsteroidSize](cmd).Map(
		func(eid EntityId, pos *Position, orient *Orientation, force *ExternalForce, torque *ExternalTorque, size *AsteroidSize) bool {
			bodies = append(bodies, gravityBody{id: eid, pos: pos, orient: orient, force: force, torque: torque, size: size})
			return true
		},
	)
	if len(bodies) < 2 {
		return
	}
	sort.Slice(bodies, func(i, j int) bool { return bodies[i].id < bodies[j].id })

	byID := make(map[EntityId]*gravityBody, len(bodies))
	for i := range bodies {
		byID[bodies[i].id] = &bodies[i]
	}

	if tidalScale != 0 {
		MakeQuery3[Position, Orientation, Vertices](cmd).Map(
			func(eid EntityId, pos *Position, orient *Orientation, v *Vertices) bool {
				if b, ok := byID[eid]; ok {
					b.vertices = worldVertices(v.Local, pos.Vec, orient.Radians)
				}
				return true
			},
		)
	}

	var neighbors []EntityId
	for i := range bodies {
		a := &bodies[i]
		neighbors = idx.Query(a.pos.Vec, maxDist, a.id, neighbors)

		for _, nid := range neighbors {
			if nid <= a.id {
				continue // single-visit: only process id_j > id_i
			}
			b, ok := byID[nid]
			if !ok {
				continue // neighbor lacks a component the gravity query requires
			}

			delta := b.pos.Vec.Sub(a.pos.Vec)
			r := delta.Len()
			if r < minDist || r > maxDist {
				continue // P-Gravity-Skip
			}

			dir := delta.Mul(1 / r)
			mag := g * float32(a.size.Mass) * float32(b.size.Mass) / (r * r)
			f := dir.Mul(mag)

			a.force.Vec = a.force.Vec.Add(f)
			b.force.Vec = b.force.Vec.Sub(f)

			if tidalScale != 0 {
				applyTidalTorque(a, b, g, tidalScale)
				applyTidalTorque(b, a, g, tidalScale)
			}
		}
	}
}

// applyTidalTorque accumulates the torque on body from the differential
// gravity of other across body's own vertices (§4.2).
func applyTidalTorque(body, other *gravityBody, g, scale float32) {
	if len(body.vertices) == 0 {
		return
	}
	massOther := float32(other.size.Mass)
	gAtCentroid := gravAccel(body.pos.Vec, other.pos.Vec, massOther, g)

	var torque float32
	for _, v := range body.vertices {
		gAtVertex := gravAccel(v, other.pos.Vec, massOther, g)
		deltaG := gAtVertex.Sub(gAtCentroid)
		torque += cross2(v.Sub(body.pos.Vec), deltaG)
	}
	body.torque.Scalar += torque * scale
}

// gravAccel is the acceleration a unit-less test point at p experiences
// from a mass m at source, a·=G·m/r² toward source.
func gravAccel(p, source mgl32.Vec2, mass, g float32) mgl32.Vec2 {
	delta := source.Sub(p)
	r := delta.Len()
	if r < 1e-6 {
		return mgl32.Vec2{}
	}
	return delta.Mul(g * mass / (r * r * r))
}
