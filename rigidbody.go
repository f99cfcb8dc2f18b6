package accretion

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// ContactPair is an unordered pair of entities in contact for the current
// tick, as produced by the rigid-body integrator (§6.1). EntityA is always
// the smaller EntityId so callers get a stable, single-visit representation
// (mirrors the gravity pair-enumeration rule in §4.2).
type ContactPair struct {
	EntityA, EntityB EntityId
	Normal           mgl32.Vec2 // points from A to B
	Point            mgl32.Vec2 // world-space contact point, used by impact resolvers
}

// ContactSet is the authoritative contact-pair set for the current tick,
// populated by RigidBodyModule after integration and consumed by the
// formation arbiter and impact resolvers. Per §5's critical ordering
// constraint, nothing downstream may read it before PostPhysics.
type ContactSet struct {
	pairs     []ContactPair
	byEntity  map[EntityId][]int // index into pairs, for has_contact/contact_pairs(entity)
}

func newContactSet() *ContactSet {
	return &ContactSet{byEntity: make(map[EntityId][]int)}
}

func (cs *ContactSet) reset() {
	cs.pairs = cs.pairs[:0]
	for k := range cs.byEntity {
		delete(cs.byEntity, k)
	}
}

func (cs *ContactSet) add(pair ContactPair) {
	idx := len(cs.pairs)
	cs.pairs = append(cs.pairs, pair)
	cs.byEntity[pair.EntityA] = append(cs.byEntity[pair.EntityA], idx)
	cs.byEntity[pair.EntityB] = append(cs.byEntity[pair.EntityB], idx)
}

// Pairs returns every contact pair for the current tick.
func (cs *ContactSet) Pairs() []ContactPair { return cs.pairs }

// HasContact reports whether entity touched anything this tick.
func (cs *ContactSet) HasContact(entity EntityId) bool {
	return len(cs.byEntity[entity]) > 0
}

// ContactsFor returns every contact pair involving entity.
func (cs *ContactSet) ContactsFor(entity EntityId) []ContactPair {
	idxs := cs.byEntity[entity]
	if len(idxs) == 0 {
		return nil
	}
	out := make([]ContactPair, len(idxs))
	for i, idx := range idxs {
		out[i] = cs.pairs[idx]
	}
	return out
}

// RigidBodyModule is a minimal separating-axis-theorem contact resolver
// standing in for the external integrator §1 treats as a black box: it
// integrates ExternalForce/ExternalTorque into velocity and pose, applies a
// simple elastic impulse along the contact normal, and populates ContactSet
// so the formation arbiter and impact resolvers have something authoritative
// to read every tick. A production deployment swaps this module out for a
// dedicated physics engine without touching anything downstream — the
// contract is entirely the Collider/ContactSet/apply_force surface in §6.1.
type RigidBodyModule struct {
	// Restitution is the elastic-collision coefficient for the stand-in
	// resolver (1.0 = fully elastic).
	Restitution float32
}

func (mod RigidBodyModule) Install(app *App, cmd *Commands) {
	restitution := mod.Restitution
	if restitution <= 0 {
		restitution = 0.8
	}

	cmd.AddResources(newContactSet())

	app.UseSystem(System(collisionSyncSystem).InStage(Physics))
	app.UseSystem(System(integrateForcesSystem).InStage(Physics))
	app.UseSystem(System(func(cs *ContactSet, cmd *Commands) {
		resolveContactsSystem(cs, restitution, cmd)
	}).InStage(Physics))
}

// collisionSyncSystem keeps Collider.World equal to the rotated+translated
// Vertices every tick, enforcing I3.
func collisionSyncSystem(cmd *Commands) {
	MakeQuery4[Position, Orientation, Vertices, Collider](cmd).Map(
		func(eid EntityId, pos *Position, orient *Orientation, verts *Vertices, col *Collider) bool {
			col.World = worldVertices(verts.Local, pos.Vec, orient.Radians)
			return true
		},
	)
}

// integrateForcesSystem applies accumulated force/torque (divided by mass)
// to velocity, integrates velocity into position, then clears the
// accumulators for the next tick's generators (§5: "reset at the start of
// each physics step before any generator writes to it" — here the clear
// happens at the end of the step it was consumed in, which is equivalent
// since nothing else reads it in between).
func integrateForcesSystem(t *Time, cmd *Commands) {
	dt := float32(t.Dt)
	if dt <= 0 {
		return
	}
	MakeQuery4[Position, LinearVelocity, ExternalForce, AsteroidSize](cmd).Map(
		func(eid EntityId, pos *Position, vel *LinearVelocity, force *ExternalForce, size *AsteroidSize) bool {
			mass := float32(size.Mass)
			if mass <= 0 {
				mass = 1
			}
			vel.Vec = vel.Vec.Add(force.Vec.Mul(dt / mass))
			pos.Vec = pos.Vec.Add(vel.Vec.Mul(dt))
			force.Vec = mgl32.Vec2{}
			return true
		},
	)

	MakeQuery3[Orientation, AngularVelocity, ExternalTorque](cmd).Map(
		func(eid EntityId, orient *Orientation, angVel *AngularVelocity, torque *ExternalTorque) bool {
			inertia := float32(1)
			angVel.Radians += torque.Scalar * dt / inertia
			orient.Radians += angVel.Radians * dt
			torque.Scalar = 0
			return true
		},
	)
}

// resolveContactsSystem does a brute-force O(N^2) SAT pass over collider
// pairs sharing a compatible collision group, applies a simple normal
// impulse, and records every touching pair into ContactSet. Pair
// enumeration follows the same id_j > id_i single-visit rule as gravity.
func resolveContactsSystem(cs *ContactSet, restitution float32, cmd *Commands) {
	cs.reset()

	type body struct {
		id    EntityId
		pos   *Position
		vel   *LinearVelocity
		size  *AsteroidSize
		coll  *Collider
	}
	var bodies []body
	MakeQuery4[Position, LinearVelocity, AsteroidSize, Collider](cmd).Map(
		func(eid EntityId, pos *Position, vel *LinearVelocity, size *AsteroidSize, coll *Collider) bool {
			bodies = append(bodies, body{eid, pos, vel, size, coll})
			return true
		},
	)
	sort.Slice(bodies, func(i, j int) bool { return bodies[i].id < bodies[j].id })

	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			a, b := bodies[i], bodies[j]
			if !collisionGroupsInteract(a.coll.Group, b.coll.Group) {
				continue
			}
			hit, normal, depth, point := satOverlap(a.coll.World, b.coll.World)
			if !hit {
				continue
			}

			cs.add(ContactPair{EntityA: a.id, EntityB: b.id, Normal: normal, Point: point})

			if a.coll.Group == GroupOrePickup || b.coll.Group == GroupOrePickup {
				continue // sensors: no impulse
			}

			massA, massB := float32(a.size.Mass), float32(b.size.Mass)
			if massA <= 0 {
				massA = 1
			}
			if massB <= 0 {
				massB = 1
			}
			invA, invB := 1/massA, 1/massB

			relVel := b.vel.Vec.Sub(a.vel.Vec)
			velAlongNormal := relVel.Dot(normal)
			if velAlongNormal < 0 {
				j := -(1 + restitution) * velAlongNormal / (invA + invB)
				impulse := normal.Mul(j)
				a.vel.Vec = a.vel.Vec.Sub(impulse.Mul(invA))
				b.vel.Vec = b.vel.Vec.Add(impulse.Mul(invB))
			}

			// Positional correction to prevent sustained overlap from
			// masking as a contact on every subsequent tick.
			correction := normal.Mul(depth / (invA + invB) * 0.2)
			a.pos.Vec = a.pos.Vec.Sub(correction.Mul(invA))
			b.pos.Vec = b.pos.Vec.Add(correction.Mul(invB))
		}
	}
}

func collisionGroupsInteract(a, b CollisionGroup) bool {
	if a == GroupOrePickup || b == GroupOrePickup {
		// ore pickups are sensors: collide (to detect contact) with the
		// player ship only.
		return (a == GroupOrePickup && b == GroupPlayerShip) || (b == GroupOrePickup && a == GroupPlayerShip)
	}
	if a == GroupPlayerWeapon || b == GroupPlayerWeapon {
		// weapons collide with asteroids and (conceptually) enemy ships;
		// the core only models the asteroid side.
		return a == GroupAsteroid || b == GroupAsteroid
	}
	return true // asteroids collide with all three per §6.1
}

// satOverlap is a 2-D separating-axis test over two convex polygons. Returns
// whether they overlap, the minimum-translation-vector normal (pointing
// from a to b), the penetration depth, and an approximate contact point
// (the deepest vertex of the "losing" polygon).
func satOverlap(a, b []mgl32.Vec2) (bool, mgl32.Vec2, float32, mgl32.Vec2) {
	if len(a) < 3 || len(b) < 3 {
		return false, mgl32.Vec2{}, 0, mgl32.Vec2{}
	}

	minDepth := float32(math.MaxFloat32)
	var minAxis mgl32.Vec2

	test := func(poly []mgl32.Vec2) bool {
		n := len(poly)
		for i := 0; i < n; i++ {
			edge := poly[(i+1)%n].Sub(poly[i])
			axis := mgl32.Vec2{-edge.Y(), edge.X()}
			if l := axis.Len(); l > 1e-9 {
				axis = axis.Mul(1 / l)
			} else {
				continue
			}

			aMin, aMax := projectPolygon(a, axis)
			bMin, bMax := projectPolygon(b, axis)
			overlap := math.Min(float64(aMax), float64(bMax)) - math.Max(float64(aMin), float64(bMin))
			if overlap <= 0 {
				return false
			}
			if float32(overlap) < minDepth {
				minDepth = float32(overlap)
				minAxis = axis
				// orient axis from a's centroid toward b's centroid
				if polygonCentroid(b).Sub(polygonCentroid(a)).Dot(minAxis) < 0 {
					minAxis = minAxis.Mul(-1)
				}
			}
		}
		return true
	}

	if !test(a) || !test(b) {
		return false, mgl32.Vec2{}, 0, mgl32.Vec2{}
	}

	point := deepestVertex(b, minAxis.Mul(-1))
	return true, minAxis, minDepth, point
}

func projectPolygon(poly []mgl32.Vec2, axis mgl32.Vec2) (float32, float32) {
	min := poly[0].Dot(axis)
	max := min
	for _, v := range poly[1:] {
		p := v.Dot(axis)
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	return min, max
}

func deepestVertex(poly []mgl32.Vec2, direction mgl32.Vec2) mgl32.Vec2 {
	best := poly[0]
	bestDot := best.Dot(direction)
	for _, v := range poly[1:] {
		d := v.Dot(direction)
		if d > bestDot {
			bestDot = d
			best = v
		}
	}
	return best
}
