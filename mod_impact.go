package accretion

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ImpactModule consumes projectile/missile contacts against non-planet
// asteroids and resolves them into destroy, chip, split, or full-decompose
// outcomes per the §4.5 decision tables. It runs in PostPhysics, after
// FormationModule, so a same-tick merge is visible before impact resolution
// decides what it's hitting.
type ImpactModule struct{}

func (mod ImpactModule) Install(app *App, cmd *Commands) {
	app.UseSystem(System(impactSystem).InStage(PostPhysics))
}

func impactSystem(contacts *ContactSet, cfg *SimConfig, telemetry *Telemetry, cmd *Commands) {
	for _, pair := range contacts.Pairs() {
		projectile, target := pair.EntityA, pair.EntityB
		proj, ok := GetComponent[ProjectileTag](cmd, projectile)
		if !ok {
			projectile, target = pair.EntityB, pair.EntityA
			proj, ok = GetComponent[ProjectileTag](cmd, projectile)
		}
		if !ok {
			continue
		}
		if _, isPlanet := GetComponent[PlanetMarker](cmd, target); isPlanet {
			continue // I6: planets never participate in impact outcomes
		}
		size, ok := GetComponent[AsteroidSize](cmd, target)
		if !ok {
			continue
		}

		resolveImpact(*proj, target, size.Mass, pair.Point, cfg, telemetry, cmd)

		telemetry.Hits++
		telemetry.InFlight--
		cmd.RemoveEntity(projectile)
	}
}

func resolveImpact(proj ProjectileTag, target EntityId, mass int, impactPoint mgl32.Vec2, cfg *SimConfig, telemetry *Telemetry, cmd *Commands) {
	switch proj.Kind {
	case ProjectileMissile:
		switch {
		case mass <= proj.DestroyThreshold:
			destroyAsteroid(target, mass, cmd, telemetry)
		case mass <= proj.DecomposeThreshold:
			fullDecompose(target, mass, impactPoint, cfg, cmd, telemetry)
		default:
			pieces := proj.DecomposeThreshold + 1
			if pieces > cfg.MissileSplitMaxPieces {
				pieces = cfg.MissileSplitMaxPieces
			}
			if pieces < 2 {
				pieces = 2
			}
			splitAsteroid(target, mass, pieces, impactPoint, proj.Direction, cfg, cmd, telemetry)
		}
	default: // ProjectilePrimary
		if mass <= proj.DestroyThreshold {
			destroyAsteroid(target, mass, cmd, telemetry)
		} else {
			chipAsteroid(target, mass, impactPoint, cfg, cmd, telemetry)
		}
	}
}

// destroyAsteroid removes the target and spawns n unit ore pickups at its
// position (§4.5.4).
func destroyAsteroid(target EntityId, mass int, cmd *Commands, telemetry *Telemetry) {
	pos, ok := GetComponent[Position](cmd, target)
	if !ok {
		return
	}
	p := pos.Vec
	cmd.RemoveEntity(target)
	for i := 0; i < mass; i++ {
		cmd.AddEntity(
			Position{Vec: p},
			OrePickup{Units: 1},
			Collider{Group: GroupOrePickup, World: worldVertices(canonicalPolygon(3, 0.2), p, 0)},
		)
	}
	telemetry.Destroyed++
	telemetry.OreSpawned += uint64(mass)
}

// chipAsteroid bevels the hull vertex nearest impactPoint into a flat
// facet (+1 vertex), spawns a unit fragment radially outward, and shrinks
// the remaining mass by 1 (§4.5.1).
func chipAsteroid(target EntityId, mass int, impactPoint mgl32.Vec2, cfg *SimConfig, cmd *Commands, telemetry *Telemetry) {
	pos, okPos := GetComponent[Position](cmd, target)
	orient, okOrient := GetComponent[Orientation](cmd, target)
	verts, okVerts := GetComponent[Vertices](cmd, target)
	size, okSize := GetComponent[AsteroidSize](cmd, target)
	if !okPos || !okOrient || !okVerts || !okSize {
		return
	}

	impactLocal := rotate2(impactPoint.Sub(pos.Vec), -orient.Radians)
	chipped := chipHullVertex(verts.Local, impactLocal)

	remaining := mass - 1
	if remaining < 1 {
		remaining = 1
	}
	targetArea := float32(remaining) / cfg.AsteroidDensity
	recentered, newCentroidLocal := recenterToCentroid(chipped)
	recentered = rescaleToArea(recentered, targetArea)
	if !isConvexCCW(recentered) {
		recentered = canonicalPolygon(minVerticesForMass(remaining), targetArea)
		newCentroidLocal = mgl32.Vec2{}
	}

	newWorldCentroid := pos.Vec.Add(rotate2(newCentroidLocal, orient.Radians))
	pos.Vec = newWorldCentroid
	verts.Local = recentered
	size.Mass = remaining

	ejectDir := impactPoint.Sub(pos.Vec)
	if ejectDir.LenSqr() < 1e-9 {
		ejectDir = mgl32.Vec2{1, 0}
	} else {
		ejectDir = ejectDir.Mul(1 / ejectDir.Len())
	}
	const chipEjectSpeed = 15
	cmd.AddEntity(
		Position{Vec: impactPoint},
		Orientation{Radians: 0},
		LinearVelocity{Vec: ejectDir.Mul(chipEjectSpeed)},
		AngularVelocity{},
		Vertices{Local: canonicalPolygon(3, 1/cfg.AsteroidDensity)},
		AsteroidSize{Mass: 1},
		ExternalForce{},
		ExternalTorque{},
		Collider{Group: GroupAsteroid},
	)

	telemetry.Chipped++
}

// chipHullVertex replaces the hull vertex nearest impactLocal with two cut
// points at ~30% along the adjacent edges, increasing vertex count by 1.
func chipHullVertex(local []mgl32.Vec2, impactLocal mgl32.Vec2) []mgl32.Vec2 {
	n := len(local)
	best := 0
	bestDist := float32(math.MaxFloat32)
	for i, v := range local {
		if d := v.Sub(impactLocal).LenSqr(); d < bestDist {
			bestDist = d
			best = i
		}
	}
	prev := local[(best-1+n)%n]
	next := local[(best+1)%n]
	v := local[best]
	cut1 := v.Add(prev.Sub(v).Mul(0.3))
	cut2 := v.Add(next.Sub(v).Mul(0.3))

	out := make([]mgl32.Vec2, 0, n+1)
	for i, vv := range local {
		if i == best {
			out = append(out, cut1, cut2)
		} else {
			out = append(out, vv)
		}
	}
	return out
}

// fullDecompose replaces target with n unit fragments arranged on a ring
// around impactPoint (§4.5.3). Ring radius is large enough that fragments
// don't immediately re-touch and re-merge the same tick.
func fullDecompose(target EntityId, mass int, impactPoint mgl32.Vec2, cfg *SimConfig, cmd *Commands, telemetry *Telemetry) {
	vel, _ := GetComponent[LinearVelocity](cmd, target)
	var parentVel mgl32.Vec2
	if vel != nil {
		parentVel = vel.Vec
	}
	cmd.RemoveEntity(target)

	ringRadius := float32(2.5 * math.Sqrt(float64(mass)))
	if ringRadius < 3 {
		ringRadius = 3
	}
	for i := 0; i < mass; i++ {
		theta := 2 * math.Pi * float64(i) / float64(mass)
		offset := mgl32.Vec2{float32(math.Cos(theta)), float32(math.Sin(theta))}.Mul(ringRadius)
		pos := impactPoint.Add(offset)
		outwardSpeed := float32(20)
		vel := parentVel.Add(offset.Mul(outwardSpeed / ringRadius))

		cmd.AddEntity(
			Position{Vec: pos},
			Orientation{Radians: 0},
			LinearVelocity{Vec: vel},
			AngularVelocity{},
			Vertices{Local: canonicalPolygon(3, 1/cfg.AsteroidDensity)},
			AsteroidSize{Mass: 1},
			ExternalForce{},
			ExternalTorque{},
			Collider{Group: GroupAsteroid},
		)
	}

	telemetry.Decomposed++
}

// splitAsteroid partitions target's mass across `pieces` fragments along
// the projectile trajectory, biasing the origin toward impactPoint so edge
// hits yield asymmetric fragments and center hits yield near-equal ones
// (§4.5.2). Every fragment is built as a canonical regular polygon with the
// minimum vertex count for its mass and area mass/density; the parent's
// hull is not cut. Fragments are placed side by side along the
// perpendicular of the trajectory.
func splitAsteroid(target EntityId, mass, pieces int, impactPoint, direction mgl32.Vec2, cfg *SimConfig, cmd *Commands, telemetry *Telemetry) {
	pos, okPos := GetComponent[Position](cmd, target)
	vel, okVel := GetComponent[LinearVelocity](cmd, target)
	angVel, okAngVel := GetComponent[AngularVelocity](cmd, target)
	verts, okVerts := GetComponent[Vertices](cmd, target)
	if !okPos || !okVel || !okAngVel || !okVerts {
		return
	}

	axis := direction
	if axis.LenSqr() < 1e-9 {
		axis = mgl32.Vec2{1, 0}
	} else {
		axis = axis.Mul(1 / axis.Len())
	}

	approxRadius := maxVertexRadius(verts.Local)
	if approxRadius < 1e-6 {
		approxRadius = 1
	}
	bias := impactBias(pos.Vec, impactPoint, axis, approxRadius)

	masses := partitionMasses(mass, pieces, bias)

	cmd.RemoveEntity(target)

	perp := mgl32.Vec2{-axis.Y(), axis.X()}
	count := len(masses)
	for i, m := range masses {
		if m <= 0 {
			continue
		}
		frag := float32(i) - float32(count-1)/2
		offset := perp.Mul(frag * approxRadius * 0.6)
		fragPos := pos.Vec.Add(offset)

		targetArea := float32(m) / cfg.AsteroidDensity
		minVerts := minVerticesForMass(m)
		fragLocal := canonicalPolygon(minVerts, targetArea)

		separation := offset
		if separation.LenSqr() < 1e-9 {
			separation = axis
		} else {
			separation = separation.Mul(1 / separation.Len())
		}
		const separationSpeed = 10
		fragVel := vel.Vec.Add(separation.Mul(separationSpeed))

		cmd.AddEntity(
			Position{Vec: fragPos},
			Orientation{Radians: 0},
			LinearVelocity{Vec: fragVel},
			AngularVelocity{Radians: angVel.Radians},
			Vertices{Local: fragLocal},
			AsteroidSize{Mass: m},
			ExternalForce{},
			ExternalTorque{},
			Collider{Group: GroupAsteroid},
		)
	}

	telemetry.Split++
}

// partitionMasses splits n into `pieces` positive integers summing to n.
// The first split is biased by `bias` (impact-weighted); each subsequent
// split of the largest remaining fragment decays the bias toward 0.5 so
// repeated splits stay stable rather than compounding asymmetry.
func partitionMasses(n, pieces int, bias float32) []int {
	masses := []int{n}
	decay := bias
	for len(masses) < pieces {
		maxIdx := 0
		for i, m := range masses {
			if m > masses[maxIdx] {
				maxIdx = i
			}
		}
		m := masses[maxIdx]
		if m <= 1 {
			break
		}
		a := int(math.Round(float64(m) * float64(decay)))
		if a < 1 {
			a = 1
		}
		if a > m-1 {
			a = m - 1
		}
		b := m - a
		masses[maxIdx] = a
		masses = append(masses, b)
		decay = 0.5 + (decay-0.5)*0.5
	}
	return masses
}

// impactBias maps impactPoint's offset from center, projected onto the
// perpendicular of the split axis, into a [0.1, 0.9] mass-partition weight.
func impactBias(center, impact, axis mgl32.Vec2, approxRadius float32) float32 {
	perp := mgl32.Vec2{-axis.Y(), axis.X()}
	offset := impact.Sub(center).Dot(perp)
	t := offset / approxRadius
	if t > 1 {
		t = 1
	}
	if t < -1 {
		t = -1
	}
	return 0.5 + 0.4*t
}

func maxVertexRadius(local []mgl32.Vec2) float32 {
	var max float32
	for _, v := range local {
		if l := v.Len(); l > max {
			max = l
		}
	}
	return max
}

// SpawnProjectile is the convenience constructor scenario seeds and the
// test harness use to fire a weapon shot (§6.1: "shape creation" / contact
// group wiring lives here since the core owns ProjectileTag semantics).
func SpawnProjectile(cmd *Commands, telemetry *Telemetry, origin, velocity mgl32.Vec2, kind ProjectileKind, destroyThreshold, decomposeThreshold int) EntityId {
	direction := velocity
	if direction.LenSqr() > 1e-9 {
		direction = direction.Mul(1 / direction.Len())
	}
	local := canonicalPolygon(3, 0.05)
	eid := cmd.AddEntity(
		Position{Vec: origin},
		Orientation{Radians: 0},
		LinearVelocity{Vec: velocity},
		// AsteroidSize and ExternalForce are what put a projectile in
		// resolveContactsSystem's body query and integrateForcesSystem's
		// position-integration query; without them a projectile never
		// moves and never generates a ContactPair for impactSystem to see.
		AsteroidSize{Mass: 0},
		ExternalForce{},
		Vertices{Local: local},
		Collider{Group: GroupPlayerWeapon, World: worldVertices(local, origin, 0)},
		ProjectileTag{Kind: kind, DestroyThreshold: destroyThreshold, DecomposeThreshold: decomposeThreshold, Direction: direction},
		Lifetime{MaxDist: 3000, MaxAge: 10},
	)
	telemetry.ShotsFired++
	telemetry.InFlight++
	return eid
}
