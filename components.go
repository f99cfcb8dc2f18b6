package accretion

import "github.com/go-gl/mathgl/mgl32"

// Position is the world-space centroid of a body.
type Position struct {
	Vec mgl32.Vec2
}

// Orientation is the rotation applied to a body's local Vertices.
type Orientation struct {
	Radians float32
}

type LinearVelocity struct {
	Vec mgl32.Vec2
}

type AngularVelocity struct {
	Radians float32
}

// Vertices holds a convex polygon in local space: CCW-wound, centroid-
// centered (I1). World-space geometry is synced into Collider each physics
// step from Position/Orientation/Vertices.
type Vertices struct {
	Local []mgl32.Vec2
}

// AsteroidSize is the mass proxy in unit-triangle equivalents. Area and mass
// stay coupled through SimConfig.AsteroidDensity (I2).
type AsteroidSize struct {
	Mass int
}

// ExternalForce/ExternalTorque are one-tick accumulators. GravityModule's
// resetForceAccumulatorsSystem zeroes both at the start of Physics before
// any generator runs.
type ExternalForce struct {
	Vec mgl32.Vec2
}

type ExternalTorque struct {
	Scalar float32
}

// Collider mirrors Vertices in world space for the rigid-body integrator.
// Never allowed to go stale relative to Vertices (I3) — synced by
// collisionSyncSystem in rigidbody.go every Physics tick.
type Collider struct {
	World []mgl32.Vec2
	Group CollisionGroup
}

type CollisionGroup int

const (
	GroupAsteroid CollisionGroup = iota
	GroupPlayerShip
	GroupPlayerWeapon
	GroupOrePickup
)

// PlanetMarker excludes a body from formation merge and all impact
// resolvers (I6).
type PlanetMarker struct{}

// ProjectileKind distinguishes the two weapon-level decision tables in
// mod_impact.go; ion shots / other variants reuse ProjectilePrimary with a
// different DestroyThreshold rather than adding a new Kind (§9: tagged
// variants share one collision handling surface).
type ProjectileKind int

const (
	ProjectilePrimary ProjectileKind = iota
	ProjectileMissile
)

// ProjectileTag marks an entity as a weapon shot and carries the two
// threshold parameters a weapon level exposes (§4.5).
type ProjectileTag struct {
	Kind               ProjectileKind
	DestroyThreshold   int
	DecomposeThreshold int // display_level; missiles only
	Direction          mgl32.Vec2
}

// OrePickup marks a sensor entity spawned by a full-destroy impact (§4.5.4).
// Collection/despawn is left to the player-ship collision handler outside
// the core; the core only guarantees it spawns at the destroyed position.
type OrePickup struct {
	Units int
}

func cross2(a, b mgl32.Vec2) float32 {
	return a.X()*b.Y() - a.Y()*b.X()
}
