package accretion

import (
	"math"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	contactSetType = reflect.TypeOf(ContactSet{})
	timeType       = reflect.TypeOf(Time{})
)

func buildRigidBodyApp(restitution float32) *App {
	return NewApp(
		TimeModule{FixedDt: 1.0 / 60.0},
		RigidBodyModule{Restitution: restitution},
	)
}

func TestCollisionSync_PopulatesColliderWorldFromVertices(t *testing.T) {
	app := buildRigidBodyApp(0.8)
	cmd := app.Commands()
	local := canonicalPolygon(3, 10)
	eid := cmd.AddEntity(
		Position{Vec: mgl32.Vec2{5, 5}},
		Orientation{Radians: float32(math.Pi / 2)},
		Vertices{Local: local},
		Collider{Group: GroupAsteroid},
	)

	app.Step()

	col, ok := GetComponent[Collider](cmd, eid)
	require.True(t, ok)
	want := worldVertices(local, mgl32.Vec2{5, 5}, float32(math.Pi/2))
	require.Len(t, col.World, len(want))
	for i := range want {
		assert.InDelta(t, want[i].X(), col.World[i].X(), 1e-4)
		assert.InDelta(t, want[i].Y(), col.World[i].Y(), 1e-4)
	}
}

func overlappingTriangle(cmd *Commands, pos mgl32.Vec2, vel mgl32.Vec2, group CollisionGroup) EntityId {
	local := canonicalPolygon(3, 10)
	return cmd.AddEntity(
		Position{Vec: pos},
		Orientation{Radians: 0},
		LinearVelocity{Vec: vel},
		Vertices{Local: local},
		AsteroidSize{Mass: 1},
		Collider{Group: group},
	)
}

func TestResolveContacts_DetectsOverlappingPolygons(t *testing.T) {
	app := buildRigidBodyApp(0.8)
	cmd := app.Commands()
	a := overlappingTriangle(cmd, mgl32.Vec2{0, 0}, mgl32.Vec2{}, GroupAsteroid)
	b := overlappingTriangle(cmd, mgl32.Vec2{1, 0}, mgl32.Vec2{}, GroupAsteroid)

	app.Step()

	contacts := app.Resource(contactSetType).(*ContactSet)
	require.True(t, contacts.HasContact(a))
	require.True(t, contacts.HasContact(b))
	pairs := contacts.Pairs()
	require.Len(t, pairs, 1)
	lo, hi := a, b
	if hi < lo {
		lo, hi = hi, lo
	}
	assert.Equal(t, lo, pairs[0].EntityA)
	assert.Equal(t, hi, pairs[0].EntityB)
}

func TestResolveContacts_NoContactWhenFarApart(t *testing.T) {
	app := buildRigidBodyApp(0.8)
	cmd := app.Commands()
	a := overlappingTriangle(cmd, mgl32.Vec2{0, 0}, mgl32.Vec2{}, GroupAsteroid)
	overlappingTriangle(cmd, mgl32.Vec2{500, 0}, mgl32.Vec2{}, GroupAsteroid)

	app.Step()

	contacts := app.Resource(contactSetType).(*ContactSet)
	assert.False(t, contacts.HasContact(a))
	assert.Empty(t, contacts.Pairs())
}

func TestResolveContacts_ElasticImpulseSeparatesBodies(t *testing.T) {
	app := buildRigidBodyApp(0.8)
	cmd := app.Commands()
	a := overlappingTriangle(cmd, mgl32.Vec2{-1, 0}, mgl32.Vec2{5, 0}, GroupAsteroid)
	b := overlappingTriangle(cmd, mgl32.Vec2{1, 0}, mgl32.Vec2{-5, 0}, GroupAsteroid)

	app.Step()

	velA, _ := GetComponent[LinearVelocity](cmd, a)
	velB, _ := GetComponent[LinearVelocity](cmd, b)
	assert.Less(t, velA.Vec.X(), float32(5), "a's closing velocity should be reduced/reversed by the impulse")
	assert.Greater(t, velB.Vec.X(), float32(-5), "b's closing velocity should be reduced/reversed by the impulse")
}

func TestCollisionGroupsInteract_OrePickupOnlyTouchesPlayerShip(t *testing.T) {
	assert.True(t, collisionGroupsInteract(GroupOrePickup, GroupPlayerShip))
	assert.False(t, collisionGroupsInteract(GroupOrePickup, GroupAsteroid))
	assert.False(t, collisionGroupsInteract(GroupOrePickup, GroupPlayerWeapon))
}

func TestCollisionGroupsInteract_WeaponOnlyTouchesAsteroid(t *testing.T) {
	assert.True(t, collisionGroupsInteract(GroupPlayerWeapon, GroupAsteroid))
	assert.False(t, collisionGroupsInteract(GroupPlayerWeapon, GroupPlayerShip))
}

func TestSatOverlap_DegenerateInputsNeverOverlap(t *testing.T) {
	hit, _, _, _ := satOverlap([]mgl32.Vec2{{0, 0}, {1, 0}}, []mgl32.Vec2{{0, 0}, {1, 0}, {0, 1}})
	assert.False(t, hit)
}

func TestIntegrateForcesSystem_AppliesForceAndClearsAccumulator(t *testing.T) {
	app := NewAppBuilder().Build()
	app.addResources(&Time{FixedDt: 1, Dt: 1})
	cmd := app.Commands()
	eid := cmd.AddEntity(
		Position{Vec: mgl32.Vec2{}},
		LinearVelocity{Vec: mgl32.Vec2{}},
		ExternalForce{Vec: mgl32.Vec2{10, 0}},
		AsteroidSize{Mass: 2},
	)
	app.flushCommands(cmd)

	timeRes := app.Resource(timeType).(*Time)
	integrateForcesSystem(timeRes, cmd)

	vel, _ := GetComponent[LinearVelocity](cmd, eid)
	assert.InDelta(t, 5, vel.Vec.X(), 1e-6, "dv = F/m*dt = 10/2*1")
	pos, _ := GetComponent[Position](cmd, eid)
	assert.InDelta(t, 5, pos.Vec.X(), 1e-6, "position integrates the post-impulse velocity")
	force, _ := GetComponent[ExternalForce](cmd, eid)
	assert.Equal(t, mgl32.Vec2{}, force.Vec, "accumulator must clear after being consumed")
}
