package accretion

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spawnTarget(cmd *Commands, mass int) EntityId {
	return cmd.AddEntity(
		Position{Vec: mgl32.Vec2{0, 0}},
		Orientation{Radians: 0},
		LinearVelocity{Vec: mgl32.Vec2{}},
		AngularVelocity{Radians: 0},
		Vertices{Local: canonicalPolygon(minVerticesForMass(mass), float32(mass)/DefaultSimConfig().AsteroidDensity)},
		AsteroidSize{Mass: mass},
		ExternalForce{},
		ExternalTorque{},
		Collider{Group: GroupAsteroid},
	)
}

func TestResolveImpact_PrimaryDestroysBelowThreshold(t *testing.T) {
	app := NewAppBuilder().Build()
	cmd := app.Commands()
	target := spawnTarget(cmd, 1)
	app.flushCommands(cmd)

	cfg := DefaultSimConfig()
	telemetry := NewTelemetry()
	proj := ProjectileTag{Kind: ProjectilePrimary, DestroyThreshold: 1}

	resolveImpact(proj, target, 1, mgl32.Vec2{0, 0}, cfg, telemetry, cmd)
	app.flushCommands(cmd)

	assert.False(t, cmd.Alive(target))
	assert.Equal(t, uint64(1), telemetry.Destroyed)
	assert.Equal(t, uint64(1), telemetry.OreSpawned)

	oreCount := 0
	MakeQuery1[OrePickup](cmd).Map(func(_ EntityId, _ *OrePickup) bool {
		oreCount++
		return true
	})
	assert.Equal(t, 1, oreCount)
}

func TestResolveImpact_PrimaryChipsAboveThreshold(t *testing.T) {
	app := NewAppBuilder().Build()
	cmd := app.Commands()
	target := spawnTarget(cmd, 5)
	app.flushCommands(cmd)

	cfg := DefaultSimConfig()
	telemetry := NewTelemetry()
	proj := ProjectileTag{Kind: ProjectilePrimary, DestroyThreshold: 1}
	verts, _ := GetComponent[Vertices](cmd, target)
	impactPoint := verts.Local[0] // hit directly on a hull vertex

	resolveImpact(proj, target, 5, impactPoint, cfg, telemetry, cmd)
	app.flushCommands(cmd)

	require.True(t, cmd.Alive(target))
	size, _ := GetComponent[AsteroidSize](cmd, target)
	assert.Equal(t, 4, size.Mass, "chip removes exactly one unit of mass")
	assert.Equal(t, uint64(1), telemetry.Chipped)

	newVerts, _ := GetComponent[Vertices](cmd, target)
	assert.True(t, isConvexCCW(newVerts.Local), "P-Convex: chipped hull must stay convex")
	assert.InDelta(t, float32(4)/cfg.AsteroidDensity, polygonArea(newVerts.Local), 0.5, "P-Area: area must track the new mass")
}

func TestResolveImpact_MissileDestroysBelowThreshold(t *testing.T) {
	app := NewAppBuilder().Build()
	cmd := app.Commands()
	target := spawnTarget(cmd, 1)
	app.flushCommands(cmd)

	cfg := DefaultSimConfig()
	telemetry := NewTelemetry()
	proj := ProjectileTag{Kind: ProjectileMissile, DestroyThreshold: 1, DecomposeThreshold: 3}

	resolveImpact(proj, target, 1, mgl32.Vec2{0, 0}, cfg, telemetry, cmd)
	app.flushCommands(cmd)

	assert.False(t, cmd.Alive(target))
	assert.Equal(t, uint64(1), telemetry.Destroyed)
}

func TestResolveImpact_MissileFullyDecomposesMidRange(t *testing.T) {
	app := NewAppBuilder().Build()
	cmd := app.Commands()
	target := spawnTarget(cmd, 5)
	app.flushCommands(cmd)

	cfg := DefaultSimConfig()
	telemetry := NewTelemetry()
	proj := ProjectileTag{Kind: ProjectileMissile, DestroyThreshold: 0, DecomposeThreshold: 5}

	resolveImpact(proj, target, 5, mgl32.Vec2{1, 1}, cfg, telemetry, cmd)
	app.flushCommands(cmd)

	assert.False(t, cmd.Alive(target))
	assert.Equal(t, uint64(1), telemetry.Decomposed)

	total := 0
	count := 0
	MakeQuery1[AsteroidSize](cmd).Map(func(_ EntityId, size *AsteroidSize) bool {
		count++
		total += size.Mass
		assert.Equal(t, 1, size.Mass, "full decompose yields only unit fragments")
		return true
	})
	assert.Equal(t, 5, count)
	assert.Equal(t, 5, total, "P-Mass: total mass conserved across decompose")
}

func TestResolveImpact_MissileSplitsAboveBothThresholds(t *testing.T) {
	app := NewAppBuilder().Build()
	cmd := app.Commands()
	target := spawnTarget(cmd, 8)
	app.flushCommands(cmd)

	cfg := DefaultSimConfig()
	telemetry := NewTelemetry()
	proj := ProjectileTag{Kind: ProjectileMissile, DestroyThreshold: 0, DecomposeThreshold: 1, Direction: mgl32.Vec2{1, 0}}

	resolveImpact(proj, target, 8, mgl32.Vec2{0, 5}, cfg, telemetry, cmd)
	app.flushCommands(cmd)

	assert.False(t, cmd.Alive(target))
	assert.Equal(t, uint64(1), telemetry.Split)

	total := 0
	MakeQuery1[AsteroidSize](cmd).Map(func(_ EntityId, size *AsteroidSize) bool {
		total += size.Mass
		return true
	})
	assert.Equal(t, 8, total, "P-Mass: total mass conserved across split")
}

func TestPartitionMasses_SumsToOriginal(t *testing.T) {
	for _, n := range []int{1, 2, 5, 8, 20} {
		parts := partitionMasses(n, 3, 0.5)
		sum := 0
		for _, p := range parts {
			sum += p
			assert.Greater(t, p, 0)
		}
		assert.Equal(t, n, sum, "n=%d", n)
	}
}

func TestPartitionMasses_StopsEarlyWhenUnsplittable(t *testing.T) {
	parts := partitionMasses(1, 5, 0.5)
	assert.Equal(t, []int{1}, parts)
}

func TestImpactBias_ClampsToUnitRange(t *testing.T) {
	bias := impactBias(mgl32.Vec2{0, 0}, mgl32.Vec2{0, 1000}, mgl32.Vec2{1, 0}, 1)
	assert.LessOrEqual(t, bias, float32(0.9))
	assert.GreaterOrEqual(t, bias, float32(0.1))
}

func TestChipHullVertex_AddsOneVertexPreservingWinding(t *testing.T) {
	local := canonicalPolygon(3, 10)
	out := chipHullVertex(local, local[0])
	assert.Len(t, out, len(local)+1)
	assert.True(t, isConvexCCW(out), "chipped hull should stay convex and CCW-wound")
}

func TestSpawnProjectile_IsDetectedByCollisionSync(t *testing.T) {
	app := NewApp(TimeModule{FixedDt: 1.0 / 60.0}, RigidBodyModule{})
	cmd := app.Commands()
	telemetry := NewTelemetry()
	eid := SpawnProjectile(cmd, telemetry, mgl32.Vec2{0, 0}, mgl32.Vec2{10, 0}, ProjectilePrimary, 0, 0)

	app.Step()

	col, ok := GetComponent[Collider](cmd, eid)
	require.True(t, ok)
	assert.NotEmpty(t, col.World, "collisionSyncSystem requires Orientation on the projectile to match it")
	assert.Equal(t, int64(1), telemetry.ShotsFired)
	assert.Equal(t, int64(1), telemetry.InFlight)
}
