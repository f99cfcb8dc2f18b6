package accretion

import (
	"os"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSnapshot_CapturesAsteroidsAndResources(t *testing.T) {
	app := NewAppBuilder().Build()
	cmd := app.Commands()
	local := canonicalPolygon(3, 10)
	cmd.AddEntity(
		Position{Vec: mgl32.Vec2{1, 2}},
		Orientation{Radians: 0.5},
		LinearVelocity{Vec: mgl32.Vec2{3, 4}},
		AngularVelocity{Radians: 0.1},
		Vertices{Local: local},
		AsteroidSize{Mass: 3},
	)
	app.flushCommands(cmd)

	telemetry := NewTelemetry()
	telemetry.ShotsFired = 5
	telemetry.Hits = 2
	telemetry.OreSpawned = 7

	snap := BuildSnapshot(cmd, telemetry, "two_triangles", mgl32.Vec2{9, 9}, mgl32.Vec2{0, 1})

	require.Len(t, snap.Asteroids, 1)
	assert.Equal(t, saveFormatVersion, snap.Version)
	assert.Equal(t, "two_triangles", snap.Scenario)
	assert.Equal(t, 3, snap.Asteroids[0].Size)
	assert.False(t, snap.Asteroids[0].IsPlanet)
	assert.Equal(t, int64(5), snap.Resources.ShotsFired)
	assert.Equal(t, uint64(2), snap.Resources.Hits)
	assert.Equal(t, uint64(7), snap.Resources.OreUnits)
	assert.Equal(t, float32(9), snap.Player.Position.X)
}

func TestBuildSnapshot_MarksPlanets(t *testing.T) {
	app := NewAppBuilder().Build()
	cmd := app.Commands()
	cmd.AddEntity(
		Position{Vec: mgl32.Vec2{}}, Orientation{}, LinearVelocity{}, AngularVelocity{},
		Vertices{Local: canonicalPolygon(8, 500)}, AsteroidSize{Mass: 500}, PlanetMarker{},
	)
	app.flushCommands(cmd)

	snap := BuildSnapshot(cmd, NewTelemetry(), "scenario", mgl32.Vec2{}, mgl32.Vec2{})
	require.Len(t, snap.Asteroids, 1)
	assert.True(t, snap.Asteroids[0].IsPlanet)
}

func TestRestore_RecreatesExactGeometry(t *testing.T) {
	app := NewAppBuilder().Build()
	cmd := app.Commands()
	local := canonicalPolygon(5, 42)
	cmd.AddEntity(
		Position{Vec: mgl32.Vec2{-10, 20}},
		Orientation{Radians: 1.2},
		LinearVelocity{Vec: mgl32.Vec2{1, -1}},
		AngularVelocity{Radians: 0.3},
		Vertices{Local: local},
		AsteroidSize{Mass: 5},
	)
	app.flushCommands(cmd)
	snap := BuildSnapshot(cmd, NewTelemetry(), "scenario", mgl32.Vec2{}, mgl32.Vec2{})

	restoredApp := NewAppBuilder().Build()
	restoredCmd := restoredApp.Commands()
	Restore(restoredCmd, snap)
	restoredApp.flushCommands(restoredCmd)

	var found bool
	MakeQuery1[AsteroidSize](restoredCmd).Map(func(eid EntityId, size *AsteroidSize) bool {
		found = true
		assert.Equal(t, 5, size.Mass)
		verts, ok := GetComponent[Vertices](restoredCmd, eid)
		require.True(t, ok)
		require.Len(t, verts.Local, len(local))
		for i := range local {
			assert.InDelta(t, local[i].X(), verts.Local[i].X(), 1e-5, "Restore must not re-hull or re-rescale")
			assert.InDelta(t, local[i].Y(), verts.Local[i].Y(), 1e-5)
		}
		pos, _ := GetComponent[Position](restoredCmd, eid)
		assert.InDelta(t, -10, pos.Vec.X(), 1e-5)
		assert.InDelta(t, 20, pos.Vec.Y(), 1e-5)
		return true
	})
	assert.True(t, found)
}

func TestSaveLoadSlot_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	snap := Snapshot{
		Version:  saveFormatVersion,
		Scenario: "gravity_attract",
		Player:   PlayerSnapshot{Position: vec2Doc{X: 1, Y: 2}},
		Asteroids: []AsteroidSnapshot{
			{Position: vec2Doc{X: 3, Y: 4}, Size: 2, LocalVertices: []vec2Doc{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: -1}}},
		},
		Resources: ResourceSnapshot{ShotsFired: 7, Hits: 3, OreUnits: 1},
	}

	require.NoError(t, SaveSlot(dir, 1, snap))
	loaded, err := LoadSlot(dir, 1)
	require.NoError(t, err)

	assert.Equal(t, snap.Scenario, loaded.Scenario)
	assert.Equal(t, snap.Resources, loaded.Resources)
	require.Len(t, loaded.Asteroids, 1)
	assert.Equal(t, snap.Asteroids[0].Size, loaded.Asteroids[0].Size)
	assert.Equal(t, snap.Asteroids[0].LocalVertices, loaded.Asteroids[0].LocalVertices)
}

func TestLoadSlot_MissingSlotReturnsError(t *testing.T) {
	_, err := LoadSlot(t.TempDir(), 99)
	assert.Error(t, err)
}

func TestLoadSlot_CorruptDataReturnsError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveSlot(dir, 2, Snapshot{}))
	corruptPath := dir + "/saves/slot_2"
	require.NoError(t, os.WriteFile(corruptPath, []byte("not bson"), 0o644))

	_, err := LoadSlot(dir, 2)
	assert.Error(t, err)
}
