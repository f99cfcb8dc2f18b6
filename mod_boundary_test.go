package accretion

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildBoundaryApp() *App {
	return NewApp(
		TimeModule{FixedDt: 1.0 / 60.0},
		ConfigModule{Path: ""},
		BoundaryModule{},
	)
}

func TestSoftBoundary_NoForceInsideRadius(t *testing.T) {
	app := buildBoundaryApp()
	cmd := app.Commands()
	eid := cmd.AddEntity(Position{Vec: mgl32.Vec2{100, 0}}, ExternalForce{})

	app.Step()

	f, ok := GetComponent[ExternalForce](cmd, eid)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec2{}, f.Vec)
}

func TestSoftBoundary_PullsInwardBeyondRadius(t *testing.T) {
	app := buildBoundaryApp()
	cmd := app.Commands()
	eid := cmd.AddEntity(Position{Vec: mgl32.Vec2{2500, 0}}, ExternalForce{}) // beyond SoftBoundaryRadius=2000

	app.Step()

	f, _ := GetComponent[ExternalForce](cmd, eid)
	assert.Less(t, f.Vec.X(), float32(0), "force should point back toward the origin")
	assert.InDelta(t, 0, f.Vec.Y(), 1e-6)
}

func TestSoftBoundary_ExemptsProjectiles(t *testing.T) {
	app := buildBoundaryApp()
	cmd := app.Commands()
	eid := cmd.AddEntity(
		Position{Vec: mgl32.Vec2{9000, 0}},
		ExternalForce{},
		ProjectileTag{Kind: ProjectilePrimary},
	)

	app.Step()

	f, _ := GetComponent[ExternalForce](cmd, eid)
	assert.Equal(t, mgl32.Vec2{}, f.Vec, "projectiles expire by distance-traveled, not the world boundary spring")
}

func TestHardCull_RemovesBodyBeyondCullDistance(t *testing.T) {
	app := buildBoundaryApp()
	cmd := app.Commands()
	eid := cmd.AddEntity(Position{Vec: mgl32.Vec2{3000, 0}}) // beyond HardCullDistance=2500

	app.Step()

	assert.False(t, cmd.Alive(eid))
}

func TestHardCull_KeepsBodyInsideCullDistance(t *testing.T) {
	app := buildBoundaryApp()
	cmd := app.Commands()
	eid := cmd.AddEntity(Position{Vec: mgl32.Vec2{100, 0}})

	app.Step()

	assert.True(t, cmd.Alive(eid))
}

func TestHardCull_ExemptsPlanets(t *testing.T) {
	app := buildBoundaryApp()
	cmd := app.Commands()
	eid := cmd.AddEntity(Position{Vec: mgl32.Vec2{9999, 0}}, PlanetMarker{})

	app.Step()

	assert.True(t, cmd.Alive(eid), "I6: planets never get hard-culled")
}
