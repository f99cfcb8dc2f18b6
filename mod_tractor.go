package accretion

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// TractorBeamMode selects which force the beam applies to its target.
type TractorBeamMode int

const (
	TractorIdle TractorBeamMode = iota
	TractorPull
	TractorPush
	TractorFreeze
)

// TractorBeam is the player-ship resource driving the tractor force
// generator (§4.6). Engaged/Mode/aim are set by the input layer outside the
// core; the core only reads them each physics tick.
type TractorBeam struct {
	Engaged bool
	Mode    TractorBeamMode

	ShipPosition  mgl32.Vec2
	AimDirection  mgl32.Vec2 // unit vector, cone axis

	Target       EntityId
	HasTarget    bool
	FreezeOffset mgl32.Vec2 // captured relative offset at freeze engage time
}

// TractorBeamModule applies at most one target's pull/push/freeze force per
// tick. It runs alongside gravity in Physics (§4.6: "runs in the same
// physics step as gravity").
type TractorBeamModule struct{}

func (mod TractorBeamModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&TractorBeam{})
	app.UseSystem(System(tractorBeamSystem).InStage(Physics))
}

func tractorBeamSystem(beam *TractorBeam, cfg *SimConfig, cmd *Commands) {
	if !beam.Engaged {
		beam.HasTarget = false
		return
	}

	if !beam.HasTarget || beam.Mode != TractorFreeze {
		beam.Target, beam.HasTarget = acquireTractorTarget(beam, cfg, cmd)
		if !beam.HasTarget {
			return
		}
		if beam.Mode == TractorFreeze {
			if pos, ok := GetComponent[Position](cmd, beam.Target); ok {
				beam.FreezeOffset = pos.Vec.Sub(beam.ShipPosition)
			}
		}
	}

	targetPos, okPos := GetComponent[Position](cmd, beam.Target)
	targetVel, okVel := GetComponent[LinearVelocity](cmd, beam.Target)
	targetForce, okForce := GetComponent[ExternalForce](cmd, beam.Target)
	if !okPos || !okVel || !okForce {
		beam.HasTarget = false
		return
	}

	var f mgl32.Vec2
	switch beam.Mode {
	case TractorPull:
		toShip := beam.ShipPosition.Sub(targetPos.Vec)
		if d := toShip.Len(); d > 1e-6 {
			f = toShip.Mul(cfg.TractorBeamForce / d)
		}
	case TractorPush:
		away := targetPos.Vec.Sub(beam.ShipPosition)
		if d := away.Len(); d > 1e-6 {
			f = away.Mul(cfg.TractorBeamForce / d)
		}
	case TractorFreeze:
		desired := beam.ShipPosition.Add(beam.FreezeOffset)
		spring := desired.Sub(targetPos.Vec).Mul(cfg.TractorBeamFreezeK)
		damp := targetVel.Vec.Mul(-cfg.TractorBeamFreezeC)
		f = spring.Add(damp)
	default:
		beam.HasTarget = false
		return
	}

	if mag := f.Len(); mag > cfg.TractorBeamForce {
		f = f.Mul(cfg.TractorBeamForce / mag)
	}
	targetForce.Vec = targetForce.Vec.Add(f)
}

// acquireTractorTarget selects the nearest non-planet, non-projectile body
// inside the aim cone and range; the target's mass and speed are not
// checked. Freeze mode keeps its target until the beam disengages or the
// target loses Position, LinearVelocity or ExternalForce, after which
// tractorBeamSystem re-acquires on the next tick.
func acquireTractorTarget(beam *TractorBeam, cfg *SimConfig, cmd *Commands) (EntityId, bool) {
	var best EntityId
	found := false
	bestDist := cfg.TractorBeamRange

	MakeQuery3[Position, LinearVelocity, AsteroidSize](cmd).
		WithoutTypes(PlanetMarker{}, ProjectileTag{}).
		Map(func(eid EntityId, pos *Position, vel *LinearVelocity, size *AsteroidSize) bool {
			toTarget := pos.Vec.Sub(beam.ShipPosition)
			dist := toTarget.Len()
			if dist > cfg.TractorBeamRange || dist < 1e-6 {
				return true
			}
			cosHalfCone := toTarget.Mul(1 / dist).Dot(beam.AimDirection)
			if cosHalfCone < float32(math.Cos(float64(cfg.TractorBeamConeAngle))) {
				return true
			}
			if dist < bestDist {
				bestDist = dist
				best = eid
				found = true
			}
			return true
		})
	return best, found
}

