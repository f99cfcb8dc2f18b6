package accretion

// Lifetime expires a projectile by distance traveled since spawn and by age,
// independent of the world boundary (I4.3: projectile expiry is decoupled
// from distance-from-origin on purpose — see DESIGN.md).
type Lifetime struct {
	AgeSeconds       float32
	DistanceTraveled float32
	MaxDist          float32
	MaxAge           float32
}

type LifecycleModule struct{}

func (mod LifecycleModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(lifetimeSystem).InStage(PostPhysics),
	)
}

func lifetimeSystem(t *Time, telemetry *Telemetry, cmd *Commands) {
	dt := float32(t.Dt)
	if dt <= 0 {
		return
	}
	MakeQuery2[Lifetime, LinearVelocity](cmd).Map(func(eid EntityId, lt *Lifetime, vel *LinearVelocity) bool {
		lt.AgeSeconds += dt
		lt.DistanceTraveled += vel.Vec.Len() * dt

		expired := (lt.MaxAge > 0 && lt.AgeSeconds >= lt.MaxAge) ||
			(lt.MaxDist > 0 && lt.DistanceTraveled >= lt.MaxDist)
		if expired {
			telemetry.Expired++
			telemetry.InFlight--
			cmd.RemoveEntity(eid)
		}
		return true
	})
}
