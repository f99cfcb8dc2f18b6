package accretion

// BoundaryModule applies the inward soft-boundary spring to every
// non-projectile body beyond SoftBoundaryRadius, and hard-culls anything
// but planets beyond HardCullDistance as a safety net (§4.3). Soft boundary runs in
// Physics alongside the other force generators; hard cull runs in
// PostPhysics since it's a structural removal, not a force.
type BoundaryModule struct{}

func (mod BoundaryModule) Install(app *App, cmd *Commands) {
	app.UseSystem(System(softBoundarySystem).InStage(Physics))
	app.UseSystem(System(hardCullSystem).InStage(PostPhysics))
}

// softBoundarySystem applies to asteroids, the player ship, and enemies
// alike (§9: confirmed intentional, not limited to asteroids) — anything
// with a Position+ExternalForce pair that isn't a projectile, since
// projectiles expire by distance-traveled rather than by world boundary.
func softBoundarySystem(cfg *SimConfig, cmd *Commands) {
	radius := cfg.SoftBoundaryRadius
	k := cfg.SoftBoundaryStrength

	MakeQuery2[Position, ExternalForce](cmd).
		WithoutTypes(ProjectileTag{}).
		Map(func(eid EntityId, pos *Position, force *ExternalForce) bool {
			d := pos.Vec.Len()
			if d <= radius {
				return true
			}
			inward := pos.Vec.Mul(-1 / d)
			force.Vec = force.Vec.Add(inward.Mul(k * (d - radius)))
			return true
		})
}

func hardCullSystem(cfg *SimConfig, cmd *Commands) {
	distance := cfg.HardCullDistance
	var toRemove []EntityId
	MakeQuery1[Position](cmd).
		WithoutTypes(PlanetMarker{}).
		Map(func(eid EntityId, pos *Position) bool {
			if pos.Vec.Len() > distance {
				toRemove = append(toRemove, eid)
			}
			return true
		})
	for _, eid := range toRemove {
		cmd.RemoveEntity(eid)
	}
}
