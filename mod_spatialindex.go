package accretion

// SpatialIndexModule rebuilds the shared SpatialIndex from every body's
// current Position at the start of each physics step (PrePhysics), so
// gravity's neighbor queries see an up-to-date tree for the tick (§5's tick
// structure). The tractor beam and the rigid-body resolver do not query it.
type SpatialIndexModule struct{}

func (mod SpatialIndexModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(NewSpatialIndex())

	app.UseSystem(System(rebuildSpatialIndexSystem).InStage(PrePhysics))
}

func rebuildSpatialIndexSystem(idx *SpatialIndex, cmd *Commands) {
	idx.ScratchPoints = idx.ScratchPoints[:0]
	MakeQuery1[Position](cmd).Map(func(eid EntityId, pos *Position) bool {
		idx.ScratchPoints = append(idx.ScratchPoints, IndexedPoint{Entity: eid, Point: pos.Vec})
		return true
	})
	idx.Rebuild(idx.ScratchPoints)
}
