package accretion

// Commands is the only way systems mutate the world. Structural changes
// (spawns, despawns, component add/remove) are buffered here and applied by
// App.flushCommands after the stage finishes running, so a system never
// observes a half-built archetype while iterating a Query within the same
// stage. This mirrors the teacher engine's deferred-command pattern used
// throughout its Module/System plumbing.
type Commands struct {
	app *App
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

// AddEntity reserves an EntityId immediately (so callers can reference it
// this tick, e.g. for a contact pair generated the same frame) but defers
// the actual archetype insertion to the next flush point.
func (cmd *Commands) AddEntity(components ...any) EntityId {
	eid := cmd.app.ecs.nextEntityId()
	cmd.app.pendingAdditions = append(cmd.app.pendingAdditions, pendingAdd{
		eid:        eid,
		components: components,
	})
	return eid
}

func (cmd *Commands) AddComponents(entityId EntityId, components ...any) {
	cmd.app.pendingCompAdds = append(cmd.app.pendingCompAdds, pendingCompAdd{
		eid:        entityId,
		components: components,
	})
}

func (cmd *Commands) RemoveComponents(entityId EntityId, components ...any) {
	cmd.app.pendingCompRemovals = append(cmd.app.pendingCompRemovals, pendingCompRemoval{
		eid:        entityId,
		components: components,
	})
}

func (cmd *Commands) RemoveEntity(entityId EntityId) {
	cmd.app.pendingRemovals = append(cmd.app.pendingRemovals, entityId)
}

// Alive reports whether entityId has a live archetype row as of the last
// command flush. Spawns and removals queued since that flush are not
// reflected: an entity queued for removal still reports true until then.
func (cmd *Commands) Alive(entityId EntityId) bool {
	_, ok := cmd.app.ecs.entityIndex[entityId]
	return ok
}

func (cmd *Commands) GetAllComponents(entityId EntityId) []any {
	ecs := cmd.app.ecs
	archId, ok := ecs.entityIndex[entityId]
	if !ok {
		return nil
	}
	arch := ecs.archetypes[archId]
	row := arch.entities[entityId]

	var res []any
	for _, componentsSlice := range arch.componentData {
		val := reflectSliceGet(componentsSlice, int(row))
		res = append(res, val.Interface())
	}
	return res
}

// flushCommands applies every buffered structural change, in the order the
// systems issued them. Called once per Stage by App.Step.
func (app *App) flushCommands(cmd *Commands) {
	if len(app.pendingAdditions) == 0 && len(app.pendingCompAdds) == 0 &&
		len(app.pendingCompRemovals) == 0 && len(app.pendingRemovals) == 0 {
		return
	}

	additions := app.pendingAdditions
	compAdds := app.pendingCompAdds
	compRemovals := app.pendingCompRemovals
	removals := app.pendingRemovals
	app.pendingAdditions = nil
	app.pendingCompAdds = nil
	app.pendingCompRemovals = nil
	app.pendingRemovals = nil

	for _, add := range additions {
		app.ecs.insertEntity(add.eid, add.components...)
	}
	for _, add := range compAdds {
		if _, ok := app.ecs.entityIndex[add.eid]; !ok {
			continue
		}
		app.ecs.addComponents(add.eid, add.components...)
	}
	for _, rem := range compRemovals {
		if _, ok := app.ecs.entityIndex[rem.eid]; !ok {
			continue
		}
		app.ecs.removeComponents(rem.eid, rem.components...)
	}
	for _, eid := range removals {
		if _, ok := app.ecs.entityIndex[eid]; !ok {
			continue
		}
		app.ecs.removeEntity(eid)
	}
}
