package accretion

// GetComponent fetches a single component of type T from entityId, or
// false if the entity doesn't exist or doesn't carry a T. Complements the
// archetype Query types for the handful of call sites that need random
// access by id — the tractor beam reading its captured target, impact
// resolvers translating a contact pair's entities into component data.
func GetComponent[T any](cmd *Commands, entityId EntityId) (*T, bool) {
	ecs := cmd.app.ecs
	archId, ok := ecs.entityIndex[entityId]
	if !ok {
		return nil, false
	}
	arch := ecs.archetypes[archId]
	row := arch.entities[entityId]

	id := idOf[T](ecs)
	data, ok := arch.componentData[id]
	if !ok {
		return nil, false
	}
	slice := data.([]T)
	return &slice[row], true
}

// HasComponent reports whether entityId currently carries a T.
func HasComponent[T any](cmd *Commands, entityId EntityId) bool {
	ecs := cmd.app.ecs
	archId, ok := ecs.entityIndex[entityId]
	if !ok {
		return false
	}
	arch := ecs.archetypes[archId]
	return archHas(arch, idOf[T](ecs))
}
