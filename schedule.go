package accretion

import (
	"fmt"
	"slices"
)

// systemFn is any Go function whose parameters are all pointer types the
// App can resolve (either *Commands or a registered resource). Systems are
// plain functions, not methods on an interface, so a Module can compose the
// schedule out of free functions the way mod_time.go and mod_lifecycle.go
// do in the teacher engine.
type systemFn any

// Stage groups systems that run together, in registration order, once per
// App.Step. The three schedules from the design ("variable update",
// "fixed physics", "post-physics") are each represented by one or more
// Stages so their relative order is explicit and inspectable.
type Stage struct {
	Name string
}

var (
	// Update carries variable-rate, once-per-frame concerns (input polling,
	// camera follow, HUD refresh) that live outside the simulation core.
	Update = Stage{Name: "Update"}

	// PrePhysics rebuilds the spatial index from the previous tick's
	// positions so every system later in the physics chain can query it.
	PrePhysics = Stage{Name: "PrePhysics"}

	// Physics is the fixed-rate chain: gravity + tidal torque, tractor
	// beam, then the rigid-body integrator that populates contact pairs.
	Physics = Stage{Name: "Physics"}

	// PostPhysics runs strictly after the integrator and hosts the formation
	// arbiter, impact resolvers, boundary hard cull and lifetime expiry; within
	// the stage they run in module registration order.
	PostPhysics = Stage{Name: "PostPhysics"}
)

type systemScheduleBuilder struct {
	system  systemFn
	inStage Stage
}

// System begins a fluent system registration. Defaults to the Update stage;
// chain .InStage(...) to place it elsewhere.
func System(system systemFn) systemScheduleBuilder {
	return systemScheduleBuilder{system: system, inStage: Update}
}

func (b systemScheduleBuilder) InStage(s Stage) systemScheduleBuilder {
	b.inStage = s
	return b
}

type stagePosition int

const (
	stageBefore stagePosition = iota
	stageAfter
)

type stagePositionBuilder struct {
	position stagePosition
	target   Stage
}

func BeforeStage(s Stage) stagePositionBuilder {
	return stagePositionBuilder{position: stageBefore, target: s}
}

func AfterStage(s Stage) stagePositionBuilder {
	return stagePositionBuilder{position: stageAfter, target: s}
}

// UseStage inserts a new Stage relative to an existing one. Modules that
// need a slot the default four stages don't provide (e.g. a debug overlay
// stage after PostPhysics) call this during Install.
func (app *App) UseStage(stage Stage, where stagePositionBuilder) *App {
	stageIdx := slices.IndexFunc(app.stages, func(s Stage) bool { return s.Name == where.target.Name })
	if stageIdx == -1 {
		panic(fmt.Sprintf("stage %v not found", where.target.Name))
	}

	insertAt := stageIdx
	if where.position == stageAfter {
		insertAt = stageIdx + 1
	}

	app.stages = slices.Insert(app.stages, insertAt, stage)
	app.systems[stage.Name] = make([]systemFn, 0)
	return app
}

// UseSystem appends a system to the stage it was built for.
func (app *App) UseSystem(b systemScheduleBuilder) *App {
	if _, ok := app.systems[b.inStage.Name]; !ok {
		panic(fmt.Sprintf("stage %v doesn't exist", b.inStage.Name))
	}
	app.systems[b.inStage.Name] = append(app.systems[b.inStage.Name], b.system)
	return app
}
