package accretion

import (
	"reflect"
)

// AppBuilder accumulates modules before producing an App. Kept as
// a distinct type (rather than building directly on *App) so tests can
// assert on pending module registration before Build wires stages together.
type AppBuilder struct {
	modules []Module
}

func NewAppBuilder() *AppBuilder {
	return &AppBuilder{modules: make([]Module, 0)}
}

func (b *AppBuilder) UseModule(module Module) *AppBuilder {
	b.modules = append(b.modules, module)
	return b
}

func (b *AppBuilder) UseModules(modules ...Module) *AppBuilder {
	b.modules = append(b.modules, modules...)
	return b
}

// Build lays out the default four-stage schedule (Update, PrePhysics,
// Physics, PostPhysics — see schedule.go) and installs every registered
// module against it.
func (b *AppBuilder) Build() *App {
	ecs := MakeEcs()
	app := &App{
		resources: make(map[reflect.Type]any),
		systems:   make(map[string][]systemFn),
		ecs:       &ecs,
		modules:   b.modules,
	}

	for _, stage := range []Stage{Update, PrePhysics, Physics, PostPhysics} {
		app.stages = append(app.stages, stage)
		app.systems[stage.Name] = make([]systemFn, 0)
	}

	commands := &Commands{app: app}
	for _, module := range app.modules {
		module.Install(app, commands)
	}

	return app
}

// NewApp is shorthand for NewAppBuilder().UseModules(modules...).Build(),
// used by callers that don't need incremental module registration.
func NewApp(modules ...Module) *App {
	return NewAppBuilder().UseModules(modules...).Build()
}
