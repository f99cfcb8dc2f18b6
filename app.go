package accretion

import (
	"fmt"
	"reflect"
)

// App wires together the Ecs, a set of process-wide resources, and the
// ordered Stage/System schedule that drives the simulation. It deliberately
// carries no notion of a menu or game state machine: the core is a headless
// simulation kernel, and state-machine concerns (menus, pause screens) are
// external collaborators that call App.Step in a loop of their own.
type App struct {
	stages  []Stage
	systems map[string][]systemFn

	resources map[reflect.Type]any
	ecs       *Ecs
	modules   []Module

	pendingAdditions    []pendingAdd
	pendingCompAdds     []pendingCompAdd
	pendingCompRemovals []pendingCompRemoval
	pendingRemovals     []EntityId
}

type pendingAdd struct {
	eid        EntityId
	components []any
}

type pendingCompAdd struct {
	eid        EntityId
	components []any
}

type pendingCompRemoval struct {
	eid        EntityId
	components []any
}

// Module installs systems and resources into an App. Modules are the unit
// of composition for the pipeline described in the spec: gravity, spatial
// indexing, formation, impact resolution and boundary handling are each a
// Module.
type Module interface {
	Install(app *App, commands *Commands)
}

func (app *App) Commands() *Commands {
	return &Commands{app: app}
}

// Step runs every stage once, in registration order, flushing buffered
// entity/component mutations after each stage. A fixed-timestep driver
// (cmd/accretion) calls Step once per physics tick; nothing in the core
// itself loops forever.
func (app *App) Step() {
	cmd := app.Commands()
	for _, stage := range app.stages {
		for _, system := range app.systems[stage.Name] {
			app.callSystem(system)
		}
		app.flushCommands(cmd)
	}
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if resourceType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("resource %s must be registered as a pointer", resourceType))
		}
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}
		app.resources[resourceType.Elem()] = resource
	}
	return app
}

// Resource fetches a previously-registered resource by its pointee type.
func (app *App) Resource(t reflect.Type) any {
	return app.resources[t]
}

var typeOfCommands = reflect.TypeOf(Commands{})

func (app *App) callSystem(system systemFn) {
	app.callSystemInternal(system)
}

func (app *App) callSystemInternal(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		if argType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("system argument %d (%s) must be a pointer", i, argType))
		}
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
			continue
		}

		resource, ok := app.resources[underlyingType]
		if !ok {
			panic(fmt.Sprintf(
				"unable to resolve system dependency: wants %s, no such resource registered",
				argType,
			))
		}
		args[i] = reflect.ValueOf(resource)
	}
	systemValue.Call(args)
}
