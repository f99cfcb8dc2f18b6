package accretion

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}
type MockResource2 struct {
	name string
}

func NewMockResource1(name string) *MockResource1 {
	return &MockResource1{name: name}
}
func NewMockResource2(name string) *MockResource2 {
	return &MockResource2{name: name}
}

func TestApp_addResources(t *testing.T) {
	app := &App{
		resources: make(map[reflect.Type]any),
	}

	resource1 := NewMockResource1("Resource1")
	app.addResources(resource1)

	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem(), "Resource1 should be in resources map.")

	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1)
	})

	resource2 := NewMockResource2("Resource2")
	app.addResources(resource2)

	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem(), "Resource2 should be in resources map.")

	require.PanicsWithValue(t, fmt.Sprintf("resource %s must be registered as a pointer", reflect.TypeOf(MockResource1{})), func() {
		app.addResources(MockResource1{name: "not a pointer"})
	})
}

func TestApp_Step_RunsSystemsInStageOrder(t *testing.T) {
	app := NewAppBuilder().Build()

	var order []string
	app.UseSystem(System(func(cmd *Commands) { order = append(order, "update") }).InStage(Update))
	app.UseSystem(System(func(cmd *Commands) { order = append(order, "pre-physics") }).InStage(PrePhysics))
	app.UseSystem(System(func(cmd *Commands) { order = append(order, "physics") }).InStage(Physics))
	app.UseSystem(System(func(cmd *Commands) { order = append(order, "post-physics") }).InStage(PostPhysics))

	app.Step()

	assert.Equal(t, []string{"update", "pre-physics", "physics", "post-physics"}, order)
}

func TestApp_Step_FlushesCommandsBetweenStages(t *testing.T) {
	app := NewAppBuilder().Build()

	var spawned EntityId
	app.UseSystem(System(func(cmd *Commands) {
		spawned = cmd.AddEntity(struct{ X int }{X: 1})
	}).InStage(Update))

	var sawAlive bool
	app.UseSystem(System(func(cmd *Commands) {
		sawAlive = cmd.Alive(spawned)
	}).InStage(PrePhysics))

	app.Step()

	assert.True(t, sawAlive, "entity spawned in Update should be visible by PrePhysics")
}

func TestApp_Resource(t *testing.T) {
	app := NewAppBuilder().Build()
	res := NewMockResource1("res")
	app.addResources(res)

	got := app.Resource(reflect.TypeOf(*res))
	assert.Same(t, res, got)
}
