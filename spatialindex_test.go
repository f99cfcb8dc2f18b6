package accretion

import (
	"sort"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestSpatialIndex_QueryFindsNeighborsWithinRadius(t *testing.T) {
	idx := NewSpatialIndex()
	idx.Rebuild([]IndexedPoint{
		{Entity: 1, Point: mgl32.Vec2{0, 0}},
		{Entity: 2, Point: mgl32.Vec2{1, 0}},
		{Entity: 3, Point: mgl32.Vec2{100, 100}},
	})

	got := idx.Query(mgl32.Vec2{0, 0}, 5, EntityId(0), nil)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	assert.Equal(t, []EntityId{1, 2}, got)
}

func TestSpatialIndex_QueryExcludesSelf(t *testing.T) {
	idx := NewSpatialIndex()
	idx.Rebuild([]IndexedPoint{
		{Entity: 1, Point: mgl32.Vec2{0, 0}},
		{Entity: 2, Point: mgl32.Vec2{1, 0}},
	})

	got := idx.Query(mgl32.Vec2{0, 0}, 5, EntityId(1), nil)
	assert.Equal(t, []EntityId{2}, got)
}

func TestSpatialIndex_EmptyTreeQueryReturnsEmpty(t *testing.T) {
	idx := NewSpatialIndex()
	idx.Rebuild(nil)
	got := idx.Query(mgl32.Vec2{0, 0}, 100, EntityId(0), nil)
	assert.Empty(t, got)
}

func TestSpatialIndex_RebuildReusesBackingArrays(t *testing.T) {
	idx := NewSpatialIndex()
	points := make([]IndexedPoint, 50)
	for i := range points {
		points[i] = IndexedPoint{Entity: EntityId(i), Point: mgl32.Vec2{float32(i), 0}}
	}
	idx.Rebuild(points)
	nodesPtr := &idx.nodes[0]

	idx.Rebuild(points[:10])
	idx.Rebuild(points)
	assert.Same(t, nodesPtr, &idx.nodes[0], "nodes backing array should not reallocate when population doesn't exceed a prior high-water mark")
	assert.Equal(t, 50, idx.Len())
}

func TestSpatialIndex_QueryRadiusExcludesFarPoints(t *testing.T) {
	idx := NewSpatialIndex()
	idx.Rebuild([]IndexedPoint{
		{Entity: 1, Point: mgl32.Vec2{0, 0}},
		{Entity: 2, Point: mgl32.Vec2{10, 0}},
	})
	got := idx.Query(mgl32.Vec2{0, 0}, 5, EntityId(0), nil)
	assert.Equal(t, []EntityId{1}, got)
}
