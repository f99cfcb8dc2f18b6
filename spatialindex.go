package accretion

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

const nullIndex = ^uint32(0)

type kdNode struct {
	entity EntityId
	point  mgl32.Vec2
	left   uint32
	right  uint32
	axis   uint8
}

// IndexedPoint is the input row to SpatialIndex.Rebuild.
type IndexedPoint struct {
	Entity EntityId
	Point  mgl32.Vec2
}

// SpatialIndex is a flat-arena 2-D KD-tree over body centroids, alternating
// X/Y median splits, rebuilt once per physics tick from scratch. The node
// arena and the build scratch buffer grow monotonically with N and are
// reused across rebuilds, so steady-state operation (population not
// growing) does no heap allocation (§4.1's "no per-node heap allocations
// between rebuilds").
type SpatialIndex struct {
	nodes   []kdNode
	root    uint32
	workBuf []IndexedPoint

	// ScratchPoints is a reusable buffer for the system that gathers body
	// positions before calling Rebuild; exported so the gathering system
	// doesn't need its own growing slice.
	ScratchPoints []IndexedPoint
}

func NewSpatialIndex() *SpatialIndex {
	return &SpatialIndex{root: nullIndex}
}

// Rebuild discards the previous tree and constructs a balanced one over
// points. Cost is O(N log^2 N) due to the per-level axis sort; acceptable
// for the body counts this simulation targets (hundreds, not millions).
func (idx *SpatialIndex) Rebuild(points []IndexedPoint) {
	n := len(points)
	if cap(idx.nodes) < n {
		idx.nodes = make([]kdNode, n)
	}
	idx.nodes = idx.nodes[:n]

	if cap(idx.workBuf) < n {
		idx.workBuf = make([]IndexedPoint, n)
	}
	idx.workBuf = idx.workBuf[:n]
	copy(idx.workBuf, points)

	if n == 0 {
		idx.root = nullIndex
		return
	}

	cursor := 0
	idx.root = idx.buildRange(idx.workBuf, 0, &cursor)
}

func (idx *SpatialIndex) buildRange(work []IndexedPoint, axis uint8, cursor *int) uint32 {
	if len(work) == 0 {
		return nullIndex
	}
	if axis == 0 {
		sort.Slice(work, func(i, j int) bool { return work[i].Point.X() < work[j].Point.X() })
	} else {
		sort.Slice(work, func(i, j int) bool { return work[i].Point.Y() < work[j].Point.Y() })
	}

	mid := len(work) / 2
	slot := uint32(*cursor)
	*cursor++

	idx.nodes[slot] = kdNode{
		entity: work[mid].Entity,
		point:  work[mid].Point,
		axis:   axis,
		left:   idx.buildRange(work[:mid], 1-axis, cursor),
		right:  idx.buildRange(work[mid+1:], 1-axis, cursor),
	}
	return slot
}

// Query appends into out every entity within radius of center, excluding
// exclude, and returns the (possibly reallocated) slice. Passing a reused
// out buffer (sliced to 0 length) keeps per-query allocation at zero once
// its backing array has grown to the largest neighbor set seen so far.
func (idx *SpatialIndex) Query(center mgl32.Vec2, radius float32, exclude EntityId, out []EntityId) []EntityId {
	out = out[:0]
	if idx.root == nullIndex {
		return out
	}
	r2 := radius * radius

	var walk func(node uint32)
	walk = func(node uint32) {
		if node == nullIndex {
			return
		}
		n := &idx.nodes[node]
		if n.entity != exclude && n.point.Sub(center).LenSqr() <= r2 {
			out = append(out, n.entity)
		}

		var nodeAxisVal, centerAxisVal float32
		if n.axis == 0 {
			nodeAxisVal, centerAxisVal = n.point.X(), center.X()
		} else {
			nodeAxisVal, centerAxisVal = n.point.Y(), center.Y()
		}
		diff := centerAxisVal - nodeAxisVal

		near, far := n.left, n.right
		if diff > 0 {
			near, far = n.right, n.left
		}
		walk(near)
		if diff*diff <= r2 {
			walk(far)
		}
	}
	walk(idx.root)
	return out
}

// Len reports how many points are currently indexed.
func (idx *SpatialIndex) Len() int {
	return len(idx.nodes)
}
