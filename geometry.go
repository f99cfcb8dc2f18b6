package accretion

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// polygonArea is the shoelace formula; sign encodes winding (positive CCW).
func polygonArea(verts []mgl32.Vec2) float32 {
	n := len(verts)
	if n < 3 {
		return 0
	}
	var sum float32
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += verts[i].X()*verts[j].Y() - verts[j].X()*verts[i].Y()
	}
	return sum / 2
}

// polygonCentroid is the area-weighted centroid. Falls back to the
// arithmetic mean of vertices for near-degenerate (collinear) polygons,
// where the area-weighted formula divides by ~0.
func polygonCentroid(verts []mgl32.Vec2) mgl32.Vec2 {
	n := len(verts)
	if n == 0 {
		return mgl32.Vec2{}
	}
	area := polygonArea(verts)
	if float32(math.Abs(float64(area))) < 1e-9 {
		var sum mgl32.Vec2
		for _, v := range verts {
			sum = sum.Add(v)
		}
		return sum.Mul(1 / float32(n))
	}

	var cx, cy float32
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cr := verts[i].X()*verts[j].Y() - verts[j].X()*verts[i].Y()
		cx += (verts[i].X() + verts[j].X()) * cr
		cy += (verts[i].Y() + verts[j].Y()) * cr
	}
	factor := 1 / (6 * area)
	return mgl32.Vec2{cx * factor, cy * factor}
}

// recenterToCentroid translates verts so their centroid sits at the origin,
// returning the new local vertices and the centroid they were translated by
// (the caller's new world-space position).
func recenterToCentroid(verts []mgl32.Vec2) ([]mgl32.Vec2, mgl32.Vec2) {
	c := polygonCentroid(verts)
	out := make([]mgl32.Vec2, len(verts))
	for i, v := range verts {
		out[i] = v.Sub(c)
	}
	return out, c
}

// ensureCCW returns a CW-wound polygon as a new, reversed CCW copy (I1); a
// polygon that is already CCW is returned unchanged.
func ensureCCW(verts []mgl32.Vec2) []mgl32.Vec2 {
	if polygonArea(verts) >= 0 {
		return verts
	}
	reversed := make([]mgl32.Vec2, len(verts))
	for i, v := range verts {
		reversed[len(verts)-1-i] = v
	}
	return reversed
}

// rescaleToArea radially scales verts about the origin so polygon_area
// equals targetArea (I2's rescale step), per §4.4: scale = sqrt(target/current).
func rescaleToArea(verts []mgl32.Vec2, targetArea float32) []mgl32.Vec2 {
	current := polygonArea(verts)
	if current <= 1e-9 || targetArea <= 0 {
		return verts
	}
	scale := float32(math.Sqrt(float64(targetArea / current)))
	out := make([]mgl32.Vec2, len(verts))
	for i, v := range verts {
		out[i] = v.Mul(scale)
	}
	return out
}

// convexHull computes the convex hull of points via Andrew's monotone
// chain, returning CCW-wound hull vertices. Collinear inputs collapse to a
// hull of fewer than 3 points; callers must treat that as the degenerate
// case described in §4.4's edge cases.
func convexHull(points []mgl32.Vec2) []mgl32.Vec2 {
	pts := make([]mgl32.Vec2, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X() != pts[j].X() {
			return pts[i].X() < pts[j].X()
		}
		return pts[i].Y() < pts[j].Y()
	})

	n := len(pts)
	if n < 3 {
		return pts
	}

	crossPts := func(o, a, b mgl32.Vec2) float32 {
		return cross2(a.Sub(o), b.Sub(o))
	}

	lower := make([]mgl32.Vec2, 0, n)
	for _, p := range pts {
		for len(lower) >= 2 && crossPts(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	upper := make([]mgl32.Vec2, 0, n)
	for i := n - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && crossPts(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	hull := make([]mgl32.Vec2, 0, len(lower)+len(upper)-2)
	hull = append(hull, lower[:len(lower)-1]...)
	hull = append(hull, upper[:len(upper)-1]...)
	return hull
}

// isConvexCCW reports whether verts form a convex, CCW-wound polygon (I1,
// P-Convex), tolerating tiny floating-point reflex angles.
func isConvexCCW(verts []mgl32.Vec2) bool {
	n := len(verts)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		a, b, c := verts[i], verts[(i+1)%n], verts[(i+2)%n]
		if cross2(b.Sub(a), c.Sub(a)) < -1e-6 {
			return false
		}
	}
	return true
}

// minVerticesForMass is the §4.5.2 minimum-shape table.
func minVerticesForMass(mass int) int {
	switch {
	case mass <= 1:
		return 3
	case mass <= 4:
		return 4
	case mass == 5:
		return 5
	case mass <= 7:
		return 6
	case mass <= 9:
		return 7
	default:
		return 8
	}
}

// canonicalPolygon returns a regular vertexCount-gon centered at the origin
// whose area equals targetArea, the fallback shape used whenever a
// geometric split/hull degenerates below its required vertex count.
func canonicalPolygon(vertexCount int, targetArea float32) []mgl32.Vec2 {
	if vertexCount < 3 {
		vertexCount = 3
	}
	if targetArea <= 0 {
		targetArea = 1e-6
	}
	n := float64(vertexCount)
	// area of a regular n-gon with circumradius r: A = 0.5 n r^2 sin(2pi/n)
	r := math.Sqrt(2 * float64(targetArea) / (n * math.Sin(2*math.Pi/n)))

	verts := make([]mgl32.Vec2, vertexCount)
	for i := 0; i < vertexCount; i++ {
		theta := 2 * math.Pi * float64(i) / n
		verts[i] = mgl32.Vec2{float32(r * math.Cos(theta)), float32(r * math.Sin(theta))}
	}
	return verts
}

// rotate2 rotates v by angle radians about the origin.
func rotate2(v mgl32.Vec2, angle float32) mgl32.Vec2 {
	s, c := math.Sincos(float64(angle))
	sf, cf := float32(s), float32(c)
	return mgl32.Vec2{v.X()*cf - v.Y()*sf, v.X()*sf + v.Y()*cf}
}

// worldVertices transforms local (centroid-centered) vertices into world
// space given a body's position and orientation.
func worldVertices(local []mgl32.Vec2, pos mgl32.Vec2, orientation float32) []mgl32.Vec2 {
	out := make([]mgl32.Vec2, len(local))
	for i, v := range local {
		out[i] = rotate2(v, orientation).Add(pos)
	}
	return out
}

// NewAsteroidShape is the public constructor scenario-seeding code (an
// external collaborator per the core's non-goals) uses to build a body's
// Vertices satisfying the area/mass invariant from the moment it's spawned.
func NewAsteroidShape(vertexCount int, targetArea float32) []mgl32.Vec2 {
	return canonicalPolygon(vertexCount, targetArea)
}

// PolygonArea exposes the shoelace-formula area to external callers
// checking P-Area without reaching into package internals.
func PolygonArea(verts []mgl32.Vec2) float32 {
	return polygonArea(verts)
}

// MaxVertexRadius exposes the circumradius estimate split geometry uses
// internally, for scenario seeding that needs to place an impact point a
// fraction of the way from a body's centroid to its hull.
func MaxVertexRadius(verts []mgl32.Vec2) float32 {
	return maxVertexRadius(verts)
}
