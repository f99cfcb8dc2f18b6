package accretion

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/katalvlaran/lvlath/graph"
)

// FormationScratch holds the buffers the formation arbiter reuses every
// tick instead of allocating a fresh adjacency graph, queue, and visited
// set (§9: "a long-lived formation context cleared at the start of each
// formation tick"). Maps are cleared by delete-loop rather than recreated
// so their backing buckets persist once the body population settles.
type FormationScratch struct {
	adjacency map[EntityId][]EntityId
	visited   map[EntityId]bool
	queue     []EntityId
	cluster   []EntityId

	// DebugCrossValidate re-derives each cluster with an independent
	// BFS (katalvlaran/lvlath) and panics on disagreement. Off by default:
	// it builds a throwaway graph per cluster, which is fine for a debug
	// build but not for the steady-state allocation budget.
	DebugCrossValidate bool
}

func NewFormationScratch() *FormationScratch {
	return &FormationScratch{
		adjacency: make(map[EntityId][]EntityId),
		visited:   make(map[EntityId]bool),
	}
}

func (s *FormationScratch) reset() {
	for k := range s.adjacency {
		delete(s.adjacency, k)
	}
	for k := range s.visited {
		delete(s.visited, k)
	}
}

type FormationModule struct{}

func (mod FormationModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(NewFormationScratch())
	app.UseSystem(System(formationSystem).InStage(PostPhysics))
}

type formationBody struct {
	id     EntityId
	pos    *Position
	orient *Orientation
	vel    *LinearVelocity
	angVel *AngularVelocity
	size   *AsteroidSize
	verts  *Vertices
}

// formationSystem implements §4.4: adjacency build, flood-fill, the
// binding-energy gate, hull composition, composite spawn, and constituent
// despawn. It must run in PostPhysics, after RigidBodyModule has populated
// ContactSet for this tick (§5's critical ordering constraint) — running it
// any earlier yields zero merges.
func formationSystem(scratch *FormationScratch, contacts *ContactSet, cfg *SimConfig, telemetry *Telemetry, cmd *Commands) {
	scratch.reset()
	logger := cmd.app.Logger()

	bodies := make(map[EntityId]*formationBody)
	MakeQuery5[Position, Orientation, LinearVelocity, AngularVelocity, AsteroidSize](cmd).
		WithoutTypes(PlanetMarker{}, ProjectileTag{}).
		Map(func(eid EntityId, pos *Position, orient *Orientation, vel *LinearVelocity, angVel *AngularVelocity, size *AsteroidSize) bool {
			verts, ok := GetComponent[Vertices](cmd, eid)
			if !ok {
				return true
			}
			bodies[eid] = &formationBody{id: eid, pos: pos, orient: orient, vel: vel, angVel: angVel, size: size, verts: verts}
			return true
		})
	if len(bodies) < 2 {
		return
	}

	for _, pair := range contacts.Pairs() {
		_, aok := bodies[pair.EntityA]
		_, bok := bodies[pair.EntityB]
		if !aok || !bok {
			continue
		}
		scratch.adjacency[pair.EntityA] = append(scratch.adjacency[pair.EntityA], pair.EntityB)
		scratch.adjacency[pair.EntityB] = append(scratch.adjacency[pair.EntityB], pair.EntityA)
	}

	// Deterministic start order: iteration order over entities must not
	// affect correctness (§5), but a stable seed order makes cluster
	// discovery reproducible across runs for the same world state.
	ids := make([]EntityId, 0, len(bodies))
	for id := range bodies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, start := range ids {
		if scratch.visited[start] {
			continue
		}
		cluster := scratch.floodFill(start)
		if len(cluster) < 2 {
			continue
		}
		if scratch.DebugCrossValidate {
			crossValidateCluster(scratch, start, cluster)
		}
		tryMergeCluster(cluster, bodies, cfg, telemetry, logger, cmd)
	}
}

// floodFill is a breadth-first walk over scratch.adjacency, reusing
// scratch.queue/cluster across calls within the same tick.
func (s *FormationScratch) floodFill(start EntityId) []EntityId {
	s.queue = append(s.queue[:0], start)
	s.visited[start] = true
	s.cluster = append(s.cluster[:0], start)

	head := 0
	for head < len(s.queue) {
		cur := s.queue[head]
		head++
		for _, n := range s.adjacency[cur] {
			if !s.visited[n] {
				s.visited[n] = true
				s.queue = append(s.queue, n)
				s.cluster = append(s.cluster, n)
			}
		}
	}
	return s.cluster
}

// tryMergeCluster applies the binding-energy gate and, if it passes, spawns
// the composite and despawns the constituents.
func tryMergeCluster(cluster []EntityId, bodies map[EntityId]*formationBody, cfg *SimConfig, telemetry *Telemetry, logger Logger, cmd *Commands) {
	members := make([]*formationBody, len(cluster))
	var totalMass float32
	var momentum mgl32.Vec2
	for i, id := range cluster {
		b := bodies[id]
		members[i] = b
		m := float32(b.size.Mass)
		totalMass += m
		momentum = momentum.Add(b.vel.Vec.Mul(m))
	}
	if totalMass <= 0 {
		return
	}
	vcm := momentum.Mul(1 / totalMass)

	var ek float32
	for _, b := range members {
		m := float32(b.size.Mass)
		rel := b.vel.Vec.Sub(vcm)
		ek += 0.5 * m * rel.LenSqr()
		inertia := 0.5 * m * m / float32(math.Pi) // uniform-disk estimate, §4.4
		ek += 0.5 * inertia * b.angVel.Radians * b.angVel.Radians
	}

	var eb float32
	g := cfg.GravityConst
bound:
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			a, bb := members[i], members[j]
			r := a.pos.Vec.Sub(bb.pos.Vec).Len()
			if r < 1 {
				r = 1 // avoid division by zero when constituents visually overlap
			}
			eb += g * float32(a.size.Mass) * float32(bb.size.Mass) / r
			if eb >= ek {
				break bound // short-circuit: binding energy already exceeds kinetic
			}
		}
	}
	if ek >= eb {
		return
	}

	mergeCluster(members, totalMass, vcm, cfg, telemetry, logger, cmd)
}

func mergeCluster(members []*formationBody, totalMass float32, vcm mgl32.Vec2, cfg *SimConfig, telemetry *Telemetry, logger Logger, cmd *Commands) {
	var worldVerts []mgl32.Vec2
	var angVelSum float32
	for _, b := range members {
		worldVerts = append(worldVerts, worldVertices(b.verts.Local, b.pos.Vec, b.orient.Radians)...)
		angVelSum += b.angVel.Radians
	}

	hull := convexHull(worldVerts)
	targetArea := totalMass / cfg.AsteroidDensity

	var localVerts []mgl32.Vec2
	var compositePos mgl32.Vec2
	if len(hull) < 3 {
		logger.Warnf("formation: degenerate hull (%d verts) for a %d-body cluster, substituting canonical polygon", len(hull), len(members))
		compositePos = polygonCentroid(worldVerts)
		localVerts = canonicalPolygon(minVerticesForMass(int(totalMass)), targetArea)
	} else {
		hull = ensureCCW(hull)
		var centroid mgl32.Vec2
		localVerts, centroid = recenterToCentroid(hull)
		localVerts = rescaleToArea(localVerts, targetArea)
		compositePos = centroid
		if !isConvexCCW(localVerts) {
			localVerts = canonicalPolygon(minVerticesForMass(int(totalMass)), targetArea)
		}
	}

	// §4.4's I5: mass-weighted-mean linear contribution (vcm), simple-mean
	// angular velocity — a deliberate non-conservative simplification
	// documented in DESIGN.md rather than a true L_total/I_composite
	// integration.
	avgAngVel := angVelSum / float32(len(members))

	cmd.AddEntity(
		Position{Vec: compositePos},
		Orientation{Radians: 0},
		LinearVelocity{Vec: vcm},
		AngularVelocity{Radians: avgAngVel},
		Vertices{Local: localVerts},
		AsteroidSize{Mass: int(totalMass)},
		ExternalForce{},
		ExternalTorque{},
		Collider{Group: GroupAsteroid, World: worldVertices(localVerts, compositePos, 0)},
	)

	for _, b := range members {
		cmd.RemoveEntity(b.id)
	}

	telemetry.Merges++
}

// crossValidateCluster re-derives cluster membership with lvlath's BFS and
// panics if it disagrees with the flood-fill result. Debug-only: never
// wired into the default module set.
func crossValidateCluster(scratch *FormationScratch, start EntityId, cluster []EntityId) {
	inCluster := make(map[EntityId]bool, len(cluster))
	for _, id := range cluster {
		inCluster[id] = true
	}

	g := graph.NewGraph(false, false)
	for eid, neighbors := range scratch.adjacency {
		if !inCluster[eid] {
			continue
		}
		g.AddVertex(&graph.Vertex{ID: fmt.Sprint(eid)})
		for _, n := range neighbors {
			g.AddVertex(&graph.Vertex{ID: fmt.Sprint(n)})
			g.AddEdge(fmt.Sprint(eid), fmt.Sprint(n), 1)
		}
	}

	res, err := g.BFS(fmt.Sprint(start), nil)
	if err != nil {
		panic(fmt.Sprintf("formation debug cross-validation: bfs failed: %v", err))
	}
	if len(res.Visited) != len(cluster) {
		panic(fmt.Sprintf("formation debug cross-validation: flood-fill found %d members, lvlath BFS found %d", len(cluster), len(res.Visited)))
	}
}
