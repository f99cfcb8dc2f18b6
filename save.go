package accretion

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Snapshot and friends implement the §6.4 save format: slot-based flat files
// under saves/slot_N, one BSON document per slot. This is deliberately not
// an ECS Module — save/load is an external collaborator the core only
// exposes data to (§1's non-goals: "save/load serialization"). Neither the
// core nor cmd/accretion calls it; code outside the tick loop calls it
// directly.
type Snapshot struct {
	Version   int                `bson:"version"`
	Scenario  string             `bson:"scenario"`
	Player    PlayerSnapshot     `bson:"player"`
	Asteroids []AsteroidSnapshot `bson:"asteroids"`
	Resources ResourceSnapshot   `bson:"resources"`
}

const saveFormatVersion = 1

type PlayerSnapshot struct {
	Position vec2Doc `bson:"position"`
	Velocity vec2Doc `bson:"velocity"`
}

// AsteroidSnapshot captures exactly what I1/I2 already guarantee is true at
// save time, so loading never re-hulls or re-rescales (§6.4).
type AsteroidSnapshot struct {
	Position        vec2Doc   `bson:"position"`
	Orientation     float32   `bson:"orientation"`
	LinearVelocity  vec2Doc   `bson:"linear_velocity"`
	AngularVelocity float32   `bson:"angular_velocity"`
	Size            int       `bson:"size"`
	LocalVertices   []vec2Doc `bson:"local_vertices"`
	IsPlanet        bool      `bson:"is_planet"`
}

type ResourceSnapshot struct {
	ShotsFired int64  `bson:"shots_fired"`
	Hits       uint64 `bson:"hits"`
	OreUnits   uint64 `bson:"ore_units"`
}

// vec2Doc is the BSON-friendly mirror of mgl32.Vec2, which has no
// struct fields of its own (it's a [2]float32) so can't carry bson tags
// directly.
type vec2Doc struct {
	X float32 `bson:"x"`
	Y float32 `bson:"y"`
}

func vecToDoc(v mgl32.Vec2) vec2Doc { return vec2Doc{X: v.X(), Y: v.Y()} }
func docToVec(d vec2Doc) mgl32.Vec2 { return mgl32.Vec2{d.X, d.Y} }

// BuildSnapshot walks the live world and produces a Snapshot. playerPos and
// playerVel come from outside the core (the player ship isn't one of ours).
func BuildSnapshot(cmd *Commands, telemetry *Telemetry, scenario string, playerPos, playerVel mgl32.Vec2) Snapshot {
	snap := Snapshot{
		Version:  saveFormatVersion,
		Scenario: scenario,
		Player: PlayerSnapshot{
			Position: vecToDoc(playerPos),
			Velocity: vecToDoc(playerVel),
		},
		Resources: ResourceSnapshot{
			ShotsFired: telemetry.ShotsFired,
			Hits:       telemetry.Hits,
			OreUnits:   telemetry.OreSpawned,
		},
	}

	MakeQuery5[Position, Orientation, LinearVelocity, AngularVelocity, AsteroidSize](cmd).
		Map(func(eid EntityId, pos *Position, orient *Orientation, vel *LinearVelocity, angVel *AngularVelocity, size *AsteroidSize) bool {
			verts, ok := GetComponent[Vertices](cmd, eid)
			if !ok {
				return true
			}
			localDocs := make([]vec2Doc, len(verts.Local))
			for i, v := range verts.Local {
				localDocs[i] = vecToDoc(v)
			}
			_, isPlanet := GetComponent[PlanetMarker](cmd, eid)
			snap.Asteroids = append(snap.Asteroids, AsteroidSnapshot{
				Position:        vecToDoc(pos.Vec),
				Orientation:     orient.Radians,
				LinearVelocity:  vecToDoc(vel.Vec),
				AngularVelocity: angVel.Radians,
				Size:            size.Mass,
				LocalVertices:   localDocs,
				IsPlanet:        isPlanet,
			})
			return true
		})

	return snap
}

// Restore spawns every asteroid in snap back into the world exactly as
// recorded, skipping the hull/area recomputation BuildSnapshot's source data
// already satisfied.
func Restore(cmd *Commands, snap Snapshot) {
	for _, a := range snap.Asteroids {
		local := make([]mgl32.Vec2, len(a.LocalVertices))
		for i, d := range a.LocalVertices {
			local[i] = docToVec(d)
		}
		components := []any{
			Position{Vec: docToVec(a.Position)},
			Orientation{Radians: a.Orientation},
			LinearVelocity{Vec: docToVec(a.LinearVelocity)},
			AngularVelocity{Radians: a.AngularVelocity},
			Vertices{Local: local},
			AsteroidSize{Mass: a.Size},
			ExternalForce{},
			ExternalTorque{},
			Collider{Group: GroupAsteroid, World: worldVertices(local, docToVec(a.Position), a.Orientation)},
		}
		if a.IsPlanet {
			components = append(components, PlanetMarker{})
		}
		cmd.AddEntity(components...)
	}
}

// SaveSlot writes snap to saves/slot_N under baseDir, creating the
// directory if needed.
func SaveSlot(baseDir string, slot int, snap Snapshot) error {
	dir := filepath.Join(baseDir, "saves")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save slot %d: %w", slot, err)
	}
	data, err := bson.Marshal(snap)
	if err != nil {
		return fmt.Errorf("save slot %d: marshal: %w", slot, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("slot_%d", slot))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save slot %d: %w", slot, err)
	}
	return nil
}

// LoadSlot reads and decodes saves/slot_N. A read or decode failure marks
// the slot corrupt; the caller decides how to surface that without
// affecting other slots (§7).
func LoadSlot(baseDir string, slot int) (Snapshot, error) {
	path := filepath.Join(baseDir, "saves", fmt.Sprintf("slot_%d", slot))
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load slot %d: %w", slot, err)
	}
	var snap Snapshot
	if err := bson.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("load slot %d: corrupt: %w", slot, err)
	}
	return snap, nil
}
