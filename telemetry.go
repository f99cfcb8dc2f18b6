package accretion

import (
	"github.com/google/uuid"
)

// Telemetry accumulates observational-only hit/outcome counters for the
// current simulation session. Every counter is a plain integer (int64 for
// ShotsFired and InFlight, uint64 for the rest) mutated from the
// single-threaded tick; nothing here feeds back into simulation
// behavior (§3's process-wide state: "observational only").
type Telemetry struct {
	SessionID uuid.UUID

	ShotsFired int64
	Hits       uint64
	Expired    uint64
	InFlight   int64

	Merges     uint64
	Destroyed  uint64
	Chipped    uint64
	Split      uint64
	Decomposed uint64
	OreSpawned uint64
}

func NewTelemetry() *Telemetry {
	return &Telemetry{SessionID: uuid.New()}
}

// ShotsBalance checks P-Telemetry: shots = hits + expired + in_flight.
func (t *Telemetry) ShotsBalance() int64 {
	return int64(t.Hits) + int64(t.Expired) + t.InFlight
}

type TelemetryModule struct{}

func (mod TelemetryModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(NewTelemetry())
}
