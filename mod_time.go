package accretion

import (
	"time"
)

// Time tracks wall-clock frame timing for the Update stage and the fixed
// physics step the rest of the pipeline integrates on. Scenario harnesses
// pin FixedDt so a run's outcome doesn't depend on host frame rate.
type Time struct {
	Time       time.Time
	Duration   time.Duration
	Dt         float64
	FixedDt    float64
	FrameCount uint64
}

type TimeModule struct {
	// FixedDt, when > 0, overrides wall-clock timing with a constant step.
	// Test harnesses set it (1/60 for most scenarios) so ACCRETION_TEST runs are
	// reproducible regardless of how long a tick actually took to compute.
	FixedDt float64
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	fixedDt := mod.FixedDt
	app.UseSystem(
		System(func(t *Time) { timeSystem(t, fixedDt) }).
			InStage(Update),
	)

	cmd.AddResources(&Time{
		Time:    time.Now(),
		FixedDt: fixedDt,
	})
}

func timeSystem(t *Time, fixedDt float64) {
	if fixedDt > 0 {
		t.Dt = fixedDt
		t.FrameCount++
		return
	}

	now := time.Now()
	dur := now.Sub(t.Time)
	dt := dur.Seconds()
	// Clamp dt to 10fps minimum to prevent physics from exploding during hitches/startup
	if dt > 0.1 {
		dt = 0.1
	}

	t.Duration = dur
	t.Dt = dt
	t.Time = now
	t.FrameCount++
}
