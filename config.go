package accretion

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"
)

// SimConfig holds every scalar tuning parameter the simulation consults
// each tick (§6.2). It loads from a flat key=value file and is polled for
// mtime changes by a dedicated hot-reload system outside the physics hot
// path; a missing file keeps compiled defaults, a malformed line is logged
// and skipped rather than treated as fatal (§7's configuration-error
// taxonomy).
type SimConfig struct {
	path     string
	lastMod  time.Time
	lastPoll time.Time
	pollEvery time.Duration

	GravityConst          float32
	MinGravityDist        float32
	MaxGravityDist        float32
	TidalTorqueScale      float32
	AsteroidDensity       float32
	SoftBoundaryRadius    float32
	SoftBoundaryStrength  float32
	HardCullDistance      float32
	MissileSplitMaxPieces int

	TractorBeamConeAngle float32
	TractorBeamRange     float32
	TractorBeamForce     float32
	TractorBeamFreezeK   float32
	TractorBeamFreezeC   float32
}

// DefaultSimConfig matches the values used by the §8.2 end-to-end scenarios.
func DefaultSimConfig() *SimConfig {
	return &SimConfig{
		pollEvery:             time.Second,
		GravityConst:          10,
		MinGravityDist:        5,
		MaxGravityDist:        2000,
		TidalTorqueScale:      0,
		AsteroidDensity:       0.1,
		SoftBoundaryRadius:    2000,
		SoftBoundaryStrength:  0.5,
		HardCullDistance:      2500,
		MissileSplitMaxPieces: 6,
		TractorBeamConeAngle:  0.35,
		TractorBeamRange:      400,
		TractorBeamForce:      800,
		TractorBeamFreezeK:    40,
		TractorBeamFreezeC:    8,
	}
}

// LoadSimConfig reads path if present, otherwise keeps compiled defaults.
func LoadSimConfig(path string, logger Logger) *SimConfig {
	cfg := DefaultSimConfig()
	cfg.path = path
	cfg.reload(logger)
	return cfg
}

func (c *SimConfig) reload(logger Logger) {
	f, err := os.Open(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("simconfig: %v, keeping current values", err)
		}
		return
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil {
		c.lastMod = info.ModTime()
	}

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			logger.Warnf("simconfig: malformed line %q, skipping", line)
			continue
		}
		values[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}

	applyFloat(values, "gravity_const", &c.GravityConst, logger)
	applyFloat(values, "min_gravity_dist", &c.MinGravityDist, logger)
	applyFloat(values, "max_gravity_dist", &c.MaxGravityDist, logger)
	applyFloat(values, "tidal_torque_scale", &c.TidalTorqueScale, logger)
	applyFloat(values, "asteroid_density", &c.AsteroidDensity, logger)
	applyFloat(values, "soft_boundary_radius", &c.SoftBoundaryRadius, logger)
	applyFloat(values, "soft_boundary_strength", &c.SoftBoundaryStrength, logger)
	applyFloat(values, "hard_cull_distance", &c.HardCullDistance, logger)
	applyInt(values, "missile_split_max_pieces", &c.MissileSplitMaxPieces, logger)
	applyFloat(values, "tractor_beam_cone_angle", &c.TractorBeamConeAngle, logger)
	applyFloat(values, "tractor_beam_range", &c.TractorBeamRange, logger)
	applyFloat(values, "tractor_beam_force", &c.TractorBeamForce, logger)
	applyFloat(values, "tractor_beam_freeze_k", &c.TractorBeamFreezeK, logger)
	applyFloat(values, "tractor_beam_freeze_c", &c.TractorBeamFreezeC, logger)
}

func applyFloat(values map[string]string, key string, dst *float32, logger Logger) {
	raw, ok := values[key]
	if !ok {
		return
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		logger.Warnf("simconfig: %s=%q is not a number, keeping current value", key, raw)
		return
	}
	*dst = float32(v)
}

func applyInt(values map[string]string, key string, dst *int, logger Logger) {
	raw, ok := values[key]
	if !ok {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warnf("simconfig: %s=%q is not an integer, keeping current value", key, raw)
		return
	}
	*dst = v
}

// Poll checks the file's mtime at most once per pollEvery and reloads on
// change. Called from ConfigModule's hot-reload system, never from the
// physics path (§5).
func (c *SimConfig) Poll(logger Logger) {
	if c.path == "" {
		return
	}
	now := time.Now()
	if now.Sub(c.lastPoll) < c.pollEvery {
		return
	}
	c.lastPoll = now

	info, err := os.Stat(c.path)
	if err != nil {
		return
	}
	if info.ModTime().After(c.lastMod) {
		c.reload(logger)
	}
}

// ConfigModule loads SimConfig at startup and polls it for changes.
type ConfigModule struct {
	Path string
}

func (mod ConfigModule) Install(app *App, cmd *Commands) {
	logger := app.Logger()
	cfg := LoadSimConfig(mod.Path, logger)
	cmd.AddResources(cfg)

	app.UseSystem(System(func(c *SimConfig) {
		c.Poll(logger)
	}).InStage(Update))
}
