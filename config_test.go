package accretion

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSimConfig_MissingFileKeepsDefaults(t *testing.T) {
	cfg := LoadSimConfig(filepath.Join(t.TempDir(), "does-not-exist.cfg"), NewNopLogger())
	defaults := DefaultSimConfig()
	assert.Equal(t, defaults.GravityConst, cfg.GravityConst)
	assert.Equal(t, defaults.HardCullDistance, cfg.HardCullDistance)
}

func TestLoadSimConfig_ParsesKnownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.cfg")
	require.NoError(t, os.WriteFile(path, []byte("gravity_const=99\nhard_cull_distance=123.5\nmissile_split_max_pieces=4\n"), 0o644))

	cfg := LoadSimConfig(path, NewNopLogger())
	assert.Equal(t, float32(99), cfg.GravityConst)
	assert.Equal(t, float32(123.5), cfg.HardCullDistance)
	assert.Equal(t, 4, cfg.MissileSplitMaxPieces)
}

func TestLoadSimConfig_TolerantOfMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.cfg")
	content := "# a comment\n\ngravity_const=42\nthis line has no equals sign\nhard_cull_distance=not-a-number\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := LoadSimConfig(path, NewNopLogger())
	assert.Equal(t, float32(42), cfg.GravityConst, "well-formed lines still apply")
	assert.Equal(t, DefaultSimConfig().HardCullDistance, cfg.HardCullDistance, "malformed value keeps the prior default")
}

func TestSimConfig_PollReloadsOnMtimeChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.cfg")
	require.NoError(t, os.WriteFile(path, []byte("gravity_const=1\n"), 0o644))

	cfg := LoadSimConfig(path, NewNopLogger())
	require.Equal(t, float32(1), cfg.GravityConst)
	cfg.pollEvery = 0 // don't wait out the poll interval in a unit test

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.WriteFile(path, []byte("gravity_const=2\n"), 0o644))
	require.NoError(t, os.Chtimes(path, future, future))

	cfg.Poll(NewNopLogger())
	assert.Equal(t, float32(2), cfg.GravityConst)
}

func TestSimConfig_PollSkipsWithinInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.cfg")
	require.NoError(t, os.WriteFile(path, []byte("gravity_const=1\n"), 0o644))
	cfg := LoadSimConfig(path, NewNopLogger())
	cfg.pollEvery = time.Hour
	cfg.lastPoll = time.Now()

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.WriteFile(path, []byte("gravity_const=2\n"), 0o644))
	require.NoError(t, os.Chtimes(path, future, future))

	cfg.Poll(NewNopLogger())
	assert.Equal(t, float32(1), cfg.GravityConst, "poll should be a no-op before pollEvery elapses")
}

func TestConfigModule_RegistersSimConfigResource(t *testing.T) {
	app := NewApp(ConfigModule{Path: ""})
	cfg := app.Resource(simConfigType).(*SimConfig)
	assert.Equal(t, DefaultSimConfig().GravityConst, cfg.GravityConst)
}
