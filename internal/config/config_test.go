package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/chaosnet/internal/dynamo"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultN, cfg.N)
	assert.Equal(t, []float64{DefaultCoupling}, cfg.Couplings)
	assert.Equal(t, "rk45", cfg.Solver.Method)
}

func TestPresetsValidate(t *testing.T) {
	for _, name := range ListPresets() {
		t.Run(name, func(t *testing.T) {
			cfg := GetPreset(name)
			require.NotNil(t, cfg)
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestGetPreset_Copies(t *testing.T) {
	cfg := GetPreset("tcorr-n256")
	require.NotNil(t, cfg)
	assert.Equal(t, []float64{1.5, 1.6, 2.0}, cfg.Couplings)

	cfg.Couplings[0] = 99
	assert.Equal(t, 1.5, Presets["tcorr-n256"].Couplings[0])

	assert.Nil(t, GetPreset("nonexistent"))
}

func TestTestloopGainArgIsOne(t *testing.T) {
	for _, name := range []string{"testloop-1.05", "testloop-1.2"} {
		cfg := GetPreset(name)
		assert.InDelta(t, 1.0, cfg.Gain*cfg.Couplings[0], 1e-12, name)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero n", func(c *Config) { c.N = 0 }, dynamo.ErrInvalidDimension},
		{"negative coupling", func(c *Config) { c.Couplings = []float64{-1} }, dynamo.ErrInvalidParameter},
		{"no couplings", func(c *Config) { c.Couplings = nil }, dynamo.ErrInvalidParameter},
		{"zero runs", func(c *Config) { c.Runs = 0 }, dynamo.ErrInvalidParameter},
		{"bad window", func(c *Config) { c.Observe.Dt = 0 }, dynamo.ErrInvalidParameter},
		{"bad mode", func(c *Config) { c.Correlation.Mode = "pairwise" }, dynamo.ErrInvalidParameter},
		{"unit out of range", func(c *Config) { c.Correlation.Unit = c.N }, dynamo.ErrInvalidParameter},
		{"zero perturbation", func(c *Config) { c.Lyapunov.Perturbation = 0 }, dynamo.ErrInvalidParameter},
		{"bad tolerance", func(c *Config) { c.Solver.RTol, c.Solver.ATol = 0, 0 }, dynamo.ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	cfg := GetPreset("quick")
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	yml := "n: 64\ncouplings: [0.8, 1.6]\nobserve:\n  t0: 0\n  tf: 30\n  dt: 0.5\nsolver:\n  method: rk4\n  max_step: 0.05\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.N)
	assert.Equal(t, []float64{0.8, 1.6}, cfg.Couplings)
	assert.Equal(t, 30.0, cfg.Observe.Tf)
	assert.Equal(t, "rk4", cfg.Solver.Method)
	assert.Equal(t, 0.05, cfg.Solver.MaxStep)
	assert.Equal(t, dynamo.DefaultSolverConfig().RTol, cfg.Solver.RTol)
	assert.Equal(t, DefaultConfig().BurnIn, cfg.BurnIn)
}

func TestLoadOver_KeepsPresetValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("n: 64\nworkers: 2\n"), 0644))

	cfg, err := LoadOver(path, GetPreset("quick"))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.N)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, []float64{0.5, 1.5}, cfg.Couplings)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 2, cfg.Runs)
	assert.Equal(t, "ensemble", cfg.Correlation.Mode)
	assert.Equal(t, 50, Presets["quick"].N)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("n: -3\n"), 0644))
	_, err := Load(path)
	assert.ErrorIs(t, err, dynamo.ErrInvalidDimension)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(EnvSeed+"=42\n"+EnvWorkers+"=3\n"), 0644))

	t.Setenv(EnvDataDir, filepath.Join(dir, "out"))
	t.Setenv(EnvSeed, "")
	t.Setenv(EnvWorkers, "")
	os.Unsetenv(EnvSeed)
	os.Unsetenv(EnvWorkers)

	require.NoError(t, LoadEnv(envFile, filepath.Join(dir, "missing.env")))

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, filepath.Join(dir, "out"), cfg.DataDir)
}

func TestApplyEnv_Invalid(t *testing.T) {
	t.Setenv(EnvSeed, "not-a-number")
	assert.ErrorIs(t, DefaultConfig().ApplyEnv(), dynamo.ErrInvalidParameter)
}
