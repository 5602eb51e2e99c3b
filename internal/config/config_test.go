package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ModeFixed, cfg.Pipeline.Mode)
	assert.Equal(t, 3000.0, cfg.Pipeline.FixedStrength)
	assert.Equal(t, CleaningPercentile, cfg.Pipeline.CleaningStrategy)
	assert.Equal(t, []float64{3, 15, 50, 85, 97}, cfg.Pipeline.CentileLevels)
	assert.Equal(t, "WM", cfg.Pipeline.GatingTissue)
	assert.Equal(t, 200, cfg.Pipeline.MaxCycles)
	assert.Equal(t, 0.001, cfg.Pipeline.Tolerance)
	assert.GreaterOrEqual(t, cfg.Pipeline.Workers, 1)
	require.NoError(t, cfg.Validate())
}

func TestDefault_LevelsAreCopied(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.CentileLevels[0] = 1

	assert.Equal(t, 3.0, DefaultCentileLevels[0])
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "growthcurves.yaml")
	yamlContent := `
pipeline:
  mode: search
  workers: 3
  fit_timeout: 5s
  cleaning_strategy: double_zscore
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(file, []byte(yamlContent), 0644))

	t.Setenv("GROWTH_PIPELINE_WORKERS", "6")
	t.Setenv("GROWTH_SERVER_PORT", "9000")

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, ModeSearch, cfg.Pipeline.Mode)
	assert.Equal(t, 6, cfg.Pipeline.Workers)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.FitTimeout)
	assert.Equal(t, CleaningDoubleZScore, cfg.Pipeline.CleaningStrategy)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 9000, cfg.Server.Port)
	// untouched values keep their defaults
	assert.Equal(t, DefaultGatingTissue, cfg.Pipeline.GatingTissue)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad mode", map[string]string{"GROWTH_PIPELINE_MODE": "exhaustive"}},
		{"bad strategy", map[string]string{"GROWTH_PIPELINE_CLEANING_STRATEGY": "iqr"}},
		{"zero workers", map[string]string{"GROWTH_PIPELINE_WORKERS": "0"}},
		{"level out of range", map[string]string{"GROWTH_PIPELINE_CENTILE_LEVELS": "3,150"}},
		{"bad log level", map[string]string{"GROWTH_LOGGING_LEVEL": "verbose"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			missing := filepath.Join(t.TempDir(), "none.yaml")
			require.NoError(t, os.WriteFile(missing, []byte("{}"), 0644))

			_, err := Load(missing)
			assert.Error(t, err)
		})
	}
}

func TestPaths(t *testing.T) {
	dir := t.TempDir()
	p := NewPaths(filepath.Join(dir, "out"))

	require.NoError(t, p.EnsureDirectories())
	assert.DirExists(t, p.CentilesDir)
	assert.Equal(t, filepath.Join(dir, "out", "centiles", "F_WM_FA_centiles.csv"), p.CentilePath("F", "WM", "FA"))
	assert.Equal(t, filepath.Join(dir, "out", "centiles", "all_W_M_F_A_centiles.csv"), p.CentilePath("", "W M", "F/A"))
}
