package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
mei:
  version: "3.9.9"
grouping:
  max_neume_spacing: 0.5
merge:
  width_multiplier: 0
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("JSOMR2MEI_CLASSIFIER", "sheets/classifier.csv")
	t.Setenv("JSOMR2MEI_DB", "/tmp/runs.db")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "3.9.9", cfg.MEI.Version)
	assert.Equal(t, "MEI Encoding Output", cfg.MEI.Title, "unset keys keep their defaults")
	assert.Equal(t, 0.5, cfg.Grouping.MaxNeumeSpacing)
	assert.Equal(t, 8, cfg.Grouping.MaxGroupSize)
	assert.Zero(t, cfg.Merge.WidthMultiplier)
	assert.Equal(t, "sheets/classifier.csv", cfg.Classifier.Path)
	assert.Equal(t, "/tmp/runs.db", cfg.Storage.Path)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Run("version from env", func(t *testing.T) {
		t.Setenv("JSOMR2MEI_MEI_VERSION", "5.0")
		_, err := LoadConfig("")
		assert.ErrorContains(t, err, "mei.version")
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("grouping: [1, 2"), 0o644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Grouping.MaxGroupSize = 0
	cfg.Grouping.MaxNeumeSpacing = -1
	err := cfg.Validate()
	assert.ErrorContains(t, err, "grouping.max_group_size")
	assert.ErrorContains(t, err, "grouping.max_neume_spacing")
}

func TestValidate_SchemaRules(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"version enum", func(c *Config) { c.MEI.Version = "4.1" }, "mei.version"},
		{"spacing above range", func(c *Config) { c.Grouping.MaxNeumeSpacing = 100.5 }, "grouping.max_neume_spacing"},
		{"group size above range", func(c *Config) { c.Grouping.MaxGroupSize = 100000 }, "grouping.max_group_size"},
		{"zero window", func(c *Config) { c.Alignment.Window = 0 }, "alignment.window"},
		{"zero ligature width", func(c *Config) { c.Layout.LigatureWidthUnits = 0 }, "layout.ligature_width_units"},
		{"empty storage path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.edit(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorContains(t, err, "invalid config")
			assert.ErrorContains(t, err, tt.field)
		})
	}

	t.Run("grouping off and merge off are valid", func(t *testing.T) {
		cfg := Default()
		cfg.Grouping.MaxNeumeSpacing = 0
		cfg.Merge.WidthMultiplier = 0
		assert.NoError(t, cfg.Validate())
	})
}
