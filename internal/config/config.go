package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

type Config struct {
	MEI struct {
		Version string `yaml:"version" json:"version"` // 4.0.0 or 3.9.9
		Title   string `yaml:"title" json:"title"`
	} `yaml:"mei" json:"mei"`
	Classifier struct {
		Path string `yaml:"path" json:"path"` // CSV export of the mapping sheet; empty uses the built-in table
	} `yaml:"classifier" json:"classifier"`
	Grouping struct {
		MaxNeumeSpacing float64 `yaml:"max_neume_spacing" json:"max_neume_spacing"` // 0 turns grouping off
		MaxGroupSize    int     `yaml:"max_group_size" json:"max_group_size"`
		ReferenceShape  string  `yaml:"reference_shape" json:"reference_shape"`
	} `yaml:"grouping" json:"grouping"`
	Alignment struct {
		Window float64 `yaml:"window" json:"window"` // in median line spacings
	} `yaml:"alignment" json:"alignment"`
	Merge struct {
		WidthMultiplier float64 `yaml:"width_multiplier" json:"width_multiplier"` // <= 0 disables the post-pass
	} `yaml:"merge" json:"merge"`
	Layout struct {
		LigatureWidthUnits float64 `yaml:"ligature_width_units" json:"ligature_width_units"`
	} `yaml:"layout" json:"layout"`
	Storage struct {
		Path string `yaml:"path" json:"path"`
	} `yaml:"storage" json:"storage"`
}

// Default returns the settings used when no config file is present.
func Default() *Config {
	var cfg Config
	cfg.MEI.Version = "4.0.0"
	cfg.MEI.Title = "MEI Encoding Output"
	cfg.Grouping.MaxNeumeSpacing = 0.3
	cfg.Grouping.MaxGroupSize = 8
	cfg.Grouping.ReferenceShape = "punctum"
	cfg.Alignment.Window = 1.0
	cfg.Merge.WidthMultiplier = 1.0
	cfg.Layout.LigatureWidthUnits = 2.0
	cfg.Storage.Path = ".jsomr2mei/runs.db"
	return &cfg
}

// LoadConfig reads path on top of the defaults. A missing file is not an
// error; the defaults and environment overrides still apply.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	// 3. Override with Environment Variables if present
	if v := os.Getenv("JSOMR2MEI_MEI_VERSION"); v != "" {
		cfg.MEI.Version = v
	}
	if v := os.Getenv("JSOMR2MEI_CLASSIFIER"); v != "" {
		cfg.Classifier.Path = v
	}
	if v := os.Getenv("JSOMR2MEI_DB"); v != "" {
		cfg.Storage.Path = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings against the embedded settings schema and
// reports every violation at once.
func (c *Config) Validate() error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile settings schema: %w", err)
	}

	var v any
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config for schema validation: %w", err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("failed to normalize config for schema validation: %w", err)
	}

	err = schema.Validate(v)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("invalid config: %w", err)
	}
	problems := leafProblems(ve, nil)
	sort.Strings(problems)
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}

//go:embed settings.schema.json
var settingsSchema []byte

const settingsSchemaURL = "https://jsomr2mei.local/settings.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(settingsSchemaURL, bytes.NewReader(settingsSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile(settingsSchemaURL)
})

// leafProblems flattens a validation error into "key.path: message" lines.
func leafProblems(ve *jsonschema.ValidationError, out []string) []string {
	if len(ve.Causes) == 0 {
		key := strings.ReplaceAll(strings.TrimPrefix(ve.InstanceLocation, "/"), "/", ".")
		if key == "" {
			key = "config"
		}
		return append(out, key+": "+ve.Message)
	}
	for _, c := range ve.Causes {
		out = leafProblems(c, out)
	}
	return out
}
