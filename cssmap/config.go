package cssmap

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/mstoykov/envconfig"
	"gopkg.in/guregu/null.v3"

	"github.com/liuxd6825/stylemap/pipeline"
)

// Config is the configuration of the plugin.
type Config struct {
	Enabled null.Bool `json:"enabled" envconfig:"STYLEMAP_ENABLED"`
	// Folder is where merged maps are written, relative to their asset.
	Folder     null.String `json:"folder" envconfig:"STYLEMAP_FOLDER"`
	Extensions []string    `json:"extensions" envconfig:"STYLEMAP_EXTENSIONS"`
}

// NewConfig creates a new Config with the default values.
func NewConfig() Config {
	return Config{
		Enabled:    null.NewBool(true, false),
		Folder:     null.NewString("", false),
		Extensions: append([]string(nil), pipeline.DefaultStyleExtensions...),
	}
}

// Apply applies the set values of cfg to the receiver.
func (c Config) Apply(cfg Config) Config {
	if cfg.Enabled.Valid {
		c.Enabled = cfg.Enabled
	}
	if cfg.Folder.Valid {
		c.Folder = cfg.Folder
	}
	if len(cfg.Extensions) > 0 {
		c.Extensions = cfg.Extensions
	}
	return c
}

// Validate checks that the configuration can be used.
func (c Config) Validate() error {
	folder := c.Folder.String
	if path.IsAbs(folder) {
		return fmt.Errorf("folder %q must be relative to the output directory", folder)
	}
	if cleaned := path.Clean(folder); cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("folder %q points outside of the output directory", folder)
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	return nil
}

// ParseJSON parses the supplied JSON into a Config.
func ParseJSON(data json.RawMessage) (Config, error) {
	conf := Config{}
	err := json.Unmarshal(data, &conf)
	return conf, err
}

// GetConsolidatedConfig combines {default config values + JSON config +
// environment vars}, and returns the final result.
func GetConsolidatedConfig(jsonRawConf json.RawMessage, env map[string]string) (Config, error) {
	result := NewConfig()
	if jsonRawConf != nil {
		jsonConf, err := ParseJSON(jsonRawConf)
		if err != nil {
			return result, fmt.Errorf("parsing the sourcemaps config: %w", err)
		}
		result = result.Apply(jsonConf)
	}

	envConfig := Config{}
	if err := envconfig.Process("", &envConfig, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}); err != nil {
		return result, err
	}
	result = result.Apply(envConfig)

	return result, result.Validate()
}
