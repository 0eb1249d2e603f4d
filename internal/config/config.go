// Package config defines the Config struct populated by the CLI layer
// from flags or an optional YAML file, and its defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full set of options accepted by the indexer, watcher,
// and query engine.
type Config struct {
	RootDir   string   `yaml:"rootDir"`
	DBPath    string   `yaml:"dbPath"`
	Languages []string `yaml:"languages"`
	Include   []string `yaml:"include"`
	Exclude   []string `yaml:"exclude"`

	MaxNestedStructDepth int `yaml:"maxNestedStructDepth"`
	BatchIntervalMinutes int `yaml:"batchIntervalMinutes"`
	MinChangeLines       int `yaml:"minChangeLines"`

	Concurrency int           `yaml:"concurrency"`
	HTTPTimeout time.Duration `yaml:"httpTimeout"`
	MaxRetries  int           `yaml:"maxRetries"`
	DebounceMs  int           `yaml:"debounceMs"`
	LogLevel    string        `yaml:"logLevel"`

	EmbedURL     string `yaml:"embedURL"`
	SummarizeURL string `yaml:"summarizeURL"`
	EmbedModel   string `yaml:"embedModel"`
}

// Defaults returns a Config with every ambient field set to its default;
// RootDir and DBPath are left empty since they're required from the
// caller.
func Defaults() Config {
	return Config{
		Include:              []string{"**/*"},
		MaxNestedStructDepth: 3,
		BatchIntervalMinutes: 10,
		MinChangeLines:       5,
		Concurrency:          5,
		HTTPTimeout:          30 * time.Second,
		MaxRetries:           3,
		DebounceMs:           500,
		LogLevel:             "info",
	}
}

// LoadYAML reads a YAML config file and applies defaults to whatever
// fields it leaves unset. CLI flags passed alongside the file take
// precedence and should overwrite the returned fields directly.
func LoadYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return ApplyDefaults(c), nil
}

// ApplyDefaults fills zero-valued ambient fields on c with Defaults(),
// leaving caller-supplied values untouched.
func ApplyDefaults(c Config) Config {
	d := Defaults()
	if len(c.Include) == 0 {
		c.Include = d.Include
	}
	if c.MaxNestedStructDepth == 0 {
		c.MaxNestedStructDepth = d.MaxNestedStructDepth
	}
	if c.BatchIntervalMinutes == 0 {
		c.BatchIntervalMinutes = d.BatchIntervalMinutes
	}
	if c.MinChangeLines == 0 {
		c.MinChangeLines = d.MinChangeLines
	}
	if c.Concurrency == 0 {
		c.Concurrency = d.Concurrency
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = d.HTTPTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.DebounceMs == 0 {
		c.DebounceMs = d.DebounceMs
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	return c
}
