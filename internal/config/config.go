package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Constants for default values.
const (
	DefaultFrames           = 6000
	DefaultWorkers          = 8
	DefaultROMURL           = "https://github.com/sjl/cl-gameboy/blob/master/roms/opus5.gb?raw=true"
	DefaultROMFile          = "opus5.gb"
	DefaultRunnerGlob       = "*/run*.sh"
	DefaultPrimaryVariant   = "release"
	DefaultThroughputMarker = "frames"
	DefaultProfileFlag      = "--profile"

	localConfigName = ".gbbench.yaml"
)

// ScaleRule divides the frame budget for a language, optionally only for one variant.
type ScaleRule struct {
	Lang    string `yaml:"lang"`
	Variant string `yaml:"variant,omitempty"`
	Divisor int    `yaml:"divisor"`
}

// ROM describes the fixed test input every runner consumes.
type ROM struct {
	URL  string `yaml:"url"`
	File string `yaml:"file"`
}

// Config is the fully merged gbbench configuration.
type Config struct {
	Frames           int         `yaml:"frames"`
	Workers          int         `yaml:"workers"`
	ROM              ROM         `yaml:"rom"`
	RunnerGlob       string      `yaml:"runner_glob"`
	PrimaryVariant   string      `yaml:"primary_variant"`
	ThroughputMarker string      `yaml:"throughput_marker"`
	ProfileFlag      string      `yaml:"profile_flag"`
	RunnerFlags      []string    `yaml:"runner_flags"`
	Scaling          []ScaleRule `yaml:"scaling"`
	Debug            bool        `yaml:"debug"`

	// Source is the YAML file the values were read from, empty for defaults only.
	Source string `yaml:"-"`
}

// DefaultScaling is the historical per-language divisor table.
func DefaultScaling() []ScaleRule {
	return []ScaleRule{
		{Lang: "go", Divisor: 10},
		{Lang: "py", Divisor: 100},
		{Lang: "php", Divisor: 100},
		{Lang: "zig", Variant: "safe", Divisor: 100},
	}
}

// Default returns the hardcoded configuration.
func Default() *Config {
	return &Config{
		Frames:           DefaultFrames,
		Workers:          DefaultWorkers,
		ROM:              ROM{URL: DefaultROMURL, File: DefaultROMFile},
		RunnerGlob:       DefaultRunnerGlob,
		PrimaryVariant:   DefaultPrimaryVariant,
		ThroughputMarker: DefaultThroughputMarker,
		ProfileFlag:      DefaultProfileFlag,
		RunnerFlags:      []string{"--silent", "--headless", "--turbo"},
		Scaling:          DefaultScaling(),
	}
}

// LoadFile reads a YAML file and merges it onto the defaults. Zero values in
// the file leave the default in place.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if fileCfg.Frames != 0 {
		cfg.Frames = fileCfg.Frames
	}
	if fileCfg.Workers != 0 {
		cfg.Workers = fileCfg.Workers
	}
	if fileCfg.ROM.URL != "" {
		cfg.ROM.URL = fileCfg.ROM.URL
	}
	if fileCfg.ROM.File != "" {
		cfg.ROM.File = fileCfg.ROM.File
	}
	if fileCfg.RunnerGlob != "" {
		cfg.RunnerGlob = fileCfg.RunnerGlob
	}
	if fileCfg.PrimaryVariant != "" {
		cfg.PrimaryVariant = fileCfg.PrimaryVariant
	}
	if fileCfg.ThroughputMarker != "" {
		cfg.ThroughputMarker = fileCfg.ThroughputMarker
	}
	if fileCfg.ProfileFlag != "" {
		cfg.ProfileFlag = fileCfg.ProfileFlag
	}
	if fileCfg.RunnerFlags != nil {
		cfg.RunnerFlags = fileCfg.RunnerFlags
	}
	if fileCfg.Scaling != nil {
		cfg.Scaling = fileCfg.Scaling
	}
	cfg.Debug = fileCfg.Debug
	cfg.Source = path
	return cfg, nil
}

// findConfigPath looks for a config file in the benchmark root, then the
// working directory, then the user config dir. Returns "" when none exists.
func findConfigPath(root string) string {
	local := []string{filepath.Join(root, localConfigName)}
	if filepath.Clean(root) != "." {
		local = append(local, localConfigName)
	}
	for _, p := range local {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	configHome, err := os.UserConfigDir()
	if err != nil || configHome == "" || configHome == "/" {
		return ""
	}
	xdgPath := filepath.Join(configHome, "gbbench", "config.yaml")
	if _, err := os.Stat(xdgPath); err == nil {
		return xdgPath
	}
	return ""
}

// Validate rejects configurations that cannot drive a benchmark run.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be >= 1, got %d", c.Workers))
	}
	if c.ThroughputMarker == "" {
		errs = append(errs, errors.New("throughput_marker must not be empty"))
	}
	if c.ROM.File == "" {
		errs = append(errs, errors.New("rom.file must not be empty"))
	}
	if _, err := filepath.Match(c.RunnerGlob, ""); err != nil {
		errs = append(errs, fmt.Errorf("runner_glob %q: %w", c.RunnerGlob, err))
	}
	for i, rule := range c.Scaling {
		if rule.Lang == "" {
			errs = append(errs, fmt.Errorf("scaling[%d]: lang must not be empty", i))
		}
		if rule.Divisor < 1 {
			errs = append(errs, fmt.Errorf("scaling[%d] (%s): divisor must be >= 1, got %d", i, rule.Lang, rule.Divisor))
		}
	}
	return errors.Join(errs...)
}
