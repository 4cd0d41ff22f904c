package config

import (
	"fmt"
	"os"
	"strconv"
)

// CliFlags holds the values of command-line flags that participate in config
// resolution, with *Set tracking whether the user passed them explicitly.
type CliFlags struct {
	ConfigPath string
	Root       string // benchmark root, searched for .gbbench.yaml
	Frames     int
	Debug      bool

	FramesSet bool
	DebugSet  bool
}

// Resolve builds the effective configuration. Priority: CLI > env > file > defaults.
func Resolve(cli CliFlags) (*Config, error) {
	path := cli.ConfigPath
	if path == "" {
		path = findConfigPath(cli.Root)
	}

	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cli.FramesSet {
		cfg.Frames = cli.Frames
	}
	if cli.DebugSet {
		cfg.Debug = cli.Debug
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("GBBENCH_FRAMES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GBBENCH_FRAMES: %w", err)
		}
		cfg.Frames = n
	}
	if v := os.Getenv("GBBENCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GBBENCH_WORKERS: %w", err)
		}
		cfg.Workers = n
	}
	if v := os.Getenv("GBBENCH_ROM_URL"); v != "" {
		cfg.ROM.URL = v
	}
	if v := os.Getenv("GBBENCH_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GBBENCH_DEBUG: %w", err)
		}
		cfg.Debug = b
	}
	return nil
}
