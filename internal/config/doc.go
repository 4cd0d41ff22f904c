// Package config handles configuration loading and merging for gbbench.
//
// # Configuration Precedence
//
// Configuration values are resolved in the following order (highest to lowest priority):
//
//  1. CLI flags (--frames, --config, --debug)
//  2. Environment variables (GBBENCH_FRAMES, GBBENCH_WORKERS, GBBENCH_ROM_URL, GBBENCH_DEBUG)
//  3. YAML config file (--config, .gbbench.yaml in the --root directory, then
//     in the working directory, or ~/.config/gbbench/config.yaml)
//  4. Hardcoded defaults
//
// # Frame Scaling
//
// Some emulator implementations are orders of magnitude slower than others. The
// scaling table divides the requested frame count for those languages so every
// runner finishes in similar wall-clock time. The table is data, not code:
//
//	scaling:
//	  - lang: go
//	    divisor: 10
//	  - lang: zig
//	    variant: safe
//	    divisor: 100
//
// A scaling list in a YAML file replaces the built-in table entirely.
//
// # Environment Variables
//
//   - GBBENCH_FRAMES: base frame count
//   - GBBENCH_WORKERS: worker pool size used by --parallel
//   - GBBENCH_ROM_URL: download location of the test ROM
//   - GBBENCH_DEBUG: a boolean ("true", "1", "false", ...); other values are an error
package config
