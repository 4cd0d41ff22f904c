// Package discover locates per-language runner scripts on disk.
package discover

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
)

// PrimaryVariant is the conventional label for runners without a variant suffix (run.sh).
const PrimaryVariant = "release"

var variantRe = regexp.MustCompile(`^run_(.*)\.sh$`)

// Runner is an executable benchmark script found under a language directory.
type Runner struct {
	Lang    string // parent directory name, e.g. "go"
	Script  string // file name, e.g. "run_pgo.sh"
	Variant string // "release" for run.sh, otherwise the suffix ("pgo")
	Path    string // full path as matched
}

// Discover matches glob under root and returns the runners sorted by language
// then script name. The glob is expected to have one directory level, like
// "*/run*.sh". Scripts without a variant suffix are labelled primary.
func Discover(root, glob, primary string) ([]Runner, error) {
	matches, err := filepath.Glob(filepath.Join(root, glob))
	if err != nil {
		return nil, fmt.Errorf("discovering runners with %q: %w", glob, err)
	}

	runners := make([]Runner, 0, len(matches))
	for _, m := range matches {
		script := filepath.Base(m)
		runners = append(runners, Runner{
			Lang:    filepath.Base(filepath.Dir(m)),
			Script:  script,
			Variant: VariantOf(script, primary),
			Path:    m,
		})
	}

	sort.Slice(runners, func(i, j int) bool {
		if runners[i].Lang != runners[j].Lang {
			return runners[i].Lang < runners[j].Lang
		}
		return runners[i].Script < runners[j].Script
	})
	return runners, nil
}

// VariantOf derives the variant label from a script name. run_pgo.sh yields
// "pgo"; anything without the run_ prefix yields primary.
func VariantOf(script, primary string) string {
	if m := variantRe.FindStringSubmatch(script); m != nil {
		return m[1]
	}
	return primary
}

// Filter keeps runners whose language is listed in langs (all when langs is
// empty) and, when defaultOnly is set, only those of the primary variant.
func Filter(runners []Runner, langs []string, defaultOnly bool, primary string) []Runner {
	out := make([]Runner, 0, len(runners))
	for _, r := range runners {
		if len(langs) > 0 && !slices.Contains(langs, r.Lang) {
			continue
		}
		if defaultOnly && r.Variant != primary {
			continue
		}
		out = append(out, r)
	}
	return out
}
