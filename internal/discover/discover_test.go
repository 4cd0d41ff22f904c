package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		p := filepath.Join(root, r)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"), 0o755))
	}
}

func names(runners []Runner) []string {
	var out []string
	for _, r := range runners {
		out = append(out, r.Lang+"/"+r.Variant)
	}
	return out
}

func TestDiscover_FindsRunnersAndVariants(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"zig/run.sh", "zig/run_safe.sh",
		"go/run.sh",
		"py/run_pypy.sh", "py/run.sh",
		"rs/build.sh",
		"top_run.sh",
	)

	runners, err := Discover(root, "*/run*.sh", PrimaryVariant)
	require.NoError(t, err)

	assert.Equal(t, []string{"go/release", "py/release", "py/pypy", "zig/release", "zig/safe"}, names(runners))
	assert.Equal(t, "run_safe.sh", runners[4].Script)
	assert.Equal(t, filepath.Join(root, "zig", "run_safe.sh"), runners[4].Path)
}

func TestDiscover_EmptyRoot(t *testing.T) {
	runners, err := Discover(t.TempDir(), "*/run*.sh", PrimaryVariant)
	require.NoError(t, err)
	assert.Empty(t, runners)
}

func TestDiscover_BadGlob(t *testing.T) {
	_, err := Discover(t.TempDir(), "[", PrimaryVariant)
	assert.Error(t, err)
}

func TestVariantOf(t *testing.T) {
	assert.Equal(t, "release", VariantOf("run.sh", PrimaryVariant))
	assert.Equal(t, "pgo", VariantOf("run_pgo.sh", PrimaryVariant))
	assert.Equal(t, "lto_pgo", VariantOf("run_lto_pgo.sh", PrimaryVariant))
	assert.Equal(t, "release", VariantOf("runner.sh", PrimaryVariant))
}

func TestFilter(t *testing.T) {
	runners := []Runner{
		{Lang: "go", Variant: "release"},
		{Lang: "py", Variant: "release"},
		{Lang: "py", Variant: "pypy"},
		{Lang: "zig", Variant: "safe"},
	}

	t.Run("no filters keeps all", func(t *testing.T) {
		assert.Len(t, Filter(runners, nil, false, PrimaryVariant), 4)
	})

	t.Run("langs excludes unlisted directories", func(t *testing.T) {
		got := Filter(runners, []string{"py", "rs"}, false, PrimaryVariant)
		assert.Equal(t, []string{"py/release", "py/pypy"}, names(got))
	})

	t.Run("default keeps primary variant only", func(t *testing.T) {
		got := Filter(runners, nil, true, PrimaryVariant)
		assert.Equal(t, []string{"go/release", "py/release"}, names(got))
	})

	t.Run("both filters compose", func(t *testing.T) {
		got := Filter(runners, []string{"zig"}, true, PrimaryVariant)
		assert.Empty(t, got)
	})
}
