package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// workspace creates an isolated benchmark root holding the test ROM and the
// given runners (path relative to root -> bash body).
func workspace(t *testing.T, runners map[string]string) string {
	t.Helper()
	root := t.TempDir()
	chdir(t, root)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, ".xdg"))
	for _, k := range []string{"GBBENCH_FRAMES", "GBBENCH_WORKERS", "GBBENCH_ROM_URL", "GBBENCH_DEBUG"} {
		t.Setenv(k, "")
	}

	require.NoError(t, os.WriteFile(filepath.Join(root, "opus5.gb"), []byte("rom"), 0o644))
	for rel, body := range runners {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("#!/usr/bin/env bash\n"+body+"\n"), 0o755))
	}
	return root
}

func TestRun_OnePassOneFail(t *testing.T) {
	root := workspace(t, map[string]string{
		"go/run.sh": `echo "100000 frames"`,
		"rs/run.sh": `echo "boom"; exit 1`,
	})

	var stdout, stderr bytes.Buffer
	code := run([]string{"--root", root, "--report", "none", "go", "rs"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	out := stdout.String()
	assert.Contains(t, out, "   go / release: 100000 frames\n")
	assert.Contains(t, out, "   rs / release: Failed\nboom\n")
}

func TestRun_AllPassExitsZero(t *testing.T) {
	root := workspace(t, map[string]string{
		"go/run.sh":     `echo "Emulated $2 frames (500fps)"`,
		"go/run_pgo.sh": `echo "Emulated $2 frames (650fps)"`,
	})

	var stdout, stderr bytes.Buffer
	code := run([]string{"--root", root, "--report", "plain"}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	out := stdout.String()
	assert.Contains(t, out, "   go / release: Emulated 600 frames (500fps)\n")
	assert.Contains(t, out, "   go / pgo    : Emulated 600 frames (650fps)\n")
	assert.Contains(t, out, "PASS: 2 passed, 0 failed")
	assert.Contains(t, out, "1. go/pgo 650fps")
}

func TestRun_NoRunnersIsVacuousSuccess(t *testing.T) {
	root := workspace(t, nil)

	var stdout, stderr bytes.Buffer
	code := run([]string{"--root", root, "--report", "none"}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Empty(t, stdout.String())
}

func TestRun_LanguageFilter(t *testing.T) {
	root := workspace(t, map[string]string{
		"go/run.sh": `echo "go frames"`,
		"rs/run.sh": `exit 1`,
	})

	var stdout, stderr bytes.Buffer
	code := run([]string{"--root", root, "--report", "none", "go"}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "go / release")
	assert.NotContains(t, stdout.String(), "rs /")
}

func TestRun_DefaultSkipsVariants(t *testing.T) {
	root := workspace(t, map[string]string{
		"zig/run.sh":      `echo "zig frames"`,
		"zig/run_safe.sh": `exit 1`,
	})

	var stdout, stderr bytes.Buffer
	code := run([]string{"--root", root, "--report", "none", "--default"}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "zig / release")
	assert.NotContains(t, stdout.String(), "safe")
}

func TestRun_InterleavedFlagsAndLangs(t *testing.T) {
	root := workspace(t, map[string]string{
		"py/run.sh":  `echo "py $2 frames"`,
		"php/run.sh": `echo "php $2 frames"`,
		"c/run.sh":   `exit 1`,
	})

	var stdout, stderr bytes.Buffer
	code := run([]string{"py", "--root", root, "--frames", "1000", "php", "--report", "none"}, &stdout, &stderr)

	assert.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "py 10 frames")
	assert.Contains(t, stdout.String(), "php 10 frames")
}

func TestRun_FramesScaledToAtLeastOne(t *testing.T) {
	root := workspace(t, map[string]string{
		"py/run.sh": `echo "$2 frames"`,
	})

	var stdout, stderr bytes.Buffer
	code := run([]string{"--root", root, "--frames", "5", "--report", "none"}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "   py / release: 1 frames\n")
}

func TestRun_ParallelAggregatesFailures(t *testing.T) {
	runners := map[string]string{}
	for _, lang := range []string{"a", "b", "c", "d", "e", "f"} {
		runners[lang+"/run.sh"] = `sleep 0.1; echo "done frames"`
	}
	runners["g/run.sh"] = `exit 4`
	root := workspace(t, runners)

	var stdout, stderr bytes.Buffer
	code := run([]string{"--root", root, "--report", "none", "--parallel"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Equal(t, 6, strings.Count(stdout.String(), ": done frames"))
	assert.Equal(t, 1, strings.Count(stdout.String(), ": Failed"))
}

func TestRun_ConfigFileScaling(t *testing.T) {
	root := workspace(t, map[string]string{
		"rb/run.sh": `echo "$2 frames"`,
	})
	cfgPath := filepath.Join(root, "bench.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("scaling:\n  - lang: rb\n    divisor: 3\n"), 0o644))

	var stdout, stderr bytes.Buffer
	code := run([]string{"--root", root, "--config", cfgPath, "--frames", "30", "--report", "none"}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "   rb / release: 10 frames\n")
}

func TestRun_ConfigFromRootDirectory(t *testing.T) {
	root := workspace(t, map[string]string{
		"rb/run.sh": `echo "$2 frames"`,
	})
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gbbench.yaml"), []byte("frames: 90\nscaling:\n  - lang: rb\n    divisor: 9\n"), 0o644))
	chdir(t, t.TempDir())

	var stdout, stderr bytes.Buffer
	code := run([]string{"--root", root, "--report", "none"}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "   rb / release: 10 frames\n", stdout.String())
}

func TestRun_AssetFetchFailureIsFatal(t *testing.T) {
	root := workspace(t, map[string]string{
		"go/run.sh": `touch ran; echo "frames"`,
	})
	require.NoError(t, os.Remove(filepath.Join(root, "opus5.gb")))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	t.Setenv("GBBENCH_ROM_URL", srv.URL)

	var stdout, stderr bytes.Buffer
	code := run([]string{"--root", root}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "test ROM unavailable")
	assert.NoFileExists(t, filepath.Join(root, "go", "ran"))
}

func TestRun_AssetDownloadedOnce(t *testing.T) {
	root := workspace(t, map[string]string{
		"go/run.sh": `echo "$(cat "$6") frames"`,
	})
	require.NoError(t, os.Remove(filepath.Join(root, "opus5.gb")))

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("GBROM"))
	}))
	defer srv.Close()
	t.Setenv("GBBENCH_ROM_URL", srv.URL)

	for i := 0; i < 2; i++ {
		var stdout, stderr bytes.Buffer
		code := run([]string{"--root", root, "--report", "none"}, &stdout, &stderr)
		require.Equal(t, 0, code, stderr.String())
		assert.Contains(t, stdout.String(), "GBROM frames")
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestRun_MetricsAndHistory(t *testing.T) {
	root := workspace(t, map[string]string{
		"go/run.sh": `echo "Emulated $2 frames (480fps)"`,
	})
	metricsPath := filepath.Join(root, "out", "bench.prom")
	require.NoError(t, os.MkdirAll(filepath.Dir(metricsPath), 0o755))
	dbPath := filepath.Join(root, "history.db")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--root", root, "--report", "plain", "--metrics-file", metricsPath, "--history", dbPath}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `gbbench_runner_fps{lang="go",script="run.sh",variant="release"} 480`)

	stdout.Reset()
	code = run([]string{"--root", root, "--report", "plain", "--history", dbPath}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "go/release 480fps (+0.0% vs 480fps)")
}

func TestRun_ScriptsSharingVariantKeptApart(t *testing.T) {
	root := workspace(t, map[string]string{
		"go/run.sh":    `echo "Emulated $2 frames (100fps)"`,
		"go/runner.sh": `echo "Emulated $2 frames (900fps)"`,
	})
	metricsPath := filepath.Join(root, "bench.prom")
	dbPath := filepath.Join(root, "history.db")
	args := []string{"--root", root, "--report", "plain", "--metrics-file", metricsPath, "--history", dbPath}

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run(args, &stdout, &stderr), stderr.String())

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `gbbench_runner_fps{lang="go",script="run.sh",variant="release"} 100`)
	assert.Contains(t, string(data), `gbbench_runner_fps{lang="go",script="runner.sh",variant="release"} 900`)

	stdout.Reset()
	require.Equal(t, 0, run(args, &stdout, &stderr), stderr.String())
	out := stdout.String()
	assert.Contains(t, out, "go/release (runner.sh) 900fps (+0.0% vs 900fps)")
	assert.Contains(t, out, "go/release 100fps (+0.0% vs 100fps)")
}

func TestRun_ThroughputAfterOverlongLine(t *testing.T) {
	root := workspace(t, map[string]string{
		"go/run.sh": `head -c 2000000 /dev/zero | tr '\0' x; echo; echo "Emulated $2 frames (500fps)"`,
	})

	var stdout, stderr bytes.Buffer
	code := run([]string{"--root", root, "--report", "none"}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "   go / release: Emulated 600 frames (500fps)\n", stdout.String())
}

func TestRun_StreamFlag(t *testing.T) {
	root := workspace(t, map[string]string{
		"go/run.sh": `echo "loading rom"; echo "$2 frames"`,
	})

	var stdout, stderr bytes.Buffer
	code := run([]string{"--root", root, "--report", "none", "--stream"}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "go/run.sh | loading rom\ngo/run.sh | 600 frames\n   go / release: 600 frames\n", stdout.String())
}

func TestRun_JSONReport(t *testing.T) {
	root := workspace(t, map[string]string{
		"go/run.sh": `echo "1 frames"`,
	})

	var stdout, stderr bytes.Buffer
	code := run([]string{"--root", root, "--report", "json"}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), `"ok": true`)
	assert.Contains(t, stdout.String(), `"lang": "go"`)
}

func TestRun_UsageErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run([]string{"--frames", "many"}, &stdout, &stderr))
	assert.Equal(t, 2, run([]string{"--report", "xml"}, &stdout, &stderr))
	assert.Equal(t, 2, run([]string{"--no-such-flag"}, &stdout, &stderr))
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"--version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "gbbench dev")
}

func TestRun_DebugLogging(t *testing.T) {
	root := workspace(t, map[string]string{
		"go/run.sh": `echo "1 frames"`,
	})

	var stdout, stderr bytes.Buffer
	code := run([]string{"--root", root, "--report", "none", "--debug"}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stderr.String(), "level=DEBUG")
	assert.Contains(t, stderr.String(), "queued runner")
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
