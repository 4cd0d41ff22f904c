// gbbench runs every emulator runner script it can find and reports how fast
// each one emulates frames.
//
// Usage:
//
//	gbbench                     # every */run*.sh under the current directory
//	gbbench zig rs cpp          # only these language directories
//	gbbench --default --parallel --frames 600
//
// Each runner is started from inside its language directory as
//
//	./run.sh --profile <frames> --silent --headless --turbo ../opus5.gb
//
// and passes when it exits with status zero. The test ROM is downloaded on
// first use. Exit code is 0 when every runner passed, 1 otherwise and 2 on
// usage errors.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/dkoosis/gbbench/dashboard"
	"github.com/dkoosis/gbbench/internal/asset"
	"github.com/dkoosis/gbbench/internal/bench"
	"github.com/dkoosis/gbbench/internal/config"
	"github.com/dkoosis/gbbench/internal/discover"
	"github.com/dkoosis/gbbench/internal/history"
	"github.com/dkoosis/gbbench/internal/live"
	"github.com/dkoosis/gbbench/internal/metrics"
	"github.com/dkoosis/gbbench/internal/report"
	"github.com/dkoosis/gbbench/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	defaultOnly bool
	parallel    bool
	root        string
	reportFmt   string
	theme       string
	metricsFile string
	historyPath string
	live        bool
	stream      bool
	showVersion bool
	cli         config.CliFlags
	langs       []string
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("gbbench", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: gbbench [flags] [lang ...]\n\n")
		fs.PrintDefaults()
	}

	fs.BoolVar(&opts.defaultOnly, "default", false, "Only run the default run.sh, not variants")
	fs.BoolVar(&opts.parallel, "parallel", false, "Run all tests in parallel (gives inaccurate results, quickly)")
	fs.IntVar(&opts.cli.Frames, "frames", config.DefaultFrames, "Run for this many frames")
	fs.StringVar(&opts.root, "root", ".", "Directory containing the language directories")
	fs.StringVar(&opts.cli.ConfigPath, "config", "", "Path to a YAML config file")
	fs.StringVar(&opts.reportFmt, "report", "auto", "Summary format: auto, terminal, plain, json, none")
	fs.StringVar(&opts.theme, "theme", "default", "Terminal theme: default, mono")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	fs.StringVar(&opts.historyPath, "history", "", "SQLite history database (\"default\" for the user config dir)")
	fs.BoolVar(&opts.live, "live", false, "Show live progress when stdout is a terminal")
	fs.BoolVar(&opts.stream, "stream", false, "Echo runner output as it arrives, prefixed with lang/script")
	fs.BoolVar(&opts.cli.Debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")

	// Flags and language names may be interleaved: gbbench zig --default rs.
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		rest = fs.Args()
		if len(rest) == 0 {
			break
		}
		opts.langs = append(opts.langs, rest[0])
		rest = rest[1:]
	}

	opts.cli.Root = opts.root
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "frames":
			opts.cli.FramesSet = true
		case "debug":
			opts.cli.DebugSet = true
		}
	})

	if !report.ValidFormat(opts.reportFmt) {
		return nil, fmt.Errorf("invalid --report %q", opts.reportFmt)
	}
	return opts, nil
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "gbbench: %v\n", err)
		return 2
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, version.String())
		return 0
	}

	cfg, err := config.Resolve(opts.cli)
	if err != nil {
		fmt.Fprintf(stderr, "gbbench: %v\n", err)
		return 1
	}
	logger := newLogger(stderr, cfg.Debug)
	if cfg.Source != "" {
		logger.Debug("loaded config", "path", cfg.Source)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	romPath := filepath.Join(opts.root, cfg.ROM.File)
	if _, err := asset.NewFetcher(logger).Ensure(ctx, cfg.ROM.URL, romPath); err != nil {
		logger.Error("test ROM unavailable", "err", err)
		return 1
	}

	runners, err := discover.Discover(opts.root, cfg.RunnerGlob, cfg.PrimaryVariant)
	if err != nil {
		logger.Error("runner discovery failed", "err", err)
		return 1
	}
	runners = discover.Filter(runners, opts.langs, opts.defaultOnly, cfg.PrimaryVariant)
	cases := bench.CasesFrom(runners, cfg.Frames)
	logger.Debug("selected runners", "count", len(cases), "langs", opts.langs, "default_only", opts.defaultOnly)

	var store *history.Store
	var previous map[report.Key]float64
	if opts.historyPath != "" {
		store, previous = openHistory(ctx, opts.historyPath, logger)
		if store != nil {
			defer store.Close()
		}
	}

	workers := 1
	if opts.parallel {
		workers = cfg.Workers
	}
	h := &bench.Harness{
		Invocation: bench.Invocation{
			Root:        opts.root,
			Asset:       romPath,
			ProfileFlag: cfg.ProfileFlag,
			Flags:       cfg.RunnerFlags,
			Scaler:      bench.NewScaler(cfg.Scaling),
		},
		Marker:  cfg.ThroughputMarker,
		Workers: workers,
		Stream:  opts.stream,
		Stdout:  stdout,
		Logger:  logger,
	}

	var outcome bench.Outcome
	if opts.live && isTTYWriter(stdout) && len(cases) > 0 {
		// Raw lines would tear the live view.
		h.Stream = false
		outcome = runLive(ctx, stop, h, cases, stdout, logger)
	} else {
		outcome = h.Run(ctx, cases)
	}

	if r := report.ForFormat(opts.reportFmt, opts.theme, isTTYWriter(stdout), termWidth(stdout)); r != nil {
		fmt.Fprintln(stdout)
		fmt.Fprint(stdout, r.Render(report.Build("benchmark results", outcome, previous)))
	}

	if opts.metricsFile != "" {
		if err := metrics.WriteTextfile(opts.metricsFile, outcome); err != nil {
			logger.Warn("metrics export failed", "err", err)
		}
	}
	if store != nil {
		if err := store.Record(ctx, outcome); err != nil {
			logger.Warn("recording history failed", "err", err)
		}
	}

	return outcome.ExitCode()
}

// runLive drives the harness while a bubbletea view shows progress. Status
// lines are handed to the view, which prints them above the spinner list.
func runLive(ctx context.Context, cancel context.CancelFunc, h *bench.Harness, cases []bench.Case, stdout io.Writer, logger *slog.Logger) bench.Outcome {
	labels := make(map[string]string, len(cases))
	for _, c := range cases {
		labels[c.ID()] = c.Label()
	}

	view := live.New(len(cases), stdout, cancel)
	h.OnEvent = func(e dashboard.Event) {
		if e.Type == dashboard.EventTaskStarted {
			view.Started(e.TaskID, labels[e.TaskID])
		}
	}
	h.OnResult = func(res bench.Result) {
		view.Finished(res.Case.ID(), res.StatusLine())
	}

	done := make(chan bench.Outcome, 1)
	go func() {
		out := h.Run(ctx, cases)
		view.Done()
		done <- out
	}()

	if err := view.Run(); err != nil && !errors.Is(err, tea.ErrInterrupted) {
		logger.Warn("live view failed", "err", err)
	}
	return <-done
}

func openHistory(ctx context.Context, path string, logger *slog.Logger) (*history.Store, map[report.Key]float64) {
	if path == "default" {
		p, err := history.DefaultPath()
		if err != nil {
			logger.Warn("history disabled", "err", err)
			return nil, nil
		}
		path = p
	}
	store, err := history.Open(path)
	if err != nil {
		logger.Warn("history disabled", "path", path, "err", err)
		return nil, nil
	}
	previous, err := store.Previous(ctx)
	if err != nil {
		logger.Warn("reading history failed", "path", path, "err", err)
	}
	return store, previous
}

func isTTYWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// termWidth returns the terminal width for w, defaulting to 80.
func termWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if tw, _, err := term.GetSize(int(f.Fd())); err == nil && tw > 0 {
			return tw
		}
	}
	return 80
}
