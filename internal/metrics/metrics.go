// Package metrics exports per-runner benchmark results in the Prometheus
// text exposition format, for pickup by a node_exporter textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dkoosis/gbbench/internal/bench"
)

const namespace = "gbbench"

var labels = []string{"lang", "variant", "script"}

// Collect builds a fresh registry holding one sample per result.
func Collect(out bench.Outcome) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()

	success := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "runner_success",
		Help:      "1 if the runner exited with status zero, 0 otherwise.",
	}, labels)
	frames := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "runner_frames",
		Help:      "Frame count the runner was asked to emulate after scaling.",
	}, labels)
	duration := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "runner_duration_seconds",
		Help:      "Wall-clock time of the runner process.",
	}, labels)
	fps := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "runner_fps",
		Help:      "Frames per second reported by the runner.",
	}, labels)
	last := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the benchmark batch started.",
	})

	for _, c := range []prometheus.Collector{success, frames, duration, fps, last} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering collector: %w", err)
		}
	}

	for _, res := range out.Results {
		lv := []string{res.Case.Lang, res.Case.Variant, res.Case.Runner}
		ok := 0.0
		if res.OK {
			ok = 1
		}
		success.WithLabelValues(lv...).Set(ok)
		frames.WithLabelValues(lv...).Set(float64(res.Scaled))
		duration.WithLabelValues(lv...).Set(res.Duration.Seconds())
		if res.OK && res.HasFPS {
			fps.WithLabelValues(lv...).Set(res.FPS)
		}
	}
	if !out.StartedAt.IsZero() {
		last.Set(float64(out.StartedAt.Unix()))
	}
	return reg, nil
}

// WriteTextfile writes the outcome to path atomically.
func WriteTextfile(path string, out bench.Outcome) error {
	reg, err := Collect(out)
	if err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
