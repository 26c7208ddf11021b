// Package metrics provides Prometheus instrumentation for pipeline runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bom-cli/internal/model"
)

// Recorder owns a private registry so runs in one process (and tests) do
// not share global collectors. A nil *Recorder records nothing.
type Recorder struct {
	reg *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	stageDuration  *prometheus.HistogramVec
	rowsTotal      *prometheus.CounterVec
	excludedTotal  *prometheus.CounterVec
	fallbacksTotal *prometheus.CounterVec
	unmatchedTotal *prometheus.CounterVec
	parseFailures  *prometheus.CounterVec
	collisions     *prometheus.CounterVec
}

// NewRecorder registers all run metrics on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bom_runs_total",
				Help: "Pipeline runs by vendor and final status",
			},
			[]string{"vendor", "status"},
		),
		runDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bom_run_duration_seconds",
				Help:    "Wall time of a pipeline run",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"vendor"},
		),
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bom_stage_duration_seconds",
				Help:    "Wall time of a pipeline stage",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"vendor", "stage"},
		),
		rowsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bom_rows_total",
				Help: "Rows produced per side (bom, placement, merged)",
			},
			[]string{"vendor", "side"},
		),
		excludedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bom_rows_excluded_total",
				Help: "Rows dropped by exclusion filters",
			},
			[]string{"vendor", "reason"},
		),
		fallbacksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bom_value_fallbacks_total",
				Help: "Value fallback rules applied",
			},
			[]string{"vendor", "rule"},
		),
		unmatchedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bom_unmatched_designators_total",
				Help: "BOM designators with no placement row",
			},
			[]string{"vendor"},
		),
		parseFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bom_parse_failures_total",
				Help: "Values kept raw after a parse failure",
			},
			[]string{"vendor"},
		),
		collisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bom_merge_key_collisions_total",
				Help: "Designators claimed by more than one BOM row",
			},
			[]string{"vendor"},
		),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// RecordRun counts a finished run and observes its duration.
func (r *Recorder) RecordRun(vendor model.Vendor, status model.RunStatus, d time.Duration) {
	if r == nil {
		return
	}
	r.runsTotal.WithLabelValues(string(vendor), string(status)).Inc()
	r.runDuration.WithLabelValues(string(vendor)).Observe(d.Seconds())
}

// RecordStage observes one stage's duration.
func (r *Recorder) RecordStage(vendor model.Vendor, stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(string(vendor), stage).Observe(d.Seconds())
}

// RecordDiagnostics adds a run's diagnostics to the counters.
func (r *Recorder) RecordDiagnostics(vendor model.Vendor, d model.Diagnostics) {
	if r == nil {
		return
	}
	v := string(vendor)
	r.rowsTotal.WithLabelValues(v, "bom").Add(float64(d.BOMRows))
	r.rowsTotal.WithLabelValues(v, "placement").Add(float64(d.PlacementRows))
	r.rowsTotal.WithLabelValues(v, "merged").Add(float64(d.MergedRows))
	for reason, n := range d.Excluded {
		r.excludedTotal.WithLabelValues(v, reason).Add(float64(n))
	}
	for rule, n := range d.Fallbacks {
		r.fallbacksTotal.WithLabelValues(v, rule).Add(float64(n))
	}
	r.unmatchedTotal.WithLabelValues(v).Add(float64(d.UnmatchedCount))
	r.parseFailures.WithLabelValues(v).Add(float64(len(d.ParseFailures)))
	r.collisions.WithLabelValues(v).Add(float64(len(d.Collisions)))
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return eris.Wrapf(prometheus.WriteToTextfile(path, r.reg), "metrics: write textfile %s", path)
}
