// Package metrics records one generator run in a Prometheus registry and
// writes it out in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"catalogenum/internal/index/core"
)

const namespace = "catalogenum"

// Failure stages reported through the failures counter.
const (
	StageLoad    = "load"
	StageBuild   = "build"
	StagePublish = "publish"
	StageCheck   = "check"
	StageIndex   = "index"
)

// Recorder holds the collectors for one run in a private registry.
type Recorder struct {
	registry *prometheus.Registry

	version     prometheus.Gauge
	declared    prometheus.Gauge
	items       prometheus.Gauge
	emitted     prometheus.Gauge
	skipped     prometheus.Gauge
	lastSuccess prometheus.Gauge
	failures    *prometheus.CounterVec

	now func() time.Time
}

// New builds a Recorder with every collector registered.
func New() *Recorder {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}
	r := &Recorder{
		registry:    prometheus.NewRegistry(),
		version:     gauge("catalog_version", "Declared catalog version, -1 when absent."),
		declared:    gauge("catalog_declared_items", "Declared item_count, -1 when absent."),
		items:       gauge("items", "Item records read from the catalog."),
		emitted:     gauge("items_emitted", "Records that produced an enum member."),
		skipped:     gauge("items_skipped", "Records skipped for a reserved identifier."),
		lastSuccess: gauge("last_success_timestamp_seconds", "Unix time of the last successful run."),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Failed runs by stage.",
		}, []string{"stage"}),
		now: time.Now,
	}
	r.registry.MustRegister(r.version, r.declared, r.items, r.emitted, r.skipped, r.lastSuccess, r.failures)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Observe records the shape of a resolved catalog.
func (r *Recorder) Observe(snap core.Snapshot) {
	emitted := snap.Emitted()
	r.version.Set(float64(snap.Version))
	r.declared.Set(float64(snap.Count))
	r.items.Set(float64(len(snap.Entries)))
	r.emitted.Set(float64(emitted))
	r.skipped.Set(float64(len(snap.Entries) - emitted))
}

// Succeeded stamps the last success time.
func (r *Recorder) Succeeded() {
	r.lastSuccess.Set(float64(r.now().Unix()))
}

// Failed counts a failure at stage.
func (r *Recorder) Failed(stage string) {
	r.failures.WithLabelValues(stage).Inc()
}

// WriteTextfile atomically writes the registry to path. An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
