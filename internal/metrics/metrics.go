// Package metrics exports run counters in the Prometheus text format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/colonyops/refinery/internal/core/review"
	"github.com/colonyops/refinery/internal/refinery"
)

const namespace = "refinery"

// Collector counts reviews, repairs, verifications and per-file outcomes.
// It satisfies refinery.Observer.
type Collector struct {
	reg *prometheus.Registry

	reviews       *prometheus.CounterVec
	repairs       *prometheus.CounterVec
	verifications *prometheus.CounterVec
	files         *prometheus.CounterVec
	rounds        prometheus.Histogram
	duration      *prometheus.HistogramVec
}

var _ refinery.Observer = (*Collector)(nil)

// New creates a collector on its own registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		reg: reg,
		reviews: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_total",
			Help:      "Reviews performed, by decision.",
		}, []string{"decision"}),
		repairs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repairs_total",
			Help:      "Repairs attempted, by result.",
		}, []string{"result"}),
		verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Verifier runs, by verdict.",
		}, []string{"verdict"}),
		files: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Files processed, by terminal outcome.",
		}, []string{"outcome"}),
		rounds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_rounds",
			Help:      "Review rounds needed per file.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 13},
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "Wall time spent per file, by outcome.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"outcome"}),
	}
}

// Registry returns the registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) ObserveReview(d review.Decision) {
	c.reviews.WithLabelValues(string(d)).Inc()
}

func (c *Collector) ObserveRepair(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	c.repairs.WithLabelValues(result).Inc()
}

func (c *Collector) ObserveVerify(v review.Verdict) {
	c.verifications.WithLabelValues(string(v)).Inc()
}

func (c *Collector) ObserveFile(o refinery.Outcome, rounds int, elapsed time.Duration) {
	c.files.WithLabelValues(string(o)).Inc()
	c.rounds.Observe(float64(rounds))
	c.duration.WithLabelValues(string(o)).Observe(elapsed.Seconds())
}

// WriteTextfile writes all metrics to path in the node-exporter textfile
// format, creating parent directories as needed.
func (c *Collector) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics directory: %w", err)
		}
	}

	if err := prometheus.WriteToTextfile(path, c.reg); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
