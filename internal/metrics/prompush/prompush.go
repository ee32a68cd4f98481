// Package prompush implements a metrics.Backend that pushes to a Prometheus
// Pushgateway.
//
// A registry build is a batch job with no scrape endpoint, so observations
// accumulate in a private prometheus.Registry and are pushed on Flush.
package prompush

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"registry/internal/metrics"
)

// Backend implements metrics.Backend on top of client_golang collectors.
type Backend struct {
	reg    *prometheus.Registry
	pusher *push.Pusher

	mu sync.Mutex // serializes pushes

	files    *prometheus.CounterVec
	rows     *prometheus.CounterVec
	fields   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewBackend creates a backend that pushes to gatewayURL under job.
func NewBackend(job, gatewayURL string) (*Backend, error) {
	job = strings.TrimSpace(job)
	if job == "" {
		return nil, fmt.Errorf("prompush: job name is empty")
	}
	u, err := url.Parse(gatewayURL)
	if err != nil {
		return nil, fmt.Errorf("prompush: parse gateway url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("prompush: gateway url %q must be http(s)://host[:port]", gatewayURL)
	}

	b := &Backend{
		reg: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.FilesTotal,
			Help: "CSV files processed, by outcome and source agency.",
		}, []string{"status", "source"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Data rows profiled, by source agency.",
		}, []string{"source"}),
		fields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.FieldsTotal,
			Help: "Columns profiled, by source agency.",
		}, []string{"source"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metrics.FileDurationSeconds,
			Help:    "Wall time to profile and store one file.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"status"}),
	}
	b.reg.MustRegister(b.files, b.rows, b.fields, b.duration)
	b.pusher = push.New(gatewayURL, job).Gatherer(b.reg)
	return b, nil
}

// Grouping adds a grouping label (e.g. run_id) to the push URL.
func (b *Backend) Grouping(name, value string) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pusher = b.pusher.Grouping(name, value)
	return b
}

// IncCounter implements metrics.Backend. Unknown names and non-positive
// deltas are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	switch name {
	case metrics.FilesTotal:
		b.files.WithLabelValues(label(labels, "status"), label(labels, "source")).Add(delta)
	case metrics.RowsTotal:
		b.rows.WithLabelValues(label(labels, "source")).Add(delta)
	case metrics.FieldsTotal:
		b.fields.WithLabelValues(label(labels, "source")).Add(delta)
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 || name != metrics.FileDurationSeconds {
		return
	}
	b.duration.WithLabelValues(label(labels, "status")).Observe(value)
}

// Flush pushes the current collector state, replacing the previous push for
// the same job and grouping.
func (b *Backend) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.pusher.Push(); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	return nil
}

func label(l metrics.Labels, key string) string {
	if v := l[key]; v != "" {
		return v
	}
	return "unknown"
}

var _ metrics.Backend = (*Backend)(nil)
