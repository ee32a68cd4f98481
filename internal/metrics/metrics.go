// Package metrics is the backend-neutral metrics facade used by the registry.
//
// Core code records through the package-level helpers; cmd/registry chooses a
// concrete Backend (Pushgateway, Datadog) at startup with SetBackend. Until a
// backend is set every call is a no-op.
package metrics

import (
	"sync"
	"time"
)

// Metric names recorded by the registry.
const (
	FilesTotal          = "registry_files_total"
	RowsTotal           = "registry_rows_total"
	FieldsTotal         = "registry_fields_total"
	FileDurationSeconds = "registry_file_duration_seconds"
)

// File outcome label values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Labels are metric dimensions.
type Labels map[string]string

// Backend receives metric observations.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the process-wide backend. A nil b restores the no-op.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush pushes buffered observations through the active backend.
func Flush() error {
	return current().Flush()
}

// RecordFile records the outcome of profiling one CSV file.
//
// rows and fields are only counted for successful files.
func RecordFile(source string, err error, rows, fields int, d time.Duration) {
	status := StatusOK
	if err != nil {
		status = StatusFailed
	}
	if source == "" {
		source = "unknown"
	}

	IncCounter(FilesTotal, 1, Labels{"status": status, "source": source})
	ObserveHistogram(FileDurationSeconds, d.Seconds(), Labels{"status": status})
	if err != nil {
		return
	}
	IncCounter(RowsTotal, float64(rows), Labels{"source": source})
	IncCounter(FieldsTotal, float64(fields), Labels{"source": source})
}
