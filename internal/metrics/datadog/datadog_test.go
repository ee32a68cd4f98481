package datadog

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"registry/internal/metrics"
)

// fakeSubmitter captures payloads submitted by Backend.Flush.
type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
	err      error
}

func (f *fakeSubmitter) SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, f.err
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakeSubmitter) last() (datadogV2.MetricPayload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return datadogV2.MetricPayload{}, false
	}
	return f.payloads[len(f.payloads)-1], true
}

// newTestBackend builds a backend whose ticker never fires during the test.
func newTestBackend(t *testing.T, fs *fakeSubmitter) *Backend {
	t.Helper()
	b, err := NewBackend(context.Background(), Options{
		JobName:    "registry_test",
		FlushEvery: 24 * time.Hour,
		submitter:  fs,
		now:        func() time.Time { return time.Unix(1000, 0) },
		newTicker:  func(time.Duration) *time.Ticker { return time.NewTicker(24 * time.Hour) },
	})
	if err != nil {
		t.Fatalf("NewBackend() err=%v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func findSeries(series []datadogV2.MetricSeries, metric string, tag string) (datadogV2.MetricSeries, bool) {
	for _, s := range series {
		if s.Metric == metric && contains(s.Tags, tag) {
			return s, true
		}
	}
	return datadogV2.MetricSeries{}, false
}

func contains[T comparable](xs []T, v T) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

//
// Helpers
//

func TestResolveEnvTag(t *testing.T) {
	tests := []struct {
		name string
		env  string
		dd   string
		want string
	}{
		{name: "ENV_wins", env: "prod", dd: "stage", want: "env:prod"},
		{name: "DD_ENV_used_when_ENV_empty", env: "", dd: "stage", want: "env:stage"},
		{name: "whitespace_ignored", env: "   ", dd: "\n\t", want: "env:unknown"},
		{name: "default_unknown", env: "", dd: "", want: "env:unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("ENV", tc.env)
			t.Setenv("DD_ENV", tc.dd)
			if got := resolveEnvTag(); got != tc.want {
				t.Fatalf("resolveEnvTag()=%q, want %q", got, tc.want)
			}
		})
	}
}

func TestWrapInitErr(t *testing.T) {
	if got := wrapInitErr(nil); got != nil {
		t.Fatalf("wrapInitErr(nil)=%v, want nil", got)
	}
	in := errors.New("boom")
	got := wrapInitErr(in)
	if got == nil || !strings.HasPrefix(got.Error(), "datadog metrics init:") {
		t.Fatalf("wrapInitErr prefix missing: %v", got)
	}
	if !errors.Is(got, in) {
		t.Fatalf("wrapInitErr did not wrap original error: got=%v", got)
	}
}

func TestPairKeyRoundTrip(t *testing.T) {
	t.Parallel()

	for _, tc := range [][2]string{{"ok", "MOJ"}, {"", "MOJ"}, {"error", ""}, {"", ""}} {
		a, b := splitPairKey(pairKey(tc[0], tc[1]))
		if a != tc[0] || b != tc[1] {
			t.Fatalf("roundtrip got=(%q,%q), want=(%q,%q)", a, b, tc[0], tc[1])
		}
	}

	if a, b := splitPairKey("no-sep"); a != "no-sep" || b != "unknown" {
		t.Fatalf("splitPairKey(no-sep)=(%q,%q)", a, b)
	}
}

func TestWithTags(t *testing.T) {
	t.Parallel()

	base := []string{"env:test", "job:registry"}
	got := withTags(base, "status:ok", "source:MOJ")
	want := []string{"env:test", "job:registry", "status:ok", "source:MOJ"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("withTags()=%v, want %v", got, want)
	}
	got[0] = "env:mutated"
	if base[0] == "env:mutated" {
		t.Fatalf("withTags output aliases base slice")
	}
}

func TestPercentileNearestRank(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		s    []float64
		p    float64
		want float64
	}{
		{name: "empty", s: nil, p: 0.50, want: 0},
		{name: "single", s: []float64{7}, p: 0.95, want: 7},
		{name: "p_le_0", s: []float64{1, 2, 3}, p: -1, want: 1},
		{name: "p_ge_1", s: []float64{1, 2, 3}, p: 2, want: 3},
		{name: "median", s: []float64{1, 2, 3, 4, 5}, p: 0.50, want: 3},
		{name: "p90_small_n", s: []float64{1, 2, 3, 4, 5}, p: 0.90, want: 5},
	}
	for _, tc := range tests {
		if got := percentileNearestRank(tc.s, tc.p); got != tc.want {
			t.Fatalf("%s: percentileNearestRank(%v,%v)=%v, want %v", tc.name, tc.s, tc.p, got, tc.want)
		}
	}
}

func TestCountAndGaugeSeries(t *testing.T) {
	t.Parallel()

	c := countSeries("registry.files.total", 4, []string{"env:test"}, 42)
	if c.Type == nil || *c.Type != datadogV2.METRICINTAKETYPE_COUNT {
		t.Fatalf("count Type=%v", c.Type)
	}
	g := gaugeSeries("registry.file.duration_seconds.p50", 3.14, []string{"env:test"}, 42)
	if g.Type == nil || *g.Type != datadogV2.METRICINTAKETYPE_GAUGE {
		t.Fatalf("gauge Type=%v", g.Type)
	}
	if len(g.Points) != 1 || *g.Points[0].Timestamp != 42 || *g.Points[0].Value != 3.14 {
		t.Fatalf("gauge points=%+v", g.Points)
	}
}

func TestAddPercentiles(t *testing.T) {
	t.Parallel()

	orig := []float64{5, 1, 3, 2, 4}
	in := append([]float64(nil), orig...)

	var series []datadogV2.MetricSeries
	addPercentiles(&series, "registry.file.duration_seconds", []string{"status:ok"}, in, 999)

	if len(series) != 6 {
		t.Fatalf("series.len=%d, want 6", len(series))
	}
	if !reflect.DeepEqual(in, orig) {
		t.Fatalf("samples mutated: got %v, want %v", in, orig)
	}
	s, ok := findSeries(series, "registry.file.duration_seconds.max", "status:ok")
	if !ok || *s.Points[0].Value != 5 {
		t.Fatalf("max series=%+v ok=%v", s, ok)
	}
	s, ok = findSeries(series, "registry.file.duration_seconds.samples", "status:ok")
	if !ok || *s.Points[0].Value != 5 {
		t.Fatalf("samples series=%+v ok=%v", s, ok)
	}

	var none []datadogV2.MetricSeries
	addPercentiles(&none, "x", nil, nil, 1)
	if len(none) != 0 {
		t.Fatalf("empty samples produced %d series", len(none))
	}
}

//
// Backend
//

func TestNewBackend_Defaults(t *testing.T) {
	fs := &fakeSubmitter{}
	b, err := NewBackend(context.Background(), Options{
		Tags:      []string{"team:data"},
		submitter: fs,
		newTicker: func(time.Duration) *time.Ticker { return time.NewTicker(24 * time.Hour) },
	})
	if err != nil {
		t.Fatalf("NewBackend() err=%v, want nil", err)
	}
	defer func() { _ = b.Close() }()

	if !contains(b.baseTags, "job:registry") || !contains(b.baseTags, "team:data") {
		t.Fatalf("baseTags=%v", b.baseTags)
	}
	if b.flushEvery != 60*time.Second {
		t.Fatalf("flushEvery=%s, want 60s", b.flushEvery)
	}
}

func TestNewBackend_RequiresAPIKey(t *testing.T) {
	t.Setenv("DD_API_KEY", "")

	_, err := NewBackend(context.Background(), Options{})
	if err == nil || !strings.Contains(err.Error(), "DD_API_KEY") {
		t.Fatalf("NewBackend() err=%v, want DD_API_KEY error", err)
	}
}

func TestFlush_SubmitsRegistryMetrics(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs)

	b.IncCounter(metrics.FilesTotal, 2, metrics.Labels{"status": "ok", "source": "MOJ"})
	b.IncCounter(metrics.FilesTotal, 1, metrics.Labels{"status": "failed", "source": "REGA"})
	b.IncCounter(metrics.RowsTotal, 300, metrics.Labels{"source": "MOJ"})
	b.IncCounter(metrics.FieldsTotal, 14, metrics.Labels{"source": "MOJ"})
	b.ObserveHistogram(metrics.FileDurationSeconds, 0.5, metrics.Labels{"status": "ok"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v, want nil", err)
	}
	if fs.count() != 1 {
		t.Fatalf("submit calls=%d, want 1", fs.count())
	}
	if len(b.fileCounts) != 0 || len(b.rowCounts) != 0 || len(b.fieldCounts) != 0 || len(b.durationSamples) != 0 {
		t.Fatalf("buffers not reset after Flush")
	}

	payload, _ := fs.last()
	checks := []struct {
		metric string
		tag    string
		value  float64
	}{
		{"registry.files.total", "source:MOJ", 2},
		{"registry.files.total", "status:failed", 1},
		{"registry.rows.total", "source:MOJ", 300},
		{"registry.fields.total", "source:MOJ", 14},
		{"registry.file.duration_seconds.p50", "status:ok", 0.5},
	}
	for _, c := range checks {
		s, ok := findSeries(payload.Series, c.metric, c.tag)
		if !ok {
			t.Fatalf("payload missing %s{%s}", c.metric, c.tag)
		}
		if *s.Points[0].Value != c.value {
			t.Fatalf("%s{%s}=%v, want %v", c.metric, c.tag, *s.Points[0].Value, c.value)
		}
		if !contains(s.Tags, "job:registry_test") {
			t.Fatalf("%s missing job tag: %v", c.metric, s.Tags)
		}
	}

	for i := 1; i < len(payload.Series); i++ {
		if payload.Series[i-1].Metric > payload.Series[i].Metric {
			t.Fatalf("series not sorted by metric: %q before %q", payload.Series[i-1].Metric, payload.Series[i].Metric)
		}
	}
}

func TestFlush_NoDataDoesNotSubmit(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs)

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v, want nil", err)
	}
	if fs.count() != 0 {
		t.Fatalf("unexpected submission count=%d, want 0", fs.count())
	}
}

func TestFlush_ReturnsSubmitErrorAndStillResets(t *testing.T) {
	fs := &fakeSubmitter{err: errors.New("intake down")}
	b := newTestBackend(t, fs)

	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"source": "MOJ"})
	if err := b.Flush(); err == nil {
		t.Fatalf("Flush() err=nil, want submit error")
	}
	if len(b.rowCounts) != 0 {
		t.Fatalf("buffers not reset after failed Flush")
	}
	fs.mu.Lock()
	fs.err = nil
	fs.mu.Unlock()
}

func TestLoopAndClose(t *testing.T) {
	fs := &fakeSubmitter{}
	b, err := NewBackend(context.Background(), Options{
		FlushEvery: 5 * time.Millisecond,
		submitter:  fs,
		now:        func() time.Time { return time.Unix(2000, 0) },
	})
	if err != nil {
		t.Fatalf("NewBackend() err=%v", err)
	}

	b.IncCounter(metrics.FilesTotal, 1, metrics.Labels{"status": "ok"})

	deadline := time.Now().Add(250 * time.Millisecond)
	for time.Now().Before(deadline) && fs.count() < 1 {
		time.Sleep(2 * time.Millisecond)
	}
	if fs.count() < 1 {
		_ = b.Close()
		t.Fatalf("expected at least one background Flush submission; got %d", fs.count())
	}

	// Close performs the final flush.
	b.IncCounter(metrics.FilesTotal, 1, metrics.Labels{"status": "ok"})
	if err := b.Close(); err != nil {
		t.Fatalf("Close() err=%v, want nil", err)
	}
	if fs.count() < 2 {
		t.Fatalf("expected at least 2 submissions after Close; got %d", fs.count())
	}
}

func TestBackend_ConcurrentAccess(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs)

	workers := runtime.GOMAXPROCS(0) * 4
	iters := 500

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				metricsLabels := metrics.Labels{"status": "ok", "source": "MOJ"}
				b.IncCounter(metrics.FilesTotal, 1, metricsLabels)
				b.IncCounter(metrics.RowsTotal, 10, metricsLabels)
				b.ObserveHistogram(metrics.FileDurationSeconds, 0.01, metricsLabels)
			}
		}()
	}
	wg.Wait()

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v, want nil", err)
	}
	payload, _ := fs.last()
	s, ok := findSeries(payload.Series, "registry.files.total", "source:MOJ")
	if !ok || *s.Points[0].Value != float64(workers*iters) {
		t.Fatalf("files total=%+v, want %d", s.Points, workers*iters)
	}
}

func TestIncCounterAndObserveHistogram_EdgeCases(t *testing.T) {
	fs := &fakeSubmitter{}
	b := newTestBackend(t, fs)

	b.IncCounter(metrics.FilesTotal, 0, nil)                                             // non-positive ignored
	b.IncCounter("unknown_total", 1, metrics.Labels{"x": "y"})                           // unknown ignored
	b.ObserveHistogram(metrics.FileDurationSeconds, -1, metrics.Labels{"status": "ok"}) // negative ignored
	b.IncCounter(metrics.RowsTotal, 5, nil)                                              // missing source
	b.ObserveHistogram(metrics.FileDurationSeconds, 0.1, nil)                            // missing status

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() err=%v, want nil", err)
	}
	payload, ok := fs.last()
	if !ok {
		t.Fatalf("missing payload")
	}
	if _, ok := findSeries(payload.Series, "registry.rows.total", "source:unknown"); !ok {
		t.Fatalf("expected registry.rows.total for source:unknown")
	}
	if _, ok := findSeries(payload.Series, "registry.file.duration_seconds.p50", "status:unknown"); !ok {
		t.Fatalf("expected duration p50 for status:unknown")
	}
	for _, s := range payload.Series {
		if s.Metric == "registry.files.total" {
			t.Fatalf("zero-delta counter was submitted: %+v", s)
		}
	}
}

func TestParseTagsCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty_returns_nil", in: "", want: nil},
		{name: "trims_and_skips_empty_segments", in: " env:prod , ,team:data,  ,service:registry ", want: []string{"env:prod", "team:data", "service:registry"}},
		{name: "single_tag", in: "service:registry", want: []string{"service:registry"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ParseTagsCSV(tc.in); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseTagsCSV(%q)=%v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
