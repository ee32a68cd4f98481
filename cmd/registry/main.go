package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"registry/internal/metrics"
	"registry/internal/metrics/datadog"
	"registry/internal/metrics/prompush"
	"registry/internal/registry"
	"registry/internal/storage"

	// every catalog backend is selectable at runtime.
	_ "registry/internal/storage/all"
)

const jobName = "registry"

// config is the resolved command line. Flags win over environment variables,
// which win over defaults.
type config struct {
	Root           string
	Backend        string
	DSN            string
	MetricsBackend string
	PushGatewayURL string
	MetricsTags    []string
	Verbose        bool
}

// main rebuilds the dataset catalog for one directory tree and prints the
// run summary.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env: load .env: %v", err)
	}

	cfg, err := parseConfig(os.Args[1:], os.Getenv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		stop()
		fatalf("%v", err)
	}
}

// parseConfig reads flags from args and falls back to getenv for anything
// left unset.
func parseConfig(args []string, getenv func(string) string) (config, error) {
	var (
		cfg        config
		dsnFlag    string
		backendFlg string
		metricsFlg string
		gatewayFlg string
	)

	fs := flag.NewFlagSet("registry", flag.ContinueOnError)
	fs.StringVar(&cfg.Root, "root", "", "dataset root directory (env REGISTRY_ROOT, default \".\")")
	fs.StringVar(&backendFlg, "backend", "", "catalog store: sqlite, postgres, mssql (env STORAGE_BACKEND, default sqlite)")
	fs.StringVar(&dsnFlag, "dsn", "", "catalog DSN (overrides env DSN and DSN_* components)")
	fs.StringVar(&metricsFlg, "metrics-backend", "", "metrics backend: pushgateway, datadog, none (env METRICS_BACKEND)")
	fs.StringVar(&gatewayFlg, "pushgateway-url", "", "Pushgateway base URL (env PUSHGATEWAY_URL, default http://localhost:9091)")
	fs.BoolVar(&cfg.Verbose, "v", false, "enable verbose logs")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if fs.NArg() > 0 {
		if cfg.Root != "" {
			return config{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
		}
		cfg.Root = fs.Arg(0)
	}

	cfg.Root = firstNonEmpty(cfg.Root, getenv("REGISTRY_ROOT"), ".")
	cfg.Backend = normalizeBackend(firstNonEmpty(backendFlg, getenv("STORAGE_BACKEND"), "sqlite"))
	cfg.MetricsBackend = strings.ToLower(firstNonEmpty(metricsFlg, getenv("METRICS_BACKEND"), "none"))
	cfg.PushGatewayURL = firstNonEmpty(gatewayFlg, getenv("PUSHGATEWAY_URL"), "http://localhost:9091")
	cfg.MetricsTags = datadog.ParseTagsCSV(getenv("METRICS_TAGS"))

	switch cfg.Backend {
	case "sqlite", "postgres", "mssql":
	default:
		return config{}, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}

	dsn, err := resolveDSN(cfg.Backend, cfg.Root, dsnFlag, getenv)
	if err != nil {
		return config{}, err
	}
	cfg.DSN = dsn
	return cfg, nil
}

// run opens the store, builds the catalog and writes the summary to out.
func run(ctx context.Context, cfg config, out io.Writer) error {
	start := time.Now()

	st, err := storage.New(ctx, storage.Config{Kind: cfg.Backend, DSN: cfg.DSN})
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer st.Close()

	r := registry.NewRunner(cfg.Root, st, log.Default())
	r.Destination = cfg.Backend + ":" + redactDSN(cfg.DSN)

	shutdown := setupMetrics(ctx, cfg, r.RunID)
	defer shutdown()

	if cfg.Verbose {
		log.Printf("registry: root=%s store=%s metrics=%s", cfg.Root, r.Destination, cfg.MetricsBackend)
	}

	sum, err := r.Run(ctx)
	if err != nil {
		return err
	}
	if err := sum.WriteText(out); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if cfg.Verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
	return nil
}

// setupMetrics installs the configured metrics backend and returns the
// function that flushes it at exit. Init failures leave the nop backend in
// place.
func setupMetrics(ctx context.Context, cfg config, runID string) func() {
	switch cfg.MetricsBackend {
	case "pushgateway":
		b, err := prompush.NewBackend(jobName, cfg.PushGatewayURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return func() {}
		}
		b.Grouping("run_id", runID)
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", cfg.PushGatewayURL, cfg.MetricsBackend, jobName)
		metrics.SetBackend(b)
		return func() {
			if err := metrics.Flush(); err != nil {
				log.Printf("metrics: flush error: %v", err)
			}
			metrics.SetBackend(nil)
		}

	case "datadog":
		tags := append(append([]string(nil), cfg.MetricsTags...), "run_id:"+runID)
		b, err := datadog.NewBackend(context.WithoutCancel(ctx), datadog.Options{
			JobName: jobName,
			Tags:    tags,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: backend=%v job_name=%v tags=%v", cfg.MetricsBackend, jobName, tags)
		metrics.SetBackend(b)
		return func() {
			// Close stops the flush loop and submits what is still buffered.
			if err := b.Close(); err != nil {
				log.Printf("metrics: datadog close/flush error: %v", err)
			}
			metrics.SetBackend(nil)
		}

	case "", "none":
		if cfg.Verbose {
			log.Printf("metrics: disabled")
		}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", cfg.MetricsBackend)
	}
	return func() {}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
