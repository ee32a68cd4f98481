// Package registry builds the dataset catalog: it discovers CSV files under a
// root, profiles each one, stores the profiles, and derives the cross-file
// field alias table.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"registry/internal/catalog"
	"registry/internal/metrics"
	"registry/internal/probe"
	"registry/internal/storage"
)

// Logger is the minimal logging interface used by the runner.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// ProfileFn profiles one file. It is a seam for tests; production uses
// probe.ProfileFile.
type ProfileFn func(ctx context.Context, root, path string) (*catalog.FileProfile, error)

// Runner performs one full catalog build.
type Runner struct {
	Root   string
	Store  storage.Store
	Logger Logger

	// RunID tags logs, metrics and the summary. NewRunner fills it with a UUID.
	RunID string

	// Destination is copied into the summary (e.g. "sqlite:/data/registry.db").
	Destination string

	// Profile overrides probe.ProfileFile when set.
	Profile ProfileFn
}

// NewRunner returns a runner with a fresh run ID.
func NewRunner(root string, st storage.Store, logger Logger) *Runner {
	return &Runner{
		Root:   root,
		Store:  st,
		Logger: logger,
		RunID:  uuid.NewString(),
	}
}

// Run rebuilds the catalog from scratch.
//
// A file that fails to profile or save is logged, counted in
// Summary.FailedFiles, and skipped; the batch continues. Store failures
// outside the per-file step and context cancellation abort the run.
func (r *Runner) Run(ctx context.Context) (*catalog.Summary, error) {
	if r.Store == nil {
		return nil, fmt.Errorf("registry: Store is required")
	}
	logf := r.logger()
	runStart := time.Now()

	paths, err := Discover(r.Root)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", r.Root, err)
	}
	logf("run=%s root=%s files=%d", r.RunID, r.Root, len(paths))

	if err := r.Store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset catalog: %w", err)
	}

	saved := make([]*catalog.FileProfile, 0, len(paths))
	failed := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fp, err := r.processFile(ctx, path)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			failed++
			logf("ERROR %s: %v", r.rel(path), err)
			continue
		}
		saved = append(saved, fp)
		logf("%s [%s/%s]  (%d rows, %d cols)", fp.File.Path, fp.File.Source, fp.File.Category, fp.File.RowCount, fp.File.ColCount)
	}

	aliasStart := time.Now()
	aliases := catalog.BuildFieldAliases(saved)
	if err := r.Store.ReplaceFieldAliases(ctx, aliases); err != nil {
		return nil, fmt.Errorf("store field aliases: %w", err)
	}
	logf("stage=aliases ok count=%d duration=%s", len(aliases), durMS(aliasStart))

	idxStart := time.Now()
	if err := r.Store.CreateIndexes(ctx); err != nil {
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	logf("stage=indexes ok duration=%s", durMS(idxStart))

	sum := catalog.Summarize(saved, aliases)
	sum.RunID = r.RunID
	sum.FailedFiles = failed
	sum.Destination = r.Destination

	logf("run=%s done files=%d failed=%d duration=%s", r.RunID, len(saved), failed, durMS(runStart))
	return &sum, nil
}

// processFile profiles and saves one file, recording its metrics.
func (r *Runner) processFile(ctx context.Context, path string) (*catalog.FileProfile, error) {
	start := time.Now()

	profile := r.Profile
	if profile == nil {
		profile = probe.ProfileFile
	}

	fp, err := profile(ctx, r.Root, path)
	if err == nil {
		_, err = r.Store.SaveFile(ctx, fp)
		if err != nil {
			err = fmt.Errorf("save: %w", err)
		}
	}

	var (
		source       string
		rows, fields int
	)
	if fp != nil {
		source = fp.File.Source
		rows = fp.File.RowCount
		fields = len(fp.Fields)
	}
	metrics.RecordFile(source, err, rows, fields, time.Since(start))

	if err != nil {
		return nil, err
	}
	return fp, nil
}

func (r *Runner) rel(path string) string {
	if rel, err := filepath.Rel(r.Root, path); err == nil {
		return rel
	}
	return path
}

func (r *Runner) logger() func(format string, v ...any) {
	if r.Logger == nil {
		return log.New(io.Discard, "", 0).Printf
	}
	return r.Logger.Printf
}

func durMS(start time.Time) time.Duration { return time.Since(start).Truncate(time.Millisecond) }
