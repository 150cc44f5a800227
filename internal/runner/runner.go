// Package runner executes pipelines: it loads the grid, runs the transform,
// collects the reported issues and, when a store is configured, persists
// every merged record.
package runner

import (
	"context"
	"time"

	"github.com/JonMunkholm/gridmap/internal/config"
	"github.com/JonMunkholm/gridmap/internal/core"
	"github.com/JonMunkholm/gridmap/internal/logging"
	"github.com/JonMunkholm/gridmap/internal/source"
	"github.com/JonMunkholm/gridmap/internal/store"
	"github.com/google/uuid"
)

// RecordStore persists runs. *store.Store implements it.
type RecordStore interface {
	store.RecordWriter
	BeginRun(ctx context.Context, pipeline string) (uuid.UUID, error)
	FinishRun(ctx context.Context, runID uuid.UUID, stats core.Stats, runErr error) error
}

// Issue is a reported problem with its user-facing code.
type Issue struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Report is the outcome of one run.
type Report struct {
	RunID    string        `json:"run_id,omitempty"`
	Pipeline string        `json:"pipeline,omitempty"`
	Records  []core.Result `json:"records"`
	Issues   []Issue       `json:"issues"`
	Stats    core.Stats    `json:"stats"`

	reported *core.Issues
}

// HasIssue reports whether an issue matching target was reported.
func (r *Report) HasIssue(target error) bool {
	return r.reported != nil && r.reported.Has(target)
}

// Options configures a Runner. Every field is optional.
type Options struct {
	Store     RecordStore
	Limiter   *Limiter
	BatchSize int
	Timeout   time.Duration
}

// Runner runs pipelines.
type Runner struct {
	store     RecordStore
	limiter   *Limiter
	batchSize int
	timeout   time.Duration
}

// New returns a Runner.
func New(opts Options) *Runner {
	return &Runner{
		store:     opts.Store,
		limiter:   opts.Limiter,
		batchSize: opts.BatchSize,
		timeout:   opts.Timeout,
	}
}

// Persistent reports whether runs are written to a store.
func (r *Runner) Persistent() bool {
	return r.store != nil
}

// LimiterStatus returns the limiter snapshot, or the zero value without one.
func (r *Runner) LimiterStatus() LimiterStatus {
	if r.limiter == nil {
		return LimiterStatus{}
	}
	return r.limiter.Status()
}

// WaitForRuns blocks until in-flight runs finish or ctx is done.
func (r *Runner) WaitForRuns(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.WaitForDrain(ctx)
}

// RunPipeline loads the pipeline's source and runs it.
func (r *Runner) RunPipeline(ctx context.Context, p *config.Pipeline) (*Report, error) {
	grid, err := source.Load(ctx, p.Source)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, p, grid)
}

// Run transforms grid with p. Issues are collected in the report and never
// fail the run; a cancelled context, a store failure or a merge failure does.
// On failure the partial report is returned with the error.
func (r *Runner) Run(ctx context.Context, p *config.Pipeline, grid core.Grid) (*Report, error) {
	if r.limiter != nil {
		if err := r.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer r.limiter.Release()
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	logger := logging.WithFields(ctx, "pipeline", p.Name)
	issues := &core.Issues{}
	rep := &Report{
		Pipeline: p.Name,
		Records:  []core.Result{},
		Issues:   []Issue{},
		reported: issues,
	}

	var (
		runID uuid.UUID
		sink  *store.Sink
	)
	if r.store != nil {
		id, err := r.store.BeginRun(ctx, p.Name)
		if err != nil {
			return nil, err
		}
		runID = id
		rep.RunID = id.String()
		sink = store.NewSink(r.store, id, r.batchSize)
		logger = logger.With("run_id", rep.RunID)
	}

	logger.Info("run started", "rows", len(grid))

	stats, err := core.Run(ctx, grid, p.Options(), p.Context, core.Tee(issues, core.LogReporter(logger)),
		func(res core.Result) error {
			rep.Records = append(rep.Records, res)
			if sink != nil {
				return sink.Emit(ctx, res)
			}
			return nil
		})
	if err == nil && sink != nil {
		err = sink.Flush(ctx)
	}
	if r.store != nil {
		// The run row is closed even when ctx was cancelled.
		if ferr := r.store.FinishRun(context.WithoutCancel(ctx), runID, stats, err); ferr != nil {
			logger.Error("failed to finish run", "error", ferr)
			if err == nil {
				err = ferr
			}
		}
	}

	rep.Stats = stats
	for _, e := range issues.Errors() {
		rep.Issues = append(rep.Issues, Issue{Message: e.Error(), Code: core.MapError(e).Code})
	}

	if err != nil {
		logger.Error("run failed", "error", err, "rows", stats.Rows)
		return rep, err
	}
	attrs := []any{"rows", stats.Rows, "issues", stats.Issues, "duration", stats.Duration}
	if sink != nil {
		attrs = append(attrs, "written", sink.Written())
	}
	logger.Info("run completed", attrs...)
	return rep, nil
}
