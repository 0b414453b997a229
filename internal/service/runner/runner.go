// Package runner executes reconciliation jobs end to end: read sources,
// unify, align, fingerprint, then load per the job's strategy.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"lakemerge/internal/archive"
	"lakemerge/internal/domain"
	"lakemerge/internal/fingerprint"
	"lakemerge/internal/merge"
	"lakemerge/internal/reconcile"
	"lakemerge/internal/table"
	"lakemerge/internal/unify"
)

// maxConcurrentReads bounds parallel source reads per run.
const maxConcurrentReads = 4

// Runner executes jobs and records their runs in the metastore.
type Runner struct {
	store  domain.TableStore
	runs   domain.JobRunRepository
	merger *merge.Merger
	logger *slog.Logger
}

// New creates a Runner.
func New(store domain.TableStore, runs domain.JobRunRepository, logger *slog.Logger) *Runner {
	return &Runner{
		store:  store,
		runs:   runs,
		merger: merge.NewMerger(store, logger.With("component", "merger")),
		logger: logger,
	}
}

// Run executes one job and returns its recorded run. The run row is created
// up front in RUNNING state and finished with SUCCESS or FAILED; an error is
// returned alongside the FAILED run.
func (r *Runner) Run(ctx context.Context, job domain.Job, triggerType string) (*domain.JobRun, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	run, err := r.runs.CreateRun(ctx, &domain.JobRun{
		JobName:     job.Name,
		Status:      domain.RunStatusRunning,
		TriggerType: triggerType,
		StartedAt:   &now,
	})
	if err != nil {
		return nil, fmt.Errorf("record run for job %q: %w", job.Name, err)
	}

	logger := r.logger.With("job", job.Name, "run_id", run.ID)
	logger.Info("job started", "trigger", triggerType, "strategy", job.Strategy)

	stats, execErr := r.execute(ctx, job, logger)
	finished := time.Now().UTC()
	run.FinishedAt = &finished
	run.Stats = stats
	if execErr != nil {
		run.Status = domain.RunStatusFailed
		msg := execErr.Error()
		run.ErrorMessage = &msg
		logger.Error("job failed", "error", execErr)
	} else {
		run.Status = domain.RunStatusSuccess
		logger.Info("job finished",
			"rows_read", stats.RowsRead,
			"rows_written", stats.RowsWritten,
			"duration", finished.Sub(now),
		)
	}
	if err := r.runs.FinishRun(ctx, run); err != nil {
		logger.Error("finish run bookkeeping failed", "error", err)
	}
	return run, execErr
}

func (r *Runner) execute(ctx context.Context, job domain.Job, logger *slog.Logger) (domain.RunStats, error) {
	var stats domain.RunStats

	batch, err := r.readBatch(ctx, job, logger)
	if err != nil {
		return stats, err
	}
	stats.RowsRead = int64(batch.NumRows())

	if len(job.TargetSchema) > 0 {
		batch, err = reconcile.Align(batch, job.TargetSchema)
		if err != nil {
			return stats, err
		}
	}

	switch job.Strategy {
	case domain.StrategySnapshot:
		if err := r.store.WriteTable(ctx, batch, job.Target, domain.WriteModeOverwrite); err != nil {
			return stats, fmt.Errorf("write snapshot to %s: %w", job.Target, err)
		}
		stats.RowsWritten = int64(batch.NumRows())
		return stats, nil

	case domain.StrategyArchive:
		return r.runArchive(ctx, job, batch, &stats)

	case domain.StrategyMerge:
		batch, err = fingerprint.WithFingerprint(batch, job.FingerprintExclude)
		if err != nil {
			return stats, fmt.Errorf("fingerprint batch: %w", err)
		}
		mergeStats, err := r.merger.Merge(ctx, batch, job.Target, job.Keys, job.FingerprintExclude)
		if err != nil {
			return stats, err
		}
		mergeStats.RowsRead = stats.RowsRead
		return mergeStats, nil

	default:
		return stats, domain.ErrValidation("job %q: unknown strategy %q", job.Name, job.Strategy)
	}
}

// readBatch reads every source in parallel (preserving source order in the
// result) and unions them by name when there is more than one.
func (r *Runner) readBatch(ctx context.Context, job domain.Job, logger *slog.Logger) (*table.Table, error) {
	tables := make([]*table.Table, len(job.Sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for i, src := range job.Sources {
		g.Go(func() error {
			t, err := r.store.ReadTable(gctx, src)
			if err != nil {
				return fmt.Errorf("read source %s: %w", src, err)
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(tables) == 1 {
		return tables[0], nil
	}

	policy, err := unify.ParsePolicy(job.ConflictPolicy)
	if err != nil {
		return nil, err
	}
	out, diags, err := unify.UnionByName(tables, policy)
	if err != nil {
		return nil, fmt.Errorf("union sources: %w", err)
	}
	for i, d := range diags.Inputs {
		if len(d.SynthesizedColumns) > 0 {
			logger.Debug("source padded with NULL columns",
				"source", job.Sources[i].String(),
				"columns", d.SynthesizedColumns,
			)
		}
	}
	if len(diags.TypeConflicts) > 0 {
		logger.Warn("type conflicts during union", "columns", diags.TypeConflicts)
	}
	return out, nil
}

// runArchive folds prior destination content into the batch: destination
// rows whose keys are absent from the batch survive, everything else is
// replaced by the batch's version.
func (r *Runner) runArchive(ctx context.Context, job domain.Job, batch *table.Table, stats *domain.RunStats) (domain.RunStats, error) {
	exists, err := r.store.DestinationExists(ctx, job.Target)
	if err != nil {
		return *stats, fmt.Errorf("check destination %s: %w", job.Target, err)
	}
	out := batch
	if exists {
		previous, err := r.store.ReadTable(ctx, job.Target)
		if err != nil {
			return *stats, fmt.Errorf("read destination %s: %w", job.Target, err)
		}
		out, err = archive.DiffMany(batch, []*table.Table{previous}, job.Keys)
		if err != nil {
			return *stats, err
		}
	}
	if err := r.store.WriteTable(ctx, out, job.Target, domain.WriteModeOverwrite); err != nil {
		return *stats, fmt.Errorf("write archive to %s: %w", job.Target, err)
	}
	stats.RowsWritten = int64(out.NumRows())
	return *stats, nil
}
