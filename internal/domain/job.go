package domain

import (
	"time"

	"lakemerge/internal/table"
)

// Run status constants.
const (
	RunStatusPending = "PENDING"
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"

	TriggerTypeManual    = "MANUAL"
	TriggerTypeScheduled = "SCHEDULED"
)

// Load strategies.
const (
	// StrategySnapshot overwrites the destination with the reconciled batch.
	StrategySnapshot = "snapshot"
	// StrategyArchive keeps destination rows whose keys are absent from the
	// batch (anti-join union) and overwrites with the result.
	StrategyArchive = "archive"
	// StrategyMerge performs a hash-based SCD1 upsert into the destination.
	StrategyMerge = "merge"
)

// Destination names a table in the backing store.
type Destination struct {
	Schema string
	Table  string
}

// String renders the destination as schema.table for logs and errors.
func (d Destination) String() string {
	if d.Schema == "" {
		return d.Table
	}
	return d.Schema + "." + d.Table
}

// Job is a reconciliation job definition: one or more sources unified and
// aligned to a target schema, then loaded into the target per the strategy.
// Jobs are parsed from YAML specs at startup and treated as immutable.
type Job struct {
	Name               string
	Sources            []Destination
	Target             Destination
	TargetSchema       table.Schema // empty: skip alignment, take sources as-is
	Keys               []string     // merge/diff keys; required for archive and merge
	FingerprintExclude []string
	Strategy           string
	Schedule           string // cron spec; empty means manual-only
	ConflictPolicy     string // unify conflict policy; empty means first-wins
}

// Validate checks that the job definition is well-formed.
func (j *Job) Validate() error {
	if j.Name == "" {
		return ErrValidation("job name is required")
	}
	if len(j.Sources) == 0 {
		return ErrValidation("job %q: at least one source is required", j.Name)
	}
	for _, s := range j.Sources {
		if s.Table == "" {
			return ErrValidation("job %q: source table name is required", j.Name)
		}
	}
	if j.Target.Table == "" {
		return ErrValidation("job %q: target table name is required", j.Name)
	}
	switch j.Strategy {
	case StrategySnapshot:
	case StrategyArchive, StrategyMerge:
		if len(j.Keys) == 0 {
			return ErrValidation("job %q: strategy %q requires keys", j.Name, j.Strategy)
		}
	default:
		return ErrValidation("job %q: unknown strategy %q", j.Name, j.Strategy)
	}
	for _, k := range j.Keys {
		if j.TargetSchema != nil && j.TargetSchema.Index(k) < 0 {
			return ErrValidation("job %q: key %q not in target schema", j.Name, k)
		}
	}
	return nil
}

// RunStats counts what a run did to the destination.
type RunStats struct {
	RowsRead    int64
	RowsWritten int64
	Inserted    int64
	Updated     int64
	Unchanged   int64
}

// JobRun records one execution of a job.
type JobRun struct {
	ID           string
	JobName      string
	Status       string
	TriggerType  string
	Stats        RunStats
	StartedAt    *time.Time
	FinishedAt   *time.Time
	ErrorMessage *string
	CreatedAt    time.Time
}

// JobRunFilter holds filter parameters for querying job runs.
type JobRunFilter struct {
	JobName *string
	Status  *string
	Limit   int
}
