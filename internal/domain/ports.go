package domain

import (
	"context"

	"lakemerge/internal/table"
)

// WriteMode selects how WriteTable treats an existing destination.
type WriteMode string

const (
	// WriteModeOverwrite replaces the destination table atomically.
	WriteModeOverwrite WriteMode = "overwrite"
	// WriteModeAppend appends rows, creating the table when absent.
	WriteModeAppend WriteMode = "append"
	// WriteModeCreate creates a new table and fails when it already exists.
	WriteModeCreate WriteMode = "create"
)

// TableStore is the collaborator boundary to the backing store. The engine
// performs no I/O outside this interface; writes are assumed all-or-nothing.
type TableStore interface {
	ReadTable(ctx context.Context, dest Destination) (*table.Table, error)
	WriteTable(ctx context.Context, t *table.Table, dest Destination, mode WriteMode) error
	DestinationExists(ctx context.Context, dest Destination) (bool, error)
}

// JobRunRepository persists job run bookkeeping in the metastore.
type JobRunRepository interface {
	CreateRun(ctx context.Context, run *JobRun) (*JobRun, error)
	FinishRun(ctx context.Context, run *JobRun) error
	GetRun(ctx context.Context, id string) (*JobRun, error)
	ListRuns(ctx context.Context, filter JobRunFilter) ([]JobRun, error)
}
