// Package app provides application-level wiring and dependency injection.
package app

import (
	"database/sql"
	"log/slog"

	"lakemerge/internal/config"
	"lakemerge/internal/domain"
	"lakemerge/internal/metastore"
	"lakemerge/internal/scheduler"
	"lakemerge/internal/service/runner"
	duckstore "lakemerge/internal/store/duckdb"
)

// Deps holds the external dependencies that main() must provide: database
// handles, config, parsed jobs, and the logger.
type Deps struct {
	Cfg     *config.Config
	DuckDB  *sql.DB
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Jobs    []domain.Job
	Logger  *slog.Logger
}

// App holds the fully-wired application. RunRepo (write pool) is used by the
// runner's bookkeeping; RunReader (read pool) serves API queries.
type App struct {
	Store     domain.TableStore
	RunRepo   domain.JobRunRepository
	RunReader domain.JobRunRepository
	Runner    *runner.Runner
	Scheduler *scheduler.Scheduler
	Jobs      []domain.Job
}

// New wires the store, repositories, runner, and scheduler from the
// provided deps.
func New(deps Deps) *App {
	store := duckstore.New(deps.DuckDB)
	runRepo := metastore.NewRunRepo(deps.WriteDB)
	run := runner.New(store, runRepo, deps.Logger.With("component", "runner"))

	sched := scheduler.New(run, deps.Logger.With("component", "scheduler"))
	sched.Register(deps.Jobs)

	return &App{
		Store:     store,
		RunRepo:   runRepo,
		RunReader: metastore.NewRunRepo(deps.ReadDB),
		Runner:    run,
		Scheduler: sched,
		Jobs:      deps.Jobs,
	}
}
