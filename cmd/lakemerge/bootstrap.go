package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"

	"lakemerge/internal/app"
	"lakemerge/internal/config"
	"lakemerge/internal/domain"
	"lakemerge/internal/metastore"
)

// bootstrap loads configuration and jobs, opens both databases, runs
// migrations, and wires the application. The returned cleanup closes every
// handle and is safe to call once.
func bootstrap() (*app.App, *config.Config, *slog.Logger, func(), error) {
	if err := config.LoadDotEnv(rootFlags.envFile); err != nil {
		return nil, nil, nil, nil, err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if rootFlags.jobsDir != "" {
		cfg.JobsDir = rootFlags.jobsDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, nil, err
	}

	logger := newLogger(cfg)

	jobs, err := config.LoadJobs(cfg.JobsDir)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	duckDB, err := sql.Open("duckdb", cfg.DuckDBPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("open duckdb: %w", err)
	}
	writeDB, readDB, err := metastore.Open(cfg.MetaDBPath, 0)
	if err != nil {
		_ = duckDB.Close()
		return nil, nil, nil, nil, err
	}
	if err := metastore.Migrate(writeDB); err != nil {
		_ = duckDB.Close()
		_ = writeDB.Close()
		_ = readDB.Close()
		return nil, nil, nil, nil, err
	}

	a := app.New(app.Deps{
		Cfg:     cfg,
		DuckDB:  duckDB,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Jobs:    jobs,
		Logger:  logger,
	})
	cleanup := func() {
		_ = readDB.Close()
		_ = writeDB.Close()
		_ = duckDB.Close()
	}
	return a, cfg, logger, cleanup, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func findJob(jobs []domain.Job, name string) (domain.Job, error) {
	for _, j := range jobs {
		if j.Name == name {
			return j, nil
		}
	}
	return domain.Job{}, domain.ErrNotFound("job %q not found", name)
}
