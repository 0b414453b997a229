// Package metastore provides the SQLite bookkeeping store: connection
// helpers, migrations, and the job run repository.
package metastore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"
)

const (
	// busyTimeout bounds how long a connection waits on a locked database
	// before failing; run bookkeeping writes are small, so 5s is generous.
	busyTimeout = 5 * time.Second

	defaultReadPoolSize = 4
)

// Open opens the metastore file twice: a single-connection writer and a
// pooled reader. SQLite admits one writer at a time; funneling all writes
// through one connection with immediate transactions keeps lock contention
// out of the run bookkeeping path, while API queries fan out over the read
// pool. readPoolSize <= 0 selects the default of 4.
func Open(path string, readPoolSize int) (write, read *sql.DB, err error) {
	write, err = open(dsn(path, true), 1)
	if err != nil {
		return nil, nil, fmt.Errorf("open metastore writer: %w", err)
	}
	if readPoolSize <= 0 {
		readPoolSize = defaultReadPoolSize
	}
	read, err = open(dsn(path, false), readPoolSize)
	if err != nil {
		_ = write.Close()
		return nil, nil, fmt.Errorf("open metastore reader: %w", err)
	}
	return write, read, nil
}

func open(dsn string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// dsn builds the connection string: WAL journaling so the reader pool never
// blocks the writer, a busy timeout, and immediate transactions on the
// writer so lock acquisition fails fast instead of deadlocking mid-tx.
func dsn(path string, writer bool) string {
	params := url.Values{}
	params.Set("_busy_timeout", fmt.Sprintf("%d", busyTimeout.Milliseconds()))
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	params.Set("_foreign_keys", "on")
	if writer {
		params.Set("_txlock", "immediate")
	}
	return "file:" + path + "?" + params.Encode()
}
