package history

import (
	"database/sql"
	"fmt"

	// SQLite driver (pure Go, no CGO required)
	_ "modernc.org/sqlite"
)

// busyTimeoutMS is how long a connection waits on a locked database
// before failing. Generations are long; 5 seconds covers a concurrent
// "-history" read against an in-flight write.
const busyTimeoutMS = 5000

// openConnection opens the SQLite file with WAL mode enabled and the
// pool pinned to a single connection. SQLite handles concurrency best
// with one writer, and WAL keeps readers unblocked while it writes.
func openConnection(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []struct {
		name  string
		query string
	}{
		{"journal_mode", "PRAGMA journal_mode=WAL"},
		{"busy_timeout", fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMS)},
		{"foreign_keys", "PRAGMA foreign_keys=ON"},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p.query); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set %s pragma: %w", p.name, err)
		}
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Some filesystems refuse WAL; fail loudly rather than run with a
	// different durability story than expected.
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		db.Close()
		return nil, fmt.Errorf("WAL mode not enabled, got: %s", journalMode)
	}

	return db, nil
}
