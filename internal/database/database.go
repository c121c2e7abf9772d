// Package database manages SQLite connections to the .db files embedded
// in each JW Library backup archive, one connection per source.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Open opens path as a SQLite database and applies the pragmas jwlmerge
// relies on: foreign key enforcement (which the Persistence Writer
// switches off while it deletes and reinserts rows) and WAL journaling for faster bulk writes during the Persistence Writer's
// rebuild pass.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("database: opening %q: %w", path, err)
	}

	// SQLite permits exactly one writer; a larger pool just serializes
	// anyway and risks "database is locked" errors under WAL.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database: pinging %q: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("database: applying %q to %q: %w", pragma, path, err)
		}
	}

	return db, nil
}

// OpenReadOnly opens path without enforcing foreign keys or switching
// journal modes, for preflight and validate paths that only read.
func OpenReadOnly(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("database: opening %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database: pinging %q: %w", path, err)
	}
	return db, nil
}
