// SPDX-License-Identifier: MIT

// Package sapi provides file-based schema migration utilities for Go
// applications.  It discovers *.sql* change-set files, tracks which have
// been applied in a ledger table inside the target database, and moves
// the database forward (apply) or backward one step at a time (rollback).
//
// A thin client layer (currently PostgreSQL and SQLite) supplies SQL
// dialect differences.  A companion CLI lives under *cmd/sapi*; the core
// logic is here.
//
// # Install
//
//	go get github.com/fsapi/sapi@latest
//
// # Quick start
//
//	import (
//	    "context"
//	    "database/sql"
//
//	    _ "github.com/jackc/pgx/v5/stdlib" // or sqlite3
//	    "github.com/fsapi/sapi"
//	)
//
//	func main() {
//	    db, _ := sql.Open("pgx", os.Getenv("DATABASE_URL"))
//	    cfg := sapi.Config{
//	        Driver:   "pg",
//	        Database: "myapp",
//	        Pattern:  "migrations/*.sql",
//	    }
//
//	    r, _ := sapi.NewRunner(cfg, db)
//	    r.Apply(context.Background())
//	}
//
// # Configuration
//
// Use Config to tweak behaviour:
//
//   - Driver      — database driver name ("pg", "sqlite3")
//   - Database    — database name; doubles as the confirmation token for Fresh
//   - LedgerTable — table that stores applied change-sets (default "migrations")
//   - Pattern     — glob for locating change-set files (default "migrations/*.sql")
//
// # Change-set files
//
// A change-set is a single .sql file whose name starts with a sortable
// timestamp prefix:
//
//	2025_03_14_09_26_create_users.sql
//
// Inside, an optional "-- UP" header precedes the forward SQL, and a
// "-- DOWN" sentinel separates the backward SQL used by Rollback:
//
//	-- UP
//	CREATE TABLE users (id SERIAL PRIMARY KEY, email TEXT);
//
//	-- DOWN
//	DROP TABLE users;
//
// Change-sets are applied strictly in ascending identifier order, one at
// a time.  The runner never wraps a script in a transaction: schema
// statements on some engines are not transactional, so scripts that need
// atomicity must carry their own BEGIN/COMMIT.  Run at most one sapi
// process against a given database at a time; the runner does not take
// an advisory lock.
//
// # Programmatic API
//
//	NewRunner(cfg, db)            → *Runner
//	(*Runner).Apply(ctx)          → []ApplyResult, error
//	(*Runner).Rollback(ctx)       → *ApplyResult, error
//	(*Runner).Pending(ctx)        → []string, error
//	(*Runner).Status(ctx)         → []ChangeSetStatus, error
//	(*Runner).Fresh(ctx, confirm) → []ApplyResult, error
//
// All operations are context-aware; cancel the context to abort long runs.
//
// # Exit codes
//
// The library returns errors; the CLI exits with non-zero status on any
// failure.  ScriptError values carry the failing identifier for easy triage.
package sapi
