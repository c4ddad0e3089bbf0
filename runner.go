package sapi

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Config holds settings for the migration runner.
type Config struct {
	// Driver is the database driver, e.g., "pg" or "sqlite3".
	Driver string

	// Database is the database name (or SQLite file).  It doubles as the
	// confirmation token Fresh requires before dropping anything.
	Database string

	// LedgerTable is the name of the table that records applied
	// change-sets.
	LedgerTable string

	// Pattern is the glob pattern for change-set files
	// (e.g. "./migrations/*.sql").
	Pattern string
}

// DefaultConfig provides default values for configuration.
var DefaultConfig = Config{
	LedgerTable: "migrations",
	Pattern:     "migrations/*.sql",
}

// ApplyResult reports one executed change-set script.
type ApplyResult struct {
	Identifier string
	Duration   time.Duration
}

// Runner is the main orchestrator.
//
// It discovers change-set files, consults the ledger for which have
// already been applied, and applies or reverts change-sets by executing
// their embedded SQL.  Change-sets run strictly in ascending identifier
// order, one at a time; a failure stops the run and leaves earlier
// successes applied.
type Runner struct {
	cfg        Config
	changeSets []ChangeSet
	client     Client
}

// NewRunner creates a new Runner with the provided configuration and
// database connection.
func NewRunner(cfg Config, db *sql.DB) (*Runner, error) {
	// Merge defaults.
	if cfg.LedgerTable == "" {
		cfg.LedgerTable = DefaultConfig.LedgerTable
	}
	if cfg.Pattern == "" {
		cfg.Pattern = DefaultConfig.Pattern
	}
	client, err := NewClient(cfg, db)
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:    cfg,
		client: client,
	}, nil
}

// ChangeSets scans for change-set files and caches them on the Runner.
func (r *Runner) ChangeSets() ([]ChangeSet, error) {
	if r.changeSets == nil {
		cs, err := LoadChangeSets(r.cfg)
		if err != nil {
			return nil, err
		}
		r.changeSets = cs
	}
	return r.changeSets, nil
}

// RunQuery is a helper to execute a query using the underlying client.
func (r *Runner) RunQuery(ctx context.Context, query string) (*sql.Rows, error) {
	return r.client.RunQuery(ctx, query)
}

// RunExec is a helper to execute a statement using the underlying client.
func (r *Runner) RunExec(ctx context.Context, stmt string) (sql.Result, error) {
	return r.client.RunExec(ctx, stmt)
}

// Pending returns the identifiers of discovered change-sets that have no
// ledger entry, in ascending order.  Read-only apart from the idempotent
// ledger-ensure step.
func (r *Runner) Pending(ctx context.Context) ([]string, error) {
	pending, err := r.pendingChangeSets(ctx)
	if err != nil {
		return nil, err
	}
	identifiers := make([]string, len(pending))
	for i, cs := range pending {
		identifiers[i] = cs.Identifier
	}
	return identifiers, nil
}

func (r *Runner) pendingChangeSets(ctx context.Context) ([]ChangeSet, error) {
	// Discovery errors abort before the database is touched at all.
	changeSets, err := r.ChangeSets()
	if err != nil {
		return nil, err
	}
	if err := r.client.EnsureLedger(ctx); err != nil {
		return nil, err
	}
	entries, err := r.client.AppliedEntries(ctx)
	if err != nil {
		return nil, err
	}
	applied := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		applied[e.Identifier] = struct{}{}
	}
	var pending []ChangeSet
	for _, cs := range changeSets {
		if _, ok := applied[cs.Identifier]; !ok {
			pending = append(pending, cs)
		}
	}
	return pending, nil
}

// Apply executes every pending change-set's forward script in ascending
// identifier order and records each success in the ledger.
//
// The forward script and the ledger insert are separate statements; no
// transaction spans them or the scripts themselves.  On failure the run
// stops, no ledger entry is written for the failing change-set, and
// change-sets applied earlier in the same run stay applied.  The partial
// results are returned alongside the error.
func (r *Runner) Apply(ctx context.Context) ([]ApplyResult, error) {
	pending, err := r.pendingChangeSets(ctx)
	if err != nil {
		return nil, err
	}
	return r.runForward(ctx, pending)
}

func (r *Runner) runForward(ctx context.Context, pending []ChangeSet) ([]ApplyResult, error) {
	var applied []ApplyResult
	for _, cs := range pending {
		start := time.Now()
		if err := r.client.RunScript(ctx, cs.Forward); err != nil {
			return applied, newScriptError(cs.Identifier, err)
		}
		elapsed := time.Since(start)
		entry := LedgerEntry{
			Identifier: cs.Identifier,
			DurationMs: elapsed.Milliseconds(),
			Checksum:   cs.Checksum,
		}
		if err := r.client.InsertEntry(ctx, entry); err != nil {
			return applied, newScriptError(cs.Identifier, err)
		}
		applied = append(applied, ApplyResult{Identifier: cs.Identifier, Duration: elapsed})
	}
	return applied, nil
}

// Rollback reverts the most recently applied change-set by executing its
// backward script and deleting its ledger entry.  Only one change-set is
// reverted per invocation.
//
// A nil result with a nil error means the ledger was empty: there was
// nothing to roll back, which is a no-op success, not an error.  If the
// backward script fails, the ledger entry is kept — the forward effect
// was presumably not undone.
func (r *Runner) Rollback(ctx context.Context) (*ApplyResult, error) {
	if err := r.client.EnsureLedger(ctx); err != nil {
		return nil, err
	}
	last, err := r.client.LastApplied(ctx)
	if err != nil {
		return nil, err
	}
	if last == "" {
		return nil, nil
	}
	changeSets, err := r.ChangeSets()
	if err != nil {
		return nil, err
	}
	var target *ChangeSet
	for i := range changeSets {
		if changeSets[i].Identifier == last {
			target = &changeSets[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("change-set file not found for applied identifier %s", last)
	}
	if !target.HasBackward() {
		return nil, fmt.Errorf("change-set %s has no backward section", last)
	}
	start := time.Now()
	if err := r.client.RunScript(ctx, target.Backward); err != nil {
		return nil, newScriptError(last, err)
	}
	if err := r.client.DeleteEntry(ctx, last); err != nil {
		return nil, newScriptError(last, err)
	}
	return &ApplyResult{Identifier: last, Duration: time.Since(start)}, nil
}

// Fresh drops every table in the database and re-applies the full
// change-set sequence from an empty ledger.
//
// The confirm token must equal the configured database name; anything
// else returns ErrConfirmationMismatch before any drop happens.  The
// mismatch check is deliberately a value match rather than a yes/no so
// an invocation pointed at the wrong environment fails loudly.
func (r *Runner) Fresh(ctx context.Context, confirm string) ([]ApplyResult, error) {
	if confirm != r.cfg.Database {
		return nil, fmt.Errorf("%w: got %q, want the database name", ErrConfirmationMismatch, confirm)
	}
	// Validate discovery before dropping anything: a malformed change-set
	// must not leave the database swept and empty.
	if _, err := r.ChangeSets(); err != nil {
		return nil, err
	}
	if err := r.client.DropAll(ctx); err != nil {
		return nil, err
	}
	return r.Apply(ctx)
}
