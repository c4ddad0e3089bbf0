package sapi

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// NewClient creates a new Client based on the provided configuration and
// database connection.
func NewClient(cfg Config, db *sql.DB) (Client, error) {
	switch strings.ToLower(cfg.Driver) {
	case "pg":
		return NewPostgresClient(cfg, db), nil
	case "sqlite3":
		return NewSqlite3Client(cfg, db), nil
	default:
		return nil, fmt.Errorf("db driver '%s' not supported. Must be one of: sqlite3 or pg", cfg.Driver)
	}
}

// Client defines the dialect-specific operations the runner needs.
type Client interface {
	// RunQuery executes a query and returns its rows.
	RunQuery(ctx context.Context, query string) (*sql.Rows, error)

	// RunExec executes a statement and returns its result.
	RunExec(ctx context.Context, stmt string) (sql.Result, error)

	// RunScript executes a change-set script.  No transaction is opened
	// around it; scripts that need atomicity carry their own demarcation.
	RunScript(ctx context.Context, script string) error

	// EnsureLedger creates the ledger table if it does not exist and
	// backfills columns missing from older ledgers.  Idempotent.
	EnsureLedger(ctx context.Context) error

	// AppliedEntries returns all ledger rows sorted ascending by identifier.
	AppliedEntries(ctx context.Context) ([]LedgerEntry, error)

	// LastApplied returns the greatest applied identifier, or "" when the
	// ledger is empty.
	LastApplied(ctx context.Context) (string, error)

	// InsertEntry records a change-set as applied.
	InsertEntry(ctx context.Context, e LedgerEntry) error

	// DeleteEntry removes a change-set's ledger row.
	DeleteEntry(ctx context.Context, identifier string) error

	// DropAll drops every table in the target database, the ledger
	// included.  Used only by the fresh path.
	DropAll(ctx context.Context) error
}

// LedgerEntry is one row of the ledger table: the record that a given
// change-set has been applied.
type LedgerEntry struct {
	Identifier string
	AppliedAt  time.Time
	DurationMs int64
	Checksum   string
}

// BaseClient provides the dialect-independent implementation shared by
// the concrete clients.
type BaseClient struct {
	Config Config
	DB     *sql.DB
}

// ledgerTable returns the configured ledger table name.
func (c *BaseClient) ledgerTable() string {
	return c.Config.LedgerTable
}

// RunQuery executes a query.
func (c *BaseClient) RunQuery(ctx context.Context, query string) (*sql.Rows, error) {
	return c.DB.QueryContext(ctx, query)
}

// RunExec executes a statement.
func (c *BaseClient) RunExec(ctx context.Context, stmt string) (sql.Result, error) {
	return c.DB.ExecContext(ctx, stmt)
}

// RunScript executes a change-set script.
func (c *BaseClient) RunScript(ctx context.Context, script string) error {
	_, err := c.DB.ExecContext(ctx, script)
	return err
}

// AppliedEntries returns all ledger rows sorted ascending by identifier.
func (c *BaseClient) AppliedEntries(ctx context.Context) ([]LedgerEntry, error) {
	query := fmt.Sprintf(`
      SELECT identifier, applied_at, duration_ms, checksum
      FROM %s
      ORDER BY identifier;`, c.ledgerTable())
	rows, err := c.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var sum sql.NullString
		if err := rows.Scan(&e.Identifier, &e.AppliedAt, &e.DurationMs, &sum); err != nil {
			return nil, err
		}
		e.Checksum = sum.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LastApplied returns the greatest applied identifier, or "" when the
// ledger is empty.  Rows are only ever appended in ascending identifier
// order, so the greatest identifier is also the most recently applied.
func (c *BaseClient) LastApplied(ctx context.Context) (string, error) {
	query := fmt.Sprintf(`
      SELECT identifier
      FROM %s
      ORDER BY identifier DESC
      LIMIT 1;`, c.ledgerTable())
	var identifier string
	err := c.DB.QueryRowContext(ctx, query).Scan(&identifier)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return identifier, nil
}

// InsertEntry records a change-set as applied.  Identifiers are validated
// against identifierPattern at discovery time and checksums are hex, so
// literal interpolation is safe here.
func (c *BaseClient) InsertEntry(ctx context.Context, e LedgerEntry) error {
	stmt := fmt.Sprintf(`
      INSERT INTO %s (identifier, duration_ms, checksum)
      VALUES ('%s', %d, '%s');`, c.ledgerTable(), e.Identifier, e.DurationMs, e.Checksum)
	_, err := c.DB.ExecContext(ctx, stmt)
	return err
}

// DeleteEntry removes a change-set's ledger row.
func (c *BaseClient) DeleteEntry(ctx context.Context, identifier string) error {
	stmt := fmt.Sprintf(`
      DELETE FROM %s
      WHERE identifier = '%s';`, c.ledgerTable(), identifier)
	_, err := c.DB.ExecContext(ctx, stmt)
	return err
}

// Helper to check for a column name (case insensitive).
func hasColumn(columns []string, name string) bool {
	for _, col := range columns {
		if strings.EqualFold(col, name) {
			return true
		}
	}
	return false
}
