package sapi

import (
	"context"
	"database/sql"
	"fmt"
)

// Sqlite3Client implements Client for SQLite and embeds BaseClient.
type Sqlite3Client struct {
	BaseClient
}

// NewSqlite3Client creates a new Sqlite3Client.
func NewSqlite3Client(cfg Config, db *sql.DB) *Sqlite3Client {
	return &Sqlite3Client{
		BaseClient: BaseClient{
			Config: cfg,
			DB:     db,
		},
	}
}

// ledgerColumns lists the columns of the ledger table, or nothing when
// the table does not exist.
func (c *Sqlite3Client) ledgerColumns(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT name FROM pragma_table_info('%s');`, c.ledgerTable())
	rows, err := c.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// EnsureLedger creates the ledger table if needed and adds the checksum
// column to ledgers created before drift detection existed.  The
// applied_at column is declared TIMESTAMP so the driver scans it into
// time.Time.
func (c *Sqlite3Client) EnsureLedger(ctx context.Context) error {
	columns, err := c.ledgerColumns(ctx)
	if err != nil {
		return err
	}
	var queries []string
	if len(columns) == 0 {
		queries = append(queries, fmt.Sprintf(`
          CREATE TABLE %s (
            identifier TEXT PRIMARY KEY,
            applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            duration_ms INTEGER NOT NULL,
            checksum TEXT
          );`, c.ledgerTable()))
	} else if !hasColumn(columns, "checksum") {
		queries = append(queries, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN checksum TEXT;`, c.ledgerTable()))
	}
	for _, q := range queries {
		if _, err := c.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// DropAll drops every user table listed in sqlite_master.  Internal
// sqlite_* tables are left alone.
func (c *Sqlite3Client) DropAll(ctx context.Context) error {
	rows, err := c.DB.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%';`)
	if err != nil {
		return err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, table := range tables {
		if _, err := c.DB.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s";`, table)); err != nil {
			return err
		}
	}
	return nil
}
