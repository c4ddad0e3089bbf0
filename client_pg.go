package sapi

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresClient implements Client for PostgreSQL and embeds BaseClient.
type PostgresClient struct {
	BaseClient
}

// NewPostgresClient creates a new PostgresClient.
func NewPostgresClient(cfg Config, db *sql.DB) *PostgresClient {
	return &PostgresClient{
		BaseClient: BaseClient{
			Config: cfg,
			DB:     db,
		},
	}
}

// ledgerColumns lists the columns of the ledger table, or nothing when
// the table does not exist.
func (c *PostgresClient) ledgerColumns(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT column_name FROM information_schema.columns WHERE table_schema = 'public' AND table_name = '%s';`, c.ledgerTable())
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
// column to ledgers created before drift detection existed.
func (c *PostgresClient) EnsureLedger(ctx context.Context) error {
	columns, err := c.ledgerColumns(ctx)
	if err != nil {
		return err
	}
	var queries []string
	if len(columns) == 0 {
		queries = append(queries, fmt.Sprintf(`
          CREATE TABLE %s (
            identifier VARCHAR(255) PRIMARY KEY,
            applied_at TIMESTAMP NOT NULL DEFAULT NOW(),
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

// DropAll drops every table in the public schema, cascading to dependent
// objects.  The sweep runs server-side so a single statement covers all
// tables regardless of dependency order.
func (c *PostgresClient) DropAll(ctx context.Context) error {
	_, err := c.DB.ExecContext(ctx, `
      DO $$ DECLARE
          r RECORD;
      BEGIN
          FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
              EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
          END LOOP;
      END $$;`)
	return err
}
