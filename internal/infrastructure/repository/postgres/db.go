package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schemaLockID int64 = 2026101501

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS contracts (
	id TEXT PRIMARY KEY,
	contract_name TEXT NOT NULL,
	file_url TEXT NOT NULL,
	document_type TEXT NOT NULL,
	reading_style TEXT NOT NULL,
	status TEXT NOT NULL,
	analysis_data JSONB,
	created_by TEXT NOT NULL,
	created_date TIMESTAMPTZ NOT NULL,
	updated_date TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contracts_owner_created ON contracts(created_by, created_date DESC);
CREATE INDEX IF NOT EXISTS idx_contracts_owner_status ON contracts(created_by, status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
