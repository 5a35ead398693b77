package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FranksOps/leadfinder/internal/lead"
	"github.com/FranksOps/leadfinder/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

// The table is created on first Replace so that a fresh database loads as
// storage.ErrNotFound, the same as a missing CSV file.
const schema = `
CREATE TABLE IF NOT EXISTS leads (
	position INTEGER PRIMARY KEY,
	business_name TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL,
	email TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT ''
);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// sqlite wants a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Load(ctx context.Context) ([]lead.Lead, error) {
	var name string
	err := b.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'leads'`).Scan(&name)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: check table: %w", err)
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT business_name, url, email, description, source FROM leads ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()

	leads := []lead.Lead{}
	for rows.Next() {
		var l lead.Lead
		var source string
		if err := rows.Scan(&l.BusinessName, &l.URL, &l.Email, &l.Description, &source); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		l.Source = lead.Source(source)
		leads = append(leads, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}

	return leads, nil
}

func (b *sqliteBackend) Replace(ctx context.Context, leads []lead.Lead) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM leads`); err != nil {
		return fmt.Errorf("sqlite: truncate: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO leads (position, business_name, url, email, description, source)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer stmt.Close()

	for i, l := range leads {
		if _, err := stmt.ExecContext(ctx, i+1, l.BusinessName, l.URL, l.Email, l.Description, string(l.Source)); err != nil {
			return fmt.Errorf("sqlite: insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
