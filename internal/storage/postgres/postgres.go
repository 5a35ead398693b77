package postgres

import (
	"context"
	"fmt"

	"github.com/FranksOps/leadfinder/internal/lead"
	"github.com/FranksOps/leadfinder/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool  *pgxpool.Pool
	table string
}

const schema = `
CREATE TABLE IF NOT EXISTS %s (
	position BIGINT PRIMARY KEY,
	business_name TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL,
	email TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT ''
);
`

// New creates a new Postgres-backed storage.Backend writing to the leads table.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	return NewWithTable(ctx, dsn, "leads")
}

// NewWithTable is New with an explicit table name.
func NewWithTable(ctx context.Context, dsn, table string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &postgresBackend{pool: pool, table: table}, nil
}

func (b *postgresBackend) ident() string {
	return pgx.Identifier{b.table}.Sanitize()
}

func (b *postgresBackend) Load(ctx context.Context) ([]lead.Lead, error) {
	var exists bool
	if err := b.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, b.table).Scan(&exists); err != nil {
		return nil, fmt.Errorf("postgres: check table: %w", err)
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	rows, err := b.pool.Query(ctx, fmt.Sprintf(
		`SELECT business_name, url, email, description, source FROM %s ORDER BY position ASC`, b.ident()))
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}
	defer rows.Close()

	leads := []lead.Lead{}
	for rows.Next() {
		var l lead.Lead
		var source string
		if err := rows.Scan(&l.BusinessName, &l.URL, &l.Email, &l.Description, &source); err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}
		l.Source = lead.Source(source)
		leads = append(leads, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows: %w", err)
	}

	return leads, nil
}

func (b *postgresBackend) Replace(ctx context.Context, leads []lead.Lead) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf(schema, b.ident())); err != nil {
		return fmt.Errorf("postgres: schema: %w", err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, b.ident())); err != nil {
		return fmt.Errorf("postgres: truncate: %w", err)
	}

	if len(leads) > 0 {
		rows := make([][]any, 0, len(leads))
		for i, l := range leads {
			rows = append(rows, []any{int64(i + 1), l.BusinessName, l.URL, l.Email, l.Description, string(l.Source)})
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{b.table},
			[]string{"position", "business_name", "url", "email", "description", "source"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("postgres: copy: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
