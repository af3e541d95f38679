package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const stateRowID = 1

const schemaSQL = `CREATE TABLE IF NOT EXISTS bridge_state (
	id         integer PRIMARY KEY,
	payload    jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`

// PostgresPersister keeps the binding document in a single jsonb row.
type PostgresPersister struct {
	Pool *pgxpool.Pool
}

func NewPostgresPersister(ctx context.Context, dsn string) (*PostgresPersister, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresPersister{Pool: pool}, nil
}

func (p *PostgresPersister) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

func (p *PostgresPersister) EnsureSchema(ctx context.Context) error {
	_, err := p.Pool.Exec(ctx, schemaSQL)
	return err
}

func (p *PostgresPersister) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.Pool.Ping(ctx)
}

func (p *PostgresPersister) Read(ctx context.Context) ([]byte, error) {
	var payload string
	err := p.Pool.QueryRow(ctx, `SELECT payload::text FROM bridge_state WHERE id = $1`, stateRowID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, err
	}
	return []byte(payload), nil
}

func (p *PostgresPersister) Write(ctx context.Context, data []byte) error {
	tx, err := p.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO bridge_state (id, payload, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		stateRowID, string(data)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
