package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront-cart/internal/db"
	"storefront-cart/internal/domain"
)

// Postgres stores values in the widget_storage table created by the migrations.
type Postgres struct {
	pool  *pgxpool.Pool
	owned bool
}

// OpenPostgres connects a dedicated pool.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Postgres{pool: pool, owned: true}, nil
}

// NewPostgres wraps a pool owned by the caller.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := p.pool.QueryRow(ctx, `SELECT value FROM widget_storage WHERE key = $1`, key).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return v, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	const q = `
INSERT INTO widget_storage (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
`
	_, err := p.pool.Exec(ctx, q, key, value)
	return err
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM widget_storage WHERE key = $1`, key)
	return err
}

func (p *Postgres) Close() error {
	if p.owned {
		p.pool.Close()
	}
	return nil
}
