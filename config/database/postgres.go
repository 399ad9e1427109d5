package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ordersSchema = `
CREATE TABLE IF NOT EXISTS orders (
	id                BIGSERIAL PRIMARY KEY,
	call_id           TEXT NOT NULL UNIQUE,
	restaurant_id     TEXT NOT NULL,
	customer_phone    TEXT NOT NULL DEFAULT '',
	language          TEXT NOT NULL,
	items             JSONB NOT NULL,
	subtotal_cents    BIGINT NOT NULL,
	tax_cents         BIGINT NOT NULL,
	total_cents       BIGINT NOT NULL,
	settlement_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
	exchange_rate     DOUBLE PRECISION NOT NULL DEFAULT 0,
	payment_status    TEXT NOT NULL,
	payment_url       TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS orders_restaurant_created_idx ON orders (restaurant_id, created_at DESC);
`

// NewPostgresPool connects to the order ledger and makes sure its schema exists.
func NewPostgresPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, ordersSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to migrate orders schema: %w", err)
	}
	return pool, nil
}
