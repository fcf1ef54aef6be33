package postgres

import (
	"context"
	"fmt"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Catalog and identity tables are owned by other services and replicated
// here; the core writes only product_infos.quantity and shops.state.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		email      TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS shops (
		id      TEXT PRIMARY KEY,
		name    TEXT NOT NULL,
		user_id TEXT REFERENCES users(id) ON DELETE SET NULL,
		state   BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS product_infos (
		id              TEXT PRIMARY KEY,
		product_id      TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		shop_id         TEXT NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
		model           TEXT NOT NULL DEFAULT '',
		external_id     TEXT NOT NULL DEFAULT '',
		quantity        NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		price           NUMERIC(10,2) NOT NULL,
		price_rrc       NUMERIC(10,2) NOT NULL,
		unit_of_measure TEXT NOT NULL DEFAULT 'pcs'
	)`,
	`CREATE INDEX IF NOT EXISTS product_infos_shop_idx ON product_infos(shop_id)`,
	`CREATE TABLE IF NOT EXISTS contacts (
		id        TEXT PRIMARY KEY,
		user_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		zipcode   TEXT NOT NULL DEFAULT '',
		city      TEXT NOT NULL DEFAULT '',
		street    TEXT NOT NULL DEFAULT '',
		building  TEXT NOT NULL DEFAULT '',
		apartment TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id                  TEXT PRIMARY KEY,
		seq                 BIGINT GENERATED ALWAYS AS IDENTITY,
		user_id             TEXT NOT NULL,
		status              TEXT NOT NULL,
		delivery_address_id TEXT REFERENCES contacts(id),
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS orders_user_status_idx ON orders(user_id, status)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS orders_one_basket_idx ON orders(user_id) WHERE status = 'basket'`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id              TEXT PRIMARY KEY,
		seq             BIGINT GENERATED ALWAYS AS IDENTITY,
		order_id        TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_info_id TEXT NOT NULL REFERENCES product_infos(id),
		quantity        NUMERIC(10,2) NOT NULL CHECK (quantity > 0),
		shop_confirmed  BOOLEAN NOT NULL DEFAULT FALSE,
		status          TEXT NOT NULL DEFAULT 'pending',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (order_id, product_info_id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_history (
		id         TEXT PRIMARY KEY,
		seq        BIGINT GENERATED ALWAYS AS IDENTITY,
		order_id   TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		action     TEXT NOT NULL,
		details    JSONB,
		user_id    TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS order_history_order_idx ON order_history(order_id, seq)`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
