package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateOrdersTables, downCreateOrdersTables)
}

func upCreateOrdersTables(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE orders (
	  id UUID PRIMARY KEY,
	  name TEXT NOT NULL,
	  phone TEXT NOT NULL,
	  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);

	CREATE TABLE order_items (
	  order_id UUID NOT NULL REFERENCES orders(id),
	  lesson_id UUID NOT NULL,
	  quantity INT NOT NULL CHECK (quantity > 0),
	  PRIMARY KEY (order_id, lesson_id)
	);
	`

	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateOrdersTables(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS order_items; DROP TABLE IF EXISTS orders;`)
	return err
}
