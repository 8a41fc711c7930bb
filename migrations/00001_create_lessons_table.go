package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateLessonsTable, downCreateLessonsTable)
}

func upCreateLessonsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE lessons (
	  id UUID PRIMARY KEY,
	  subject TEXT NOT NULL,
	  location TEXT NOT NULL,
	  price NUMERIC NOT NULL CHECK (price >= 0),
	  space INT NOT NULL CHECK (space >= 0),
	  image TEXT NOT NULL DEFAULT ''
	);
	`

	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateLessonsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS lessons;`)
	return err
}
