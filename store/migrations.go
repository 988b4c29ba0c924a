package store

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
)

// migration is a versioned schema change.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations returns all schema migrations in order.
func migrations() []migration {
	return []migration{
		{
			Version: 1,
			Name:    "create_distance_matrices_table",
			SQL: `
				CREATE TABLE IF NOT EXISTS distance_matrices (
					id TEXT PRIMARY KEY,
					metric TEXT NOT NULL,
					size INTEGER NOT NULL,
					params TEXT NOT NULL DEFAULT '',
					data BLOB NOT NULL,
					created_at DATETIME NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_distance_matrices_metric ON distance_matrices (metric);
				CREATE INDEX IF NOT EXISTS idx_distance_matrices_created_at ON distance_matrices (created_at);
			`,
		},
		{
			Version: 2,
			Name:    "add_labels",
			SQL: `
				ALTER TABLE distance_matrices ADD COLUMN labels TEXT NOT NULL DEFAULT '';
			`,
		},
	}
}

// migrate brings the schema up to the latest version.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		return errors.Wrap(err, "create migrations table")
	}

	var current int
	if err := db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return errors.Wrap(err, "read schema version")
	}

	for _, m := range migrations() {
		if m.Version <= current {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return errors.Wrapf(err, "migration %d (%s)", m.Version, m.Name)
		}
	}
	return nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		m.Version, m.Name,
	); err != nil {
		return err
	}
	return tx.Commit()
}
