package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Hold store (SQLite).
var Migrations = migrate.NewGroup("hold")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_hold_resources",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hold_resources (
    id                 TEXT PRIMARY KEY,
    sku                TEXT NOT NULL DEFAULT '',
    name               TEXT NOT NULL DEFAULT '',
    total_quantity     INTEGER NOT NULL DEFAULT 0,
    available_quantity INTEGER NOT NULL DEFAULT 0 CHECK (available_quantity >= 0),
    metadata           TEXT NOT NULL DEFAULT '{}',
    created_at         TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at         TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_hold_resources_sku ON hold_resources (sku);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS hold_resources`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_hold_claims",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hold_claims (
    id          TEXT PRIMARY KEY,
    resource_id TEXT NOT NULL DEFAULT '',
    quantity    INTEGER NOT NULL DEFAULT 0,
    status      TEXT NOT NULL DEFAULT 'pending',
    deadline    TEXT NOT NULL,
    resolved_at TEXT,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_hold_claims_resource ON hold_claims (resource_id);
CREATE INDEX IF NOT EXISTS idx_hold_claims_status ON hold_claims (status);
CREATE INDEX IF NOT EXISTS idx_hold_claims_sweep ON hold_claims (status, deadline);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS hold_claims`)
				return err
			},
		},
	)
}
