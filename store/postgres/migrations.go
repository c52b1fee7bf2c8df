package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the hookline store. It can be
// registered with a grove-managed application for orchestrated migration
// management (locking, version tracking, rollback support).
var Migrations = migrate.NewGroup("hookline")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_hookline_subscriptions",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hookline_subscriptions (
    id                TEXT PRIMARY KEY,
    owner_id          TEXT NOT NULL DEFAULT '',
    url               TEXT NOT NULL DEFAULT '',
    description       TEXT NOT NULL DEFAULT '',
    secret            TEXT NOT NULL DEFAULT '',
    event_types       TEXT[] NOT NULL DEFAULT '{}',
    active            BOOLEAN NOT NULL DEFAULT TRUE,
    secret_rotated_at TIMESTAMPTZ,
    last_delivery_at  TIMESTAMPTZ,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_hookline_subscriptions_owner ON hookline_subscriptions (owner_id);
CREATE INDEX IF NOT EXISTS idx_hookline_subscriptions_active ON hookline_subscriptions (active) WHERE active;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS hookline_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_hookline_events",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hookline_events (
    id          TEXT PRIMARY KEY,
    event_key   TEXT NOT NULL,
    type        TEXT NOT NULL DEFAULT '',
    occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    payload     JSONB,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_hookline_events_key ON hookline_events (event_key);
CREATE INDEX IF NOT EXISTS idx_hookline_events_type ON hookline_events (type);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS hookline_events`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_hookline_deliveries",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hookline_deliveries (
    id               TEXT PRIMARY KEY,
    subscription_id  TEXT NOT NULL,
    event_id         TEXT NOT NULL,
    event_key        TEXT NOT NULL,
    event_type       TEXT NOT NULL DEFAULT '',
    payload          JSONB,
    state            TEXT NOT NULL DEFAULT 'pending',
    attempt_count    INT NOT NULL DEFAULT 0,
    max_attempts     INT NOT NULL DEFAULT 0,
    next_attempt_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_status_code INT NOT NULL DEFAULT 0,
    last_error       TEXT NOT NULL DEFAULT '',
    last_response    TEXT NOT NULL DEFAULT '',
    last_latency_ms  INT NOT NULL DEFAULT 0,
    claimed_at       TIMESTAMPTZ,
    completed_at     TIMESTAMPTZ,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_hookline_deliveries_dedup ON hookline_deliveries (subscription_id, event_key);
CREATE INDEX IF NOT EXISTS idx_hookline_deliveries_due ON hookline_deliveries (next_attempt_at) WHERE state = 'pending';
CREATE INDEX IF NOT EXISTS idx_hookline_deliveries_claimed ON hookline_deliveries (claimed_at) WHERE state = 'delivering';
CREATE INDEX IF NOT EXISTS idx_hookline_deliveries_subscription ON hookline_deliveries (subscription_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS hookline_deliveries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_hookline_audit",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS hookline_audit (
    id              TEXT PRIMARY KEY,
    subscription_id TEXT NOT NULL DEFAULT '',
    delivery_id     TEXT NOT NULL DEFAULT '',
    event_type      TEXT NOT NULL DEFAULT '',
    kind            TEXT NOT NULL DEFAULT '',
    status_code     INT NOT NULL DEFAULT 0,
    attempt         INT NOT NULL DEFAULT 0,
    detail          TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_hookline_audit_subscription ON hookline_audit (subscription_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_hookline_audit_delivery ON hookline_audit (delivery_id) WHERE delivery_id != '';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS hookline_audit`)
				return err
			},
		},
	)
}
