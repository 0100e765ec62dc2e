package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the journal store.
var Migrations = migrate.NewGroup("subledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_subledger_journal",
			Version: "20260301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS subledger_journal (
    seq             BIGINT PRIMARY KEY,
    id              TEXT NOT NULL,
    action          TEXT NOT NULL,
    actor           TEXT NOT NULL DEFAULT '',
    provider        TEXT NOT NULL DEFAULT '',
    subscriber      TEXT NOT NULL DEFAULT '',
    subscription_id BIGINT NOT NULL DEFAULT 0,
    token_id        BIGINT NOT NULL DEFAULT 0,
    occurred_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    payload         JSONB NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_subledger_journal_id ON subledger_journal (id);
CREATE INDEX IF NOT EXISTS idx_subledger_journal_action ON subledger_journal (action, seq);
CREATE INDEX IF NOT EXISTS idx_subledger_journal_actor ON subledger_journal (actor, seq);
CREATE INDEX IF NOT EXISTS idx_subledger_journal_pair ON subledger_journal (provider, subscriber, seq);
CREATE INDEX IF NOT EXISTS idx_subledger_journal_subscriber ON subledger_journal (subscriber, seq);
CREATE INDEX IF NOT EXISTS idx_subledger_journal_subscription ON subledger_journal (subscription_id) WHERE subscription_id <> 0;
CREATE INDEX IF NOT EXISTS idx_subledger_journal_token ON subledger_journal (token_id) WHERE token_id <> 0;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS subledger_journal`)
				return err
			},
		},
	)
}
