package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS messages (
	seq         BIGSERIAL PRIMARY KEY,
	channel_id  TEXT NOT NULL,
	message_id  TEXT NOT NULL,
	author_name TEXT NOT NULL DEFAULT '',
	text        TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	attachments JSONB NOT NULL DEFAULT '[]'::jsonb,
	UNIQUE (channel_id, message_id)
);

CREATE INDEX IF NOT EXISTS idx_messages_channel_created
	ON messages (channel_id, created_at DESC, seq DESC);

CREATE TABLE IF NOT EXISTS tasks (
	id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	channel_id    TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	assignee_name TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'todo' CHECK (status IN ('todo', 'in-progress', 'done')),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	due_date      TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_tasks_channel ON tasks (channel_id);

CREATE TABLE IF NOT EXISTS docs (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	source     TEXT NOT NULL DEFAULT 'local' CHECK (source IN ('google-drive', 'notion', 'local', 'github')),
	title      TEXT NOT NULL,
	content    TEXT NOT NULL DEFAULT '',
	excerpt    TEXT NOT NULL DEFAULT '',
	url        TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// RunMigrations creates the PostgreSQL schema if it does not exist yet.
func RunMigrations(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, postgresSchema)
	return err
}
