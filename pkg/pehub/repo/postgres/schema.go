package postgres

import (
	"context"
	"fmt"
)

// Schema creates the relations used by the repository. Statements are
// idempotent so Migrate can run on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id          UUID PRIMARY KEY,
	email       TEXT NOT NULL DEFAULT '',
	full_name   TEXT NOT NULL DEFAULT '',
	username    TEXT NOT NULL DEFAULT '',
	avatar_url  TEXT NOT NULL DEFAULT '',
	role        TEXT NOT NULL DEFAULT 'user',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS profiles_email_key ON profiles (lower(email)) WHERE email <> '';

CREATE TABLE IF NOT EXISTS content (
	id           UUID PRIMARY KEY,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL,
	type         TEXT NOT NULL,
	stage_id     TEXT NOT NULL,
	category_id  TEXT NOT NULL,
	created_by   UUID NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS content_browse_idx ON content (stage_id, category_id, type, created_at DESC);

CREATE TABLE IF NOT EXISTS content_requests (
	id           UUID PRIMARY KEY,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL DEFAULT '',
	type         TEXT NOT NULL,
	stage_id     TEXT NOT NULL,
	category_id  TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
	user_id      UUID NOT NULL,
	admin_id     UUID,
	content_id   UUID,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
ALTER TABLE content_requests ADD COLUMN IF NOT EXISTS content_id UUID;
CREATE INDEX IF NOT EXISTS content_requests_status_idx ON content_requests (status, created_at DESC);

CREATE TABLE IF NOT EXISTS messages (
	id            UUID PRIMARY KEY,
	sender_name   TEXT NOT NULL,
	sender_email  TEXT NOT NULL,
	subject       TEXT NOT NULL DEFAULT '',
	message       TEXT NOT NULL,
	is_read       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS notifications (
	id          UUID PRIMARY KEY,
	user_id     UUID NOT NULL,
	title       TEXT NOT NULL,
	message     TEXT NOT NULL,
	type        TEXT NOT NULL,
	is_read     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS notifications_user_idx ON notifications (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS chats (
	id          UUID PRIMARY KEY,
	user_id     UUID NOT NULL,
	status      TEXT NOT NULL DEFAULT 'open',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id          UUID PRIMARY KEY,
	chat_id     UUID NOT NULL REFERENCES chats (id) ON DELETE CASCADE,
	sender_id   UUID NOT NULL,
	message     TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS chat_messages_chat_idx ON chat_messages (chat_id, created_at);

CREATE TABLE IF NOT EXISTS events (
	id          UUID PRIMARY KEY,
	title       TEXT NOT NULL,
	type        TEXT NOT NULL,
	"date"      TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
