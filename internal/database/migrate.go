package database

import (
	"context"
	"fmt"
)

// schema holds the DDL applied at startup. Statements are idempotent so the
// server can run them on every boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		provider_id TEXT UNIQUE,
		name TEXT,
		email_verified BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		type TEXT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_user_start ON tasks (user_id, start_time)`,
	`CREATE TABLE IF NOT EXISTS pomodoro_sessions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		task_name TEXT NOT NULL DEFAULT '',
		mode TEXT NOT NULL,
		duration INTEGER NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT false,
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_started ON pomodoro_sessions (started_at)`,
	`CREATE TABLE IF NOT EXISTS daily_stats (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		focus_time INTEGER NOT NULL DEFAULT 0,
		pomodoro_sessions INTEGER NOT NULL DEFAULT 0,
		tasks_completed INTEGER NOT NULL DEFAULT 0,
		efficiency_score INTEGER NOT NULL DEFAULT 0,
		points INTEGER NOT NULL DEFAULT 0,
		level INTEGER NOT NULL DEFAULT 1,
		streak INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS activity_events (
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		event_id UUID NOT NULL,
		date TIMESTAMPTZ NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, event_id)
	)`,
	`CREATE TABLE IF NOT EXISTS plans (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		goal TEXT NOT NULL,
		plan_type TEXT NOT NULL,
		timeline TEXT NOT NULL,
		details TEXT NOT NULL DEFAULT '',
		deadline TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		content JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS oidc_config (
		id UUID PRIMARY KEY,
		provider TEXT NOT NULL UNIQUE,
		issuer TEXT NOT NULL,
		domain TEXT,
		client_id TEXT NOT NULL,
		client_secret TEXT,
		redirect_uri TEXT NOT NULL,
		jwks_url TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cors_config (
		config_key TEXT PRIMARY KEY,
		allowed_origins TEXT NOT NULL,
		allow_credentials BOOLEAN NOT NULL DEFAULT false,
		max_age INTEGER NOT NULL DEFAULT 300,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ratelimit_config (
		config_key TEXT PRIMARY KEY,
		rate TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate applies the schema. Safe to call repeatedly.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
