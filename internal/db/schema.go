package db

import (
	"context"
	"fmt"
)

// InitSchema creates the tables if they don't exist. The entitlement
// flags are TEXT on purpose: records imported from the legacy store
// carry "true"/"false" strings, and the scan layer normalizes them.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL DEFAULT '',
			photo_url TEXT NOT NULL DEFAULT '',
			token_count INT NOT NULL DEFAULT 100 CHECK (token_count >= 0),
			is_premium TEXT NOT NULL DEFAULT '',
			is_pro TEXT NOT NULL DEFAULT '',
			pro_subscription_end TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_login_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS users_email_idx ON users (email)`,
		`CREATE TABLE IF NOT EXISTS book_subscriptions (
			email TEXT NOT NULL,
			book_id TEXT NOT NULL,
			book_title TEXT NOT NULL,
			voice TEXT NOT NULL,
			delivery_type TEXT NOT NULL,
			frequency TEXT NOT NULL,
			subscribed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_sent_at TIMESTAMPTZ,
			PRIMARY KEY (email, book_id)
		)`,
		`CREATE INDEX IF NOT EXISTS book_subscriptions_frequency_idx ON book_subscriptions (frequency)`,
		`CREATE TABLE IF NOT EXISTS audio_progress (
			user_id TEXT NOT NULL,
			book_id TEXT NOT NULL,
			chapter_id INT NOT NULL,
			verse_id INT NOT NULL DEFAULT 0,
			voice TEXT NOT NULL,
			status TEXT NOT NULL,
			progress DOUBLE PRECISION NOT NULL,
			current_time_secs DOUBLE PRECISION NOT NULL,
			total_duration_secs DOUBLE PRECISION NOT NULL,
			last_played_at TEXT NOT NULL,
			PRIMARY KEY (user_id, book_id, chapter_id, verse_id, voice)
		)`,
		`CREATE TABLE IF NOT EXISTS book_progress (
			user_id TEXT NOT NULL,
			book_id TEXT NOT NULL,
			total_chapters INT NOT NULL,
			completed_chapters INT NOT NULL,
			in_progress_chapters INT NOT NULL,
			overall_progress DOUBLE PRECISION NOT NULL,
			last_updated TEXT NOT NULL,
			PRIMARY KEY (user_id, book_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}

	return nil
}
