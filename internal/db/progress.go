package db

import (
	"context"
	"fmt"

	"github.com/asmrbible/backend/internal/tracking"
)

// The progress tables are the remote mirror behind the cache: writes
// arrive best-effort from the tracker, reads serve a signed-in user's
// history when they land on a fresh device.

// verse_id 0 marks a chapter-level record; verses are 1-based.
func verseColumn(key tracking.ProgressKey) int {
	if key.VerseID == nil {
		return 0
	}
	return *key.VerseID
}

// SaveProgress upserts one progress record by its full key.
func (s *PostgresStore) SaveProgress(ctx context.Context, userID string, rec *tracking.AudioProgress) error {
	query := `
		INSERT INTO audio_progress (
			user_id, book_id, chapter_id, verse_id, voice,
			status, progress, current_time_secs, total_duration_secs, last_played_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, book_id, chapter_id, verse_id, voice) DO UPDATE SET
			status = EXCLUDED.status,
			progress = EXCLUDED.progress,
			current_time_secs = EXCLUDED.current_time_secs,
			total_duration_secs = EXCLUDED.total_duration_secs,
			last_played_at = EXCLUDED.last_played_at
	`

	_, err := s.db.Exec(ctx, query,
		userID,
		rec.BookID,
		rec.ChapterID,
		verseColumn(rec.ProgressKey),
		rec.Voice,
		rec.Status,
		rec.Progress,
		rec.CurrentTime,
		rec.TotalDuration,
		rec.LastPlayedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}

	return nil
}

// SaveBookProgress upserts the derived aggregate for a book.
func (s *PostgresStore) SaveBookProgress(ctx context.Context, userID string, bp *tracking.BookProgress) error {
	query := `
		INSERT INTO book_progress (
			user_id, book_id, total_chapters, completed_chapters,
			in_progress_chapters, overall_progress, last_updated
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, book_id) DO UPDATE SET
			total_chapters = EXCLUDED.total_chapters,
			completed_chapters = EXCLUDED.completed_chapters,
			in_progress_chapters = EXCLUDED.in_progress_chapters,
			overall_progress = EXCLUDED.overall_progress,
			last_updated = EXCLUDED.last_updated
	`

	_, err := s.db.Exec(ctx, query,
		userID,
		bp.BookID,
		bp.TotalChapters,
		bp.CompletedChapters,
		bp.InProgressChapters,
		bp.OverallProgress,
		bp.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to save book progress: %w", err)
	}

	return nil
}

// ListUserProgress returns every mirrored record for a user.
func (s *PostgresStore) ListUserProgress(ctx context.Context, userID string) ([]*tracking.AudioProgress, error) {
	query := `
		SELECT book_id, chapter_id, verse_id, voice,
			status, progress, current_time_secs, total_duration_secs, last_played_at
		FROM audio_progress
		WHERE user_id = $1
		ORDER BY last_played_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	records := []*tracking.AudioProgress{}
	for rows.Next() {
		rec := &tracking.AudioProgress{}
		var verseID int
		err := rows.Scan(
			&rec.BookID,
			&rec.ChapterID,
			&verseID,
			&rec.Voice,
			&rec.Status,
			&rec.Progress,
			&rec.CurrentTime,
			&rec.TotalDuration,
			&rec.LastPlayedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		if verseID != 0 {
			rec.VerseID = &verseID
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating progress: %w", err)
	}

	return records, nil
}
