package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/asmrbible/backend/internal/bible"
)

// Cache is the authoritative progress store. Writes here are synchronous
// and their result is what the caller sees.
type Cache interface {
	GetProgress(ctx context.Context, userID string, key ProgressKey) (*AudioProgress, error)
	PutProgress(ctx context.Context, userID string, rec *AudioProgress) error
	ListBookProgress(ctx context.Context, userID, bookID string) ([]*AudioProgress, error)
	ListProgress(ctx context.Context, userID string) ([]*AudioProgress, error)
	GetBookProgress(ctx context.Context, userID, bookID string) (*BookProgress, error)
	PutBookProgress(ctx context.Context, userID string, bp *BookProgress) error
}

// Mirror is the best-effort remote copy. Mirror failures are logged and
// swallowed; they never block or fail the cache write.
type Mirror interface {
	SaveProgress(ctx context.Context, userID string, rec *AudioProgress) error
	SaveBookProgress(ctx context.Context, userID string, bp *BookProgress) error
}

// MirrorLister is the read side of a mirror. A mirror that implements
// it lets the tracker refill a flushed cache from the durable copy.
type MirrorLister interface {
	ListUserProgress(ctx context.Context, userID string) ([]*AudioProgress, error)
}

// Tracker applies playback telemetry to the cache and keeps the per-book
// aggregate in step. A nil mirror disables remote mirroring entirely
// (anonymous listeners).
type Tracker struct {
	cache  Cache
	mirror Mirror
	log    *log.Logger
	now    func() time.Time
}

func NewTracker(cache Cache, mirror Mirror, logger *log.Logger) *Tracker {
	return &Tracker{
		cache:  cache,
		mirror: mirror,
		log:    logger,
		now:    time.Now,
	}
}

// RecordPlayback folds one telemetry sample into the record: progress is
// currentTime/totalDuration clamped to 100, and status moves to
// in-progress unless the record is already completed.
func (t *Tracker) RecordPlayback(ctx context.Context, userID string, key ProgressKey, currentTime, totalDuration float64) (*AudioProgress, error) {
	if currentTime < 0 || totalDuration <= 0 {
		return nil, fmt.Errorf("invalid telemetry: currentTime=%v totalDuration=%v", currentTime, totalDuration)
	}

	existing, err := t.cache.GetProgress(ctx, userID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	progress := currentTime / totalDuration * 100
	if progress > 100 {
		progress = 100
	}

	// Completion is sticky: telemetry alone never downgrades it.
	status := StatusInProgress
	if existing != nil && existing.Status == StatusCompleted {
		status = StatusCompleted
	}

	rec := &AudioProgress{
		ProgressKey:   key,
		Status:        status,
		Progress:      progress,
		CurrentTime:   currentTime,
		TotalDuration: totalDuration,
		LastPlayedAt:  nowISO(t.now()),
	}

	return rec, t.persist(ctx, userID, rec)
}

// MarkCompleted forces the record into the completed state with full
// progress, regardless of telemetry.
func (t *Tracker) MarkCompleted(ctx context.Context, userID string, key ProgressKey) (*AudioProgress, error) {
	return t.override(ctx, userID, key, StatusCompleted, func(rec *AudioProgress) {
		rec.Progress = 100
	})
}

// MarkInProgress is the explicit in-progress override.
func (t *Tracker) MarkInProgress(ctx context.Context, userID string, key ProgressKey) (*AudioProgress, error) {
	return t.override(ctx, userID, key, StatusInProgress, nil)
}

// Reset is the only path off completed: back to not-started with zeroed
// position and progress.
func (t *Tracker) Reset(ctx context.Context, userID string, key ProgressKey) (*AudioProgress, error) {
	return t.override(ctx, userID, key, StatusNotStarted, func(rec *AudioProgress) {
		rec.Progress = 0
		rec.CurrentTime = 0
	})
}

func (t *Tracker) override(ctx context.Context, userID string, key ProgressKey, status string, mutate func(*AudioProgress)) (*AudioProgress, error) {
	existing, err := t.cache.GetProgress(ctx, userID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	rec := &AudioProgress{ProgressKey: key}
	if existing != nil {
		*rec = *existing
	}
	rec.Status = status
	rec.LastPlayedAt = nowISO(t.now())
	if mutate != nil {
		mutate(rec)
	}

	return rec, t.persist(ctx, userID, rec)
}

// GetProgress returns the record for one audio, or a fresh not-started
// record when nothing has been tracked yet.
func (t *Tracker) GetProgress(ctx context.Context, userID string, key ProgressKey) (*AudioProgress, error) {
	rec, err := t.cache.GetProgress(ctx, userID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if rec == nil {
		return &AudioProgress{ProgressKey: key, Status: StatusNotStarted}, nil
	}
	return rec, nil
}

// ListProgress returns every progress record for a user. An empty
// cache is refilled from the mirror first, so a flushed key-value
// store does not read as lost progress.
func (t *Tracker) ListProgress(ctx context.Context, userID string) ([]*AudioProgress, error) {
	records, err := t.cache.ListProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		return records, nil
	}

	lister, ok := t.mirror.(MirrorLister)
	if !ok {
		return records, nil
	}

	restored, err := lister.ListUserProgress(ctx, userID)
	if err != nil {
		t.log.Warn("Failed to restore progress from mirror", "user", userID, "error", err)
		return records, nil
	}
	for _, rec := range restored {
		if err := t.cache.PutProgress(ctx, userID, rec); err != nil {
			return nil, fmt.Errorf("failed to refill progress cache: %w", err)
		}
	}
	return restored, nil
}

// GetBookProgress returns the stored aggregate, or an empty one sized
// from the static chapter table when the book has never been touched.
func (t *Tracker) GetBookProgress(ctx context.Context, userID, bookID string) (*BookProgress, error) {
	bp, err := t.cache.GetBookProgress(ctx, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to load book progress: %w", err)
	}
	if bp == nil {
		return &BookProgress{
			BookID:        bookID,
			TotalChapters: bible.ChapterCount(bookID),
			LastUpdated:   nowISO(t.now()),
		}, nil
	}
	return bp, nil
}

// RecomputeBookAggregate rebuilds the aggregate from the book's chapter
// records. Verse records are excluded; unknown books get a denominator
// of 1 so the percentage never divides by zero.
func (t *Tracker) RecomputeBookAggregate(ctx context.Context, userID, bookID string) (*BookProgress, error) {
	records, err := t.cache.ListBookProgress(ctx, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list book progress: %w", err)
	}

	total := bible.ChapterCount(bookID)
	completed, inProgress := 0, 0
	for _, rec := range records {
		if !rec.IsChapter() {
			continue
		}
		switch rec.Status {
		case StatusCompleted:
			completed++
		case StatusInProgress:
			inProgress++
		}
	}

	bp := &BookProgress{
		BookID:             bookID,
		TotalChapters:      total,
		CompletedChapters:  completed,
		InProgressChapters: inProgress,
		OverallProgress:    float64(completed) / float64(total) * 100,
		LastUpdated:        nowISO(t.now()),
	}

	if err := t.cache.PutBookProgress(ctx, userID, bp); err != nil {
		return nil, fmt.Errorf("failed to store book progress: %w", err)
	}

	if t.mirror != nil {
		go t.mirrorBookProgress(userID, bp)
	}

	return bp, nil
}

// persist writes the record to the cache, recomputes the owning book's
// aggregate, then mirrors both asynchronously.
func (t *Tracker) persist(ctx context.Context, userID string, rec *AudioProgress) error {
	if err := t.cache.PutProgress(ctx, userID, rec); err != nil {
		return fmt.Errorf("failed to store progress: %w", err)
	}

	if _, err := t.RecomputeBookAggregate(ctx, userID, rec.BookID); err != nil {
		return err
	}

	if t.mirror != nil {
		go t.mirrorProgress(userID, rec)
	}

	return nil
}

func (t *Tracker) mirrorProgress(userID string, rec *AudioProgress) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := t.mirror.SaveProgress(ctx, userID, rec); err != nil {
		t.log.Warn(
			"Progress mirror write failed",
			"user_id", userID,
			"key", rec.ProgressKey.String(),
			"error", err,
		)
	}
}

func (t *Tracker) mirrorBookProgress(userID string, bp *BookProgress) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := t.mirror.SaveBookProgress(ctx, userID, bp); err != nil {
		t.log.Warn(
			"Book progress mirror write failed",
			"user_id", userID,
			"book_id", bp.BookID,
			"error", err,
		)
	}
}
