// Package tracking converts playback telemetry into durable per-chapter
// progress and derived per-book aggregates.
package tracking

import (
	"fmt"
	"time"
)

// Progress statuses. Completion is one-way: automatic playback updates
// never move a record off completed, only an explicit reset does.
const (
	StatusNotStarted = "not-started"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// ProgressKey identifies one tracked audio: a chapter, or a single verse
// within it, rendered with a specific voice preset.
type ProgressKey struct {
	BookID    string `json:"book_id"`
	ChapterID int    `json:"chapter_id"`
	VerseID   *int   `json:"verse_id,omitempty"`
	Voice     string `json:"voice"`
}

// String renders the key in the canonical storage form, with "chapter"
// standing in for an absent verse id.
func (k ProgressKey) String() string {
	verse := "chapter"
	if k.VerseID != nil {
		verse = fmt.Sprintf("%d", *k.VerseID)
	}
	return fmt.Sprintf("%s-%d-%s-%s", k.BookID, k.ChapterID, verse, k.Voice)
}

// IsChapter reports whether the key tracks a whole chapter rather than
// a single verse. Only chapter records count toward book aggregates.
func (k ProgressKey) IsChapter() bool {
	return k.VerseID == nil
}

// AudioProgress is the durable progress record for one audio.
type AudioProgress struct {
	ProgressKey
	Status        string  `json:"status"`
	Progress      float64 `json:"progress"` // 0-100
	CurrentTime   float64 `json:"current_time"`
	TotalDuration float64 `json:"total_duration"`
	LastPlayedAt  string  `json:"last_played_at"`
}

// BookProgress is the derived aggregate over a book's chapter records.
type BookProgress struct {
	BookID             string  `json:"book_id"`
	TotalChapters      int     `json:"total_chapters"`
	CompletedChapters  int     `json:"completed_chapters"`
	InProgressChapters int     `json:"in_progress_chapters"`
	OverallProgress    float64 `json:"overall_progress"` // 0-100
	LastUpdated        string  `json:"last_updated"`
}

func nowISO(now time.Time) string {
	return now.UTC().Format(time.RFC3339)
}
