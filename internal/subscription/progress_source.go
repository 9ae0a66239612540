package subscription

import (
	"context"
	"fmt"
	"math"

	"github.com/asmrbible/backend/internal/bible"
	"github.com/asmrbible/backend/internal/db"
	"github.com/asmrbible/backend/internal/tracking"
)

// TrackerSource resolves a subscriber's email to an account and reads
// their book aggregate for the reminder body.
type TrackerSource struct {
	users   db.UserStore
	tracker *tracking.Tracker
}

func NewTrackerSource(users db.UserStore, tracker *tracking.Tracker) *TrackerSource {
	return &TrackerSource{users: users, tracker: tracker}
}

// ReminderProgress reports where the subscriber left off. Subscribers
// without an account, or without any listening yet, come up empty and
// the reminder falls back to its defaults.
func (s *TrackerSource) ReminderProgress(ctx context.Context, email, bookID string) (string, int, bool) {
	users, err := s.users.GetUsersByEmail(ctx, email)
	if err != nil || len(users) == 0 {
		return "", 0, false
	}

	bp, err := s.tracker.GetBookProgress(ctx, users[0].ID, bookID)
	if err != nil {
		return "", 0, false
	}
	if bp.CompletedChapters == 0 && bp.InProgressChapters == 0 {
		return "", 0, false
	}

	// The next chapter, clamped so a finished book does not point past
	// its last chapter.
	next := bp.CompletedChapters + 1
	if max := bible.ChapterCount(bookID); max > 0 && next > max {
		next = max
	}

	label := fmt.Sprintf("Chapter %d", next)
	return label, int(math.Round(bp.OverallProgress)), true
}
