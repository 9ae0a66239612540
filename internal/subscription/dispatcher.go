package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/asmrbible/backend/internal/db"
	"github.com/asmrbible/backend/internal/email"
)

// Results is the tally of one reminder run. Per-recipient failures are
// recorded here rather than aborting the batch.
type Results struct {
	Total  int      `json:"total"`
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors"`
}

// ProgressSource supplies the subscriber's current position in a book
// for the reminder body. Implementations may legitimately come up empty
// (anonymous progress never reaches the server).
type ProgressSource interface {
	ReminderProgress(ctx context.Context, email, bookID string) (chapterLabel string, percent int, ok bool)
}

// Dispatcher walks one frequency's subscriptions and sends reminders
// sequentially, one outbound call per subscriber.
type Dispatcher struct {
	registry *Registry
	store    db.SubscriptionStore
	sender   email.Sender
	progress ProgressSource
	baseURL  string
	log      *log.Logger
}

func NewDispatcher(registry *Registry, store db.SubscriptionStore, sender email.Sender, progress ProgressSource, baseURL string, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		store:    store,
		sender:   sender,
		progress: progress,
		baseURL:  baseURL,
		log:      logger,
	}
}

// Run executes one reminder pass for the frequency. A failed send is
// tallied and iteration continues; only a failure to load the working
// set is fatal.
func (d *Dispatcher) Run(ctx context.Context, frequency string) (*Results, error) {
	subs, err := d.registry.ListByFrequency(ctx, frequency)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	runID := uuid.New()
	d.log.Info(
		"Reminder run starting",
		"run_id", runID,
		"frequency", frequency,
		"subscriptions", len(subs),
	)

	results := &Results{Total: len(subs), Errors: []string{}}

	for _, sub := range subs {
		if err := d.sendReminder(ctx, sub); err != nil {
			results.Failed++
			results.Errors = append(results.Errors, fmt.Sprintf("%s: %v", sub.Email, err))
			d.log.Error(
				"Reminder send failed",
				"run_id", runID,
				"email", sub.Email,
				"book_id", sub.BookID,
				"error", err,
			)
			continue
		}

		if err := d.store.TouchSubscriptionSent(ctx, sub.Email, sub.BookID, time.Now()); err != nil {
			// The email went out; a bookkeeping miss is not a failure.
			d.log.Warn(
				"Failed to update last sent timestamp",
				"run_id", runID,
				"email", sub.Email,
				"error", err,
			)
		}
		results.Sent++
	}

	d.log.Info(
		"Reminder run finished",
		"run_id", runID,
		"frequency", frequency,
		"sent", results.Sent,
		"failed", results.Failed,
	)

	return results, nil
}

// SendOne sends a single reminder outside a batch run.
func (d *Dispatcher) SendOne(ctx context.Context, sub *db.BookSubscription) error {
	return d.sendReminder(ctx, sub)
}

func (d *Dispatcher) sendReminder(ctx context.Context, sub *db.BookSubscription) error {
	data := email.ReminderData{
		Email:        sub.Email,
		BookID:       sub.BookID,
		BookTitle:    sub.BookTitle,
		Voice:        sub.Voice,
		DeliveryType: sub.DeliveryType,
		BaseURL:      d.baseURL,
	}

	if d.progress != nil {
		if label, percent, ok := d.progress.ReminderProgress(ctx, sub.Email, sub.BookID); ok {
			data.ChapterLabel = label
			data.ProgressPercent = percent
		}
	}

	msg, err := email.BuildReminderMessage(data)
	if err != nil {
		return err
	}

	return d.sender.Send(ctx, msg)
}
