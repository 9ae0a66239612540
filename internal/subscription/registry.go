// Package subscription manages per-(email, book) delivery preferences
// and the periodic reminder dispatch over them.
package subscription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/asmrbible/backend/internal/bible"
	"github.com/asmrbible/backend/internal/db"
)

// Registry wraps the subscription store with defaulting and validation.
type Registry struct {
	store db.SubscriptionStore
}

func NewRegistry(store db.SubscriptionStore) *Registry {
	return &Registry{store: store}
}

// Subscribe upserts the (email, book) record. Resubscribing overwrites
// the stored preferences, so the operation is idempotent. Empty
// preference fields take the site defaults.
func (r *Registry) Subscribe(ctx context.Context, email, bookID, bookTitle, voice, deliveryType, frequency string) (*db.BookSubscription, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || bookID == "" || bookTitle == "" {
		return nil, fmt.Errorf("email, bookId and bookTitle are required")
	}

	if voice == "" {
		voice = bible.VoiceAria
	}
	if deliveryType == "" {
		deliveryType = db.DeliveryUnfinished
	}
	if frequency == "" {
		frequency = db.FrequencyWeekly
	}

	if !bible.IsValidVoice(voice) {
		return nil, fmt.Errorf("invalid voice: %s", voice)
	}
	if !db.IsValidDeliveryType(deliveryType) {
		return nil, fmt.Errorf("invalid delivery type: %s", deliveryType)
	}
	if !db.IsValidFrequency(frequency) {
		return nil, fmt.Errorf("invalid frequency: %s", frequency)
	}

	sub := &db.BookSubscription{
		Email:        email,
		BookID:       bookID,
		BookTitle:    bookTitle,
		Voice:        voice,
		DeliveryType: deliveryType,
		Frequency:    frequency,
		SubscribedAt: time.Now(),
	}

	if err := r.store.UpsertSubscription(ctx, sub); err != nil {
		return nil, err
	}

	return sub, nil
}

// Unsubscribe removes the record. Unknown records are a soft no-op.
func (r *Registry) Unsubscribe(ctx context.Context, email, bookID string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || bookID == "" {
		return fmt.Errorf("email and bookId are required")
	}
	return r.store.DeleteSubscription(ctx, email, bookID)
}

// IsSubscribed reports whether the (email, book) record exists.
func (r *Registry) IsSubscribed(ctx context.Context, email, bookID string) (bool, error) {
	sub, err := r.store.GetSubscription(ctx, strings.ToLower(strings.TrimSpace(email)), bookID)
	if err != nil {
		return false, err
	}
	return sub != nil, nil
}

// ListByFrequency selects a reminder run's working set.
func (r *Registry) ListByFrequency(ctx context.Context, frequency string) ([]*db.BookSubscription, error) {
	if !db.IsValidFrequency(frequency) {
		return nil, fmt.Errorf("invalid frequency: %s", frequency)
	}
	return r.store.ListSubscriptionsByFrequency(ctx, frequency)
}

// ListByEmail returns one subscriber's records for the account page.
func (r *Registry) ListByEmail(ctx context.Context, email string) ([]*db.BookSubscription, error) {
	return r.store.ListSubscriptionsByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// ListAll returns everything for the admin overview.
func (r *Registry) ListAll(ctx context.Context) ([]*db.BookSubscription, error) {
	return r.store.ListSubscriptions(ctx)
}
