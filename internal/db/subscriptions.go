package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const subscriptionColumns = `
	email, book_id, book_title, voice, delivery_type, frequency,
	subscribed_at, last_sent_at
`

func scanSubscription(row pgx.Row) (*BookSubscription, error) {
	sub := &BookSubscription{}
	err := row.Scan(
		&sub.Email,
		&sub.BookID,
		&sub.BookTitle,
		&sub.Voice,
		&sub.DeliveryType,
		&sub.Frequency,
		&sub.SubscribedAt,
		&sub.LastSentAt,
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// UpsertSubscription creates or overwrites the (email, book) record.
// Resubscribing always takes the new preferences.
func (s *PostgresStore) UpsertSubscription(ctx context.Context, sub *BookSubscription) error {
	if sub.SubscribedAt.IsZero() {
		sub.SubscribedAt = time.Now()
	}

	query := `
		INSERT INTO book_subscriptions (
			email, book_id, book_title, voice, delivery_type, frequency, subscribed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email, book_id) DO UPDATE SET
			book_title = EXCLUDED.book_title,
			voice = EXCLUDED.voice,
			delivery_type = EXCLUDED.delivery_type,
			frequency = EXCLUDED.frequency,
			subscribed_at = EXCLUDED.subscribed_at
	`

	_, err := s.db.Exec(ctx, query,
		sub.Email,
		sub.BookID,
		sub.BookTitle,
		sub.Voice,
		sub.DeliveryType,
		sub.Frequency,
		sub.SubscribedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return nil
}

// DeleteSubscription hard-deletes the record. Deleting a subscription
// that doesn't exist is not an error.
func (s *PostgresStore) DeleteSubscription(ctx context.Context, email, bookID string) error {
	query := `DELETE FROM book_subscriptions WHERE email = $1 AND book_id = $2`

	if _, err := s.db.Exec(ctx, query, email, bookID); err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	return nil
}

// GetSubscription retrieves one record, or nil when absent.
func (s *PostgresStore) GetSubscription(ctx context.Context, email, bookID string) (*BookSubscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM book_subscriptions WHERE email = $1 AND book_id = $2`

	sub, err := scanSubscription(s.db.QueryRow(ctx, query, email, bookID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return sub, nil
}

// ListSubscriptionsByFrequency selects the working set for a reminder run.
func (s *PostgresStore) ListSubscriptionsByFrequency(ctx context.Context, frequency string) ([]*BookSubscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM book_subscriptions
		WHERE frequency = $1
		ORDER BY subscribed_at
	`
	return s.listSubscriptions(ctx, query, frequency)
}

// ListSubscriptionsByEmail returns all of one subscriber's records.
func (s *PostgresStore) ListSubscriptionsByEmail(ctx context.Context, email string) ([]*BookSubscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM book_subscriptions
		WHERE email = $1
		ORDER BY subscribed_at
	`
	return s.listSubscriptions(ctx, query, email)
}

// ListSubscriptions returns everything, for the admin overview.
func (s *PostgresStore) ListSubscriptions(ctx context.Context) ([]*BookSubscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM book_subscriptions ORDER BY subscribed_at`
	return s.listSubscriptions(ctx, query)
}

func (s *PostgresStore) listSubscriptions(ctx context.Context, query string, args ...any) ([]*BookSubscription, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []*BookSubscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriptions: %w", err)
	}

	return subs, nil
}

// TouchSubscriptionSent records that a reminder went out.
func (s *PostgresStore) TouchSubscriptionSent(ctx context.Context, email, bookID string, at time.Time) error {
	query := `UPDATE book_subscriptions SET last_sent_at = $3 WHERE email = $1 AND book_id = $2`

	result, err := s.db.Exec(ctx, query, email, bookID, at)
	if err != nil {
		return fmt.Errorf("failed to update last sent: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("subscription not found")
	}

	return nil
}
