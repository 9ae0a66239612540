package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/asmrbible/backend/internal/entitlement"
)

const userColumns = `
	id, email, display_name, photo_url, token_count,
	is_premium, is_pro, pro_subscription_end, created_at, last_login_at
`

// scanUser reads a user row, coercing the legacy string entitlement
// flags into strict booleans. The looseness stops here.
func scanUser(row pgx.Row) (*entitlement.User, error) {
	var (
		u         entitlement.User
		isPremium string
		isPro     string
	)

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.DisplayName,
		&u.PhotoURL,
		&u.TokenCount,
		&isPremium,
		&isPro,
		&u.ProSubscriptionEnd,
		&u.CreatedAt,
		&u.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}

	u.IsPremium = entitlement.ParseLegacyFlag(isPremium)
	u.IsPro = entitlement.ParseLegacyFlag(isPro)

	return &u, nil
}

// EnsureUser creates the user with default token balance on first
// sign-in, or refreshes last_login_at on a return visit. Identity
// fields follow whatever the identity provider currently reports.
func (s *PostgresStore) EnsureUser(ctx context.Context, user *entitlement.User) (*entitlement.User, error) {
	query := `
		INSERT INTO users (id, email, display_name, photo_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			photo_url = EXCLUDED.photo_url,
			last_login_at = NOW()
		RETURNING ` + userColumns

	stored, err := scanUser(s.db.QueryRow(
		ctx,
		query,
		user.ID,
		user.Email,
		user.DisplayName,
		user.PhotoURL,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	return stored, nil
}

// GetUser retrieves a user by id.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (*entitlement.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

// GetUsersByEmail returns every user record carrying the email. The
// legacy store allowed duplicates per email, and entitlement updates
// deliberately apply to all of them.
func (s *PostgresStore) GetUsersByEmail(ctx context.Context, email string) ([]*entitlement.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	rows, err := s.db.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to query users by email: %w", err)
	}
	defer rows.Close()

	users := []*entitlement.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// GrantPro sets both Pro flags and the subscription end. A merge-style
// update: no other column is touched.
func (s *PostgresStore) GrantPro(ctx context.Context, id string, until time.Time) error {
	query := `
		UPDATE users
		SET is_premium = 'true', is_pro = 'true', pro_subscription_end = $2
		WHERE id = $1
	`

	result, err := s.db.Exec(ctx, query, id, until.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to grant pro: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// AddTokens adjusts the token balance, clamping at zero on the way down.
func (s *PostgresStore) AddTokens(ctx context.Context, id string, delta int) error {
	query := `
		UPDATE users
		SET token_count = GREATEST(0, token_count + $2)
		WHERE id = $1
	`

	result, err := s.db.Exec(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("failed to update token count: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}
