package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/asmrbible/backend/internal/entitlement"
	"github.com/asmrbible/backend/internal/tracking"
)

// To abstract db methods from pgxpool api
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	db DBTX
}

func NewPostgresStore(pool DBTX) *PostgresStore {
	return &PostgresStore{
		db: pool,
	}
}

type UserStore interface {
	EnsureUser(ctx context.Context, user *entitlement.User) (*entitlement.User, error)
	GetUser(ctx context.Context, id string) (*entitlement.User, error)
	GetUsersByEmail(ctx context.Context, email string) ([]*entitlement.User, error)
	GrantPro(ctx context.Context, id string, until time.Time) error
	AddTokens(ctx context.Context, id string, delta int) error
}

type SubscriptionStore interface {
	UpsertSubscription(ctx context.Context, sub *BookSubscription) error
	DeleteSubscription(ctx context.Context, email, bookID string) error
	GetSubscription(ctx context.Context, email, bookID string) (*BookSubscription, error)
	ListSubscriptionsByFrequency(ctx context.Context, frequency string) ([]*BookSubscription, error)
	ListSubscriptionsByEmail(ctx context.Context, email string) ([]*BookSubscription, error)
	ListSubscriptions(ctx context.Context) ([]*BookSubscription, error)
	TouchSubscriptionSent(ctx context.Context, email, bookID string, at time.Time) error
}

type ProgressMirror interface {
	SaveProgress(ctx context.Context, userID string, rec *tracking.AudioProgress) error
	SaveBookProgress(ctx context.Context, userID string, bp *tracking.BookProgress) error
	ListUserProgress(ctx context.Context, userID string) ([]*tracking.AudioProgress, error)
}

func CreatePostgresPool(parentCtx context.Context, dburl string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(parentCtx, time.Second*3)
	defer cancel()

	pool, err := pgxpool.New(ctx, dburl)
	if err != nil {
		return nil, err
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}
