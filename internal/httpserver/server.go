// Package httpserver exposes the JSON API: payment webhook, admin
// grants, subscriptions, reminder cron, listening progress and audio
// link endpoints.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/asmrbible/backend/internal/auth"
	"github.com/asmrbible/backend/internal/db"
	"github.com/asmrbible/backend/internal/email"
	"github.com/asmrbible/backend/internal/entitlement"
	"github.com/asmrbible/backend/internal/payment"
	"github.com/asmrbible/backend/internal/subscription"
	"github.com/asmrbible/backend/internal/tracking"
	"github.com/asmrbible/backend/pkg/jwt"
)

// CheckoutService creates hosted checkout sessions.
type CheckoutService interface {
	CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (string, error)
}

// AudioStore resolves narration audio to presigned links and lets the
// admin surface manage recordings.
type AudioStore interface {
	AudioURL(ctx context.Context, voice, bookID string, chapter int, verse *int, expiry time.Duration) (string, error)
	Exists(ctx context.Context, voice, bookID string, chapter int, verse *int) (bool, error)
	UploadRecording(ctx context.Context, voice, bookID string, chapter int, verse *int, data []byte) (string, error)
	DeleteRecording(ctx context.Context, voice, bookID string, chapter int, verse *int) error
}

// OIDCService is the sign-in flow against the identity provider.
type OIDCService interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.Identity, error)
	SignIn(ctx context.Context, ident *auth.Identity) (*entitlement.User, *jwt.TokenPair, error)
}

// Config carries the server's address and auth material.
type Config struct {
	Addr             string
	BaseURL          string
	WebhookSecret    string
	AdminSecret      string
	AdminSecretHash  string
	CronSecret       string
	TrustCronHeader  bool
	ProPlanVariantID string
}

// Deps bundles the services the handlers depend on.
type Deps struct {
	Users        db.UserStore
	Registry     *subscription.Registry
	Dispatcher   *subscription.Dispatcher
	Tracker      *tracking.Tracker
	Entitlements *entitlement.Manager
	Payments     CheckoutService
	Audio        AudioStore
	OIDC         OIDCService
	JWT          *jwt.Service
	Mailer       email.Sender
}

type Server struct {
	cfg          Config
	users        db.UserStore
	registry     *subscription.Registry
	dispatcher   *subscription.Dispatcher
	tracker      *tracking.Tracker
	entitlements *entitlement.Manager
	payments     CheckoutService
	audio        AudioStore
	oidc         OIDCService
	jwtService   *jwt.Service
	mailer       email.Sender
	log          *log.Logger
	httpServer   *http.Server
}

func New(cfg Config, deps Deps, logger *log.Logger) *Server {
	s := &Server{
		cfg:          cfg,
		users:        deps.Users,
		registry:     deps.Registry,
		dispatcher:   deps.Dispatcher,
		tracker:      deps.Tracker,
		entitlements: deps.Entitlements,
		payments:     deps.Payments,
		audio:        deps.Audio,
		oidc:         deps.OIDC,
		jwtService:   deps.JWT,
		mailer:       deps.Mailer,
		log:          logger,
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.setupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.cfg.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
