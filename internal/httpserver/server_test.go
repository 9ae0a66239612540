package httpserver

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/asmrbible/backend/internal/db"
	"github.com/asmrbible/backend/internal/email"
	"github.com/asmrbible/backend/internal/entitlement"
	"github.com/asmrbible/backend/internal/payment"
	"github.com/asmrbible/backend/internal/subscription"
	"github.com/asmrbible/backend/internal/tracking"
	"github.com/asmrbible/backend/pkg/jwt"
)

const (
	testWebhookSecret = "hook-secret"
	testAdminSecret   = "admin-secret"
	testCronSecret    = "cron-secret"
	testJWTSecret     = "jwt-secret"
	testProProduct    = "1084942"
	testRefillProduct = "1084943"
)

// fakeUserStore keeps everything in memory. It backs both db.UserStore
// and the entitlement manager's store.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*entitlement.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*entitlement.User{}}
}

func (s *fakeUserStore) add(u *entitlement.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *fakeUserStore) EnsureUser(ctx context.Context, user *entitlement.User) (*entitlement.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[user.ID]; ok {
		existing.Email = user.Email
		existing.DisplayName = user.DisplayName
		existing.LastLoginAt = time.Now()
		return existing, nil
	}
	user.TokenCount = 100
	s.users[user.ID] = user
	return user, nil
}

func (s *fakeUserStore) GetUser(ctx context.Context, id string) (*entitlement.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found: %s", id)
	}
	return u, nil
}

func (s *fakeUserStore) GetUsersByEmail(ctx context.Context, email string) ([]*entitlement.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entitlement.User
	for _, u := range s.users {
		if u.Email == email {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *fakeUserStore) GrantPro(ctx context.Context, id string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user not found: %s", id)
	}
	u.IsPremium = true
	u.IsPro = true
	u.ProSubscriptionEnd = until.Format(time.RFC3339)
	return nil
}

func (s *fakeUserStore) AddTokens(ctx context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user not found: %s", id)
	}
	u.TokenCount += delta
	return nil
}

// fakeSubStore is an in-memory db.SubscriptionStore.
type fakeSubStore struct {
	mu   sync.Mutex
	subs map[string]*db.BookSubscription
}

func newFakeSubStore() *fakeSubStore {
	return &fakeSubStore{subs: map[string]*db.BookSubscription{}}
}

func subKey(email, bookID string) string { return email + "|" + bookID }

func (s *fakeSubStore) UpsertSubscription(ctx context.Context, sub *db.BookSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sub
	s.subs[subKey(sub.Email, sub.BookID)] = &cp
	return nil
}

func (s *fakeSubStore) DeleteSubscription(ctx context.Context, email, bookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, subKey(email, bookID))
	return nil
}

func (s *fakeSubStore) GetSubscription(ctx context.Context, email, bookID string) (*db.BookSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[subKey(email, bookID)]
	if !ok {
		return nil, nil
	}
	cp := *sub
	return &cp, nil
}

func (s *fakeSubStore) ListSubscriptionsByFrequency(ctx context.Context, frequency string) ([]*db.BookSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*db.BookSubscription
	for _, sub := range s.subs {
		if sub.Frequency == frequency {
			cp := *sub
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeSubStore) ListSubscriptionsByEmail(ctx context.Context, email string) ([]*db.BookSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*db.BookSubscription
	for _, sub := range s.subs {
		if sub.Email == email {
			cp := *sub
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeSubStore) ListSubscriptions(ctx context.Context) ([]*db.BookSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*db.BookSubscription
	for _, sub := range s.subs {
		cp := *sub
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeSubStore) TouchSubscriptionSent(ctx context.Context, email, bookID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[subKey(email, bookID)]
	if !ok {
		return fmt.Errorf("subscription not found")
	}
	sub.LastSentAt = &at
	return nil
}

// memProgressCache is an in-memory tracking.Cache.
type memProgressCache struct {
	mu      sync.Mutex
	records map[string]map[string]*tracking.AudioProgress
	books   map[string]map[string]*tracking.BookProgress
}

func newMemProgressCache() *memProgressCache {
	return &memProgressCache{
		records: map[string]map[string]*tracking.AudioProgress{},
		books:   map[string]map[string]*tracking.BookProgress{},
	}
}

func (c *memProgressCache) GetProgress(ctx context.Context, userID string, key tracking.ProgressKey) (*tracking.AudioProgress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[userID][key.String()]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (c *memProgressCache) PutProgress(ctx context.Context, userID string, rec *tracking.AudioProgress) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.records[userID] == nil {
		c.records[userID] = map[string]*tracking.AudioProgress{}
	}
	cp := *rec
	c.records[userID][rec.String()] = &cp
	return nil
}

func (c *memProgressCache) ListBookProgress(ctx context.Context, userID, bookID string) ([]*tracking.AudioProgress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*tracking.AudioProgress
	for _, rec := range c.records[userID] {
		if rec.BookID == bookID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (c *memProgressCache) ListProgress(ctx context.Context, userID string) ([]*tracking.AudioProgress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*tracking.AudioProgress
	for _, rec := range c.records[userID] {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (c *memProgressCache) GetBookProgress(ctx context.Context, userID, bookID string) (*tracking.BookProgress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bp, ok := c.books[userID][bookID]
	if !ok {
		return nil, nil
	}
	cp := *bp
	return &cp, nil
}

func (c *memProgressCache) PutBookProgress(ctx context.Context, userID string, bp *tracking.BookProgress) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.books[userID] == nil {
		c.books[userID] = map[string]*tracking.BookProgress{}
	}
	cp := *bp
	c.books[userID][bp.BookID] = &cp
	return nil
}

// stubCheckout records the request and returns a canned URL or error.
type stubCheckout struct {
	lastReq payment.CheckoutRequest
	url     string
	err     error
}

func (s *stubCheckout) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (string, error) {
	s.lastReq = req
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

// stubAudio hands out deterministic links and keeps uploads in memory.
type stubAudio struct {
	missing  bool
	uploaded map[string][]byte
	deleted  []string
}

func newStubAudio() *stubAudio {
	return &stubAudio{uploaded: make(map[string][]byte)}
}

func stubObjectName(voice, bookID string, chapter int, verse *int) string {
	if verse != nil {
		return fmt.Sprintf("%s/%s/%d/%d.mp3", voice, bookID, chapter, *verse)
	}
	return fmt.Sprintf("%s/%s/%d.mp3", voice, bookID, chapter)
}

func (a *stubAudio) AudioURL(ctx context.Context, voice, bookID string, chapter int, verse *int, expiry time.Duration) (string, error) {
	return "https://cdn.test/" + stubObjectName(voice, bookID, chapter, verse), nil
}

func (a *stubAudio) Exists(ctx context.Context, voice, bookID string, chapter int, verse *int) (bool, error) {
	return !a.missing, nil
}

func (a *stubAudio) UploadRecording(ctx context.Context, voice, bookID string, chapter int, verse *int, data []byte) (string, error) {
	object := stubObjectName(voice, bookID, chapter, verse)
	a.uploaded[object] = data
	return object, nil
}

func (a *stubAudio) DeleteRecording(ctx context.Context, voice, bookID string, chapter int, verse *int) error {
	a.deleted = append(a.deleted, stubObjectName(voice, bookID, chapter, verse))
	return nil
}

// countingSender tallies outbound mail.
type countingSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (s *countingSender) Name() string { return "counting" }

func (s *countingSender) Send(ctx context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type testEnv struct {
	server   *Server
	users    *fakeUserStore
	subs     *fakeSubStore
	cache    *memProgressCache
	checkout *stubCheckout
	audio    *stubAudio
	mailer   *countingSender
	jwt      *jwt.Service
}

func newTestEnv() *testEnv {
	logger := log.New(io.Discard)

	users := newFakeUserStore()
	subs := newFakeSubStore()
	cache := newMemProgressCache()
	checkout := &stubCheckout{url: "https://store.test/checkout/abc"}
	audio := newStubAudio()
	mailer := &countingSender{}

	jwtService := jwt.NewService(testJWTSecret, 15*time.Minute, 7*24*time.Hour)
	tracker := tracking.NewTracker(cache, nil, logger)
	registry := subscription.NewRegistry(subs)
	dispatcher := subscription.NewDispatcher(registry, subs, mailer, nil, "https://example.com", logger)
	entitlements := entitlement.NewManager(users, testProProduct, testRefillProduct, logger)

	server := New(
		Config{
			Addr:             ":0",
			BaseURL:          "https://example.com",
			WebhookSecret:    testWebhookSecret,
			AdminSecret:      testAdminSecret,
			CronSecret:       testCronSecret,
			ProPlanVariantID: testProProduct,
		},
		Deps{
			Users:        users,
			Registry:     registry,
			Dispatcher:   dispatcher,
			Tracker:      tracker,
			Entitlements: entitlements,
			Payments:     checkout,
			Audio:        audio,
			JWT:          jwtService,
			Mailer:       mailer,
		},
		logger,
	)

	return &testEnv{
		server:   server,
		users:    users,
		subs:     subs,
		cache:    cache,
		checkout: checkout,
		audio:    audio,
		mailer:   mailer,
		jwt:      jwtService,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.server.setupRoutes().ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) accessToken(userID, emailAddr string) string {
	pair, err := e.jwt.GenerateTokenPair(userID, emailAddr)
	if err != nil {
		panic(err)
	}
	return pair.AccessToken
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
