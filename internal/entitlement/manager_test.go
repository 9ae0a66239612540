package entitlement

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	users map[string]*User
}

func newFakeStore(ids ...string) *fakeStore {
	s := &fakeStore{users: make(map[string]*User)}
	for _, id := range ids {
		s.users[id] = &User{ID: id, TokenCount: 100}
	}
	return s
}

func (s *fakeStore) GetUser(ctx context.Context, id string) (*User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	return u, nil
}

func (s *fakeStore) GrantPro(ctx context.Context, id string, until time.Time) error {
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.IsPro = true
	u.IsPremium = true
	u.ProSubscriptionEnd = until.Format(time.RFC3339)
	return nil
}

func (s *fakeStore) AddTokens(ctx context.Context, id string, delta int) error {
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.TokenCount += delta
	return nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func orderBody(userID, status, productID string) []byte {
	return fmt.Appendf(nil, `{
		"meta": {"event_name": "order_created", "custom_data": {"user_id": %q}},
		"data": {"attributes": {
			"status": %q,
			"first_order_item": {"product_id": %s, "variant_id": 0}
		}}
	}`, userID, status, productID)
}

func TestBuyerIDExtractionOrder(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			"meta custom_data wins",
			`{"meta":{"custom_data":{"user_id":"a"}},"data":{"attributes":{"user_id":"c","checkout_data":{"custom":{"user_id":"b"}}}}}`,
			"a",
		},
		{
			"checkout_data next",
			`{"data":{"attributes":{"user_id":"c","checkout_data":{"custom":{"user_id":"b"}}}}}`,
			"b",
		},
		{
			"attributes last",
			`{"data":{"attributes":{"user_id":"c"}}}`,
			"c",
		},
		{
			"none present",
			`{"data":{"attributes":{}}}`,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := ParsePurchaseEvent([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, event.BuyerID())
		})
	}
}

func TestProcessPurchaseEventProPlan(t *testing.T) {
	store := newFakeStore("user-1")
	m := NewManager(store, "1084942", "2000", testLogger())
	now := time.Now()

	event, err := ParsePurchaseEvent(orderBody("user-1", "paid", "1084942"))
	require.NoError(t, err)

	require.NoError(t, m.ProcessPurchaseEvent(context.Background(), EventOrderCreated, event, now))

	u := store.users["user-1"]
	assert.True(t, IsEntitled(u, now))

	end, err := time.Parse(time.RFC3339, u.ProSubscriptionEnd)
	require.NoError(t, err)
	assert.WithinDuration(t, now.AddDate(1, 0, 0), end, 5*time.Second)
}

func TestProcessPurchaseEventVariantMatch(t *testing.T) {
	store := newFakeStore("user-1")
	m := NewManager(store, "1084942", "2000", testLogger())

	// Pro plan id arrives as the variant id, product id unrelated.
	body := `{
		"meta": {"event_name": "order_created", "custom_data": {"user_id": "user-1"}},
		"data": {"attributes": {
			"status": "paid",
			"first_order_item": {"product_id": 999, "variant_id": "1084942"}
		}}
	}`
	event, err := ParsePurchaseEvent([]byte(body))
	require.NoError(t, err)

	require.NoError(t, m.ProcessPurchaseEvent(context.Background(), EventOrderCreated, event, time.Now()))
	assert.True(t, store.users["user-1"].IsPro)
}

func TestProcessPurchaseEventRefill(t *testing.T) {
	store := newFakeStore("user-1")
	m := NewManager(store, "1084942", "2000", testLogger())

	event, err := ParsePurchaseEvent(orderBody("user-1", "paid", "2000"))
	require.NoError(t, err)

	require.NoError(t, m.ProcessPurchaseEvent(context.Background(), EventOrderCreated, event, time.Now()))

	u := store.users["user-1"]
	assert.Equal(t, 200, u.TokenCount)
	assert.False(t, u.IsPro, "refill must not touch entitlement flags")
}

func TestProcessPurchaseEventUnknownProductIsSoftNoop(t *testing.T) {
	store := newFakeStore("user-1")
	m := NewManager(store, "1084942", "2000", testLogger())

	event, err := ParsePurchaseEvent(orderBody("user-1", "paid", "777"))
	require.NoError(t, err)

	require.NoError(t, m.ProcessPurchaseEvent(context.Background(), EventOrderCreated, event, time.Now()))

	u := store.users["user-1"]
	assert.Equal(t, 100, u.TokenCount)
	assert.False(t, u.IsPro)
}

func TestProcessPurchaseEventMissingBuyerIsHardFailure(t *testing.T) {
	store := newFakeStore("user-1")
	m := NewManager(store, "1084942", "2000", testLogger())

	event, err := ParsePurchaseEvent([]byte(`{"data":{"attributes":{"status":"paid"}}}`))
	require.NoError(t, err)

	err = m.ProcessPurchaseEvent(context.Background(), EventOrderCreated, event, time.Now())
	assert.Error(t, err)
	assert.False(t, store.users["user-1"].IsPro, "no mutation on hard failure")
}

func TestProcessPurchaseEventUnpaidOrderSkipped(t *testing.T) {
	store := newFakeStore("user-1")
	m := NewManager(store, "1084942", "2000", testLogger())

	event, err := ParsePurchaseEvent(orderBody("user-1", "pending", "1084942"))
	require.NoError(t, err)

	require.NoError(t, m.ProcessPurchaseEvent(context.Background(), EventOrderCreated, event, time.Now()))
	assert.False(t, store.users["user-1"].IsPro)
}

func TestProcessPurchaseEventOtherEventIgnored(t *testing.T) {
	store := newFakeStore("user-1")
	m := NewManager(store, "1084942", "2000", testLogger())

	event, err := ParsePurchaseEvent(orderBody("user-1", "paid", "1084942"))
	require.NoError(t, err)

	require.NoError(t, m.ProcessPurchaseEvent(context.Background(), "subscription_updated", event, time.Now()))
	assert.False(t, store.users["user-1"].IsPro)
}
