package httpserver

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asmrbible/backend/internal/entitlement"
)

func orderBody(userID, status, productID string) []byte {
	return fmt.Appendf(nil, `{
		"meta": {"event_name": "order_created", "custom_data": {"user_id": %q}},
		"data": {"attributes": {
			"status": %q,
			"first_order_item": {"product_id": %q, "variant_id": 999}
		}}
	}`, userID, status, productID)
}

func postWebhook(e *testEnv, eventName string, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader(body))
	req.Header.Set("X-Event-Name", eventName)
	req.Header.Set("X-Signature", signature)
	return e.do(req)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	e := newTestEnv()
	e.users.add(&entitlement.User{ID: "user-1", Email: "a@b.c"})

	body := orderBody("user-1", "paid", testProProduct)
	rr := postWebhook(e, "order_created", body, "deadbeef")

	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	user, err := e.users.GetUser(t.Context(), "user-1")
	require.NoError(t, err)
	assert.False(t, user.IsPro, "nothing may be mutated on a bad signature")
}

func TestWebhookPaidOrderGrantsPro(t *testing.T) {
	e := newTestEnv()
	e.users.add(&entitlement.User{ID: "user-1", Email: "a@b.c"})

	body := orderBody("user-1", "paid", testProProduct)
	rr := postWebhook(e, "order_created", body, signBody(body))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success": true}`, rr.Body.String())

	user, err := e.users.GetUser(t.Context(), "user-1")
	require.NoError(t, err)
	assert.True(t, user.IsPro)
	assert.True(t, user.IsPremium)

	end, err := time.Parse(time.RFC3339, user.ProSubscriptionEnd)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().AddDate(1, 0, 0), end, 5*time.Second)
}

func TestWebhookRefillAddsTokens(t *testing.T) {
	e := newTestEnv()
	e.users.add(&entitlement.User{ID: "user-1", Email: "a@b.c", TokenCount: 100})

	body := orderBody("user-1", "paid", testRefillProduct)
	rr := postWebhook(e, "order_created", body, signBody(body))

	require.Equal(t, http.StatusOK, rr.Code)

	user, err := e.users.GetUser(t.Context(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 200, user.TokenCount)
	assert.False(t, user.IsPro, "a refill is not a plan purchase")
}

func TestWebhookUnpaidOrderIsAcknowledged(t *testing.T) {
	e := newTestEnv()
	e.users.add(&entitlement.User{ID: "user-1", Email: "a@b.c"})

	body := orderBody("user-1", "pending", testProProduct)
	rr := postWebhook(e, "order_created", body, signBody(body))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message": "Webhook received"}`, rr.Body.String())

	user, err := e.users.GetUser(t.Context(), "user-1")
	require.NoError(t, err)
	assert.False(t, user.IsPro)
}

func TestWebhookOtherEventIsAcknowledged(t *testing.T) {
	e := newTestEnv()

	body := []byte(`{"meta": {"event_name": "subscription_updated"}}`)
	rr := postWebhook(e, "subscription_updated", body, signBody(body))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message": "Webhook received"}`, rr.Body.String())
}

func TestWebhookMissingBuyerFails(t *testing.T) {
	e := newTestEnv()

	body := []byte(`{
		"meta": {"event_name": "order_created"},
		"data": {"attributes": {"status": "paid", "first_order_item": {"product_id": "1084942"}}}
	}`)
	rr := postWebhook(e, "order_created", body, signBody(body))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
