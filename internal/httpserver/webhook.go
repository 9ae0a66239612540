package httpserver

import (
	"io"
	"net/http"
	"time"

	"github.com/asmrbible/backend/internal/entitlement"
)

// HandleWebhook receives payment gateway events. The signature is
// checked against the raw body before anything is parsed or mutated.
func (s *Server) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	signature := r.Header.Get("X-Signature")
	if !entitlement.VerifySignature(rawBody, signature, s.cfg.WebhookSecret) {
		s.log.Warn("Webhook signature mismatch")
		s.respondError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	eventName := r.Header.Get("X-Event-Name")

	event, err := entitlement.ParsePurchaseEvent(rawBody)
	if err != nil {
		s.log.Error("Failed to parse webhook body", "error", err)
		s.respondError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	if err := s.entitlements.ProcessPurchaseEvent(r.Context(), eventName, event, time.Now()); err != nil {
		s.log.Error("Failed to process webhook", "event", eventName, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process webhook")
		return
	}

	if eventName == entitlement.EventOrderCreated && event.IsPaid() {
		s.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Webhook received"})
}
