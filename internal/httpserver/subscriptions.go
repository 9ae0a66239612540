package httpserver

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/asmrbible/backend/internal/email"
	"github.com/asmrbible/backend/internal/subscription"
)

type saveSubscriptionRequest struct {
	Email        string `json:"email"`
	BookID       string `json:"bookId"`
	BookTitle    string `json:"bookTitle"`
	Voice        string `json:"voice"`
	DeliveryType string `json:"deliveryType"`
	Frequency    string `json:"frequency"`
}

type unsubscribeRequest struct {
	Email  string `json:"email"`
	BookID string `json:"bookId"`
}

// HandleSaveSubscription upserts a book subscription and sends the
// confirmation email best-effort.
func (s *Server) HandleSaveSubscription(w http.ResponseWriter, r *http.Request) {
	var req saveSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sub, err := s.registry.Subscribe(
		r.Context(),
		req.Email, req.BookID, req.BookTitle,
		req.Voice, req.DeliveryType, req.Frequency,
	)
	if err != nil {
		s.handleError(w, err)
		return
	}

	// The subscription is saved either way; a failed confirmation
	// email only gets a log line.
	msg, err := email.BuildBookSubscriptionMessage(email.BookSubscriptionData{
		Email:        sub.Email,
		BookID:       sub.BookID,
		BookTitle:    sub.BookTitle,
		Voice:        sub.Voice,
		DeliveryType: sub.DeliveryType,
		Frequency:    sub.Frequency,
		BaseURL:      s.cfg.BaseURL,
	})
	if err != nil {
		s.log.Error("Failed to build confirmation email", "error", err)
	} else if err := s.mailer.Send(r.Context(), msg); err != nil {
		s.log.Warn("Failed to send confirmation email", "email", sub.Email, "error", err)
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"subscription": sub,
		"cost":         subscription.CalculateCost(sub.Voice, sub.DeliveryType, sub.Frequency),
	})
}

// HandleListSubscriptions returns one subscriber's records.
func (s *Server) HandleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	emailAddr := r.URL.Query().Get("email")
	if emailAddr == "" {
		s.respondError(w, http.StatusBadRequest, "email query parameter is required")
		return
	}

	subs, err := s.registry.ListByEmail(r.Context(), emailAddr)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"subscriptions": subs,
		"count":         len(subs),
	})
}

// HandleUnsubscribe removes a subscription via the API.
func (s *Server) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.registry.Unsubscribe(r.Context(), req.Email, req.BookID); err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleUnsubscribeLink serves the unsubscribe link embedded in emails
// and redirects to the site's unsubscribe page with the outcome.
func (s *Server) HandleUnsubscribeLink(w http.ResponseWriter, r *http.Request) {
	emailAddr := r.URL.Query().Get("email")
	bookID := r.URL.Query().Get("bookId")
	token := r.URL.Query().Get("token")

	redirect := func(status string) {
		target := strings.TrimRight(s.cfg.BaseURL, "/") + "/unsubscribe?status=" + url.QueryEscape(status)
		http.Redirect(w, r, target, http.StatusFound)
	}

	if emailAddr == "" || bookID == "" || token == "" {
		redirect("error")
		return
	}

	if token != email.UnsubscribeToken(emailAddr, bookID) {
		s.log.Warn("Unsubscribe token mismatch", "email", emailAddr, "book_id", bookID)
		redirect("error")
		return
	}

	if err := s.registry.Unsubscribe(r.Context(), emailAddr, bookID); err != nil {
		s.log.Error("Failed to unsubscribe", "email", emailAddr, "book_id", bookID, "error", err)
		redirect("error")
		return
	}

	redirect("success")
}
