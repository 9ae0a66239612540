package httpserver

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// cronAuthorized checks the reminder-run caller. The secret may come
// as a bearer token or a query parameter; when no secret is configured
// the platform scheduler header is accepted instead.
func (s *Server) cronAuthorized(r *http.Request) bool {
	if s.cfg.CronSecret == "" {
		return s.cfg.TrustCronHeader && r.Header.Get("X-Platform-Cron") != ""
	}

	secret := r.URL.Query().Get("secret")
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			secret = parts[1]
		}
	}
	if secret == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(s.cfg.CronSecret), []byte(secret)) == 1
}

// HandleSendReminders runs one reminder pass for a frequency.
func (s *Server) HandleSendReminders(w http.ResponseWriter, r *http.Request) {
	if !s.cronAuthorized(r) {
		s.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	frequency := r.URL.Query().Get("frequency")
	if frequency == "" {
		s.respondError(w, http.StatusBadRequest, "Invalid frequency")
		return
	}

	results, err := s.dispatcher.Run(r.Context(), frequency)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"frequency": frequency,
		"results":   results,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

type sendBookReminderRequest struct {
	Email  string `json:"email"`
	BookID string `json:"bookId"`
}

// HandleSendBookReminder sends one reminder outside a batch run.
func (s *Server) HandleSendBookReminder(w http.ResponseWriter, r *http.Request) {
	if !s.cronAuthorized(r) {
		s.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req sendBookReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.BookID == "" {
		s.respondError(w, http.StatusBadRequest, "email and bookId are required")
		return
	}

	sub, err := s.registry.ListByEmail(r.Context(), req.Email)
	if err != nil {
		s.handleError(w, err)
		return
	}

	for _, candidate := range sub {
		if candidate.BookID != req.BookID {
			continue
		}
		if err := s.dispatcher.SendOne(r.Context(), candidate); err != nil {
			s.handleError(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	s.respondError(w, http.StatusNotFound, "Subscription not found")
}
