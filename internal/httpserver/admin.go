package httpserver

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type setUserProRequest struct {
	Email  string `json:"email"`
	UserID string `json:"userId"`
	Secret string `json:"secret"`
}

// adminSecretOK checks the caller's shared secret, taken from the
// Authorization header or the request body. A configured bcrypt hash
// takes precedence over the plaintext secret.
func (s *Server) adminSecretOK(r *http.Request, bodySecret string) bool {
	secret := bodySecret
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			secret = parts[1]
		}
	}
	if secret == "" {
		return false
	}

	if s.cfg.AdminSecretHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminSecretHash), []byte(secret)) == nil
	}
	if s.cfg.AdminSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.cfg.AdminSecret), []byte(secret)) == 1
}

// HandleSetUserPro grants a year of Pro to every account registered
// under the given email.
func (s *Server) HandleSetUserPro(w http.ResponseWriter, r *http.Request) {
	var req setUserProRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Email == "" {
		s.respondError(w, http.StatusBadRequest, "Email is required")
		return
	}

	if !s.adminSecretOK(r, req.Secret) {
		s.respondError(w, http.StatusUnauthorized, "Invalid admin secret")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	users, err := s.users.GetUsersByEmail(r.Context(), email)
	if err != nil {
		s.handleError(w, err)
		return
	}
	if len(users) == 0 {
		s.respondError(w, http.StatusNotFound, "No user found with that email")
		return
	}

	now := time.Now()
	updated := 0
	for _, user := range users {
		until, err := s.entitlements.GrantPro(r.Context(), user.ID, now)
		if err != nil {
			s.handleError(w, err)
			return
		}
		updated++
		s.log.Info(
			"Pro granted by admin",
			"user_id", user.ID,
			"email", email,
			"until", until.Format(time.RFC3339),
		)
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"updated": updated,
	})
}

// HandleSetProStatus grants a year of Pro to one account by id.
func (s *Server) HandleSetProStatus(w http.ResponseWriter, r *http.Request) {
	var req setUserProRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.UserID == "" {
		s.respondError(w, http.StatusBadRequest, "userId is required")
		return
	}

	if !s.adminSecretOK(r, req.Secret) {
		s.respondError(w, http.StatusUnauthorized, "Invalid admin secret")
		return
	}

	if _, err := s.users.GetUser(r.Context(), req.UserID); err != nil {
		s.respondError(w, http.StatusNotFound, "User not found")
		return
	}

	until, err := s.entitlements.GrantPro(r.Context(), req.UserID, time.Now())
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"userId":             req.UserID,
		"proSubscriptionEnd": until.Format(time.RFC3339),
	})
}

// HandleAdminListSubscriptions lists every book subscription.
func (s *Server) HandleAdminListSubscriptions(w http.ResponseWriter, r *http.Request) {
	if !s.adminSecretOK(r, r.URL.Query().Get("secret")) {
		s.respondError(w, http.StatusUnauthorized, "Invalid admin secret")
		return
	}

	subs, err := s.registry.ListAll(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"subscriptions": subs,
		"count":         len(subs),
	})
}
