package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/asmrbible/backend/internal/auth"
)

const stateCookieName = "auth_state"

// oidcEnabled rejects the provider flow when no OIDC section was
// configured. Refresh keeps working; it only needs the JWT secret.
func (s *Server) oidcEnabled(w http.ResponseWriter) bool {
	if s.oidc == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Sign-in is not configured")
		return false
	}
	return true
}

// HandleLogin redirects to the identity provider with a fresh state
// value bound to the browser through a short-lived cookie.
func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.oidcEnabled(w) {
		return
	}

	state, err := auth.NewState()
	if err != nil {
		s.handleError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(10 * time.Minute),
	})

	http.Redirect(w, r, s.oidc.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback finishes the provider flow: state check, code
// exchange, account provisioning, then the API token pair.
func (s *Server) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if !s.oidcEnabled(w) {
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		s.respondError(w, http.StatusBadRequest, "State mismatch")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		s.respondError(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	ident, err := s.oidc.Exchange(r.Context(), code)
	if err != nil {
		s.log.Error("Code exchange failed", "error", err)
		s.respondError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}

	user, pair, err := s.oidc.SignIn(r.Context(), ident)
	if err != nil {
		s.handleError(w, err)
		return
	}

	// Clear the state cookie now that it is used up.
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	s.respondJSON(w, http.StatusOK, map[string]any{
		"user":   user,
		"tokens": pair,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HandleRefreshToken trades a refresh token for a new pair.
func (s *Server) HandleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RefreshToken == "" {
		s.respondError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := s.jwtService.Refresh(req.RefreshToken)
	if err != nil {
		s.log.Warn("Refresh token rejected", "error", err)
		s.respondError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	s.respondJSON(w, http.StatusOK, pair)
}
