package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/asmrbible/backend/pkg/jwt"
)

type contextKey string

const userContextKey contextKey = "user"

// AuthMiddleware requires a valid bearer access token and stores its
// claims on the request context.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.respondError(w, http.StatusUnauthorized, "Missing Authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
			return
		}

		claims, err := s.jwtService.ValidateToken(parts[1], jwt.AccessToken)
		if err != nil {
			s.log.Warn("Token validation failed", "error", err)
			s.respondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userClaims returns the authenticated user's claims, or nil outside
// an authenticated route.
func userClaims(ctx context.Context) *jwt.Claims {
	claims, _ := ctx.Value(userContextKey).(*jwt.Claims)
	return claims
}
