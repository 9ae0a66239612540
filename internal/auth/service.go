// Package auth implements Google sign-in through OIDC and hands out
// the API's own token pair once the identity is verified.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/asmrbible/backend/internal/db"
	"github.com/asmrbible/backend/internal/entitlement"
	"github.com/asmrbible/backend/pkg/jwt"
)

// Identity is what the provider asserts about the signed-in account.
type Identity struct {
	Subject     string
	Email       string
	DisplayName string
	PhotoURL    string
}

// Service drives the authorization-code flow against one OIDC provider.
type Service struct {
	provider    *oidc.Provider
	oauthConfig oauth2.Config
	verifier    *oidc.IDTokenVerifier
	users       db.UserStore
	tokens      *jwt.Service
	log         *log.Logger
}

func NewService(ctx context.Context, providerURL, clientID, clientSecret, redirectURL string, users db.UserStore, tokens *jwt.Service, logger *log.Logger) (*Service, error) {
	provider, err := oidc.NewProvider(ctx, providerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query oidc provider: %w", err)
	}

	oauthConfig := oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	return &Service{
		provider:    provider,
		oauthConfig: oauthConfig,
		verifier:    provider.Verifier(&oidc.Config{ClientID: clientID}),
		users:       users,
		tokens:      tokens,
		log:         logger,
	}, nil
}

// NewState returns a random value to bind the login redirect to its
// callback.
func NewState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// AuthCodeURL builds the provider redirect for the login handler.
func (s *Service) AuthCodeURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state)
}

// Exchange trades the callback code for a verified identity.
func (s *Service) Exchange(ctx context.Context, code string) (*Identity, error) {
	oauth2Token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("no id_token in token response")
	}

	idToken, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id token: %w", err)
	}

	var claims struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse id token claims: %w", err)
	}
	if claims.Sub == "" {
		return nil, fmt.Errorf("id token has no subject")
	}

	return &Identity{
		Subject:     claims.Sub,
		Email:       claims.Email,
		DisplayName: claims.Name,
		PhotoURL:    claims.Picture,
	}, nil
}

// SignIn provisions or refreshes the account for a verified identity
// and issues the API token pair.
func (s *Service) SignIn(ctx context.Context, ident *Identity) (*entitlement.User, *jwt.TokenPair, error) {
	user, err := s.users.EnsureUser(ctx, &entitlement.User{
		ID:          ident.Subject,
		Email:       ident.Email,
		DisplayName: ident.DisplayName,
		PhotoURL:    ident.PhotoURL,
		LastLoginAt: time.Now(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to provision user: %w", err)
	}

	pair, err := s.tokens.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	s.log.Info(
		"User signed in",
		"user_id", user.ID,
		"email", user.Email,
	)

	return user, pair, nil
}
