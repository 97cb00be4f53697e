// Flytrap - Honeypot Session Capture and Live Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/flytrap

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/flytrap/internal/logging"
)

type contextKey string

// ClaimsContextKey holds the authenticated monitor's claims in the request
// context after the Authenticate middleware runs.
const ClaimsContextKey contextKey = "claims"

// Middleware enforces JWT authentication on monitor endpoints.
type Middleware struct {
	jwtManager *JWTManager
	enabled    bool
}

// NewMiddleware creates authentication middleware. When auth is disabled the
// middleware passes every request through unchanged.
func NewMiddleware(jwtManager *JWTManager, enabled bool) *Middleware {
	return &Middleware{
		jwtManager: jwtManager,
		enabled:    enabled,
	}
}

// Authenticate is middleware that enforces a valid monitor token.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled {
			next(w, r)
			return
		}

		token, err := m.extractToken(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			logging.Error().Err(err).Msg("Token validation failed")
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// extractToken pulls the JWT from the Authorization header, the token
// cookie, or the token query parameter. The query parameter exists because
// EventSource and browser WebSocket clients cannot set request headers.
func (m *Middleware) extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", fmt.Errorf("unauthorized: invalid authorization header")
		}
		return parts[1], nil
	}

	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}

	return "", fmt.Errorf("unauthorized: missing token")
}

// GetClaims retrieves the authenticated claims from a request context.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok
}
