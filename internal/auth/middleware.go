// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
	"github.com/tomtom215/sentinel/internal/models"
)

type contextKey string

const ClaimsContextKey contextKey = "claims"

// Authentication modes.
const (
	ModeNone = "none"
	ModeJWT  = "jwt"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errMalformed    = errors.New("authorization header must be 'Bearer <token>'")
)

// Middleware enforces bearer authentication.
type Middleware struct {
	jwtManager *JWTManager
	authMode   string
}

// NewMiddleware creates authentication middleware. jwtManager may be nil when
// authMode is "none".
func NewMiddleware(jwtManager *JWTManager, authMode string) *Middleware {
	if authMode == "" {
		authMode = ModeJWT
	}
	return &Middleware{
		jwtManager: jwtManager,
		authMode:   authMode,
	}
}

// Mode returns the configured authentication mode.
func (m *Middleware) Mode() string {
	return m.authMode
}

// Authenticate rejects requests without a valid bearer token and stores the
// claims in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.authMode == ModeNone {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			metrics.AuthFailures.WithLabelValues("missing").Inc()
			respondUnauthorized(w, "Unauthorized: "+err.Error())
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			metrics.AuthFailures.WithLabelValues("invalid").Inc()
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Token validation failed")
			respondUnauthorized(w, "Unauthorized: invalid token")
			return
		}

		ctx := ContextWithClaims(r.Context(), claims)
		ctx = logging.ContextWithUserID(ctx, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractBearerToken parses "Bearer <token>".
func extractBearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errMalformed
	}
	return strings.TrimSpace(parts[1]), nil
}

// ContextWithClaims stores claims in ctx.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, claims)
}

// ClaimsFromContext returns the authenticated claims, or nil when
// authentication is disabled.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsContextKey).(*Claims)
	return claims
}

// CanAccessUser reports whether the caller in ctx may act on userID.
// Without claims (auth mode "none") every caller may.
func CanAccessUser(ctx context.Context, userID string) bool {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return true
	}
	switch claims.Role {
	case RoleAdmin, RoleService:
		return true
	}
	return claims.Subject == userID
}

// IsPrivileged reports whether the caller may list data across users.
func IsPrivileged(ctx context.Context) bool {
	claims := ClaimsFromContext(ctx)
	return claims == nil || claims.Role == RoleAdmin || claims.Role == RoleService
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	body, err := json.Marshal(&models.APIResponse{
		Status:   models.StatusError,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error: &models.APIError{
			Code:    models.CodeAuthentication,
			Message: message,
		},
	})
	if err != nil {
		http.Error(w, message, http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="sentinel"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write(body)
}
