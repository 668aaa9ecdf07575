package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/model"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/service"
)

type contextKeyAuth string

const (
	// AuthPrincipalKey is the context key for the authenticated principal.
	AuthPrincipalKey contextKeyAuth = "auth_principal"

	// APIKeyHeader carries a raw API key.
	APIKeyHeader = "X-API-Key"
)

// How a principal authenticated.
const (
	MethodAPIKey = "api_key"
	MethodToken  = "token"
)

// Principal represents the authenticated identity making the request.
type Principal struct {
	Method    string
	KeyID     int64
	KeyPrefix string
}

// Authenticate returns an HTTP middleware that validates the request's
// credentials. It accepts either:
//
//  1. a raw API key in the X-API-Key header
//  2. a bearer token issued by the token exchange endpoint
//
// On success, a Principal is attached to the request context. On failure,
// a 401 JSON error response is returned.
func Authenticate(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return authenticate(authSvc, true)
}

// RequireAPIKey is like Authenticate but only accepts a raw API key. It
// guards the token exchange so tokens cannot be used to mint new tokens.
func RequireAPIKey(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return authenticate(authSvc, false)
}

func authenticate(authSvc *service.AuthService, allowToken bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var principal *Principal

			if apiKey := r.Header.Get(APIKeyHeader); apiKey != "" {
				p, err := authSvc.ValidateAPIKey(r.Context(), apiKey)
				if err != nil {
					writeAuthError(w, "Invalid API key", err)
					return
				}
				principal = &Principal{Method: MethodAPIKey, KeyID: p.KeyID, KeyPrefix: p.KeyPrefix}
			}

			if principal == nil && allowToken {
				authHeader := r.Header.Get("Authorization")
				if strings.HasPrefix(authHeader, "Bearer ") {
					token := strings.TrimPrefix(authHeader, "Bearer ")
					p, err := authSvc.ValidateToken(r.Context(), token)
					if err != nil {
						writeAuthError(w, "Invalid token", err)
						return
					}
					principal = &Principal{Method: MethodToken, KeyID: p.KeyID, KeyPrefix: p.KeyPrefix}
				}
			}

			if principal == nil {
				msg := "Authentication required. Provide the X-API-Key header."
				if allowToken {
					msg = "Authentication required. Provide X-API-Key header or Bearer token."
				}
				writeAuthError(w, msg, nil)
				return
			}

			notePrincipal(r.Context(), principal)
			ctx := context.WithValue(r.Context(), AuthPrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present (i.e., unauthenticated request).
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, service.ErrKeyRevoked):
		message += ": key revoked"
	case errors.Is(err, service.ErrTokenExpired):
		message += ": expired"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    http.StatusUnauthorized,
			Message: message,
			Context: map[string]any{"kind": "unauthorized"},
		},
	})
}
