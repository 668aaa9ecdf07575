package handler

import (
	"net/http"
	"time"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/server/middleware"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/service"
)

// TokenHandler exchanges API keys for short-lived bearer tokens.
type TokenHandler struct {
	authSvc *service.AuthService
	ttl     time.Duration
}

// NewTokenHandler creates a new TokenHandler issuing tokens valid for ttl.
func NewTokenHandler(authSvc *service.AuthService, ttl time.Duration) *TokenHandler {
	if ttl <= 0 {
		ttl = service.DefaultTokenTTL
	}
	return &TokenHandler{authSvc: authSvc, ttl: ttl}
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Issue signs a token for the API key that authenticated the request. It
// must run behind middleware.RequireAPIKey.
// POST /api/v1/auth/token
func (h *TokenHandler) Issue(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "API key required", map[string]interface{}{"kind": "unauthorized"})
		return
	}

	token, expires, err := h.authSvc.IssueToken(r.Context(), &service.Principal{KeyID: p.KeyID, KeyPrefix: p.KeyPrefix}, h.ttl)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(h.ttl.Seconds()),
		ExpiresAt:   expires.UTC(),
	})
}
