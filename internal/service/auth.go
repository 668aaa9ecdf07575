package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/config"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrKeyRevoked         = errors.New("api key revoked")
)

const (
	// KeyPrefix starts every generated API key.
	KeyPrefix = "sm_"

	// DefaultTokenTTL bounds tokens issued without an explicit lifetime.
	DefaultTokenTTL = time.Hour

	tokenIssuer = "stockmaster"
)

// Principal identifies the API key behind a request, whether it presented the
// key itself or a token exchanged for it.
type Principal struct {
	KeyID     int64
	KeyPrefix string
}

type AuthService struct {
	store     *config.Store
	jwtSecret []byte
}

func NewAuthService(store *config.Store, jwtSecret string) *AuthService {
	return &AuthService{
		store:     store,
		jwtSecret: []byte(jwtSecret),
	}
}

// GenerateAPIKey stores a new key labelled label and returns the raw key. The
// raw key is shown once; only its hash is persisted.
func (s *AuthService) GenerateAPIKey(ctx context.Context, label string, expiresAt *time.Time) (string, *model.APIKey, error) {
	// 32 random bytes, hex encoded, prefixed with "sm_"
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", nil, fmt.Errorf("generate random key: %w", err)
	}
	rawKey := KeyPrefix + hex.EncodeToString(randomBytes)

	key := &model.APIKey{
		KeyHash:   config.HashAPIKey(rawKey),
		KeyPrefix: rawKey[:len(KeyPrefix)+8],
		Label:     label,
		IsActive:  true,
		ExpiresAt: expiresAt,
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return "", nil, err
	}
	return rawKey, key, nil
}

// ValidateAPIKey checks the provided raw API key against stored key hashes.
func (s *AuthService) ValidateAPIKey(ctx context.Context, rawKey string) (*Principal, error) {
	key, err := s.store.GetAPIKeyByHash(ctx, config.HashAPIKey(rawKey))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !key.IsActive {
		return nil, ErrKeyRevoked
	}

	if key.Expired(time.Now()) {
		return nil, ErrTokenExpired
	}

	// Update last used timestamp (fire and forget)
	go s.store.UpdateAPIKeyLastUsed(context.WithoutCancel(ctx), key.ID)

	return &Principal{KeyID: key.ID, KeyPrefix: key.KeyPrefix}, nil
}

// IssueToken creates a signed bearer token for p that expires after ttl.
func (s *AuthService) IssueToken(ctx context.Context, p *Principal, ttl time.Duration) (string, time.Time, error) {
	if len(s.jwtSecret) == 0 {
		return "", time.Time{}, errors.New("token secret is not configured")
	}
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()
	expires := now.Add(ttl)
	claims := tokenClaims{
		KeyID:     p.KeyID,
		KeyPrefix: p.KeyPrefix,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ValidateToken verifies a bearer token and returns the key it was issued for.
func (s *AuthService) ValidateToken(ctx context.Context, tokenStr string) (*Principal, error) {
	if len(s.jwtSecret) == 0 {
		return nil, ErrInvalidCredentials
	}
	claims := &tokenClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidCredentials
	}

	if !token.Valid {
		return nil, ErrInvalidCredentials
	}

	return &Principal{KeyID: claims.KeyID, KeyPrefix: claims.KeyPrefix}, nil
}

type tokenClaims struct {
	KeyID     int64  `json:"key_id"`
	KeyPrefix string `json:"key_prefix"`
	jwt.RegisteredClaims
}
