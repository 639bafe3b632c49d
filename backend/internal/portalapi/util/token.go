package util

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"uniportal/backend/internal/shared"
)

// CustomClaims for JWT
type CustomClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 portal tokens
type TokenManager struct {
	secret     []byte
	expiration time.Duration
	issuer     string
}

// NewTokenManager builds a manager from the security config
func NewTokenManager(cfg shared.SecurityConfig) *TokenManager {
	hours := cfg.JWTExpirationHours
	if hours <= 0 {
		hours = 24
	}
	return &TokenManager{
		secret:     []byte(cfg.JWTSecret),
		expiration: time.Duration(hours) * time.Hour,
		issuer:     "uniportal",
	}
}

// Generate creates a signed JWT for a user
func (m *TokenManager) Generate(userID, role string) (string, time.Time, error) {
	expirationTime := time.Now().Add(m.expiration)

	claims := CustomClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			// jti keeps tokens unique even when issued in the same second
			ID:        shared.GenerateID("jti"),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, expirationTime, nil
}

// Parse verifies signature, expiry and role
func (m *TokenManager) Parse(tokenString string) (*CustomClaims, error) {
	claims := &CustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(m.issuer))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if !shared.IsValidRole(claims.Role) {
		return nil, fmt.Errorf("invalid role %q", claims.Role)
	}
	return claims, nil
}

// ============================================================================
// Request Context
// ============================================================================

type claimsKey struct{}

// WithClaims stores verified claims on the request context
func WithClaims(ctx context.Context, claims *CustomClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the caller's claims, or nil when the request is
// unauthenticated
func ClaimsFromContext(ctx context.Context) *CustomClaims {
	claims, _ := ctx.Value(claimsKey{}).(*CustomClaims)
	return claims
}
