package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pulseboard/realtime-backend/internal/core/domain"
)

// TokenKind distinguishes access tokens (presented at the socket handshake
// and on API requests) from refresh tokens (only accepted by the refresh
// endpoint).
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims defines the structured data we store in the JWT
type Claims struct {
	TenantID uuid.UUID   `json:"tenant_id"`
	UserID   uuid.UUID   `json:"user_id"`
	Role     domain.Role `json:"role"`
	Kind     TokenKind   `json:"kind"`
	jwt.RegisteredClaims
}

// Identity returns the connection identity carried by these claims.
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{TenantID: c.TenantID, UserID: c.UserID, Role: c.Role}
}

type TokenManager struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secretKey:  []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// GenerateAccessToken creates a new JWT access token for the identity.
func (tm *TokenManager) GenerateAccessToken(identity domain.Identity) (string, error) {
	return tm.generate(identity, KindAccess, tm.accessTTL)
}

// GenerateRefreshToken creates a new JWT refresh token for the identity.
func (tm *TokenManager) GenerateRefreshToken(identity domain.Identity) (string, error) {
	return tm.generate(identity, KindRefresh, tm.refreshTTL)
}

func (tm *TokenManager) generate(identity domain.Identity, kind TokenKind, ttl time.Duration) (string, error) {
	claims := &Claims{
		TenantID: identity.TenantID,
		UserID:   identity.UserID,
		Role:     identity.Role,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   identity.UserID.String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secretKey)
}

// ValidateAccessToken parses and validates an access token string.
func (tm *TokenManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	return tm.validate(tokenString, KindAccess)
}

// ValidateRefreshToken parses and validates a refresh token string.
func (tm *TokenManager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return tm.validate(tokenString, KindRefresh)
}

func (tm *TokenManager) validate(tokenString string, kind TokenKind) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secretKey, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.Kind != kind {
		return nil, errors.New("wrong token kind")
	}

	if claims.TenantID == uuid.Nil || claims.UserID == uuid.Nil {
		return nil, errors.New("token carries no identity")
	}

	return claims, nil
}
