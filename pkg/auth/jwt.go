package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"carelog-backend/domain/entities"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrMissingToken  = errors.New("missing authentication token")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Claims represents the JWT claims carried by a session token.
type Claims struct {
	UserID string        `json:"sub"`
	Email  string        `json:"email"`
	Role   entities.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 session tokens.
type TokenManager struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
}

// NewTokenManager creates a token manager. A zero ttl defaults to 12 hours,
// matching the original session lifetime.
func NewTokenManager(secret, issuer string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("secret key required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenManager{
		secretKey: []byte(secret),
		issuer:    issuer,
		ttl:       ttl,
	}, nil
}

// Issue signs a token for the given user.
func (m *TokenManager) Issue(user *entities.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Validate parses and validates a token string and returns its claims.
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	tokenString = strings.TrimSpace(tokenString)

	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method)
		}
		return m.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	if m.issuer != "" && claims.Issuer != m.issuer {
		return nil, fmt.Errorf("%w: invalid issuer", ErrInvalidClaims)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidClaims, claims.Role)
	}

	return claims, nil
}
