package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tensosense-server-go/internal/domain/auth/model"
)

// DefaultTokenTTL is the session token lifetime.
const DefaultTokenTTL = 24 * time.Hour

// AuthToken signs and verifies stateless HS256 session tokens.
type AuthToken struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewAuthToken builds a token helper using the provided secret.
func NewAuthToken(secretKey string) *AuthToken {
	return &AuthToken{
		secretKey: []byte(secretKey),
		ttl:       DefaultTokenTTL,
		now:       time.Now,
	}
}

// WithTTL allows customising the expiration duration.
func (at *AuthToken) WithTTL(ttl time.Duration) *AuthToken {
	if ttl > 0 {
		at.ttl = ttl
	}
	return at
}

// GenerateToken issues a token embedding the identity and its expiry.
func (at *AuthToken) GenerateToken(id model.Identity) (string, time.Time, error) {
	if at == nil {
		return "", time.Time{}, errors.New("auth token is nil")
	}
	if len(at.secretKey) == 0 {
		return "", time.Time{}, errors.New("auth token secret is empty")
	}

	issuedAt := at.now()
	expireTime := issuedAt.Add(at.ttl)
	claims := jwt.MapClaims{
		"id":       id.ID,
		"username": id.Username,
		"role":     id.Role,
		"exp":      expireTime.Unix(),
		"iat":      issuedAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(at.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, expireTime, nil
}

// VerifyToken checks the signature and expiry and returns the embedded identity.
func (at *AuthToken) VerifyToken(tokenString string) (model.Identity, error) {
	if tokenString == "" {
		return model.Identity{}, ErrMissingToken
	}
	if at == nil || len(at.secretKey) == 0 {
		return model.Identity{}, fmt.Errorf("%w: verifier not configured", ErrInvalidToken)
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return at.secretKey, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(at.now))
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return model.Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.Identity{}, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}
	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return model.Identity{}, fmt.Errorf("%w: invalid username claim", ErrInvalidToken)
	}
	// numeric claims decode as float64
	rawID, ok := claims["id"].(float64)
	if !ok {
		return model.Identity{}, fmt.Errorf("%w: invalid id claim", ErrInvalidToken)
	}
	role, _ := claims["role"].(string)

	return model.Identity{
		ID:       int64(rawID),
		Username: username,
		Role:     role,
	}, nil
}
