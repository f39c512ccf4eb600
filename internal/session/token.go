package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims holds the JWT payload for access tokens. Subject is the account id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenService issues and validates HS256 access tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

const tokenIssuer = "tweakgen"

// NewTokenService creates a TokenService. An empty secret disables bearer
// authentication: Issue and Validate both fail.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Enabled reports whether a signing secret is configured.
func (s *TokenService) Enabled() bool { return len(s.secret) > 0 }

// Issue signs an access token for the account.
func (s *TokenService) Issue(accountID uuid.UUID, email string) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, errors.New("token: no signing secret configured")
	}
	now := time.Now()
	expires := now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    tokenIssuer,
		},
		Email: email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expires, nil
}

// Validate parses a token and returns the session data it carries.
func (s *TokenService) Validate(tokenString string) (*Data, error) {
	if !s.Enabled() {
		return nil, errors.New("token: no signing secret configured")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("token subject: %w", err)
	}
	return &Data{AccountID: id, Email: claims.Email, CreatedAt: claims.IssuedAt.Time}, nil
}
