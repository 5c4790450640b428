// Package auth provides session tokens, password hashing and the GitHub
// OAuth flow for the stashd API.
//
// Sessions are a JWT pair: a short-lived access token sent as a Bearer
// header on every API call, and a long-lived refresh token exchanged at
// /auth/refresh for a fresh pair. Both are HS256-signed with the same
// server secret; a "kind" claim keeps one from being used as the other.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "stash"

	// AccessTokenTTL bounds how long a stolen access token is useful.
	// Clients refresh transparently, so short is cheap.
	AccessTokenTTL = 15 * time.Minute

	// RefreshTokenTTL is how long a session survives without use.
	RefreshTokenTTL = 30 * 24 * time.Hour

	kindAccess  = "access"
	kindRefresh = "refresh"
)

// TokenService signs and validates the JWT session tokens.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given HMAC secret.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload: the registered set plus the token kind.
// Subject carries the account's internal ID.
type claims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// TokenPair is a freshly issued access/refresh pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access-token expiry
}

// Issue creates a new access/refresh pair for the given account ID.
func (s *TokenService) Issue(accountID string) (TokenPair, error) {
	now := time.Now()
	expiresAt := now.Add(AccessTokenTTL)

	access, err := s.sign(accountID, kindAccess, now, expiresAt)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(accountID, kindRefresh, now, now.Add(RefreshTokenTTL))
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}

// ValidateAccess verifies an access token and returns the account ID it
// encodes. Refresh tokens are rejected here.
func (s *TokenService) ValidateAccess(tokenStr string) (string, error) {
	return s.validate(tokenStr, kindAccess)
}

// ValidateRefresh verifies a refresh token and returns the account ID.
func (s *TokenService) ValidateRefresh(tokenStr string) (string, error) {
	return s.validate(tokenStr, kindRefresh)
}

func (s *TokenService) sign(accountID, kind string, now, expiresAt time.Time) (string, error) {
	c := claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing %s token: %w", kind, err)
	}
	return signed, nil
}

func (s *TokenService) validate(tokenStr, wantKind string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			// Pin the algorithm; never trust the token's own header.
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}
	if c.Kind != wantKind {
		return "", fmt.Errorf("auth: %s token used where %s token expected", c.Kind, wantKind)
	}
	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}
