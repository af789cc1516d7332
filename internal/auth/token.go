package auth

import (
	"errors" // Error matching
	"fmt"    // Error wrapping
	"time"   // Expiry

	"github.com/golang-jwt/jwt/v5" // JWT library
)

var (
	// ErrTokenMalformed is returned for tokens that cannot be parsed
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenSignatureInvalid is returned for tokens signed with another key or algorithm
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	// ErrTokenExpired is returned for tokens past their exp claim
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMissingSubject is returned for tokens without a sub claim
	ErrTokenMissingSubject = errors.New("token has no subject")
)

// TokenIssuer mints and verifies HMAC signed session tokens
type TokenIssuer struct {
	secret []byte            // HMAC key
	method jwt.SigningMethod // HS256, HS384 or HS512
	ttl    time.Duration     // Default lifetime
	now    func() time.Time  // Clock
}

// NewTokenIssuer creates an issuer for the named HMAC algorithm
func NewTokenIssuer(secret, algorithm string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	return &TokenIssuer{secret: []byte(secret), method: method, ttl: ttl, now: time.Now}, nil
}

// TTL is the default token lifetime
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue signs a token for subject valid for ttl (the default TTL when ttl <= 0)
func (t *TokenIssuer) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = t.ttl
	}
	now := t.now()
	exp := now.Add(ttl)
	// Standard claims only: subject, issued at and expiry
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(t.method, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks the token and returns its subject
func (t *TokenIssuer) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil // Return the secret key for validation
	},
		jwt.WithValidMethods([]string{t.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "", ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return "", ErrTokenSignatureInvalid
	default:
		return "", fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if claims.Subject == "" {
		return "", ErrTokenMissingSubject
	}
	return claims.Subject, nil
}
