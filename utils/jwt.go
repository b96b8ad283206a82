package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by a session token. Subject is the storage namespace of the user.
type Claims struct {
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
	Provider string `json:"provider,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret, issuer string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid token ttl %s", ttl)
	}
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the time source, used by tests.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	cp := *t
	cp.now = now
	return &cp
}

// GenerateToken issues a token for subject. Registered claims in extra are overwritten.
func (t *TokenIssuer) GenerateToken(subject string, extra Claims) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is empty")
	}
	now := t.now()
	claims := extra
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    t.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature, issuer and expiry. Expired tokens yield an
// error matching jwt.ErrTokenExpired.
func (t *TokenIssuer) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// TTL returns the lifetime of issued tokens.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}
