package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/auth/credentials/idtoken"
	"github.com/golang-jwt/jwt/v5"

	"github.com/vnkhanh/vocasync/utils"
)

// Identity is the verified owner of a request. Subject is the storage namespace.
type Identity struct {
	Subject string
	Claims  map[string]any
}

// IdentityResolver turns a bearer credential into a verified identity. A
// process runs exactly one implementation.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (Identity, error)
}

// SessionResolver accepts session tokens issued by this service.
type SessionResolver struct {
	tokens *utils.TokenIssuer
}

func NewSessionResolver(tokens *utils.TokenIssuer) *SessionResolver {
	return &SessionResolver{tokens: tokens}
}

func (r *SessionResolver) Resolve(_ context.Context, credential string) (Identity, error) {
	if credential == "" {
		return Identity{}, fmt.Errorf("%w: empty credential", ErrUnauthorized)
	}
	claims, err := r.tokens.VerifyToken(credential)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return Identity{}, ErrTokenExpired
	}
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return Identity{
		Subject: claims.Subject,
		Claims: map[string]any{
			"email":    claims.Email,
			"name":     claims.Name,
			"provider": claims.Provider,
		},
	}, nil
}

// IDTokenValidator is the part of idtoken.Validator used here.
type IDTokenValidator interface {
	Validate(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// GoogleIDTokenResolver verifies Google-signed ID tokens against Google's
// published certificates. The certificate fetch is bounded by timeout.
type GoogleIDTokenResolver struct {
	validator IDTokenValidator
	audience  string
	timeout   time.Duration
	now       func() time.Time
}

func NewGoogleIDTokenResolver(audience string, timeout time.Duration) (*GoogleIDTokenResolver, error) {
	if audience == "" {
		return nil, errors.New("google client id is required to verify ID tokens")
	}
	v, err := idtoken.NewValidator(&idtoken.ValidatorOptions{})
	if err != nil {
		return nil, fmt.Errorf("create id token validator: %w", err)
	}
	return NewGoogleIDTokenResolverWith(v, audience, timeout), nil
}

// NewGoogleIDTokenResolverWith uses a custom validator.
func NewGoogleIDTokenResolverWith(v IDTokenValidator, audience string, timeout time.Duration) *GoogleIDTokenResolver {
	return &GoogleIDTokenResolver{validator: v, audience: audience, timeout: timeout, now: time.Now}
}

func (r *GoogleIDTokenResolver) Resolve(ctx context.Context, credential string) (Identity, error) {
	if credential == "" {
		return Identity{}, fmt.Errorf("%w: empty credential", ErrUnauthorized)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	payload, err := r.validator.Validate(ctx, credential, r.audience)
	if err != nil {
		if uerr := upstreamError(err); uerr != nil {
			return Identity{}, uerr
		}
		if r.expired(credential) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if payload.Subject == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	return Identity{Subject: "google:" + payload.Subject, Claims: payload.Claims}, nil
}

// expired reads exp from a token that already failed validation. The payload
// is unverified, so it only picks the rejection message.
func (r *GoogleIDTokenResolver) expired(credential string) bool {
	payload, err := idtoken.ParsePayload(credential)
	if err != nil || payload.Expires == 0 {
		return false
	}
	return r.now().Unix() >= payload.Expires
}
