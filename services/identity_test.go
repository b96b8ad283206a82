package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"cloud.google.com/go/auth/credentials/idtoken"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/vocasync/utils"
)

func newTestIssuer(t *testing.T) *utils.TokenIssuer {
	t.Helper()
	issuer, err := utils.NewTokenIssuer("test-secret", "vocasync-test", time.Hour)
	require.NoError(t, err)
	return issuer
}

func TestSessionResolver(t *testing.T) {
	issuer := newTestIssuer(t)
	resolver := NewSessionResolver(issuer)

	token, err := issuer.GenerateToken("google:42", utils.Claims{Email: "x@y.z"})
	require.NoError(t, err)

	id, err := resolver.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "google:42", id.Subject)
	assert.Equal(t, "x@y.z", id.Claims["email"])

	_, err = resolver.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = resolver.Resolve(context.Background(), "a.b.c")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSessionResolver_Expired(t *testing.T) {
	issuer := newTestIssuer(t)
	past := time.Now().Add(-2 * time.Hour)
	token, err := issuer.WithClock(func() time.Time { return past }).GenerateToken("u1", utils.Claims{})
	require.NoError(t, err)

	_, err = NewSessionResolver(issuer).Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

// An unsigned token carrying a plausible payload must not be accepted.
func TestSessionResolver_RejectsUnsignedPayload(t *testing.T) {
	unsigned := "eyJhbGciOiJub25lIn0.eyJzdWIiOiJ2aWN0aW0iLCJ1aWQiOiJ2aWN0aW0ifQ."
	_, err := NewSessionResolver(newTestIssuer(t)).Resolve(context.Background(), unsigned)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

type fakeValidator struct {
	payload *idtoken.Payload
	err     error
	wait    bool
}

func (f *fakeValidator) Validate(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
	if f.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.payload, f.err
}

func TestGoogleIDTokenResolver(t *testing.T) {
	ok := &fakeValidator{payload: &idtoken.Payload{Subject: "1234", Claims: map[string]any{"email": "g@x.io"}}}
	id, err := NewGoogleIDTokenResolverWith(ok, "client", time.Second).Resolve(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "google:1234", id.Subject)
	assert.Equal(t, "g@x.io", id.Claims["email"])

	tests := []struct {
		name string
		v    *fakeValidator
		want error
	}{
		{"bad signature", &fakeValidator{err: errors.New("idtoken: invalid token signature")}, ErrUnauthorized},
		{"no subject", &fakeValidator{payload: &idtoken.Payload{}}, ErrUnauthorized},
		{"unreachable", &fakeValidator{err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}, ErrUpstreamUnavailable},
		{"timeout", &fakeValidator{wait: true}, ErrUpstreamTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewGoogleIDTokenResolverWith(tt.v, "client", 20*time.Millisecond)
			_, err := r.Resolve(context.Background(), "tok")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func idTokenWithExpiry(exp int64) string {
	enc := base64.RawURLEncoding
	header := enc.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	payload := enc.EncodeToString([]byte(fmt.Sprintf(`{"sub":"1234","aud":"client","exp":%d}`, exp)))
	return header + "." + payload + "." + enc.EncodeToString([]byte("sig"))
}

func TestGoogleIDTokenResolver_Expiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rejecting := &fakeValidator{err: errors.New("idtoken: validation failed")}
	r := NewGoogleIDTokenResolverWith(rejecting, "client", time.Second)
	r.now = func() time.Time { return now }

	_, err := r.Resolve(context.Background(), idTokenWithExpiry(now.Unix()-60))
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = r.Resolve(context.Background(), idTokenWithExpiry(now.Unix()+3600))
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrTokenExpired)

	_, err = r.Resolve(context.Background(), "not-a-jwt")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrTokenExpired)
}
