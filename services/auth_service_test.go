package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userInfoServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestGoogleUserInfoClient_Success(t *testing.T) {
	srv := userInfoServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth2/v2/userinfo", r.URL.Path)
		assert.Equal(t, "Bearer good-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "1087", "email": "ana@example.com", "name": "Ana",
			"picture": "https://img/ana.png", "verified_email": true,
		})
	})

	client := NewGoogleUserInfoClient(srv.URL+"/", time.Second)
	user, err := client.FetchUserInfo(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, GoogleUser{
		ID: "1087", Email: "ana@example.com", Name: "Ana",
		Picture: "https://img/ana.png", VerifiedEmail: true,
	}, user)
}

func TestGoogleUserInfoClient_Errors(t *testing.T) {
	rejected := userInfoServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":401,"message":"Invalid Credentials"}}`, http.StatusUnauthorized)
	})
	_, err := NewGoogleUserInfoClient(rejected.URL+"/", time.Second).FetchUserInfo(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrUnauthorized)

	broken := userInfoServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	_, err = NewGoogleUserInfoClient(broken.URL+"/", time.Second).FetchUserInfo(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)

	slow := userInfoServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	_, err = NewGoogleUserInfoClient(slow.URL+"/", 50*time.Millisecond).FetchUserInfo(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUpstreamTimeout)

	gone := httptest.NewServer(http.NotFoundHandler())
	gone.Close()
	_, err = NewGoogleUserInfoClient(gone.URL+"/", time.Second).FetchUserInfo(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

type stubUserInfo struct {
	user GoogleUser
	err  error
}

func (s stubUserInfo) FetchUserInfo(context.Context, string) (GoogleUser, error) {
	return s.user, s.err
}

func TestAuthService_Exchange(t *testing.T) {
	issuer := newTestIssuer(t)
	svc := NewAuthService(stubUserInfo{user: GoogleUser{ID: "555", Email: "bo@example.com", VerifiedEmail: true}}, issuer)

	res, err := svc.ExchangeGoogleAccessToken(context.Background(), " access ")
	require.NoError(t, err)
	assert.Equal(t, "google:555", res.User.UID)
	assert.Equal(t, "bo", res.User.DisplayName, "name falls back to the email local part")
	assert.Nil(t, res.User.PhotoURL)
	assert.True(t, res.User.EmailVerified)

	id, err := NewSessionResolver(issuer).Resolve(context.Background(), res.CustomToken)
	require.NoError(t, err)
	assert.Equal(t, "google:555", id.Subject)
	assert.Equal(t, "google", id.Claims["provider"])
}

func TestAuthService_ExchangeFailures(t *testing.T) {
	issuer := newTestIssuer(t)

	_, err := NewAuthService(stubUserInfo{}, issuer).ExchangeGoogleAccessToken(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = NewAuthService(stubUserInfo{user: GoogleUser{ID: "1"}}, issuer).ExchangeGoogleAccessToken(context.Background(), "t")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewAuthService(stubUserInfo{err: ErrUpstreamTimeout}, issuer).ExchangeGoogleAccessToken(context.Background(), "t")
	assert.ErrorIs(t, err, ErrUpstreamTimeout)
}

func TestFormatGoogleUID(t *testing.T) {
	uid, err := FormatGoogleUID("10769150350006150715113082367")
	require.NoError(t, err)
	assert.Equal(t, "google:10769150350006150715113082367", uid)

	_, err = FormatGoogleUID("")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = FormatGoogleUID("bad id")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = FormatGoogleUID(strings.Repeat("9", 130))
	assert.ErrorIs(t, err, ErrValidation)
}
