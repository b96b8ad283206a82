package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/vocasync/models"
	"github.com/vnkhanh/vocasync/services"
)

type stubResolver struct {
	subject string
	err     error
}

func (s stubResolver) Resolve(_ context.Context, credential string) (services.Identity, error) {
	if s.err != nil {
		return services.Identity{}, s.err
	}
	return services.Identity{Subject: s.subject, Claims: map[string]any{"cred": credential}}, nil
}

func setupRouter(resolver services.IdentityResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(resolver), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": Subject(c), "cred": Claims(c)["cred"]})
	})
	return r
}

func doGet(r http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_Success(t *testing.T) {
	r := setupRouter(stubResolver{subject: "google:1"})

	for _, headers := range []map[string]string{
		{"Authorization": "Bearer tok"},
		{"X-Auth-Token": "tok"},
	} {
		w := doGet(r, headers)
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "google:1", body["subject"])
		assert.Equal(t, "tok", body["cred"])
	}
}

func TestAuthMiddleware_Failures(t *testing.T) {
	tests := []struct {
		name     string
		resolver stubResolver
		headers  map[string]string
		code     int
		errText  string
	}{
		{"no header", stubResolver{subject: "x"}, nil, http.StatusUnauthorized, "Missing or invalid authorization header"},
		{"basic auth", stubResolver{subject: "x"}, map[string]string{"Authorization": "Basic abc"}, http.StatusUnauthorized, "Missing or invalid authorization header"},
		{"empty bearer", stubResolver{subject: "x"}, map[string]string{"Authorization": "Bearer "}, http.StatusUnauthorized, "Missing or invalid authorization header"},
		{"expired", stubResolver{err: services.ErrTokenExpired}, map[string]string{"Authorization": "Bearer t"}, http.StatusUnauthorized, "Token expired"},
		{"invalid", stubResolver{err: errors.New("bad")}, map[string]string{"Authorization": "Bearer t"}, http.StatusUnauthorized, "Invalid token"},
		{"timeout", stubResolver{err: services.ErrUpstreamTimeout}, map[string]string{"Authorization": "Bearer t"}, http.StatusGatewayTimeout, "Gateway timeout"},
		{"unavailable", stubResolver{err: services.ErrUpstreamUnavailable}, map[string]string{"Authorization": "Bearer t"}, http.StatusServiceUnavailable, "Service unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(setupRouter(tt.resolver), tt.headers)
			assert.Equal(t, tt.code, w.Code)
			var body models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.errText, body.Error)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(RequestLogger(logger))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.Equal(t, generated, entry["request_id"])

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "client-id", w.Header().Get(RequestIDHeader))
}
