package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/vocasync/metrics"
	"github.com/vnkhanh/vocasync/models"
	"github.com/vnkhanh/vocasync/services"
)

const (
	subjectKey = "user_id"
	claimsKey  = "claims"
)

// AuthMiddleware resolves the bearer credential with resolver and stores the
// subject id for the handlers. Nothing downstream runs without one.
func AuthMiddleware(resolver services.IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		// Some clients cannot set Authorization; accept X-Auth-Token instead.
		if authHeader == "" {
			if alt := c.GetHeader("X-Auth-Token"); alt != "" {
				authHeader = "Bearer " + alt
			}
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			metrics.IdentityFailures.WithLabelValues("missing").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Missing or invalid authorization header"})
			return
		}

		id, err := resolver.Resolve(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			AbortIdentity(c, err)
			return
		}

		c.Set(subjectKey, id.Subject)
		c.Set(claimsKey, id.Claims)
		c.Next()
	}
}

// AbortIdentity ends the request with the status matching a resolver error:
// 504 or 503 when the identity provider could not answer, 401 otherwise.
func AbortIdentity(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTokenExpired):
		metrics.IdentityFailures.WithLabelValues("expired").Inc()
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Token expired"})
	case errors.Is(err, services.ErrUpstreamTimeout):
		metrics.IdentityFailures.WithLabelValues("timeout").Inc()
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, models.ErrorResponse{Error: "Gateway timeout", Message: err.Error()})
	case errors.Is(err, services.ErrUpstreamUnavailable):
		metrics.IdentityFailures.WithLabelValues("unavailable").Inc()
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "Service unavailable", Message: err.Error()})
	default:
		metrics.IdentityFailures.WithLabelValues("invalid").Inc()
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid token"})
	}
}

// Subject returns the caller's subject id set by AuthMiddleware.
func Subject(c *gin.Context) string {
	return c.GetString(subjectKey)
}

// Claims returns the verified claims of the caller, if any.
func Claims(c *gin.Context) map[string]any {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(map[string]any)
	return claims
}
