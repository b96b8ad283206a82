package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/vocasync/models"
	"github.com/vnkhanh/vocasync/services"
)

// respondError maps a service error onto a status code and JSON body. fallback
// is the error text used for unexpected failures, e.g. "Push sync failed".
func respondError(c *gin.Context, err error, fallback string) {
	status, body := errorResponse(err, fallback)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), fallback, "err", err, "path", c.FullPath())
	}
	c.AbortWithStatusJSON(status, body)
}

func errorResponse(err error, fallback string) (int, models.ErrorResponse) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, models.ErrorResponse{Error: ve.Error()}
	case errors.Is(err, services.ErrTokenExpired):
		return http.StatusUnauthorized, models.ErrorResponse{Error: "Token expired"}
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid token"}
	case errors.Is(err, services.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, models.ErrorResponse{Error: "Gateway timeout", Message: err.Error()}
	case errors.Is(err, services.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, models.ErrorResponse{Error: "Service unavailable", Message: err.Error()}
	case errors.Is(err, context.Canceled):
		// client went away; the status is never seen
		return 499, models.ErrorResponse{Error: "Request canceled"}
	}
	return http.StatusInternalServerError, models.ErrorResponse{Error: fallback, Message: err.Error()}
}
