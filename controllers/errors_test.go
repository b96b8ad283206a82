package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vnkhanh/vocasync/services"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		err    error
		status int
		text   string
	}{
		{&services.ValidationError{Reason: "Missing deviceId or timestamp"}, http.StatusBadRequest, "Missing deviceId or timestamp"},
		{fmt.Errorf("wrapped: %w", services.ErrInvalidRating), http.StatusBadRequest, "rating: must be between 1 and 5"},
		{services.ErrTokenExpired, http.StatusUnauthorized, "Token expired"},
		{services.ErrUnauthorized, http.StatusUnauthorized, "Invalid token"},
		{fmt.Errorf("push: %w", services.ErrUpstreamTimeout), http.StatusGatewayTimeout, "Gateway timeout"},
		{services.ErrUpstreamUnavailable, http.StatusServiceUnavailable, "Service unavailable"},
		{fmt.Errorf("push: %w: disk", services.ErrStore), http.StatusInternalServerError, "Push sync failed"},
		{errors.New("boom"), http.StatusInternalServerError, "Push sync failed"},
		{context.Canceled, 499, "Request canceled"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, body := errorResponse(tt.err, "Push sync failed")
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.text, body.Error)
		})
	}
}
