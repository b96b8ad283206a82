package services

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error taxonomy shared by the sync engine and the identity resolvers. The
// HTTP layer maps these to status codes; everything else is a 500.
var (
	ErrValidation          = errors.New("validation failed")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrTokenExpired        = fmt.Errorf("%w: token expired", ErrUnauthorized)
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrStore               = errors.New("store failure")
)

// ValidationError describes a rejected request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// upstreamError classifies transport failures of outbound calls. It returns nil
// when err is not a transport failure.
func upstreamError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return nil
}

// storeError wraps a store failure, keeping deadlines distinguishable.
func storeError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, ErrUpstreamTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStore, err)
}
