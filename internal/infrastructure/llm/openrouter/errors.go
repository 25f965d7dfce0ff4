package openrouter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/kirillkom/corpus-chat/internal/core/domain"
	"github.com/kirillkom/corpus-chat/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "openrouter status error"
	}
	if e.Message == "" {
		return fmt.Sprintf("openrouter status: %s", e.Status)
	}
	return fmt.Sprintf("openrouter status: %s: %s", e.Status, e.Message)
}

func classifyGenerationError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			// Retrying a rate-limited call only burns more quota.
			return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
		case statusErr.StatusCode == http.StatusUnauthorized,
			statusErr.StatusCode == http.StatusForbidden,
			statusErr.StatusCode == http.StatusBadRequest:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		case statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusRequestTimeout:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

// wrapGenerationError converts transport-level failures into the domain
// failure taxonomy: rate-limited, unauthenticated, bad-request, transient.
// Anything unrecognized passes through as the "unknown" kind.
func wrapGenerationError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return domain.WrapError(domain.ErrRateLimited, "generate answer", err)
		case statusErr.StatusCode == http.StatusUnauthorized, statusErr.StatusCode == http.StatusForbidden:
			return domain.WrapError(domain.ErrUnauthenticated, "generate answer", err)
		case statusErr.StatusCode == http.StatusBadRequest:
			return domain.WrapError(domain.ErrInvalidInput, "generate answer", err)
		case statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusRequestTimeout:
			return domain.WrapError(domain.ErrTemporary, "generate answer", err)
		}
		return err
	}

	if resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "generate answer", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.WrapError(domain.ErrTemporary, "generate answer", err)
	}
	return err
}
