package xero

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/ledgersync/internal/core/domain"
)

// RateLimitError represents an HTTP 429 response.
type RateLimitError struct {
	// RetryAfter is how long the server asked us to wait.
	RetryAfter time.Duration

	// Attempts is the number of rate-limited attempts for the request.
	Attempts int
}

func (e *RateLimitError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("xero: rate limit exceeded after %d attempts, retry after %s", e.Attempts, e.RetryAfter)
	}
	return fmt.Sprintf("xero: rate limit exceeded, retry after %s", e.RetryAfter)
}

// Is matches domain.ErrRateLimited.
func (e *RateLimitError) Is(target error) bool { return target == domain.ErrRateLimited }

// APIError represents a non-success API response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("xero: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsUnauthorized reports whether the API refused the access token.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}
