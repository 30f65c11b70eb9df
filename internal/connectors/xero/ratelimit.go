package xero

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/ledgersync/internal/logger"
)

const (
	// HeaderRetryAfter is the retry-after header (seconds or HTTP date).
	HeaderRetryAfter = "Retry-After"

	// HeaderMinuteRemaining is Xero's remaining per-minute call count.
	HeaderMinuteRemaining = "X-MinLimit-Remaining"

	// HeaderDayRemaining is Xero's remaining per-day call count.
	HeaderDayRemaining = "X-DayLimit-Remaining"

	// MinuteWindow is the span of the per-minute call allowance.
	MinuteWindow = time.Minute

	// DayLowWater is the remaining daily allowance below which a warning is logged.
	DayLowWater = 100
)

// RateLimiter throttles requests and interprets 429 responses.
// It also tracks the remaining-call headers: an exhausted minute allowance
// holds the next request until the window has passed.
type RateLimiter struct {
	bucket            *rate.Limiter
	defaultRetryAfter time.Duration
	now               func() time.Time
	sleep             func(ctx context.Context, d time.Duration) error

	mu              sync.Mutex
	minuteRemaining int // -1 when unknown
	dayRemaining    int // -1 when unknown
	exhaustedAt     time.Time
	warnedDay       bool
}

// NewRateLimiter creates a limiter allowing requestsPerSecond requests.
// A non-positive rate disables proactive throttling.
func NewRateLimiter(requestsPerSecond float64, defaultRetryAfter time.Duration) *RateLimiter {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if defaultRetryAfter <= 0 {
		defaultRetryAfter = 5 * time.Second
	}
	return &RateLimiter{
		bucket:            rate.NewLimiter(limit, 1),
		defaultRetryAfter: defaultRetryAfter,
		now:               time.Now,
		sleep:             sleepContext,
		minuteRemaining:   -1,
		dayRemaining:      -1,
	}
}

// Wait blocks until the token bucket allows another request and the
// minute allowance, when exhausted, has been replenished.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	var hold time.Duration
	if r.minuteRemaining == 0 {
		hold = r.exhaustedAt.Add(MinuteWindow).Sub(r.now())
		r.minuteRemaining = -1
	}
	r.mu.Unlock()

	if hold <= 0 {
		return nil
	}
	logger.Debug("minute call allowance used up, waiting %s", hold.Round(time.Second))
	return r.sleep(ctx, hold)
}

// UpdateFromResponse records the remaining-call headers of resp.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := headerInt(resp.Header, HeaderMinuteRemaining); ok {
		r.minuteRemaining = v
		if v == 0 {
			r.exhaustedAt = r.now()
		}
	}
	if v, ok := headerInt(resp.Header, HeaderDayRemaining); ok {
		r.dayRemaining = v
		if v < DayLowWater && !r.warnedDay {
			r.warnedDay = true
			logger.Warn("only %d API calls left today", v)
		}
	}
}

// Remaining returns the last seen minute and day allowances, -1 when unknown.
func (r *RateLimiter) Remaining() (minute, day int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.minuteRemaining, r.dayRemaining
}

func headerInt(h http.Header, key string) (int, bool) {
	raw := strings.TrimSpace(h.Get(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// CheckRateLimit records the allowance headers and returns a RateLimitError
// for a 429 response, nil otherwise.
func (r *RateLimiter) CheckRateLimit(resp *http.Response) *RateLimitError {
	if resp == nil {
		return nil
	}
	r.UpdateFromResponse(resp)
	if resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}
	return &RateLimitError{RetryAfter: r.RetryAfter(resp.Header.Get(HeaderRetryAfter))}
}

// RetryAfter parses a Retry-After value, falling back to the default.
func (r *RateLimiter) RetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return r.defaultRetryAfter
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return r.defaultRetryAfter
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(r.now()); d > 0 {
			return d
		}
		return 0
	}
	return r.defaultRetryAfter
}

// Backoff sleeps for d or until ctx is done.
func (r *RateLimiter) Backoff(ctx context.Context, d time.Duration) error {
	return r.sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
