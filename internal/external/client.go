// Package external is the anti-corruption layer between the onboarding
// domain and the calendar/mail provider's API. Every outbound call goes
// through the BaseClient, which applies a circuit breaker, bounded retries
// with jittered backoff, and error mapping onto the AppError taxonomy.
package external

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/sabercontabilidade/onboarding/internal/types"
)

// RetryPolicy configures retry behavior for outbound calls.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns the defaults used for provider calls. Retries
// stay cheap: job-level semantics already re-attempt failed items on the
// next scheduled run.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		MinWait:    250 * time.Millisecond,
		MaxWait:    5 * time.Second,
	}
}

// BaseClient wraps an *http.Client with a circuit breaker and retry loop.
// Retries fire only on 429 and 5xx responses; other statuses are returned to
// the caller unchanged.
type BaseClient struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	retry   RetryPolicy
	sleep   func(time.Duration) // injectable for tests
}

// BaseClientOption configures a BaseClient.
type BaseClientOption func(*BaseClient)

// WithSleepFunc overrides the inter-retry sleep, for tests.
func WithSleepFunc(fn func(time.Duration)) BaseClientOption {
	return func(c *BaseClient) { c.sleep = fn }
}

// NewBaseClient creates a BaseClient with its own circuit breaker. The
// breaker opens after five consecutive failures and probes again after 30s.
func NewBaseClient(httpClient *http.Client, name string, retry RetryPolicy, opts ...BaseClientOption) *BaseClient {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	bc := &BaseClient{
		client:  httpClient,
		breaker: cb,
		retry:   retry,
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(bc)
	}
	return bc
}

// Do executes the request through the breaker and retry loop. The caller
// owns the response body on success. Context deadlines on the request bound
// each attempt; a timed-out attempt surfaces as an upstream error.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	// Snapshot the body so it can be replayed across attempts.
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "buffering request body", err)
		}
		req.Body.Close()
	}

	var lastResp *http.Response
	var lastErr error

	attempts := 1 + c.retry.MaxRetries
	for attempt := 0; attempt < attempts; attempt++ {
		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
			req.ContentLength = int64(len(body))
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, doErr := c.client.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			// 5xx and 429 count as breaker failures.
			if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
				return r, fmt.Errorf("upstream returned %d", r.StatusCode)
			}
			return r, nil
		})
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if resp != nil {
			if attempt < attempts-1 {
				resp.Body.Close()
			} else {
				lastResp = resp
			}
		}

		// An open breaker fails the call immediately; retrying would only
		// hammer a tripped circuit.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}

		if attempt < attempts-1 {
			c.sleep(c.backoff(attempt, resp))
		}
	}

	if lastResp != nil {
		lastResp.Body.Close()
	}
	return nil, c.mapError(lastResp, lastErr)
}

// backoff computes the pre-retry wait: Retry-After when the server sent one,
// otherwise exponential backoff with full jitter clamped to [MinWait, MaxWait].
func (c *BaseClient) backoff(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				return min(time.Duration(secs)*time.Second, c.retry.MaxWait)
			}
		}
	}

	ceil := float64(c.retry.MinWait) * math.Pow(2, float64(attempt))
	ceil = math.Min(ceil, float64(c.retry.MaxWait))
	floor := float64(c.retry.MinWait)
	if ceil <= floor {
		return c.retry.MinWait
	}
	return time.Duration(floor + rand.Float64()*(ceil-floor))
}

// mapError translates transport failures into AppErrors.
func (c *BaseClient) mapError(resp *http.Response, err error) *types.AppError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppError(types.ErrCodeUpstreamRateLimited, "circuit breaker open; provider unavailable", err)
	}
	if resp != nil {
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return types.NewAppError(types.ErrCodeUpstreamRateLimited, "provider rate limit exceeded", err)
		case resp.StatusCode >= 500:
			return types.NewAppError(types.ErrCodeUpstreamUnavailable,
				fmt.Sprintf("provider returned %d after retries", resp.StatusCode), err)
		}
	}
	return types.NewAppError(types.ErrCodeUpstreamUnavailable, "provider request failed", err)
}
