package arxiv

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryConfig controls how RawSearch retries transient failures. A
// MaxAttempts of 0 or 1 sends each request once.
type RetryConfig struct {
	MaxAttempts     int           // attempts per request, including the first
	InitialInterval time.Duration // wait before the first retry
	MaxInterval     time.Duration // upper bound on any single wait
	Multiplier      float64       // growth factor between waits
}

// DefaultRetryConfig is used by WithDefaultRetry.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialInterval: time.Second,
	MaxInterval:     30 * time.Second,
	Multiplier:      2,
}

// WithRetry enables retries of timeouts, 408, 429 and 5xx gateway
// responses. Zero intervals and multiplier take the DefaultRetryConfig
// values.
func WithRetry(config RetryConfig) ClientOption {
	config = config.withDefaults()
	return func(c *Client) {
		c.RetryConfig = &config
	}
}

// WithDefaultRetry is WithRetry(DefaultRetryConfig).
func WithDefaultRetry() ClientOption {
	return WithRetry(DefaultRetryConfig)
}

func (rc RetryConfig) withDefaults() RetryConfig {
	if rc.InitialInterval == 0 {
		rc.InitialInterval = DefaultRetryConfig.InitialInterval
	}
	if rc.MaxInterval == 0 {
		rc.MaxInterval = DefaultRetryConfig.MaxInterval
	}
	if rc.Multiplier == 0 {
		rc.Multiplier = DefaultRetryConfig.Multiplier
	}
	return rc
}

func (rc *RetryConfig) attempts() int {
	if rc == nil || rc.MaxAttempts < 1 {
		return 1
	}
	return rc.MaxAttempts
}

// delay is the wait after failed attempt n (1-based): exponential growth
// capped at MaxInterval, with up to 10% jitter either way.
func (rc *RetryConfig) delay(n int) time.Duration {
	if rc == nil || n < 1 {
		return 0
	}
	d := math.Min(
		float64(rc.InitialInterval)*math.Pow(rc.Multiplier, float64(n-1)),
		float64(rc.MaxInterval),
	)
	d *= 1 + 0.1*(2*rand.Float64()-1)
	return time.Duration(d)
}

// transient reports whether a failed attempt is worth repeating.
func transient(err error, resp *http.Response) bool {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return true
		}
		var netErr net.Error
		return errors.As(err, &netErr) && netErr.Timeout()
	}
	return resp != nil && transientStatus(resp.StatusCode)
}

func transientStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryAfter reads a Retry-After header given in seconds. HTTP dates are
// ignored.
func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After")))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// withRetry sends requests through send until one returns 200, a
// non-transient failure occurs, or the attempts run out. The last response
// is returned unclosed so the caller can read the error body. Each attempt
// waits on the rate limiter.
func (c *Client) withRetry(ctx context.Context, send func() (*http.Response, error)) (*http.Response, error) {
	attempts := c.RetryConfig.attempts()
	for n := 1; ; n++ {
		if c.rateLimiter != nil {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := send()
		if err == nil && resp.StatusCode == http.StatusOK {
			return resp, nil
		}
		if n >= attempts || !transient(err, resp) {
			return resp, err
		}

		wait := c.RetryConfig.delay(n)
		if hint := retryAfter(resp); hint > wait {
			wait = min(hint, c.RetryConfig.MaxInterval)
		}
		if resp != nil {
			resp.Body.Close()
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}
