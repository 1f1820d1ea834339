package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"syscall"
	"time"
)

type BackoffConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      int
	Multiplier      float64
	// Jitter scales each interval by a uniform factor in [1-Jitter, 1+Jitter],
	// so concurrent workers hitting the same rate limit don't retry in lockstep.
	Jitter float64
}

func DefaultConfig() BackoffConfig {
	return BackoffConfig{
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		MaxRetries:      3,
		Multiplier:      2.0,
		Jitter:          0.25,
	}
}

// LLMConfig is the backoff used for model invocations. maxRetries comes from
// configuration (llm_max_retries).
func LLMConfig(maxRetries int) BackoffConfig {
	cfg := DefaultConfig()
	if maxRetries >= 0 {
		cfg.MaxRetries = maxRetries
	}
	return cfg
}

// IsRetryableError reports whether the error is a transient network
// condition worth retrying. Context cancellation is never retried.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		// IsNotFound indicates a definitive NXDOMAIN, which shouldn't be retried
		return !dnsErr.IsNotFound
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return true
		}
		if errors.Is(opErr.Err, syscall.ECONNRESET) {
			return true
		}
		if errors.Is(opErr.Err, syscall.EPIPE) {
			return true
		}
	}

	return false
}

// IsRetryableHTTPStatus reports whether an HTTP status is a transient
// condition: rate limits, timeouts and server-side failures.
func IsRetryableHTTPStatus(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}

	if statusCode >= 500 && statusCode < 600 {
		return true
	}

	return statusCode == http.StatusRequestTimeout
}

func (cfg BackoffConfig) next(interval time.Duration) time.Duration {
	interval = time.Duration(float64(interval) * cfg.Multiplier)
	if interval > cfg.MaxInterval {
		interval = cfg.MaxInterval
	}
	return interval
}

func (cfg BackoffConfig) jittered(interval time.Duration) time.Duration {
	if cfg.Jitter <= 0 {
		return interval
	}
	factor := 1 + cfg.Jitter*(2*rand.Float64()-1)
	return time.Duration(float64(interval) * factor)
}

// WithBackoff retries fn on transient errors with jittered exponential backoff.
func WithBackoff(ctx context.Context, cfg BackoffConfig, fn func() error) error {
	var lastErr error
	interval := cfg.InitialInterval

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if !IsRetryableError(err) {
				return fmt.Errorf("non-retryable error on attempt %d: %w", attempt+1, err)
			}
		}

		if attempt == cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.jittered(interval)):
		}
		interval = cfg.next(interval)
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, lastErr)
}

// WithBackoffHTTP retries fn, treating retryable HTTP statuses (429, 5xx,
// 408) like transient network errors.
func WithBackoffHTTP(ctx context.Context, cfg BackoffConfig, fn func() (int, error)) error {
	var lastErr error
	var lastStatus int
	interval := cfg.InitialInterval

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		statusCode, err := fn()
		lastStatus = statusCode
		lastErr = err

		if err == nil && statusCode >= 200 && statusCode < 300 {
			return nil
		}

		// Clients like go-openai surface HTTP failures as an error that still
		// carries the status, so a retryable status retries either way.
		shouldRetry := false
		if statusCode > 0 && IsRetryableHTTPStatus(statusCode) {
			shouldRetry = true
		} else if err != nil {
			shouldRetry = IsRetryableError(err)
		}

		if !shouldRetry {
			if err != nil {
				return fmt.Errorf("non-retryable error on attempt %d (status %d): %w", attempt+1, statusCode, err)
			}
			return fmt.Errorf("non-retryable status code %d on attempt %d", statusCode, attempt+1)
		}

		if attempt == cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.jittered(interval)):
		}
		interval = cfg.next(interval)
	}

	if lastErr != nil {
		return fmt.Errorf("max retries (%d) exceeded (status %d): %w", cfg.MaxRetries, lastStatus, lastErr)
	}
	return fmt.Errorf("max retries (%d) exceeded with status code %d", cfg.MaxRetries, lastStatus)
}
