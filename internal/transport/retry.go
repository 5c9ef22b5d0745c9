package transport

// retry.go retries failed requests with exponential backoff

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var (
	// Thread-safe random source for jitter
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NonRetryableError wraps errors that should not be retried (eg bad request or GraphQL errors)
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string { return e.Err.Error() }

func (e *NonRetryableError) Unwrap() error { return e.Err }

// NonRetryable wraps an error to indicate it should not be retried
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable checks if an error is marked as non-retryable
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre)
}

// RetryConfig says how often and how quickly failed requests are repeated
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`  // 0 or 1 = no retry
	InitialDelay time.Duration `yaml:"initial_delay"` // delay before the 2nd attempt
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"-"` // backoff multiplier (default 2)
	NoJitter     bool          `yaml:"-"`
}

// DefaultRetry is used by the client unless overridden
func DefaultRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// retry calls fn until it succeeds, returns a non-retryable error, the attempts are used up,
// or ctx is done.  The error of the last attempt is returned (unwrapped from NonRetryableError).
func retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = cfg.InitialDelay
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 2.0
	}

	delay := cfg.InitialDelay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		var nre *NonRetryableError
		if errors.As(err, &nre) {
			return nre.Err
		}
		if ctx.Err() != nil || attempt >= cfg.MaxAttempts {
			if attempt > 1 {
				return fmt.Errorf("%w (after %d attempts)", err, attempt)
			}
			return err
		}

		sleep := delay
		if !cfg.NoJitter && delay >= 4 {
			randMu.Lock()
			sleep += time.Duration(randSource.Int63n(int64(delay / 4))) // up to 25%
			randMu.Unlock()
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w (retry cancelled: %v)", err, ctx.Err())
		case <-timer.C:
		}

		if next := time.Duration(float64(delay) * cfg.Multiplier); next > cfg.MaxDelay || next <= 0 {
			delay = cfg.MaxDelay
		} else {
			delay = next
		}
	}
}
