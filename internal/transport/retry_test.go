package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetry(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 4, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	errTemporary := errors.New("temporary")
	errPermanent := errors.New("permanent")

	tests := map[string]struct {
		results  []error // returned by successive attempts (last repeats)
		attempts int
		expected error
	}{
		"first_time":    {[]error{nil}, 1, nil},
		"second_time":   {[]error{errTemporary, nil}, 2, nil},
		"never":         {[]error{errTemporary}, 4, errTemporary},
		"non_retryable": {[]error{errTemporary, NonRetryable(errPermanent)}, 2, errPermanent},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			attempts := 0
			err := retry(context.Background(), cfg, func() error {
				r := test.results[min(attempts, len(test.results)-1)]
				attempts++
				return r
			})
			assert.Equal(t, test.attempts, attempts)
			if test.expected == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, test.expected)
				assert.False(t, IsNonRetryable(err), "returned error should be unwrapped")
			}
		})
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := retry(ctx, RetryConfig{MaxAttempts: 10, InitialDelay: time.Hour}, func() error {
		attempts++
		cancel()
		return errors.New("fail")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryZeroConfig(t *testing.T) {
	attempts := 0
	_ = retry(context.Background(), RetryConfig{}, func() error {
		attempts++
		return errors.New("fail")
	})
	assert.Equal(t, 1, attempts)
}
