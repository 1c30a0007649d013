package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRetriableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retriable bool
	}{
		{"nil error", nil, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"rate limit 429", errors.New("API error 429: too many requests"), true},
		{"rate limit text", errors.New("rate limit exceeded"), true},
		{"server error 500", errors.New("500 internal server error"), true},
		{"bad gateway", errors.New("bad gateway"), true},
		{"service unavailable", errors.New("service unavailable"), true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"timeout", errors.New("request timeout"), true},
		{"auth failure 401", errors.New("API error 401: invalid api key"), false},
		{"not found 404", errors.New("404 not found"), false},
		{"unknown", errors.New("something odd happened"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retriable, isRetriableError(tt.err))
		})
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, 2, 50*time.Millisecond)

	assert.NoError(t, cb.Allow())

	cb.RecordFailure()
	cb.RecordFailure()
	assert.NoError(t, cb.Allow(), "circuit stays closed below threshold")

	cb.RecordFailure()
	err := cb.Allow()
	assert.ErrorIs(t, err, ErrCircuitOpen)

	state, failures, _ := cb.GetMetrics()
	assert.Equal(t, CircuitOpen, state)
	assert.Equal(t, 3, failures)
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 10*time.Millisecond)

	cb.RecordFailure()
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)

	// After the open timeout, a probe is allowed
	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, cb.Allow())
	state, _, _ := cb.GetMetrics()
	assert.Equal(t, CircuitHalfOpen, state)

	// Two successes close the circuit
	cb.RecordSuccess()
	cb.RecordSuccess()
	state, _, _ = cb.GetMetrics()
	assert.Equal(t, CircuitClosed, state)
}

func TestCircuitBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 10*time.Millisecond)

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, cb.Allow())

	cb.RecordFailure()
	state, _, _ := cb.GetMetrics()
	assert.Equal(t, CircuitOpen, state)
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, 2, time.Second)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	// Only two consecutive failures, circuit stays closed
	assert.NoError(t, cb.Allow())
}

// testElicitor builds an elicitor with fast retry timings and no client;
// the operation closures never touch the API
func testElicitor(retry RetryConfig) *AnthropicElicitor {
	e := &AnthropicElicitor{retry: retry}
	if retry.CircuitBreakerEnabled {
		e.circuitBreaker = NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout)
	}
	return e
}

func TestRetryWithBackoffEventualSuccess(t *testing.T) {
	e := testElicitor(RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Timeout:           time.Second,
	})

	attempts := 0
	err := e.retryWithBackoff(context.Background(), "test", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("503 service unavailable")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoffNonRetriableFailsFast(t *testing.T) {
	e := testElicitor(RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Timeout:           time.Second,
	})

	attempts := 0
	err := e.retryWithBackoff(context.Background(), "test", func(ctx context.Context) error {
		attempts++
		return errors.New("401 unauthorized")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts, "non-retriable error must not be retried")
}

func TestRetryWithBackoffExhaustsAttempts(t *testing.T) {
	e := testElicitor(RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Timeout:           time.Second,
	})

	attempts := 0
	err := e.retryWithBackoff(context.Background(), "test", func(ctx context.Context) error {
		attempts++
		return fmt.Errorf("attempt %d: rate limit", attempts)
	})

	assert.Error(t, err)
	assert.Equal(t, 3, attempts, "initial attempt plus two retries")
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetryWithBackoffOpenCircuitFailsFast(t *testing.T) {
	e := testElicitor(RetryConfig{
		MaxRetries:            3,
		InitialBackoff:        time.Millisecond,
		MaxBackoff:            5 * time.Millisecond,
		BackoffMultiplier:     2.0,
		Timeout:               time.Second,
		CircuitBreakerEnabled: true,
		FailureThreshold:      1,
		SuccessThreshold:      1,
		OpenTimeout:           time.Minute,
	})

	// Trip the breaker
	_ = e.retryWithBackoff(context.Background(), "trip", func(ctx context.Context) error {
		return errors.New("500 internal server error")
	})

	attempts := 0
	err := e.retryWithBackoff(context.Background(), "blocked", func(ctx context.Context) error {
		attempts++
		return nil
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 0, attempts, "open circuit must block the call entirely")
}

func TestRetryWithBackoffHonorsContextCancellation(t *testing.T) {
	e := testElicitor(RetryConfig{
		MaxRetries:        5,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2.0,
		Timeout:           time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := e.retryWithBackoff(ctx, "canceled", func(ctx context.Context) error {
		return errors.New("connection reset")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}
