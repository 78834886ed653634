package utils

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Circuit Breaker Tests

func TestCircuitBreaker_NewCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker("test")

	assert.Equal(t, "test", cb.Name())
	assert.Equal(t, uint32(20), cb.maxRequests)
	assert.Equal(t, 60*time.Second, cb.interval)
	assert.Equal(t, 30*time.Second, cb.timeout)
	assert.Equal(t, 0.6, cb.failureRatio)
	assert.Equal(t, StateClosed, cb.state)
}

func TestCircuitBreaker_DoSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	err := cb.Do(ctx, func(ctx context.Context) error {
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.state)
	assert.Equal(t, uint32(1), cb.counts.Requests)
	assert.Equal(t, uint32(1), cb.counts.TotalSuccesses)
	assert.Equal(t, uint32(0), cb.counts.TotalFailures)
}

func TestCircuitBreaker_DoFailure(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	expectedError := errors.New("gateway down")
	err := cb.Do(ctx, func(ctx context.Context) error {
		return expectedError
	})

	assert.ErrorIs(t, err, expectedError)
	assert.Equal(t, uint32(1), cb.counts.Requests)
	assert.Equal(t, uint32(0), cb.counts.TotalSuccesses)
	assert.Equal(t, uint32(1), cb.counts.TotalFailures)
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	failure := errors.New("gateway down")
	for i := uint32(0); i < cb.maxRequests; i++ {
		_ = cb.Do(ctx, func(ctx context.Context) error {
			return failure
		})
	}

	assert.Equal(t, StateOpen, cb.state)

	err := cb.Do(ctx, func(ctx context.Context) error {
		t.Fatal("call must not run while the breaker is open")
		return nil
	})
	assert.ErrorIs(t, err, ErrBreakerOpen)
}

func TestCircuitBreaker_ContextPassedThrough(t *testing.T) {
	cb := NewCircuitBreaker("test")

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "marker")

	err := cb.Do(ctx, func(inner context.Context) error {
		assert.Equal(t, "marker", inner.Value(ctxKey{}))
		return nil
	})
	assert.NoError(t, err)
}

// Random Code Tests

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(6)
	require.NoError(t, err)

	assert.Len(t, code, 12)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]+$`), code)

	other, err := GenerateCode(6)
	require.NoError(t, err)
	assert.NotEqual(t, code, other)
}

func TestGenerateOTP(t *testing.T) {
	otp, err := GenerateOTP(6)
	require.NoError(t, err)

	assert.Len(t, otp, 6)
	assert.Regexp(t, regexp.MustCompile(`^[0-9]+$`), otp)
}

func BenchmarkGenerateOTP(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := GenerateOTP(6); err != nil {
			b.Fatal(err)
		}
	}
}
