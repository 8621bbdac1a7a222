package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func TestBreakerOpensAfterThreshold(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	cb := New(Config{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute, HalfOpenMaxRequests: 1}).
		WithClock(func() time.Time { return now })

	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	cb := New(Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Minute, HalfOpenMaxRequests: 1}).
		WithClock(func() time.Time { return now })

	_ = cb.Execute(func() error { return errBoom })
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Minute)
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	cb := New(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: time.Minute, HalfOpenMaxRequests: 1}).
		WithClock(func() time.Time { return now })

	_ = cb.Execute(func() error { return errBoom })
	now = now.Add(time.Minute)
	_ = cb.Execute(func() error { return errBoom })
	assert.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}
