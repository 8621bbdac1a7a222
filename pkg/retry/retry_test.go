package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) StatusCode() int { return int(s) }

func noSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		kind      string
	}{
		{"nil", nil, false, ""},
		{"429", statusErr(http.StatusTooManyRequests), true, "rate_limited"},
		{"503", fmt.Errorf("wrap: %w", statusErr(503)), true, "server_error"},
		{"404", statusErr(404), false, "client_error"},
		{"google 500", &googleapi.Error{Code: 500}, true, "server_error"},
		{"google 400", &googleapi.Error{Code: 400}, false, "client_error"},
		{"deadline", context.DeadlineExceeded, true, "timeout"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"permanent", Permanent(statusErr(503)), false, "permanent"},
		{"reset", errors.New("read: connection reset by peer"), true, "network_error"},
		{"unknown", errors.New("boom"), false, "unknown_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, kind := Classify(tt.err)
			assert.Equal(t, tt.retryable, retryable)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestDelayIsBounded(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 500*time.Millisecond, p.Delay(1))
	assert.Equal(t, time.Second, p.Delay(2))
	assert.Equal(t, 2*time.Second, p.Delay(3))
	assert.Equal(t, 8*time.Second, p.Delay(10))
}

func TestDoRetriesTransientErrors(t *testing.T) {
	var delays []time.Duration
	p := DefaultPolicy()
	p.Sleep = noSleep(&delays)

	var retries []int
	p.OnRetry = func(attempt int, kind string, err error) { retries = append(retries, attempt) }

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return statusErr(502)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, delays)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	var delays []time.Duration
	p := DefaultPolicy()
	p.Sleep = noSleep(&delays)

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return statusErr(400)
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	var delays []time.Duration
	p := DefaultPolicy()
	p.Sleep = noSleep(&delays)

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return statusErr(500)
	})

	var sc statusErr
	require.ErrorAs(t, err, &sc)
	assert.Equal(t, 3, calls)
	assert.Len(t, delays, 2)
}

func TestDoValue(t *testing.T) {
	p := DefaultPolicy()
	p.Sleep = func(context.Context, time.Duration) error { return nil }

	calls := 0
	v, err := DoValue(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", context.DeadlineExceeded
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestDoHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := DefaultPolicy()
	calls := 0
	err := p.Do(ctx, func(ctx context.Context) error {
		calls++
		return statusErr(503)
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
