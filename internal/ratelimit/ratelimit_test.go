package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

func TestNew_Defaults(t *testing.T) {
	l := New(Config{})

	require.NotNil(t, l)
	assert.Equal(t, DefaultBurst, l.bucket.Burst())
	assert.True(t, l.RetryAt().IsZero())
}

func TestLimiter_Wait(t *testing.T) {
	t.Run("unthrottled returns immediately", func(t *testing.T) {
		l := New(Config{})
		for i := 0; i < 5; i++ {
			require.NoError(t, l.Wait(context.Background()))
		}
	})

	t.Run("respects context during backoff", func(t *testing.T) {
		l := New(Config{RequestsPerSecond: 100})
		l.retryAt = time.Now().Add(time.Hour)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err := l.Wait(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestLimiter_Check(t *testing.T) {
	fixed := time.Date(2024, 7, 26, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		status     int
		retryAfter string
		wantErr    bool
		wantWait   time.Duration
	}{
		{"ok response", http.StatusOK, "", false, 0},
		{"server error is not rate limiting", http.StatusInternalServerError, "5", false, 0},
		{"429 with seconds", http.StatusTooManyRequests, "7", true, 7 * time.Second},
		{"429 with http date", http.StatusTooManyRequests, fixed.Add(time.Minute).Format(http.TimeFormat), true, time.Minute},
		{"429 without header", http.StatusTooManyRequests, "", true, DefaultBackoff},
		{"429 with garbage", http.StatusTooManyRequests, "soon", true, DefaultBackoff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(Config{})
			l.now = func() time.Time { return fixed }

			resp := &http.Response{StatusCode: tt.status, Header: http.Header{}}
			if tt.retryAfter != "" {
				resp.Header.Set(HeaderRetryAfter, tt.retryAfter)
			}

			err := l.Check(resp)
			if !tt.wantErr {
				assert.NoError(t, err)
				assert.True(t, l.RetryAt().IsZero())
				return
			}
			assert.ErrorIs(t, err, domain.ErrRateLimited)
			assert.Equal(t, fixed.Add(tt.wantWait), l.RetryAt())
		})
	}
}

func TestLimiter_CheckNil(t *testing.T) {
	assert.NoError(t, New(Config{}).Check(nil))
}
