package discord

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"

	"github.com/nekostore/neko-object/internal/apierr"
)

func testAdapter() *Adapter {
	return &Adapter{retry: defaultRetryConfig()}
}

func TestCalculateBackoff_GrowsExponentiallyUpToMax(t *testing.T) {
	a := testAdapter()

	assert.Equal(t, a.retry.initialBackoff, a.calculateBackoff(0))
	assert.Equal(t, a.retry.initialBackoff*2, a.calculateBackoff(1))
	assert.Equal(t, a.retry.maxBackoff, a.calculateBackoff(10))
}

func TestIsRetryableError_NilIsNotRetryable(t *testing.T) {
	assert.False(t, isRetryableError(nil))
}

func TestIsRetryableError_ContextErrorsAreNotRetryable(t *testing.T) {
	assert.False(t, isRetryableError(context.Canceled))
	assert.False(t, isRetryableError(context.DeadlineExceeded))
}

func TestIsRetryableError_RESTRateLimitAndServerErrorsAreRetryable(t *testing.T) {
	rateLimited := &discordgo.RESTError{Response: &http.Response{StatusCode: 429}}
	serverErr := &discordgo.RESTError{Response: &http.Response{StatusCode: 503}}
	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: 404}}

	assert.True(t, isRetryableError(rateLimited))
	assert.True(t, isRetryableError(serverErr))
	assert.False(t, isRetryableError(notFound))
}

func TestIsRetryableError_NetworkStringsAreRetryable(t *testing.T) {
	assert.True(t, isRetryableError(errors.New("read tcp: connection reset by peer")))
	assert.True(t, isRetryableError(errors.New("dial tcp: i/o timeout")))
	assert.False(t, isRetryableError(errors.New("unauthorized")))
}

func TestIsNotFoundError_MatchesHTTP404(t *testing.T) {
	assert.True(t, isNotFoundError(&discordgo.RESTError{Response: &http.Response{StatusCode: 404}}))
	assert.False(t, isNotFoundError(&discordgo.RESTError{Response: &http.Response{StatusCode: 500}}))
	assert.False(t, isNotFoundError(errors.New("plain error")))
}

func TestWrapUpstream_MapsNotFoundToApierrKindNotFound(t *testing.T) {
	err := wrapUpstream("delete", &discordgo.RESTError{Response: &http.Response{StatusCode: 404}})
	apiErr, ok := apierr.As(err)
	assert.True(t, ok)
	assert.Equal(t, apierr.KindNotFound, apiErr.Kind)
}

func TestWrapUpstream_MapsOtherErrorsToUpstream(t *testing.T) {
	err := wrapUpstream("delete", errors.New("boom"))
	apiErr, ok := apierr.As(err)
	assert.True(t, ok)
	assert.Equal(t, apierr.KindUpstream, apiErr.Kind)
}

func TestSplitByAge_SeparatesBySnowflakeTimestamp(t *testing.T) {
	a := testAdapter()

	recentID := discordToSnowflake(t, time.Now().Add(-time.Hour))
	oldID := discordToSnowflake(t, time.Now().Add(-15*24*time.Hour))

	recent, old := a.splitByAge([]string{recentID, oldID})
	assert.Equal(t, []string{recentID}, recent)
	assert.Equal(t, []string{oldID}, old)
}

func TestSplitByAge_UnparseableIDTreatedAsRecent(t *testing.T) {
	a := testAdapter()
	recent, old := a.splitByAge([]string{"not-a-snowflake"})
	assert.Equal(t, []string{"not-a-snowflake"}, recent)
	assert.Empty(t, old)
}

func discordToSnowflake(t *testing.T, ts time.Time) string {
	t.Helper()
	const discordEpoch = int64(1420070400000)
	ms := ts.UnixMilli() - discordEpoch
	return snowflakeFromMillis(ms)
}

func snowflakeFromMillis(ms int64) string {
	return formatInt64(ms << 22)
}

func formatInt64(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func TestWithRetry_SucceedsOnFirstAttempt(t *testing.T) {
	a := testAdapter()
	calls := 0

	err := a.withRetry(context.Background(), "op", func() error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetriesOnRetryableErrorThenSucceeds(t *testing.T) {
	a := testAdapter()
	a.retry.initialBackoff = time.Millisecond
	a.retry.maxBackoff = time.Millisecond
	calls := 0

	err := a.withRetry(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_StopsImmediatelyOnNonRetryableError(t *testing.T) {
	a := testAdapter()
	calls := 0

	err := a.withRetry(context.Background(), "op", func() error {
		calls++
		return errors.New("unauthorized")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_CancelledContextDuringBackoffReturnsContextErr(t *testing.T) {
	a := testAdapter()
	a.retry.initialBackoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.withRetry(ctx, "op", func() error {
		return errors.New("connection reset")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
