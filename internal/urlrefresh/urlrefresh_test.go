package urlrefresh

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func urlWithExpiry(t *testing.T, expiry time.Time) string {
	t.Helper()
	return fmt.Sprintf("https://cdn.discordapp.com/attachments/1/2/f.bin?ex=%x", expiry.Unix())
}

func TestIsExpired_EmptyURL(t *testing.T) {
	t.Parallel()
	assert.True(t, IsExpired("", DownloadLeadTime))
}

func TestIsExpired_MissingExParam(t *testing.T) {
	t.Parallel()
	assert.True(t, IsExpired("https://cdn.discordapp.com/attachments/1/2/f.bin", DownloadLeadTime))
}

func TestIsExpired_UnparseableURL(t *testing.T) {
	t.Parallel()
	assert.True(t, IsExpired("://not a url", DownloadLeadTime))
}

func TestIsExpired_FutureExpiryBeyondLeadTime(t *testing.T) {
	t.Parallel()
	url := urlWithExpiry(t, time.Now().Add(time.Hour))
	assert.False(t, IsExpired(url, DownloadLeadTime))
	assert.False(t, IsExpired(url, StreamLeadTime))
}

func TestIsExpired_PastExpiry(t *testing.T) {
	t.Parallel()
	url := urlWithExpiry(t, time.Now().Add(-time.Minute))
	assert.True(t, IsExpired(url, DownloadLeadTime))
}

func TestIsExpired_WithinStreamLeadTimeButNotDownloadLeadTime(t *testing.T) {
	t.Parallel()
	url := urlWithExpiry(t, time.Now().Add(2*time.Minute))
	assert.False(t, IsExpired(url, DownloadLeadTime))
	assert.True(t, IsExpired(url, StreamLeadTime))
}
