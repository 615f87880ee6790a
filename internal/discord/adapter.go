// Package discord implements the Object-Store Adapter (spec.md §4.B): the
// only component that speaks to Discord. Every chunk is one message with a
// single attachment in the configured upload channel; every other component
// reaches Discord only through this package.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/nekostore/neko-object/internal/apierr"
	"github.com/nekostore/neko-object/internal/config"
	"github.com/nekostore/neko-object/internal/logger"
)

// Adapter owns the Discord session and the channel ids chunks are written
// to and read from.
type Adapter struct {
	session         *discordgo.Session
	channelID       string
	backupChannelID string
	retry           retryConfig
}

// retryConfig mirrors the transient-error retry/backoff settings used
// elsewhere in this codebase for outbound storage calls.
type retryConfig struct {
	maxRetries        int
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		maxRetries:        3,
		initialBackoff:    200 * time.Millisecond,
		maxBackoff:        5 * time.Second,
		backoffMultiplier: 2.0,
	}
}

// New opens a Discord session and returns an Adapter bound to the
// configured upload and backup channels. Open() is called eagerly so
// configuration errors surface at startup rather than on first use.
func New(cfg *config.DiscordConfig) (*Adapter, error) {
	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open discord session: %w", err)
	}

	return &Adapter{
		session:         session,
		channelID:       cfg.ChannelID,
		backupChannelID: cfg.BackupChannelID,
		retry:           defaultRetryConfig(),
	}, nil
}

// Close releases the underlying gateway connection.
func (a *Adapter) Close() error {
	return a.session.Close()
}

// ChannelID returns the primary upload channel.
func (a *Adapter) ChannelID() string { return a.channelID }

// BackupChannelID returns the configured backup channel, or "" if unset.
func (a *Adapter) BackupChannelID() string { return a.backupChannelID }

func (a *Adapter) calculateBackoff(attempt int) time.Duration {
	backoff := float64(a.retry.initialBackoff)
	for i := 0; i < attempt; i++ {
		backoff *= a.retry.backoffMultiplier
	}
	if backoff > float64(a.retry.maxBackoff) {
		backoff = float64(a.retry.maxBackoff)
	}
	return time.Duration(backoff)
}

// withRetry runs fn, retrying transient Discord errors with exponential
// backoff up to retry.maxRetries additional attempts.
func (a *Adapter) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= a.retry.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := a.calculateBackoff(attempt - 1)
			logger.Debug("discord: retrying", "op", op, "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryableError(lastErr) {
			break
		}
		logger.Debug("discord: transient error", "op", op, "attempt", attempt+1, "error", lastErr)
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, a.retry.maxRetries+1, lastErr)
}

// isRetryableError reports whether err is a transient failure worth
// retrying: rate limiting, gateway/server errors, and network timeouts.
// Not-found and forbidden responses are never retryable.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Response == nil {
			return true
		}
		status := restErr.Response.StatusCode
		if status == 429 {
			return true
		}
		if status >= 500 {
			return true
		}
		return false
	}

	errStr := err.Error()
	if strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "EOF") {
		return true
	}
	return false
}

// isNotFoundError reports whether err indicates the referenced Discord
// message no longer exists (deleted or pruned), per the "Unknown Message"
// API error.
func isNotFoundError(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == 404
	}
	return false
}

func wrapUpstream(op string, err error) error {
	if isNotFoundError(err) {
		return apierr.NotFound(op + ": message not found")
	}
	return apierr.Upstream(op+" failed", err)
}
