package backup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLastBackup_ZeroValueBeforeAnyRun(t *testing.T) {
	t.Parallel()

	p := New(nil, "chan-1", func() string { return "/tmp/neko.db" })
	assert.True(t, p.LastBackup().IsZero())
}

func TestRun_NoopWhenChannelNotConfigured(t *testing.T) {
	t.Parallel()

	// adapter is nil: Run must return before ever touching it when there is
	// no backup channel configured.
	p := New(nil, "", func() string {
		t.Fatal("indexPath should not be called when no channel is configured")
		return ""
	})

	assert.NotPanics(t, func() { p.Run(context.Background()) })
	assert.True(t, p.LastBackup().IsZero())
}

func TestRun_NoopWhenIndexHasNoOnDiskPath(t *testing.T) {
	t.Parallel()

	// Postgres-backed indexes report "" from Index.Path; Run must bail out
	// before ever touching the (nil) adapter.
	p := New(nil, "chan-1", func() string { return "" })

	assert.NotPanics(t, func() { p.Run(context.Background()) })
	assert.True(t, p.LastBackup().IsZero())
}
