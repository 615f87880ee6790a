package apierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors_SetKind(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")

	cases := []struct {
		name string
		err  *Error
		kind Kind
	}{
		{"Validation", Validation("bad input"), KindValidation},
		{"Unauthorized", Unauthorized("no token"), KindUnauthorized},
		{"NotFound", NotFound("missing"), KindNotFound},
		{"Conflict", Conflict("already exists"), KindConflict},
		{"RangeNotSat", RangeNotSat("out of range"), KindRangeNotSatisfiable},
		{"Internal", Internal("oops", cause), KindInternal},
		{"Upstream", Upstream("discord down", cause), KindUpstream},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.kind, tc.err.Kind)
		})
	}
}

func TestError_MessageFormatting(t *testing.T) {
	t.Parallel()

	plain := NotFound("file not found")
	assert.Equal(t, "file not found", plain.Error())

	withDetail := plain.WithDetail("id=abc123")
	assert.Equal(t, "file not found: id=abc123", withDetail.Error())

	// WithDetail must not mutate the receiver.
	assert.Equal(t, "file not found", plain.Error())
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	err := Upstream("discord unreachable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestAs_MatchesDirectAndWrapped(t *testing.T) {
	t.Parallel()

	target := NotFound("missing")

	got, ok := As(target)
	require.True(t, ok)
	assert.Same(t, target, got)

	wrapped := fmt.Errorf("loading file: %w", target)
	got, ok = As(wrapped)
	require.True(t, ok)
	assert.Same(t, target, got)

	got, ok = As(errors.New("unrelated"))
	assert.False(t, ok)
	assert.Nil(t, got)
}
