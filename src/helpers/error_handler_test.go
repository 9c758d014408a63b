package helpers

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"dashboard-sync/src/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	cause := errors.New("boom")

	assert.Equal(t, "snapshot_unavailable", Kind(NewSnapshotUnavailable("/api/portfolio", cause)))
	assert.Equal(t, "stream_disconnected", Kind(NewStreamDisconnected(cause)))
	assert.Equal(t, "malformed_message", Kind(NewMalformedMessage("quote_update", cause)))
	assert.Equal(t, "invariant_violation", Kind(NewMutationInvariantViolation("INFY", "dup")))
	assert.Equal(t, "other", Kind(cause))

	wrapped := fmt.Errorf("outer: %w", NewSnapshotUnavailable("/api/symbols", cause))
	assert.Equal(t, "snapshot_unavailable", Kind(wrapped))
	assert.ErrorIs(t, wrapped, cause)
}

func TestSnapshotUnavailable_Message(t *testing.T) {
	err := NewSnapshotUnavailable("/api/portfolio", errors.New("timeout"))
	assert.Equal(t, "snapshot unavailable (/api/portfolio): timeout", err.Error())
	assert.Equal(t, "/api/portfolio", err.Endpoint)
}

func TestErrorHandler_Counts(t *testing.T) {
	var buf bytes.Buffer
	h := NewErrorHandler(logger.NewWithWriter(&buf, "Errors", logger.LevelDebug))

	h.Handle(nil, "noop")
	h.Handle(NewMalformedMessage("", errors.New("bad json")), "stream")
	h.Handle(NewMalformedMessage("quote_update", errors.New("schema")), "stream")
	h.Handle(NewMutationInvariantViolation("TCS", "duplicate"), "merge")

	assert.Equal(t, 2, h.Count("malformed_message"))
	assert.Equal(t, 1, h.Count("invariant_violation"))
	assert.Equal(t, 0, h.Count("snapshot_unavailable"))
	assert.Len(t, h.Counts(), 2)
	assert.Contains(t, buf.String(), "WARNING")
	assert.Contains(t, buf.String(), "ERROR")
}

func TestRetryWithBackoff(t *testing.T) {
	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		res, err := RetryWithBackoff(nil, "op", 3, time.Millisecond, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("not yet")
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, res)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		_, err := RetryWithBackoff(nil, "op", 1, time.Millisecond, func() (string, error) {
			calls++
			return "", errors.New("always")
		})
		assert.EqualError(t, err, "always")
		assert.Equal(t, 2, calls)
	})
}
