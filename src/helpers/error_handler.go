package helpers

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"dashboard-sync/src/logger"
)

// ErrUntrackedSymbol rejects a quote request for a symbol that is neither
// tracked nor held.
var ErrUntrackedSymbol = errors.New("symbol is neither tracked nor held")

// ErrJournalDisabled is returned for journal reads when no journal is configured.
var ErrJournalDisabled = errors.New("trade journal disabled")

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type SyncError struct {
	Message string
	Cause   error
}

func (e *SyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// SnapshotUnavailableError: a bootstrap call failed or returned malformed data.
// Recovered by the caller, never retried by the loader.
type SnapshotUnavailableError struct {
	SyncError
	Endpoint string
}

// StreamDisconnectedError: the push connection was lost. Always auto-recovered.
type StreamDisconnectedError struct{ SyncError }

// MalformedMessageError: a frame failed to decode or validate. Dropped.
type MalformedMessageError struct {
	SyncError
	Type string
}

// MutationInvariantViolationError: a merge would break key uniqueness. Rejected.
type MutationInvariantViolationError struct {
	SyncError
	Symbol string
}

type ConfigurationError struct{ SyncError }

// -----------------------------------------------------------------------------

func NewSnapshotUnavailable(endpoint string, cause error) *SnapshotUnavailableError {
	return &SnapshotUnavailableError{
		SyncError: SyncError{Message: fmt.Sprintf("snapshot unavailable (%s)", endpoint), Cause: cause},
		Endpoint:  endpoint,
	}
}

func NewStreamDisconnected(cause error) *StreamDisconnectedError {
	return &StreamDisconnectedError{SyncError{Message: "stream disconnected", Cause: cause}}
}

func NewMalformedMessage(msgType string, cause error) *MalformedMessageError {
	msg := "malformed message"
	if msgType != "" {
		msg = fmt.Sprintf("malformed %s message", msgType)
	}
	return &MalformedMessageError{SyncError: SyncError{Message: msg, Cause: cause}, Type: msgType}
}

func NewMutationInvariantViolation(symbol, reason string) *MutationInvariantViolationError {
	return &MutationInvariantViolationError{
		SyncError: SyncError{Message: fmt.Sprintf("invariant violation for %q: %s", symbol, reason)},
		Symbol:    symbol,
	}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries+1 times with exponential backoff.
// It is used by callers that decide to retry a failed bootstrap; the loader itself never retries.
func RetryWithBackoff[T any](log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxRetries {
			break
		}

		delay := baseDelay * (1 << attempt)
		if log != nil {
			log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries+1, operation, err, delay)
		}
		time.Sleep(delay)
	}

	return zero, lastErr
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler logs non-fatal errors raised while syncing and counts them by kind.
type ErrorHandler struct {
	Logger *logger.Logger
	mu     sync.Mutex
	counts map[string]int
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	return &ErrorHandler{
		Logger: log,
		counts: make(map[string]int),
	}
}

// -----------------------------------------------------------------------------

// Kind classifies err into the sync error taxonomy.
func Kind(err error) string {
	var snapErr *SnapshotUnavailableError
	var discErr *StreamDisconnectedError
	var malErr *MalformedMessageError
	var invErr *MutationInvariantViolationError
	var cfgErr *ConfigurationError

	switch {
	case errors.As(err, &snapErr):
		return "snapshot_unavailable"
	case errors.As(err, &discErr):
		return "stream_disconnected"
	case errors.As(err, &malErr):
		return "malformed_message"
	case errors.As(err, &invErr):
		return "invariant_violation"
	case errors.As(err, &cfgErr):
		return "configuration"
	default:
		return "other"
	}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) Handle(err error, context string) {
	if err == nil {
		return
	}
	kind := Kind(err)

	e.mu.Lock()
	e.counts[kind]++
	e.mu.Unlock()

	switch kind {
	case "malformed_message", "stream_disconnected":
		e.Logger.Warning("%s in %s: %v", kind, context, err)
	default:
		e.Logger.Error("Error in %s: %v", context, err)
	}
}

// -----------------------------------------------------------------------------

// Count returns how many errors of the given kind were handled.
func (e *ErrorHandler) Count(kind string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts[kind]
}

// -----------------------------------------------------------------------------

// Counts returns a copy of all per-kind counters.
func (e *ErrorHandler) Counts() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]int, len(e.counts))
	for k, v := range e.counts {
		out[k] = v
	}
	return out
}
