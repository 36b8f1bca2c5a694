package domain

import (
	"errors"
	"fmt"
)

// CoreError is the unified error type for the conversational core.
// Each error has a numeric code and human-readable message.
type CoreError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	return fmt.Sprintf("core error %d: %s", e.Code, e.Message)
}

// NewCoreError creates a new CoreError.
func NewCoreError(code int, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// WrapCoreError creates a CoreError that includes a cause.
func WrapCoreError(code int, msg string, cause error) *CoreError {
	return &CoreError{Code: code, Message: fmt.Sprintf("%s: %v", msg, cause)}
}

// AsCoreError unwraps err to a CoreError, if it is one.
func AsCoreError(err error) (*CoreError, bool) {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// HasCode reports whether err is a CoreError with the given code.
func HasCode(err error, code int) bool {
	ce, ok := AsCoreError(err)
	return ok && ce.Code == code
}

// ---- Event / thread shape errors (-32210 to -32239) ----

var (
	ErrInvalidThreadID = &CoreError{Code: -32210, Message: "invalid thread id"}
	ErrMalformedEvent  = &CoreError{Code: -32211, Message: "malformed event"}
)

// ---- Event log errors (-32240 to -32269) ----

var (
	ErrDuplicateEventID = &CoreError{Code: -32240, Message: "duplicate event id for thread"}
	ErrThreadNotFound   = &CoreError{Code: -32241, Message: "thread not found"}
	ErrStoreInit        = &CoreError{Code: -32242, Message: "failed to initialize event store"}
	ErrStoreQuery       = &CoreError{Code: -32243, Message: "event store query failed"}
	ErrStoreWrite       = &CoreError{Code: -32244, Message: "event store write failed"}
	ErrBadCheckpoint    = &CoreError{Code: -32245, Message: "invalid compaction checkpoint"}
)

// ---- Materializer errors (-32270 to -32299) ----

var (
	// ErrSequenceViolation is fatal for the affected thread: a fresh event
	// arrived with a sequence at or below one already processed, which means
	// the single-writer append contract is broken upstream.
	ErrSequenceViolation = &CoreError{Code: -32270, Message: "event sequence violation"}
	ErrLoadCancelled     = &CoreError{Code: -32271, Message: "bulk load cancelled"}
	// ErrOrphanedToolResult is a diagnostic category, never a failure: the
	// result is still rendered as a standalone item.
	ErrOrphanedToolResult = &CoreError{Code: -32272, Message: "tool result without a matching call"}
	ErrWrongMaterializer  = &CoreError{Code: -32273, Message: "event routed to wrong thread's materializer"}
)

// ---- Config errors (-32300 to -32329) ----

var (
	ErrConfigInvalid = &CoreError{Code: -32300, Message: "invalid configuration"}
)
