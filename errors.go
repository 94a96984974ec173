package simplexbus

import "github.com/LucianoVandi/simplex-bus/internal/errors"

// Re-export error types from internal package

// ValidationError indicates a message type is not allowed or its payload
// failed the registered validator.
type ValidationError = errors.ValidationError

// SerializationError indicates the configured codec failed to encode an
// outgoing envelope.
type SerializationError = errors.SerializationError

// InvalidMessageError indicates an inbound message failed shape
// normalization. Inbound failures are logged, never returned; this type
// appears in log records.
type InvalidMessageError = errors.InvalidMessageError

// TimeoutError indicates a request received no response within its timeout.
type TimeoutError = errors.TimeoutError

// AbortedError indicates a request was cancelled by its context before a
// response arrived.
type AbortedError = errors.AbortedError

// RemoteError indicates the counterpart handler answered a request with an
// error response.
type RemoteError = errors.RemoteError

// LimitError indicates the pending-request cap was reached before a new
// request could be registered.
type LimitError = errors.LimitError

// BusError is the base interface for all bus errors.
type BusError = errors.BusError

// Re-export sentinel errors from internal package.
var (
	// ErrDisposed indicates an operation was attempted after Dispose.
	ErrDisposed = errors.ErrDisposed

	// ErrTypeNotAllowed indicates a message type outside the allow-list.
	ErrTypeNotAllowed = errors.ErrTypeNotAllowed

	// ErrEmptyType indicates a missing or empty message type.
	ErrEmptyType = errors.ErrEmptyType
)
