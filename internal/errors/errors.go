package errors

import (
	"errors"
	"fmt"
	"time"
)

// BusError is the base interface for all bus errors.
type BusError interface {
	error
	IsBusError() bool
}

// Compile-time verification that all error types implement BusError.
var (
	_ BusError = (*ValidationError)(nil)
	_ BusError = (*SerializationError)(nil)
	_ BusError = (*InvalidMessageError)(nil)
	_ BusError = (*TimeoutError)(nil)
	_ BusError = (*AbortedError)(nil)
	_ BusError = (*RemoteError)(nil)
	_ BusError = (*LimitError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrDisposed indicates an operation was attempted after Dispose.
	ErrDisposed = errors.New("bus disposed")

	// ErrTypeNotAllowed indicates a message type outside the allow-list.
	ErrTypeNotAllowed = errors.New("message type not allowed")

	// ErrEmptyType indicates a missing or empty message type.
	ErrEmptyType = errors.New("message type must be a non-empty string")
)

// ValidationError indicates a message type is not allowed or its payload
// failed the registered validator.
type ValidationError struct {
	Type string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %q: %v", e.Type, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsBusError implements BusError.
func (e *ValidationError) IsBusError() bool { return true }

// SerializationError indicates the configured codec failed to encode an
// outgoing envelope.
type SerializationError struct {
	Type string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to serialize envelope %q: %v", e.Type, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// IsBusError implements BusError.
func (e *SerializationError) IsBusError() bool { return true }

// InvalidMessageError indicates an inbound message failed shape
// normalization. It preserves the raw data that failed to parse.
type InvalidMessageError struct {
	RawData string
	Err     error
}

func (e *InvalidMessageError) Error() string {
	return fmt.Sprintf("invalid inbound message: %v", e.Err)
}

func (e *InvalidMessageError) Unwrap() error {
	return e.Err
}

// IsBusError implements BusError.
func (e *InvalidMessageError) IsBusError() bool { return true }

// TimeoutError indicates a request received no response within its timeout.
type TimeoutError struct {
	Type    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %q timed out after %s", e.Type, e.Timeout)
}

// IsBusError implements BusError.
func (e *TimeoutError) IsBusError() bool { return true }

// AbortedError indicates a request was cancelled by its context before a
// response arrived.
type AbortedError struct {
	Type string
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("request %q aborted", e.Type)
}

// IsBusError implements BusError.
func (e *AbortedError) IsBusError() bool { return true }

// RemoteError indicates the counterpart handler answered a request with an
// error response. Payload carries the error payload from the wire.
type RemoteError struct {
	Type    string
	Payload any
}

func (e *RemoteError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("remote error for request %q: %s", e.Type, msg)
	}

	return fmt.Sprintf("remote error for request %q", e.Type)
}

// Message extracts the conventional {"message": ...} text from the error
// payload, or returns "" when the payload carries no such field.
func (e *RemoteError) Message() string {
	m, ok := e.Payload.(map[string]any)
	if !ok {
		return ""
	}

	if s, ok := m["message"].(string); ok {
		return s
	}

	return ""
}

// IsBusError implements BusError.
func (e *RemoteError) IsBusError() bool { return true }

// LimitError indicates the pending-request cap was reached before a new
// request could be registered.
type LimitError struct {
	Limit int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("pending request limit reached (%d)", e.Limit)
}

// IsBusError implements BusError.
func (e *LimitError) IsBusError() bool { return true }
