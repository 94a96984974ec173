// Package errors defines error types for the bus.
//
// This package provides structured error types that wrap the distinct
// failure scenarios on the send, request, and receive paths. All error types
// support error unwrapping and can be checked using errors.Is and errors.As.
package errors
