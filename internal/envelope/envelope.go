// Package envelope defines the wire message exchanged between contexts and
// the codec strategy used to move it across the injected transport.
package envelope

import (
	buserrors "github.com/LucianoVandi/simplex-bus/internal/errors"
)

// Envelope is the unit exchanged between the two contexts.
//
// Type is always present and non-empty on a valid envelope. ID is present
// only for request/response pairs. Nonce is present only when generated by a
// request (and echoed on strict-mode responses). IsError marks an error
// response.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	ID      string `json:"id,omitempty"`
	Nonce   string `json:"nonce,omitempty"`
	IsError bool   `json:"isError,omitempty"`
}

// IsResponse reports whether the envelope carries correlation metadata.
func (e *Envelope) IsResponse() bool {
	return e.ID != ""
}

// Normalize validates the shape of a decoded inbound envelope.
//
// A nil envelope or an empty type fails normalization. ID and Nonce are
// optional; an absent field decodes to the empty string, which is treated as
// not present.
func Normalize(e *Envelope) error {
	if e == nil {
		return &buserrors.InvalidMessageError{Err: buserrors.ErrEmptyType}
	}

	if e.Type == "" {
		return &buserrors.InvalidMessageError{Err: buserrors.ErrEmptyType}
	}

	return nil
}
