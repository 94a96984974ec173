package simplexbus

import (
	buserrors "github.com/LucianoVandi/simplex-bus/internal/errors"
)

// Send fires one command envelope at the counterpart without waiting for a
// reply. The payload must satisfy any validator registered for msgType and
// be serializable by the configured codec. Errors on this path always reach
// the caller; nothing is dropped silently.
func (b *Bus) Send(msgType string, payload any) error {
	if msgType == "" {
		return &ValidationError{Err: buserrors.ErrEmptyType}
	}

	return b.sendEnvelope(&Envelope{Type: msgType, Payload: payload}, false)
}

// sendEnvelope composes, validates, serializes, and hands one envelope to
// the transport. skipTypeGuard is true only for response envelopes sent by
// a handler: the responder already proved it owns the correlation id, so
// responses are permitted regardless of the allow-list.
func (b *Bus) sendEnvelope(msg *Envelope, skipTypeGuard bool) error {
	if b.disposed.Load() {
		return buserrors.ErrDisposed
	}

	if !skipTypeGuard && !b.typeAllowed(msg.Type) {
		return &ValidationError{Type: msg.Type, Err: buserrors.ErrTypeNotAllowed}
	}

	if err := b.validators.Validate(msg.Type, msg.Payload); err != nil {
		return err
	}

	data, err := b.codec.Encode(msg)
	if err != nil {
		return &SerializationError{Type: msg.Type, Err: err}
	}

	return b.send(data)
}

// Reply lets a handler answer the message that invoked it. It is safe for
// concurrent use, including from goroutines the handler spawns.
type Reply struct {
	bus         *Bus
	requestType string
	id          string
	nonce       string
}

// CanRespond reports whether the inbound message carried a correlation id,
// i.e. whether anyone is waiting for a response.
func (r *Reply) CanRespond() bool {
	return r.id != ""
}

// Respond sends a success response to the requester. It reports false with
// a nil error when the inbound message carried no correlation id. Send
// failures (validation, serialization, transport) reach the handler.
func (r *Reply) Respond(payload any) (bool, error) {
	return r.respond(payload, false)
}

// RespondError sends an error response; the requester's Request call fails
// with a *RemoteError carrying the payload.
func (r *Reply) RespondError(payload any) (bool, error) {
	return r.respond(payload, true)
}

func (r *Reply) respond(payload any, isError bool) (bool, error) {
	if r.id == "" {
		return false, nil
	}

	msg := &Envelope{
		Type:    r.requestType + r.bus.suffix,
		Payload: payload,
		ID:      r.id,
		Nonce:   r.nonce,
		IsError: isError,
	}

	if err := r.bus.sendEnvelope(msg, true); err != nil {
		return false, err
	}

	return true, nil
}
