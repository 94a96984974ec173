package simplexbus

import (
	"fmt"

	"github.com/LucianoVandi/simplex-bus/internal/envelope"
	"github.com/LucianoVandi/simplex-bus/internal/pending"
)

// Receive feeds one raw inbound message to the bus.
//
// Inbound data is untrusted: oversized, malformed, unexpected, or invalid
// messages are logged and dropped. Receive never panics and never reports
// an error to the transport-facing caller. After Dispose it is a silent
// no-op.
func (b *Bus) Receive(raw []byte) {
	if b.disposed.Load() {
		return
	}

	if len(raw) > b.maxIncoming {
		b.log.Error("dropping oversized inbound message", "bytes", len(raw), "limit", b.maxIncoming)

		return
	}

	if inspector, ok := b.codec.(envelope.Inspector); ok {
		if err := inspector.Inspect(raw); err != nil {
			b.dropInvalid(raw, err)

			return
		}
	}

	msg, err := b.codec.Decode(raw)
	if err != nil {
		b.dropInvalid(raw, err)

		return
	}

	if err := envelope.Normalize(msg); err != nil {
		b.log.Error("dropping invalid inbound message", "error", err)

		return
	}

	// Response path: the id must match a pending request and the type must
	// be that request's expected response type. Anything else falls
	// through to command dispatch.
	if msg.ID != "" {
		if req, ok := b.pending.Lookup(msg.ID); ok && msg.Type == req.ExpectedResponseType {
			b.settleResponse(raw, msg, req)

			return
		}
	}

	b.dispatchCommand(msg)
}

func (b *Bus) dropInvalid(raw []byte, err error) {
	invalid := &InvalidMessageError{RawData: string(raw), Err: err}
	b.log.Error("dropping invalid inbound message", "error", invalid)
}

// settleResponse decides the fate of a pending request from a candidate
// response. Untrusted or nonce-mismatched responses are dropped without
// claiming the entry, so a legitimate later response or the timeout still
// decides it.
func (b *Bus) settleResponse(raw []byte, msg *Envelope, req *pending.Request) {
	if !b.isTrusted(raw, msg, req) {
		b.log.Error("dropping untrusted response", "request_id", msg.ID, "type", msg.Type)

		return
	}

	if b.trustMode == TrustModeStrict && msg.Nonce != req.Nonce {
		// Possible spoofing: reusing a captured id without the nonce.
		b.log.Error("dropping response with nonce mismatch", "request_id", msg.ID, "type", msg.Type)

		return
	}

	if err := b.validators.Validate(msg.Type, msg.Payload); err != nil {
		// An invalid payload on a trusted response is terminal: the
		// request is rejected with the validation error.
		if claimed, ok := b.pending.Claim(msg.ID); ok {
			claimed.Settle(pending.Outcome{Err: err})
		}

		return
	}

	claimed, ok := b.pending.Claim(msg.ID)
	if !ok {
		// Timeout, abort, or disposal won the race.
		return
	}

	if msg.IsError {
		claimed.Settle(pending.Outcome{Err: &RemoteError{Type: req.Type, Payload: msg.Payload}})

		return
	}

	b.log.Debug("response settled", "request_id", msg.ID, "type", msg.Type)
	claimed.Settle(pending.Outcome{Payload: msg.Payload})
}

func (b *Bus) isTrusted(raw []byte, msg *Envelope, req *pending.Request) (trusted bool) {
	if b.trust == nil {
		return true
	}

	defer func() {
		if rec := recover(); rec != nil {
			b.log.Error("trust guard panicked", "request_id", msg.ID, "panic", rec)

			trusted = false
		}
	}()

	return b.trust(&TrustContext{
		RequestType:   req.Type,
		RequestID:     msg.ID,
		ResponseType:  msg.Type,
		RequestNonce:  req.Nonce,
		ResponseNonce: msg.Nonce,
		Payload:       msg.Payload,
		IsError:       msg.IsError,
		Raw:           raw,
	})
}

// dispatchCommand routes an inbound command to the registered listeners.
func (b *Bus) dispatchCommand(msg *Envelope) {
	if !b.typeAllowed(msg.Type) {
		return
	}

	if err := b.validators.Validate(msg.Type, msg.Payload); err != nil {
		// Inbound message, no caller to reject: log and drop.
		b.log.Error("dropping inbound message with invalid payload", "type", msg.Type, "error", err)

		return
	}

	handlers := b.handlers.Handlers(msg.Type)
	if len(handlers) == 0 {
		return
	}

	reply := &Reply{bus: b, requestType: msg.Type, id: msg.ID, nonce: msg.Nonce}

	for _, h := range handlers {
		b.invokeHandler(h, msg, reply)
	}
}

// invokeHandler runs one listener with failure isolation: an error return
// or panic is logged, converted into an error response when the message was
// request-shaped, and never prevents sibling listeners from running.
func (b *Bus) invokeHandler(h Handler, msg *Envelope, reply *Reply) {
	err := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("listener panic: %v", rec)
			}
		}()

		return h(b.baseCtx, msg.Payload, reply)
	}()
	if err == nil {
		return
	}

	b.log.Error("listener failed", "type", msg.Type, "error", err)

	if msg.ID == "" {
		// Fire-and-forget message: nothing to reject.
		return
	}

	if _, sendErr := reply.RespondError(map[string]any{"message": err.Error()}); sendErr != nil {
		b.log.Error("failed to send error response",
			"type", msg.Type,
			"request_id", msg.ID,
			"error", sendErr,
		)
	}
}
