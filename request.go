package simplexbus

import (
	"context"
	"fmt"
	"time"

	buserrors "github.com/LucianoVandi/simplex-bus/internal/errors"
	"github.com/LucianoVandi/simplex-bus/internal/pending"
)

// DefaultRequestTimeout applies when a Request carries no explicit timeout.
const DefaultRequestTimeout = 5 * time.Second

type requestOptions struct {
	timeout time.Duration
}

// RequestOption configures a single Request call.
type RequestOption func(*requestOptions)

// WithRequestTimeout bounds how long Request waits for the correlated
// response. Zero times out immediately; negative values are rejected.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) {
		o.timeout = d
	}
}

// Request sends msgType with a fresh correlation id and nonce, then blocks
// until exactly one of: a trusted matching response arrives (its payload is
// returned, or a *RemoteError for error responses), the timeout fires
// (*TimeoutError), ctx is cancelled (*AbortedError), or the bus is disposed
// (ErrDisposed).
//
// When the pending-request cap is reached the request fails with a
// *LimitError before anything is sent. A send failure also rejects before
// the wait begins.
func (b *Bus) Request(ctx context.Context, msgType string, payload any, opts ...RequestOption) (any, error) {
	if msgType == "" {
		return nil, &ValidationError{Err: buserrors.ErrEmptyType}
	}

	options := requestOptions{timeout: DefaultRequestTimeout}
	for _, opt := range opts {
		opt(&options)
	}

	if options.timeout < 0 {
		return nil, fmt.Errorf("simplexbus: request timeout must not be negative, got %s", options.timeout)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if b.disposed.Load() {
		return nil, buserrors.ErrDisposed
	}

	id, err := b.gen.NewID()
	if err != nil {
		return nil, fmt.Errorf("simplexbus: generate request id: %w", err)
	}

	nonce, err := b.gen.NewNonce()
	if err != nil {
		return nil, fmt.Errorf("simplexbus: generate request nonce: %w", err)
	}

	// Register before sending so a fast response can't miss the entry.
	// Add enforces the pending cap; a capped request is never sent.
	req, err := b.pending.Add(id, msgType, msgType+b.suffix, nonce)
	if err != nil {
		return nil, err
	}

	if ctx.Err() != nil {
		// Already aborted: reject without sending.
		if _, ok := b.pending.Claim(id); ok {
			return nil, &AbortedError{Type: msgType}
		}

		return awaitSettled(req)
	}

	msg := &Envelope{Type: msgType, Payload: payload, ID: id, Nonce: nonce}
	if err := b.sendEnvelope(msg, false); err != nil {
		if _, ok := b.pending.Claim(id); ok {
			return nil, err
		}

		return awaitSettled(req)
	}

	b.log.Debug("request sent", "request_id", id, "type", msgType, "timeout", options.timeout)

	timer := time.NewTimer(options.timeout)
	defer timer.Stop()

	select {
	case o := <-req.Outcome():
		return o.Payload, o.Err

	case <-timer.C:
		if _, ok := b.pending.Claim(id); ok {
			b.log.Debug("request timed out", "request_id", id, "type", msgType)

			return nil, &TimeoutError{Type: msgType, Timeout: options.timeout}
		}

		// A response, Dispose, or abort claimed the entry first; its
		// outcome is already in flight.
		return awaitSettled(req)

	case <-ctx.Done():
		if _, ok := b.pending.Claim(id); ok {
			b.log.Debug("request aborted", "request_id", id, "type", msgType)

			return nil, &AbortedError{Type: msgType}
		}

		return awaitSettled(req)
	}
}

// awaitSettled returns the outcome delivered by whoever claimed the entry.
// Every claimer settles promptly, so this never blocks for long.
func awaitSettled(req *pending.Request) (any, error) {
	o := <-req.Outcome()

	return o.Payload, o.Err
}
