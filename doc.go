// Package simplexbus provides a transport-agnostic command/event bus for
// bidirectional messaging between two isolated execution contexts, such as a
// host application and an embedded view, that can only exchange serialized
// messages.
//
// The bus never opens a connection itself. The caller injects a send
// function and, optionally, a receive-registration function; the bus layers
// request/response correlation, timeouts, abort handling, payload
// validation, response trust checks, and listener dispatch on top of that
// raw channel.
//
// # Basic Usage
//
// Wire two buses over any transport by handing each one's serialized output
// to the other's Receive:
//
//	host, err := simplexbus.New(func(data []byte) error {
//	    return conn.WriteMessage(data) // any transport
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer host.Dispose()
//
//	unsubscribe, err := host.On("greet", func(ctx context.Context, payload any, reply *simplexbus.Reply) error {
//	    fmt.Println("greeting:", payload)
//	    return nil
//	})
//
// # Requests
//
// Request sends an envelope carrying a correlation id and a random nonce,
// then blocks until the counterpart answers, the timeout fires, or the
// context is cancelled:
//
//	token, err := host.Request(ctx, "get-token", nil,
//	    simplexbus.WithRequestTimeout(2*time.Second))
//
// The counterpart answers through the Reply passed to its handler:
//
//	view.On("get-token", func(ctx context.Context, _ any, reply *simplexbus.Reply) error {
//	    _, err := reply.Respond("abc123")
//	    return err
//	})
//
// A handler error (or panic) is logged and, when the inbound message was a
// request, automatically converted into an error response, so the
// requester's Request call fails with a *RemoteError.
//
// # Trust and Validation
//
// Inbound data is untrusted: malformed, oversized, or invalid messages are
// logged and dropped, never surfaced as panics or errors to the transport.
// Responses can additionally be gated by a trust predicate and, in strict
// trust mode, by a per-request nonce check that makes blind response
// spoofing impractical. Payloads can be gated per message type with plain
// predicates or compiled JSON Schemas; see WithValidator and
// NewSchemaValidator.
package simplexbus
