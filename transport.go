package simplexbus

// SendFunc delivers one serialized envelope to the counterpart context.
//
// The bus never interprets the transport: a SendFunc may write to a
// websocket, post to an embedded view, push onto a channel, or anything
// else. Errors returned by a SendFunc propagate to the caller of Send,
// Request, or Reply.Respond.
type SendFunc func(data []byte) error

// ReceiveRegistrar hooks the bus into the caller's inbound message source.
//
// When configured via WithReceiveRegistrar, the bus invokes it once at
// construction with its own receive callback; the registrar wires that
// callback to the transport and may return an unsubscribe function, which
// the bus invokes on Dispose. Either the registrar or direct calls to
// Bus.Receive can feed inbound data.
type ReceiveRegistrar func(receive func(raw []byte)) (unsubscribe func())
