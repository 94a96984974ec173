package simplexbus

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/LucianoVandi/simplex-bus/internal/envelope"
	"github.com/LucianoVandi/simplex-bus/internal/validate"
)

// Envelope is the wire message exchanged between contexts.
type Envelope = envelope.Envelope

// Codec converts envelopes to and from their serialized transport form.
// The default is JSONCodec.
type Codec = envelope.Codec

// JSONCodec is the default Codec: encoding/json plus a cheap shape check on
// raw bytes before the full decode is attempted.
type JSONCodec = envelope.JSONCodec

// Handler processes one inbound message for a registered type.
//
// The context is the bus lifetime context; it is cancelled when the bus is
// disposed. Use reply to answer request-shaped messages. Returning an error
// (or panicking) is logged and, when the message carried a correlation id,
// converted into an error response for the requester.
type Handler func(ctx context.Context, payload any, reply *Reply) error

// Validator checks a payload before it is sent or dispatched.
// A nil return accepts the payload.
type Validator = validate.Validator

// ValidatorFunc adapts a plain function to the Validator interface.
type ValidatorFunc = validate.Func

// Schema is a JSON Schema object usable with NewSchemaValidator.
type Schema = jsonschema.Schema

// NewSchemaValidator compiles a JSON Schema into a payload Validator.
// Schema resolution errors surface here, at configuration time, never
// during message flow.
func NewSchemaValidator(schema *Schema) (Validator, error) {
	return validate.ForSchema(schema)
}

// TrustMode controls how strictly an incoming response must prove it
// corresponds to the pending request before it may settle it.
type TrustMode string

const (
	// TrustModeAuto resolves to strict when a receive registrar is
	// configured (the bus is wired to an external inbound source) and to
	// permissive otherwise.
	TrustModeAuto TrustMode = "auto"

	// TrustModeStrict requires the response nonce to match the request
	// nonce; mismatches are dropped as possible spoofing.
	TrustModeStrict TrustMode = "strict"

	// TrustModePermissive matches responses on correlation id and type
	// alone.
	TrustModePermissive TrustMode = "permissive"
)

// TrustContext carries everything a trust predicate may inspect about a
// candidate response before it is allowed to settle a pending request.
type TrustContext struct {
	RequestType   string
	RequestID     string
	ResponseType  string
	RequestNonce  string
	ResponseNonce string
	Payload       any
	IsError       bool
	Raw           []byte
}

// TrustFunc decides whether a candidate response may settle its pending
// request. Returning false (or panicking) drops the response and leaves the
// request pending, so a legitimate later response or the timeout still
// decides its fate.
type TrustFunc func(tc *TrustContext) bool
