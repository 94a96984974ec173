package envelope

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Codec converts envelopes to and from their serialized transport form.
//
// The default is JSONCodec. Callers embedding the bus in a context with a
// different wire format substitute their own implementation.
type Codec interface {
	Encode(msg *Envelope) ([]byte, error)
	Decode(data []byte) (*Envelope, error)
}

// Inspector is an optional Codec capability: a cheap shape check on raw
// bytes before the full decode is attempted. The receive path uses it to
// drop malformed input without paying for a complete parse.
type Inspector interface {
	Inspect(raw []byte) error
}

// Shape check failures reported by JSONCodec.Inspect.
var (
	ErrInvalidJSON  = errors.New("invalid JSON")
	ErrNotAnObject  = errors.New("message is not a JSON object")
	ErrMissingType  = errors.New("missing or empty type field")
	ErrBadCorrelID  = errors.New("id must be a non-empty string")
	ErrBadNonce     = errors.New("nonce must be a non-empty string")
	ErrBadErrorFlag = errors.New("isError must be a boolean")
)

// JSONCodec is the default Codec: encoding/json with a gjson-based
// pre-decode inspection.
type JSONCodec struct{}

// Encode serializes the envelope as JSON.
func (JSONCodec) Encode(msg *Envelope) ([]byte, error) {
	return json.Marshal(msg)
}

// Decode parses a JSON envelope.
func (JSONCodec) Decode(data []byte) (*Envelope, error) {
	var msg Envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}

	return &msg, nil
}

// Inspect implements Inspector. It verifies the raw bytes are a JSON object
// with a non-empty string type, and that id, nonce, and isError, when
// present, have the right shapes.
func (JSONCodec) Inspect(raw []byte) error {
	if !gjson.ValidBytes(raw) {
		return ErrInvalidJSON
	}

	v := gjson.ParseBytes(raw)
	if !v.IsObject() {
		return ErrNotAnObject
	}

	typ := v.Get("type")
	if typ.Type != gjson.String || typ.Str == "" {
		return ErrMissingType
	}

	if err := inspectStringField(v, "id", ErrBadCorrelID); err != nil {
		return err
	}

	if err := inspectStringField(v, "nonce", ErrBadNonce); err != nil {
		return err
	}

	if flag := v.Get("isError"); flag.Exists() && flag.Type != gjson.True && flag.Type != gjson.False {
		return ErrBadErrorFlag
	}

	return nil
}

func inspectStringField(v gjson.Result, path string, shapeErr error) error {
	field := v.Get(path)
	if !field.Exists() {
		return nil
	}

	if field.Type != gjson.String || field.Str == "" {
		return fmt.Errorf("%w (got %s)", shapeErr, field.Type)
	}

	return nil
}
