// Package validate gates payloads per message type before they are sent or
// dispatched.
package validate

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	buserrors "github.com/LucianoVandi/simplex-bus/internal/errors"
)

// Validator checks one payload. A nil return means the payload is accepted.
type Validator interface {
	Validate(payload any) error
}

// Func adapts a plain function to the Validator interface.
type Func func(payload any) error

// Validate implements Validator.
func (f Func) Validate(payload any) error {
	return f(payload)
}

// Registry holds the per-type validators configured at construction.
// Types without a validator pass trivially.
type Registry struct {
	validators map[string]Validator
}

// NewRegistry creates a registry over the given validator map. The map is
// not copied; the bus owns it after construction.
func NewRegistry(validators map[string]Validator) *Registry {
	return &Registry{validators: validators}
}

// Validate runs the validator registered for msgType against payload.
// A validator error or panic is wrapped as a ValidationError; a missing
// validator accepts the payload.
func (r *Registry) Validate(msgType string, payload any) (err error) {
	v := r.validators[msgType]
	if v == nil {
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = &buserrors.ValidationError{
				Type: msgType,
				Err:  fmt.Errorf("validator panic: %v", rec),
			}
		}
	}()

	if verr := v.Validate(payload); verr != nil {
		return &buserrors.ValidationError{Type: msgType, Err: verr}
	}

	return nil
}

// SchemaValidator validates payloads against a compiled JSON Schema.
type SchemaValidator struct {
	resolved *jsonschema.Resolved
}

// ForSchema compiles a JSON Schema into a Validator. Resolution errors
// (bad references, malformed schema) surface at construction, never during
// message flow.
func ForSchema(schema *jsonschema.Schema) (*SchemaValidator, error) {
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve schema: %w", err)
	}

	return &SchemaValidator{resolved: resolved}, nil
}

// Validate implements Validator.
func (v *SchemaValidator) Validate(payload any) error {
	return v.resolved.Validate(payload)
}
