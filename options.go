package simplexbus

import (
	"fmt"
	"io"
	"log/slog"
)

// Defaults applied when the corresponding option is not set.
const (
	// DefaultResponseSuffix is appended to a request type to form the
	// expected response type.
	DefaultResponseSuffix = "-response"

	// DefaultMaxIncomingMessageBytes bounds per-message cost on the
	// receive path before any parsing is attempted.
	DefaultMaxIncomingMessageBytes = 65536

	// DefaultMaxPendingRequests bounds the in-flight request store.
	DefaultMaxPendingRequests = 500
)

// Options holds the bus configuration. Construct it through New and the
// With* functional options; zero-value fields fall back to the defaults
// above.
type Options struct {
	Logger                  *slog.Logger
	OnReceive               ReceiveRegistrar
	AllowedTypes            []string
	Validators              map[string]Validator
	Codec                   Codec
	ResponseSuffix          string
	MaxIncomingMessageBytes int
	MaxPendingRequests      int
	TrustMode               TrustMode
	IsTrustedResponse       TrustFunc
	Entropy                 io.Reader
}

// Option configures a Bus using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to an Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// validate checks the configuration eagerly so misconfiguration surfaces at
// construction instead of mid-flight.
func (o *Options) validate() error {
	if o.MaxIncomingMessageBytes < 0 {
		return fmt.Errorf("simplexbus: max incoming message bytes must be positive, got %d", o.MaxIncomingMessageBytes)
	}

	if o.MaxPendingRequests < 0 {
		return fmt.Errorf("simplexbus: max pending requests must be positive, got %d", o.MaxPendingRequests)
	}

	switch o.TrustMode {
	case "", TrustModeAuto, TrustModeStrict, TrustModePermissive:
	default:
		return fmt.Errorf("simplexbus: unknown trust mode %q", o.TrustMode)
	}

	for _, t := range o.AllowedTypes {
		if t == "" {
			return fmt.Errorf("simplexbus: allowed types must be non-empty strings")
		}
	}

	for t, v := range o.Validators {
		if t == "" {
			return fmt.Errorf("simplexbus: validator registered for empty message type")
		}

		if v == nil {
			return fmt.Errorf("simplexbus: validator for %q is nil", t)
		}
	}

	return nil
}

// WithLogger sets the logger for bus diagnostics. Receive-path drops are
// logged at error level. If not set, logging is disabled (silent
// operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithReceiveRegistrar wires the bus to the caller's inbound message
// source. The registrar is invoked once during New with the bus's receive
// callback; its optional unsubscribe function is invoked on Dispose.
//
// Configuring a registrar also makes TrustModeAuto resolve to strict.
func WithReceiveRegistrar(onReceive ReceiveRegistrar) Option {
	return func(o *Options) {
		o.OnReceive = onReceive
	}
}

// WithAllowedTypes restricts the message types the bus will send and
// accept. An empty allow-list (the default) allows all types. Response
// envelopes sent through Reply bypass the allow-list.
func WithAllowedTypes(types ...string) Option {
	return func(o *Options) {
		o.AllowedTypes = append(o.AllowedTypes, types...)
	}
}

// WithValidator registers a payload validator for one message type. The
// validator gates both outgoing payloads (Send, Request, Reply) and
// inbound payloads before dispatch.
func WithValidator(msgType string, v Validator) Option {
	return func(o *Options) {
		if o.Validators == nil {
			o.Validators = make(map[string]Validator)
		}

		o.Validators[msgType] = v
	}
}

// WithValidators registers payload validators for several message types at
// once.
func WithValidators(validators map[string]Validator) Option {
	return func(o *Options) {
		if o.Validators == nil {
			o.Validators = make(map[string]Validator, len(validators))
		}

		for t, v := range validators {
			o.Validators[t] = v
		}
	}
}

// WithCodec substitutes the envelope codec. The default is JSONCodec.
func WithCodec(codec Codec) Option {
	return func(o *Options) {
		o.Codec = codec
	}
}

// WithResponseSuffix changes the suffix appended to a request type to form
// its response type. The default is "-response". Both sides of a bus pair
// must agree on the suffix.
func WithResponseSuffix(suffix string) Option {
	return func(o *Options) {
		o.ResponseSuffix = suffix
	}
}

// WithMaxIncomingMessageBytes bounds the size of inbound messages; larger
// messages are logged and dropped before parsing. The default is 65536.
func WithMaxIncomingMessageBytes(n int) Option {
	return func(o *Options) {
		o.MaxIncomingMessageBytes = n
	}
}

// WithMaxPendingRequests bounds the number of in-flight requests; Request
// fails with a *LimitError once the cap is reached. The default is 500.
func WithMaxPendingRequests(n int) Option {
	return func(o *Options) {
		o.MaxPendingRequests = n
	}
}

// WithTrustMode sets the response trust policy. The default is
// TrustModeAuto.
func WithTrustMode(mode TrustMode) Option {
	return func(o *Options) {
		o.TrustMode = mode
	}
}

// WithTrustFunc installs a predicate consulted before any response may
// settle a pending request. The default accepts every response that
// matches on correlation id and expected type.
func WithTrustFunc(trust TrustFunc) Option {
	return func(o *Options) {
		o.IsTrustedResponse = trust
	}
}

// WithEntropy substitutes the randomness source behind correlation ids and
// nonces. The default is the cryptographically strong OS source; tests use
// a seeded reader for determinism.
func WithEntropy(entropy io.Reader) Option {
	return func(o *Options) {
		o.Entropy = entropy
	}
}
