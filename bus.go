package simplexbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	buserrors "github.com/LucianoVandi/simplex-bus/internal/errors"
	"github.com/LucianoVandi/simplex-bus/internal/ident"
	"github.com/LucianoVandi/simplex-bus/internal/pending"
	"github.com/LucianoVandi/simplex-bus/internal/registry"
	"github.com/LucianoVandi/simplex-bus/internal/validate"
)

// Bus is one endpoint of a bidirectional command/event channel.
//
// A Bus owns its pending-request store and handler registry exclusively;
// two buses share nothing except the transport functions the caller wires
// between them. All methods are safe for concurrent use.
type Bus struct {
	log   *slog.Logger
	send  SendFunc
	codec Codec

	allowed     map[string]struct{} // nil means allow all
	validators  *validate.Registry
	gen         *ident.Generator
	suffix      string
	maxIncoming int
	trustMode   TrustMode // resolved: strict or permissive
	trust       TrustFunc

	pending  *pending.Store
	handlers *registry.Registry[Handler]

	// Lifetime context handed to handlers, cancelled on Dispose.
	baseCtx context.Context
	cancel  context.CancelFunc

	disposed    atomic.Bool
	disposeOnce sync.Once
	unsubscribe func()
}

// New creates a Bus that sends through sendFn.
//
// Configuration errors surface here, never during message flow. The bus
// starts receiving immediately if a receive registrar is configured;
// otherwise the caller feeds inbound data through Receive.
func New(sendFn SendFunc, opts ...Option) (*Bus, error) {
	if sendFn == nil {
		return nil, fmt.Errorf("simplexbus: send function is required")
	}

	options := applyOptions(opts)
	if err := options.validate(); err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = NopLogger()
	}

	codec := options.Codec
	if codec == nil {
		codec = JSONCodec{}
	}

	suffix := options.ResponseSuffix
	if suffix == "" {
		suffix = DefaultResponseSuffix
	}

	maxIncoming := options.MaxIncomingMessageBytes
	if maxIncoming == 0 {
		maxIncoming = DefaultMaxIncomingMessageBytes
	}

	maxPending := options.MaxPendingRequests
	if maxPending == 0 {
		maxPending = DefaultMaxPendingRequests
	}

	entropy := options.Entropy
	if entropy == nil {
		entropy = ident.CryptoEntropy()
	}

	var allowed map[string]struct{}
	if len(options.AllowedTypes) > 0 {
		allowed = make(map[string]struct{}, len(options.AllowedTypes))
		for _, t := range options.AllowedTypes {
			allowed[t] = struct{}{}
		}
	}

	validators := make(map[string]validate.Validator, len(options.Validators))
	for t, v := range options.Validators {
		validators[t] = v
	}

	// Auto trust resolves at construction, never per message: a bus wired
	// to an external inbound source gets the strict nonce check.
	mode := options.TrustMode
	if mode == "" || mode == TrustModeAuto {
		if options.OnReceive != nil {
			mode = TrustModeStrict
		} else {
			mode = TrustModePermissive
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	b := &Bus{
		log:         logger.With("component", "bus"),
		send:        sendFn,
		codec:       codec,
		allowed:     allowed,
		validators:  validate.NewRegistry(validators),
		gen:         ident.NewGenerator(entropy),
		suffix:      suffix,
		maxIncoming: maxIncoming,
		trustMode:   mode,
		trust:       options.IsTrustedResponse,
		pending:     pending.NewStore(maxPending),
		handlers:    registry.New[Handler](),
		baseCtx:     ctx,
		cancel:      cancel,
	}

	if options.OnReceive != nil {
		b.unsubscribe = options.OnReceive(b.Receive)
	}

	b.log.Debug("bus created",
		"trust_mode", string(mode),
		"allowed_types", len(options.AllowedTypes),
		"max_pending", maxPending,
	)

	return b, nil
}

// On registers a listener for msgType and returns an unsubscribe function.
// The unsubscribe function reports whether the listener was still
// registered and is safe to call more than once.
func (b *Bus) On(msgType string, h Handler) (func() bool, error) {
	if err := b.checkRegistration(msgType, h); err != nil {
		return nil, err
	}

	return b.handlers.Add(msgType, h), nil
}

// Once registers a listener that unregisters itself before its first
// invocation, so it runs at most once even when messages race.
func (b *Bus) Once(msgType string, h Handler) (func() bool, error) {
	if err := b.checkRegistration(msgType, h); err != nil {
		return nil, err
	}

	once := &onceHandler{handler: h}
	remove := b.handlers.Add(msgType, once.invoke)
	once.arm(remove)

	return remove, nil
}

// Off removes every listener for msgType and reports whether any existed.
// Individual listeners are removed through the unsubscribe function
// returned by On or Once.
func (b *Bus) Off(msgType string) (bool, error) {
	if b.disposed.Load() {
		return false, buserrors.ErrDisposed
	}

	if msgType == "" {
		return false, &ValidationError{Err: buserrors.ErrEmptyType}
	}

	return b.handlers.RemoveAll(msgType), nil
}

func (b *Bus) checkRegistration(msgType string, h Handler) error {
	if b.disposed.Load() {
		return buserrors.ErrDisposed
	}

	if msgType == "" {
		return &ValidationError{Err: buserrors.ErrEmptyType}
	}

	if h == nil {
		return fmt.Errorf("simplexbus: handler must not be nil")
	}

	if !b.typeAllowed(msgType) {
		return &ValidationError{Type: msgType, Err: buserrors.ErrTypeNotAllowed}
	}

	return nil
}

// Dispose tears the bus down: every pending request is rejected with
// ErrDisposed, all listeners are removed, and the receive registrar's
// unsubscribe function (if any) is invoked. Dispose is idempotent, and the
// transition is one-way; after it, Send, Request, On, Once, and Off fail
// with ErrDisposed while Receive becomes a silent no-op.
func (b *Bus) Dispose() {
	b.disposeOnce.Do(func() {
		b.disposed.Store(true)
		b.cancel()

		rejected := b.pending.RejectAll(buserrors.ErrDisposed)
		b.handlers.Clear()

		if b.unsubscribe != nil {
			b.unsubscribe()
		}

		b.log.Debug("bus disposed", "rejected_requests", rejected)
	})
}

// PendingRequests returns the number of in-flight requests.
func (b *Bus) PendingRequests() int {
	return b.pending.Len()
}

// HandlerCount returns the number of listeners registered for msgType.
func (b *Bus) HandlerCount(msgType string) int {
	return b.handlers.Count(msgType)
}

func (b *Bus) typeAllowed(msgType string) bool {
	if b.allowed == nil {
		return true
	}

	_, ok := b.allowed[msgType]

	return ok
}

// onceHandler wraps a listener so it fires at most once. The removal token
// is armed after registration; a message dispatched in that window still
// respects the at-most-once guarantee via the fired flag.
type onceHandler struct {
	mu      sync.Mutex
	fired   bool
	remove  func() bool
	handler Handler
}

func (o *onceHandler) arm(remove func() bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.remove = remove
}

func (o *onceHandler) invoke(ctx context.Context, payload any, reply *Reply) error {
	o.mu.Lock()

	if o.fired {
		o.mu.Unlock()

		return nil
	}

	o.fired = true
	remove := o.remove
	o.mu.Unlock()

	// Unregister before invocation, matching the once contract.
	if remove != nil {
		remove()
	}

	return o.handler(ctx, payload, reply)
}
