// Package pending tracks in-flight requests awaiting correlated responses.
//
// The store is a bounded arena keyed by correlation id. Settlement follows a
// claim-once discipline: whoever removes an entry with Claim owns its single
// settlement, so a response racing a timeout, an abort, or disposal can never
// settle the same request twice.
package pending

import (
	"sync"

	buserrors "github.com/LucianoVandi/simplex-bus/internal/errors"
)

// Outcome is the terminal result delivered to a waiting request.
type Outcome struct {
	Payload any
	Err     error
}

// Request is a single in-flight request.
type Request struct {
	// Type is the outbound message type that opened the request.
	Type string

	// ExpectedResponseType is the only inbound type that may settle it.
	ExpectedResponseType string

	// Nonce is the random token sent with the request, checked against
	// response nonces in strict trust mode.
	Nonce string

	outcome chan Outcome
}

// Settle delivers the terminal outcome. The caller must have claimed the
// request; Settle never blocks because the channel is buffered for exactly
// one outcome.
func (r *Request) Settle(o Outcome) {
	r.outcome <- o
}

// Outcome returns the channel the terminal outcome arrives on.
func (r *Request) Outcome() <-chan Outcome {
	return r.outcome
}

// Store is a bounded collection of in-flight requests.
type Store struct {
	mu    sync.Mutex
	limit int
	reqs  map[string]*Request
}

// NewStore creates a store that holds at most limit requests.
func NewStore(limit int) *Store {
	return &Store{
		limit: limit,
		reqs:  make(map[string]*Request, 10),
	}
}

// Add registers a new in-flight request under the given correlation id.
// It returns a LimitError when the store is full; the caller must not send
// the request in that case.
func (s *Store) Add(id, reqType, responseType, nonce string) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.reqs) >= s.limit {
		return nil, &buserrors.LimitError{Limit: s.limit}
	}

	req := &Request{
		Type:                 reqType,
		ExpectedResponseType: responseType,
		Nonce:                nonce,
		outcome:              make(chan Outcome, 1),
	}
	s.reqs[id] = req

	return req, nil
}

// Lookup returns the request for id without removing it. The response path
// uses this for trust evaluation, which must leave an untrusted request
// pending.
func (s *Store) Lookup(id string) (*Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.reqs[id]

	return req, ok
}

// Claim atomically removes and returns the request for id. Exactly one
// caller wins; later claims for the same id report false. The winner is
// responsible for settling the request (or returning its outcome directly).
func (s *Store) Claim(id string) (*Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.reqs[id]
	if ok {
		delete(s.reqs, id)
	}

	return req, ok
}

// RejectAll claims every in-flight request and settles it with err.
// It returns the number of requests rejected.
func (s *Store) RejectAll(err error) int {
	s.mu.Lock()
	claimed := s.reqs
	s.reqs = make(map[string]*Request)
	s.mu.Unlock()

	for _, req := range claimed {
		req.Settle(Outcome{Err: err})
	}

	return len(claimed)
}

// Len returns the number of in-flight requests.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.reqs)
}
