// Package ident produces correlation identifiers and nonces for the bus.
//
// Both draw from a single injected entropy source so tests can substitute a
// deterministic reader. Correlation ids are ULIDs; nonces are random UUIDs.
package ident

import (
	"crypto/rand"
	"io"
	insecure "math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// CryptoEntropy returns the cryptographically strong entropy source.
// This is the default for production buses.
func CryptoEntropy() io.Reader {
	return rand.Reader
}

// InsecureEntropy returns a seeded, deterministic entropy source.
// Identifiers drawn from it are predictable; use it only in tests or in
// environments without access to OS randomness.
func InsecureEntropy(seed int64) io.Reader {
	return insecure.New(insecure.NewSource(seed))
}

// Generator mints correlation ids and request nonces.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewGenerator creates a Generator backed by the given entropy source.
// The source is serialized internally, so it need not be safe for
// concurrent use.
func NewGenerator(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// NewID returns a fresh correlation id.
//
// ULIDs are time-ordered, which keeps pending-request logs readable, and
// their random component comes from the injected entropy source.
func (g *Generator) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now()), g.entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// NewNonce returns a fresh per-request nonce.
func (g *Generator) NewNonce() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, err := uuid.NewRandomFromReader(g.entropy)
	if err != nil {
		return "", err
	}

	return n.String(), nil
}
