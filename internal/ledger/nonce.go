package ledger

import (
	"sync"

	"github.com/google/uuid"
)

// NonceGenerator produces transaction nonces. Two transactions with the same
// instruction differ only by nonce, so the nonce keeps their IDs distinct.
type NonceGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 nonces.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined nonces for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	nonces []string
	idx    int
}

// NewFixedGenerator creates a generator that returns nonces in order.
//
// Example:
//
//	gen := NewFixedGenerator("n-1", "n-2")
//	gen.Generate() // "n-1"
//	gen.Generate() // "n-2"
//	gen.Generate() // panic: all nonces exhausted
func NewFixedGenerator(nonces ...string) *FixedGenerator {
	return &FixedGenerator{nonces: nonces}
}

// Generate returns the next predetermined nonce.
//
// Panics if all nonces have been consumed, which catches a test that
// submits more transactions than it planned for.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.nonces) {
		panic("FixedGenerator: all nonces exhausted")
	}
	n := g.nonces[g.idx]
	g.idx++
	return n
}
