package testutil

import (
	"fmt"
	"sync"
)

// CountingNonceGenerator generates "<prefix>-1", "<prefix>-2", ... and never
// runs out.
//
// The same scenario with the same prefix produces byte-identical transaction
// IDs, which golden traces rely on.
//
// Thread-safety: safe for concurrent use via internal mutex.
type CountingNonceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewCountingNonceGenerator creates a generator. An empty prefix becomes "nonce".
func NewCountingNonceGenerator(prefix string) *CountingNonceGenerator {
	if prefix == "" {
		prefix = "nonce"
	}
	return &CountingNonceGenerator{prefix: prefix}
}

// Generate returns the next nonce.
// Implements ledger.NonceGenerator.
func (g *CountingNonceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
