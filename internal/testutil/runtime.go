package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/msgledger/internal/ledger"
	"github.com/roach88/msgledger/internal/store"
)

// NewStore opens a SQLite store in a temp dir, closed when the test ends.
func NewStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// NewRuntime creates a runtime over a fresh SQLite store.
func NewRuntime(t testing.TB, opts ...ledger.Option) (*ledger.Runtime, *store.Store) {
	t.Helper()
	s := NewStore(t)
	rt, err := ledger.New(context.Background(), s, opts...)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	return rt, s
}

// Airdrop funds address, failing the test on error.
func Airdrop(t testing.TB, rt *ledger.Runtime, address string, lamports int64, nonce string) {
	t.Helper()
	tx, err := ledger.NewTransaction(ledger.AirdropInstruction(address, lamports), nonce)
	if err != nil {
		t.Fatalf("airdrop: %v", err)
	}
	if _, err := rt.Submit(context.Background(), tx); err != nil {
		t.Fatalf("airdrop: %v", err)
	}
}
