package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/msgledger/internal/ir"
)

const (
	testProgram = "8LyUD5qQzYLBYPVa4JYBm4GapUffLg9MGfQuJwCEQWtR"
	testWallet  = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	testMessage = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEntry creates a logged transaction and receipt with the given seq.
func createTestEntry(nonce string, seq int64, outcome string) (ir.Transaction, ir.Receipt) {
	ix := ir.Instruction{
		ProgramID: testProgram,
		Name:      "create_message",
		Accounts: []ir.AccountMeta{
			{Role: "message", Address: testMessage},
			{Role: "author", Address: testWallet},
		},
		Args: ir.IRObject{"content": ir.IRString("hello")},
	}
	tx := ir.Transaction{
		ID:            ir.MustTransactionID(ix, nonce),
		Instruction:   ix,
		Nonce:         nonce,
		Signatures:    []ir.Signature{{Signer: testWallet, Value: "sig"}},
		Seq:           seq,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	result := ir.IRObject{"message": ir.IRString(testMessage)}
	rid, err := ir.ReceiptID(tx.ID, outcome, result, 1700000000+seq, seq)
	if err != nil {
		panic(err)
	}
	rc := ir.Receipt{
		ID:            rid,
		TransactionID: tx.ID,
		Outcome:       outcome,
		Result:        result,
		UnixTimestamp: 1700000000 + seq,
		Seq:           seq,
	}
	return tx, rc
}

// appendEntry commits a log entry in its own transaction.
func appendEntry(t *testing.T, s *Store, tx ir.Transaction, rc ir.Receipt) {
	t.Helper()
	btx, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	if err := btx.AppendTransaction(tx, rc); err != nil {
		btx.Rollback()
		t.Fatalf("AppendTransaction() failed: %v", err)
	}
	if err := btx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
}
