package ledger

import (
	"context"

	"github.com/roach88/msgledger/internal/ir"
	"github.com/roach88/msgledger/internal/queryir"
)

// Backend is durable storage for accounts and the transaction log.
//
// Implemented by store.Store (SQLite) and badgerstore.Store (Badger).
// The runtime is the only writer; reads may happen from any goroutine.
type Backend interface {
	// Begin starts a write transaction. Nothing written through it is
	// visible until Commit.
	Begin(ctx context.Context) (Tx, error)

	// Account returns the committed account at address.
	Account(ctx context.Context, address string) (ir.Account, bool, error)

	// Accounts returns every committed account ordered by address.
	Accounts(ctx context.Context) ([]ir.Account, error)

	// Log returns every logged transaction with its receipt, ordered by seq.
	Log(ctx context.Context) ([]ir.LogEntry, error)

	// QueryLog returns the logged transactions matching q, ordered by seq.
	QueryLog(ctx context.Context, q queryir.Select) ([]ir.LogEntry, error)

	// LogEntry returns the logged transaction with the given ID.
	LogEntry(ctx context.Context, txID string) (ir.LogEntry, bool, error)

	// LastSeq returns the highest logged seq, or 0 for an empty log.
	LastSeq(ctx context.Context) (int64, error)

	Close() error
}

// Tx is a backend write transaction.
type Tx interface {
	// Account returns the account at address as seen by this transaction.
	Account(address string) (ir.Account, bool, error)

	// PutAccount creates or replaces an account.
	PutAccount(acct ir.Account) error

	// HasTransaction reports whether a transaction ID is already logged.
	HasTransaction(txID string) (bool, error)

	// AppendTransaction logs a transaction together with its receipt.
	AppendTransaction(tx ir.Transaction, receipt ir.Receipt) error

	Commit() error
	Rollback() error
}
