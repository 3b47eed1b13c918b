// Package badgerstore implements the ledger backend on Badger, an embedded
// key-value store.
//
// Key layout:
//
//	acct:<address>  -> JSON ir.Account
//	tx:<id>         -> JSON ir.LogEntry
//	log:<seq>       -> transaction id, seq zero-padded to 20 digits
//
// Zero-padding makes lexicographic key order equal numeric seq order, so a
// prefix scan over log: reads the log in seq order.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/msgledger/internal/ir"
	"github.com/roach88/msgledger/internal/ledger"
	"github.com/roach88/msgledger/internal/queryir"
)

const (
	accountPrefix = "acct:"
	txPrefix      = "tx:"
	logPrefix     = "log:"
)

// Store is a Badger-backed ledger backend.
type Store struct {
	db *badger.DB
}

var _ ledger.Backend = (*Store)(nil)

// Open opens or creates a Badger database in dir.
func Open(dir string) (*Store, error) {
	return open(badger.DefaultOptions(dir))
}

// OpenInMemory opens a Badger database that lives only in memory.
// Used as the scratch target of a replay.
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts.WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin starts a read-write transaction.
func (s *Store) Begin(_ context.Context) (ledger.Tx, error) {
	return &badgerTx{txn: s.db.NewTransaction(true)}, nil
}

// Account returns the committed account at address.
func (s *Store) Account(_ context.Context, address string) (ir.Account, bool, error) {
	var (
		acct  ir.Account
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		acct, found, err = getAccount(txn, address)
		return err
	})
	return acct, found, err
}

// Accounts returns every account ordered by address.
func (s *Store) Accounts(_ context.Context) ([]ir.Account, error) {
	accounts := []ir.Account{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(accountPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var acct ir.Account
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &acct)
			}); err != nil {
				return fmt.Errorf("decode account %s: %w", it.Item().Key(), err)
			}
			accounts = append(accounts, normalizeAccount(acct))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("accounts: %w", err)
	}
	return accounts, nil
}

// Log returns every logged transaction with its receipt, ordered by seq.
func (s *Store) Log(_ context.Context) ([]ir.LogEntry, error) {
	entries := []ir.LogEntry{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(logPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			entry, found, err := getEntry(txn, string(id))
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("log index points at missing transaction %s", id)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	return entries, nil
}

// QueryLog returns the logged transactions matching q, ordered by seq.
// Badger has no secondary indexes, so the log is scanned and filtered
// with queryir.Apply.
func (s *Store) QueryLog(ctx context.Context, q queryir.Select) ([]ir.LogEntry, error) {
	entries, err := s.Log(ctx)
	if err != nil {
		return nil, err
	}
	return queryir.Apply(q, entries), nil
}

// LogEntry returns the logged transaction with the given ID.
func (s *Store) LogEntry(_ context.Context, txID string) (ir.LogEntry, bool, error) {
	var (
		entry ir.LogEntry
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		entry, found, err = getEntry(txn, txID)
		return err
	})
	return entry, found, err
}

// LastSeq returns the highest logged seq, or 0 for an empty log.
func (s *Store) LastSeq(_ context.Context) (int64, error) {
	var last int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seeking past the largest padded seq lands on the last log key.
		prefix := []byte(logPrefix)
		it.Seek(append([]byte(logPrefix), 0xff))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		n, err := strconv.ParseInt(string(it.Item().Key()[len(prefix):]), 10, 64)
		if err != nil {
			return err
		}
		last = n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return last, nil
}

// badgerTx implements ledger.Tx over a Badger read-write transaction.
type badgerTx struct {
	txn *badger.Txn
}

func (t *badgerTx) Account(address string) (ir.Account, bool, error) {
	return getAccount(t.txn, address)
}

func (t *badgerTx) PutAccount(acct ir.Account) error {
	val, err := json.Marshal(normalizeAccount(acct))
	if err != nil {
		return fmt.Errorf("put account %s: %w", acct.Address, err)
	}
	if err := t.txn.Set([]byte(accountPrefix+acct.Address), val); err != nil {
		return fmt.Errorf("put account %s: %w", acct.Address, err)
	}
	return nil
}

func (t *badgerTx) HasTransaction(txID string) (bool, error) {
	_, err := t.txn.Get([]byte(txPrefix + txID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup transaction: %w", err)
	}
	return true, nil
}

func (t *badgerTx) AppendTransaction(tx ir.Transaction, receipt ir.Receipt) error {
	found, err := t.HasTransaction(tx.ID)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("append transaction: %s already logged", tx.ID)
	}

	lk := []byte(logKey(tx.Seq))
	if _, err := t.txn.Get(lk); err == nil {
		return fmt.Errorf("append transaction: seq %d already logged", tx.Seq)
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("append transaction: %w", err)
	}

	val, err := json.Marshal(ir.LogEntry{Transaction: tx, Receipt: receipt})
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	if err := t.txn.Set([]byte(txPrefix+tx.ID), val); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	if err := t.txn.Set(lk, []byte(tx.ID)); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

func (t *badgerTx) Commit() error {
	return t.txn.Commit()
}

// Rollback discards the transaction. Safe to call after Commit.
func (t *badgerTx) Rollback() error {
	t.txn.Discard()
	return nil
}

func logKey(seq int64) string {
	return fmt.Sprintf("%s%020d", logPrefix, seq)
}

func getAccount(txn *badger.Txn, address string) (ir.Account, bool, error) {
	item, err := txn.Get([]byte(accountPrefix + address))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ir.Account{}, false, nil
	}
	if err != nil {
		return ir.Account{}, false, fmt.Errorf("get account %s: %w", address, err)
	}
	var acct ir.Account
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &acct)
	}); err != nil {
		return ir.Account{}, false, fmt.Errorf("decode account %s: %w", address, err)
	}
	return normalizeAccount(acct), true, nil
}

func getEntry(txn *badger.Txn, txID string) (ir.LogEntry, bool, error) {
	item, err := txn.Get([]byte(txPrefix + txID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ir.LogEntry{}, false, nil
	}
	if err != nil {
		return ir.LogEntry{}, false, fmt.Errorf("get transaction %s: %w", txID, err)
	}
	var entry ir.LogEntry
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entry)
	}); err != nil {
		return ir.LogEntry{}, false, fmt.Errorf("decode transaction %s: %w", txID, err)
	}
	return normalizeEntry(entry), true, nil
}

// normalizeAccount gives empty data a non-nil slice so both backends return
// identical values.
func normalizeAccount(acct ir.Account) ir.Account {
	if acct.Data == nil {
		acct.Data = []byte{}
	}
	return acct
}

func normalizeEntry(e ir.LogEntry) ir.LogEntry {
	if e.Transaction.Instruction.Args == nil {
		e.Transaction.Instruction.Args = ir.IRObject{}
	}
	if e.Transaction.Instruction.Accounts == nil {
		e.Transaction.Instruction.Accounts = []ir.AccountMeta{}
	}
	if e.Transaction.Signatures == nil {
		e.Transaction.Signatures = []ir.Signature{}
	}
	if e.Receipt.Result == nil {
		e.Receipt.Result = ir.IRObject{}
	}
	return e
}
