package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/msgledger/internal/ir"
	"github.com/roach88/msgledger/internal/queryir"
	"github.com/roach88/msgledger/internal/querysql"
)

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Account returns the committed account at address.
func (s *Store) Account(ctx context.Context, address string) (ir.Account, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, owner, lamports, space, data, seq
		FROM accounts
		WHERE address = ?
	`, address)
	acct, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Account{}, false, nil
	}
	if err != nil {
		return ir.Account{}, false, err
	}
	return acct, true, nil
}

// Accounts returns every account ordered by address.
//
// Returns an empty slice (not nil) if no accounts exist.
func (s *Store) Accounts(ctx context.Context) ([]ir.Account, error) {
	return s.queryAccounts(ctx, `
		SELECT address, owner, lamports, space, data, seq
		FROM accounts
		ORDER BY address COLLATE BINARY ASC
	`)
}

// AccountsByOwner returns every account owned by owner, ordered by address.
func (s *Store) AccountsByOwner(ctx context.Context, owner string) ([]ir.Account, error) {
	return s.queryAccounts(ctx, `
		SELECT address, owner, lamports, space, data, seq
		FROM accounts
		WHERE owner = ?
		ORDER BY address COLLATE BINARY ASC
	`, owner)
}

func (s *Store) queryAccounts(ctx context.Context, query string, args ...any) ([]ir.Account, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []ir.Account{}
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// Log returns every logged transaction with its receipt, ordered by seq.
//
// Returns an empty slice (not nil) if the log is empty.
func (s *Store) Log(ctx context.Context) ([]ir.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, logSelect+`
		ORDER BY t.seq ASC, t.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	entries := []ir.LogEntry{}
	for rows.Next() {
		entry, err := scanLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return entries, nil
}

// QueryLog returns the logged transactions matching q, ordered by seq.
//
// The query is compiled to parameterized SQL over the transactions and
// receipts join.
func (s *Store) QueryLog(ctx context.Context, q queryir.Select) ([]ir.LogEntry, error) {
	stmt, err := querysql.NewSQLCompiler(logSelect).Compile(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.Params...)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	entries := []ir.LogEntry{}
	for rows.Next() {
		entry, err := scanLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	if stmt.Reverse {
		slices.Reverse(entries)
	}
	return entries, nil
}

// LogEntry returns the logged transaction with the given ID.
func (s *Store) LogEntry(ctx context.Context, txID string) (ir.LogEntry, bool, error) {
	row := s.db.QueryRowContext(ctx, logSelect+`
		WHERE t.id = ?
	`, txID)
	entry, err := scanLogEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.LogEntry{}, false, nil
	}
	if err != nil {
		return ir.LogEntry{}, false, err
	}
	return entry, true, nil
}

// LastSeq returns the highest logged seq, or 0 for an empty log.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM transactions`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

const logSelect = `
	SELECT t.id, t.program_id, t.instruction, t.accounts, t.args, t.nonce, t.signatures,
	       t.seq, t.engine_version, t.ir_version,
	       r.id, r.outcome, r.result, r.unix_timestamp, r.seq
	FROM transactions t
	JOIN receipts r ON r.transaction_id = t.id
`

func scanAccount(row rowScanner) (ir.Account, error) {
	var acct ir.Account
	if err := row.Scan(&acct.Address, &acct.Owner, &acct.Lamports, &acct.Space, &acct.Data, &acct.Seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Account{}, err
		}
		return ir.Account{}, fmt.Errorf("scan account: %w", err)
	}
	if acct.Data == nil {
		acct.Data = []byte{}
	}
	return acct, nil
}

func scanLogEntry(row rowScanner) (ir.LogEntry, error) {
	var (
		tx                               ir.Transaction
		rc                               ir.Receipt
		accountsJSON, argsJSON, sigsJSON string
		resultJSON                       string
	)
	err := row.Scan(
		&tx.ID, &tx.Instruction.ProgramID, &tx.Instruction.Name, &accountsJSON, &argsJSON,
		&tx.Nonce, &sigsJSON, &tx.Seq, &tx.EngineVersion, &tx.IRVersion,
		&rc.ID, &rc.Outcome, &resultJSON, &rc.UnixTimestamp, &rc.Seq,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.LogEntry{}, err
		}
		return ir.LogEntry{}, fmt.Errorf("scan log entry: %w", err)
	}

	if tx.Instruction.Accounts, err = unmarshalAccountMetas(accountsJSON); err != nil {
		return ir.LogEntry{}, err
	}
	if tx.Instruction.Args, err = unmarshalArgs(argsJSON); err != nil {
		return ir.LogEntry{}, err
	}
	if tx.Signatures, err = unmarshalSignatures(sigsJSON); err != nil {
		return ir.LogEntry{}, err
	}
	if rc.Result, err = unmarshalResult(resultJSON); err != nil {
		return ir.LogEntry{}, err
	}
	rc.TransactionID = tx.ID

	return ir.LogEntry{Transaction: tx, Receipt: rc}, nil
}
