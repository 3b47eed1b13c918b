package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/msgledger/internal/ir"
)

// sqlTx implements ledger.Tx over a SQLite transaction.
type sqlTx struct {
	ctx context.Context
	tx  *sql.Tx
}

// Account returns the account at address as seen by this transaction.
func (t *sqlTx) Account(address string) (ir.Account, bool, error) {
	row := t.tx.QueryRowContext(t.ctx, `
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

// PutAccount creates or replaces an account.
func (t *sqlTx) PutAccount(acct ir.Account) error {
	data := acct.Data
	if data == nil {
		data = []byte{}
	}
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO accounts (address, owner, lamports, space, data, seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			owner = excluded.owner,
			lamports = excluded.lamports,
			space = excluded.space,
			data = excluded.data,
			seq = excluded.seq
	`, acct.Address, acct.Owner, acct.Lamports, acct.Space, data, acct.Seq)
	if err != nil {
		return fmt.Errorf("put account %s: %w", acct.Address, err)
	}
	return nil
}

// HasTransaction reports whether a transaction ID is already logged.
func (t *sqlTx) HasTransaction(txID string) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(t.ctx, `SELECT COUNT(*) FROM transactions WHERE id = ?`, txID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup transaction: %w", err)
	}
	return n > 0, nil
}

// AppendTransaction logs a transaction together with its receipt.
//
// Unlike account writes this is not idempotent: a second write of the same
// transaction ID violates the primary key. The runtime checks HasTransaction
// first, so hitting the constraint means two writers raced.
func (t *sqlTx) AppendTransaction(tx ir.Transaction, receipt ir.Receipt) error {
	accountsJSON, err := marshalAccountMetas(tx.Instruction.Accounts)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	argsJSON, err := marshalArgs(tx.Instruction.Args)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	sigsJSON, err := marshalSignatures(tx.Signatures)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	resultJSON, err := marshalResult(receipt.Result)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}

	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO transactions
		(id, program_id, instruction, accounts, args, nonce, signatures, seq, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		tx.ID,
		tx.Instruction.ProgramID,
		tx.Instruction.Name,
		accountsJSON,
		argsJSON,
		tx.Nonce,
		sigsJSON,
		tx.Seq,
		tx.EngineVersion,
		tx.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}

	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO receipts (id, transaction_id, outcome, result, unix_timestamp, seq)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		receipt.ID,
		receipt.TransactionID,
		receipt.Outcome,
		resultJSON,
		receipt.UnixTimestamp,
		receipt.Seq,
	)
	if err != nil {
		return fmt.Errorf("append receipt: %w", err)
	}
	return nil
}

// Commit commits the transaction.
func (t *sqlTx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction. Safe to call after Commit.
func (t *sqlTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
