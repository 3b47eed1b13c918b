package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/msgledger/internal/ir"
	"github.com/roach88/msgledger/internal/queryir"
)

// Runtime is the single-writer ledger: it routes signed transactions to
// registered programs and logs every outcome.
//
// Thread-safety model:
//   - Submit serializes execution behind a mutex, so two transactions that
//     touch the same account never interleave. Submission order decides
//     which write is observed last.
//   - Read methods go straight to the backend and are safe from any goroutine.
//
// Each transaction runs in one backend transaction. On success its writes,
// the transaction and its receipt commit together. On a program error the
// writes are rolled back and only the failure receipt is logged.
type Runtime struct {
	mu        sync.Mutex
	backend   Backend
	clock     ClockOracle
	seq       *Sequencer
	allocator *Allocator
	programs  map[string]Program
	order     []string // registration order
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithClock sets the Clock Oracle. Default: SystemClock.
func WithClock(c ClockOracle) Option {
	return func(r *Runtime) {
		r.clock = c
	}
}

// WithRent sets the rent parameters used for allocation. Default: DefaultRent().
func WithRent(rent Rent) Option {
	return func(r *Runtime) {
		r.allocator = NewAllocator(rent)
	}
}

// New creates a runtime over backend with the system program registered.
// The logical clock resumes after the highest seq already in the log.
func New(ctx context.Context, backend Backend, opts ...Option) (*Runtime, error) {
	last, err := backend.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("new runtime: %w", err)
	}

	r := &Runtime{
		backend:   backend,
		clock:     SystemClock{},
		seq:       NewSequencerAt(last),
		allocator: NewAllocator(DefaultRent()),
		programs:  make(map[string]Program),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.Register(SystemProgram{}); err != nil {
		return nil, err
	}
	return r, nil
}

// Register makes a program callable. Its interface must validate and its ID
// must be a valid address not already registered.
func (r *Runtime) Register(p Program) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.ID()
	if _, err := ParsePublicKey(id); err != nil {
		return fmt.Errorf("register program: %w", err)
	}
	if _, exists := r.programs[id]; exists {
		return fmt.Errorf("register program: %s already registered", id)
	}
	spec := p.Spec()
	if errs := spec.Validate(); len(errs) > 0 {
		return fmt.Errorf("register program %s: %s", id, errs[0])
	}

	r.programs[id] = p
	r.order = append(r.order, id)
	slog.Debug("program registered", "program_id", id, "name", spec.Name)
	return nil
}

// Program returns the registered program with the given ID.
func (r *Runtime) Program(id string) (Program, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.programs[id]
	return p, ok
}

// Rent returns the rent parameters used for allocation.
func (r *Runtime) Rent() Rent {
	return r.allocator.Rent()
}

// Submit executes a signed transaction.
//
// Returns the receipt and nil on success. When the program or the signature
// check fails, the failure receipt is logged and returned together with the
// *Error that caused it. A transaction whose ID is already logged is rejected
// with DuplicateTransaction and nothing is logged.
func (r *Runtime) Submit(ctx context.Context, tx ir.Transaction) (ir.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apply(ctx, tx, nil)
}

// apply runs one transaction. When replayed is non-nil its clock reading and
// seq are used instead of the live clock. Caller holds r.mu.
func (r *Runtime) apply(ctx context.Context, tx ir.Transaction, replayed *ir.Receipt) (ir.Receipt, error) {
	id, err := ir.TransactionID(tx.Instruction, tx.Nonce)
	if err != nil {
		return ir.Receipt{}, NewInvalidInstructionError("transaction id: %v", err)
	}
	if tx.ID != "" && tx.ID != id {
		return ir.Receipt{}, NewInvalidInstructionError("transaction id %s does not match its content", tx.ID)
	}
	tx.ID = id
	// Programs see the args exactly as they are logged and replayed.
	tx.Instruction.Args = ir.NormalizeObject(tx.Instruction.Args)

	btx, err := r.backend.Begin(ctx)
	if err != nil {
		return ir.Receipt{}, fmt.Errorf("submit %s: %w", id, err)
	}

	dup, err := btx.HasTransaction(id)
	if err != nil {
		btx.Rollback()
		return ir.Receipt{}, fmt.Errorf("submit %s: %w", id, err)
	}
	if dup {
		btx.Rollback()
		slog.Debug("duplicate transaction rejected", "tx_id", id)
		return ir.Receipt{}, NewDuplicateTransactionError(id)
	}

	var now, seq int64
	if replayed != nil {
		now, seq = replayed.UnixTimestamp, replayed.Seq
		r.seq.observe(seq)
	} else {
		now, seq = r.clock.Now(), r.seq.Next()
	}
	tx.Seq = seq
	if tx.EngineVersion == "" {
		tx.EngineVersion = ir.EngineVersion
	}
	if tx.IRVersion == "" {
		tx.IRVersion = ir.IRVersion
	}

	result, execErr := r.execute(ctx, btx, tx, now, seq)
	if execErr == nil {
		receipt, err := newReceipt(id, ir.OutcomeSuccess, result, now, seq)
		if err != nil {
			btx.Rollback()
			return ir.Receipt{}, fmt.Errorf("submit %s: %w", id, err)
		}
		if err := btx.AppendTransaction(tx, receipt); err != nil {
			btx.Rollback()
			return ir.Receipt{}, fmt.Errorf("submit %s: %w", id, err)
		}
		if err := btx.Commit(); err != nil {
			return ir.Receipt{}, fmt.Errorf("submit %s: commit: %w", id, err)
		}
		slog.Debug("transaction committed",
			"tx_id", id,
			"program_id", tx.Instruction.ProgramID,
			"instruction", tx.Instruction.Name,
			"seq", seq)
		return receipt, nil
	}

	btx.Rollback()

	var le *Error
	if !errors.As(execErr, &le) {
		return ir.Receipt{}, fmt.Errorf("submit %s: %w", id, execErr)
	}

	result = ir.NewIRObject(ir.O("message", ir.IRString(le.Message)))
	if le.Address != "" {
		result["address"] = ir.IRString(le.Address)
	}
	receipt, err := newReceipt(id, string(le.Code), result, now, seq)
	if err != nil {
		return ir.Receipt{}, fmt.Errorf("submit %s: %w", id, err)
	}
	if err := r.logFailure(ctx, tx, receipt); err != nil {
		return ir.Receipt{}, fmt.Errorf("submit %s: %w", id, err)
	}

	slog.Debug("transaction failed",
		"tx_id", id,
		"program_id", tx.Instruction.ProgramID,
		"instruction", tx.Instruction.Name,
		"outcome", le.Code,
		"seq", seq)
	return receipt, le
}

// logFailure records a failed transaction in its own backend transaction,
// after the program's writes were rolled back.
func (r *Runtime) logFailure(ctx context.Context, tx ir.Transaction, receipt ir.Receipt) error {
	btx, err := r.backend.Begin(ctx)
	if err != nil {
		return err
	}
	if err := btx.AppendTransaction(tx, receipt); err != nil {
		btx.Rollback()
		return err
	}
	return btx.Commit()
}

func (r *Runtime) execute(ctx context.Context, btx Tx, tx ir.Transaction, now, seq int64) (ir.IRObject, error) {
	ix := tx.Instruction

	prog, ok := r.programs[ix.ProgramID]
	if !ok {
		return nil, NewInvalidInstructionError("unknown program %s", ix.ProgramID)
	}
	spec := prog.Spec()
	sig, ok := spec.Instruction(ix.Name)
	if !ok {
		return nil, NewInvalidInstructionError("program %s has no instruction %q", ix.ProgramID, ix.Name)
	}
	if errs := sig.CheckArgs(ix.Args); len(errs) > 0 {
		e := NewInvalidInstructionError("%s", errs[0])
		e.Details = make(map[string]string, len(errs))
		for _, ve := range errs {
			e.Details[ve.Field] = ve.Message
		}
		return nil, e
	}

	accounts, err := bindAccounts(sig, ix.Accounts)
	if err != nil {
		return nil, err
	}

	signers, err := VerifySignatures(tx)
	if err != nil {
		return nil, err
	}
	for _, role := range sig.Accounts {
		addr := accounts[role.Name]
		if role.Signer && !signers[addr] {
			return nil, NewAuthenticationError(role.Name, addr, fmt.Sprintf("%s must sign the transaction", role.Name))
		}
	}

	ictx := &InstructionContext{
		ctx:       ctx,
		tx:        btx,
		programID: ix.ProgramID,
		sig:       sig,
		accounts:  accounts,
		signers:   signers,
		args:      ix.Args,
		now:       now,
		seq:       seq,
		allocator: r.allocator,
	}
	return prog.Execute(ictx)
}

// bindAccounts maps each declared role to its address. Every role must be
// bound exactly once and no undeclared role may appear.
func bindAccounts(sig ir.InstructionSig, metas []ir.AccountMeta) (map[string]string, error) {
	accounts := make(map[string]string, len(metas))
	for _, m := range metas {
		if _, ok := sig.Role(m.Role); !ok {
			return nil, NewInvalidInstructionError("instruction %s has no account role %q", sig.Name, m.Role)
		}
		if _, dup := accounts[m.Role]; dup {
			return nil, NewInvalidInstructionError("account role %q bound twice", m.Role)
		}
		if _, err := ParsePublicKey(m.Address); err != nil {
			return nil, NewInvalidInstructionError("account role %q: %v", m.Role, err)
		}
		accounts[m.Role] = m.Address
	}
	for _, role := range sig.Accounts {
		if _, ok := accounts[role.Name]; !ok {
			return nil, NewInvalidInstructionError("missing account role %q", role.Name)
		}
	}
	return accounts, nil
}

func newReceipt(txID, outcome string, result ir.IRObject, now, seq int64) (ir.Receipt, error) {
	if result == nil {
		result = ir.IRObject{}
	}
	id, err := ir.ReceiptID(txID, outcome, result, now, seq)
	if err != nil {
		return ir.Receipt{}, err
	}
	return ir.Receipt{
		ID:            id,
		TransactionID: txID,
		Outcome:       outcome,
		Result:        result,
		UnixTimestamp: now,
		Seq:           seq,
	}, nil
}

// Account returns the committed account at address.
func (r *Runtime) Account(ctx context.Context, address string) (ir.Account, bool, error) {
	return r.backend.Account(ctx, address)
}

// Balance returns the lamports held at address; a missing account holds 0.
func (r *Runtime) Balance(ctx context.Context, address string) (int64, error) {
	acct, ok, err := r.backend.Account(ctx, address)
	if err != nil || !ok {
		return 0, err
	}
	return acct.Lamports, nil
}

// Log returns the transaction log ordered by seq.
func (r *Runtime) Log(ctx context.Context) ([]ir.LogEntry, error) {
	return r.backend.Log(ctx)
}

// QueryLog returns the logged transactions matching q, ordered by seq.
func (r *Runtime) QueryLog(ctx context.Context, q queryir.Select) ([]ir.LogEntry, error) {
	if err := queryir.Validate(q); err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	return r.backend.QueryLog(ctx, q)
}

// StateHash digests every committed account.
func (r *Runtime) StateHash(ctx context.Context) (string, error) {
	accounts, err := r.backend.Accounts(ctx)
	if err != nil {
		return "", fmt.Errorf("state hash: %w", err)
	}
	return ir.StateHash(accounts)
}
