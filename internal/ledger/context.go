package ledger

import (
	"context"
	"fmt"
	"math"

	"github.com/roach88/msgledger/internal/ir"
)

// InstructionContext is what a program sees while executing one instruction:
// its bound accounts, the verified signers, the args and the clock reading.
//
// All reads and writes go through the enclosing backend transaction, so a
// program that returns an error leaves no trace in account state.
type InstructionContext struct {
	ctx       context.Context
	tx        Tx
	programID string
	sig       ir.InstructionSig
	accounts  map[string]string // role -> address
	signers   map[string]bool
	args      ir.IRObject
	now       int64
	seq       int64
	allocator *Allocator
}

// Context returns the context of the submitting call.
func (c *InstructionContext) Context() context.Context {
	return c.ctx
}

// ProgramID returns the ID of the executing program.
func (c *InstructionContext) ProgramID() string {
	return c.programID
}

// Instruction returns the name of the executing instruction.
func (c *InstructionContext) Instruction() string {
	return c.sig.Name
}

// Args returns the validated instruction args.
func (c *InstructionContext) Args() ir.IRObject {
	return c.args
}

// Now returns the Clock Oracle reading for this transaction.
func (c *InstructionContext) Now() int64 {
	return c.now
}

// Seq returns the logical seq assigned to this transaction.
func (c *InstructionContext) Seq() int64 {
	return c.seq
}

// Address returns the address bound to role.
func (c *InstructionContext) Address(role string) string {
	return c.accounts[role]
}

// IsSigner reports whether the account bound to role signed the transaction.
func (c *InstructionContext) IsSigner(role string) bool {
	addr, ok := c.accounts[role]
	return ok && c.signers[addr]
}

// RequireSigner fails with AuthenticationError unless role signed.
func (c *InstructionContext) RequireSigner(role string) error {
	if !c.IsSigner(role) {
		return NewAuthenticationError(role, c.accounts[role], fmt.Sprintf("%s must sign the transaction", role))
	}
	return nil
}

// Load returns the account bound to role, failing with NotFoundError if it
// does not exist.
func (c *InstructionContext) Load(role string) (ir.Account, error) {
	addr, ok := c.accounts[role]
	if !ok {
		return ir.Account{}, NewInvalidInstructionError("unknown account role %q", role)
	}
	acct, found, err := c.tx.Account(addr)
	if err != nil {
		return ir.Account{}, fmt.Errorf("load %s: %w", role, err)
	}
	if !found {
		return ir.Account{}, NewNotFoundError(addr, fmt.Sprintf("%s account does not exist", role))
	}
	return acct, nil
}

// Allocate creates the account bound to role with the given space, owned by
// the executing program and paid for by payerRole.
//
// Both the new account and the payer must have signed: the payer authorizes
// the debit and the new account proves nobody else controls the address.
func (c *InstructionContext) Allocate(role string, space int64, payerRole string) (ir.Account, error) {
	addr, err := c.writable(role)
	if err != nil {
		return ir.Account{}, err
	}
	payer, err := c.writable(payerRole)
	if err != nil {
		return ir.Account{}, err
	}
	if err := c.RequireSigner(role); err != nil {
		return ir.Account{}, err
	}
	if err := c.RequireSigner(payerRole); err != nil {
		return ir.Account{}, err
	}
	return c.allocator.Allocate(c.tx, addr, space, payer, c.programID, c.seq)
}

// Store overwrites the data of the account bound to role. The account must
// be owned by the executing program and marked writable; data shorter than
// the account's space is zero-padded and longer data fails with CapacityError.
func (c *InstructionContext) Store(role string, data []byte) error {
	addr, err := c.writable(role)
	if err != nil {
		return err
	}
	acct, err := c.Load(role)
	if err != nil {
		return err
	}
	if acct.Owner != c.programID {
		return newIllegalWriteError(addr, fmt.Sprintf("account is owned by %s", acct.Owner))
	}
	if int64(len(data)) > acct.Space {
		return NewCapacityError(addr, int64(len(data)), acct.Space)
	}

	buf := make([]byte, acct.Space)
	copy(buf, data)
	acct.Data = buf
	acct.Seq = c.seq
	return c.tx.PutAccount(acct)
}

// credit adds lamports to the account bound to role, creating an empty
// system account if none exists. Reserved for the system program.
func (c *InstructionContext) credit(role string, lamports int64) (ir.Account, error) {
	addr, err := c.writable(role)
	if err != nil {
		return ir.Account{}, err
	}
	acct, found, err := c.tx.Account(addr)
	if err != nil {
		return ir.Account{}, fmt.Errorf("credit: %w", err)
	}
	if !found {
		acct = ir.Account{Address: addr, Owner: SystemProgramID}
	}
	if acct.Lamports > math.MaxInt64-lamports {
		return ir.Account{}, NewInvalidInstructionError("balance overflow for %s", addr)
	}
	acct.Lamports += lamports
	acct.Seq = c.seq
	if err := c.tx.PutAccount(acct); err != nil {
		return ir.Account{}, fmt.Errorf("credit: %w", err)
	}
	return acct, nil
}

func (c *InstructionContext) writable(role string) (string, error) {
	r, ok := c.sig.Role(role)
	if !ok {
		return "", NewInvalidInstructionError("unknown account role %q", role)
	}
	if !r.Writable {
		return "", newIllegalWriteError(c.accounts[role], fmt.Sprintf("%s is not writable", role))
	}
	return c.accounts[role], nil
}
