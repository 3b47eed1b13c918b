// Package message implements the message program: a single mutable text
// record per account, created once by its author and overwritten by
// update_message.
//
// update_message does not check that the signer is the record's current
// author. Any signer may overwrite any record and becomes its author.
package message

import (
	_ "embed"
	"fmt"

	"github.com/roach88/msgledger/internal/idl"
	"github.com/roach88/msgledger/internal/ir"
	"github.com/roach88/msgledger/internal/ledger"
)

const (
	// DefaultProgramID is the address the message program is deployed at.
	DefaultProgramID = "8LyUD5qQzYLBYPVa4JYBm4GapUffLg9MGfQuJwCEQWtR"

	// DefaultSpace is the fixed account size of a message record.
	DefaultSpace int64 = 1000

	InstructionCreate = "create_message"
	InstructionUpdate = "update_message"
)

//go:embed message.cue
var idlSource []byte

// IDL returns the CUE source of the program interface.
func IDL() []byte {
	return idlSource
}

// Program is the message program.
type Program struct {
	id    string
	space int64
	spec  ir.ProgramSpec
}

var _ ledger.Program = (*Program)(nil)

// New creates the message program deployed at id, allocating space bytes per
// record.
func New(id string, space int64) (*Program, error) {
	if _, err := ledger.ParsePublicKey(id); err != nil {
		return nil, fmt.Errorf("message program id: %w", err)
	}
	if Capacity(space) < 0 {
		return nil, fmt.Errorf("message record space %d is below the %d byte header", space, HeaderSize)
	}
	spec, err := idl.CompileSource("message.cue", idlSource)
	if err != nil {
		return nil, fmt.Errorf("compile message interface: %w", err)
	}
	return &Program{id: id, space: space, spec: *spec}, nil
}

// ID returns the program address.
func (p *Program) ID() string { return p.id }

// Spec returns the compiled program interface.
func (p *Program) Spec() ir.ProgramSpec { return p.spec }

// Space returns the fixed size of every record account.
func (p *Program) Space() int64 { return p.space }

// Execute dispatches an instruction. Account roles, arg types and signer
// roles were already checked by the runtime against the interface.
func (p *Program) Execute(ictx *ledger.InstructionContext) (ir.IRObject, error) {
	content, _ := ictx.Args().String("content")

	switch ictx.Instruction() {
	case InstructionCreate:
		return p.create(ictx, content)
	case InstructionUpdate:
		return p.update(ictx, content)
	default:
		return nil, ledger.NewInvalidInstructionError("message program has no instruction %q", ictx.Instruction())
	}
}

// create allocates a fresh record account paid for by the payer and
// initializes every field at once.
func (p *Program) create(ictx *ledger.InstructionContext, content string) (ir.IRObject, error) {
	address := ictx.Address("message")

	// Capacity first: an oversize create must not charge the payer.
	if EncodedSize(content) > p.space {
		return nil, ledger.NewCapacityError(address, int64(len(content)), Capacity(p.space))
	}

	if _, err := ictx.Allocate("message", p.space, "payer"); err != nil {
		return nil, err
	}

	return p.write(ictx, address, content)
}

// update overwrites the record in place, keeping its original space.
func (p *Program) update(ictx *ledger.InstructionContext, content string) (ir.IRObject, error) {
	acct, err := ictx.Load("message")
	if err != nil {
		return nil, err
	}
	if acct.Owner != p.id {
		return nil, ledger.NewNotFoundError(acct.Address, "account is not owned by the message program")
	}
	if _, err := Decode(acct.Data); err != nil {
		return nil, ledger.NewNotFoundError(acct.Address, "account does not hold a message record")
	}

	if EncodedSize(content) > acct.Space {
		return nil, ledger.NewCapacityError(acct.Address, int64(len(content)), Capacity(acct.Space))
	}

	return p.write(ictx, acct.Address, content)
}

func (p *Program) write(ictx *ledger.InstructionContext, address, content string) (ir.IRObject, error) {
	rec := Record{
		Author:    ictx.Address("author"),
		Timestamp: ictx.Now(),
		Content:   content,
	}
	data, err := Encode(rec)
	if err != nil {
		return nil, err
	}
	if err := ictx.Store("message", data); err != nil {
		return nil, err
	}

	return ir.NewIRObject(
		ir.O("address", ir.IRString(address)),
		ir.O("author", ir.IRString(rec.Author)),
		ir.O("timestamp", ir.IRInt(rec.Timestamp)),
		ir.O("content", ir.IRString(rec.Content)),
	), nil
}

// ReadRecord decodes the record held by acct, failing with NotFoundError if
// the account is not a message record of the program at programID.
func ReadRecord(acct ir.Account, programID string) (Record, error) {
	if acct.Owner != programID {
		return Record{}, ledger.NewNotFoundError(acct.Address, "account is not owned by the message program")
	}
	rec, err := Decode(acct.Data)
	if err != nil {
		return Record{}, ledger.NewNotFoundError(acct.Address, err.Error())
	}
	return rec, nil
}
