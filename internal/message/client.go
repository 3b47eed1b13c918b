package message

import (
	"context"
	"fmt"

	"github.com/roach88/msgledger/internal/ir"
	"github.com/roach88/msgledger/internal/ledger"
)

// CreateInstruction builds a create_message instruction.
func CreateInstruction(programID, message, author, payer, content string) ir.Instruction {
	return ir.Instruction{
		ProgramID: programID,
		Name:      InstructionCreate,
		Accounts: []ir.AccountMeta{
			{Role: "message", Address: message},
			{Role: "author", Address: author},
			{Role: "payer", Address: payer},
		},
		Args: ir.NewIRObject(ir.O("content", ir.IRString(content))),
	}
}

// UpdateInstruction builds an update_message instruction.
func UpdateInstruction(programID, message, author, content string) ir.Instruction {
	return ir.Instruction{
		ProgramID: programID,
		Name:      InstructionUpdate,
		Accounts: []ir.AccountMeta{
			{Role: "message", Address: message},
			{Role: "author", Address: author},
		},
		Args: ir.NewIRObject(ir.O("content", ir.IRString(content))),
	}
}

// Client builds, signs and submits message transactions.
type Client struct {
	rt        *ledger.Runtime
	programID string
	nonces    ledger.NonceGenerator
}

// NewClient creates a client for the program at programID.
func NewClient(rt *ledger.Runtime, programID string, nonces ledger.NonceGenerator) *Client {
	return &Client{rt: rt, programID: programID, nonces: nonces}
}

// Create submits create_message signed by payer, author and the new
// message keypair.
func (c *Client) Create(ctx context.Context, payer, author, message *ledger.Keypair, content string) (ir.Receipt, error) {
	ix := CreateInstruction(c.programID, message.Address(), author.Address(), payer.Address(), content)
	return c.submit(ctx, ix, payer, author, message)
}

// Update submits update_message signed by author.
func (c *Client) Update(ctx context.Context, message string, author *ledger.Keypair, content string) (ir.Receipt, error) {
	ix := UpdateInstruction(c.programID, message, author.Address(), content)
	return c.submit(ctx, ix, author)
}

// Fetch reads the committed record at address.
func (c *Client) Fetch(ctx context.Context, address string) (Record, error) {
	acct, ok, err := c.rt.Account(ctx, address)
	if err != nil {
		return Record{}, fmt.Errorf("fetch %s: %w", address, err)
	}
	if !ok {
		return Record{}, ledger.NewNotFoundError(address, "account does not exist")
	}
	return ReadRecord(acct, c.programID)
}

func (c *Client) submit(ctx context.Context, ix ir.Instruction, signers ...*ledger.Keypair) (ir.Receipt, error) {
	tx, err := ledger.NewTransaction(ix, c.nonces.Generate())
	if err != nil {
		return ir.Receipt{}, err
	}
	if err := ledger.Sign(&tx, signers...); err != nil {
		return ir.Receipt{}, err
	}
	return c.rt.Submit(ctx, tx)
}
