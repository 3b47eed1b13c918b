package ledger

import "github.com/roach88/msgledger/internal/ir"

// Program is on-ledger code addressed by its ID.
//
// The runtime checks every instruction against Spec before calling Execute:
// the instruction exists, each declared account role is bound, args match
// their declared types and every signer role carries a verified signature.
// Execute only runs business logic.
//
// A returned *Error becomes the outcome of the transaction and is logged in
// its receipt. Any other error is treated as an infrastructure failure and
// nothing is logged.
type Program interface {
	ID() string
	Spec() ir.ProgramSpec
	Execute(ictx *InstructionContext) (ir.IRObject, error)
}
