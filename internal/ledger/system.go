package ledger

import (
	"github.com/roach88/msgledger/internal/ir"
)

// SystemProgramID is the address of the builtin system program: 32 zero bytes.
// It owns every plain wallet account.
const SystemProgramID = "11111111111111111111111111111111"

// SystemProgram is the builtin program that mints lamports on a local ledger.
// Account allocation is not an instruction of its own: programs allocate
// through InstructionContext.Allocate.
type SystemProgram struct{}

var systemSpec = ir.ProgramSpec{
	Name:    "system",
	Purpose: "Fund wallet accounts on a local ledger.",
	Instructions: []ir.InstructionSig{
		{
			Name: "airdrop",
			Accounts: []ir.AccountRole{
				{Name: "recipient", Writable: true},
			},
			Args: []ir.NamedArg{{Name: "lamports", Type: "int"}},
			Outputs: []ir.OutputCase{
				{Case: ir.OutcomeSuccess, Fields: map[string]string{"recipient": "pubkey", "balance": "int"}},
				{Case: string(ErrCodeInvalidInstruction), Fields: map[string]string{"message": "string"}},
			},
		},
	},
}

// ID returns SystemProgramID.
func (SystemProgram) ID() string { return SystemProgramID }

// Spec returns the system program interface.
func (SystemProgram) Spec() ir.ProgramSpec { return systemSpec }

// Execute runs a system instruction.
func (SystemProgram) Execute(ictx *InstructionContext) (ir.IRObject, error) {
	switch ictx.Instruction() {
	case "airdrop":
		lamports, _ := ictx.Args().Int("lamports")
		if lamports <= 0 {
			return nil, NewInvalidInstructionError("airdrop amount must be positive, got %d", lamports)
		}
		acct, err := ictx.credit("recipient", lamports)
		if err != nil {
			return nil, err
		}
		return ir.NewIRObject(
			ir.O("recipient", ir.IRString(acct.Address)),
			ir.O("balance", ir.IRInt(acct.Lamports)),
		), nil
	default:
		return nil, NewInvalidInstructionError("unknown system instruction %q", ictx.Instruction())
	}
}

// AirdropInstruction builds an airdrop of lamports to recipient.
func AirdropInstruction(recipient string, lamports int64) ir.Instruction {
	return ir.Instruction{
		ProgramID: SystemProgramID,
		Name:      "airdrop",
		Accounts:  []ir.AccountMeta{{Role: "recipient", Address: recipient}},
		Args:      ir.NewIRObject(ir.O("lamports", ir.IRInt(lamports))),
	}
}
