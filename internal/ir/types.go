package ir

// ProgramSpec is a compiled program interface definition.
type ProgramSpec struct {
	Name         string           `json:"name"`
	Purpose      string           `json:"purpose"`
	Accounts     []AccountLayout  `json:"accounts"`
	Instructions []InstructionSig `json:"instructions"`
}

// AccountLayout describes the fields persisted in a program-owned account,
// in serialization order.
type AccountLayout struct {
	Name   string     `json:"name"`
	Fields []NamedArg `json:"fields"`
}

// InstructionSig is an instruction signature: the account roles it touches,
// its typed args and its typed outcomes.
type InstructionSig struct {
	Name     string        `json:"name"`
	Accounts []AccountRole `json:"accounts"`
	Args     []NamedArg    `json:"args"`
	Outputs  []OutputCase  `json:"outputs"`
}

// AccountRole names an account slot of an instruction.
type AccountRole struct {
	Name     string `json:"name"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

// OutputCase is a typed outcome variant ("Success" or an error case).
type OutputCase struct {
	Case   string            `json:"case"`
	Fields map[string]string `json:"fields,omitempty"` // field name -> type name
}

// NamedArg is a named, typed field.
type NamedArg struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Instruction is a single call into a program.
type Instruction struct {
	ProgramID string        `json:"program_id"`
	Name      string        `json:"name"`
	Accounts  []AccountMeta `json:"accounts"`
	Args      IRObject      `json:"args"`
}

// AccountMeta binds an account role of an instruction to an address.
type AccountMeta struct {
	Role    string `json:"role"`
	Address string `json:"address"`
}

// Transaction is a signed instruction as recorded in the ledger log.
type Transaction struct {
	ID            string      `json:"id"` // Content-addressed over the signed message
	Instruction   Instruction `json:"instruction"`
	Nonce         string      `json:"nonce"`
	Signatures    []Signature `json:"signatures"`
	Seq           int64       `json:"seq"` // Logical clock, assigned at execution
	EngineVersion string      `json:"engine_version"`
	IRVersion     string      `json:"ir_version"`
}

// Signature is a base58 ed25519 signature by Signer over the transaction message.
type Signature struct {
	Signer string `json:"signer"`
	Value  string `json:"value"`
}

// Receipt records the outcome of executing a transaction.
type Receipt struct {
	ID            string   `json:"id"`
	TransactionID string   `json:"transaction_id"`
	Outcome       string   `json:"outcome"` // "Success" or an error case
	Result        IRObject `json:"result"`
	UnixTimestamp int64    `json:"unix_timestamp"` // Clock oracle reading used by the transaction
	Seq           int64    `json:"seq"`
}

// Account is a fixed-size storage slot held by the ledger.
type Account struct {
	Address  string `json:"address"`
	Owner    string `json:"owner"`
	Lamports int64  `json:"lamports"`
	Space    int64  `json:"space"`
	Data     []byte `json:"data"`
	Seq      int64  `json:"seq"` // Seq of the last transaction that wrote it
}

// LogEntry pairs a logged transaction with its receipt.
type LogEntry struct {
	Transaction Transaction `json:"transaction"`
	Receipt     Receipt     `json:"receipt"`
}

// OutcomeSuccess is the outcome case of a transaction that committed.
const OutcomeSuccess = "Success"
