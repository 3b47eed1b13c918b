package harness

import "github.com/roach88/msgledger/internal/ir"

// Trace event types.
const (
	EventInvocation = "invocation"
	EventCompletion = "completion"
)

// TraceEvent is one half of a submitted transaction: the invocation as
// signed and the completion as logged in its receipt. Addresses appear as
// aliases so traces are readable and stable.
type TraceEvent struct {
	Type       string            `json:"type"`
	Action     string            `json:"action,omitempty"`
	Accounts   map[string]string `json:"accounts,omitempty"` // role -> alias
	Signers    []string          `json:"signers,omitempty"`
	Args       ir.IRObject       `json:"args,omitempty"`
	OutputCase string            `json:"output_case,omitempty"`
	Result     ir.IRObject       `json:"result,omitempty"`
	Timestamp  int64             `json:"timestamp,omitempty"`
	Seq        int64             `json:"seq"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains the flow transactions in submission order. Setup
	// transactions are not traced.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// StateHash digests the final ledger state.
	StateHash string `json:"state_hash"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddInvocationTrace adds an invocation to the trace.
func (r *Result) AddInvocationTrace(action string, accounts map[string]string, signers []string, args ir.IRObject, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:     EventInvocation,
		Action:   action,
		Accounts: accounts,
		Signers:  signers,
		Args:     args,
		Seq:      seq,
	})
}

// AddCompletionTrace adds a completion to the trace.
func (r *Result) AddCompletionTrace(outputCase string, result ir.IRObject, timestamp, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:       EventCompletion,
		OutputCase: outputCase,
		Result:     result,
		Timestamp:  timestamp,
		Seq:        seq,
	})
}
