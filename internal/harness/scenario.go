package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/msgledger/internal/message"
)

// Default scenario clock: the first transaction observes DefaultClockStart
// and every later one DefaultClockStep seconds more.
const (
	DefaultClockStart int64 = 1700000000
	DefaultClockStep  int64 = 1
)

// Scenario defines a conformance test scenario.
// A scenario funds identities in Setup, submits the Flow transactions against
// a fresh ledger and checks the resulting trace and account state.
//
// Identities are aliases ("alice", "msg-1"). Each alias maps to a keypair
// derived from its name, so the same scenario always produces the same
// addresses, signatures and receipts.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file and
	// prefixes transaction nonces.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program configures the message program. Optional.
	Program ProgramConfig `yaml:"program,omitempty"`

	// Clock configures the Clock Oracle. Optional.
	Clock ClockConfig `yaml:"clock,omitempty"`

	// Setup contains transactions that establish initial state.
	// Every setup transaction must succeed.
	Setup []ActionStep `yaml:"setup,omitempty"`

	// Flow contains the transactions under test with their expected outcome.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// ProgramConfig overrides the deployed message program.
type ProgramConfig struct {
	// Space is the fixed record account size. Default: message.DefaultSpace.
	Space int64 `yaml:"space,omitempty"`
}

// ClockConfig drives the scenario's manual clock.
type ClockConfig struct {
	Start *int64 `yaml:"start,omitempty"`
	Step  *int64 `yaml:"step,omitempty"`
}

// ActionStep is a setup transaction.
type ActionStep struct {
	// Action is the instruction name, e.g. "airdrop".
	Action string `yaml:"action"`

	// Accounts binds account roles to aliases.
	Accounts map[string]string `yaml:"accounts"`

	// Args contains the instruction args.
	Args map[string]interface{} `yaml:"args"`
}

// FlowStep is a transaction of the main flow.
type FlowStep struct {
	// Invoke is the instruction name, e.g. "create_message".
	Invoke string `yaml:"invoke"`

	// Accounts binds account roles to aliases.
	Accounts map[string]string `yaml:"accounts"`

	// Args contains the instruction args.
	Args map[string]interface{} `yaml:"args"`

	// Signers lists the aliases that sign. When omitted every alias bound to
	// a signer role signs; an explicit empty list submits unsigned.
	Signers []string `yaml:"signers,omitempty"`

	// Forge lists aliases whose signature is produced by an unrelated key and
	// relabelled as theirs.
	Forge []string `yaml:"forge,omitempty"`

	// Expect specifies the expected receipt. If nil the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected receipt.
type ExpectClause struct {
	// Case is the expected outcome ("Success" or an error code).
	Case string `yaml:"case"`

	// Result contains expected result fields, subset match. Addresses are
	// written as aliases.
	Result map[string]interface{} `yaml:"result,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an instruction appears in the trace with args
	// - "trace_order": instructions appear in order
	// - "trace_count": an instruction appears exactly N times
	// - "record": the message record at Account has the Expect fields
	// - "balance": the account at Account holds Lamports
	// - "absent": no account exists at Account
	Type string `yaml:"type"`

	// Action is the instruction name (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args are the expected instruction args (trace_contains), subset match.
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected instruction order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Account is the alias checked by record, balance and absent.
	Account string `yaml:"account,omitempty"`

	// Expect contains expected record fields (record), subset match.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Lamports is the expected balance (balance).
	Lamports *int64 `yaml:"lamports,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertRecord        = "record"
	AssertBalance       = "balance"
	AssertAbsent        = "absent"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// ClockStart returns the first clock reading.
func (s *Scenario) ClockStart() int64 {
	if s.Clock.Start != nil {
		return *s.Clock.Start
	}
	return DefaultClockStart
}

// ClockStep returns the clock advance per transaction.
func (s *Scenario) ClockStep() int64 {
	if s.Clock.Step != nil {
		return *s.Clock.Step
	}
	return DefaultClockStep
}

// RecordSpace returns the message program's record size.
func (s *Scenario) RecordSpace() int64 {
	if s.Program.Space > 0 {
		return s.Program.Space
	}
	return message.DefaultSpace
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Program.Space < 0 {
		return fmt.Errorf("program.space must be positive")
	}

	for i, step := range s.Setup {
		if step.Action == "" {
			return fmt.Errorf("setup[%d]: action is required", i)
		}
		if step.Args == nil {
			return fmt.Errorf("setup[%d]: args is required (use empty map if no args)", i)
		}
	}

	for i, step := range s.Flow {
		if step.Invoke == "" {
			return fmt.Errorf("flow[%d]: invoke is required", i)
		}
		if step.Args == nil {
			return fmt.Errorf("flow[%d]: args is required (use empty map if no args)", i)
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("flow[%d].expect: case is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertRecord:
		if a.Account == "" {
			return fmt.Errorf("assertions[%d]: account is required for record", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for record", index)
		}
	case AssertBalance:
		if a.Account == "" {
			return fmt.Errorf("assertions[%d]: account is required for balance", index)
		}
		if a.Lamports == nil {
			return fmt.Errorf("assertions[%d]: lamports is required for balance", index)
		}
	case AssertAbsent:
		if a.Account == "" {
			return fmt.Errorf("assertions[%d]: account is required for absent", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
