package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/msgledger/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toIRObject converts a TraceSnapshot to IR for canonical JSON serialization.
// Invocations carry action, accounts, signers and args; completions carry
// output_case, result and timestamp. Both carry type and seq.
func (s *TraceSnapshot) toIRObject() ir.IRObject {
	events := make(ir.IRArray, len(s.Trace))
	for i, event := range s.Trace {
		obj := ir.NewIRObject(
			ir.O("type", ir.IRString(event.Type)),
			ir.O("seq", ir.IRInt(event.Seq)),
		)
		switch event.Type {
		case EventInvocation:
			accounts := make(ir.IRObject, len(event.Accounts))
			for role, alias := range event.Accounts {
				accounts[role] = ir.IRString(alias)
			}
			signers := make(ir.IRArray, len(event.Signers))
			for j, s := range event.Signers {
				signers[j] = ir.IRString(s)
			}
			args := event.Args
			if args == nil {
				args = ir.IRObject{}
			}
			obj["action"] = ir.IRString(event.Action)
			obj["accounts"] = accounts
			obj["signers"] = signers
			obj["args"] = args
		case EventCompletion:
			result := event.Result
			if result == nil {
				result = ir.IRObject{}
			}
			obj["output_case"] = ir.IRString(event.OutputCase)
			obj["result"] = result
			obj["timestamp"] = ir.IRInt(event.Timestamp)
		}
		events[i] = obj
	}

	return ir.NewIRObject(
		ir.O("scenario_name", ir.IRString(s.ScenarioName)),
		ir.O("trace", events),
	)
}

// Snapshot renders the result's trace as canonical JSON, the golden file format.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	}
	return ir.MarshalCanonical(snapshot.toIRObject())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass and Errors.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
