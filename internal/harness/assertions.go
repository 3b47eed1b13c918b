package harness

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/msgledger/internal/ir"
	"github.com/roach88/msgledger/internal/ledger"
	"github.com/roach88/msgledger/internal/message"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			switch event.Type {
			case EventInvocation:
				fmt.Fprintf(&buf, "  [%d] %s %v\n", i+1, event.Action, event.Args)
			case EventCompletion:
				fmt.Fprintf(&buf, "  [%d]   -> %s\n", i+1, event.OutputCase)
			}
		}
	}

	return buf.String()
}

// assertTraceContains checks if the trace contains an invocation matching
// the specified action and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	expected, err := convertArgsToIRObject(assertion.Args)
	if err != nil {
		return fmt.Errorf("trace_contains args: %w", err)
	}

	for _, event := range trace {
		if event.Type == EventInvocation && event.Action == assertion.Action {
			if matchArgs(event.Args, expected) {
				return nil
			}
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %v", assertion.Action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
// A repeated action matches its next occurrence after the previous match.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	for _, action := range assertion.Actions {
		found := false
		for pos < len(trace) {
			event := trace[pos]
			pos++
			if event.Type == EventInvocation && event.Action == action {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual:   fmt.Sprintf("%s not found after position %d", action, pos),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks if the action appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventInvocation && event.Action == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertRecord checks the message record held by the account (subset match).
// The author is compared as an alias.
func assertRecord(actx *AssertionContext, assertion Assertion) error {
	address := actx.aliases.address(assertion.Account)
	acct, ok, err := actx.Runtime.Account(actx.Ctx, address)
	if err != nil {
		return err
	}
	if !ok {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("message record at %s", assertion.Account),
			Actual:   "account does not exist",
		}
	}

	rec, err := message.ReadRecord(acct, actx.ProgramID)
	if err != nil {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("message record at %s", assertion.Account),
			Actual:   err.Error(),
		}
	}

	actual := actx.aliases.aliasObject(ir.NewIRObject(
		ir.O("author", ir.IRString(rec.Author)),
		ir.O("timestamp", ir.IRInt(rec.Timestamp)),
		ir.O("content", ir.IRString(rec.Content)),
	))
	expected, err := convertArgsToIRObject(assertion.Expect)
	if err != nil {
		return fmt.Errorf("record expect: %w", err)
	}

	for _, key := range expected.SortedKeys() {
		got, exists := actual[key]
		if !exists {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("record fields are %v", actual.SortedKeys()),
			}
		}
		if !valuesEqual(got, expected[key]) {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: fmt.Sprintf("%s.%s = %v", assertion.Account, key, expected[key]),
				Actual:   fmt.Sprintf("%s.%s = %v", assertion.Account, key, got),
			}
		}
	}
	return nil
}

// assertBalance checks the lamports held by the account.
func assertBalance(actx *AssertionContext, assertion Assertion) error {
	balance, err := actx.Runtime.Balance(actx.Ctx, actx.aliases.address(assertion.Account))
	if err != nil {
		return err
	}
	if balance != *assertion.Lamports {
		return &AssertionError{
			Type:     AssertBalance,
			Expected: fmt.Sprintf("%s holds %d lamports", assertion.Account, *assertion.Lamports),
			Actual:   fmt.Sprintf("%d lamports", balance),
		}
	}
	return nil
}

// assertAbsent checks that no account exists at the alias.
func assertAbsent(actx *AssertionContext, assertion Assertion) error {
	acct, ok, err := actx.Runtime.Account(actx.Ctx, actx.aliases.address(assertion.Account))
	if err != nil {
		return err
	}
	if ok {
		return &AssertionError{
			Type:     AssertAbsent,
			Expected: fmt.Sprintf("no account at %s", assertion.Account),
			Actual:   fmt.Sprintf("account owned by %s with %d lamports", acct.Owner, acct.Lamports),
		}
	}
	return nil
}

// matchArgs checks if actual args contain all expected args (subset match).
// Extra keys in actual are ignored.
func matchArgs(actual, expected ir.IRObject) bool {
	for key, expectedVal := range expected {
		actualVal, exists := actual[key]
		if !exists {
			return false
		}
		if !valuesEqual(actualVal, expectedVal) {
			return false
		}
	}
	return true
}

// valuesEqual compares two IR values for equality, including nested values.
func valuesEqual(actual, expected ir.IRValue) bool {
	return reflect.DeepEqual(actual, expected)
}

// AssertionContext provides context for evaluating state assertions.
type AssertionContext struct {
	Ctx       context.Context
	Runtime   *ledger.Runtime
	ProgramID string

	aliases *aliasBook
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// State assertions need actx; trace assertions work without it.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertRecord, AssertBalance, AssertAbsent:
			if actx == nil || actx.Runtime == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a ledger", i, assertion.Type)
				break
			}
			if actx.aliases == nil {
				actx.aliases = newAliasBook()
			}
			switch assertion.Type {
			case AssertRecord:
				err = assertRecord(actx, assertion)
			case AssertBalance:
				err = assertBalance(actx, assertion)
			default:
				err = assertAbsent(actx, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
