package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/msgledger/internal/ir"
	"github.com/roach88/msgledger/internal/ledger"
	"github.com/roach88/msgledger/internal/message"
	"github.com/roach88/msgledger/internal/store"
	"github.com/roach88/msgledger/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios against a real ledger runtime with a manual clock,
// counting nonces and alias-derived keys.
type Harness struct {
	rt      *ledger.Runtime
	prog    *message.Program
	nonces  *testutil.CountingNonceGenerator
	aliases *aliasBook
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and runtime
// 2. Register the message program
// 3. Execute setup steps, each of which must succeed
// 4. Execute flow steps with expect validation
// 5. Evaluate assertions and return the result
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewManualClock(scenario.ClockStart(), scenario.ClockStep())
	rt, err := ledger.New(ctx, st, ledger.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime: %w", err)
	}

	prog, err := message.New(message.DefaultProgramID, scenario.RecordSpace())
	if err != nil {
		return nil, err
	}
	if err := rt.Register(prog); err != nil {
		return nil, err
	}

	h := &Harness{
		rt:      rt,
		prog:    prog,
		nonces:  testutil.NewCountingNonceGenerator(scenario.Name),
		aliases: newAliasBook(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{
		Ctx:       ctx,
		Runtime:   rt,
		ProgramID: prog.ID(),
		aliases:   h.aliases,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	if result.StateHash, err = rt.StateHash(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// submission is a transaction as the harness built and submitted it.
type submission struct {
	signers []string
	args    ir.IRObject
	receipt ir.Receipt
	err     *ledger.Error
}

// executeSetup runs all setup steps. A setup step that fails aborts the
// scenario.
func (h *Harness) executeSetup(ctx context.Context, setup []ActionStep) error {
	for i, step := range setup {
		sub, err := h.submit(ctx, step.Action, step.Accounts, step.Args, nil, nil)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		if sub.err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Action, sub.err)
		}

		h.logger.Info("setup step completed",
			"step", i,
			"action", step.Action,
			"tx_id", sub.receipt.TransactionID,
		)
	}
	return nil
}

// executeFlow runs all flow steps and validates expect clauses.
//
// Each step:
// 1. Builds the instruction from aliases and signs it
// 2. Submits it to the runtime
// 3. Traces the invocation and the logged receipt
// 4. Compares the receipt against the expect clause
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		sub, err := h.submit(ctx, step.Invoke, step.Accounts, step.Args, step.Signers, step.Forge)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}

		receipt := sub.receipt
		outcome := receipt.Outcome
		if receipt.ID == "" && sub.err != nil {
			// Rejected before logging: nothing in the receipt.
			outcome = string(sub.err.Code)
		}
		aliased := h.aliases.aliasObject(receipt.Result)

		result.AddInvocationTrace(step.Invoke, step.Accounts, sub.signers, sub.args, receipt.Seq)
		result.AddCompletionTrace(outcome, aliased, receipt.UnixTimestamp, receipt.Seq)

		expectedCase := ir.OutcomeSuccess
		if step.Expect != nil {
			expectedCase = step.Expect.Case
		}
		if outcome != expectedCase {
			msg := fmt.Sprintf("flow[%d] %s: expected case %q, got %q", i, step.Invoke, expectedCase, outcome)
			if sub.err != nil {
				msg += ": " + sub.err.Message
			}
			result.AddError(msg)
		} else if step.Expect != nil && step.Expect.Result != nil {
			want, err := convertArgsToIRObject(step.Expect.Result)
			if err != nil {
				return fmt.Errorf("flow step %d: failed to convert expected result: %w", i, err)
			}
			for _, key := range want.SortedKeys() {
				got, ok := aliased[key]
				if !ok {
					result.AddError(fmt.Sprintf("flow[%d] %s: result field %q missing", i, step.Invoke, key))
					continue
				}
				if !valuesEqual(got, want[key]) {
					result.AddError(fmt.Sprintf("flow[%d] %s: result field %q = %v, want %v", i, step.Invoke, key, got, want[key]))
				}
			}
		}

		h.logger.Info("flow step completed",
			"step", i,
			"action", step.Invoke,
			"tx_id", receipt.TransactionID,
			"output_case", outcome,
		)
	}

	return nil
}

// submit builds, signs and submits one transaction. A ledger failure is
// reported in the submission; any other error is returned.
func (h *Harness) submit(ctx context.Context, action string, accounts map[string]string, rawArgs map[string]interface{}, signers, forge []string) (*submission, error) {
	programID, sig, err := h.resolve(action)
	if err != nil {
		return nil, err
	}

	args, err := convertArgsToIRObject(rawArgs)
	if err != nil {
		return nil, fmt.Errorf("failed to convert args: %w", err)
	}

	ix := ir.Instruction{
		ProgramID: programID,
		Name:      action,
		Accounts:  h.bindAccounts(sig, accounts),
		Args:      args,
	}

	if signers == nil {
		signers = defaultSigners(sig, accounts)
	}
	forged := make(map[string]bool, len(forge))
	for _, alias := range forge {
		forged[alias] = true
		if !contains(signers, alias) {
			signers = append(signers, alias)
		}
	}

	tx, err := ledger.NewTransaction(ix, h.nonces.Generate())
	if err != nil {
		return nil, err
	}
	for _, alias := range signers {
		if err := h.sign(&tx, alias, forged[alias]); err != nil {
			return nil, err
		}
	}

	sub := &submission{signers: signers, args: args}
	sub.receipt, err = h.rt.Submit(ctx, tx)
	if err != nil {
		var le *ledger.Error
		if !errors.As(err, &le) {
			return nil, err
		}
		sub.err = le
	}
	return sub, nil
}

// resolve finds the program declaring the instruction. The message program
// is searched before the system program.
func (h *Harness) resolve(action string) (string, ir.InstructionSig, error) {
	for _, id := range []string{h.prog.ID(), ledger.SystemProgramID} {
		p, ok := h.rt.Program(id)
		if !ok {
			continue
		}
		spec := p.Spec()
		if sig, ok := spec.Instruction(action); ok {
			return id, sig, nil
		}
	}
	return "", ir.InstructionSig{}, fmt.Errorf("unknown action %q", action)
}

// bindAccounts orders account metas by the instruction's declared roles,
// then any undeclared roles by name, so transaction IDs are stable.
func (h *Harness) bindAccounts(sig ir.InstructionSig, accounts map[string]string) []ir.AccountMeta {
	metas := make([]ir.AccountMeta, 0, len(accounts))
	seen := make(map[string]bool, len(accounts))
	for _, role := range sig.Accounts {
		if alias, ok := accounts[role.Name]; ok {
			metas = append(metas, ir.AccountMeta{Role: role.Name, Address: h.aliases.address(alias)})
			seen[role.Name] = true
		}
	}
	for _, role := range sortedKeys(accounts) {
		if !seen[role] {
			metas = append(metas, ir.AccountMeta{Role: role, Address: h.aliases.address(accounts[role])})
		}
	}
	return metas
}

// sign adds alias's signature. A forged signature is made by a key derived
// from a different seed and relabelled as alias.
func (h *Harness) sign(tx *ir.Transaction, alias string, forged bool) error {
	if !forged {
		return ledger.Sign(tx, h.aliases.keypair(alias))
	}

	forger := testutil.Keypair("forged/" + alias)
	if err := ledger.Sign(tx, forger); err != nil {
		return err
	}
	for i := range tx.Signatures {
		if tx.Signatures[i].Signer == forger.Address() {
			tx.Signatures[i].Signer = h.aliases.address(alias)
		}
	}
	return nil
}

// defaultSigners returns the aliases bound to signer roles, in role order,
// without duplicates.
func defaultSigners(sig ir.InstructionSig, accounts map[string]string) []string {
	signers := []string{}
	for _, role := range sig.Accounts {
		alias, ok := accounts[role.Name]
		if ok && role.Signer && !contains(signers, alias) {
			signers = append(signers, alias)
		}
	}
	return signers
}

// convertArgsToIRObject converts a map[string]interface{} to ir.IRObject.
// This handles YAML-parsed values and converts them to proper IRValue types.
func convertArgsToIRObject(args map[string]interface{}) (ir.IRObject, error) {
	if args == nil {
		return ir.IRObject{}, nil
	}

	result := make(ir.IRObject)
	for key, val := range args {
		irVal, err := convertToIRValue(val)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		result[key] = irVal
	}
	return result, nil
}

// convertToIRValue converts a YAML-parsed value to an IRValue.
// Returns an error for null values since they are forbidden in canonical JSON
// and would fail later during ID computation.
func convertToIRValue(val interface{}) (ir.IRValue, error) {
	if val == nil {
		return nil, fmt.Errorf("null values are forbidden in IR (canonical JSON does not support null)")
	}

	switch v := val.(type) {
	case string:
		return ir.IRString(v), nil
	case int:
		return ir.IRInt(int64(v)), nil
	case int64:
		return ir.IRInt(v), nil
	case float64:
		// Whole floats from YAML are ints; anything else is rejected.
		if v == float64(int64(v)) {
			return ir.IRInt(int64(v)), nil
		}
		return nil, fmt.Errorf("floats are forbidden in IR: %v", v)
	case bool:
		return ir.IRBool(v), nil
	case []interface{}:
		arr := make(ir.IRArray, len(v))
		for i, elem := range v {
			irElem, err := convertToIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]interface{}:
		obj, err := convertArgsToIRObject(v)
		if err != nil {
			return nil, err
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", val)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
