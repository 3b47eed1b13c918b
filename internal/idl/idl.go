// Package idl compiles CUE program interface definitions into ir.ProgramSpec.
//
// A definition file declares one program under the top-level "program" key:
//
//	program: message: {
//		purpose: "..."
//		account: Message: {
//			author:  string @pubkey()
//			content: string
//		}
//		instruction: create_message: {
//			accounts: [{name: "message", signer: true, writable: true}]
//			args: content: string
//			outputs: [{case: "Success", fields: address: string @pubkey()}]
//		}
//	}
//
// Field order is declaration order, which for account layouts is also the
// serialization order. A string field tagged @pubkey() compiles to the
// "pubkey" type.
package idl

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/msgledger/internal/ir"
)

// CompileFile reads and compiles a program definition file.
func CompileFile(path string) (*ir.ProgramSpec, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return CompileSource(path, src)
}

// CompileSource compiles CUE source holding exactly one program definition.
// filename is used for error positions only.
func CompileSource(filename string, src []byte) (*ir.ProgramSpec, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	programs := v.LookupPath(cue.ParsePath("program"))
	if !programs.Exists() {
		return nil, &CompileError{Field: "program", Message: "no program definition found", Pos: v.Pos()}
	}

	iter, err := programs.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var spec *ir.ProgramSpec
	for iter.Next() {
		if spec != nil {
			return nil, &CompileError{
				Field:   "program." + iter.Label(),
				Message: "only one program per definition file",
				Pos:     iter.Value().Pos(),
			}
		}
		spec, err = CompileProgram(iter.Value())
		if err != nil {
			return nil, err
		}
	}
	if spec == nil {
		return nil, &CompileError{Field: "program", Message: "no program definition found", Pos: programs.Pos()}
	}
	return spec, nil
}

// CompileProgram parses a CUE value into a ProgramSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the program struct itself, e.g.
// v.LookupPath(cue.ParsePath("program.message")).
func CompileProgram(v cue.Value) (*ir.ProgramSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ProgramSpec{}

	// Program name is the struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	purposeVal := v.LookupPath(cue.ParsePath("purpose"))
	if !purposeVal.Exists() {
		return nil, &CompileError{
			Field:   "purpose",
			Message: "purpose is required",
			Pos:     v.Pos(),
		}
	}
	purpose, err := purposeVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	spec.Purpose = purpose

	spec.Accounts, err = parseAccounts(v)
	if err != nil {
		return nil, err
	}

	spec.Instructions, err = parseInstructions(v)
	if err != nil {
		return nil, err
	}
	if len(spec.Instructions) == 0 {
		return nil, &CompileError{
			Field:   "instruction",
			Message: "at least one instruction is required",
			Pos:     v.Pos(),
		}
	}

	if errs := spec.Validate(); len(errs) > 0 {
		return nil, &CompileError{
			Field:   errs[0].Field,
			Message: errs[0].Message,
			Pos:     v.Pos(),
		}
	}

	return spec, nil
}

// parseAccounts extracts the account layouts declared by the program.
func parseAccounts(v cue.Value) ([]ir.AccountLayout, error) {
	var layouts []ir.AccountLayout

	accountVal := v.LookupPath(cue.ParsePath("account"))
	if !accountVal.Exists() {
		return layouts, nil // programs without state are allowed
	}

	iter, err := accountVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		fields, err := parseNamedArgs(iter.Value())
		if err != nil {
			return nil, err
		}
		layouts = append(layouts, ir.AccountLayout{
			Name:   iter.Label(),
			Fields: fields,
		})
	}

	return layouts, nil
}

// parseInstructions extracts the instruction signatures of the program.
func parseInstructions(v cue.Value) ([]ir.InstructionSig, error) {
	var instructions []ir.InstructionSig

	ixVal := v.LookupPath(cue.ParsePath("instruction"))
	if !ixVal.Exists() {
		return instructions, nil
	}

	iter, err := ixVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Label()
		ixValue := iter.Value()

		sig := ir.InstructionSig{Name: name}

		sig.Accounts, err = parseRoles(ixValue)
		if err != nil {
			return nil, err
		}

		argsVal := ixValue.LookupPath(cue.ParsePath("args"))
		if argsVal.Exists() {
			sig.Args, err = parseNamedArgs(argsVal)
			if err != nil {
				return nil, err
			}
		}

		outputsVal := ixValue.LookupPath(cue.ParsePath("outputs"))
		if !outputsVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("instruction.%s.outputs", name),
				Message: "instruction outputs are required",
				Pos:     ixValue.Pos(),
			}
		}
		sig.Outputs, err = parseOutputs(outputsVal)
		if err != nil {
			return nil, err
		}

		instructions = append(instructions, sig)
	}

	return instructions, nil
}

// parseRoles extracts the ordered account roles of an instruction.
// signer and writable default to false.
func parseRoles(v cue.Value) ([]ir.AccountRole, error) {
	var roles []ir.AccountRole

	accountsVal := v.LookupPath(cue.ParsePath("accounts"))
	if !accountsVal.Exists() {
		return roles, nil
	}

	iter, err := accountsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		roleVal := iter.Value()

		name, err := roleVal.LookupPath(cue.ParsePath("name")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		role := ir.AccountRole{Name: name}

		if role.Signer, err = optionalBool(roleVal, "signer"); err != nil {
			return nil, err
		}
		if role.Writable, err = optionalBool(roleVal, "writable"); err != nil {
			return nil, err
		}

		roles = append(roles, role)
	}

	return roles, nil
}

func parseOutputs(v cue.Value) ([]ir.OutputCase, error) {
	var outputs []ir.OutputCase

	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		outVal := iter.Value()

		caseName, err := outVal.LookupPath(cue.ParsePath("case")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}

		output := ir.OutputCase{
			Case:   caseName,
			Fields: make(map[string]string),
		}

		fieldsVal := outVal.LookupPath(cue.ParsePath("fields"))
		if fieldsVal.Exists() {
			fields, err := parseNamedArgs(fieldsVal)
			if err != nil {
				return nil, err
			}
			for _, f := range fields {
				output.Fields[f.Name] = f.Type
			}
		}

		outputs = append(outputs, output)
	}

	return outputs, nil
}

// parseNamedArgs extracts typed fields in declaration order.
func parseNamedArgs(v cue.Value) ([]ir.NamedArg, error) {
	var args []ir.NamedArg

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		typ, err := extractTypeName(iter.Value())
		if err != nil {
			return nil, err
		}
		args = append(args, ir.NamedArg{Name: iter.Label(), Type: typ})
	}

	return args, nil
}

func optionalBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// extractTypeName converts CUE type to IR type string.
// Floats are forbidden: amounts and timestamps are integers.
func extractTypeName(v cue.Value) (string, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		if attr := v.Attribute("pubkey"); attr.Err() == nil {
			return "pubkey", nil
		}
		return "string", nil
	case cue.IntKind:
		return "int", nil
	case cue.BoolKind:
		return "bool", nil
	case cue.ListKind:
		return "array", nil
	case cue.StructKind:
		return "object", nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   "type",
			Message: "float types are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
