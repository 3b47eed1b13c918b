package ir

import (
	"fmt"
	"sort"
)

// ValidTypes defines the allowed type strings for instruction args, output
// fields and account layout fields. "pubkey" is a base58 string naming a
// 32-byte public key.
var ValidTypes = map[string]bool{
	"string": true,
	"int":    true,
	"bool":   true,
	"pubkey": true,
	"array":  true,
	"object": true,
}

// ValidationError represents a validation error with field path and message.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks an instruction signature against schema rules.
// Returns all errors (not fail-fast).
func (s *InstructionSig) Validate() []ValidationError {
	var errs []ValidationError

	if len(s.Outputs) == 0 {
		errs = append(errs, ValidationError{
			Field:   "outputs",
			Message: "at least one output case is required",
		})
	}

	seenCases := make(map[string]bool)
	for i, out := range s.Outputs {
		if seenCases[out.Case] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("outputs[%d].case", i),
				Message: fmt.Sprintf("duplicate output case name: %q", out.Case),
			})
		}
		seenCases[out.Case] = true

		for _, name := range sortedFieldNames(out.Fields) {
			if !ValidTypes[out.Fields[name]] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("outputs[%d].fields.%s", i, name),
					Message: fmt.Sprintf("invalid type %q", out.Fields[name]),
				})
			}
		}
	}

	seenRoles := make(map[string]bool)
	for i, role := range s.Accounts {
		if role.Name == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("accounts[%d].name", i),
				Message: "account role name is required",
			})
		}
		if seenRoles[role.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("accounts[%d].name", i),
				Message: fmt.Sprintf("duplicate account role: %q", role.Name),
			})
		}
		seenRoles[role.Name] = true
	}

	for i, arg := range s.Args {
		if !ValidTypes[arg.Type] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("args[%d].type", i),
				Message: fmt.Sprintf("invalid type %q for arg %q", arg.Type, arg.Name),
			})
		}
	}

	return errs
}

// Role returns the account role with the given name.
func (s *InstructionSig) Role(name string) (AccountRole, bool) {
	for _, r := range s.Accounts {
		if r.Name == name {
			return r, true
		}
	}
	return AccountRole{}, false
}

// CheckArgs verifies that args carries exactly the declared args with the
// declared types.
func (s *InstructionSig) CheckArgs(args IRObject) []ValidationError {
	var errs []ValidationError

	declared := make(map[string]bool, len(s.Args))
	for _, arg := range s.Args {
		declared[arg.Name] = true
		val, ok := args[arg.Name]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   "args." + arg.Name,
				Message: "missing required arg",
			})
			continue
		}
		if !matchesType(val, arg.Type) {
			errs = append(errs, ValidationError{
				Field:   "args." + arg.Name,
				Message: fmt.Sprintf("expected %s, got %T", arg.Type, val),
			})
		}
	}

	for _, k := range args.SortedKeys() {
		if !declared[k] {
			errs = append(errs, ValidationError{
				Field:   "args." + k,
				Message: "unknown arg",
			})
		}
	}

	return errs
}

// Instruction returns the instruction signature with the given name.
func (p *ProgramSpec) Instruction(name string) (InstructionSig, bool) {
	for _, ix := range p.Instructions {
		if ix.Name == name {
			return ix, true
		}
	}
	return InstructionSig{}, false
}

// Layout returns the account layout with the given name.
func (p *ProgramSpec) Layout(name string) (AccountLayout, bool) {
	for _, l := range p.Accounts {
		if l.Name == name {
			return l, true
		}
	}
	return AccountLayout{}, false
}

// Validate checks every instruction signature of the program.
func (p *ProgramSpec) Validate() []ValidationError {
	var errs []ValidationError
	if p.Name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "program name is required"})
	}
	for _, ix := range p.Instructions {
		for _, e := range ix.Validate() {
			e.Field = ix.Name + "." + e.Field
			errs = append(errs, e)
		}
	}
	return errs
}

func matchesType(v IRValue, typ string) bool {
	switch typ {
	case "string", "pubkey":
		_, ok := v.(IRString)
		return ok
	case "int":
		_, ok := v.(IRInt)
		return ok
	case "bool":
		_, ok := v.(IRBool)
		return ok
	case "array":
		_, ok := v.(IRArray)
		return ok
	case "object":
		_, ok := v.(IRObject)
		return ok
	default:
		return false
	}
}

func sortedFieldNames(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
