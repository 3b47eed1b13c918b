package queryir

import (
	"fmt"

	"github.com/roach88/msgledger/internal/ir"
)

// fieldKinds lists the value type each field compares against.
var fieldKinds = map[Field]string{
	FieldProgram:     "string",
	FieldInstruction: "string",
	FieldOutcome:     "string",
	FieldTransaction: "string",
	FieldSeq:         "int",
}

// Validate checks that a query only references known fields with values
// of the right type. Both evaluators assume a validated query.
//
// Validate is a pure function with no side effects.
func Validate(q Select) error {
	if q.Last < 0 {
		return fmt.Errorf("last must be >= 0, got %d", q.Last)
	}
	if q.Filter == nil {
		return nil
	}
	return validatePredicate(q.Filter)
}

func validatePredicate(p Predicate) error {
	switch pred := p.(type) {
	case Equals:
		return validateComparison(pred.Field, pred.Value)
	case NotEquals:
		return validateComparison(pred.Field, pred.Value)
	case SignedBy:
		if pred.Address == "" {
			return fmt.Errorf("signed-by filter needs an address")
		}
		return nil
	case And:
		for i, sub := range pred.Predicates {
			if sub == nil {
				return fmt.Errorf("and[%d]: nil predicate", i)
			}
			if err := validatePredicate(sub); err != nil {
				return fmt.Errorf("and[%d]: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown predicate type %T", p)
	}
}

func validateComparison(field Field, value ir.IRValue) error {
	kind, ok := fieldKinds[field]
	if !ok {
		return fmt.Errorf("unknown field %q", field)
	}
	switch value.(type) {
	case ir.IRString:
		if kind == "string" {
			return nil
		}
	case ir.IRInt:
		if kind == "int" {
			return nil
		}
	}
	return fmt.Errorf("field %q compares against %s, got %T", field, kind, value)
}
