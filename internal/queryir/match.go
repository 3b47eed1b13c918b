package queryir

import (
	"github.com/roach88/msgledger/internal/ir"
)

// Match reports whether a log entry satisfies a predicate. A nil
// predicate matches everything.
func Match(p Predicate, entry ir.LogEntry) bool {
	switch pred := p.(type) {
	case nil:
		return true
	case Equals:
		v, ok := fieldValue(pred.Field, entry)
		return ok && v == pred.Value
	case NotEquals:
		v, ok := fieldValue(pred.Field, entry)
		return ok && v != pred.Value
	case SignedBy:
		for _, sig := range entry.Transaction.Signatures {
			if sig.Signer == pred.Address {
				return true
			}
		}
		return false
	case And:
		for _, sub := range pred.Predicates {
			if !Match(sub, entry) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Apply filters entries already in seq order and truncates to the last
// q.Last matches.
func Apply(q Select, entries []ir.LogEntry) []ir.LogEntry {
	out := []ir.LogEntry{}
	for _, e := range entries {
		if Match(q.Filter, e) {
			out = append(out, e)
		}
	}
	if q.Last > 0 && len(out) > q.Last {
		out = out[len(out)-q.Last:]
	}
	return out
}

func fieldValue(field Field, entry ir.LogEntry) (ir.IRValue, bool) {
	switch field {
	case FieldProgram:
		return ir.IRString(entry.Transaction.Instruction.ProgramID), true
	case FieldInstruction:
		return ir.IRString(entry.Transaction.Instruction.Name), true
	case FieldOutcome:
		return ir.IRString(entry.Receipt.Outcome), true
	case FieldTransaction:
		return ir.IRString(entry.Transaction.ID), true
	case FieldSeq:
		return ir.IRInt(entry.Transaction.Seq), true
	default:
		return nil, false
	}
}
