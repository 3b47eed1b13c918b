package queryir

import "github.com/roach88/msgledger/internal/ir"

// Field names a filterable column of a log entry.
type Field string

// Filterable log entry fields.
const (
	FieldProgram     Field = "program_id"
	FieldInstruction Field = "instruction"
	FieldOutcome     Field = "outcome"
	FieldTransaction Field = "transaction_id"
	FieldSeq         Field = "seq"
)

// Predicate represents a filter condition over log entries.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Select is a read of the transaction log.
//
// Semantics:
//
//	SELECT <entry> FROM log WHERE <filter> ORDER BY seq
//
// followed, when Last > 0, by keeping only the last Last matching entries.
// Entries are always returned in ascending seq order.
//
// Example:
//
//	Select{
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Field: FieldInstruction, Value: ir.IRString("create_message")},
//	    NotEquals{Field: FieldOutcome, Value: ir.IRString("Success")},
//	  }},
//	  Last: 20,
//	}
type Select struct {
	Filter Predicate // nil = every entry
	Last   int       // keep only the last N matches (0 = all)
}

// Equals matches entries whose field equals a literal value.
type Equals struct {
	Field Field
	Value ir.IRValue
}

func (Equals) predicateNode() {}

// NotEquals matches entries whose field differs from a literal value.
type NotEquals struct {
	Field Field
	Value ir.IRValue
}

func (NotEquals) predicateNode() {}

// SignedBy matches entries carrying a signature by Address.
type SignedBy struct {
	Address string
}

func (SignedBy) predicateNode() {}

// And represents a conjunction of predicates. Empty Predicates is
// always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Where conjoins predicates, dropping nils. It returns nil when nothing
// is left and the single predicate when only one is.
func Where(preds ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}
