// Package queryir provides an abstract query representation for filtering
// the transaction log.
//
// A query is built once and evaluated by whichever backend holds the log:
//
//	[log flags] → [Query IR] → [SQL compiler]    (store, SQLite)
//	                         → [Match evaluator]  (badgerstore, in-memory)
//
// Both evaluators must select exactly the same entries in the same order
// (seq ascending), so the query language is kept to a small fragment that
// maps directly onto SQL without functions:
//   - Select(filter, limit) - the log, optionally filtered and truncated
//   - Predicates: Equals, NotEquals, SignedBy, And
//
// # Sealed Interfaces
//
// Predicate is a sealed interface using the marker method pattern. Only
// types in this package implement it, so evaluators can switch
// exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case NotEquals:
//	case SignedBy:
//	case And:
//	}
//
// Literal values are ir.IRValue, so comparisons are exact and floats
// never appear in a query.
package queryir
