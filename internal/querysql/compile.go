// Package querysql compiles log queries to parameterized SQL for SQLite.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/msgledger/internal/ir"
	"github.com/roach88/msgledger/internal/queryir"
)

// columns maps query fields onto the transactions (t) and receipts (r)
// join used by the store.
var columns = map[queryir.Field]string{
	queryir.FieldProgram:     "t.program_id",
	queryir.FieldInstruction: "t.instruction",
	queryir.FieldOutcome:     "r.outcome",
	queryir.FieldTransaction: "t.id",
	queryir.FieldSeq:         "t.seq",
}

// Statement is a compiled log query.
type Statement struct {
	SQL    string
	Params []any
	// Reverse is set when rows come back newest first and must be
	// reversed to restore seq order.
	Reverse bool
}

// SQLCompiler compiles queryir.Select to parameterized SQL.
//
// Every statement orders by seq with a COLLATE BINARY id tiebreaker.
// Values are always bound as parameters, never interpolated.
type SQLCompiler struct {
	// Base is the SELECT ... FROM ... JOIN clause the filter is appended to.
	Base string
}

// NewSQLCompiler creates a compiler appending to base.
func NewSQLCompiler(base string) *SQLCompiler {
	return &SQLCompiler{Base: base}
}

// Compile converts a log query to SQL.
func (c *SQLCompiler) Compile(q queryir.Select) (Statement, error) {
	if err := queryir.Validate(q); err != nil {
		return Statement{}, fmt.Errorf("invalid query: %w", err)
	}

	var b strings.Builder
	b.WriteString(c.Base)

	var params []any
	if q.Filter != nil {
		where, whereParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return Statement{}, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = whereParams
	}

	stmt := Statement{}
	if q.Last > 0 {
		b.WriteString(" ORDER BY t.seq DESC, t.id COLLATE BINARY DESC LIMIT ?")
		params = append(params, int64(q.Last))
		stmt.Reverse = true
	} else {
		b.WriteString(" ORDER BY t.seq ASC, t.id COLLATE BINARY ASC")
	}

	stmt.SQL = b.String()
	stmt.Params = params
	return stmt, nil
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return compileComparison(pred.Field, "=", pred.Value)
	case queryir.NotEquals:
		return compileComparison(pred.Field, "<>", pred.Value)
	case queryir.SignedBy:
		return "EXISTS (SELECT 1 FROM json_each(t.signatures) s WHERE json_extract(s.value, '$.signer') = ?)",
			[]any{pred.Address}, nil
	case queryir.And:
		return c.compileAnd(pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, predParams, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+sql+")")
		params = append(params, predParams...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func compileComparison(field queryir.Field, op string, value ir.IRValue) (string, []any, error) {
	column, ok := columns[field]
	if !ok {
		return "", nil, fmt.Errorf("unknown field %q", field)
	}
	param, err := irValueToParam(value)
	if err != nil {
		return "", nil, fmt.Errorf("field %q: %w", field, err)
	}
	return fmt.Sprintf("%s %s ?", column, op), []any{param}, nil
}

// irValueToParam converts an ir.IRValue to a Go native SQL parameter.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRBool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
