// Package expr implements the expression evaluator shared by the plan
// operators (Project, Filter, InsertNode, InsertEdge) that need to turn an
// expression tree plus the current assignment row into a Value.
//
// Expressions are deliberately minimal: literal,
// variable (an identifier into the assignment row), parameter (an
// externally-bound query parameter), and a binary operator over two
// sub-expressions. Anything richer — function calls, list comprehensions —
// is planner/parser territory and out of scope here.
package expr

import (
	"errors"
	"fmt"

	"github.com/orneryd/nornicdb-core/internal/gvalue"
)

// ErrUnboundParameter is returned when an expression references a
// parameter name that was not supplied to Eval.
var ErrUnboundParameter = errors.New("expr: unbound parameter")

// ErrUnknownOp is returned when a BinaryOp expression carries an operator
// this evaluator does not implement.
var ErrUnknownOp = errors.New("expr: unknown binary operator")

// Op identifies a binary operator.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpEql
	OpNeq
	OpAnd
	OpOr
)

// Expr is the expression tree node. Exactly one of the Kind-specific
// fields is meaningful, mirroring the tagged-union shape used by Value.
type Expr struct {
	Kind Kind

	// Literal
	Lit gvalue.Value

	// Variable: an assignment-row index (see plan package).
	Ident int

	// Parameter: a name looked up in the parameter map passed to Eval.
	Param string

	// BinaryOp
	Op    Op
	Left  *Expr
	Right *Expr
}

// Kind discriminates the Expr variants.
type Kind int

const (
	KindLiteral Kind = iota
	KindVariable
	KindParameter
	KindBinaryOp
)

// Literal builds a literal expression.
func Literal(v gvalue.Value) *Expr { return &Expr{Kind: KindLiteral, Lit: v} }

// Variable builds an expression reading assignment row slot ident.
func Variable(ident int) *Expr { return &Expr{Kind: KindVariable, Ident: ident} }

// Parameter builds an expression reading the named query parameter.
func Parameter(name string) *Expr { return &Expr{Kind: KindParameter, Param: name} }

// Binary builds a binary operator expression.
func Binary(op Op, left, right *Expr) *Expr {
	return &Expr{Kind: KindBinaryOp, Op: op, Left: left, Right: right}
}

// Eval evaluates e against the current assignment row and the query's
// bound parameters. assignments is indexed by the identifiers the plan
// assigns to variables (see plan.Plan.Width); params is the caller-bound
// parameter map, which may be nil if the query has none.
func Eval(e *Expr, assignments []gvalue.Value, params map[string]gvalue.Value) (gvalue.Value, error) {
	switch e.Kind {
	case KindLiteral:
		return e.Lit, nil
	case KindVariable:
		if e.Ident < 0 || e.Ident >= len(assignments) {
			return gvalue.Value{}, fmt.Errorf("expr: variable ident %d out of range (width %d)", e.Ident, len(assignments))
		}
		return assignments[e.Ident], nil
	case KindParameter:
		v, ok := params[e.Param]
		if !ok {
			return gvalue.Value{}, fmt.Errorf("%w: %q", ErrUnboundParameter, e.Param)
		}
		return v, nil
	case KindBinaryOp:
		return evalBinary(e, assignments, params)
	default:
		return gvalue.Value{}, fmt.Errorf("expr: unknown expression kind %d", e.Kind)
	}
}

func evalBinary(e *Expr, assignments []gvalue.Value, params map[string]gvalue.Value) (gvalue.Value, error) {
	left, err := Eval(e.Left, assignments, params)
	if err != nil {
		return gvalue.Value{}, err
	}
	right, err := Eval(e.Right, assignments, params)
	if err != nil {
		return gvalue.Value{}, err
	}

	switch e.Op {
	case OpAdd:
		return gvalue.Add(left, right)
	case OpSub:
		return gvalue.Sub(left, right)
	case OpEql:
		return gvalue.Eql(left, right), nil
	case OpNeq:
		eq := gvalue.Eql(left, right)
		return gvalue.Bool(!eq.Bln), nil
	case OpAnd:
		return gvalue.Bool(left.Truthy() && right.Truthy()), nil
	case OpOr:
		return gvalue.Bool(left.Truthy() || right.Truthy()), nil
	default:
		return gvalue.Value{}, ErrUnknownOp
	}
}
