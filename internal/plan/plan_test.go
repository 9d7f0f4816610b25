package plan

import (
	"errors"
	"testing"

	"github.com/orneryd/nornicdb-core/internal/dberr"
	"github.com/orneryd/nornicdb-core/internal/expr"
	"github.com/orneryd/nornicdb-core/internal/gvalue"
)

func TestWidthIsMaxIdentPlusOne(t *testing.T) {
	p, err := New([]Operator{
		{Tag: TagNodeScan, OutIdent: 0},
		{Tag: TagStep, SrcIdent: 0, EdgeIdent: 1, DstIdent: 4, Direction: DirRight},
	}, []int{0, 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Width() != 5 {
		t.Fatalf("Width = %d, want 5", p.Width())
	}
}

func TestWidthSeesExpressionVariables(t *testing.T) {
	p, err := New([]Operator{
		{Tag: TagNodeScan, OutIdent: 0},
		{Tag: TagFilter, FilterClauses: []FilterClause{
			{BoolExpr: expr.Binary(expr.OpEql, expr.Variable(7), expr.Literal(gvalue.Int(1)))},
		}},
	}, []int{0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Width() != 8 {
		t.Fatalf("Width = %d, want 8", p.Width())
	}
}

func TestSubqueryBegin(t *testing.T) {
	// NodeScan(0), Begin, NodeScan(1), Join
	p, err := New([]Operator{
		{Tag: TagNodeScan, OutIdent: 0},
		{Tag: TagBegin},
		{Tag: TagNodeScan, OutIdent: 1},
		{Tag: TagJoin},
	}, []int{0, 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := p.SubqueryBegin(3); got != 1 {
		t.Fatalf("SubqueryBegin(3) = %d, want 1", got)
	}
}

func TestSubqueryBeginNested(t *testing.T) {
	// Outer join whose subquery itself contains a join:
	// NodeScan(0), Begin, NodeScan(1), Begin, NodeScan(2), Join, Join
	p, err := New([]Operator{
		{Tag: TagNodeScan, OutIdent: 0},
		{Tag: TagBegin},
		{Tag: TagNodeScan, OutIdent: 1},
		{Tag: TagBegin},
		{Tag: TagNodeScan, OutIdent: 2},
		{Tag: TagJoin},
		{Tag: TagJoin},
	}, []int{0, 1, 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := p.SubqueryBegin(5); got != 3 {
		t.Fatalf("inner SubqueryBegin(5) = %d, want 3", got)
	}
	if got := p.SubqueryBegin(6); got != 1 {
		t.Fatalf("outer SubqueryBegin(6) = %d, want 1", got)
	}
}

func TestJoinWithoutBeginIsMalformed(t *testing.T) {
	_, err := New([]Operator{
		{Tag: TagNodeScan, OutIdent: 0},
		{Tag: TagJoin},
	}, []int{0})
	if !errors.Is(err, dberr.ErrMalformedPlan) {
		t.Fatalf("err = %v, want ErrMalformedPlan", err)
	}
}

func TestUnconsumedBeginIsMalformed(t *testing.T) {
	_, err := New([]Operator{
		{Tag: TagBegin},
		{Tag: TagNodeScan, OutIdent: 0},
	}, []int{0})
	if !errors.Is(err, dberr.ErrMalformedPlan) {
		t.Fatalf("err = %v, want ErrMalformedPlan", err)
	}
}

func TestNegativeIdentIsMalformed(t *testing.T) {
	_, err := New([]Operator{
		{Tag: TagNodeScan, OutIdent: -3},
	}, []int{0})
	if !errors.Is(err, dberr.ErrMalformedPlan) {
		t.Fatalf("err = %v, want ErrMalformedPlan", err)
	}
}

func TestNegativeLimitIsMalformed(t *testing.T) {
	_, err := New([]Operator{
		{Tag: TagNodeScan, OutIdent: 0},
		{Tag: TagLimit, Count: -1},
	}, []int{0})
	if !errors.Is(err, dberr.ErrMalformedPlan) {
		t.Fatalf("err = %v, want ErrMalformedPlan", err)
	}
}

func TestOptionalIdentsDoNotWiden(t *testing.T) {
	p, err := New([]Operator{
		{Tag: TagNodeScan, OutIdent: 0},
		{Tag: TagStep, SrcIdent: 0, EdgeIdent: NoIdent, DstIdent: NoIdent, Direction: DirAny},
	}, []int{0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Width() != 1 {
		t.Fatalf("Width = %d, want 1", p.Width())
	}
}
