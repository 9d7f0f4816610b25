package plan

import (
	"fmt"

	"github.com/orneryd/nornicdb-core/internal/dberr"
	"github.com/orneryd/nornicdb-core/internal/expr"
)

// Plan is a complete query plan: a post-order operator sequence, the list
// of assignment slots to return per result row, and the derived width of
// the assignment array. Construct one with New, which validates the
// structural invariants and precomputes the subquery Begin index for every
// join-like operator.
type Plan struct {
	Ops     []Operator
	Results []int

	width  int
	begins []int // per-op; NoIdent for operators without a subquery
}

// New validates ops and results and builds the Plan. Violations of the plan's
// structural rules (negative identifiers, a join-like operator with no
// matching Begin, a Begin no operator consumes) surface as
// dberr.ErrMalformedPlan.
func New(ops []Operator, results []int) (*Plan, error) {
	p := &Plan{Ops: ops, Results: results}

	maxIdent := -1
	note := func(idents ...int) error {
		for _, id := range idents {
			if id == NoIdent {
				continue
			}
			if id < 0 {
				return fmt.Errorf("plan: identifier %d: %w", id, dberr.ErrMalformedPlan)
			}
			if id > maxIdent {
				maxIdent = id
			}
		}
		return nil
	}

	for i := range ops {
		op := &ops[i]
		var err error
		switch op.Tag {
		case TagNodeScan, TagEdgeScan:
			err = note(op.OutIdent)
		case TagNodeById, TagEdgeById:
			err = note(op.RefIdent, op.IDIdent)
		case TagStep:
			err = note(op.SrcIdent, op.EdgeIdent, op.DstIdent)
		case TagArgument:
			err = note(op.ArgIdent)
		case TagProject:
			for _, c := range op.ProjectClauses {
				if err = note(c.TargetIdent); err != nil {
					break
				}
				if err = noteExpr(c.Expr, note); err != nil {
					break
				}
			}
		case TagFilter:
			for _, c := range op.FilterClauses {
				if c.IsIdentLabel {
					err = note(c.Ident)
				} else {
					err = noteExpr(c.BoolExpr, note)
				}
				if err != nil {
					break
				}
			}
		case TagLimit, TagSkip:
			if op.Count < 0 {
				err = fmt.Errorf("plan: %s count %d: %w", op.Tag, op.Count, dberr.ErrMalformedPlan)
			}
		case TagInsertNode:
			err = note(op.InsertOutIdent)
			for _, pe := range op.InsertProps {
				if err != nil {
					break
				}
				err = noteExpr(pe.Expr, note)
			}
		case TagInsertEdge:
			err = note(op.InsertSrcIdent, op.InsertDstIdent, op.InsertEdgeOutIdent)
			for _, pe := range op.InsertEdgeProps {
				if err != nil {
					break
				}
				err = noteExpr(pe.Expr, note)
			}
		case TagBegin, TagJoin, TagSemiJoin, TagAnti, TagUnionAll, TagEmptyResult:
			// no identifier fields of their own
		default:
			err = fmt.Errorf("plan: unknown operator tag %d at %d: %w", op.Tag, i, dberr.ErrMalformedPlan)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, r := range results {
		if err := note(r); err != nil {
			return nil, err
		}
	}
	p.width = maxIdent + 1

	if err := p.resolveBegins(); err != nil {
		return nil, err
	}
	return p, nil
}

// Width is the size of the assignment array: one plus the maximum
// identifier referenced anywhere in the plan.
func (p *Plan) Width() int { return p.width }

// SubqueryBegin returns the index of the Begin marker opening operator j's
// right-hand subquery. Only meaningful for join-like operators; the value
// is precomputed at New time.
func (p *Plan) SubqueryBegin(j int) int { return p.begins[j] }

// resolveBegins locates, for every join-like operator, the Begin marker
// that opens its subquery. In the post-order sequence a join-like operator
// follows its subquery, so the matching Begin is found by walking backward
// with a nesting counter: each join-like operator passed on the way opens
// one more nested subquery whose own Begin must be skipped first.
func (p *Plan) resolveBegins() error {
	p.begins = make([]int, len(p.Ops))
	claimed := make([]bool, len(p.Ops))
	for i := range p.begins {
		p.begins[i] = NoIdent
	}
	for j := range p.Ops {
		if !p.Ops[j].Tag.IsJoinLike() {
			continue
		}
		depth := 1
		for i := j - 1; i >= 0; i-- {
			switch {
			case p.Ops[i].Tag.IsJoinLike():
				depth++
			case p.Ops[i].Tag == TagBegin:
				depth--
				if depth == 0 {
					p.begins[j] = i
					claimed[i] = true
				}
			}
			if depth == 0 {
				break
			}
		}
		if p.begins[j] == NoIdent {
			return fmt.Errorf("plan: %s at %d has no matching Begin: %w", p.Ops[j].Tag, j, dberr.ErrMalformedPlan)
		}
	}
	for i := range p.Ops {
		if p.Ops[i].Tag == TagBegin && !claimed[i] {
			return fmt.Errorf("plan: Begin at %d is not consumed by any subquery operator: %w", i, dberr.ErrMalformedPlan)
		}
	}
	return nil
}

func noteExpr(e *expr.Expr, note func(...int) error) error {
	if e == nil {
		return fmt.Errorf("plan: nil expression: %w", dberr.ErrMalformedPlan)
	}
	switch e.Kind {
	case expr.KindVariable:
		return note(e.Ident)
	case expr.KindBinaryOp:
		if err := noteExpr(e.Left, note); err != nil {
			return err
		}
		return noteExpr(e.Right, note)
	default:
		return nil
	}
}
