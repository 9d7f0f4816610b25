package exec

import (
	"errors"
	"fmt"

	"github.com/orneryd/nornicdb-core/internal/dberr"
	"github.com/orneryd/nornicdb-core/internal/eid"
	"github.com/orneryd/nornicdb-core/internal/expr"
	"github.com/orneryd/nornicdb-core/internal/gvalue"
	"github.com/orneryd/nornicdb-core/internal/plan"
	"github.com/orneryd/nornicdb-core/internal/storage"
)

// next advances the plan prefix [0, end) by one row. end == 0 addresses
// the implicit root row: true once, then false. Otherwise the operator at
// end-1 is dispatched; it pulls its own input through recursive next
// calls.
//
// Every call — including recursive ones — charges one unit of the pull
// budget, which is what bounds unbounded traversals.
func (e *Executor) next(end int) (bool, error) {
	if e.pullLimit > 0 {
		e.pulls++
		if e.pulls > e.pullLimit {
			return false, fmt.Errorf("exec: after %d pulls: %w", e.pullLimit, dberr.ErrBudgetExceeded)
		}
	}

	if end == 0 {
		if e.initial {
			e.initial = false
			return true, nil
		}
		return false, nil
	}

	op := &e.plan.Ops[end-1]
	st := &e.states[end-1]

	switch op.Tag {
	case plan.TagNodeScan:
		return e.nodeScan(op, st, end)
	case plan.TagEdgeScan:
		return e.edgeScan(op, st, end)
	case plan.TagNodeById:
		return e.nodeByID(op, st, end)
	case plan.TagEdgeById:
		return e.edgeByID(op, st, end)
	case plan.TagStep:
		return e.step(op, st, end)
	case plan.TagBegin:
		if st.flag {
			return false, nil
		}
		st.flag = true
		return true, nil
	case plan.TagArgument:
		return e.next(end - 1)
	case plan.TagJoin:
		return e.join(st, end)
	case plan.TagSemiJoin:
		return e.semiJoin(end)
	case plan.TagAnti:
		return e.anti(st, end)
	case plan.TagUnionAll:
		return e.unionAll(st, end)
	case plan.TagProject:
		return e.project(op, end)
	case plan.TagFilter:
		return e.filter(op, end)
	case plan.TagLimit:
		if st.count >= op.Count {
			return false, nil
		}
		ok, err := e.next(end - 1)
		if err != nil || !ok {
			return false, err
		}
		st.count++
		return true, nil
	case plan.TagSkip:
		return e.skip(op, st, end)
	case plan.TagEmptyResult:
		for {
			ok, err := e.next(end - 1)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
	case plan.TagInsertNode:
		return e.insertNode(op, end)
	case plan.TagInsertEdge:
		return e.insertEdge(op, end)
	default:
		return false, fmt.Errorf("exec: operator %s at %d: %w", op.Tag, end-1, dberr.ErrMalformedPlan)
	}
}

func (e *Executor) nodeScan(op *plan.Operator, st *opState, end int) (bool, error) {
	for {
		if st.nodeIt == nil {
			ok, err := e.next(end - 1)
			if err != nil || !ok {
				return false, err
			}
			it, err := e.txn.IterateNodes()
			if err != nil {
				return false, err
			}
			st.nodeIt = it
		}
		for st.nodeIt.Next() {
			node, err := st.nodeIt.Node()
			if err != nil {
				return false, err
			}
			if op.Label != "" && !node.HasLabel(op.Label) {
				continue
			}
			e.assignments[op.OutIdent] = gvalue.NodeRef(node.ID)
			return true, nil
		}
		st.nodeIt = nil
	}
}

func (e *Executor) edgeScan(op *plan.Operator, st *opState, end int) (bool, error) {
	for {
		if st.edgeIt == nil {
			ok, err := e.next(end - 1)
			if err != nil || !ok {
				return false, err
			}
			it, err := e.txn.IterateEdges()
			if err != nil {
				return false, err
			}
			st.edgeIt = it
		}
		for st.edgeIt.Next() {
			edge, err := st.edgeIt.Edge()
			if err != nil {
				return false, err
			}
			if op.Label != "" && !edge.HasLabel(op.Label) {
				continue
			}
			e.assignments[op.OutIdent] = gvalue.EdgeRef(edge.ID)
			return true, nil
		}
		st.edgeIt = nil
	}
}

// nodeByID verifies that the id in assignments[IDIdent] names an existing
// node and publishes a node_ref. Rows whose id slot holds the wrong tag, or
// whose id names no node, are dropped rather than erroring: a mistyped
// traversal input is no match, not a user error.
func (e *Executor) nodeByID(op *plan.Operator, _ *opState, end int) (bool, error) {
	for {
		ok, err := e.next(end - 1)
		if err != nil || !ok {
			return false, err
		}
		v := e.assignments[op.IDIdent]
		if v.Tag != gvalue.TagID {
			continue
		}
		if _, err := e.txn.GetNode(v.Ref); err != nil {
			if errors.Is(err, dberr.ErrNotFound) {
				continue
			}
			return false, err
		}
		e.assignments[op.RefIdent] = gvalue.NodeRef(v.Ref)
		return true, nil
	}
}

func (e *Executor) edgeByID(op *plan.Operator, _ *opState, end int) (bool, error) {
	for {
		ok, err := e.next(end - 1)
		if err != nil || !ok {
			return false, err
		}
		v := e.assignments[op.IDIdent]
		if v.Tag != gvalue.TagID {
			continue
		}
		if _, err := e.txn.GetEdge(v.Ref); err != nil {
			if errors.Is(err, dberr.ErrNotFound) {
				continue
			}
			return false, err
		}
		e.assignments[op.RefIdent] = gvalue.EdgeRef(v.Ref)
		return true, nil
	}
}

// step walks the adjacency index from the source node in the operator's
// direction. Every direction maps to one contiguous (min,max) InOut scan
// except left_or_right, which runs as two non-contiguous scans — (out,out)
// then (in,in) — over the same source row.
func (e *Executor) step(op *plan.Operator, st *opState, end int) (bool, error) {
	for {
		if st.adjIt == nil {
			if !st.outScanDone {
				ok, err := e.next(end - 1)
				if err != nil || !ok {
					return false, err
				}
			}
			src := e.assignments[op.SrcIdent]
			if src.Tag != gvalue.TagNodeRef {
				// Type mismatch: no match for this row.
				st.outScanDone = false
				continue
			}
			var lo, hi storage.InOut
			if min, max, contiguous := op.Direction.Bounds(); contiguous {
				lo, hi = min, max
			} else if !st.outScanDone {
				lo, hi = storage.InOutOut, storage.InOutOut
			} else {
				lo, hi = storage.InOutIn, storage.InOutIn
			}
			it, err := e.txn.IterateAdj(src.Ref, lo, hi)
			if err != nil {
				return false, err
			}
			st.adjIt = it
		}
		for st.adjIt.Next() {
			entry, err := st.adjIt.Entry()
			if err != nil {
				return false, err
			}
			if op.EdgeLabel != "" {
				edge, err := e.txn.GetEdge(entry.Edge)
				if err != nil {
					if errors.Is(err, dberr.ErrNotFound) {
						return false, fmt.Errorf("exec: adjacency entry for missing edge %s: %w", entry.Edge, dberr.ErrCorruptedIndex)
					}
					return false, err
				}
				if !edge.HasLabel(op.EdgeLabel) {
					continue
				}
			}
			if op.EdgeIdent != plan.NoIdent {
				e.assignments[op.EdgeIdent] = gvalue.EdgeRef(entry.Edge)
			}
			if op.DstIdent != plan.NoIdent {
				e.assignments[op.DstIdent] = gvalue.NodeRef(entry.Dst)
			}
			return true, nil
		}
		st.adjIt = nil
		if op.Direction == plan.DirLeftOrRight && !st.outScanDone {
			st.outScanDone = true
		} else {
			st.outScanDone = false
		}
	}
}

// join is the Cartesian product: for each left row (the prefix below the
// subquery's Begin), the subquery is reset and streamed to exhaustion.
func (e *Executor) join(st *opState, end int) (bool, error) {
	j := end - 1
	sb := e.plan.SubqueryBegin(j)
	for {
		if !st.onRight {
			ok, err := e.next(sb)
			if err != nil || !ok {
				return false, err
			}
			e.resetStates(sb, j)
			st.onRight = true
		}
		ok, err := e.next(j)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		st.onRight = false
	}
}

// semiJoin emits each left row for which the subquery yields at least one
// row; the subquery is never pulled past its first row.
func (e *Executor) semiJoin(end int) (bool, error) {
	j := end - 1
	sb := e.plan.SubqueryBegin(j)
	for {
		ok, err := e.next(sb)
		if err != nil || !ok {
			return false, err
		}
		e.resetStates(sb, j)
		ok, err = e.next(j)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
}

// anti emits exactly one row iff the child yields zero rows.
func (e *Executor) anti(st *opState, end int) (bool, error) {
	if st.flag {
		return false, nil
	}
	st.flag = true
	ok, err := e.next(end - 1)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// unionAll drains the subquery (the left side) first, then continues
// pulling from the prefix below the Begin (the right side).
func (e *Executor) unionAll(st *opState, end int) (bool, error) {
	j := end - 1
	sb := e.plan.SubqueryBegin(j)
	if !st.flag {
		ok, err := e.next(j)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		st.flag = true
	}
	return e.next(sb)
}

// project evaluates each clause in order against the current assignments,
// so later clauses observe earlier outputs of the same Project.
func (e *Executor) project(op *plan.Operator, end int) (bool, error) {
	ok, err := e.next(end - 1)
	if err != nil || !ok {
		return false, err
	}
	for _, c := range op.ProjectClauses {
		v, err := expr.Eval(c.Expr, e.assignments, e.params)
		if err != nil {
			return false, err
		}
		e.assignments[c.TargetIdent] = v
	}
	return true, nil
}

func (e *Executor) filter(op *plan.Operator, end int) (bool, error) {
pull:
	for {
		ok, err := e.next(end - 1)
		if err != nil || !ok {
			return false, err
		}
		for _, c := range op.FilterClauses {
			if !c.IsIdentLabel {
				v, err := expr.Eval(c.BoolExpr, e.assignments, e.params)
				if err != nil {
					return false, err
				}
				if !v.Truthy() {
					continue pull
				}
				continue
			}
			pass, err := e.identHasLabel(e.assignments[c.Ident], c.Label)
			if err != nil {
				return false, err
			}
			if !pass {
				continue pull
			}
		}
		return true, nil
	}
}

// identHasLabel implements the ident_label filter clause: the value must be
// a node_ref or edge_ref — anything else is a hard WrongType error, since a
// label test on a non-entity can only come from a malformed plan — and the
// referenced entity's label set must contain label.
func (e *Executor) identHasLabel(v gvalue.Value, label string) (bool, error) {
	switch v.Tag {
	case gvalue.TagNodeRef:
		node, err := e.txn.GetNode(v.Ref)
		if err != nil {
			if errors.Is(err, dberr.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		return node.HasLabel(label), nil
	case gvalue.TagEdgeRef:
		edge, err := e.txn.GetEdge(v.Ref)
		if err != nil {
			if errors.Is(err, dberr.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		return edge.HasLabel(label), nil
	default:
		return false, fmt.Errorf("exec: label check on %s value: %w", v.Tag, dberr.ErrWrongType)
	}
}

func (e *Executor) skip(op *plan.Operator, st *opState, end int) (bool, error) {
	if !st.flag {
		st.flag = true
		for i := int64(0); i < op.Count; i++ {
			ok, err := e.next(end - 1)
			if err != nil || !ok {
				return false, err
			}
		}
	}
	return e.next(end - 1)
}

func (e *Executor) insertNode(op *plan.Operator, end int) (bool, error) {
	ok, err := e.next(end - 1)
	if err != nil || !ok {
		return false, err
	}
	node := &storage.Node{
		ID:         eid.New(),
		Labels:     append([]string(nil), op.InsertLabels...),
		Properties: make(map[string]gvalue.Value, len(op.InsertProps)),
	}
	for _, pe := range op.InsertProps {
		v, err := expr.Eval(pe.Expr, e.assignments, e.params)
		if err != nil {
			return false, err
		}
		if _, dup := node.Properties[pe.Key]; !dup {
			node.PropKeys = append(node.PropKeys, pe.Key)
		}
		node.Properties[pe.Key] = v
	}
	if err := e.txn.PutNode(node); err != nil {
		return false, err
	}
	if op.InsertOutIdent != plan.NoIdent {
		e.assignments[op.InsertOutIdent] = gvalue.NodeRef(node.ID)
	}
	return true, nil
}

// insertEdge reads src and dst node refs from the assignment row and
// persists a fresh edge between them. A non-node_ref in either slot is a
// hard WrongType error: mutation is user-visible, so the row cannot just be
// skipped the way traversal operators skip mismatches.
func (e *Executor) insertEdge(op *plan.Operator, end int) (bool, error) {
	ok, err := e.next(end - 1)
	if err != nil || !ok {
		return false, err
	}
	src := e.assignments[op.InsertSrcIdent]
	dst := e.assignments[op.InsertDstIdent]
	if src.Tag != gvalue.TagNodeRef || dst.Tag != gvalue.TagNodeRef {
		return false, fmt.Errorf("exec: insert edge endpoints %s/%s: %w", src.Tag, dst.Tag, dberr.ErrWrongType)
	}
	edge := &storage.Edge{
		ID:         eid.New(),
		Src:        src.Ref,
		Dst:        dst.Ref,
		Directed:   op.InsertDirected,
		Labels:     append([]string(nil), op.InsertEdgeLabels...),
		Properties: make(map[string]gvalue.Value, len(op.InsertEdgeProps)),
	}
	for _, pe := range op.InsertEdgeProps {
		v, err := expr.Eval(pe.Expr, e.assignments, e.params)
		if err != nil {
			return false, err
		}
		if _, dup := edge.Properties[pe.Key]; !dup {
			edge.PropKeys = append(edge.PropKeys, pe.Key)
		}
		edge.Properties[pe.Key] = v
	}
	if err := e.txn.PutEdge(edge); err != nil {
		return false, err
	}
	if op.InsertEdgeOutIdent != plan.NoIdent {
		e.assignments[op.InsertEdgeOutIdent] = gvalue.EdgeRef(edge.ID)
	}
	return true, nil
}
