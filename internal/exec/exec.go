// Package exec implements the pull-based streaming executor over a
// plan.Plan. An Executor owns the plan, a storage.Transaction, the flat
// assignment row, and one state slot per operator; its single
// primitive next(end) advances the plan prefix [0, end) by one row, and
// Next snapshots the plan's result identifiers into a fresh row each time
// the full plan produces one.
//
// The executor is synchronous and single-threaded; run concurrent queries
// by running concurrent Executors, each on its own Transaction.
package exec

import (
	"context"
	"fmt"

	"github.com/orneryd/nornicdb-core/internal/dberr"
	"github.com/orneryd/nornicdb-core/internal/gvalue"
	"github.com/orneryd/nornicdb-core/internal/plan"
	"github.com/orneryd/nornicdb-core/internal/storage"
)

// Options configures an Executor beyond its plan and transaction.
type Options struct {
	// Params binds the query's named parameters, read by parameter
	// expressions inside Project/Filter/Insert clauses. May be nil.
	Params map[string]gvalue.Value

	// PullBudget caps the total number of next() pulls — across every
	// operator, including recursive pulls — this executor may issue.
	// Zero means unlimited. When exhausted the query fails with
	// dberr.ErrBudgetExceeded; committed state is unaffected.
	PullBudget int64
}

// Executor drives one query over one transaction.
type Executor struct {
	plan   *plan.Plan
	txn    *storage.Transaction
	params map[string]gvalue.Value

	assignments []gvalue.Value
	states      []opState
	initial     bool

	pullLimit int64
	pulls     int64
}

// New builds an Executor for p over txn. The assignment row starts as all
// nulls; per-operator state starts zeroed.
func New(p *plan.Plan, txn *storage.Transaction, opts Options) (*Executor, error) {
	if p == nil || txn == nil {
		return nil, fmt.Errorf("exec: nil plan or transaction: %w", dberr.ErrInvalidArgument)
	}
	e := &Executor{
		plan:        p,
		txn:         txn,
		params:      opts.Params,
		assignments: make([]gvalue.Value, p.Width()),
		states:      make([]opState, len(p.Ops)),
		initial:     true,
		pullLimit:   opts.PullBudget,
	}
	for i := range e.assignments {
		e.assignments[i] = gvalue.Null
	}
	return e, nil
}

// Next advances the whole plan by one row and returns a fresh result row
// holding the values of the plan's result identifiers. ok is false once
// the plan is exhausted. Cancellation is cooperative: ctx is checked at
// each row boundary, never mid-operator.
func (e *Executor) Next(ctx context.Context) (row []gvalue.Value, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	ok, err = e.next(len(e.plan.Ops))
	if err != nil || !ok {
		return nil, false, err
	}
	row = make([]gvalue.Value, len(e.plan.Results))
	for i, ident := range e.plan.Results {
		row[i] = e.assignments[ident]
	}
	return row, true, nil
}

// Collect pulls the executor to exhaustion and returns every result row.
// Intended for tests and small results; real callers stream via Next.
func (e *Executor) Collect(ctx context.Context) ([][]gvalue.Value, error) {
	var rows [][]gvalue.Value
	for {
		row, ok, err := e.Next(ctx)
		if err != nil {
			return rows, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

// resetStates reinitializes the state slots for operators in [start, end),
// called before each right-side pass of a join-like operator.
func (e *Executor) resetStates(start, end int) {
	for i := start; i < end; i++ {
		e.states[i] = opState{}
	}
}
