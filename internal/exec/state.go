package exec

import "github.com/orneryd/nornicdb-core/internal/storage"

// opState is the per-operator state slot. Like plan.Operator it
// is a single struct covering every operator's state shape; only the fields
// the operator's tag uses are meaningful, and the zero value is every
// operator's initial state, which is what makes resetStates a plain
// re-zeroing.
type opState struct {
	// NodeScan / EdgeScan
	nodeIt *storage.NodeIterator
	edgeIt *storage.EdgeIterator

	// Step
	adjIt *storage.AdjIterator
	// outScanDone marks, for the left_or_right direction only, that the
	// (out,out) scan for the current source row is exhausted and the
	// (in,in) scan should run next before pulling a new input row.
	outScanDone bool

	// Limit
	count int64

	// Begin: emitted; Skip: drained; Anti: done; UnionAll: left side done.
	flag bool

	// Join: currently streaming the right-hand subquery.
	onRight bool
}
