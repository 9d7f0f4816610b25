// Package dberr defines the stable error codes that cross the boundary
// between this module's internals and its callers. Every
// package in this module (kv, storage, plan, exec) returns one of these
// sentinels — wrapped with context via fmt.Errorf("...: %w", ...) — rather
// than ad-hoc errors, so callers can classify failures with errors.Is
// regardless of which layer produced them.
package dberr

import "errors"

var (
	// ErrNotFound means a get or delete targeted an entity or key that
	// does not exist in the transaction's snapshot.
	ErrNotFound = errors.New("not found")

	// ErrCorruption means a decode failed on data that should have been
	// written by this module — fatal to the current query, not the
	// process.
	ErrCorruption = errors.New("corruption")

	// ErrBusy means another transaction committed a conflicting write
	// since this transaction's snapshot was taken. The caller should
	// retry with a fresh transaction.
	ErrBusy = errors.New("busy")

	// ErrTryAgain means the backend's conflict-tracking history was
	// exhausted (e.g. too many concurrent transactions). Retry with
	// backoff.
	ErrTryAgain = errors.New("try again")

	// ErrInvalidArgument means a caller passed a malformed argument (a
	// zero-length column family bound, a negative count, ...).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIO wraps an underlying backend I/O failure.
	ErrIO = errors.New("io error")

	// ErrCorruptedIndex means the adjacency index disagrees with primary
	// data in a way the index invariants forbid (a dangling adjacency
	// entry whose edge record no longer matches).
	ErrCorruptedIndex = errors.New("corrupted index")

	// ErrEdgeDataMismatch means put_edge was called with an id that
	// already names an edge, but with different endpoints or
	// directedness.
	ErrEdgeDataMismatch = errors.New("edge data mismatch")

	// ErrWrongType means a property-modifying operator found a Value of
	// the wrong tag where a specific tag was required.
	ErrWrongType = errors.New("wrong type")

	// ErrMalformedPlan means a Plan violates its structural
	// invariants (an identifier referenced out of range, a
	// join-like operator with no matching Begin, ...).
	ErrMalformedPlan = errors.New("malformed plan")

	// ErrInvalidValueTag means the value codec encountered a tag byte
	// outside the 1..8 range the codec defines.
	ErrInvalidValueTag = errors.New("invalid value tag")

	// ErrBudgetExceeded means a transaction's pull-count budget was
	// exhausted mid-query.
	ErrBudgetExceeded = errors.New("pull budget exceeded")

	// ErrTransactionClosed means an operation was attempted on a
	// Transaction that already committed or rolled back.
	ErrTransactionClosed = errors.New("transaction closed")
)
