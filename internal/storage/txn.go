package storage

import (
	"bytes"
	"fmt"

	"github.com/orneryd/nornicdb-core/internal/dberr"
	"github.com/orneryd/nornicdb-core/internal/eid"
	"github.com/orneryd/nornicdb-core/internal/kv"
)

// Transaction is the sole mutation surface onto the graph: all
// node, edge, and adjacency-index changes happen through it, and its
// Commit/Rollback/SetSavepoint/RollbackToSavepoint delegate straight to the
// underlying kv.Transaction's snapshot-isolated, optimistic concurrency
// control.
type Transaction struct {
	kv  *kv.Transaction
	buf bytes.Buffer // reused across this transaction's writes
}

func newTransaction(kvTxn *kv.Transaction) *Transaction {
	return &Transaction{kv: kvTxn}
}

// GetNode reads a node by id. This is a non-conflict read:
// it never causes a sibling transaction's commit to fail.
func (t *Transaction) GetNode(id eid.ElementId) (*Node, error) {
	data, err := t.kv.Get(kv.CFNode, id.Bytes(), false)
	if err != nil {
		return nil, err
	}
	return decodeNodeValue(id, data)
}

// GetEdge reads an edge by id. Also a non-conflict read.
func (t *Transaction) GetEdge(id eid.ElementId) (*Edge, error) {
	data, err := t.kv.Get(kv.CFEdge, id.Bytes(), false)
	if err != nil {
		return nil, err
	}
	return decodeEdgeValue(id, data)
}

// PutNode serializes and writes node. It never touches the adj column
// family.
func (t *Transaction) PutNode(node *Node) error {
	value := encodeNodeValue(node, &t.buf)
	return t.kv.Put(kv.CFNode, node.ID.Bytes(), value)
}

// PutEdge performs the four-step edge write: it conflict-checks
// both endpoints, validates against any existing edge record sharing the
// id, writes the edge record, and — only if the edge is new — writes both
// adjacency entries.
func (t *Transaction) PutEdge(edge *Edge) error {
	if _, err := t.kv.Get(kv.CFNode, edge.Src.Bytes(), true); err != nil {
		return fmt.Errorf("storage: put_edge %s: source node: %w", edge.ID, err)
	}
	if _, err := t.kv.Get(kv.CFNode, edge.Dst.Bytes(), true); err != nil {
		return fmt.Errorf("storage: put_edge %s: destination node: %w", edge.ID, err)
	}

	isNew := true
	if existingData, err := t.kv.Get(kv.CFEdge, edge.ID.Bytes(), false); err == nil {
		existing, derr := decodeEdgeValue(edge.ID, existingData)
		if derr != nil {
			return derr
		}
		if !existing.sameEndpoints(edge.Src, edge.Dst, edge.Directed) {
			return fmt.Errorf("storage: put_edge %s: %w", edge.ID, dberr.ErrEdgeDataMismatch)
		}
		isNew = false
	} else if err != dberr.ErrNotFound {
		return err
	}

	value := encodeEdgeValue(edge, &t.buf)
	if err := t.kv.Put(kv.CFEdge, edge.ID.Bytes(), value); err != nil {
		return err
	}

	if isNew {
		forward := fwdInOut(edge.Directed)
		if err := t.kv.Put(kv.CFAdj, adjKey(edge.Src, forward, edge.ID), edge.Dst.Bytes()); err != nil {
			return err
		}
		if err := t.kv.Put(kv.CFAdj, adjKey(edge.Dst, forward.Inverse(), edge.ID), edge.Src.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// DeleteEdge reads the edge (NotFound if absent), deletes it, and deletes
// both of its adjacency entries.
func (t *Transaction) DeleteEdge(id eid.ElementId) error {
	edge, err := t.GetEdge(id)
	if err != nil {
		return err
	}
	if err := t.kv.Delete(kv.CFEdge, id.Bytes()); err != nil {
		return err
	}
	forward := fwdInOut(edge.Directed)
	if err := t.kv.Delete(kv.CFAdj, adjKey(edge.Src, forward, id)); err != nil {
		return err
	}
	return t.kv.Delete(kv.CFAdj, adjKey(edge.Dst, forward.Inverse(), id))
}

// DeleteNode reads the node (NotFound if absent), deletes it, then removes
// every adjacency entry incident to it and each entry's reverse. It never
// deletes the edges those entries named; the caller is expected to delete
// incident edges first (see DESIGN.md's Open Questions).
func (t *Transaction) DeleteNode(id eid.ElementId) error {
	if _, err := t.GetNode(id); err != nil {
		return err
	}
	if err := t.kv.Delete(kv.CFNode, id.Bytes()); err != nil {
		return err
	}

	lo := id.Bytes()
	hi := append(append([]byte(nil), id.Bytes()...), byte(InOutIn)+1)
	it, err := t.kv.Iterate(kv.CFAdj, lo, hi)
	if err != nil {
		return err
	}
	var incident []AdjEntry
	for it.Next() {
		entry, perr := parseAdjEntry(it.Key(), it.Value())
		if perr != nil {
			return perr
		}
		incident = append(incident, entry)
	}

	for _, entry := range incident {
		if err := t.kv.Delete(kv.CFAdj, adjKey(entry.Src, entry.InOut, entry.Edge)); err != nil {
			return err
		}
		if err := t.kv.Delete(kv.CFAdj, adjKey(entry.Dst, entry.InOut.Inverse(), entry.Edge)); err != nil {
			return err
		}
	}
	return nil
}

// AdjIterator walks adjacency entries in (node, inout, edge) order.
type AdjIterator struct {
	it *kv.Iterator
}

// Next advances the iterator.
func (a *AdjIterator) Next() bool { return a.it.Next() }

// Entry decodes the current adjacency entry.
func (a *AdjIterator) Entry() (AdjEntry, error) {
	return parseAdjEntry(a.it.Key(), a.it.Value())
}

// IterateAdj scans the adjacency entries for node whose InOut tag falls in
// [minInOut, maxInOut] inclusive — a non-conflicting read.
func (t *Transaction) IterateAdj(node eid.ElementId, minInOut, maxInOut InOut) (*AdjIterator, error) {
	lo := append(append([]byte(nil), node.Bytes()...), byte(minInOut))
	hi := append(append([]byte(nil), node.Bytes()...), byte(maxInOut)+1)
	it, err := t.kv.Iterate(kv.CFAdj, lo, hi)
	if err != nil {
		return nil, err
	}
	return &AdjIterator{it: it}, nil
}

// SetSavepoint records a point this transaction's writes can later be
// rolled back to.
func (t *Transaction) SetSavepoint() (int, error) { return t.kv.SetSavepoint() }

// RollbackToSavepoint undoes every write issued after sp.
func (t *Transaction) RollbackToSavepoint(sp int) error { return t.kv.RollbackToSavepoint(sp) }

// Commit attempts to commit the transaction; see kv.Transaction.Commit for
// the Busy/TryAgain failure semantics.
func (t *Transaction) Commit() error { return t.kv.Commit() }

// Rollback discards the transaction's writes.
func (t *Transaction) Rollback() error { return t.kv.Rollback() }
