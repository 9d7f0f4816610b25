package storage

import (
	"errors"
	"testing"

	"github.com/orneryd/nornicdb-core/internal/dberr"
	"github.com/orneryd/nornicdb-core/internal/eid"
	"github.com/orneryd/nornicdb-core/internal/gvalue"
	"github.com/orneryd/nornicdb-core/internal/kv"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(kv.Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newNode(labels ...string) *Node {
	return &Node{
		ID:         eid.New(),
		Labels:     labels,
		PropKeys:   []string{"name"},
		Properties: map[string]gvalue.Value{"name": gvalue.StringOf("alice")},
	}
}

func TestPutNodeThenGet(t *testing.T) {
	db := setupTestDB(t)
	tx, _ := db.Begin()
	n := newNode("Person")
	if err := tx.PutNode(n); err != nil {
		t.Fatalf("PutNode: %v", err)
	}
	got, err := tx.GetNode(n.ID)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got.ID != n.ID || len(got.Labels) != 1 || got.Labels[0] != "Person" {
		t.Fatalf("got %+v, want labels [Person]", got)
	}
	if gvalue.Eql(got.Properties["name"], gvalue.StringOf("alice")) != gvalue.Bool(true) {
		t.Fatalf("property mismatch: %+v", got.Properties)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestDeleteNodeThenGetNotFound(t *testing.T) {
	db := setupTestDB(t)
	tx, _ := db.Begin()
	n := newNode("Person")
	if err := tx.PutNode(n); err != nil {
		t.Fatalf("PutNode: %v", err)
	}
	if err := tx.DeleteNode(n.ID); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	if _, err := tx.GetNode(n.ID); err != dberr.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := tx.DeleteNode(n.ID); err != dberr.ErrNotFound {
		t.Fatalf("deleting again: expected ErrNotFound, got %v", err)
	}
}

func TestPutEdgeRequiresExistingEndpoints(t *testing.T) {
	db := setupTestDB(t)
	tx, _ := db.Begin()
	edge := &Edge{ID: eid.New(), Src: eid.New(), Dst: eid.New(), Directed: true}
	err := tx.PutEdge(edge)
	if err == nil {
		t.Fatal("expected error for missing endpoints")
	}
}

func TestPutEdgeCreatesSymmetricAdjacency(t *testing.T) {
	db := setupTestDB(t)
	tx, _ := db.Begin()

	n1, n2 := newNode("A"), newNode("B")
	if err := tx.PutNode(n1); err != nil {
		t.Fatalf("PutNode n1: %v", err)
	}
	if err := tx.PutNode(n2); err != nil {
		t.Fatalf("PutNode n2: %v", err)
	}

	edge := &Edge{ID: eid.New(), Src: n1.ID, Dst: n2.ID, Directed: true}
	if err := tx.PutEdge(edge); err != nil {
		t.Fatalf("PutEdge: %v", err)
	}

	outIt, err := tx.IterateAdj(n1.ID, InOutOut, InOutOut)
	if err != nil {
		t.Fatalf("IterateAdj out: %v", err)
	}
	if !outIt.Next() {
		t.Fatal("expected one outgoing adjacency entry")
	}
	out, err := outIt.Entry()
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if out.Dst != n2.ID || out.Edge != edge.ID {
		t.Fatalf("got %+v, want dst=%v edge=%v", out, n2.ID, edge.ID)
	}

	inIt, err := tx.IterateAdj(n2.ID, InOutIn, InOutIn)
	if err != nil {
		t.Fatalf("IterateAdj in: %v", err)
	}
	if !inIt.Next() {
		t.Fatal("expected one incoming adjacency entry")
	}
	in, err := inIt.Entry()
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if in.Dst != n1.ID || in.Edge != edge.ID {
		t.Fatalf("got %+v, want dst=%v edge=%v", in, n1.ID, edge.ID)
	}
}

func TestPutEdgeMismatchedEndpointsIsError(t *testing.T) {
	db := setupTestDB(t)
	tx, _ := db.Begin()

	n1, n2, n3 := newNode("A"), newNode("B"), newNode("C")
	for _, n := range []*Node{n1, n2, n3} {
		if err := tx.PutNode(n); err != nil {
			t.Fatalf("PutNode: %v", err)
		}
	}

	id := eid.New()
	if err := tx.PutEdge(&Edge{ID: id, Src: n1.ID, Dst: n2.ID, Directed: true}); err != nil {
		t.Fatalf("PutEdge: %v", err)
	}
	err := tx.PutEdge(&Edge{ID: id, Src: n1.ID, Dst: n3.ID, Directed: true})
	if err == nil {
		t.Fatal("expected EdgeDataMismatch")
	}
}

func TestDeleteEdgeRemovesBothAdjacencyEntries(t *testing.T) {
	db := setupTestDB(t)
	tx, _ := db.Begin()

	n1, n2 := newNode("A"), newNode("B")
	if err := tx.PutNode(n1); err != nil {
		t.Fatalf("PutNode n1: %v", err)
	}
	if err := tx.PutNode(n2); err != nil {
		t.Fatalf("PutNode n2: %v", err)
	}
	edge := &Edge{ID: eid.New(), Src: n1.ID, Dst: n2.ID, Directed: false}
	if err := tx.PutEdge(edge); err != nil {
		t.Fatalf("PutEdge: %v", err)
	}

	if err := tx.DeleteEdge(edge.ID); err != nil {
		t.Fatalf("DeleteEdge: %v", err)
	}

	it1, _ := tx.IterateAdj(n1.ID, InOutSimple, InOutSimple)
	if it1.Next() {
		t.Fatal("expected no adjacency entries at n1 after delete")
	}
	it2, _ := tx.IterateAdj(n2.ID, InOutSimple, InOutSimple)
	if it2.Next() {
		t.Fatal("expected no adjacency entries at n2 after delete")
	}
}

func TestDeleteNodeRemovesIncidentAdjacencyNotEdge(t *testing.T) {
	db := setupTestDB(t)
	tx, _ := db.Begin()

	n1, n2 := newNode("A"), newNode("B")
	if err := tx.PutNode(n1); err != nil {
		t.Fatalf("PutNode n1: %v", err)
	}
	if err := tx.PutNode(n2); err != nil {
		t.Fatalf("PutNode n2: %v", err)
	}
	edge := &Edge{ID: eid.New(), Src: n1.ID, Dst: n2.ID, Directed: true}
	if err := tx.PutEdge(edge); err != nil {
		t.Fatalf("PutEdge: %v", err)
	}

	if err := tx.DeleteNode(n1.ID); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}

	// The index entries are gone...
	it, _ := tx.IterateAdj(n2.ID, InOutIn, InOutIn)
	if it.Next() {
		t.Fatal("expected adjacency entry at n2 to be gone")
	}

	// ...but the edge record itself is untouched: detaching deletes the
	// incident edges explicitly before deleting the node.
	if _, err := tx.GetEdge(edge.ID); err != nil {
		t.Fatalf("expected dangling edge record to survive node delete, got %v", err)
	}
}

func TestConcurrentDeleteNodeAdjacencySnapshot(t *testing.T) {
	db := setupTestDB(t)

	setup, _ := db.Begin()
	n1, n2, n3 := newNode("A"), newNode("B"), newNode("C")
	for _, n := range []*Node{n1, n2, n3} {
		if err := setup.PutNode(n); err != nil {
			t.Fatalf("PutNode: %v", err)
		}
	}
	e1 := &Edge{ID: eid.New(), Src: n1.ID, Dst: n2.ID, Directed: false}
	e2 := &Edge{ID: eid.New(), Src: n2.ID, Dst: n3.ID, Directed: false}
	if err := setup.PutEdge(e1); err != nil {
		t.Fatalf("PutEdge e1: %v", err)
	}
	if err := setup.PutEdge(e2); err != nil {
		t.Fatalf("PutEdge e2: %v", err)
	}
	if err := setup.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	tx1, _ := db.Begin()
	tx2, _ := db.Begin()

	if err := tx1.DeleteNode(n2.ID); err != nil {
		t.Fatalf("tx1 DeleteNode: %v", err)
	}

	it, err := tx2.IterateAdj(n1.ID, InOutSimple, InOutSimple)
	if err != nil {
		t.Fatalf("tx2 IterateAdj: %v", err)
	}
	if !it.Next() {
		t.Fatal("expected tx2 to still see e1 via its own snapshot")
	}
	entry, err := it.Entry()
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if entry.Edge != e1.ID {
		t.Fatalf("got edge %v, want %v", entry.Edge, e1.ID)
	}

	if err := tx1.Commit(); err != nil {
		t.Fatalf("tx1 Commit: %v", err)
	}
	// tx2 never read-for-update anything tx1 wrote, so its commit should
	// succeed despite the concurrent delete.
	if err := tx2.Commit(); err != nil {
		t.Fatalf("expected tx2 Commit to succeed, got %v", err)
	}
}

func TestSavepointUndoesNodeInsert(t *testing.T) {
	db := setupTestDB(t)
	tx, _ := db.Begin()

	keep := newNode("Keep")
	if err := tx.PutNode(keep); err != nil {
		t.Fatalf("PutNode: %v", err)
	}
	sp, err := tx.SetSavepoint()
	if err != nil {
		t.Fatalf("SetSavepoint: %v", err)
	}
	undone := newNode("Undone")
	if err := tx.PutNode(undone); err != nil {
		t.Fatalf("PutNode: %v", err)
	}
	if err := tx.RollbackToSavepoint(sp); err != nil {
		t.Fatalf("RollbackToSavepoint: %v", err)
	}

	if _, err := tx.GetNode(undone.ID); err != dberr.ErrNotFound {
		t.Fatalf("expected undone node gone, got %v", err)
	}
	if _, err := tx.GetNode(keep.ID); err != nil {
		t.Fatalf("expected kept node to survive, got %v", err)
	}
}

func TestGetNodeCorruptPayloadIsErrCorruption(t *testing.T) {
	db := setupTestDB(t)
	tx, _ := db.Begin()
	id := eid.New()
	// A label set claiming one label with no bytes behind it.
	if err := tx.kv.Put(kv.CFNode, id.Bytes(), []byte{0, 0, 0, 1}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	_, err := tx.GetNode(id)
	if !errors.Is(err, dberr.ErrCorruption) {
		t.Fatalf("expected ErrCorruption, got %v", err)
	}
}

func TestGetNodeInvalidPropertyTagIsErrInvalidValueTag(t *testing.T) {
	db := setupTestDB(t)
	tx, _ := db.Begin()
	id := eid.New()
	// No labels, one property "a" whose value carries tag byte 0xFF.
	payload := []byte{
		0, 0, 0, 0, // label count
		0, 0, 0, 1, // property count
		0, 0, 0, 1, 'a', // key
		0xFF, // value tag
	}
	if err := tx.kv.Put(kv.CFNode, id.Bytes(), payload); err != nil {
		t.Fatalf("Put: %v", err)
	}
	_, err := tx.GetNode(id)
	if !errors.Is(err, dberr.ErrInvalidValueTag) {
		t.Fatalf("expected ErrInvalidValueTag, got %v", err)
	}
}

func TestGetEdgeCorruptLabelsIsErrCorruption(t *testing.T) {
	db := setupTestDB(t)
	tx, _ := db.Begin()
	id := eid.New()
	// Valid endpoint header, then a label set claiming two labels with
	// no bytes behind it.
	payload := append(append(eid.New().Bytes(), eid.New().Bytes()...), 1)
	payload = append(payload, 0, 0, 0, 2)
	if err := tx.kv.Put(kv.CFEdge, id.Bytes(), payload); err != nil {
		t.Fatalf("Put: %v", err)
	}
	_, err := tx.GetEdge(id)
	if !errors.Is(err, dberr.ErrCorruption) {
		t.Fatalf("expected ErrCorruption, got %v", err)
	}
}
