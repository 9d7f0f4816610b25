package kv

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/orneryd/nornicdb-core/internal/dberr"
)

// Status tracks a transaction's lifecycle.
type Status int

const (
	StatusActive Status = iota
	StatusCommitted
	StatusRolledBack
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCommitted:
		return "committed"
	case StatusRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// journalEntry is one buffered mutation, replayed against the Badger
// transaction at Commit time. Keeping writes buffered locally rather than
// applying them to Badger immediately is what lets RollbackToSavepoint
// undo a suffix of a transaction's writes without Badger's own support
// for nested transactions.
type journalEntry struct {
	cf      CF
	key     []byte
	value   []byte
	deleted bool
}

// overlayEntry is the current, folded state of one key within the
// transaction's write buffer.
type overlayEntry struct {
	value   []byte
	deleted bool
}

// Transaction is an optimistic, snapshot-isolated transaction over a DB.
// It keeps a read-your-writes buffer at the raw key/value level, so the
// storage package built on top of this one can reuse it for nodes, edges,
// and the adjacency index alike.
type Transaction struct {
	mu sync.Mutex

	ID        string
	StartTime time.Time
	Status    Status

	db *DB

	// rw is used for every write (applied at Commit) and every
	// conflict-tracked ("for update") read. ro is a read-only
	// companion opened at the same moment, used for ordinary reads and
	// range scans so that they do not spuriously register in Badger's
	// conflict set — preserving the distinction between conflict-checked
	// and snapshot-only reads.
	rw *badger.Txn
	ro *badger.Txn

	overlay    map[string]overlayEntry
	journal    []journalEntry
	savepoints int // number of RollbackToSavepoint-valid checkpoints issued; checkpoints are just journal lengths, so no separate stack is needed
}

func newTransaction(db *DB) *Transaction {
	return &Transaction{
		ID:        generateTxnID(),
		StartTime: time.Now(),
		Status:    StatusActive,
		db:        db,
		rw:        db.bdb.NewTransaction(true),
		ro:        db.bdb.NewTransaction(false),
		overlay:   make(map[string]overlayEntry),
	}
}

func generateTxnID() string {
	return fmt.Sprintf("txn-%d", time.Now().UnixNano())
}

func overlayMapKey(cf CF, key []byte) string {
	return string(prefixedKey(cf, key))
}

// Get reads key from cf. If forUpdate is true and the key is not already
// buffered by this transaction, the read is registered with Badger's
// conflict detector: if another transaction writes this key and commits
// before this one does, this transaction's Commit fails with ErrBusy.
// Non-forUpdate reads never fail a sibling transaction's commit.
func (t *Transaction) Get(cf CF, key []byte, forUpdate bool) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status != StatusActive {
		return nil, dberr.ErrTransactionClosed
	}

	if ent, ok := t.overlay[overlayMapKey(cf, key)]; ok {
		if ent.deleted {
			return nil, dberr.ErrNotFound
		}
		return append([]byte(nil), ent.value...), nil
	}

	fullKey := prefixedKey(cf, key)
	var item *badger.Item
	var err error
	if forUpdate {
		item, err = t.rw.Get(fullKey)
	} else {
		item, err = t.ro.Get(fullKey)
	}
	if err != nil {
		return nil, mapBadgerErr(err)
	}
	var out []byte
	err = item.Value(func(val []byte) error {
		out = append([]byte(nil), val...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dberr.ErrIO, err)
	}
	return out, nil
}

// Put buffers a write of key to value within cf. The write is applied to
// the underlying store only at Commit.
func (t *Transaction) Put(cf CF, key, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status != StatusActive {
		return dberr.ErrTransactionClosed
	}
	valCopy := append([]byte(nil), value...)
	t.journal = append(t.journal, journalEntry{cf: cf, key: append([]byte(nil), key...), value: valCopy})
	t.overlay[overlayMapKey(cf, key)] = overlayEntry{value: valCopy}
	return nil
}

// Delete buffers a deletion of key within cf.
func (t *Transaction) Delete(cf CF, key []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status != StatusActive {
		return dberr.ErrTransactionClosed
	}
	t.journal = append(t.journal, journalEntry{cf: cf, key: append([]byte(nil), key...), deleted: true})
	t.overlay[overlayMapKey(cf, key)] = overlayEntry{deleted: true}
	return nil
}

// DeleteRange buffers deletion of every key in cf within [lo, hi). A nil hi
// means "through the end of cf".
func (t *Transaction) DeleteRange(cf CF, lo, hi []byte) error {
	it, err := t.iterateLocked(cf, lo, hi)
	if err != nil {
		return err
	}
	keys := make([][]byte, 0, len(it.entries))
	for it.Next() {
		keys = append(keys, append([]byte(nil), it.Key()...))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status != StatusActive {
		return dberr.ErrTransactionClosed
	}
	for _, k := range keys {
		t.journal = append(t.journal, journalEntry{cf: cf, key: k, deleted: true})
		t.overlay[overlayMapKey(cf, k)] = overlayEntry{deleted: true}
	}
	return nil
}

// Iterate returns a cursor over every live key in cf within [lo, hi),
// merging this transaction's own buffered writes over the snapshot. A nil
// lo or hi leaves that side of the range unbounded within cf.
func (t *Transaction) Iterate(cf CF, lo, hi []byte) (*Iterator, error) {
	return t.iterateLocked(cf, lo, hi)
}

// SetSavepoint records the current length of the write journal and returns
// a token that RollbackToSavepoint can later undo back to.
func (t *Transaction) SetSavepoint() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status != StatusActive {
		return 0, dberr.ErrTransactionClosed
	}
	sp := len(t.journal)
	t.savepoints++
	return sp, nil
}

// RollbackToSavepoint undoes every Put/Delete/DeleteRange issued after the
// given savepoint token, without affecting reads already performed or
// writes issued before it. Since Badger has no native nested transactions,
// this is implemented by truncating the journal and folding it back into a
// fresh overlay — the same buffered-write approach used for ordinary reads
// and writes throughout this type.
func (t *Transaction) RollbackToSavepoint(sp int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status != StatusActive {
		return dberr.ErrTransactionClosed
	}
	if sp < 0 || sp > len(t.journal) {
		return fmt.Errorf("%w: invalid savepoint", dberr.ErrInvalidArgument)
	}
	t.journal = t.journal[:sp]
	t.overlay = make(map[string]overlayEntry, len(t.journal))
	for _, e := range t.journal {
		if e.deleted {
			t.overlay[overlayMapKey(e.cf, e.key)] = overlayEntry{deleted: true}
		} else {
			t.overlay[overlayMapKey(e.cf, e.key)] = overlayEntry{value: e.value}
		}
	}
	return nil
}

// Commit applies the journal to the underlying store and attempts to
// commit it atomically. A concurrent, conflicting commit from another
// transaction surfaces as ErrBusy; the caller should retry with a fresh
// transaction.
func (t *Transaction) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status != StatusActive {
		return dberr.ErrTransactionClosed
	}

	for _, e := range t.journal {
		full := prefixedKey(e.cf, e.key)
		// Register the key in Badger's conflict set before writing it, so
		// a sibling transaction that committed a write to the same key
		// since this snapshot fails this commit with Busy — write-write
		// conflicts, not only read-for-update ones.
		if _, err := t.rw.Get(full); err != nil && err != badger.ErrKeyNotFound {
			t.rw.Discard()
			t.ro.Discard()
			t.Status = StatusRolledBack
			return mapBadgerErr(err)
		}
		var err error
		if e.deleted {
			err = t.rw.Delete(full)
		} else {
			err = t.rw.Set(full, e.value)
		}
		if err != nil {
			t.rw.Discard()
			t.ro.Discard()
			t.Status = StatusRolledBack
			return mapBadgerErr(err)
		}
	}

	if err := t.rw.Commit(); err != nil {
		t.Status = StatusRolledBack
		t.ro.Discard()
		return mapBadgerErr(err)
	}
	t.ro.Discard()
	t.Status = StatusCommitted
	return nil
}

// Rollback discards every buffered write and releases the transaction's
// snapshot without applying anything.
func (t *Transaction) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status != StatusActive {
		return dberr.ErrTransactionClosed
	}
	t.rw.Discard()
	t.ro.Discard()
	t.Status = StatusRolledBack
	return nil
}

// iterateLocked builds a merged view of the base snapshot (via ro) and the
// transaction's own overlay for one cf/range, materializing it into a
// sorted slice. This trades streaming efficiency for a simple, obviously
// correct merge — acceptable at this module's scale; see DESIGN.md.
func (t *Transaction) iterateLocked(cf CF, lo, hi []byte) (*Iterator, error) {
	t.mu.Lock()
	if t.Status != StatusActive {
		t.mu.Unlock()
		return nil, dberr.ErrTransactionClosed
	}

	merged := make(map[string]overlayEntry)

	prefix := []byte{byte(cf)}
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.ro.NewIterator(opts)
	loFull := prefixedKey(cf, lo)
	for it.Seek(loFull); it.ValidForPrefix(prefix); it.Next() {
		k := append([]byte(nil), it.Item().Key()[1:]...)
		if hi != nil && bytesCompare(k, hi) >= 0 {
			break
		}
		var val []byte
		if err := it.Item().Value(func(v []byte) error {
			val = append([]byte(nil), v...)
			return nil
		}); err != nil {
			it.Close()
			t.mu.Unlock()
			return nil, fmt.Errorf("%w: %v", dberr.ErrIO, err)
		}
		merged[string(k)] = overlayEntry{value: val}
	}
	it.Close()

	for mk, ent := range t.overlay {
		b := []byte(mk)
		if len(b) == 0 || b[0] != byte(cf) {
			continue
		}
		k := b[1:]
		if lo != nil && bytesCompare(k, lo) < 0 {
			continue
		}
		if hi != nil && bytesCompare(k, hi) >= 0 {
			continue
		}
		if ent.deleted {
			delete(merged, string(k))
		} else {
			merged[string(k)] = ent
		}
	}
	t.mu.Unlock()

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]kvPair, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, kvPair{key: []byte(k), value: merged[k].value})
	}
	return &Iterator{entries: entries, idx: -1}, nil
}

func bytesCompare(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
