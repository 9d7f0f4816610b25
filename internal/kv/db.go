package kv

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/orneryd/nornicdb-core/internal/dberr"
)

// Options configures the Badger-backed store. The config package exposes
// the same knobs to callers.
type Options struct {
	// DataDir is the directory Badger stores its files in. Required
	// unless InMemory is set.
	DataDir string

	// InMemory runs Badger entirely in memory; DataDir is ignored.
	// Useful for tests.
	InMemory bool

	// SyncWrites forces an fsync on every commit. Slower, more durable.
	SyncWrites bool

	// BlockCacheMB sizes Badger's block cache, in megabytes.
	BlockCacheMB int64

	// Logger receives Badger's internal log lines. If nil, Badger's
	// default (stderr) logger is silenced; the store is quiet by
	// default.
	Logger badger.Logger
}

// DB is an opened store. It is safe for concurrent use by multiple
// goroutines, each opening its own Transaction.
type DB struct {
	bdb    *badger.DB
	mu     sync.RWMutex
	closed bool
}

// Open opens (creating if necessary) a store at the given options.
func Open(opts Options) (*DB, error) {
	bopts := badger.DefaultOptions(opts.DataDir)
	if opts.InMemory {
		bopts = bopts.WithInMemory(true)
	}
	if opts.SyncWrites {
		bopts = bopts.WithSyncWrites(true)
	}
	if opts.BlockCacheMB > 0 {
		bopts = bopts.WithBlockCacheSize(opts.BlockCacheMB << 20)
	}
	if opts.Logger != nil {
		bopts = bopts.WithLogger(opts.Logger)
	} else {
		bopts = bopts.WithLogger(nil)
	}

	bdb, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("kv: opening badger store: %w", err)
	}
	return &DB{bdb: bdb}, nil
}

// Close releases the store's resources. Any Transaction still open at
// Close time is left to the caller; Close does not implicitly roll them
// back.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	return db.bdb.Close()
}

// Begin opens a new optimistic transaction against the store's current
// state. The transaction observes a consistent snapshot as of this call,
// plus its own subsequent writes.
func (db *DB) Begin() (*Transaction, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, fmt.Errorf("kv: store is closed")
	}
	return newTransaction(db), nil
}

// mapBadgerErr translates a Badger sentinel into one of this module's
// stable error codes.
func mapBadgerErr(err error) error {
	switch err {
	case nil:
		return nil
	case badger.ErrKeyNotFound:
		return dberr.ErrNotFound
	case badger.ErrConflict:
		return dberr.ErrBusy
	case badger.ErrTxnTooBig:
		return fmt.Errorf("%w: transaction exceeded backend limits", dberr.ErrTryAgain)
	default:
		return fmt.Errorf("%w: %v", dberr.ErrIO, err)
	}
}
