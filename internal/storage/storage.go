package storage

import "github.com/orneryd/nornicdb-core/internal/kv"

// DB is an opened graph store: a thin wrapper over kv.DB that hands out
// storage.Transaction values instead of raw kv.Transaction ones.
type DB struct {
	kv *kv.DB
}

// Open opens a graph store with the given KV backend options.
func Open(opts kv.Options) (*DB, error) {
	kvdb, err := kv.Open(opts)
	if err != nil {
		return nil, err
	}
	return &DB{kv: kvdb}, nil
}

// Close releases the store's resources.
func (db *DB) Close() error { return db.kv.Close() }

// Begin opens a new transaction over the graph.
func (db *DB) Begin() (*Transaction, error) {
	kvTxn, err := db.kv.Begin()
	if err != nil {
		return nil, err
	}
	return newTransaction(kvTxn), nil
}
