package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/nornicdb-core/internal/dberr"
)

func TestTransactionStatusLifecycle(t *testing.T) {
	db := setupTestDB(t)

	tx, err := db.Begin()
	require.NoError(t, err)
	assert.Equal(t, StatusActive, tx.Status)
	assert.NotEmpty(t, tx.ID)
	assert.False(t, tx.StartTime.IsZero())

	require.NoError(t, tx.Put(CFDefault, []byte("k"), []byte("v")))
	require.NoError(t, tx.Commit())
	assert.Equal(t, StatusCommitted, tx.Status)

	// Every operation on a finished transaction fails the same way.
	_, err = tx.Get(CFDefault, []byte("k"), false)
	assert.ErrorIs(t, err, dberr.ErrTransactionClosed)
	assert.ErrorIs(t, tx.Put(CFDefault, []byte("k"), []byte("v2")), dberr.ErrTransactionClosed)
	assert.ErrorIs(t, tx.Commit(), dberr.ErrTransactionClosed)
	assert.ErrorIs(t, tx.Rollback(), dberr.ErrTransactionClosed)

	tx2, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback())
	assert.Equal(t, StatusRolledBack, tx2.Status)
}

func TestNestedSavepoints(t *testing.T) {
	db := setupTestDB(t)
	tx, err := db.Begin()
	require.NoError(t, err)

	require.NoError(t, tx.Put(CFDefault, []byte("a"), []byte("1")))
	sp1, err := tx.SetSavepoint()
	require.NoError(t, err)

	require.NoError(t, tx.Put(CFDefault, []byte("b"), []byte("2")))
	sp2, err := tx.SetSavepoint()
	require.NoError(t, err)

	require.NoError(t, tx.Put(CFDefault, []byte("c"), []byte("3")))
	require.NoError(t, tx.Delete(CFDefault, []byte("a")))

	// Unwind to the inner savepoint: c and the delete of a are undone.
	require.NoError(t, tx.RollbackToSavepoint(sp2))
	_, err = tx.Get(CFDefault, []byte("c"), false)
	assert.ErrorIs(t, err, dberr.ErrNotFound)
	v, err := tx.Get(CFDefault, []byte("a"), false)
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	// Then to the outer one: b is undone too, a survives.
	require.NoError(t, tx.RollbackToSavepoint(sp1))
	_, err = tx.Get(CFDefault, []byte("b"), false)
	assert.ErrorIs(t, err, dberr.ErrNotFound)
	v, err = tx.Get(CFDefault, []byte("a"), false)
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, tx.Commit())
}

func TestRollbackToInvalidSavepoint(t *testing.T) {
	db := setupTestDB(t)
	tx, err := db.Begin()
	require.NoError(t, err)
	assert.ErrorIs(t, tx.RollbackToSavepoint(-1), dberr.ErrInvalidArgument)
	assert.ErrorIs(t, tx.RollbackToSavepoint(7), dberr.ErrInvalidArgument)
}

func TestIterateRespectsBoundsAndColumnFamily(t *testing.T) {
	db := setupTestDB(t)

	seed, err := db.Begin()
	require.NoError(t, err)
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, seed.Put(CFNode, []byte(k), []byte("n-"+k)))
		require.NoError(t, seed.Put(CFEdge, []byte(k), []byte("e-"+k)))
	}
	require.NoError(t, seed.Commit())

	tx, err := db.Begin()
	require.NoError(t, err)

	it, err := tx.Iterate(CFNode, []byte("b"), []byte("d"))
	require.NoError(t, err)

	var keys, values []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
		values = append(values, string(it.Value()))
	}
	// [lo, hi) in byte order, and nothing from the edge family leaks in.
	assert.Equal(t, []string{"b", "c"}, keys)
	assert.Equal(t, []string{"n-b", "n-c"}, values)
}

func TestIterateSeesOwnDeletes(t *testing.T) {
	db := setupTestDB(t)

	seed, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, seed.Put(CFNode, []byte("a"), []byte("1")))
	require.NoError(t, seed.Put(CFNode, []byte("b"), []byte("2")))
	require.NoError(t, seed.Commit())

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Delete(CFNode, []byte("a")))

	it, err := tx.Iterate(CFNode, nil, nil)
	require.NoError(t, err)
	require.True(t, it.Next())
	assert.Equal(t, "b", string(it.Key()))
	assert.False(t, it.Next())
}
