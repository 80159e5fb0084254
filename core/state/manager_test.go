package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nftmarket/storage"
)

type record struct {
	Owner  [20]byte
	Amount uint64
}

func TestManagerReadsOwnWrites(t *testing.T) {
	db := storage.NewMemDB()
	manager := NewManager(db)

	in := record{Owner: [20]byte{1}, Amount: 42}
	require.NoError(t, manager.KVPut([]byte("record/1"), in))

	var out record
	ok, err := manager.KVGet([]byte("record/1"), &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in, out)

	// Nothing reaches the database before Commit.
	require.Zero(t, db.Len())
	require.Equal(t, 1, manager.Dirty())
}

func TestManagerCommitPersists(t *testing.T) {
	db := storage.NewMemDB()
	manager := NewManager(db)

	require.NoError(t, manager.KVPut([]byte("record/1"), record{Amount: 1}))
	require.NoError(t, manager.KVPut([]byte("record/2"), record{Amount: 2}))
	require.NoError(t, manager.Commit())
	require.Zero(t, manager.Dirty())
	require.Equal(t, 2, db.Len())

	fresh := NewManager(db)
	var out record
	ok, err := fresh.KVGet([]byte("record/2"), &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(2), out.Amount)
}

func TestManagerDiscardRollsBack(t *testing.T) {
	db := storage.NewMemDB()
	manager := NewManager(db)
	require.NoError(t, manager.KVPut([]byte("record/1"), record{Amount: 1}))
	require.NoError(t, manager.Commit())

	require.NoError(t, manager.KVPut([]byte("record/1"), record{Amount: 99}))
	require.NoError(t, manager.KVDelete([]byte("record/1")))
	require.NoError(t, manager.KVPut([]byte("record/3"), record{Amount: 3}))
	manager.Discard()

	var out record
	ok, err := manager.KVGet([]byte("record/1"), &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), out.Amount)

	ok, err = manager.KVHas([]byte("record/3"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestManagerDelete(t *testing.T) {
	db := storage.NewMemDB()
	manager := NewManager(db)
	require.NoError(t, manager.KVPut([]byte("record/1"), record{Amount: 1}))
	require.NoError(t, manager.Commit())

	require.NoError(t, manager.KVDelete([]byte("record/1")))
	ok, err := manager.KVHas([]byte("record/1"))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, manager.Commit())
	require.Zero(t, db.Len())
}

func TestManagerRejectsEmptyKey(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	require.Error(t, manager.KVPut(nil, record{}))
	_, err := manager.KVGet(nil, nil)
	require.Error(t, err)
	require.Error(t, manager.KVDelete(nil))
}
