package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelDBBatchPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	db1, err := NewLevelDB(dir)
	require.NoError(t, err)

	require.NoError(t, db1.Put([]byte("stale"), []byte("x")))
	batch := db1.NewBatch()
	batch.Put([]byte("car"), []byte("available"))
	batch.Delete([]byte("stale"))
	require.Equal(t, 2, batch.Len())
	require.NoError(t, batch.Write())
	db1.Close()

	db2, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	got, err := db2.Get([]byte("car"))
	require.NoError(t, err)
	require.Equal(t, []byte("available"), got)

	_, err = db2.Get([]byte("stale"))
	require.ErrorIs(t, err, ErrNotFound)

	ok, err := db2.Has([]byte("stale"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemDBBatchIsInvisibleUntilWrite(t *testing.T) {
	db := NewMemDB()
	batch := db.NewBatch()
	batch.Put([]byte("k"), []byte("v"))

	_, err := db.Get([]byte("k"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, batch.Write())
	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)
	require.Equal(t, 1, db.Len())
}

func TestMemDBGetReturnsCopy(t *testing.T) {
	db := NewMemDB()
	require.NoError(t, db.Put([]byte("k"), []byte("abc")))

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	got[0] = 'z'

	again, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), again)
}
