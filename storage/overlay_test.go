package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOverlayShadowsReads(t *testing.T) {
	db := NewMemDB()
	require.NoError(t, db.Put([]byte("k"), []byte("base")))

	overlay := NewOverlay(db)
	value, err := overlay.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("base"), value)

	require.NoError(t, overlay.Put([]byte("k"), []byte("staged")))
	value, err = overlay.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("staged"), value)

	// The base store only changes on commit.
	value, err = db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("base"), value)

	require.NoError(t, overlay.Commit())
	value, err = db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("staged"), value)
}

func TestOverlayDiscard(t *testing.T) {
	db := NewMemDB()
	overlay := NewOverlay(db)
	require.NoError(t, overlay.Put([]byte("gone"), []byte("x")))
	overlay.Discard()
	require.NoError(t, overlay.Commit())

	_, err := db.Get([]byte("gone"))
	require.Error(t, err)
}

// rejectingDB refuses batch writes so commit failure paths can be exercised.
type rejectingDB struct {
	*MemDB
	batchErr error
}

func (db *rejectingDB) PutBatch(entries map[string][]byte) error {
	if db.batchErr != nil {
		return db.batchErr
	}
	return db.MemDB.PutBatch(entries)
}

func TestOverlayFailedCommitLeavesBaseUntouched(t *testing.T) {
	db := &rejectingDB{MemDB: NewMemDB(), batchErr: errors.New("write rejected")}
	overlay := NewOverlay(db)
	require.NoError(t, overlay.Put([]byte("a"), []byte("1")))
	require.NoError(t, overlay.Put([]byte("b"), []byte("2")))

	require.Error(t, overlay.Commit())
	_, err := db.MemDB.Get([]byte("a"))
	require.Error(t, err)
	_, err = db.MemDB.Get([]byte("b"))
	require.Error(t, err)

	// The staged set survives a failed commit; a retry applies all of it.
	db.batchErr = nil
	require.NoError(t, overlay.Commit())
	value, err := db.MemDB.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), value)
	value, err = db.MemDB.Get([]byte("b"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), value)
}

func TestOverlayCopiesValues(t *testing.T) {
	db := NewMemDB()
	overlay := NewOverlay(db)
	payload := []byte("mutable")
	require.NoError(t, overlay.Put([]byte("k"), payload))
	payload[0] = 'X'

	value, err := overlay.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("mutable"), value)
}
