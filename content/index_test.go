package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexMissingFileIsEmpty(t *testing.T) {
	ix := NewIndex(filepath.Join(t.TempDir(), "index.json"))
	recs, err := ix.List()
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestIndexMalformedFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewIndex(path).List()
	assert.Error(t, err)
}

func TestIndexPutGetDelete(t *testing.T) {
	ix := NewIndex(filepath.Join(t.TempDir(), "index.json"))

	rec := Record{ID: "240105-moj-kruh", Title: "Moj Kruh", CreatedAt: "2024-01-05"}
	require.NoError(t, ix.Put(rec))

	got, err := ix.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Moj Kruh", got.Title)

	// Put with the same id replaces, never duplicates.
	rec.Title = "Moj Kruh v2"
	require.NoError(t, ix.Put(rec))
	recs, err := ix.List()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Moj Kruh v2", recs[0].Title)

	require.NoError(t, ix.Delete(rec.ID))
	_, err = ix.Get(rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, ix.Delete(rec.ID), ErrNotFound)
}

func TestIndexReplace(t *testing.T) {
	ix := NewIndex(filepath.Join(t.TempDir(), "index.json"))
	require.NoError(t, ix.Put(Record{ID: "240105-moj-kruh", Title: "Moj Kruh", CreatedAt: "2024-01-05"}))
	require.NoError(t, ix.Put(Record{ID: "240106-other", Title: "Other", CreatedAt: "2024-01-06"}))

	require.NoError(t, ix.Replace("240105-moj-kruh", Record{ID: "240105-drugi-kruh", Title: "Drugi Kruh", CreatedAt: "2024-01-05"}))

	recs, err := ix.List()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	_, err = ix.Get("240105-moj-kruh")
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := ix.Get("240105-drugi-kruh")
	require.NoError(t, err)
	assert.Equal(t, "Drugi Kruh", got.Title)
}
