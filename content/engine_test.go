package content

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()
	return Config{
		DataDir:     filepath.Join(root, "data", "posts"),
		AssetDir:    filepath.Join(root, "public", "uploads", "posts"),
		AssetPrefix: "/public/uploads/posts",
	}
}

func newTestEngine(t *testing.T) (*Engine, Config) {
	t.Helper()
	cfg := testConfig(t)
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return e, cfg
}

func blobPath(cfg Config, id string) string {
	return filepath.Join(cfg.DataDir, "content", id+".md")
}

func TestCreateDerivesID(t *testing.T) {
	e, cfg := newTestEngine(t)

	rec, err := e.Create(Input{Title: "Moj Kruh!", CreatedAt: "2024-01-05", Content: "# Kruh\n\nRecept."})
	require.NoError(t, err)
	assert.Equal(t, "240105-moj-kruh", rec.ID)

	// Round-trip: reading back yields identical metadata and content.
	got, err := e.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Moj Kruh!", got.Title)
	assert.Equal(t, "# Kruh\n\nRecept.", got.Content)
	assert.FileExists(t, blobPath(cfg, rec.ID))
}

func TestCreateDisambiguatesDuplicate(t *testing.T) {
	e, _ := newTestEngine(t)

	first, err := e.Create(Input{Title: "Moj Kruh!", CreatedAt: "2024-01-05"})
	require.NoError(t, err)
	second, err := e.Create(Input{Title: "Moj Kruh!", CreatedAt: "2024-01-05"})
	require.NoError(t, err)

	assert.Equal(t, "240105-moj-kruh", first.ID)
	assert.Equal(t, "240105-moj-kruh-1", second.ID)
}

func TestCreateRejectsBadTitle(t *testing.T) {
	e, _ := newTestEngine(t)

	var ve *ValidationError
	_, err := e.Create(Input{Title: "ab"})
	require.ErrorAs(t, err, &ve)

	_, err = e.Create(Input{Title: "!!! ???"})
	require.ErrorAs(t, err, &ve)
}

func TestUpdateTitleChangeCascades(t *testing.T) {
	e, cfg := newTestEngine(t)

	rec, err := e.Create(Input{
		Title:      "Moj Kruh!",
		CreatedAt:  "2024-01-05",
		Content:    "body",
		MainUpload: &Upload{Name: "kruh.jpg", Data: []byte("img")},
	})
	require.NoError(t, err)

	res, err := e.Update(rec.ID, Input{Title: "Drugi Kruh", CreatedAt: "2024-01-05", Content: "body"})
	require.NoError(t, err)

	assert.True(t, res.IDChanged)
	assert.Equal(t, "240105-drugi-kruh", res.Record.ID)
	assert.Equal(t, "240105-moj-kruh", res.PrevID)

	// Content blob moved with the identity.
	assert.NoFileExists(t, blobPath(cfg, "240105-moj-kruh"))
	assert.FileExists(t, blobPath(cfg, "240105-drugi-kruh"))

	// No asset path still carries the old id.
	for _, p := range append([]string{res.Record.MainImage}, res.Record.Gallery...) {
		assert.NotContains(t, p, "240105-moj-kruh")
	}
	assert.Equal(t, "/public/uploads/posts/240105-drugi-kruh-kruh.jpg", res.Record.MainImage)

	// Old id is gone, new id resolves.
	_, err = e.Get("240105-moj-kruh")
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := e.Get("240105-drugi-kruh")
	require.NoError(t, err)
	assert.Equal(t, "body", got.Content)
}

func TestUpdateDateChangeCascades(t *testing.T) {
	e, _ := newTestEngine(t)

	rec, err := e.Create(Input{Title: "Moj Kruh", CreatedAt: "2024-01-05"})
	require.NoError(t, err)

	res, err := e.Update(rec.ID, Input{Title: "Moj Kruh", CreatedAt: "2024-02-10"})
	require.NoError(t, err)
	assert.True(t, res.IDChanged)
	assert.Equal(t, "240210-moj-kruh", res.Record.ID)
	assert.Equal(t, "2024-02-10", res.Record.CreatedAt)
}

func TestUpdateExcerptOnlyKeepsID(t *testing.T) {
	e, _ := newTestEngine(t)

	rec, err := e.Create(Input{Title: "Moj Kruh", CreatedAt: "2024-01-05", Content: "body"})
	require.NoError(t, err)

	res, err := e.Update(rec.ID, Input{Title: "Moj Kruh", Excerpt: "Nov povzetek", Content: "body"})
	require.NoError(t, err)

	assert.False(t, res.IDChanged)
	assert.Equal(t, rec.ID, res.Record.ID)
	assert.Equal(t, "Nov povzetek", res.Record.Excerpt)
}

func TestUpdateSameSlugKeepsID(t *testing.T) {
	e, _ := newTestEngine(t)

	rec, err := e.Create(Input{Title: "Moj Kruh!", CreatedAt: "2024-01-05"})
	require.NoError(t, err)

	// Title changed, but it slugifies to the same id: no cascade.
	res, err := e.Update(rec.ID, Input{Title: "Moj Kruh"})
	require.NoError(t, err)
	assert.False(t, res.IDChanged)
	assert.Equal(t, "240105-moj-kruh", res.Record.ID)
}

func TestUpdateGalleryReconcile(t *testing.T) {
	e, _ := newTestEngine(t)

	rec, err := e.Create(Input{
		Title:     "Moj Kruh",
		CreatedAt: "2024-01-05",
		GalleryUploads: []Upload{
			{Name: "a.jpg", Data: []byte("a")},
			{Name: "b.jpg", Data: []byte("b")},
		},
	})
	require.NoError(t, err)
	require.Len(t, rec.Gallery, 2)

	// Client reordered the gallery and dropped nothing; a new image is
	// appended after the kept ones.
	res, err := e.Update(rec.ID, Input{
		Title:            "Moj Kruh",
		ReconcileGallery: true,
		KeepGallery:      []string{rec.Gallery[1], rec.Gallery[0]},
		GalleryUploads:   []Upload{{Name: "c.jpg", Data: []byte("c")}},
	})
	require.NoError(t, err)
	require.Len(t, res.Record.Gallery, 3)
	assert.Equal(t, rec.Gallery[1], res.Record.Gallery[0])
	assert.Equal(t, rec.Gallery[0], res.Record.Gallery[1])

	// Dropping a path unlinks its file.
	res2, err := e.Update(rec.ID, Input{
		Title:            "Moj Kruh",
		ReconcileGallery: true,
		KeepGallery:      res.Record.Gallery[:1],
	})
	require.NoError(t, err)
	assert.Len(t, res2.Record.Gallery, 1)
}

func TestDeleteTombstones(t *testing.T) {
	e, cfg := newTestEngine(t)

	rec, err := e.Create(Input{Title: "Moj Kruh", CreatedAt: "2024-01-05", Content: "body"})
	require.NoError(t, err)

	require.NoError(t, e.Delete(rec.ID))

	_, err = e.Get(rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, e.Delete(rec.ID), ErrNotFound)
	assert.NoFileExists(t, blobPath(cfg, rec.ID))

	// Tombstones survive a restart.
	reopened, err := NewEngine(cfg)
	require.NoError(t, err)
	_, err = reopened.Get(rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletedIDIsNeverReissued(t *testing.T) {
	e, _ := newTestEngine(t)

	rec, err := e.Create(Input{Title: "Moj Kruh", CreatedAt: "2024-01-05"})
	require.NoError(t, err)
	require.NoError(t, e.Delete(rec.ID))

	// A new entity with the same title and date must not reuse the
	// tombstoned id, or the tombstone would hide it.
	again, err := e.Create(Input{Title: "Moj Kruh", CreatedAt: "2024-01-05"})
	require.NoError(t, err)
	assert.Equal(t, "240105-moj-kruh-1", again.ID)

	got, err := e.Get(again.ID)
	require.NoError(t, err)
	assert.Equal(t, "Moj Kruh", got.Title)
}

func TestSeedFallbackAndTombstoneSuppression(t *testing.T) {
	cfg := testConfig(t)
	cfg.SeedPath = filepath.Join(t.TempDir(), "seeds.json")
	seeds := []Record{{ID: "230101-star-recept", Title: "Star Recept", CreatedAt: "2023-01-01", Content: "podedovano besedilo"}}
	data, err := json.Marshal(seeds)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfg.SeedPath, data, 0o644))

	e, err := NewEngine(cfg)
	require.NoError(t, err)

	// Seed participates in reads while no dynamic record exists.
	got, err := e.Get("230101-star-recept")
	require.NoError(t, err)
	assert.Equal(t, "Star Recept", got.Title)
	assert.Equal(t, "podedovano besedilo", got.Content)

	recs, err := e.List()
	require.NoError(t, err)
	require.Len(t, recs, 1)

	// Deleting it tombstones the id; the seed never comes back, even after
	// a restart.
	require.NoError(t, e.Delete("230101-star-recept"))
	_, err = e.Get("230101-star-recept")
	assert.ErrorIs(t, err, ErrNotFound)
	recs, err = e.List()
	require.NoError(t, err)
	assert.Empty(t, recs)

	reopened, err := NewEngine(cfg)
	require.NoError(t, err)
	_, err = reopened.Get("230101-star-recept")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRenamedSeedRetiresOldID(t *testing.T) {
	cfg := testConfig(t)
	cfg.SeedPath = filepath.Join(t.TempDir(), "seeds.json")
	seeds := []Record{{ID: "230101-star-recept", Title: "Star Recept", CreatedAt: "2023-01-01", Content: "podedovano besedilo"}}
	data, err := json.Marshal(seeds)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfg.SeedPath, data, 0o644))

	e, err := NewEngine(cfg)
	require.NoError(t, err)

	res, err := e.Update("230101-star-recept", Input{Title: "Nov Recept", Content: "novo besedilo"})
	require.NoError(t, err)
	assert.True(t, res.IDChanged)
	assert.Equal(t, "230101-nov-recept", res.Record.ID)

	// The seed's old id is retired, not just shadowed: reads miss it and
	// listings carry only the renamed record.
	_, err = e.Get("230101-star-recept")
	assert.ErrorIs(t, err, ErrNotFound)
	recs, err := e.List()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "230101-nov-recept", recs[0].ID)

	reopened, err := NewEngine(cfg)
	require.NoError(t, err)
	_, err = reopened.Get("230101-star-recept")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateFailsWhenIndexUnwritable(t *testing.T) {
	e, _ := newTestEngine(t)

	rec, err := e.Create(Input{Title: "Moj Kruh", CreatedAt: "2024-01-05", Content: "telo"})
	require.NoError(t, err)

	// Swap the index file for a directory so the rewrite cannot land. Blob
	// and asset steps tolerate failure, the index rewrite must not.
	require.NoError(t, os.Remove(e.IndexPath()))
	require.NoError(t, os.Mkdir(e.IndexPath(), 0o755))

	_, err = e.Update(rec.ID, Input{Title: "Nov Kruh", Content: "telo"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "index")
}

func TestLegacyInlineContentMigratesOnRead(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.DataDir, 0o755))

	legacy := []Record{{ID: "240105-moj-kruh", Title: "Moj Kruh", CreatedAt: "2024-01-05", Content: "inline telo"}}
	data, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DataDir, "index.json"), data, 0o644))

	e, err := NewEngine(cfg)
	require.NoError(t, err)

	got, err := e.Get("240105-moj-kruh")
	require.NoError(t, err)
	assert.Equal(t, "inline telo", got.Content)

	// The blob file was materialized and the index no longer carries the
	// body inline.
	assert.FileExists(t, blobPath(cfg, "240105-moj-kruh"))
	raw, err := os.ReadFile(filepath.Join(cfg.DataDir, "index.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "inline telo")
}

func TestListNewestFirst(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Create(Input{Title: "Stari", CreatedAt: "2024-01-05"})
	require.NoError(t, err)
	_, err = e.Create(Input{Title: "Novi", CreatedAt: "2024-03-01"})
	require.NoError(t, err)

	recs, err := e.List()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Novi", recs[0].Title)
}
