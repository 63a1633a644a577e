package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Config locates one entity type's storage surfaces.
type Config struct {
	DataDir     string // holds index.json, content/, deleted.json
	AssetDir    string // physical image directory
	AssetPrefix string // web path prefix for stored images
	SeedPath    string // optional read-only legacy seed JSON
}

// Upload is a processed image ready to be stored.
type Upload struct {
	Name string
	Data []byte
}

// Input carries the editable fields of a create or update request. For
// updates, ReconcileGallery with KeepGallery reflects client-side gallery
// reordering and removal; new GalleryUploads are appended after the kept
// paths in order.
type Input struct {
	Title     string
	Excerpt   string
	CreatedAt string
	Content   string
	Tags      []string
	Fields    map[string]string

	MainUpload       *Upload
	GalleryUploads   []Upload
	ReconcileGallery bool
	KeepGallery      []string
}

// UpdateResult reports the outcome of an update. IDChanged tells the caller
// the entity moved to a new canonical id so it can redirect.
type UpdateResult struct {
	Record    Record
	IDChanged bool
	PrevID    string
}

// Engine coordinates the metadata index, the content blobs, and the asset
// files for one entity type, including the rename cascade triggered by
// title or date edits. It assumes a single concurrent writer; the cascade
// is sequential and not atomic across the three surfaces — a crash mid-way
// can leave a stale reference, an accepted risk for a single-admin tool —
// but the index write always comes last and is the only fatal step.
type Engine struct {
	index  *Index
	blobs  *BlobStore
	assets *AssetStore
	tombs  *Tombstones
	seeds  []Record
}

// NewEngine opens the stores for one entity type, creating directories as
// needed and loading tombstones and seed records.
func NewEngine(cfg Config) (*Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	tombs, err := NewTombstones(filepath.Join(cfg.DataDir, "deleted.json"))
	if err != nil {
		return nil, err
	}
	seeds, err := loadSeeds(cfg.SeedPath)
	if err != nil {
		return nil, err
	}
	return &Engine{
		index:  NewIndex(filepath.Join(cfg.DataDir, "index.json")),
		blobs:  NewBlobStore(filepath.Join(cfg.DataDir, "content")),
		assets: NewAssetStore(cfg.AssetDir, cfg.AssetPrefix),
		tombs:  tombs,
		seeds:  seeds,
	}, nil
}

func loadSeeds(path string) ([]Record, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read seeds %s: %w", path, err)
	}
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse seeds %s: %w", path, err)
	}
	return recs, nil
}

// IndexPath returns the location of the metadata index file, for change
// watchers.
func (e *Engine) IndexPath() string {
	return e.index.Path()
}

// takenIDs is the collision set for the uniqueness resolver: everything in
// the index plus every tombstoned id (a deleted id must never be reissued,
// or the tombstone would hide the new entity).
func (e *Engine) takenIDs() ([]string, error) {
	ids, err := e.index.IDs()
	if err != nil {
		return nil, err
	}
	return append(ids, e.tombs.IDs()...), nil
}

// current returns the live record for id: the index entry when present,
// otherwise a matching seed record. Tombstoned ids are gone for good.
func (e *Engine) current(id string) (Record, error) {
	if e.tombs.Contains(id) {
		return Record{}, ErrNotFound
	}
	rec, err := e.index.Get(id)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}
	for _, s := range e.seeds {
		if s.ID == id {
			return s, nil
		}
	}
	return Record{}, ErrNotFound
}

// withContent fills rec.Content from the blob store. Records that still
// carry a legacy inline body get their blob materialized here, on first
// read, so historical data migrates lazily without a batch job.
func (e *Engine) withContent(rec Record, inIndex bool) Record {
	if rec.Content != "" && !e.blobs.Exists(rec.ID) {
		if err := e.blobs.Write(rec.ID, rec.Content); err != nil {
			log.Printf("content: migrate inline body for %s: %v", rec.ID, err)
			return rec
		}
		if inIndex {
			migrated := rec
			migrated.Content = ""
			if err := e.index.Put(migrated); err != nil {
				log.Printf("content: clear inline body for %s: %v", rec.ID, err)
			}
		}
	}
	body, err := e.blobs.Read(rec.ID)
	if err != nil {
		log.Printf("content: read blob for %s: %v", rec.ID, err)
		return rec
	}
	if body != "" || rec.Content == "" {
		rec.Content = body
	}
	return rec
}

// Get returns the entity with the given id, body included.
func (e *Engine) Get(id string) (Record, error) {
	rec, err := e.current(id)
	if err != nil {
		return Record{}, err
	}
	_, inIndex := e.indexHas(id)
	return e.withContent(rec, inIndex), nil
}

func (e *Engine) indexHas(id string) (Record, bool) {
	rec, err := e.index.Get(id)
	return rec, err == nil
}

// List returns every visible entity: dynamic records plus seed records that
// have no dynamic counterpart, minus tombstoned ids, newest first.
func (e *Engine) List() ([]Record, error) {
	recs, err := e.index.List()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(recs))
	out := make([]Record, 0, len(recs)+len(e.seeds))
	for _, r := range recs {
		if e.tombs.Contains(r.ID) {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, e.withContent(r, true))
	}
	for _, s := range e.seeds {
		if _, ok := seen[s.ID]; ok || e.tombs.Contains(s.ID) {
			continue
		}
		out = append(out, e.withContent(s, false))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Create makes a new entity from in. The id is derived from the title and
// creation date and disambiguated against the index and tombstones.
func (e *Engine) Create(in Input) (Record, error) {
	if err := ValidateTitle(in.Title); err != nil {
		return Record{}, err
	}
	created := in.CreatedAt
	if created == "" {
		created = time.Now().Format("2006-01-02")
	}
	candidate, err := DeriveID(in.Title, created)
	if err != nil {
		return Record{}, &ValidationError{Field: "createdAt", Reason: err.Error()}
	}
	taken, err := e.takenIDs()
	if err != nil {
		return Record{}, err
	}
	id := ResolveID(candidate, taken, "")

	rec := Record{
		ID:        id,
		Title:     in.Title,
		Excerpt:   in.Excerpt,
		Tags:      in.Tags,
		CreatedAt: created,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Fields:    in.Fields,
	}
	if in.MainUpload != nil {
		p, err := e.assets.SaveMain(id, in.MainUpload.Name, in.MainUpload.Data)
		if err != nil {
			return Record{}, err
		}
		rec.MainImage = p
	}
	if len(in.GalleryUploads) > 0 {
		ts := time.Now().Unix()
		for n, up := range in.GalleryUploads {
			p, err := e.assets.SaveGallery(id, ts, n, up.Name, up.Data)
			if err != nil {
				return Record{}, err
			}
			rec.Gallery = append(rec.Gallery, p)
		}
	}
	if err := e.blobs.Write(id, in.Content); err != nil {
		return Record{}, err
	}
	if err := e.index.Put(rec); err != nil {
		return Record{}, err
	}
	rec.Content = in.Content
	return rec, nil
}

// Update edits the entity with the given id. A title or date change
// recomputes the id and drives the rename cascade: content blob first, then
// assets, then the index rewrite. Blob and asset rename failures are logged
// and leave stale references; only an index write failure fails the
// operation.
func (e *Engine) Update(id string, in Input) (UpdateResult, error) {
	cur, err := e.current(id)
	if err != nil {
		return UpdateResult{}, err
	}
	_, inIndex := e.indexHas(cur.ID)
	if err := ValidateTitle(in.Title); err != nil {
		return UpdateResult{}, err
	}
	created := in.CreatedAt
	if created == "" {
		created = cur.CreatedAt
	}

	newID := cur.ID
	if in.Title != cur.Title || created != cur.CreatedAt {
		candidate, err := DeriveID(in.Title, created)
		if err != nil {
			return UpdateResult{}, &ValidationError{Field: "createdAt", Reason: err.Error()}
		}
		taken, err := e.takenIDs()
		if err != nil {
			return UpdateResult{}, err
		}
		newID = ResolveID(candidate, taken, cur.ID)
	}
	changed := newID != cur.ID

	if changed {
		if err := e.blobs.Rename(cur.ID, newID); err != nil {
			log.Printf("content: %v", err)
		}
	}
	if err := e.blobs.Write(newID, in.Content); err != nil {
		return UpdateResult{}, err
	}

	main := cur.MainImage
	if changed {
		main = e.assets.RenameMain(cur.ID, newID, main)
	}
	if in.MainUpload != nil {
		if main != "" {
			e.assets.Remove(main)
		}
		p, err := e.assets.SaveMain(newID, in.MainUpload.Name, in.MainUpload.Data)
		if err != nil {
			return UpdateResult{}, err
		}
		main = p
	}

	keep := cur.Gallery
	if in.ReconcileGallery {
		keep = in.KeepGallery
		kept := make(map[string]struct{}, len(keep))
		for _, p := range keep {
			kept[p] = struct{}{}
		}
		for _, p := range cur.Gallery {
			if _, ok := kept[p]; !ok {
				e.assets.Remove(p)
			}
		}
	}
	if changed {
		keep = e.assets.RenameGallery(cur.ID, newID, keep)
	}
	gallery := append([]string(nil), keep...)
	if len(in.GalleryUploads) > 0 {
		ts := time.Now().Unix()
		for n, up := range in.GalleryUploads {
			p, err := e.assets.SaveGallery(newID, ts, n, up.Name, up.Data)
			if err != nil {
				return UpdateResult{}, err
			}
			gallery = append(gallery, p)
		}
	}

	fields := in.Fields
	if fields == nil {
		fields = cur.Fields
	}
	rec := Record{
		ID:        newID,
		Title:     in.Title,
		Excerpt:   in.Excerpt,
		MainImage: main,
		Gallery:   gallery,
		Tags:      in.Tags,
		CreatedAt: created,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Fields:    fields,
	}

	// The index rewrite is the commit: the single source of truth must not
	// silently diverge, so this error surfaces to the caller.
	if changed {
		err = e.index.Replace(cur.ID, rec)
	} else {
		err = e.index.Put(rec)
	}
	if err != nil {
		return UpdateResult{}, err
	}
	// A renamed seed-origin record leaves nothing in the index under the old
	// id, so Replace alone cannot retire it. Tombstone the old id or the
	// seed copy keeps resurfacing next to the renamed entity.
	if changed && !inIndex {
		if err := e.tombs.Add(cur.ID); err != nil {
			return UpdateResult{}, err
		}
	}
	rec.Content = in.Content
	return UpdateResult{Record: rec, IDChanged: changed, PrevID: cur.ID}, nil
}

// Delete removes the entity with the given id: index entry out first, then
// best-effort blob and asset unlinks, then the tombstone. Unlink failures
// never block tombstoning — the tombstone is what controls visibility.
func (e *Engine) Delete(id string) error {
	cur, err := e.current(id)
	if err != nil {
		return err
	}
	if err := e.index.Delete(id); err != nil && !errors.Is(err, ErrNotFound) {
		log.Printf("content: delete index entry %s: %v", id, err)
	}
	if err := e.blobs.Remove(id); err != nil {
		log.Printf("content: %v", err)
	}
	e.assets.Remove(cur.MainImage)
	for _, p := range cur.Gallery {
		e.assets.Remove(p)
	}
	return e.tombs.Add(id)
}
