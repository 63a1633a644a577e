package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Index is the authoritative metadata list for one entity type, persisted
// as a single JSON file. Callers go through the narrow get/put/delete API;
// the whole-file representation never leaves this type.
//
// A missing file is first-run state and reads as empty. A file that exists
// but cannot be parsed is a configuration error and is never silently
// replaced.
type Index struct {
	path string
	mu   sync.RWMutex
}

// NewIndex returns an Index backed by the JSON file at path.
func NewIndex(path string) *Index {
	return &Index{path: path}
}

// Path returns the index file location, e.g. for change watchers.
func (ix *Index) Path() string {
	return ix.path
}

func (ix *Index) load() ([]Record, error) {
	data, err := os.ReadFile(ix.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read index %s: %w", ix.path, err)
	}
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse index %s: %w", ix.path, err)
	}
	return recs, nil
}

func (ix *Index) save(recs []Record) error {
	if err := os.MkdirAll(filepath.Dir(ix.path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(ix.path, data, 0o644); err != nil {
		return fmt.Errorf("write index %s: %w", ix.path, err)
	}
	return nil
}

// List returns every record in the index.
func (ix *Index) List() ([]Record, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.load()
}

// IDs returns the set of ids present in the index.
func (ix *Index) IDs() ([]string, error) {
	recs, err := ix.List()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids, nil
}

// Get returns the record with the given id, or ErrNotFound.
func (ix *Index) Get(id string) (Record, error) {
	recs, err := ix.List()
	if err != nil {
		return Record{}, err
	}
	for _, r := range recs {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

// Put inserts rec, replacing any existing record with the same id.
func (ix *Index) Put(rec Record) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	recs, err := ix.load()
	if err != nil {
		return err
	}
	replaced := false
	for i, r := range recs {
		if r.ID == rec.ID {
			recs[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		recs = append(recs, rec)
	}
	return ix.save(recs)
}

// Replace removes the record keyed by oldID and appends rec in a single
// write. This is the cascade's commit step: the old key and the new one
// never coexist in the file.
func (ix *Index) Replace(oldID string, rec Record) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	recs, err := ix.load()
	if err != nil {
		return err
	}
	kept := recs[:0]
	for _, r := range recs {
		if r.ID != oldID {
			kept = append(kept, r)
		}
	}
	kept = append(kept, rec)
	return ix.save(kept)
}

// Delete removes the record with the given id, or returns ErrNotFound.
func (ix *Index) Delete(id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	recs, err := ix.load()
	if err != nil {
		return err
	}
	kept := recs[:0]
	found := false
	for _, r := range recs {
		if r.ID == id {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return ErrNotFound
	}
	return ix.save(kept)
}
