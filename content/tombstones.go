package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Tombstones is the persisted set of deleted ids. Once an id is tombstoned
// it stays excluded from every read path, which is what stops a same-id
// seed record from resurrecting after its dynamic counterpart is deleted.
type Tombstones struct {
	path string
	mu   sync.Mutex
	ids  map[string]struct{}
}

// NewTombstones loads the tombstone file at path. A missing file means no
// deletions yet; a malformed one is a configuration error.
func NewTombstones(path string) (*Tombstones, error) {
	t := &Tombstones{path: path, ids: make(map[string]struct{})}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("read tombstones %s: %w", path, err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("parse tombstones %s: %w", path, err)
	}
	for _, id := range ids {
		t.ids[id] = struct{}{}
	}
	return t, nil
}

// Contains reports whether id has been deleted.
func (t *Tombstones) Contains(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.ids[id]
	return ok
}

// IDs returns every tombstoned id. The uniqueness resolver treats these as
// taken so a new entity can never be created under a deleted id.
func (t *Tombstones) IDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.ids))
	for id := range t.ids {
		ids = append(ids, id)
	}
	return ids
}

// Add records id as deleted and persists the set immediately.
func (t *Tombstones) Add(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ids[id] = struct{}{}
	ids := make([]string, 0, len(t.ids))
	for v := range t.ids {
		ids = append(ids, v)
	}
	sort.Strings(ids)
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("create tombstone dir: %w", err)
	}
	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(t.path, data, 0o644); err != nil {
		return fmt.Errorf("write tombstones %s: %w", t.path, err)
	}
	return nil
}
