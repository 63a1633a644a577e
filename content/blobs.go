package content

import (
	"fmt"
	"os"
	"path/filepath"
)

// BlobStore keeps one markdown file per entity id, separate from the
// metadata index so the index stays small to scan.
type BlobStore struct {
	dir string
}

// NewBlobStore returns a BlobStore rooted at dir.
func NewBlobStore(dir string) *BlobStore {
	return &BlobStore{dir: dir}
}

func (b *BlobStore) path(id string) string {
	return filepath.Join(b.dir, id+".md")
}

// Exists reports whether a blob file exists for id.
func (b *BlobStore) Exists(id string) bool {
	_, err := os.Stat(b.path(id))
	return err == nil
}

// Read returns the blob for id, or an empty string if no blob file exists.
func (b *BlobStore) Read(id string) (string, error) {
	data, err := os.ReadFile(b.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read blob %s: %w", id, err)
	}
	return string(data), nil
}

// Write stores content as the blob for id.
func (b *BlobStore) Write(id, content string) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}
	if err := os.WriteFile(b.path(id), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write blob %s: %w", id, err)
	}
	return nil
}

// Rename moves the blob from oldID to newID. A pre-existing destination is
// removed first: the uniqueness resolver guarantees new ids are free in the
// index, but a stray file on disk must not block the cascade.
func (b *BlobStore) Rename(oldID, newID string) error {
	dst := b.path(newID)
	if _, err := os.Stat(dst); err == nil {
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("clear blob %s: %w", newID, err)
		}
	}
	if err := os.Rename(b.path(oldID), dst); err != nil {
		return fmt.Errorf("rename blob %s -> %s: %w", oldID, newID, err)
	}
	return nil
}

// Remove deletes the blob for id. A missing file is not an error.
func (b *BlobStore) Remove(id string) error {
	if err := os.Remove(b.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob %s: %w", id, err)
	}
	return nil
}
