package content

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// AssetStore manages image files whose filenames embed the owning entity's
// id. The prefix convention is the only linkage between an asset and its
// entity — there is no foreign key — so renames must follow it precisely.
//
// Files live in dir and are referenced by web paths under urlPrefix, e.g.
// dir "public/uploads/posts" and urlPrefix "/public/uploads/posts".
type AssetStore struct {
	dir       string
	urlPrefix string
}

// NewAssetStore returns an AssetStore writing to dir and producing web
// paths under urlPrefix.
func NewAssetStore(dir, urlPrefix string) *AssetStore {
	return &AssetStore{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}
}

func (a *AssetStore) webPath(filename string) string {
	return a.urlPrefix + "/" + filename
}

// filename extracts the file name from a stored web path, or "" when the
// path is not under this store's prefix (externally hosted assets).
func (a *AssetStore) filename(p string) string {
	if !strings.HasPrefix(p, a.urlPrefix+"/") {
		return ""
	}
	return path.Base(p)
}

func (a *AssetStore) write(filename string, data []byte) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create asset dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(a.dir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("write asset %s: %w", filename, err)
	}
	return a.webPath(filename), nil
}

// SaveMain stores data as the main image for id and returns its web path.
func (a *AssetStore) SaveMain(id, name string, data []byte) (string, error) {
	return a.write(id+"-"+name, data)
}

// SaveGallery stores data as gallery entry n for id, stamped with ts so
// repeated uploads of the same file never collide, and returns its web path.
func (a *AssetStore) SaveGallery(id string, ts int64, n int, name string, data []byte) (string, error) {
	return a.write(fmt.Sprintf("%s-gallery-%d-%d-%s", id, ts, n, name), data)
}

// rename moves a single asset from the oldID prefix to the newID prefix.
// Paths that do not carry the oldID prefix are passed through untouched:
// not every referenced asset is locally owned. A missing source file is
// logged and the original path returned — a stale reference is preferable
// to failing the whole cascade.
func (a *AssetStore) rename(oldID, newID, p string) string {
	name := a.filename(p)
	if name == "" || !strings.HasPrefix(name, oldID+"-") {
		return p
	}
	newName := newID + strings.TrimPrefix(name, oldID)
	if err := os.Rename(filepath.Join(a.dir, name), filepath.Join(a.dir, newName)); err != nil {
		log.Printf("content: rename asset %s -> %s: %v", name, newName, err)
		return p
	}
	return a.webPath(newName)
}

// RenameMain moves the main image path from oldID to newID ownership.
func (a *AssetStore) RenameMain(oldID, newID, p string) string {
	if p == "" {
		return ""
	}
	return a.rename(oldID, newID, p)
}

// RenameGallery moves each gallery path from oldID to newID ownership,
// preserving order.
func (a *AssetStore) RenameGallery(oldID, newID string, paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = a.rename(oldID, newID, p)
	}
	return out
}

// Remove unlinks the file behind a stored web path. External paths and
// already-missing files are ignored.
func (a *AssetStore) Remove(p string) {
	name := a.filename(p)
	if name == "" {
		return
	}
	if err := os.Remove(filepath.Join(a.dir, name)); err != nil && !os.IsNotExist(err) {
		log.Printf("content: remove asset %s: %v", name, err)
	}
}
