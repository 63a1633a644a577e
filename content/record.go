// Package content implements the identity and storage engine behind the
// site's editable entities (posts, recipes, …). Each entity is split across
// three surfaces: a JSON metadata index, a per-id markdown blob, and image
// files whose names carry the owning id as a prefix. The id itself is
// derived from the title and creation date (yyMMdd-slug), so title and date
// edits trigger a rename cascade across all three surfaces.
package content

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("content: not found")

// MinTitleLen is the minimum accepted title length.
const MinTitleLen = 3

// ValidationError describes a rejected field. It is reported before any
// store is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("content: invalid %s: %s", e.Field, e.Reason)
}

// ValidateTitle rejects titles that are too short or that slugify to
// nothing (punctuation- or emoji-only titles), since the id is derived from
// the slug.
func ValidateTitle(title string) error {
	if len(title) < MinTitleLen {
		return &ValidationError{Field: "title", Reason: fmt.Sprintf("must be at least %d characters", MinTitleLen)}
	}
	if Slugify(title) == "" {
		return &ValidationError{Field: "title", Reason: "must contain at least one letter or digit"}
	}
	return nil
}

// Record is one entity's metadata as stored in the index. The Content field
// is the legacy inline body shape: current records keep the body in a
// separate blob file and leave Content empty, but old index files may still
// carry it, in which case the engine migrates it to a blob on first read.
type Record struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Excerpt   string            `json:"excerpt,omitempty"`
	MainImage string            `json:"mainImage,omitempty"`
	Gallery   []string          `json:"gallery,omitempty"`
	Tags      []string          `json:"tags,omitempty"`
	CreatedAt string            `json:"createdAt"`
	UpdatedAt string            `json:"updatedAt,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Content   string            `json:"content,omitempty"`
}
