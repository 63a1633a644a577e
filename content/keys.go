package content

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// dateLayouts are the accepted createdAt formats, tried in order.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

// Slugify converts a title to a lowercase, hyphen-separated, URL-safe slug.
// Characters that are not word characters, whitespace, or hyphens are
// dropped; runs of whitespace, underscores, and hyphens collapse into a
// single hyphen.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	pending := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
		case r == '-', r == '_', unicode.IsSpace(r):
			pending = true
		}
	}
	return b.String()
}

// ParseDate parses a createdAt value in any accepted layout.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// DeriveID computes the candidate id for a title and creation date:
// yyMMdd of the date, a hyphen, and the slugified title. The result is a
// candidate only — callers must pass it through ResolveID before use.
func DeriveID(title, createdAt string) (string, error) {
	t, err := ParseDate(createdAt)
	if err != nil {
		return "", err
	}
	return t.Format("060102") + "-" + Slugify(title), nil
}

// ResolveID returns the first id derived from candidate that is absent from
// taken, ignoring exclude (the id being replaced during an edit). When the
// candidate itself is taken, an increasing integer suffix is appended to the
// slug part until a free variant is found. The result is deterministic for a
// given candidate and taken set.
func ResolveID(candidate string, taken []string, exclude string) string {
	set := make(map[string]struct{}, len(taken))
	for _, id := range taken {
		if id != exclude {
			set[id] = struct{}{}
		}
	}
	if _, ok := set[candidate]; !ok {
		return candidate
	}
	datePart, slugPart := candidate, ""
	if i := strings.Index(candidate, "-"); i >= 0 {
		datePart, slugPart = candidate[:i], candidate[i+1:]
	}
	for n := 1; ; n++ {
		variant := fmt.Sprintf("%s-%s-%d", datePart, slugPart, n)
		if _, ok := set[variant]; !ok {
			return variant
		}
	}
}
