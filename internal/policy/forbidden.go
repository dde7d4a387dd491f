// ABOUTME: Forbidden key scanning for configuration documents
// ABOUTME: Rejects work-dispatch shaped keys anywhere in a nested document

package policy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bootgate/bootgate/internal/store"
)

// forbiddenKeys are key names that would turn a configuration document into a
// work-dispatch channel. Matching is case-insensitive on the key name alone;
// values are never inspected.
var forbiddenKeys = map[string]struct{}{
	"tasks":      {},
	"jobs":       {},
	"work_items": {},
	"payloads":   {},
	"deploy":     {},
	"scale":      {},
	"provision":  {},
	"execute":    {},
}

// ForbiddenKeyError reports every offending key path found in a document.
type ForbiddenKeyError struct {
	Paths []string
}

func (e *ForbiddenKeyError) Error() string {
	return fmt.Sprintf("forbidden keys in configuration: %s", strings.Join(e.Paths, ", "))
}

// IsForbidden reports whether a single key name is on the denylist.
func IsForbidden(key string) bool {
	_, ok := forbiddenKeys[strings.ToLower(key)]
	return ok
}

// Scan walks a document tree and returns the dotted paths of every forbidden
// key, sorted. Maps nested inside arrays are walked too; the array index does
// not appear in the path. A nil document scans clean.
func Scan(doc store.Doc) []string {
	var paths []string
	scanValue(doc, "", &paths)
	sort.Strings(paths)
	return paths
}

// Check runs Scan and wraps any findings in a ForbiddenKeyError.
func Check(doc store.Doc) error {
	if paths := Scan(doc); len(paths) > 0 {
		return &ForbiddenKeyError{Paths: paths}
	}
	return nil
}

func scanValue(v any, prefix string, paths *[]string) {
	switch val := v.(type) {
	case map[string]any:
		for key, child := range val {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			if IsForbidden(key) {
				*paths = append(*paths, path)
			}
			scanValue(child, path, paths)
		}
	case []any:
		for _, item := range val {
			scanValue(item, prefix, paths)
		}
	}
}
