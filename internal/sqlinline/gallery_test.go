package sqlinline

import (
	"regexp"
	"strings"
	"testing"
)

var markerPattern = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestGalleryQueriesCarryUniqueMarkers(t *testing.T) {
	queries := map[string]string{
		"QCreateGalleryTable": QCreateGalleryTable,
		"QAppendGallery":      QAppendGallery,
		"QListGallery":        QListGallery,
	}
	seen := map[string]string{}
	for name, query := range queries {
		first := strings.SplitN(query, "\n", 2)[0]
		if !markerPattern.MatchString(first) {
			t.Fatalf("%s: first line %q is not a sql marker", name, first)
		}
		if other, dup := seen[first]; dup {
			t.Fatalf("%s reuses marker of %s", name, other)
		}
		seen[first] = name
	}
}
