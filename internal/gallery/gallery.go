// Package gallery keeps the bounded, newest-first log of produced assets.
package gallery

import (
	"context"

	"genstudio/internal/domain"
)

// Store is the gallery persistence contract. Append must be atomic with
// respect to concurrent appends.
type Store interface {
	Append(ctx context.Context, entries []domain.GalleryEntry) error
	List(ctx context.Context) ([]domain.GalleryEntry, error)
}

// merge puts the batch at the head in its given order, followed by the
// existing entries, truncated to limit.
func merge(batch, existing []domain.GalleryEntry, limit int) []domain.GalleryEntry {
	out := make([]domain.GalleryEntry, 0, min(len(batch)+len(existing), limit))
	for _, group := range [][]domain.GalleryEntry{batch, existing} {
		for _, e := range group {
			if len(out) == limit {
				return out
			}
			out = append(out, e)
		}
	}
	return out
}
