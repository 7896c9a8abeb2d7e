package handlers

import (
	"net/http"

	"genstudio/internal/domain"
)

// ListGallery returns every persisted entry, newest first.
func (a *App) ListGallery(w http.ResponseWriter, r *http.Request) {
	entries, err := a.Gallery.List(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.GalleryEntry{}
	}
	a.json(w, http.StatusOK, entries)
}
