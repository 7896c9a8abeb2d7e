package handlers

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"genstudio/internal/storage"

	"github.com/go-chi/chi/v5"
)

var assetContentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
}

// ServeAsset serves a re-hosted file by name.
func (a *App) ServeAsset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		a.error(w, http.StatusNotFound, "Image not found")
		return
	}
	data, err := a.Assets.Read(r.Context(), name)
	if errors.Is(err, storage.ErrNotFound) {
		a.error(w, http.StatusNotFound, "Image not found")
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	contentType, ok := assetContentTypes[strings.ToLower(path.Ext(name))]
	if !ok {
		contentType = "image/webp"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
