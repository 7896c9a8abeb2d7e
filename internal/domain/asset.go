package domain

import "time"

// AssetKind enumerates asset types.
type AssetKind string

const (
	AssetKindImage AssetKind = "image"
	AssetKindVideo AssetKind = "video"
)

// AssetRef is a resolved asset reference: a remote URL or a locally served
// path once the asset has been re-hosted.
type AssetRef struct {
	URL      string `json:"url"`
	Local    bool   `json:"local,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// GalleryCap bounds the number of gallery entries kept.
const GalleryCap = 200

// GalleryEntry is one persisted artifact with its generation metadata. The
// JSON shape matches the gallery document the web UI reads.
type GalleryEntry struct {
	File      string    `json:"file"`
	Type      AssetKind `json:"type,omitempty"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	TaskID    string    `json:"taskId,omitempty"`
	Prompt    string    `json:"prompt"`
	Negative  string    `json:"negative"`
	Model     string    `json:"model,omitempty"`
	Seed      int64     `json:"seed"`
	Steps     int       `json:"steps,omitempty"`
	CFG       float64   `json:"cfg,omitempty"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Batch     int       `json:"batch,omitempty"`
	Length    int       `json:"length,omitempty"`
}
