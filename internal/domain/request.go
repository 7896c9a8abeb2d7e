package domain

// JobRequest carries normalized generation parameters. Handlers fill defaults
// and clamp ranges per kind before a request reaches the orchestrator.
type JobRequest struct {
	Prompt   string
	Negative string
	Model    string
	Steps    int
	CFG      float64
	Width    int
	Height   int
	Batch    int
	Length   int
	Seed     int64
}

// Entry builds the gallery entry recorded for one produced asset.
func (r JobRequest) Entry(kind JobKind, asset AssetRef) GalleryEntry {
	entry := GalleryEntry{
		File:     asset.URL,
		Prompt:   r.Prompt,
		Negative: r.Negative,
		Seed:     r.Seed,
		Width:    r.Width,
		Height:   r.Height,
	}
	switch kind {
	case JobKindVideo:
		entry.Type = AssetKindVideo
		entry.Length = r.Length
	case JobKindComfyUI:
		entry.Source = string(JobKindComfyUI)
		fallthrough
	default:
		entry.Type = AssetKindImage
		entry.Model = r.Model
		entry.Steps = r.Steps
		entry.CFG = r.CFG
		entry.Batch = r.Batch
	}
	return entry
}
