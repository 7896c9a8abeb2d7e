package domain

import "time"

// JobKind enumerates supported generation job categories.
type JobKind string

const (
	// JobKindImage renders images on the managed RunningHub service.
	JobKindImage JobKind = "image"
	// JobKindComfyUI renders images on a self-hosted ComfyUI engine.
	JobKindComfyUI JobKind = "comfyui"
	// JobKindVideo renders a video on the managed RunningHub service.
	JobKindVideo JobKind = "video"
)

// JobKinds lists every kind in a stable order.
var JobKinds = []JobKind{JobKindImage, JobKindComfyUI, JobKindVideo}

// Valid reports whether k is a known job kind.
func (k JobKind) Valid() bool {
	switch k {
	case JobKindImage, JobKindComfyUI, JobKindVideo:
		return true
	}
	return false
}

// AssetKind returns the kind of artifact produced by jobs of this kind.
func (k JobKind) AssetKind() AssetKind {
	if k == JobKindVideo {
		return AssetKindVideo
	}
	return AssetKindImage
}

// JobState enumerates job lifecycle states as observed by the poller.
type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
	JobStateTimedOut  JobState = "timed_out"
)

// Terminal reports whether polling must stop once s is reached.
func (s JobState) Terminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed || s == JobStateTimedOut
}

// Job is the runtime instance of one submitted generation. It lives only as
// long as the request that created it.
type Job struct {
	ID        string
	Kind      JobKind
	State     JobState
	CreatedAt time.Time
}

// ResultPointer is what a backend hands back on success: either a manifest
// URL that lists the produced assets, or the asset locations themselves.
type ResultPointer struct {
	ManifestURL string
	Assets      []RemoteAsset
}

// Empty reports whether the pointer carries nothing to resolve.
func (p ResultPointer) Empty() bool {
	return p.ManifestURL == "" && len(p.Assets) == 0
}

// RemoteAsset is a concrete asset location on the backend.
type RemoteAsset struct {
	URL      string
	Filename string
}

// JobStatus is the outcome of a single status query.
type JobStatus struct {
	State   JobState
	Result  ResultPointer
	Message string
}
