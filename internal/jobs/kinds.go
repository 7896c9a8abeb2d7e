package jobs

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"genstudio/internal/domain"
)

// Profile holds the per-kind polling budget and request defaults.
type Profile struct {
	Kind        domain.JobKind
	Interval    time.Duration
	MaxAttempts int
	Defaults    domain.JobRequest
	SeedMax     int64 // random seeds fall in [0, SeedMax)
	MinLength   int
	MaxLength   int
}

// Budget is the longest a poll loop can run for this kind.
func (p Profile) Budget() time.Duration {
	return time.Duration(p.MaxAttempts) * p.Interval
}

const (
	defaultPrompt        = "A cinematic landscape at sunset, ultra-detailed"
	defaultImageNegative = "low quality, blurry, artifacts, watermark, text, logo"
	defaultVideoPrompt   = "A beautiful landscape animation"
	defaultVideoNegative = "censored, blurry, low quality, worst quality"
	defaultManagedModel  = "new_waiIllustriousSDXL_v160.safetensors"
	defaultEngineModel   = "illustrious-unholy-nswf.safetensors"
	imageSeedMax         = int64(1_000_000_000_000)
	engineSeedMax        = int64(1_000_000_000_000_000)
	videoMinLength       = 17
	videoMaxLength       = 129
	videoDefaultLength   = 81
	managedImageAttempts = 60
	engineAttempts       = 120
	videoAttempts        = 60
	managedImageInterval = 5 * time.Second
	engineInterval       = 2 * time.Second
	videoInterval        = 10 * time.Second
)

// DefaultProfiles returns the built-in profile of every kind.
func DefaultProfiles() map[domain.JobKind]Profile {
	return map[domain.JobKind]Profile{
		domain.JobKindImage: {
			Kind:        domain.JobKindImage,
			Interval:    managedImageInterval,
			MaxAttempts: managedImageAttempts,
			SeedMax:     imageSeedMax,
			Defaults: domain.JobRequest{
				Prompt:   defaultPrompt,
				Negative: defaultImageNegative + ", nsfw",
				Model:    defaultManagedModel,
				Steps:    25,
				CFG:      4,
				Width:    1024,
				Height:   1024,
				Batch:    2,
			},
		},
		domain.JobKindComfyUI: {
			Kind:        domain.JobKindComfyUI,
			Interval:    engineInterval,
			MaxAttempts: engineAttempts,
			SeedMax:     engineSeedMax,
			Defaults: domain.JobRequest{
				Prompt:   defaultPrompt,
				Negative: defaultImageNegative,
				Model:    defaultEngineModel,
				Steps:    20,
				CFG:      4,
				Width:    768,
				Height:   768,
				Batch:    4,
			},
		},
		domain.JobKindVideo: {
			Kind:        domain.JobKindVideo,
			Interval:    videoInterval,
			MaxAttempts: videoAttempts,
			SeedMax:     engineSeedMax,
			MinLength:   videoMinLength,
			MaxLength:   videoMaxLength,
			Defaults: domain.JobRequest{
				Prompt:   defaultVideoPrompt,
				Negative: defaultVideoNegative,
				Width:    480,
				Height:   720,
				Length:   videoDefaultLength,
			},
		},
	}
}

// KindOverride is one entry of the profile override file.
type KindOverride struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
	Template    string        `yaml:"template"`
}

type overrideFile struct {
	Kinds map[string]KindOverride `yaml:"kinds"`
}

// LoadOverrides reads a YAML file of per-kind overrides:
//
//	kinds:
//	  image:
//	    interval: 5s
//	    max_attempts: 60
//	    template: storage/imageWorkflow.json
//
// Kind names are matched case-insensitively. An empty path yields no overrides.
func LoadOverrides(path string) (map[domain.JobKind]KindOverride, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jobs: read kinds file: %v: %w", err, domain.ErrConfigMissing)
	}
	var file overrideFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("jobs: parse kinds file: %v: %w", err, domain.ErrConfigMissing)
	}
	fold := cases.Fold()
	out := make(map[domain.JobKind]KindOverride, len(file.Kinds))
	for name, override := range file.Kinds {
		kind := domain.JobKind(fold.String(strings.TrimSpace(name)))
		if !kind.Valid() {
			return nil, fmt.Errorf("jobs: kinds file names unknown kind %q: %w", name, domain.ErrConfigMissing)
		}
		if override.Interval < 0 || override.MaxAttempts < 0 {
			return nil, fmt.Errorf("jobs: kinds file has negative budget for %s: %w", kind, domain.ErrConfigMissing)
		}
		out[kind] = override
	}
	return out, nil
}

// ApplyOverrides returns profiles with non-zero override fields applied.
func ApplyOverrides(profiles map[domain.JobKind]Profile, overrides map[domain.JobKind]KindOverride) map[domain.JobKind]Profile {
	out := make(map[domain.JobKind]Profile, len(profiles))
	for kind, profile := range profiles {
		if o, ok := overrides[kind]; ok {
			if o.Interval > 0 {
				profile.Interval = o.Interval
			}
			if o.MaxAttempts > 0 {
				profile.MaxAttempts = o.MaxAttempts
			}
		}
		out[kind] = profile
	}
	return out
}
