package jobs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genstudio/internal/domain"
)

func TestDefaultProfiles(t *testing.T) {
	profiles := DefaultProfiles()

	tests := []struct {
		kind     domain.JobKind
		interval time.Duration
		attempts int
		seedMax  int64
	}{
		{domain.JobKindImage, 5 * time.Second, 60, 1e12},
		{domain.JobKindComfyUI, 2 * time.Second, 120, 1e15},
		{domain.JobKindVideo, 10 * time.Second, 60, 1e15},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			p, ok := profiles[tt.kind]
			require.True(t, ok)
			assert.Equal(t, tt.kind, p.Kind)
			assert.Equal(t, tt.interval, p.Interval)
			assert.Equal(t, tt.attempts, p.MaxAttempts)
			assert.Equal(t, tt.seedMax, p.SeedMax)
			assert.Equal(t, time.Duration(tt.attempts)*tt.interval, p.Budget())
		})
	}
	assert.Equal(t, 81, profiles[domain.JobKindVideo].Defaults.Length)
	assert.Contains(t, profiles[domain.JobKindImage].Defaults.Negative, "nsfw")
	assert.NotContains(t, profiles[domain.JobKindComfyUI].Defaults.Negative, "nsfw")
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kinds.yaml")
	content := `
kinds:
  ComfyUI:
    interval: 500ms
    max_attempts: 10
    template: /etc/genstudio/comfyui.json
  video:
    max_attempts: 90
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	overrides, err := LoadOverrides(path)
	require.NoError(t, err)
	require.Len(t, overrides, 2)
	assert.Equal(t, 500*time.Millisecond, overrides[domain.JobKindComfyUI].Interval)
	assert.Equal(t, "/etc/genstudio/comfyui.json", overrides[domain.JobKindComfyUI].Template)

	profiles := ApplyOverrides(DefaultProfiles(), overrides)
	assert.Equal(t, 500*time.Millisecond, profiles[domain.JobKindComfyUI].Interval)
	assert.Equal(t, 10, profiles[domain.JobKindComfyUI].MaxAttempts)
	assert.Equal(t, 10*time.Second, profiles[domain.JobKindVideo].Interval)
	assert.Equal(t, 90, profiles[domain.JobKindVideo].MaxAttempts)
	assert.Equal(t, 60, profiles[domain.JobKindImage].MaxAttempts)
}

func TestLoadOverridesErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown kind", content: "kinds:\n  audio:\n    max_attempts: 3\n"},
		{name: "negative attempts", content: "kinds:\n  image:\n    max_attempts: -1\n"},
		{name: "bad yaml", content: "kinds: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "kinds.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := LoadOverrides(path)
			assert.ErrorIs(t, err, domain.ErrConfigMissing)
		})
	}

	overrides, err := LoadOverrides("")
	assert.NoError(t, err)
	assert.Nil(t, overrides)
}
