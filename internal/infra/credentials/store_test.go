package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"genstudio/internal/domain"
)

func writeToken(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write token: %v", err)
	}
	return path
}

func TestLoadReadsAccessToken(t *testing.T) {
	store, err := Load(writeToken(t, `{"access_token":" abc123 "}`), "")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	key, err := store.RunningHubToken()
	if err != nil {
		t.Fatalf("RunningHubToken error: %v", err)
	}
	if key != "abc123" {
		t.Fatalf("expected abc123, got %q", key)
	}
}

func TestLoadOverrideWins(t *testing.T) {
	store, err := Load(filepath.Join(t.TempDir(), "missing.json"), "env-key")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	key, _ := store.RunningHubToken()
	if key != "env-key" {
		t.Fatalf("expected env-key, got %q", key)
	}
}

func TestLoadMissingOrMalformed(t *testing.T) {
	cases := map[string]string{
		"missing":   "",
		"malformed": writeToken(t, `{"access_token":`),
		"empty":     writeToken(t, `{"access_token":""}`),
	}
	for name, path := range cases {
		if path == "" {
			path = filepath.Join(t.TempDir(), "nope.json")
		}
		if _, err := Load(path, ""); !errors.Is(err, domain.ErrConfigMissing) {
			t.Fatalf("%s: expected ErrConfigMissing, got %v", name, err)
		}
	}
}

func TestNilStoreReportsMissing(t *testing.T) {
	var store *Store
	if _, err := store.RunningHubToken(); !errors.Is(err, domain.ErrConfigMissing) {
		t.Fatalf("expected ErrConfigMissing, got %v", err)
	}
}
