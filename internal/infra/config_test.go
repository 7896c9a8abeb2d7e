package infra

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaultsUnderStoragePath(t *testing.T) {
	t.Setenv("STORAGE_PATH", "/data")
	t.Setenv("PORT", "")
	t.Setenv("GALLERY_FILE", "")
	t.Setenv("TOKEN_FILE", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q want %q", cfg.Port, "8080")
	}
	if want := filepath.Join("/data", "gallery.json"); cfg.GalleryFile != want {
		t.Fatalf("GalleryFile mismatch: got %q want %q", cfg.GalleryFile, want)
	}
	if want := filepath.Join("/data", "token.json"); cfg.TokenFile != want {
		t.Fatalf("TokenFile mismatch: got %q want %q", cfg.TokenFile, want)
	}
	if want := filepath.Join("/data", "generated"); cfg.GeneratedDir != want {
		t.Fatalf("GeneratedDir mismatch: got %q want %q", cfg.GeneratedDir, want)
	}
}

func TestLoadConfigHonorsExplicitFiles(t *testing.T) {
	t.Setenv("STORAGE_PATH", "/data")
	t.Setenv("GALLERY_FILE", "/var/lib/gallery.json")
	t.Setenv("HTTP_WRITE_TIMEOUT_SECONDS", "90")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GalleryFile != "/var/lib/gallery.json" {
		t.Fatalf("GalleryFile mismatch: got %q", cfg.GalleryFile)
	}
	if cfg.HTTPWriteTimeout != 90*time.Second {
		t.Fatalf("HTTPWriteTimeout mismatch: got %s", cfg.HTTPWriteTimeout)
	}
	expected := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.CORSOrigins) != len(expected) {
		t.Fatalf("CORSOrigins mismatch: got %#v want %#v", cfg.CORSOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.CORSOrigins[i] != origin {
			t.Fatalf("CORSOrigins[%d] = %q, want %q", i, cfg.CORSOrigins[i], origin)
		}
	}
}

func TestLoadConfigRejectsNonNumericPort(t *testing.T) {
	t.Setenv("PORT", "http")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}
