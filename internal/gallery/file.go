package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"genstudio/internal/domain"
	"genstudio/internal/storage"
)

// FileStore keeps the gallery as one JSON document. A mutex serializes the
// read-modify-write and every write replaces the file atomically.
type FileStore struct {
	mu     sync.Mutex
	files  *storage.FileStore
	key    string
	limit  int
	logger zerolog.Logger
}

// NewFileStore opens the gallery document at path, creating its directory.
func NewFileStore(path string, logger *zerolog.Logger) (*FileStore, error) {
	files, err := storage.NewFileStore(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("gallery: %w", err)
	}
	lg := zerolog.Nop()
	if logger != nil {
		lg = *logger
	}
	return &FileStore{files: files, key: filepath.Base(path), limit: domain.GalleryCap, logger: lg}, nil
}

// Append prepends entries and truncates the document to the cap.
func (s *FileStore) Append(ctx context.Context, entries []domain.GalleryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.read(ctx)
	next := merge(entries, current, s.limit)
	raw, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("gallery: encode: %w", err)
	}
	if _, err := s.files.Write(ctx, s.key, raw); err != nil {
		return fmt.Errorf("gallery: write: %w", err)
	}
	return nil
}

// List returns the entries newest-first. An unreadable document reads as
// empty.
func (s *FileStore) List(ctx context.Context) ([]domain.GalleryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx), nil
}

func (s *FileStore) read(ctx context.Context) []domain.GalleryEntry {
	raw, err := s.files.Read(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Str("file", s.key).Msg("gallery: read failed; treating as empty")
		}
		return []domain.GalleryEntry{}
	}
	var entries []domain.GalleryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Warn().Err(err).Str("file", s.key).Msg("gallery: document unreadable; treating as empty")
		return []domain.GalleryEntry{}
	}
	if entries == nil {
		entries = []domain.GalleryEntry{}
	}
	return entries
}
