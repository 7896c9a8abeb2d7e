package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
	"genstudio/internal/sqlinline"
)

// PGStore keeps gallery entries in PostgreSQL, one row per entry ordered by
// a serial column.
type PGStore struct {
	mu    sync.Mutex
	sql   infra.SQLExecutor
	limit int
}

// NewPGStore wraps sql. Call EnsureSchema once before use.
func NewPGStore(sql infra.SQLExecutor) *PGStore {
	return &PGStore{sql: sql, limit: domain.GalleryCap}
}

// EnsureSchema creates the gallery table when missing.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.sql.Exec(ctx, sqlinline.QCreateGalleryTable); err != nil {
		return fmt.Errorf("gallery: create table: %w", err)
	}
	return nil
}

// Append writes the batch so that entries[0] becomes the newest row and trims
// the table to the cap. The batch and the trim run as a single statement, so
// either every entry lands or none does.
func (s *PGStore) Append(ctx context.Context, entries []domain.GalleryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if len(entries) > s.limit {
		entries = entries[:s.limit]
	}
	n := len(entries)
	kinds := make([]string, n)
	docs := make([]string, n)
	created := make([]time.Time, n)
	for i, e := range entries {
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("gallery: encode entry: %w", err)
		}
		kind := e.Type
		if kind == "" {
			kind = domain.AssetKindImage
		}
		at := e.CreatedAt
		if at.IsZero() {
			at = time.Now().UTC()
		}
		j := n - 1 - i
		kinds[j], docs[j], created[j] = string(kind), string(raw), at
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.sql.Exec(ctx, sqlinline.QAppendGallery, kinds, docs, created, s.limit); err != nil {
		return fmt.Errorf("gallery: append batch: %w", err)
	}
	return nil
}

// List returns up to the cap entries, newest-first.
func (s *PGStore) List(ctx context.Context) ([]domain.GalleryEntry, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QListGallery, s.limit)
	if err != nil {
		return nil, fmt.Errorf("gallery: list: %w", err)
	}
	defer rows.Close()

	entries := []domain.GalleryEntry{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("gallery: scan: %w", err)
		}
		var e domain.GalleryEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("gallery: decode entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("gallery: rows: %w", err)
	}
	return entries, nil
}
