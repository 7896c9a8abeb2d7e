package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genstudio/internal/domain"
	"genstudio/internal/sqlinline"
)

type galleryRow struct {
	seq   int64
	kind  string
	entry []byte
}

// memoryExecutor emulates the gallery statements against an in-memory table.
type memoryExecutor struct {
	next    int64
	rows    []galleryRow
	queries []string
	failOn  string
}

func (m *memoryExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	m.queries = append(m.queries, query)
	if m.failOn != "" && query == m.failOn {
		return pgconn.CommandTag{}, errors.New("boom")
	}
	switch query {
	case sqlinline.QCreateGalleryTable:
		return pgconn.NewCommandTag("CREATE TABLE"), nil
	case sqlinline.QAppendGallery:
		kinds, docs, limit := args[0].([]string), args[1].([]string), args[3].(int)
		if len(args[2].([]time.Time)) != len(docs) {
			return pgconn.CommandTag{}, errors.New("argument arrays differ in length")
		}
		for i := range docs {
			m.next++
			m.rows = append(m.rows, galleryRow{seq: m.next, kind: kinds[i], entry: []byte(docs[i])})
		}
		sort.Slice(m.rows, func(i, j int) bool { return m.rows[i].seq > m.rows[j].seq })
		deleted := 0
		if len(m.rows) > limit {
			deleted = len(m.rows) - limit
			m.rows = m.rows[:limit]
		}
		return pgconn.NewCommandTag(fmt.Sprintf("DELETE %d", deleted)), nil
	}
	return pgconn.CommandTag{}, fmt.Errorf("unexpected exec: %s", strings.SplitN(query, "\n", 2)[0])
}

func (m *memoryExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return nil
}

func (m *memoryExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	if query != sqlinline.QListGallery {
		return nil, errors.New("unexpected query")
	}
	limit := args[0].(int)
	sorted := append([]galleryRow(nil), m.rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].seq > sorted[j].seq })
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return &memoryRows{rows: sorted, idx: -1}, nil
}

type memoryRows struct {
	rows []galleryRow
	idx  int
}

func (r *memoryRows) Close()                                       {}
func (r *memoryRows) Err() error                                   { return nil }
func (r *memoryRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *memoryRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *memoryRows) Values() ([]any, error)                       { return nil, errors.New("not implemented") }
func (r *memoryRows) RawValues() [][]byte                          { return nil }
func (r *memoryRows) Conn() *pgx.Conn                              { return nil }

func (r *memoryRows) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *memoryRows) Scan(dest ...any) error {
	ptr, ok := dest[0].(*[]byte)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.rows[r.idx].entry
	return nil
}

func TestPGStoreEnsureSchema(t *testing.T) {
	exec := &memoryExecutor{}
	require.NoError(t, NewPGStore(exec).EnsureSchema(context.Background()))
	assert.Equal(t, []string{sqlinline.QCreateGalleryTable}, exec.queries)
}

func TestPGStoreAppendAndList(t *testing.T) {
	exec := &memoryExecutor{}
	store := NewPGStore(exec)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, entries("old", 199)))
	require.NoError(t, store.Append(ctx, entries("new", 3)))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, domain.GalleryCap)
	assert.Equal(t, []string{"new-0.png", "new-1.png", "new-2.png", "old-0.png"}, files(list[:4]))
	assert.Equal(t, "old-196.png", list[199].File)
	assert.Len(t, exec.rows, domain.GalleryCap)
}

func TestPGStoreStoresKind(t *testing.T) {
	exec := &memoryExecutor{}
	store := NewPGStore(exec)
	video := domain.GalleryEntry{File: "https://cdn/v.mp4", Type: domain.AssetKindVideo, CreatedAt: time.Now().UTC(), Length: 81}
	require.NoError(t, store.Append(context.Background(), []domain.GalleryEntry{video, {File: "x.png"}}))

	require.Len(t, exec.rows, 2)
	assert.Equal(t, "image", exec.rows[1].kind)
	var decoded domain.GalleryEntry
	require.NoError(t, json.Unmarshal(exec.rows[0].entry, &decoded))
	assert.Equal(t, 81, decoded.Length)
}

func TestPGStoreAppendIsOneStatement(t *testing.T) {
	exec := &memoryExecutor{}
	require.NoError(t, NewPGStore(exec).Append(context.Background(), entries("x", 3)))
	assert.Equal(t, []string{sqlinline.QAppendGallery}, exec.queries)
}

func TestPGStoreFailedAppendLeavesTableUntouched(t *testing.T) {
	exec := &memoryExecutor{}
	store := NewPGStore(exec)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, entries("kept", 2)))

	exec.failOn = sqlinline.QAppendGallery
	err := store.Append(ctx, entries("lost", 3))
	require.Error(t, err)

	exec.failOn = ""
	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept-0.png", "kept-1.png"}, files(list))
}

func TestPGStoreOversizedBatchKeepsNewest(t *testing.T) {
	exec := &memoryExecutor{}
	store := NewPGStore(exec)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, entries("old", 5)))
	require.NoError(t, store.Append(ctx, entries("big", domain.GalleryCap+10)))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, domain.GalleryCap)
	assert.Equal(t, "big-0.png", list[0].File)
	assert.Equal(t, fmt.Sprintf("big-%d.png", domain.GalleryCap-1), list[domain.GalleryCap-1].File)
}
