package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"genstudio/internal/domain"
)

// Template is a validated workflow document. The raw bytes are never handed
// out; every Fill decodes its own copy.
type Template struct {
	Kind     domain.JobKind
	Path     string
	shape    Shape
	raw      []byte
	bindings []Binding
}

// Bindings returns the slots that resolved against the document.
func (t *Template) Bindings() []Binding {
	out := make([]Binding, len(t.bindings))
	copy(out, t.bindings)
	return out
}

// Store loads workflow templates once and caches them for the process lifetime.
type Store struct {
	mu      sync.RWMutex
	paths   map[domain.JobKind]string
	layouts map[domain.JobKind]Layout
	cache   map[domain.JobKind]*Template
	logger  zerolog.Logger
}

// NewStore constructs a store over the given template paths. A nil logger
// discards output.
func NewStore(paths map[domain.JobKind]string, logger *zerolog.Logger) *Store {
	lg := zerolog.Nop()
	if logger != nil {
		lg = *logger
	}
	layouts := make(map[domain.JobKind]Layout, len(defaultLayouts))
	for kind, layout := range defaultLayouts {
		layouts[kind] = layout
	}
	return &Store{
		paths:   paths,
		layouts: layouts,
		cache:   make(map[domain.JobKind]*Template),
		logger:  lg,
	}
}

// SetLayout replaces the slot map used for kind. Cached templates of that
// kind are dropped.
func (s *Store) SetLayout(kind domain.JobKind, layout Layout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layouts[kind] = layout
	delete(s.cache, kind)
}

// Load returns the template for kind, reading it on first use. Missing or
// malformed documents, and documents lacking a required slot, fail with
// domain.ErrConfigMissing.
func (s *Store) Load(kind domain.JobKind) (*Template, error) {
	s.mu.RLock()
	tpl, ok := s.cache[kind]
	s.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tpl, ok := s.cache[kind]; ok {
		return tpl, nil
	}
	path, ok := s.paths[kind]
	if !ok || path == "" {
		return nil, fmt.Errorf("workflow: no template configured for %s: %w", kind, domain.ErrConfigMissing)
	}
	layout, ok := s.layouts[kind]
	if !ok {
		return nil, fmt.Errorf("workflow: no slot layout for %s: %w", kind, domain.ErrConfigMissing)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workflow: read %s: %v: %w", path, err, domain.ErrConfigMissing)
	}
	tpl, err = parse(kind, path, raw, layout)
	if err != nil {
		return nil, err
	}
	s.cache[kind] = tpl
	s.logger.Debug().Str("kind", string(kind)).Str("path", path).Int("slots", len(tpl.bindings)).Msg("workflow template loaded")
	return tpl, nil
}

// Preload loads every configured template and reports all failures together.
func (s *Store) Preload() error {
	kinds := make([]domain.JobKind, 0, len(s.paths))
	for kind := range s.paths {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	var errs []error
	for _, kind := range kinds {
		if _, err := s.Load(kind); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Fill substitutes req into a private copy of the template and returns the
// encoded document.
func (t *Template) Fill(req domain.JobRequest) (json.RawMessage, error) {
	if t == nil {
		return nil, fmt.Errorf("workflow: nil template: %w", domain.ErrConfigMissing)
	}
	switch t.shape {
	case ShapeEngine:
		graph, err := decodeObject(t.raw)
		if err != nil {
			return nil, fmt.Errorf("workflow: decode %s: %w", t.Path, err)
		}
		apply(graph, t.bindings, req)
		return json.Marshal(graph)
	default:
		doc, err := decodeObject(t.raw)
		if err != nil {
			return nil, fmt.Errorf("workflow: decode %s: %w", t.Path, err)
		}
		content, graph, err := managedGraph(doc)
		if err != nil {
			return nil, fmt.Errorf("workflow: %s: %w", t.Path, err)
		}
		apply(graph, t.bindings, req)
		encoded, err := json.Marshal(content)
		if err != nil {
			return nil, err
		}
		doc["promptContent"] = string(encoded)
		return json.Marshal(doc)
	}
}

func parse(kind domain.JobKind, path string, raw []byte, layout Layout) (*Template, error) {
	doc, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("workflow: decode %s: %v: %w", path, err, domain.ErrConfigMissing)
	}
	graph := doc
	if layout.Shape == ShapeManaged {
		if _, graph, err = managedGraph(doc); err != nil {
			return nil, fmt.Errorf("workflow: %s: %v: %w", path, err, domain.ErrConfigMissing)
		}
	}

	var resolved []Binding
	for _, b := range layout.Bindings {
		var present []Target
		for _, target := range b.Targets {
			if nodeInputs(graph, target.Node) != nil {
				present = append(present, target)
			}
		}
		if len(present) == 0 {
			if b.Required {
				return nil, fmt.Errorf("workflow: %s lacks required slot %q: %w", path, b.Slot, domain.ErrConfigMissing)
			}
			continue
		}
		resolved = append(resolved, Binding{Slot: b.Slot, Targets: present, Required: b.Required})
	}

	return &Template{
		Kind:     kind,
		Path:     path,
		shape:    layout.Shape,
		raw:      bytes.Clone(raw),
		bindings: resolved,
	}, nil
}

func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("document is not an object")
	}
	return out, nil
}

// managedGraph decodes the promptContent string of a managed document and
// returns it together with its node map.
func managedGraph(doc map[string]any) (map[string]any, map[string]any, error) {
	encoded, ok := doc["promptContent"].(string)
	if !ok || encoded == "" {
		return nil, nil, errors.New("promptContent missing")
	}
	content, err := decodeObject([]byte(encoded))
	if err != nil {
		return nil, nil, fmt.Errorf("promptContent: %w", err)
	}
	graph, ok := content["prompt"].(map[string]any)
	if !ok {
		return nil, nil, errors.New("promptContent.prompt missing")
	}
	return content, graph, nil
}

func nodeInputs(graph map[string]any, node string) map[string]any {
	n, ok := graph[node].(map[string]any)
	if !ok {
		return nil
	}
	inputs, _ := n["inputs"].(map[string]any)
	return inputs
}

func apply(graph map[string]any, bindings []Binding, req domain.JobRequest) {
	for _, b := range bindings {
		value, ok := slotValue(b.Slot, req)
		if !ok {
			continue
		}
		for _, target := range b.Targets {
			if inputs := nodeInputs(graph, target.Node); inputs != nil {
				inputs[target.Input] = value
			}
		}
	}
}
