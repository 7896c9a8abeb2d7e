package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"genstudio/internal/domain"
)

// RandomSeed is the seed sentinel asking for a random value.
const RandomSeed = "random"

// ParseRequest decodes a request body for profile's kind. Numbers may arrive
// as JSON numbers or numeric strings; zero or missing values take the kind
// default and a missing or "random" seed draws from the kind's seed range.
func ParseRequest(profile Profile, body []byte) (domain.JobRequest, error) {
	fields := map[string]json.RawMessage{}
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&fields); err != nil {
			return domain.JobRequest{}, fmt.Errorf("jobs: decode request: %v: %w", err, domain.ErrInvalidRequest)
		}
	}

	def := profile.Defaults
	req := domain.JobRequest{}
	var err error
	if req.Prompt, err = textField(fields, "prompt", def.Prompt); err != nil {
		return req, err
	}
	if req.Negative, err = textField(fields, "negative", def.Negative); err != nil {
		return req, err
	}
	if req.Model, err = textField(fields, "model", def.Model); err != nil {
		return req, err
	}
	if req.Steps, err = intField(fields, "steps", def.Steps); err != nil {
		return req, err
	}
	if req.CFG, err = floatField(fields, "cfg", def.CFG); err != nil {
		return req, err
	}
	if req.Width, err = intField(fields, "width", def.Width); err != nil {
		return req, err
	}
	if req.Height, err = intField(fields, "height", def.Height); err != nil {
		return req, err
	}
	if req.Batch, err = intField(fields, "batch", def.Batch); err != nil {
		return req, err
	}
	if req.Length, err = intField(fields, "length", def.Length); err != nil {
		return req, err
	}
	if profile.MaxLength > 0 {
		req.Length = min(max(req.Length, profile.MinLength), profile.MaxLength)
	}
	if req.Seed, err = seedField(fields["seed"], profile.SeedMax); err != nil {
		return req, err
	}
	return req, nil
}

// NormalizeText trims s and folds it to Unicode NFC.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// DrawSeed returns a uniformly random seed in [0, limit).
func DrawSeed(limit int64) int64 {
	if limit <= 0 {
		limit = math.MaxInt64
	}
	return rand.Int64N(limit)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func textField(fields map[string]json.RawMessage, name, fallback string) (string, error) {
	raw := fields[name]
	if isNull(raw) {
		return fallback, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		if numErr := json.Unmarshal(raw, &n); numErr != nil {
			return "", fmt.Errorf("jobs: %s must be a string: %w", name, domain.ErrInvalidRequest)
		}
		s = n.String()
	}
	if s = NormalizeText(s); s == "" {
		return fallback, nil
	}
	return s, nil
}

// numberText extracts the textual form of a JSON number or numeric string.
func numberText(raw json.RawMessage) (string, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), true
	}
	return "", false
}

func floatField(fields map[string]json.RawMessage, name string, fallback float64) (float64, error) {
	raw := fields[name]
	if isNull(raw) {
		return fallback, nil
	}
	text, ok := numberText(raw)
	if !ok {
		return 0, fmt.Errorf("jobs: %s must be numeric: %w", name, domain.ErrInvalidRequest)
	}
	if text == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("jobs: %s must be numeric: %w", name, domain.ErrInvalidRequest)
	}
	if v < 0 {
		return 0, fmt.Errorf("jobs: %s must not be negative: %w", name, domain.ErrInvalidRequest)
	}
	if v == 0 {
		return fallback, nil
	}
	return v, nil
}

func intField(fields map[string]json.RawMessage, name string, fallback int) (int, error) {
	v, err := floatField(fields, name, float64(fallback))
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 {
		return 0, fmt.Errorf("jobs: %s out of range: %w", name, domain.ErrInvalidRequest)
	}
	return int(v), nil
}

func seedField(raw json.RawMessage, limit int64) (int64, error) {
	if isNull(raw) {
		return DrawSeed(limit), nil
	}
	text, ok := numberText(raw)
	if !ok {
		return 0, fmt.Errorf("jobs: seed must be an integer or %q: %w", RandomSeed, domain.ErrInvalidRequest)
	}
	if text == "" || strings.EqualFold(text, RandomSeed) {
		return DrawSeed(limit), nil
	}
	seed, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("jobs: seed must be an integer or %q: %w", RandomSeed, domain.ErrInvalidRequest)
		}
		seed = int64(f)
	}
	if seed < 0 {
		return 0, fmt.Errorf("jobs: seed must not be negative: %w", domain.ErrInvalidRequest)
	}
	return seed, nil
}
