package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
)

// Resolver turns a result pointer into an ordered list of remote assets.
type Resolver interface {
	Resolve(ctx context.Context, ptr domain.ResultPointer) ([]domain.RemoteAsset, error)
}

// ListResolver accepts pointers that already list their assets.
type ListResolver struct{}

// Resolve returns the listed assets in order.
func (ListResolver) Resolve(ctx context.Context, ptr domain.ResultPointer) ([]domain.RemoteAsset, error) {
	out := make([]domain.RemoteAsset, 0, len(ptr.Assets))
	for _, a := range ptr.Assets {
		if u := strings.TrimSpace(a.URL); u != "" {
			out = append(out, domain.RemoteAsset{URL: u, Filename: a.Filename})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("fetch: result lists no assets: %w", domain.ErrMalformedResponse)
	}
	return out, nil
}

// ManifestOptions configures a ManifestResolver.
type ManifestOptions struct {
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// ManifestResolver downloads a manifest and reads the asset URLs it lists.
// A manifest may be plain text with one URL per line, a JSON array of URLs,
// or a single JSON string. A pointer that already lists assets is returned as
// is, and a manifest URL that serves media directly is its own asset.
type ManifestResolver struct {
	httpClient *http.Client
	logger     *infra.Logger
}

// NewManifestResolver constructs a resolver with sane defaults.
func NewManifestResolver(opts ManifestOptions) *ManifestResolver {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &ManifestResolver{httpClient: httpClient, logger: logger}
}

// Resolve fetches and parses the manifest behind ptr.
func (r *ManifestResolver) Resolve(ctx context.Context, ptr domain.ResultPointer) ([]domain.RemoteAsset, error) {
	if len(ptr.Assets) > 0 {
		return ListResolver{}.Resolve(ctx, ptr)
	}
	manifestURL := strings.TrimSpace(ptr.ManifestURL)
	if manifestURL == "" {
		return nil, fmt.Errorf("fetch: result has no manifest url: %w", domain.ErrMalformedResponse)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build manifest request: %v: %w", err, domain.ErrAssetFetchFailed)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: manifest %s: %v: %w", manifestURL, err, domain.ErrAssetFetchFailed)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch: manifest %s: status %d: %w", manifestURL, resp.StatusCode, domain.ErrAssetFetchFailed)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, "video/") {
		_, _ = io.Copy(io.Discard, resp.Body)
		return []domain.RemoteAsset{{URL: manifestURL, Filename: fileNameOf(manifestURL)}}, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch: read manifest: %v: %w", err, domain.ErrAssetFetchFailed)
	}
	urls := ParseManifest(raw)
	if len(urls) == 0 {
		return nil, fmt.Errorf("fetch: manifest %s lists no assets: %w", manifestURL, domain.ErrMalformedResponse)
	}
	assets := make([]domain.RemoteAsset, 0, len(urls))
	for _, u := range urls {
		assets = append(assets, domain.RemoteAsset{URL: u, Filename: fileNameOf(u)})
	}
	r.logger.Debug().Str("manifest", manifestURL).Int("assets", len(assets)).Msg("fetch: manifest resolved")
	return assets, nil
}

// ParseManifest extracts the non-empty URLs of a manifest body.
func ParseManifest(raw []byte) []string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	switch trimmed[0] {
	case '[':
		var list []any
		if err := json.Unmarshal(trimmed, &list); err == nil {
			var out []string
			for _, item := range list {
				if s, ok := item.(string); ok {
					out = appendLines(out, s)
				}
			}
			return out
		}
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return appendLines(nil, s)
		}
	}
	return appendLines(nil, string(trimmed))
}

func appendLines(out []string, text string) []string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func fileNameOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if name := u.Query().Get("filename"); name != "" {
		return name
	}
	path := u.Path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	return path
}
