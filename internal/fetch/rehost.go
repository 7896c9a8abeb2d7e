package fetch

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"genstudio/internal/domain"
	"genstudio/internal/storage"
)

// PublicImagePath is the route prefix that serves re-hosted files.
const PublicImagePath = "/api/comfyui/image/"

// Downloader fetches the bytes of a remote asset.
type Downloader interface {
	Download(ctx context.Context, assetURL string) ([]byte, string, error)
}

// Rehoster copies remote assets into local storage and hands back local
// references. A batch is all-or-nothing: on any failure the files already
// written are removed.
type Rehoster struct {
	store      *storage.FileStore
	downloader Downloader
	prefix     string
	now        func() time.Time
	token      func() string
	logger     zerolog.Logger
}

// NewRehoster builds a Rehoster writing into store.
func NewRehoster(store *storage.FileStore, downloader Downloader, logger *zerolog.Logger) *Rehoster {
	lg := zerolog.Nop()
	if logger != nil {
		lg = *logger
	}
	return &Rehoster{store: store, downloader: downloader, prefix: PublicImagePath, now: time.Now, token: batchToken, logger: lg}
}

func batchToken() string {
	return uuid.NewString()[:8]
}

// Rehost downloads every asset and stores it as
// <unix-ms>_<seed>_<index>_<token>.<ext>, where token is random per batch.
func (r *Rehoster) Rehost(ctx context.Context, assets []domain.RemoteAsset, seed int64) ([]domain.AssetRef, error) {
	stamp := strconv.FormatInt(r.now().UnixMilli(), 10)
	seedText := strconv.FormatInt(seed, 10)
	token := r.token()

	var written []string
	rollback := func() {
		for _, key := range written {
			if err := r.store.Remove(key); err != nil {
				r.logger.Warn().Err(err).Str("key", key).Msg("fetch: remove partial asset")
			}
		}
	}

	refs := make([]domain.AssetRef, 0, len(assets))
	for i, asset := range assets {
		data, contentType, err := r.downloader.Download(ctx, asset.URL)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("fetch: asset %d: %w", i, asFetchError(err))
		}
		name := stamp + "_" + seedText + "_" + strconv.Itoa(i) + "_" + token + "." + extensionFor(asset, contentType)
		key, err := r.store.Write(ctx, name, data)
		if err != nil {
			rollback()
			return nil, fmt.Errorf("fetch: store asset %d: %v: %w", i, err, domain.ErrAssetFetchFailed)
		}
		written = append(written, key)
		refs = append(refs, domain.AssetRef{URL: r.prefix + key, Local: true, Filename: key})
	}
	r.logger.Debug().Int("assets", len(refs)).Int64("seed", seed).Msg("fetch: assets re-hosted")
	return refs, nil
}

func asFetchError(err error) error {
	if errors.Is(err, domain.ErrAssetFetchFailed) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%v: %w", err, domain.ErrAssetFetchFailed)
}

var mimeExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
	"video/mp4":  "mp4",
	"video/webm": "webm",
}

// extensionFor picks the file extension from the remote name, then the
// content type, falling back to webp.
func extensionFor(asset domain.RemoteAsset, contentType string) string {
	for _, name := range []string{asset.Filename, fileNameOf(asset.URL)} {
		if ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), "."); ext != "" && isSafeExt(ext) {
			return ext
		}
	}
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if ext, ok := mimeExtensions[mediaType]; ok {
		return ext
	}
	return "webp"
}

func isSafeExt(ext string) bool {
	if len(ext) > 5 {
		return false
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
