package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/book-expert/logger"
	"github.com/patrickmn/go-cache"

	"github.com/book-expert/story-studio/internal/core"
)

const (
	defaultCacheExpiration = 30 * time.Minute
	cacheCleanupInterval   = time.Hour
	fetchService           = "asset download"

	// MaxCachedAssetBytes is the largest body Warm keeps in memory.
	MaxCachedAssetBytes = 4 << 20
	// MaxCachedAssets bounds the number of warmed bodies held at once.
	MaxCachedAssets = 128
)

// Fetcher downloads generated assets. Fetch never fills the cache; only Warm
// does. Generated image URLs are warmed when a batch produces them so a later
// gallery download still works once the provider link has expired.
type Fetcher struct {
	httpClient *http.Client
	cache      *cache.Cache
	log        *logger.Logger
}

// NewFetcher creates a Fetcher with its own cache.
func NewFetcher(timeout time.Duration, log *logger.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache.New(defaultCacheExpiration, cacheCleanupInterval),
		log:        log,
	}
}

// Fetch returns the bytes behind url, from the cache when it was warmed.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if cached, ok := f.cache.Get(url); ok {
		if data, isBytes := cached.([]byte); isBytes {
			f.log.Info("Serving %s from cache (%d bytes)", url, len(data))

			return data, nil
		}
	}

	return f.download(ctx, url)
}

// Warm downloads url and keeps the body for later Fetch calls. Bodies larger
// than MaxCachedAssetBytes, or arriving while MaxCachedAssets are held, are
// dropped after download.
func (f *Fetcher) Warm(ctx context.Context, url string) error {
	if _, ok := f.cache.Get(url); ok {
		return nil
	}

	data, err := f.download(ctx, url)
	if err != nil {
		return err
	}

	if len(data) > MaxCachedAssetBytes || f.cache.ItemCount() >= MaxCachedAssets {
		f.log.Warn("Not caching %s (%d bytes, %d cached)", url, len(data), f.cache.ItemCount())

		return nil
	}

	f.cache.Set(url, data, cache.DefaultExpiration)

	return nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &core.UpstreamError{Service: fetchService, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &core.UpstreamError{
			Service:    fetchService,
			StatusCode: resp.StatusCode,
			Message:    "Failed to download " + url + ": " + resp.Status,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}

	f.log.Info("Downloaded %d bytes from %s", len(data), url)

	return data, nil
}

// DownloadToFile fetches url and writes it to path.
func DownloadToFile(ctx context.Context, fetcher core.Fetcher, url, path string) error {
	data, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
