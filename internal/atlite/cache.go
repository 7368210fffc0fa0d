package atlite

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// CachedLibrary wraps a Library with a best-effort file-backed cache of the
// catalog path maps. The cache is operational, not correctness-critical:
// writes are atomic whole-file replacements and a stale cache is served when
// the upstream library is unavailable.
type CachedLibrary struct {
	inner Library
	path  string
	ttl   time.Duration
	clock clockwork.Clock

	mu sync.Mutex
}

type cacheFile struct {
	FetchedAt   time.Time         `json:"fetched_at"`
	Turbines    map[string]string `json:"turbines"`
	SolarPanels map[string]string `json:"solar_panels"`
}

// NewCachedLibrary creates a cache decorator persisting to path with the
// given staleness window.
func NewCachedLibrary(inner Library, path string, ttl time.Duration, clock clockwork.Clock) *CachedLibrary {
	return &CachedLibrary{inner: inner, path: path, ttl: ttl, clock: clock}
}

// TurbinePaths returns cached turbine paths, refreshing from the inner
// library when the cache is missing or stale.
func (c *CachedLibrary) TurbinePaths(ctx context.Context) (map[string]string, error) {
	cached, err := c.load(ctx, false)
	if err != nil {
		return nil, err
	}
	return cached.Turbines, nil
}

// SolarPanelPaths returns cached solar panel paths, refreshing from the
// inner library when the cache is missing or stale.
func (c *CachedLibrary) SolarPanelPaths(ctx context.Context) (map[string]string, error) {
	cached, err := c.load(ctx, false)
	if err != nil {
		return nil, err
	}
	return cached.SolarPanels, nil
}

// Refresh forces a fetch from the inner library, replacing the cache file.
func (c *CachedLibrary) Refresh(ctx context.Context) error {
	_, err := c.load(ctx, true)
	return err
}

func (c *CachedLibrary) load(ctx context.Context, forceUpdate bool) (*cacheFile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing := c.read()
	if existing != nil && !forceUpdate && c.clock.Since(existing.FetchedAt) < c.ttl {
		return existing, nil
	}

	turbines, errT := c.inner.TurbinePaths(ctx)
	panels, errP := c.inner.SolarPanelPaths(ctx)
	if errT != nil || errP != nil {
		// Serve stale data over failing outright.
		if existing != nil {
			return existing, nil
		}
		if errT != nil {
			return nil, errT
		}
		return nil, errP
	}

	fresh := &cacheFile{
		FetchedAt:   c.clock.Now().UTC(),
		Turbines:    turbines,
		SolarPanels: panels,
	}
	if err := c.write(fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

func (c *CachedLibrary) read() *cacheFile {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil
	}
	var cached cacheFile
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil
	}
	return &cached
}

func (c *CachedLibrary) write(cached *cacheFile) error {
	data, err := json.MarshalIndent(cached, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create catalog cache dir: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write catalog cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace catalog cache: %w", err)
	}
	return nil
}
