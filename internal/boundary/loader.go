package boundary

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/redis/go-redis/v9"

	"geovisor-service/internal/config"
	cache "geovisor-service/internal/database/redis"
)

// Level names one document of the hierarchical boundary dataset.
type Level string

const (
	LevelRegion    Level = "region"
	LevelSubRegion Level = "subregion"
	LevelLocality  Level = "locality"
)

const redisCacheTTL = 24 * time.Hour

// Loader fetches and memoizes boundary topology per level. The decoded
// collection is memoized per URL for the process lifetime; the dataset is
// small and finite, so the memo is unbounded. A Redis layer in front of the
// HTTP fetch spares re-downloading across restarts and is strictly optional.
type Loader struct {
	cfg    config.BoundaryConfig
	client *http.Client
	rdb    *redis.Client

	mu   sync.Mutex
	memo map[string]*geojson.FeatureCollection
}

// NewLoader builds a loader. rdb may be nil, which disables the Redis layer.
func NewLoader(cfg config.BoundaryConfig, rdb *redis.Client) *Loader {
	return &Loader{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		rdb:    rdb,
		memo:   make(map[string]*geojson.FeatureCollection),
	}
}

func (l *Loader) urlFor(level Level) (string, error) {
	var file string
	switch level {
	case LevelRegion:
		file = l.cfg.RegionFile
	case LevelSubRegion:
		file = l.cfg.SubRegFile
	case LevelLocality:
		file = l.cfg.LocalityFile
	default:
		return "", fmt.Errorf("unknown boundary level %q", level)
	}
	return l.cfg.BaseURL + "/" + file, nil
}

// Level returns the decoded feature collection for the given level.
func (l *Loader) Level(ctx context.Context, level Level) (*geojson.FeatureCollection, error) {
	url, err := l.urlFor(level)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	if fc, ok := l.memo[url]; ok {
		l.mu.Unlock()
		return fc, nil
	}
	l.mu.Unlock()

	data, err := l.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	fc, err := DecodeTopology(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s topology: %w", level, err)
	}

	l.mu.Lock()
	l.memo[url] = fc
	l.mu.Unlock()
	return fc, nil
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	if l.rdb != nil {
		if data, err := l.rdb.Get(ctx, cache.Key("boundary", url)).Bytes(); err == nil {
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch boundary dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("boundary dataset fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read boundary dataset: %w", err)
	}

	if l.rdb != nil {
		if err := l.rdb.Set(ctx, cache.Key("boundary", url), data, redisCacheTTL).Err(); err != nil {
			slog.Warn("failed to cache boundary dataset", "url", url, "error", err)
		}
	}
	return data, nil
}
