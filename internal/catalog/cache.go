// Package catalog wraps the song store with a time-boxed client-side cache.
package catalog

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/mfcastro/palco/internal/domain/model"
	"github.com/mfcastro/palco/pkg/clock"
	"github.com/mfcastro/palco/pkg/logger"
	"github.com/mfcastro/palco/pkg/metrics"
)

// Default cache configuration.
const (
	defaultTTL      = time.Hour
	defaultPageSize = 1000
)

// Queue and ranking rows historically store the song's UUID in a field
// that elsewhere carries the human-facing number, so lookups must accept
// either shape.
var uuidShape = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// Source is the slice of the store the catalog depends on.
type Source interface {
	ListSongs(ctx context.Context, offset, limit int) ([]model.Song, error)
	GetSongByID(ctx context.Context, id string) (model.Song, error)
	GetSongByNumber(ctx context.Context, number string) (model.Song, error)
	InsertSong(ctx context.Context, s model.Song) (model.Song, error)
	UpdateSong(ctx context.Context, s model.Song) (model.Song, error)
	DeleteSong(ctx context.Context, id string) error
}

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithTTL sets the snapshot lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithPageSize sets the page size used for catalog fetches.
func WithPageSize(size int) Option {
	return func(c *Cache) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithClock sets the time source.
func WithClock(clk clock.Clock) Option {
	return func(c *Cache) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

// Cache holds a full catalog snapshot and refetches it page by page once
// the snapshot expires. A stale snapshot is preferred over an error when
// the store is unreachable.
type Cache struct {
	source   Source
	clock    clock.Clock
	ttl      time.Duration
	pageSize int
	log      logger.Logger

	mu        sync.Mutex
	songs     []model.Song
	fetchedAt time.Time
	populated bool
}

// New creates a Cache over source with default configuration.
func New(source Source, opts ...Option) *Cache {
	c := &Cache{
		source:   source,
		clock:    clock.System{},
		ttl:      defaultTTL,
		pageSize: defaultPageSize,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetSongs returns the full catalog ordered by number ascending. A fresh
// snapshot is served without touching the store; an expired or absent one
// triggers a paginated refetch. If the refetch fails and any snapshot
// exists, the stale snapshot is returned instead of the error.
func (c *Cache) GetSongs(ctx context.Context) ([]model.Song, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.populated && now.Sub(c.fetchedAt) < c.ttl {
		metrics.RecordCacheHit()
		return copySongs(c.songs), nil
	}

	metrics.RecordCacheMiss()
	songs, err := c.fetchAll(ctx)
	if err != nil {
		if c.populated {
			metrics.RecordCacheStaleFallback()
			c.log.Warn(ctx, "catalog fetch failed; serving stale snapshot",
				logger.Error(err),
				logger.Int("songs", len(c.songs)),
			)
			return copySongs(c.songs), nil
		}
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	c.songs = songs
	c.fetchedAt = now
	c.populated = true
	metrics.UpdateCatalogSize(len(songs))
	return copySongs(songs), nil
}

// fetchAll retrieves the catalog page by page until a short or empty page
// signals end-of-data. Caller holds the lock.
func (c *Cache) fetchAll(ctx context.Context) ([]model.Song, error) {
	all := make([]model.Song, 0, c.pageSize)
	for page := 0; ; page++ {
		batch, err := c.source.ListSongs(ctx, page*c.pageSize, c.pageSize)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		if len(batch) < c.pageSize {
			break
		}
	}
	return all, nil
}

// GetSongByNumber looks a song up by its display number, or by ID when the
// key has the textual shape of a UUID.
func (c *Cache) GetSongByNumber(ctx context.Context, key string) (model.Song, error) {
	if uuidShape.MatchString(key) {
		return c.source.GetSongByID(ctx, key)
	}
	return c.source.GetSongByNumber(ctx, key)
}

// AddSong inserts a song and drops the snapshot.
func (c *Cache) AddSong(ctx context.Context, s model.Song) (model.Song, error) {
	created, err := c.source.InsertSong(ctx, s)
	c.Invalidate()
	return created, err
}

// UpdateSong rewrites a song and drops the snapshot.
func (c *Cache) UpdateSong(ctx context.Context, s model.Song) (model.Song, error) {
	updated, err := c.source.UpdateSong(ctx, s)
	c.Invalidate()
	return updated, err
}

// DeleteSong removes a song and drops the snapshot.
func (c *Cache) DeleteSong(ctx context.Context, id string) error {
	err := c.source.DeleteSong(ctx, id)
	c.Invalidate()
	return err
}

// Invalidate drops the snapshot, forcing the next GetSongs to refetch.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.songs = nil
	c.populated = false
}

func copySongs(in []model.Song) []model.Song {
	out := make([]model.Song, len(in))
	copy(out, in)
	return out
}
