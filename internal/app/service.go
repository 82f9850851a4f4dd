// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	repository "github.com/mfcastro/palco/internal/adapters/repository"
	"github.com/mfcastro/palco/internal/catalog"
	"github.com/mfcastro/palco/internal/domain/model"
	"github.com/mfcastro/palco/internal/domain/scoring"
	"github.com/mfcastro/palco/internal/queue"
	"github.com/mfcastro/palco/internal/ranking"
	"github.com/mfcastro/palco/internal/session"
	"github.com/mfcastro/palco/pkg/clock"
	"github.com/mfcastro/palco/pkg/logger"
)

// Service composes the catalog cache, singer queue, ranking board and
// session controller over one relational store. It implements the API
// dependency surface.
type Service struct {
	mu sync.Mutex

	// Core components
	store      repository.Store
	catalog    *catalog.Cache
	queue      *queue.Manager
	ranking    *ranking.Board
	scores     *scoring.Generator
	controller *session.Controller

	// Configuration
	dsn            string
	cacheTTL       time.Duration
	pageSize       int
	topN           int
	pollInterval   time.Duration
	minPerformance time.Duration
	revealDelay    time.Duration
	returnDelay    time.Duration

	// State
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	clk clock.Clock
	log logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDSN sets the sqlite database path.
func WithDSN(dsn string) Option {
	return func(s *Service) {
		if dsn != "" {
			s.dsn = dsn
		}
	}
}

// WithStore injects a prebuilt store instead of opening one on Start.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCacheTTL sets the catalog snapshot lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithPageSize sets the catalog fetch page size.
func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithTopN sets the default ranking board size.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithPollInterval sets the idle refresh cadence of the session loop.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithMinPerformance sets the shortest playback that still scores.
func WithMinPerformance(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.minPerformance = d
		}
	}
}

// WithRevealDelay sets the drum-roll-to-score pause.
func WithRevealDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.revealDelay = d
		}
	}
}

// WithReturnDelay sets the pause before returning to the landing view.
func WithReturnDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.returnDelay = d
		}
	}
}

// WithClock sets the time source.
func WithClock(clk clock.Clock) Option {
	return func(s *Service) {
		if clk != nil {
			s.clk = clk
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dsn:            "palco.db",
		cacheTTL:       time.Hour,
		pageSize:       1000,
		topN:           ranking.DefaultTopN,
		pollInterval:   5 * time.Second,
		minPerformance: 60 * time.Second,
		revealDelay:    7 * time.Second,
		returnDelay:    6 * time.Second,
		clk:            clock.System{},
		log:            nil, // resolved on Start
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store, builds the components and launches the idle
// polling loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.log == nil {
		s.log = logger.Get()
	}

	s.log.Info(ctx, "starting karaoke service...")

	if s.store == nil {
		store, err := repository.NewSQLStore(ctx, s.dsn)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
	}

	s.catalog = catalog.New(s.store,
		catalog.WithTTL(s.cacheTTL),
		catalog.WithPageSize(s.pageSize),
		catalog.WithClock(s.clk),
		catalog.WithLogger(s.log.Named("catalog")),
	)
	s.queue = queue.New(s.store, s.store, queue.WithLogger(s.log.Named("queue")))
	s.ranking = ranking.New(s.store, s.catalog, ranking.WithLogger(s.log.Named("ranking")))
	s.scores = scoring.NewGenerator()

	effects := &soundEffectPlayer{settings: s, log: s.log.Named("effects")}
	s.controller = session.New(s.catalog, s.queue, s.ranking, s, effects, s.scores,
		session.WithClock(s.clk),
		session.WithLogger(s.log.Named("session")),
		session.WithPollInterval(s.pollInterval),
		session.WithMinPerformance(s.minPerformance),
		session.WithRevealDelay(s.revealDelay),
		session.WithReturnDelay(s.returnDelay),
	)

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.controller.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn(loopCtx, "session loop stopped", logger.Error(err))
		}
	}()

	s.started = true
	s.log.Info(ctx, "karaoke service started",
		logger.String("db", s.dsn),
		logger.Duration("cache_ttl", s.cacheTTL),
		logger.Int("top_n", s.topN),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.log.Info(context.Background(), "stopping karaoke service...")

	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.log.Info(context.Background(), "karaoke service stopped")
}

// Controller exposes the session lifecycle driver.
func (s *Service) Controller() *session.Controller {
	return s.controller
}

// Songs returns the cached catalog. A data-layer failure before the
// first successful fetch degrades to an empty list; the UI treats empty
// and absent as the uniform failure signal.
func (s *Service) Songs(ctx context.Context) ([]model.Song, error) {
	songs, err := s.catalog.GetSongs(ctx)
	if err != nil {
		s.log.Warn(ctx, "catalog unavailable; serving empty list", logger.Error(err))
		return []model.Song{}, nil
	}
	return songs, nil
}

// SongByKey resolves a song by display number or row ID.
func (s *Service) SongByKey(ctx context.Context, key string) (model.Song, error) {
	return s.catalog.GetSongByNumber(ctx, key)
}

// AddSong inserts a catalog row and invalidates the snapshot.
func (s *Service) AddSong(ctx context.Context, song model.Song) (model.Song, error) {
	return s.catalog.AddSong(ctx, song)
}

// UpdateSong rewrites a catalog row and invalidates the snapshot.
func (s *Service) UpdateSong(ctx context.Context, song model.Song) (model.Song, error) {
	return s.catalog.UpdateSong(ctx, song)
}

// DeleteSong removes a catalog row and invalidates the snapshot.
func (s *Service) DeleteSong(ctx context.Context, id string) error {
	return s.catalog.DeleteSong(ctx, id)
}

// Queue returns the ordered singer queue.
func (s *Service) Queue(ctx context.Context) ([]model.QueueEntry, error) {
	return s.queue.GetQueue(ctx)
}

// Enqueue resolves the song and appends a singer at the tail.
func (s *Service) Enqueue(ctx context.Context, songKey, singer string) (model.QueueEntry, error) {
	song, err := s.catalog.GetSongByNumber(ctx, songKey)
	if err != nil {
		return model.QueueEntry{}, err
	}
	return s.queue.Enqueue(ctx, song, singer)
}

// DequeueAt removes the entry at the 0-based index.
func (s *Service) DequeueAt(ctx context.Context, index int) error {
	return s.queue.DequeueAt(ctx, index)
}

// MoveQueueItem swaps two entries by index.
func (s *Service) MoveQueueItem(ctx context.Context, fromIndex, toIndex int) error {
	return s.queue.MoveItem(ctx, fromIndex, toIndex)
}

// ClearQueue empties the queue.
func (s *Service) ClearQueue(ctx context.Context) error {
	return s.queue.Clear(ctx)
}

// Ranking returns the top entries; limit 0 means the configured default.
func (s *Service) Ranking(ctx context.Context, limit int) ([]model.RankingEntry, error) {
	if limit <= 0 {
		limit = s.topN
	}
	return s.ranking.Top(ctx, limit)
}

// CommitScore resolves the song and commits a performance score.
func (s *Service) CommitScore(ctx context.Context, songKey, singer string, score int) (model.RankingEntry, error) {
	song, err := s.catalog.GetSongByNumber(ctx, songKey)
	if err != nil {
		return model.RankingEntry{}, err
	}
	return s.ranking.AddEntry(ctx, song, singer, score)
}

// ClearRanking empties the board.
func (s *Service) ClearRanking(ctx context.Context) error {
	return s.ranking.Clear(ctx)
}

// Settings reads the admin settings singleton. A missing row yields
// zero-valued settings rather than an error.
func (s *Service) Settings(ctx context.Context) (model.Settings, error) {
	row, err := s.store.GetSettings(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Settings{}, nil
		}
		return model.Settings{}, err
	}
	return settingsFromRow(row), nil
}

// SaveSettings writes the settings singleton.
func (s *Service) SaveSettings(ctx context.Context, settings model.Settings) (model.Settings, error) {
	row, err := s.store.UpsertSettings(ctx, rowFromSettings(settings))
	if err != nil {
		return model.Settings{}, err
	}
	return settingsFromRow(row), nil
}

func settingsFromRow(row repository.SettingsRow) model.Settings {
	return model.Settings{
		ID:              row.ID,
		VideosPath:      row.VideosPath,
		BackgroundImage: row.BackgroundImage,
		SoundEffects: model.SoundEffects{
			Low:        row.LowScoreSound,
			Medium:     row.MediumScoreSound,
			High:       row.HighScoreSound,
			Drums:      row.DrumsSound,
			Incomplete: row.IncompleteSound,
		},
		CreatedAt: row.CreatedAt,
	}
}

func rowFromSettings(s model.Settings) repository.SettingsRow {
	return repository.SettingsRow{
		ID:               s.ID,
		VideosPath:       s.VideosPath,
		BackgroundImage:  s.BackgroundImage,
		LowScoreSound:    s.SoundEffects.Low,
		MediumScoreSound: s.SoundEffects.Medium,
		HighScoreSound:   s.SoundEffects.High,
		DrumsSound:       s.SoundEffects.Drums,
		IncompleteSound:  s.SoundEffects.Incomplete,
	}
}

// soundEffectPlayer resolves the configured effect file for a tier.
// Actual playback happens on the client; the server logs the cue so the
// sequencing stays observable.
type soundEffectPlayer struct {
	settings session.SettingsSource
	log      logger.Logger
}

func (p *soundEffectPlayer) Play(ctx context.Context, tier scoring.Tier) error {
	settings, err := p.settings.Settings(ctx)
	if err != nil {
		return fmt.Errorf("effect settings: %w", err)
	}

	var path string
	switch tier {
	case scoring.TierLow:
		path = settings.SoundEffects.Low
	case scoring.TierMedium:
		path = settings.SoundEffects.Medium
	case scoring.TierHigh:
		path = settings.SoundEffects.High
	case scoring.TierDrums:
		path = settings.SoundEffects.Drums
	case scoring.TierIncomplete:
		path = settings.SoundEffects.Incomplete
	}

	// Admin-entered paths may be absolute; the media server only ever
	// sees the basename.
	name := ""
	if path != "" {
		name = filepath.Base(path)
	}
	p.log.Info(ctx, "sound effect cue",
		logger.String("tier", string(tier)),
		logger.String("file", name),
	)
	return nil
}
