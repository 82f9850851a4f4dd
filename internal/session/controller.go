// Package session drives the per-performance lifecycle: song selection,
// optional queueing, playback timing, scoring and ranking commit.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mfcastro/palco/internal/domain/model"
	"github.com/mfcastro/palco/internal/domain/scoring"
	"github.com/mfcastro/palco/pkg/clock"
	"github.com/mfcastro/palco/pkg/logger"
	"github.com/mfcastro/palco/pkg/metrics"
)

// State of the performance lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateSelected   State = "selected"
	StateQueued     State = "queued"
	StatePlaying    State = "playing"
	StateScoring    State = "scoring"
	StateIncomplete State = "incomplete"
)

// ErrBadState signals an operation invoked outside its lifecycle state.
var ErrBadState = errors.New("operation not valid in current state")

// Default lifecycle timings.
const (
	defaultMinPerformance = 60 * time.Second
	defaultRevealDelay    = 7 * time.Second
	defaultReturnDelay    = 6 * time.Second
	defaultPollInterval   = 5 * time.Second
)

// Catalog is the slice of the song catalog the controller depends on.
type Catalog interface {
	GetSongs(ctx context.Context) ([]model.Song, error)
	GetSongByNumber(ctx context.Context, key string) (model.Song, error)
}

// Queue is the slice of the singer queue the controller depends on.
type Queue interface {
	GetQueue(ctx context.Context) ([]model.QueueEntry, error)
	Enqueue(ctx context.Context, song model.Song, singer string) (model.QueueEntry, error)
	DequeueAt(ctx context.Context, index int) error
}

// Ranking is the slice of the score board the controller depends on.
type Ranking interface {
	Top(ctx context.Context, n int) ([]model.RankingEntry, error)
	AddEntry(ctx context.Context, song model.Song, singer string, score int) (model.RankingEntry, error)
}

// SettingsSource reads the admin settings singleton.
type SettingsSource interface {
	Settings(ctx context.Context) (model.Settings, error)
}

// EffectPlayer plays the sound effect for a scoring event. Playback is an
// external collaborator; the controller only sequences it.
type EffectPlayer interface {
	Play(ctx context.Context, tier scoring.Tier) error
}

// ScoreSource produces performance scores.
type ScoreSource interface {
	Generate() int
}

// Result describes how a performance ended.
type Result struct {
	Incomplete bool
	Score      int
	Tier       scoring.Tier
	Committed  bool
	Entry      model.RankingEntry
}

// Snapshot is the landing-view state refreshed by the idle polling loop.
type Snapshot struct {
	Queue       []model.QueueEntry
	Ranking     []model.RankingEntry
	Settings    model.Settings
	RefreshedAt time.Time
}

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithClock sets the time source.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) {
		if clk != nil {
			c.clk = clk
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithDelayFunc replaces the interruptible sleep used between lifecycle
// phases, for deterministic tests.
func WithDelayFunc(delay func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) {
		if delay != nil {
			c.delay = delay
		}
	}
}

// WithMinPerformance sets the minimum elapsed playback for a scored
// performance.
func WithMinPerformance(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.minPerformance = d
		}
	}
}

// WithRevealDelay sets the pause between the drum roll and the score
// reveal.
func WithRevealDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.revealDelay = d
		}
	}
}

// WithReturnDelay sets the pause before returning to idle.
func WithReturnDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.returnDelay = d
		}
	}
}

// WithPollInterval sets the idle refresh cadence.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// Controller owns one performance at a time. All exported methods are safe
// for concurrent use, but the lifecycle itself is strictly sequential.
type Controller struct {
	catalog  Catalog
	queue    Queue
	ranking  Ranking
	settings SettingsSource
	effects  EffectPlayer
	scores   ScoreSource

	clk   clock.Clock
	delay func(ctx context.Context, d time.Duration) error
	log   logger.Logger

	minPerformance time.Duration
	revealDelay    time.Duration
	returnDelay    time.Duration
	pollInterval   time.Duration

	mu        sync.Mutex
	state     State
	current   model.Song
	startedAt time.Time
	snapshot  Snapshot
}

// New creates a Controller in the idle state.
func New(catalog Catalog, queue Queue, ranking Ranking, settings SettingsSource, effects EffectPlayer, scores ScoreSource, opts ...Option) *Controller {
	c := &Controller{
		catalog:        catalog,
		queue:          queue,
		ranking:        ranking,
		settings:       settings,
		effects:        effects,
		scores:         scores,
		clk:            clock.System{},
		delay:          sleep,
		log:            logger.Nop(),
		minPerformance: defaultMinPerformance,
		revealDelay:    defaultRevealDelay,
		returnDelay:    defaultReturnDelay,
		pollInterval:   defaultPollInterval,
		state:          StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the selected song, zero-valued when idle.
func (c *Controller) Current() model.Song {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// VideoName returns the media filename for the selected song. One video
// per catalog number, always mp4.
func (c *Controller) VideoName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current.Number == "" {
		return ""
	}
	return c.current.Number + ".mp4"
}

// Select resolves a song by display number or ID and moves to Selected.
// Valid from Idle or from an earlier selection, which it replaces.
func (c *Controller) Select(ctx context.Context, key string) (model.Song, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle && c.state != StateSelected && c.state != StateQueued {
		return model.Song{}, fmt.Errorf("select: %w", ErrBadState)
	}

	song, err := c.catalog.GetSongByNumber(ctx, key)
	if err != nil {
		return model.Song{}, fmt.Errorf("select song %q: %w", key, err)
	}
	c.current = song
	c.state = StateSelected
	c.log.Debug(ctx, "song selected",
		logger.String("number", song.Number),
		logger.String("title", song.Title),
	)
	return song, nil
}

// EnqueueCurrent puts the selected song on the queue for singer and moves
// to Queued.
func (c *Controller) EnqueueCurrent(ctx context.Context, singer string) (model.QueueEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateSelected {
		return model.QueueEntry{}, fmt.Errorf("enqueue: %w", ErrBadState)
	}

	entry, err := c.queue.Enqueue(ctx, c.current, singer)
	if err != nil {
		return model.QueueEntry{}, fmt.Errorf("enqueue current: %w", err)
	}
	c.state = StateQueued
	return entry, nil
}

// StartPlayback moves to Playing and stamps the start time. If the
// selected song is already waiting on the queue it is dequeued now; a
// playing song is performing, not waiting.
func (c *Controller) StartPlayback(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateSelected && c.state != StateQueued {
		return fmt.Errorf("start playback: %w", ErrBadState)
	}

	entries, err := c.queue.GetQueue(ctx)
	if err != nil {
		return fmt.Errorf("start playback: %w", err)
	}
	for i, e := range entries {
		if e.Song.ID == c.current.ID {
			if err := c.queue.DequeueAt(ctx, i); err != nil {
				return fmt.Errorf("start playback: %w", err)
			}
			break
		}
	}

	c.state = StatePlaying
	c.startedAt = c.clk.Now()
	c.log.Info(ctx, "playback started", logger.String("number", c.current.Number))
	return nil
}

// EndPlayback finishes a performance on natural video end.
func (c *Controller) EndPlayback(ctx context.Context) (Result, error) {
	return c.finish(ctx)
}

// StopPlayback finishes a performance on manual stop. A stop before the
// minimum elapsed time yields an incomplete performance with no score.
func (c *Controller) StopPlayback(ctx context.Context) (Result, error) {
	return c.finish(ctx)
}

func (c *Controller) finish(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.state != StatePlaying {
		c.mu.Unlock()
		return Result{}, fmt.Errorf("finish playback: %w", ErrBadState)
	}
	elapsed := c.clk.Now().Sub(c.startedAt)
	song := c.current

	if elapsed < c.minPerformance {
		c.state = StateIncomplete
		c.mu.Unlock()
		return c.finishIncomplete(ctx, song, elapsed)
	}
	c.state = StateScoring
	c.mu.Unlock()
	return c.finishScored(ctx, song)
}

func (c *Controller) finishIncomplete(ctx context.Context, song model.Song, elapsed time.Duration) (Result, error) {
	metrics.RecordSessionIncomplete()
	c.log.Info(ctx, "performance incomplete",
		logger.String("number", song.Number),
		logger.Duration("elapsed", elapsed),
	)
	if err := c.effects.Play(ctx, scoring.TierIncomplete); err != nil {
		c.log.Warn(ctx, "incomplete effect failed", logger.Error(err))
	}
	if err := c.delay(ctx, c.returnDelay); err != nil {
		c.toIdle()
		return Result{Incomplete: true}, err
	}
	c.toIdle()
	return Result{Incomplete: true}, nil
}

func (c *Controller) finishScored(ctx context.Context, song model.Song) (Result, error) {
	score := c.scores.Generate()
	tier := scoring.TierFor(score)
	res := Result{Score: score, Tier: tier}

	if err := c.effects.Play(ctx, scoring.TierDrums); err != nil {
		c.log.Warn(ctx, "drum roll effect failed", logger.Error(err))
	}
	if err := c.delay(ctx, c.revealDelay); err != nil {
		c.toIdle()
		return res, err
	}
	if err := c.effects.Play(ctx, tier); err != nil {
		c.log.Warn(ctx, "tier effect failed", logger.Error(err))
	}

	performer, err := c.resolvePerformer(ctx)
	if err != nil {
		c.log.Error(ctx, "performer resolution failed; score not committed", logger.Error(err))
	}
	if performer != nil {
		entry, err := c.ranking.AddEntry(ctx, song, performer.Singer, score)
		if err != nil {
			c.log.Error(ctx, "ranking commit failed", logger.Error(err))
		} else {
			res.Committed = true
			res.Entry = entry
			if err := c.queue.DequeueAt(ctx, 0); err != nil {
				c.log.Warn(ctx, "post-commit dequeue failed", logger.Error(err))
			}
		}
	}

	metrics.RecordSessionScored()
	c.log.Info(ctx, "performance scored",
		logger.String("number", song.Number),
		logger.Int("score", score),
		logger.String("tier", string(tier)),
	)

	if err := c.delay(ctx, c.returnDelay); err != nil {
		c.toIdle()
		return res, err
	}
	c.toIdle()
	return res, nil
}

// resolvePerformer names the singer a finished performance is credited
// to. The credited singer is whoever sits at the head of the queue at
// scoring time, not necessarily whoever started playback. The policy is
// isolated here so it can change without touching the scoring pipeline.
func (c *Controller) resolvePerformer(ctx context.Context) (*model.QueueEntry, error) {
	entries, err := c.queue.GetQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve performer: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	head := entries[0]
	return &head, nil
}

func (c *Controller) toIdle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
	c.current = model.Song{}
	c.startedAt = time.Time{}
}

// Snapshot returns the last landing-view refresh.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Run drives the idle polling loop until ctx is cancelled. While any
// performance is in flight the loop skips refreshes; admin edits from
// other sessions surface within one poll interval of going idle.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if err := c.delay(ctx, c.pollInterval); err != nil {
			return err
		}
		if c.State() != StateIdle {
			continue
		}
		c.refresh(ctx)
	}
}

// refresh pulls queue, ranking and settings. Each section degrades
// independently; one failing read keeps the previous section value.
func (c *Controller) refresh(ctx context.Context) {
	snap := c.Snapshot()

	if entries, err := c.queue.GetQueue(ctx); err == nil {
		snap.Queue = entries
	} else {
		c.log.Warn(ctx, "queue refresh failed", logger.Error(err))
	}
	if entries, err := c.ranking.Top(ctx, 0); err == nil {
		snap.Ranking = entries
	} else {
		c.log.Warn(ctx, "ranking refresh failed", logger.Error(err))
	}
	if settings, err := c.settings.Settings(ctx); err == nil {
		snap.Settings = settings
	} else {
		c.log.Warn(ctx, "settings refresh failed", logger.Error(err))
	}
	snap.RefreshedAt = c.clk.Now()

	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()
}
