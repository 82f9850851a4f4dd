// Package queue maintains the ordered singer queue with dense 1-based
// positions.
package queue

import (
	"context"
	"errors"
	"fmt"

	repository "github.com/mfcastro/palco/internal/adapters/repository"
	"github.com/mfcastro/palco/internal/domain/model"
	"github.com/mfcastro/palco/pkg/logger"
	"github.com/mfcastro/palco/pkg/metrics"
)

// ErrInvalidIndex signals an out-of-range queue index.
var ErrInvalidIndex = errors.New("invalid queue index")

// Store is the slice of the relational store the queue depends on.
type Store interface {
	ListQueue(ctx context.Context) ([]repository.QueueRow, error)
	MaxQueuePosition(ctx context.Context) (int, error)
	InsertQueueRow(ctx context.Context, row repository.QueueRow) (repository.QueueRow, error)
	UpdateQueuePosition(ctx context.Context, id string, position int) error
	DeleteQueueRow(ctx context.Context, id string) error
	ClearQueue(ctx context.Context) error
}

// SongResolver resolves a queue row's song reference by identifier.
type SongResolver interface {
	GetSongByID(ctx context.Context, id string) (model.Song, error)
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// Manager orders singers by a persisted position field. After every
// structural change it rewrites positions to a dense 1..N sequence.
// Renormalization is read-modify-write without isolation; concurrent
// mutators race, which is accepted for a single admin console.
type Manager struct {
	store Store
	songs SongResolver
	log   logger.Logger
}

// New creates a Manager.
func New(store Store, songs SongResolver, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		songs: songs,
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetQueue returns all entries ordered by position ascending, each with
// its song resolved. A row whose song no longer exists fails the whole
// read; queue references are expected to be live.
func (m *Manager) GetQueue(ctx context.Context) ([]model.QueueEntry, error) {
	rows, err := m.store.ListQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("get queue: %w", err)
	}

	entries := make([]model.QueueEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := m.resolve(ctx, row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	metrics.UpdateQueueLength(len(entries))
	return entries, nil
}

// Enqueue appends a singer at the tail: position max+1, or 1 when empty.
func (m *Manager) Enqueue(ctx context.Context, song model.Song, singer string) (model.QueueEntry, error) {
	maxPos, err := m.store.MaxQueuePosition(ctx)
	if err != nil {
		return model.QueueEntry{}, fmt.Errorf("enqueue: %w", err)
	}

	row, err := m.store.InsertQueueRow(ctx, repository.QueueRow{
		SongID:     song.ID,
		SingerName: singer,
		Position:   maxPos + 1,
	})
	if err != nil {
		return model.QueueEntry{}, fmt.Errorf("enqueue: %w", err)
	}

	metrics.RecordQueueMutation("enqueue")
	m.log.Debug(ctx, "enqueued singer",
		logger.String("singer", singer),
		logger.String("song", song.Number),
		logger.Int("position", row.Position),
	)

	return model.QueueEntry{
		ID:        row.ID,
		Song:      song,
		Singer:    singer,
		Position:  row.Position,
		CreatedAt: row.CreatedAt,
	}, nil
}

// DequeueAt removes the entry at the given 0-based ordinal index and
// renormalizes the remaining positions.
func (m *Manager) DequeueAt(ctx context.Context, index int) error {
	rows, err := m.store.ListQueue(ctx)
	if err != nil {
		return fmt.Errorf("dequeue: %w", err)
	}
	if index < 0 || index >= len(rows) {
		return ErrInvalidIndex
	}

	if err := m.store.DeleteQueueRow(ctx, rows[index].ID); err != nil {
		return fmt.Errorf("dequeue: %w", err)
	}

	metrics.RecordQueueMutation("dequeue")
	return m.renormalize(ctx)
}

// MoveItem swaps the positions of the entries at fromIndex and toIndex,
// then renormalizes so the final ordering is dense and consistent even if
// the swap alone would have produced duplicates.
func (m *Manager) MoveItem(ctx context.Context, fromIndex, toIndex int) error {
	rows, err := m.store.ListQueue(ctx)
	if err != nil {
		return fmt.Errorf("move: %w", err)
	}
	if fromIndex < 0 || toIndex < 0 || fromIndex >= len(rows) || toIndex >= len(rows) {
		return ErrInvalidIndex
	}

	if err := m.store.UpdateQueuePosition(ctx, rows[fromIndex].ID, toIndex+1); err != nil {
		return fmt.Errorf("move: %w", err)
	}
	if err := m.store.UpdateQueuePosition(ctx, rows[toIndex].ID, fromIndex+1); err != nil {
		return fmt.Errorf("move: %w", err)
	}

	metrics.RecordQueueMutation("move")
	return m.renormalize(ctx)
}

// Clear deletes all entries unconditionally.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.ClearQueue(ctx); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	metrics.RecordQueueMutation("clear")
	metrics.UpdateQueueLength(0)
	return nil
}

// renormalize rewrites every live position to its 1-based ordinal rank in
// current-position order, closing any gaps a mutation left behind.
func (m *Manager) renormalize(ctx context.Context) error {
	rows, err := m.store.ListQueue(ctx)
	if err != nil {
		return fmt.Errorf("renormalize: %w", err)
	}
	for i, row := range rows {
		if err := m.store.UpdateQueuePosition(ctx, row.ID, i+1); err != nil {
			return fmt.Errorf("renormalize: %w", err)
		}
	}
	metrics.UpdateQueueLength(len(rows))
	return nil
}

func (m *Manager) resolve(ctx context.Context, row repository.QueueRow) (model.QueueEntry, error) {
	song, err := m.songs.GetSongByID(ctx, row.SongID)
	if err != nil {
		return model.QueueEntry{}, fmt.Errorf("queue entry %s references song %s: %w", row.ID, row.SongID, err)
	}
	return model.QueueEntry{
		ID:        row.ID,
		Song:      song,
		Singer:    row.SingerName,
		Position:  row.Position,
		CreatedAt: row.CreatedAt,
	}, nil
}
