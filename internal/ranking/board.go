// Package ranking maintains the score-ordered leaderboard.
package ranking

import (
	"context"
	"fmt"

	repository "github.com/mfcastro/palco/internal/adapters/repository"
	"github.com/mfcastro/palco/internal/domain/model"
	"github.com/mfcastro/palco/pkg/logger"
	"github.com/mfcastro/palco/pkg/metrics"
)

// DefaultTopN is the board size shown on the landing view.
const DefaultTopN = 5

// Placeholder fields substituted when a ranking row's song reference no
// longer resolves. The historical record outlives catalog deletions.
const (
	placeholderTitle  = "unknown"
	placeholderArtist = "-"
)

// Store is the slice of the relational store the board depends on.
type Store interface {
	TopRanking(ctx context.Context, n int) ([]repository.RankingRow, error)
	InsertRankingRow(ctx context.Context, row repository.RankingRow) (repository.RankingRow, error)
	ClearRanking(ctx context.Context) error
}

// SongResolver resolves a ranking row's song reference. Ranking rows carry
// the song identifier in the same field the rest of the system uses for
// the display number, so the dual-mode catalog lookup is used here.
type SongResolver interface {
	GetSongByNumber(ctx context.Context, key string) (model.Song, error)
}

// Option applies a configuration option to the Board.
type Option func(*Board)

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(b *Board) {
		if log != nil {
			b.log = log
		}
	}
}

// Board is a multiset of scores ordered descending. Ties break by store
// order, which is implementation-defined.
type Board struct {
	store Store
	songs SongResolver
	log   logger.Logger
}

// New creates a Board.
func New(store Store, songs SongResolver, opts ...Option) *Board {
	b := &Board{
		store: store,
		songs: songs,
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Top returns up to n entries ordered by score descending. A row whose
// song no longer resolves is kept with placeholder song fields rather
// than dropped, so the board stays numerically consistent. n defaults to
// DefaultTopN when not positive.
func (b *Board) Top(ctx context.Context, n int) ([]model.RankingEntry, error) {
	if n <= 0 {
		n = DefaultTopN
	}

	rows, err := b.store.TopRanking(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("ranking top: %w", err)
	}

	entries := make([]model.RankingEntry, 0, len(rows))
	for _, row := range rows {
		song, err := b.songs.GetSongByNumber(ctx, row.SongID)
		if err != nil {
			metrics.RecordRankingOrphan()
			b.log.Warn(ctx, "ranking row references missing song; using placeholder",
				logger.String("ranking_id", row.ID),
				logger.String("song_id", row.SongID),
			)
			song = model.Song{
				ID:     row.SongID,
				Number: row.SongID,
				Title:  placeholderTitle,
				Artist: placeholderArtist,
			}
		}
		entries = append(entries, model.RankingEntry{
			ID:        row.ID,
			Song:      song,
			Singer:    row.SingerName,
			Score:     row.Score,
			CreatedAt: row.CreatedAt,
		})
	}
	return entries, nil
}

// AddEntry commits a performance score. The score is expected to be
// produced by the scoring generator and validated at the edge; it is not
// re-validated here.
func (b *Board) AddEntry(ctx context.Context, song model.Song, singer string, score int) (model.RankingEntry, error) {
	row, err := b.store.InsertRankingRow(ctx, repository.RankingRow{
		SongID:     song.ID,
		SingerName: singer,
		Score:      score,
	})
	if err != nil {
		return model.RankingEntry{}, fmt.Errorf("ranking add: %w", err)
	}

	metrics.RecordRankingCommit()
	metrics.RecordScore(score)
	b.log.Info(ctx, "ranking entry committed",
		logger.String("singer", singer),
		logger.String("song", song.Number),
		logger.Int("score", score),
	)

	return model.RankingEntry{
		ID:        row.ID,
		Song:      song,
		Singer:    singer,
		Score:     score,
		CreatedAt: row.CreatedAt,
	}, nil
}

// Clear deletes all entries unconditionally.
func (b *Board) Clear(ctx context.Context) error {
	if err := b.store.ClearRanking(ctx); err != nil {
		return fmt.Errorf("ranking clear: %w", err)
	}
	return nil
}
