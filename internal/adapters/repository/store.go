// Package repository defines the relational store contract backing the
// catalog, queue, ranking and settings resources.
package repository

import (
	"context"
	"time"

	"github.com/mfcastro/palco/internal/domain/model"
)

// QueueRow is a queue record as persisted, before the song join.
type QueueRow struct {
	ID         string    `db:"id"`
	SongID     string    `db:"song_id"`
	SingerName string    `db:"singer_name"`
	Position   int       `db:"queue_position"`
	CreatedAt  time.Time `db:"created_at"`
}

// RankingRow is a ranking record as persisted, before the song join.
type RankingRow struct {
	ID         string    `db:"id"`
	SongID     string    `db:"song_id"`
	SingerName string    `db:"singer_name"`
	Score      int       `db:"score"`
	CreatedAt  time.Time `db:"created_at"`
}

// SettingsRow is the singleton settings record.
type SettingsRow struct {
	ID               string    `db:"id"`
	VideosPath       string    `db:"videos_path"`
	BackgroundImage  string    `db:"background_image"`
	LowScoreSound    string    `db:"low_score_sound"`
	MediumScoreSound string    `db:"medium_score_sound"`
	HighScoreSound   string    `db:"high_score_sound"`
	DrumsSound       string    `db:"drums_sound"`
	IncompleteSound  string    `db:"incomplete_sound"`
	CreatedAt        time.Time `db:"created_at"`
}

// Store provides CRUD access to the four logical resources. The queue and
// ranking components depend only on paginated ascending selects,
// equality-filtered select/update/delete and insert-with-returning.
type Store interface {
	// Songs. ListSongs returns up to limit rows starting at offset,
	// ordered by number ascending.
	ListSongs(ctx context.Context, offset, limit int) ([]model.Song, error)
	GetSongByID(ctx context.Context, id string) (model.Song, error)
	GetSongByNumber(ctx context.Context, number string) (model.Song, error)
	InsertSong(ctx context.Context, s model.Song) (model.Song, error)
	UpdateSong(ctx context.Context, s model.Song) (model.Song, error)
	DeleteSong(ctx context.Context, id string) error

	// Queue, ordered by position ascending.
	ListQueue(ctx context.Context) ([]QueueRow, error)
	MaxQueuePosition(ctx context.Context) (int, error)
	InsertQueueRow(ctx context.Context, row QueueRow) (QueueRow, error)
	UpdateQueuePosition(ctx context.Context, id string, position int) error
	DeleteQueueRow(ctx context.Context, id string) error
	ClearQueue(ctx context.Context) error

	// Ranking, ordered by score descending.
	TopRanking(ctx context.Context, n int) ([]RankingRow, error)
	InsertRankingRow(ctx context.Context, row RankingRow) (RankingRow, error)
	ClearRanking(ctx context.Context) error

	// Settings singleton.
	GetSettings(ctx context.Context) (SettingsRow, error)
	UpsertSettings(ctx context.Context, row SettingsRow) (SettingsRow, error)

	Close() error
}
