package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite driver

	"github.com/mfcastro/palco/internal/domain/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS songs (
	id TEXT PRIMARY KEY,
	number TEXT NOT NULL,
	title TEXT NOT NULL,
	artist TEXT NOT NULL,
	lyrics TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_songs_number ON songs(number);

CREATE TABLE IF NOT EXISTS queue (
	id TEXT PRIMARY KEY,
	song_id TEXT NOT NULL,
	singer_name TEXT NOT NULL,
	queue_position INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS ranking (
	id TEXT PRIMARY KEY,
	song_id TEXT NOT NULL,
	singer_name TEXT NOT NULL,
	score INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ranking_score ON ranking(score DESC);

CREATE TABLE IF NOT EXISTS settings (
	id TEXT PRIMARY KEY,
	videos_path TEXT NOT NULL DEFAULT '',
	background_image TEXT NOT NULL DEFAULT '',
	low_score_sound TEXT NOT NULL DEFAULT '',
	medium_score_sound TEXT NOT NULL DEFAULT '',
	high_score_sound TEXT NOT NULL DEFAULT '',
	drums_sound TEXT NOT NULL DEFAULT '',
	incomplete_sound TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
`

// SQLStore implements Store on a sqlite database via sqlx.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithNowFunc overrides the timestamp source, for deterministic tests.
func WithNowFunc(now func() time.Time) Option {
	return func(s *SQLStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSQLStore opens (or creates) the database at dsn and ensures the
// schema exists.
func NewSQLStore(ctx context.Context, dsn string, opts ...Option) (*SQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	s := &SQLStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) ListSongs(ctx context.Context, offset, limit int) ([]model.Song, error) {
	songs := make([]model.Song, 0, limit)
	err := s.db.SelectContext(ctx, &songs,
		`SELECT id, number, title, artist, lyrics FROM songs ORDER BY number ASC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	return songs, nil
}

func (s *SQLStore) GetSongByID(ctx context.Context, id string) (model.Song, error) {
	var song model.Song
	err := s.db.GetContext(ctx, &song,
		`SELECT id, number, title, artist, lyrics FROM songs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Song{}, ErrNotFound
	}
	if err != nil {
		return model.Song{}, fmt.Errorf("get song by id: %w", err)
	}
	return song, nil
}

func (s *SQLStore) GetSongByNumber(ctx context.Context, number string) (model.Song, error) {
	var song model.Song
	err := s.db.GetContext(ctx, &song,
		`SELECT id, number, title, artist, lyrics FROM songs WHERE number = ?`, number)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Song{}, ErrNotFound
	}
	if err != nil {
		return model.Song{}, fmt.Errorf("get song by number: %w", err)
	}
	return song, nil
}

func (s *SQLStore) InsertSong(ctx context.Context, song model.Song) (model.Song, error) {
	if song.ID == "" {
		song.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO songs (id, number, title, artist, lyrics) VALUES (?, ?, ?, ?, ?)`,
		song.ID, song.Number, song.Title, song.Artist, song.Lyrics)
	if err != nil {
		return model.Song{}, fmt.Errorf("insert song: %w", err)
	}
	return song, nil
}

func (s *SQLStore) UpdateSong(ctx context.Context, song model.Song) (model.Song, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE songs SET number = ?, title = ?, artist = ?, lyrics = ? WHERE id = ?`,
		song.Number, song.Title, song.Artist, song.Lyrics, song.ID)
	if err != nil {
		return model.Song{}, fmt.Errorf("update song: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Song{}, ErrNotFound
	}
	return song, nil
}

func (s *SQLStore) DeleteSong(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete song: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListQueue(ctx context.Context) ([]QueueRow, error) {
	rows := make([]QueueRow, 0)
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, song_id, singer_name, queue_position, created_at
		 FROM queue ORDER BY queue_position ASC`)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	return rows, nil
}

func (s *SQLStore) MaxQueuePosition(ctx context.Context) (int, error) {
	var pos int
	err := s.db.GetContext(ctx, &pos,
		`SELECT COALESCE(MAX(queue_position), 0) FROM queue`)
	if err != nil {
		return 0, fmt.Errorf("max queue position: %w", err)
	}
	return pos, nil
}

func (s *SQLStore) InsertQueueRow(ctx context.Context, row QueueRow) (QueueRow, error) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = s.now()
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO queue (id, song_id, singer_name, queue_position, created_at)
		 VALUES (:id, :song_id, :singer_name, :queue_position, :created_at)`, row)
	if err != nil {
		return QueueRow{}, fmt.Errorf("insert queue row: %w", err)
	}
	return row, nil
}

func (s *SQLStore) UpdateQueuePosition(ctx context.Context, id string, position int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE queue SET queue_position = ? WHERE id = ?`, position, id)
	if err != nil {
		return fmt.Errorf("update queue position: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) DeleteQueueRow(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete queue row: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ClearQueue(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM queue`); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	return nil
}

func (s *SQLStore) TopRanking(ctx context.Context, n int) ([]RankingRow, error) {
	rows := make([]RankingRow, 0, n)
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, song_id, singer_name, score, created_at
		 FROM ranking ORDER BY score DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("top ranking: %w", err)
	}
	return rows, nil
}

func (s *SQLStore) InsertRankingRow(ctx context.Context, row RankingRow) (RankingRow, error) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = s.now()
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO ranking (id, song_id, singer_name, score, created_at)
		 VALUES (:id, :song_id, :singer_name, :score, :created_at)`, row)
	if err != nil {
		return RankingRow{}, fmt.Errorf("insert ranking row: %w", err)
	}
	return row, nil
}

func (s *SQLStore) ClearRanking(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ranking`); err != nil {
		return fmt.Errorf("clear ranking: %w", err)
	}
	return nil
}

func (s *SQLStore) GetSettings(ctx context.Context) (SettingsRow, error) {
	var row SettingsRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, videos_path, background_image, low_score_sound, medium_score_sound,
		        high_score_sound, drums_sound, incomplete_sound, created_at
		 FROM settings LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return SettingsRow{}, ErrNotFound
	}
	if err != nil {
		return SettingsRow{}, fmt.Errorf("get settings: %w", err)
	}
	return row, nil
}

func (s *SQLStore) UpsertSettings(ctx context.Context, row SettingsRow) (SettingsRow, error) {
	existing, err := s.GetSettings(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		row.ID = uuid.NewString()
		row.CreatedAt = s.now()
		_, err = s.db.NamedExecContext(ctx,
			`INSERT INTO settings (id, videos_path, background_image, low_score_sound,
			        medium_score_sound, high_score_sound, drums_sound, incomplete_sound, created_at)
			 VALUES (:id, :videos_path, :background_image, :low_score_sound,
			        :medium_score_sound, :high_score_sound, :drums_sound, :incomplete_sound, :created_at)`, row)
		if err != nil {
			return SettingsRow{}, fmt.Errorf("insert settings: %w", err)
		}
		return row, nil
	case err != nil:
		return SettingsRow{}, err
	default:
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
		_, err = s.db.NamedExecContext(ctx,
			`UPDATE settings SET videos_path = :videos_path, background_image = :background_image,
			        low_score_sound = :low_score_sound, medium_score_sound = :medium_score_sound,
			        high_score_sound = :high_score_sound, drums_sound = :drums_sound,
			        incomplete_sound = :incomplete_sound
			 WHERE id = :id`, row)
		if err != nil {
			return SettingsRow{}, fmt.Errorf("update settings: %w", err)
		}
		return row, nil
	}
}
