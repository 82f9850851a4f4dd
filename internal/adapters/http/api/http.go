// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	repository "github.com/mfcastro/palco/internal/adapters/repository"
	"github.com/mfcastro/palco/internal/domain/model"
	"github.com/mfcastro/palco/internal/queue"
	"github.com/mfcastro/palco/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Catalog operations. SongByKey accepts a display number or a row ID.
	Songs(ctx context.Context) ([]model.Song, error)
	SongByKey(ctx context.Context, key string) (model.Song, error)
	AddSong(ctx context.Context, s model.Song) (model.Song, error)
	UpdateSong(ctx context.Context, s model.Song) (model.Song, error)
	DeleteSong(ctx context.Context, id string) error

	// Queue operations. Indexes are 0-based ordinals into the current order.
	Queue(ctx context.Context) ([]model.QueueEntry, error)
	Enqueue(ctx context.Context, songKey, singer string) (model.QueueEntry, error)
	DequeueAt(ctx context.Context, index int) error
	MoveQueueItem(ctx context.Context, fromIndex, toIndex int) error
	ClearQueue(ctx context.Context) error

	// Ranking operations.
	Ranking(ctx context.Context, limit int) ([]model.RankingEntry, error)
	CommitScore(ctx context.Context, songKey, singer string, score int) (model.RankingEntry, error)
	ClearRanking(ctx context.Context) error

	// Settings singleton.
	Settings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, s model.Settings) (model.Settings, error)
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxRankingLimit caps the ?limit= query on the ranking listing.
func WithMaxRankingLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxRankingLimit = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps            Dependencies
	maxRankingLimit int
	log             logger.Logger

	healthHandler   *HealthHandler
	songsHandler    *SongsHandler
	queueHandler    *QueueHandler
	rankingHandler  *RankingHandler
	settingsHandler *SettingsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:            deps,
		maxRankingLimit: defaultMaxRankingLimit,
		log:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.songsHandler = NewSongsHandler(deps)
	s.queueHandler = NewQueueHandler(deps)
	s.rankingHandler = NewRankingHandler(deps, s.maxRankingLimit)
	s.settingsHandler = NewSettingsHandler(deps)
	return s
}

const defaultMaxRankingLimit = 100

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/api/songs", MetricsMiddleware(s.songsHandler.HandleCollection, "songs"))
	mux.HandleFunc("/api/songs/", MetricsMiddleware(s.songsHandler.HandleItem, "songs"))
	mux.HandleFunc("/api/queue", MetricsMiddleware(s.queueHandler.HandleCollection, "queue"))
	mux.HandleFunc("/api/queue/move", MetricsMiddleware(s.queueHandler.HandleMove, "queue"))
	mux.HandleFunc("/api/queue/", MetricsMiddleware(s.queueHandler.HandleItem, "queue"))
	mux.HandleFunc("/api/ranking", MetricsMiddleware(s.rankingHandler.HandleCollection, "ranking"))
	mux.HandleFunc("/api/settings", MetricsMiddleware(s.settingsHandler.HandleSettings, "settings"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps well-known domain errors onto the HTTP taxonomy.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, queue.ErrInvalidIndex):
		writeError(w, http.StatusBadRequest, "invalid_index", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// decodeJSON reads a request body into v, rejecting unknown noise lazily:
// the handlers validate the fields they care about after decode.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return ErrBadRequest
	}
	return nil
}
