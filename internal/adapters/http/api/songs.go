package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mfcastro/palco/internal/domain/model"
)

// SongsDependencies defines the interface for catalog operations.
type SongsDependencies interface {
	Songs(ctx context.Context) ([]model.Song, error)
	SongByKey(ctx context.Context, key string) (model.Song, error)
	AddSong(ctx context.Context, s model.Song) (model.Song, error)
	UpdateSong(ctx context.Context, s model.Song) (model.Song, error)
	DeleteSong(ctx context.Context, id string) error
}

// SongsHandler handles catalog requests.
type SongsHandler struct {
	deps SongsDependencies
}

// NewSongsHandler creates a new songs handler.
func NewSongsHandler(deps SongsDependencies) *SongsHandler {
	return &SongsHandler{deps: deps}
}

type songRequest struct {
	Number string `json:"number"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Lyrics string `json:"lyrics"`
}

func (s songRequest) validate() error {
	switch {
	case strings.TrimSpace(s.Number) == "":
		return errors.New("missing number")
	case strings.TrimSpace(s.Title) == "":
		return errors.New("missing title")
	}
	return nil
}

// HandleCollection handles GET and POST /api/songs.
func (h *SongsHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		songs, err := h.deps.Songs(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, songs)
	case http.MethodPost:
		var req songRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		created, err := h.deps.AddSong(r.Context(), model.Song{
			Number: req.Number,
			Title:  req.Title,
			Artist: req.Artist,
			Lyrics: req.Lyrics,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		http.NotFound(w, r)
	}
}

// HandleItem handles GET, PUT and DELETE /api/songs/{key}. GET accepts a
// display number or a row ID; PUT and DELETE address the row ID.
func (h *SongsHandler) HandleItem(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/api/songs/")
	if key == "" || strings.Contains(key, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		song, err := h.deps.SongByKey(r.Context(), key)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, song)
	case http.MethodPut:
		var req songRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		updated, err := h.deps.UpdateSong(r.Context(), model.Song{
			ID:     key,
			Number: req.Number,
			Title:  req.Title,
			Artist: req.Artist,
			Lyrics: req.Lyrics,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := h.deps.DeleteSong(r.Context(), key); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}
