package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mfcastro/palco/internal/domain/model"
	"github.com/mfcastro/palco/internal/domain/scoring"
)

// RankingDependencies defines the interface for ranking operations.
type RankingDependencies interface {
	Ranking(ctx context.Context, limit int) ([]model.RankingEntry, error)
	CommitScore(ctx context.Context, songKey, singer string, score int) (model.RankingEntry, error)
	ClearRanking(ctx context.Context) error
}

// RankingHandler handles score board requests.
type RankingHandler struct {
	deps     RankingDependencies
	maxLimit int
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(deps RankingDependencies, maxLimit int) *RankingHandler {
	return &RankingHandler{deps: deps, maxLimit: maxLimit}
}

type rankingAddRequest struct {
	Song   string `json:"song"`
	Singer string `json:"singer"`
	Score  int    `json:"score"`
}

func (e rankingAddRequest) validate() error {
	switch {
	case strings.TrimSpace(e.Song) == "":
		return errors.New("missing song")
	case strings.TrimSpace(e.Singer) == "":
		return errors.New("missing singer")
	}
	if !scoring.InRange(e.Score) {
		return fmt.Errorf("%w: must be in [%d,%d]", ErrBadScore, scoring.MinScore, scoring.MaxScore)
	}
	return nil
}

// HandleCollection handles GET, POST and DELETE /api/ranking. GET takes an
// optional ?limit=N, defaulting to the board size and capped server-side.
func (h *RankingHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "bad_request", errors.New("limit must be a positive integer"))
				return
			}
			limit = min(n, h.maxLimit)
		}
		entries, err := h.deps.Ranking(r.Context(), limit)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	case http.MethodPost:
		var req rankingAddRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		entry, err := h.deps.CommitScore(r.Context(), req.Song, req.Singer, req.Score)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	case http.MethodDelete:
		if err := h.deps.ClearRanking(r.Context()); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}
