package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/mfcastro/palco/internal/domain/model"
)

// QueueDependencies defines the interface for queue operations.
type QueueDependencies interface {
	Queue(ctx context.Context) ([]model.QueueEntry, error)
	Enqueue(ctx context.Context, songKey, singer string) (model.QueueEntry, error)
	DequeueAt(ctx context.Context, index int) error
	MoveQueueItem(ctx context.Context, fromIndex, toIndex int) error
	ClearQueue(ctx context.Context) error
}

// QueueHandler handles singer queue requests.
type QueueHandler struct {
	deps QueueDependencies
}

// NewQueueHandler creates a new queue handler.
func NewQueueHandler(deps QueueDependencies) *QueueHandler {
	return &QueueHandler{deps: deps}
}

type enqueueRequest struct {
	Song   string `json:"song"`
	Singer string `json:"singer"`
}

func (e enqueueRequest) validate() error {
	switch {
	case strings.TrimSpace(e.Song) == "":
		return errors.New("missing song")
	case strings.TrimSpace(e.Singer) == "":
		return errors.New("missing singer")
	}
	return nil
}

type moveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// HandleCollection handles GET, POST and DELETE /api/queue.
func (h *QueueHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries, err := h.deps.Queue(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	case http.MethodPost:
		var req enqueueRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		entry, err := h.deps.Enqueue(r.Context(), req.Song, req.Singer)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	case http.MethodDelete:
		if err := h.deps.ClearQueue(r.Context()); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

// HandleMove handles POST /api/queue/move.
func (h *QueueHandler) HandleMove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.deps.MoveQueueItem(r.Context(), req.From, req.To); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleItem handles DELETE /api/queue/{index}, where index is a 0-based
// ordinal into the current queue order.
func (h *QueueHandler) HandleItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.NotFound(w, r)
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/api/queue/")
	index, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("queue index must be an integer"))
		return
	}
	if err := h.deps.DequeueAt(r.Context(), index); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
