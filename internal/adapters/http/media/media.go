// Package media serves video and sound files over HTTP, including byte
// range requests for browser seek and scrub.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/mfcastro/palco/internal/adapters/http/api"
	"github.com/mfcastro/palco/internal/mediastore"
	"github.com/mfcastro/palco/pkg/logger"
	"github.com/mfcastro/palco/pkg/metrics"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// Server wires the media streaming routes.
type Server struct {
	store *mediastore.Store
	log   logger.Logger
}

// NewServer creates a media server over the given store.
func NewServer(store *mediastore.Store, opts ...Option) *Server {
	s := &Server{
		store: store,
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches the media routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/videos/", api.MetricsMiddleware(s.handleVideo, "videos"))
	mux.HandleFunc("/sounds/", api.MetricsMiddleware(s.handleSound, "sounds"))
	mux.HandleFunc("/test", api.MetricsMiddleware(s.handleTest, "test"))
}

// handleVideo serves GET /videos/{filename} with optional byte-range
// support: 206 with the exact requested window, or 200 with the whole
// file when no Range header is present.
func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/videos/")

	f, info, err := s.store.OpenVideo(name)
	if err != nil {
		s.writeMediaError(w, r, "video", name, err)
		return
	}
	defer f.Close()
	size := info.Size()

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		w.Header().Set("Content-Type", mediastore.VideoContentType)
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		n, _ := io.Copy(w, f)
		metrics.RecordVideoBytes(n)
		metrics.RecordMediaRequest("video", "full")
		return
	}

	br, err := mediastore.ParseRange(rangeHeader, size)
	switch {
	case errors.Is(err, mediastore.ErrUnsatisfiable):
		w.Header().Set("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
		http.Error(w, "requested range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		metrics.RecordMediaRequest("video", "unsatisfiable")
		return
	case err != nil:
		http.Error(w, "malformed range header", http.StatusBadRequest)
		metrics.RecordMediaRequest("video", "bad_range")
		return
	}

	if _, err := f.Seek(br.Start, io.SeekStart); err != nil {
		http.Error(w, "seek failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Range", br.ContentRange(size))
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", strconv.FormatInt(br.Length(), 10))
	w.Header().Set("Content-Type", mediastore.VideoContentType)
	w.WriteHeader(http.StatusPartialContent)

	n, _ := io.CopyN(w, f, br.Length())
	metrics.RecordVideoBytes(n)
	metrics.RecordMediaRequest("video", "partial")

	s.log.Debug(r.Context(), "served video range",
		logger.String("file", name),
		logger.Int64("start", br.Start),
		logger.Int64("end", br.End),
		logger.Int64("size", size),
	)
}

// handleSound serves GET /sounds/{filename} for the allow-listed audio
// extensions; no range support is needed for the short effect files.
func (s *Server) handleSound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/sounds/")

	f, info, mime, err := s.store.OpenSound(name)
	if err != nil {
		s.writeMediaError(w, r, "sound", name, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, f)
	metrics.RecordMediaRequest("sound", "ok")
}

// handleTest answers the liveness probe.
func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "karaoke media server running"})
}

func (s *Server) writeMediaError(w http.ResponseWriter, r *http.Request, kind, name string, err error) {
	switch {
	case errors.Is(err, mediastore.ErrNotFound):
		http.Error(w, kind+" file not found", http.StatusNotFound)
		metrics.RecordMediaRequest(kind, "not_found")
	case errors.Is(err, mediastore.ErrUnsafeName):
		http.Error(w, "invalid filename", http.StatusBadRequest)
		metrics.RecordMediaRequest(kind, "unsafe_name")
	case errors.Is(err, mediastore.ErrBadExtension):
		http.Error(w, "file type not allowed", http.StatusBadRequest)
		metrics.RecordMediaRequest(kind, "bad_extension")
	default:
		s.log.Error(r.Context(), "media open failed",
			logger.String("kind", kind),
			logger.String("file", name),
			logger.Error(err),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		metrics.RecordMediaRequest(kind, "error")
	}
}
