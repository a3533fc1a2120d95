package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yangwenmai/storyverse/internal/backend"
	"github.com/yangwenmai/storyverse/internal/model"
	"github.com/yangwenmai/storyverse/internal/notify"
	"github.com/yangwenmai/storyverse/internal/preview"
	"github.com/yangwenmai/storyverse/internal/store"
	"github.com/yangwenmai/storyverse/internal/upload"
)

// maxRequestBody is the maximum allowed JSON request body size (1 MB).
const maxRequestBody int64 = 1 << 20

// warningHeader carries a collection load failure that was read as empty.
const warningHeader = "X-Collection-Warning"

// Uploader forwards media files to the backend.
type Uploader interface {
	Upload(ctx context.Context, kind upload.Kind, filename, contentType string, size int64, r io.Reader) (*upload.Result, error)
}

// Previewer extracts readable text from a page.
type Previewer interface {
	Fetch(ctx context.Context, rawURL string) (*preview.Preview, error)
}

var (
	_ Uploader  = (*upload.Client)(nil)
	_ Previewer = (*preview.Fetcher)(nil)
)

// Deps are the server's collaborators. Uploader and Previewer may be nil,
// which disables their routes.
type Deps struct {
	Characters  *store.Characters
	Storyboards *store.Storyboards
	History     *store.SearchHistory
	Recent      *store.RecentSearches
	Notifier    *notify.Notifier
	Backend     backend.Service
	Uploader    Uploader
	Previewer   Previewer
	Logger      *zap.Logger
	// CORSOrigin is the allowed CORS origin. Empty means "*".
	CORSOrigin string
}

// Server holds the HTTP handlers and dependencies.
type Server struct {
	Deps
	mux      *http.ServeMux
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// New creates a new API server.
func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.CORSOrigin == "" {
		d.CORSOrigin = "*"
	}
	srv := &Server{
		Deps:   d,
		mux:    http.NewServeMux(),
		logger: d.Logger.Named("api"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	srv.routes()
	return srv
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	root := http.NewServeMux()
	root.Handle("GET /metrics", promhttp.Handler())
	root.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	root.HandleFunc("GET /api/events", s.handleEvents)
	root.Handle("POST /api/upload/{kind}", jsonContent(http.HandlerFunc(s.handleUpload)))
	root.Handle("/", limitBody(jsonContent(s.mux)))
	return corsMiddleware(s.CORSOrigin, root)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/characters", listEntries(s.Characters))
	s.mux.HandleFunc("GET /api/characters/{id}", getEntry(s.Characters))
	s.mux.HandleFunc("POST /api/characters", s.handleSaveCharacter)
	s.mux.HandleFunc("POST /api/characters/{id}/favorite", toggleFavorite(s, s.Characters))
	s.mux.HandleFunc("DELETE /api/characters/{id}", deleteEntry(s, s.Characters))
	s.mux.HandleFunc("DELETE /api/characters", clearEntries(s, s.Characters))

	s.mux.HandleFunc("GET /api/storyboards", listEntries(s.Storyboards))
	s.mux.HandleFunc("GET /api/storyboards/{id}", getEntry(s.Storyboards))
	s.mux.HandleFunc("POST /api/storyboards", s.handleSaveStoryboard)
	s.mux.HandleFunc("POST /api/storyboards/{id}/favorite", toggleFavorite(s, s.Storyboards))
	s.mux.HandleFunc("DELETE /api/storyboards/{id}", deleteEntry(s, s.Storyboards))
	s.mux.HandleFunc("DELETE /api/storyboards", clearEntries(s, s.Storyboards))

	s.mux.HandleFunc("GET /api/history", listEntries(s.History))
	s.mux.HandleFunc("GET /api/history/{id}", getEntry(s.History))
	s.mux.HandleFunc("POST /api/history", s.handleSaveHistory)
	s.mux.HandleFunc("DELETE /api/history/{id}", deleteEntry(s, s.History))
	s.mux.HandleFunc("DELETE /api/history", clearEntries(s, s.History))

	s.mux.HandleFunc("GET /api/recent-searches", s.handleListRecent)
	s.mux.HandleFunc("POST /api/recent-searches", s.handleAddRecent)

	s.mux.HandleFunc("POST /api/search", s.handleSearch)
	s.mux.HandleFunc("POST /api/generate/{endpoint}", s.handleGenerate)
	s.mux.HandleFunc("GET /api/preview", s.handlePreview)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// corsMiddleware sets CORS headers for origin.
func corsMiddleware(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", warningHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody restricts the request body to maxRequestBody bytes.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		next.ServeHTTP(w, r)
	})
}

func jsonContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps an error to its HTTP status and client-facing message.
func errorStatus(err error) (int, string) {
	var (
		httpErr     *backend.HTTPError
		backendErr  *backend.BackendError
		maxBytesErr *http.MaxBytesError
	)
	switch {
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrFavoritesUnsupported):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, model.ErrConfirmationDeclined):
		return http.StatusPreconditionRequired, "confirmation required: repeat the request with confirm=true"
	case errors.Is(err, model.ErrQuotaExceeded):
		return http.StatusInsufficientStorage, err.Error()
	case errors.Is(err, model.ErrUnreadable):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, upload.ErrTooLarge), errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, upload.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, err.Error()
	case errors.As(err, &backendErr):
		return http.StatusBadGateway, backendErr.Error()
	case errors.As(err, &httpErr):
		return http.StatusBadGateway, httpErr.Message()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "backend timed out"
	}
	return http.StatusInternalServerError, "internal error"
}

func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeError(w, status, msg)
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return fmt.Errorf("invalid JSON body: %w", model.ErrInvalidInput)
	}
	return nil
}
