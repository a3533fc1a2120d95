package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/yangwenmai/storyverse/internal/backend"
	"github.com/yangwenmai/storyverse/internal/model"
	"github.com/yangwenmai/storyverse/internal/store"
	"github.com/yangwenmai/storyverse/internal/upload"
)

// ---------------------------------------------------------------------------
// Shared collection handlers
// ---------------------------------------------------------------------------

// warnOnLoadFailure exposes a load failure that was read as empty.
func warnOnLoadFailure[T model.Entry](w http.ResponseWriter, c *store.Collection[T]) {
	if err := c.LastLoadError(); err != nil {
		w.Header().Set(warningHeader, c.Key()+": "+err.Error())
	}
}

// confirmed marks the request context as confirmed when ?confirm=true.
func confirmed(r *http.Request) *http.Request {
	return r.WithContext(store.WithConfirmed(r.Context(), r.URL.Query().Get("confirm") == "true"))
}

// GET /api/{collection}?q=
func listEntries[T model.Entry](c *store.Collection[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := c.Filter(r.Context(), r.URL.Query().Get("q"))
		warnOnLoadFailure(w, c)
		writeJSON(w, http.StatusOK, items)
	}
}

// GET /api/{collection}/{id}
func getEntry[T model.Entry](c *store.Collection[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := c.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// POST /api/{collection}/{id}/favorite
func toggleFavorite[T model.Entry](s *Server, c *store.Collection[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, found, err := c.ToggleFavorite(r.Context(), r.PathValue("id"))
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// DELETE /api/{collection}/{id}?confirm=true
func deleteEntry[T model.Entry](s *Server, c *store.Collection[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r = confirmed(r)
		id := r.PathValue("id")
		deleted, err := c.Delete(r.Context(), id)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": deleted})
	}
}

// DELETE /api/{collection}?confirm=true
func clearEntries[T model.Entry](s *Server, c *store.Collection[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r = confirmed(r)
		if err := c.ClearAll(r.Context()); err != nil {
			s.writeFailure(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ---------------------------------------------------------------------------
// POST /api/characters
// ---------------------------------------------------------------------------

type saveCharacterRequest struct {
	Data     json.RawMessage `json:"data"`
	ImageURL string          `json:"image_url"`
}

func (s *Server) handleSaveCharacter(w http.ResponseWriter, r *http.Request) {
	var req saveCharacterRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if len(req.Data) == 0 || string(req.Data) == "null" {
		writeError(w, http.StatusBadRequest, "data is required")
		return
	}

	c := model.NewSavedCharacter(model.NewID(), req.Data, req.ImageURL)
	if err := s.Characters.Save(r.Context(), c); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ---------------------------------------------------------------------------
// POST /api/storyboards
// ---------------------------------------------------------------------------

type saveStoryboardRequest struct {
	Title      string       `json:"title"`
	Script     string       `json:"script"`
	Style      string       `json:"style"`
	Shots      int          `json:"shots"`
	Storyboard []model.Shot `json:"storyboard"`
}

func (s *Server) handleSaveStoryboard(w http.ResponseWriter, r *http.Request) {
	var req saveStoryboardRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if len(req.Storyboard) == 0 {
		writeError(w, http.StatusBadRequest, "storyboard is required")
		return
	}
	if req.Shots == 0 {
		req.Shots = len(req.Storyboard)
	}

	sb := model.NewSavedStoryboard(model.NewID(), req.Title, req.Script, req.Style, req.Shots, req.Storyboard)
	if err := s.Storyboards.Save(r.Context(), sb); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sb)
}

// ---------------------------------------------------------------------------
// POST /api/history
// ---------------------------------------------------------------------------

type saveHistoryRequest struct {
	Query   string               `json:"query"`
	Type    string               `json:"type"`
	Results []model.SearchResult `json:"results"`
}

func (s *Server) handleSaveHistory(w http.ResponseWriter, r *http.Request) {
	var req saveHistoryRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.Type == "" {
		req.Type = "general"
	}

	e := model.NewSearchHistoryEntry(model.NewID(), req.Query, req.Type, req.Results)
	if err := s.History.Save(r.Context(), e); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// ---------------------------------------------------------------------------
// /api/recent-searches
// ---------------------------------------------------------------------------

func (s *Server) handleListRecent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Recent.List(r.Context()))
}

type addRecentRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleAddRecent(w http.ResponseWriter, r *http.Request) {
	var req addRecentRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	queries, err := s.Recent.Add(r.Context(), req.Query)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, queries)
}

// ---------------------------------------------------------------------------
// POST /api/search
// ---------------------------------------------------------------------------

type searchResponse struct {
	*backend.SearchResponse
	HistoryID string `json:"history_id,omitempty"`
}

// handleSearch runs an enhanced search and records it in the search history
// and the recent searches. A failure to record is reported in the warning
// header; the results are returned either way.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req backend.SearchRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	req.Query = strings.TrimSpace(req.Query)

	resp, err := s.Backend.EnhancedSearch(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	searchType := req.SearchType
	if searchType == "" {
		searchType = "general"
	}
	entry := model.NewSearchHistoryEntry(model.NewID(), req.Query, searchType, resp.Results)
	out := searchResponse{SearchResponse: resp}
	if err := s.History.Save(r.Context(), entry); err != nil {
		s.logger.Warn("record search history", zap.Error(err))
		w.Header().Add(warningHeader, store.KeySearchHistory+": "+err.Error())
	} else {
		out.HistoryID = entry.ID
	}
	if _, err := s.Recent.Add(r.Context(), req.Query); err != nil {
		s.logger.Warn("record recent search", zap.Error(err))
		w.Header().Add(warningHeader, store.KeyRecentSearches+": "+err.Error())
	}

	writeJSON(w, http.StatusOK, out)
}

// ---------------------------------------------------------------------------
// POST /api/generate/{endpoint}
// ---------------------------------------------------------------------------

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	resp, err := backend.Call(r.Context(), s.Backend, backend.Endpoint(r.PathValue("endpoint")), body)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if ht, ok := resp.(*backend.HotTopicsResponse); ok {
		ht.Topics = backend.SortTopicsByHeat(ht.Topics)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---------------------------------------------------------------------------
// POST /api/upload/{kind}
// ---------------------------------------------------------------------------

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.Uploader == nil {
		writeError(w, http.StatusServiceUnavailable, "uploads are unavailable without a backend")
		return
	}
	kind, err := upload.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxBytes(kind)+maxRequestBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeFailure(w, r, errorOr(err, "invalid multipart body"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer f.Close()

	res, err := s.Uploader.Upload(r.Context(), kind, hdr.Filename, hdr.Header.Get("Content-Type"), hdr.Size, f)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// errorOr keeps body-size errors and turns anything else into a validation error.
func errorOr(err error, msg string) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return err
	}
	return fmt.Errorf("%s: %w", msg, model.ErrInvalidInput)
}

// ---------------------------------------------------------------------------
// GET /api/preview?url=
// ---------------------------------------------------------------------------

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.Previewer == nil {
		writeError(w, http.StatusServiceUnavailable, "previews are disabled")
		return
	}
	p, err := s.Previewer.Fetch(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		status, msg := errorStatus(err)
		if status == http.StatusInternalServerError {
			status, msg = http.StatusBadGateway, err.Error()
		}
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
