package server

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/Paintersrp/recall/internal/search"
	indexsvc "github.com/Paintersrp/recall/internal/services/index"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.cfg.Version,
	})
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.files.Snapshot())
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("since")
	var since int64
	if raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an integer version")
			return
		}
		since = parsed
	}
	writeJSON(w, http.StatusOK, s.files.Changes(since))
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	content, err := s.files.ReadFile(path)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"path": path, "content": content})
	case errors.Is(err, indexsvc.ErrForbidden):
		writeError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, fs.ErrNotExist):
		writeError(w, http.StatusNotFound, "file not found")
	default:
		s.logger.Warn("server: read failed", "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read file")
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeJSON(w, http.StatusOK, map[string]any{"query": query, "results": []search.SimpleResult{}})
		return
	}

	limit := search.NormalizeLimit(q.Get("limit"), search.DefaultSimpleLimit, search.MaxSimpleLimit)

	results := search.SimpleSearch(s.files.Snapshot().Files, s.reader, query, limit, s.logger)
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "results": results})
}

func (s *Server) handleRecallBody(w http.ResponseWriter, r *http.Request) {
	var raw search.RawRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body is required")
			return
		}
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}
	s.recallSearch(w, raw)
}

func (s *Server) handleRecallQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := search.RawRequest{Query: q.Get("query")}
	if !q.Has("query") && q.Has("q") {
		raw.Query = q.Get("q")
	}
	if q.Has("limit") {
		raw.Limit = q.Get("limit")
	}
	if values := q["categories"]; len(values) > 0 {
		categories := make([]any, 0, len(values))
		for _, v := range values {
			for _, part := range strings.Split(v, ",") {
				categories = append(categories, part)
			}
		}
		raw.Categories = categories
	}
	if q.Has("date_from") {
		raw.DateFrom = q.Get("date_from")
	}
	if q.Has("date_to") {
		raw.DateTo = q.Get("date_to")
	}
	s.recallSearch(w, raw)
}

func (s *Server) recallSearch(w http.ResponseWriter, raw search.RawRequest) {
	results, err := s.recall.Search(raw)
	if err != nil {
		var verr *search.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error(), "field": verr.Field})
			return
		}
		s.logger.Error("server: recall failed", "error", err)
		writeError(w, http.StatusInternalServerError, "recall failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   raw.Query,
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleRecallStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.recall.Stats())
}
