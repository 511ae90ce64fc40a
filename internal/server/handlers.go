package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/geronlab/biorag/internal/errs"
	"github.com/geronlab/biorag/internal/models"
	"github.com/geronlab/biorag/internal/storage"
)

// errorBody is the wire shape of every error response.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, errs.CodeValidation, "invalid request body")
		return
	}
	s.logger.Debug("query request", zap.Int("question_chars", len(req.Question)), zap.Int("max_results", req.MaxResults))
	result, err := s.pipeline.Query(r.Context(), req)
	if err != nil {
		s.respondCodedError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, ok, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.logger.Error("get document failed", zap.String("pmid", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if !ok {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	docCount, err := s.storage.CountDocuments(r.Context())
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	resp := map[string]interface{}{
		"documents":   docCount,
		"index_built": false,
		"disk_usage_bytes": storage.DiskUsageBytes(
			s.config.Storage.DatabasePath,
			s.config.Storage.IndexPath,
		),
	}
	if ix, err := s.index.Current(); err == nil {
		resp["index_built"] = true
		resp["chunks"] = ix.Size()
		resp["dimensions"] = ix.Dimensions()
	}
	resp["config"] = map[string]interface{}{
		"embedding_mode":     s.config.Embedding.Mode,
		"generator_provider": s.config.Generator.Provider,
		"default_k":          s.config.Query.DefaultK,
		"retrieval_k":        s.config.Query.RetrievalK,
		"max_context_chunks": s.config.Query.MaxContextChunks,
		"chunk_size":         s.config.Ingest.ChunkSize,
		"chunk_overlap":      s.config.Ingest.ChunkOverlap,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleBuildIndex starts an ingestion run in the background and returns 202.
// Only one run can be in flight; a second request while one is running gets
// 409. The finished artifact is swapped into the serving handle.
func (s *Server) handleBuildIndex(w http.ResponseWriter, r *http.Request) {
	s.buildMu.Lock()
	if s.buildRunning {
		s.buildMu.Unlock()
		s.respondError(w, http.StatusConflict, "BUILD_IN_PROGRESS", "an index build is already running")
		return
	}
	s.buildRunning = true
	s.buildMu.Unlock()

	go func() {
		defer func() {
			s.buildMu.Lock()
			s.buildRunning = false
			s.buildMu.Unlock()
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		stats, err := s.builder.Run(ctx)
		if err != nil {
			s.logger.Error("background index build failed", zap.Error(err))
			return
		}
		if err := s.index.LoadFrom(s.config.Storage.IndexPath); err != nil {
			s.logger.Error("failed to load freshly built index", zap.Error(err))
			return
		}
		s.logger.Info("background index build finished",
			zap.Int("documents", stats.Documents),
			zap.Int("chunks", stats.Chunks))
	}()

	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "building"})
}

// respondCodedError maps the error taxonomy onto HTTP statuses.
func (s *Server) respondCodedError(w http.ResponseWriter, err error) {
	code := errs.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case errs.CodeValidation, errs.CodeInvalidParameter:
		status = http.StatusBadRequest
	case errs.CodeIndexNotBuilt, errs.CodeCorruptedData:
		status = http.StatusServiceUnavailable
	case errs.CodeGeneration:
		status = http.StatusBadGateway
	}
	if status >= 500 {
		s.logger.Error("request failed", zap.String("code", string(code)), zap.Error(err))
	} else {
		s.logger.Debug("request rejected", zap.String("code", string(code)), zap.Error(err))
	}
	if code == "" {
		code = "INTERNAL_ERROR"
	}
	s.respondError(w, status, code, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, code errs.Code, message string) {
	var body errorBody
	body.Error.Code = string(code)
	body.Error.Message = message
	s.respondJSON(w, status, body)
}
