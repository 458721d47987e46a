package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vexrag/vexrag/chunk"
	"github.com/vexrag/vexrag/config"
	"github.com/vexrag/vexrag/errs"
	"github.com/vexrag/vexrag/index"
	"github.com/vexrag/vexrag/retrieval"
)

type handler struct {
	indexer  *index.Indexer
	pipeline *retrieval.Pipeline
	cfg      config.Config
}

func newHandler(ix *index.Indexer, pipeline *retrieval.Pipeline, cfg config.Config) *handler {
	return &handler{indexer: ix, pipeline: pipeline, cfg: cfg}
}

// POST /index
func (h *handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	var req struct {
		Path       string `json:"path"`
		Project    string `json:"project,omitempty"`
		Sanitize   *bool  `json:"sanitize,omitempty"` // nil defers to indexing.enable_sanitization
		StrictMode bool   `json:"strict_mode,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	doSanitize := h.cfg.Indexing.EnableSanitization
	if req.Sanitize != nil {
		doSanitize = *req.Sanitize
	}

	opts := index.Options{
		Project:          req.Project,
		Scan:             true,
		StrictMode:       req.StrictMode,
		Sanitize:         doSanitize,
		AllowedBasePaths: h.cfg.Security.AllowedBasePaths,
		ChunkOptions:     chunk.Options{Size: h.cfg.Chunk.Size, MinSize: h.cfg.Chunk.MinSize},
		ContextWorkers:   h.cfg.ContextGen.MaxWorkers,
	}

	n, err := h.indexer.IndexFile(ctx, req.Path, opts)
	if err != nil {
		writeIndexError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"path":     req.Path,
		"passages": n,
	})
}

// POST /search
func (h *handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req struct {
		Query         string `json:"query"`
		TopK          int    `json:"top_k,omitempty"`
		Hybrid        bool   `json:"hybrid,omitempty"`
		Rerank        bool   `json:"rerank,omitempty"`
		Citations     bool   `json:"citations,omitempty"`
		FilePath      string `json:"file_path,omitempty"`
		SourceProject string `json:"source_project,omitempty"`
		FileType      string `json:"file_type,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	opts := retrieval.DefaultOptions()
	if req.TopK > 0 {
		opts.TopK = req.TopK
	}
	opts.EnableBM25 = req.Hybrid
	opts.EnableRerank = req.Rerank
	opts.Filters = retrieval.Filters{
		FilePath:      req.FilePath,
		SourceProject: req.SourceProject,
		FileType:      req.FileType,
	}

	results := h.pipeline.Retrieve(ctx, req.Query, opts)

	if req.Citations {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"documents": retrieval.FormatCitations(results),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
	})
}

// DELETE /files/{path...}
func (h *handler) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	n, err := h.indexer.DeleteByFile(r.Context(), "/"+path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "delete failed")
		slog.Error("delete error", "path", path, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"path":    path,
		"deleted": n,
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// writeIndexError maps the errs taxonomy to HTTP status codes: security
// and path violations, unsupported formats, and empty documents are client
// errors, everything else is internal.
func writeIndexError(w http.ResponseWriter, err error) {
	kind, ok := errs.Of(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, "indexing failed")
		slog.Error("index error", "error", err)
		return
	}

	switch kind {
	case errs.PathTraversal, errs.SecurityViolation, errs.UnsupportedFormat, errs.EmptyDocument:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
		slog.Error("index error", "kind", kind, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf("%s", msg)})
}
