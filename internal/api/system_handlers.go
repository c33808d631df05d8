package api

import (
	"net/http"
	"time"

	"github.com/dsearch/dsearchd/internal/apierr"
	"github.com/dsearch/dsearchd/internal/middleware"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, "", map[string]string{"status": "healthy"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, "", map[string]string{
		"name":      "dsearchd",
		"version":   Version,
		"docs_path": "/api/v1",
	})
}

type systemStats struct {
	TotalChunks       int64  `json:"total_chunks"`
	TotalSources      int64  `json:"total_sources"`
	TotalDirectories  int    `json:"total_directories"`
	TotalIndexedFiles int    `json:"total_indexed_files"`
	EmbeddingModel    string `json:"embedding_model"`
	UptimeSeconds     int64  `json:"uptime_seconds"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	chunkStats, err := s.Chunks.Stats(ctx)
	if err != nil {
		middleware.WriteError(w, apierr.ChunkStoreUnavailable(err))
		return
	}

	dirs, err := s.Registry.List(ctx)
	if err != nil {
		middleware.WriteError(w, apierr.Internal(err))
		return
	}

	totalFiles := 0
	for _, d := range dirs {
		states, err := s.Ledger.ListByDirectory(ctx, d.ID)
		if err != nil {
			middleware.WriteError(w, apierr.Internal(err))
			return
		}
		totalFiles += len(states)
	}

	modelName := ""
	if s.Embedder != nil {
		modelName = s.Embedder.Model()
	}

	middleware.WriteJSON(w, http.StatusOK, "", systemStats{
		TotalChunks:       chunkStats.TotalChunks,
		TotalSources:      chunkStats.TotalSources,
		TotalDirectories:  len(dirs),
		TotalIndexedFiles: totalFiles,
		EmbeddingModel:    modelName,
		UptimeSeconds:     int64(time.Since(s.startedAt).Seconds()),
	})
}
