package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dsearch/dsearchd/internal/apierr"
	"github.com/dsearch/dsearchd/internal/middleware"
	"github.com/dsearch/dsearchd/internal/search"
)

type searchRequest struct {
	Query      string  `json:"query"`
	SearchType string  `json:"search_type,omitempty"`
	Limit      int     `json:"limit,omitempty"`
	Threshold  float32 `json:"threshold,omitempty"`
	Alpha      float32 `json:"alpha,omitempty"`
}

type searchResultView struct {
	SourceID     string  `json:"source_id"`
	DisplayName  string  `json:"display_name"`
	Snippet      string  `json:"snippet"`
	Score        float32 `json:"score"`
	FileType     string  `json:"file_type"`
	SizeBytes    int64   `json:"size_bytes"`
	LastModified string  `json:"last_modified,omitempty"`
}

type searchResponse struct {
	Query        string             `json:"query"`
	SearchType   string             `json:"search_type"`
	Results      []searchResultView `json:"results"`
	TotalResults int                `json:"total_results"`
	SearchTimeMs int64              `json:"search_time_ms"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, apierr.InvalidInput("malformed request body: %v", err))
		return
	}
	if req.Query == "" {
		middleware.WriteError(w, apierr.InvalidInput("query is required"))
		return
	}

	mode := search.Mode(req.SearchType)
	switch mode {
	case "":
		mode = search.ModeHybrid
	case search.ModeKeyword, search.ModeSemantic, search.ModeHybrid:
	default:
		middleware.WriteError(w, apierr.InvalidInput("unknown search_type %q", req.SearchType))
		return
	}

	q := search.Query{
		Text:      req.Query,
		Mode:      mode,
		Limit:     req.Limit,
		Alpha:     req.Alpha,
		Threshold: req.Threshold,
	}

	results, err := s.Search.Search(r.Context(), q)
	duration := time.Since(start)
	if s.Logger != nil {
		s.Logger.LogSearchQuery(r.Context(), string(mode), err == nil, duration)
	}
	if s.Metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.Metrics.RecordVectorSearch(string(mode), status, duration, len(results))
	}
	if err != nil {
		if apiErr, ok := apierr.As(err); ok {
			middleware.WriteError(w, apiErr)
			return
		}
		middleware.WriteError(w, apierr.Internal(err))
		return
	}

	views := make([]searchResultView, len(results))
	for i, res := range results {
		views[i] = toSearchResultView(res)
	}

	middleware.WriteJSON(w, http.StatusOK, "", searchResponse{
		Query:        req.Query,
		SearchType:   string(mode),
		Results:      views,
		TotalResults: len(views),
		SearchTimeMs: duration.Milliseconds(),
	})
}

func toSearchResultView(res search.Result) searchResultView {
	v := searchResultView{
		SourceID: res.SourceID,
		Snippet:  res.Snippet,
		Score:    res.Score,
	}
	v.DisplayName = res.Metadata["display_name"]
	v.FileType = res.Metadata["file_type"]
	v.LastModified = res.Metadata["last_modified"]
	if sz, err := strconv.ParseInt(res.Metadata["size_bytes"], 10, 64); err == nil {
		v.SizeBytes = sz
	}
	if v.DisplayName == "" {
		v.DisplayName = res.SourceID
	}
	return v
}
