// Package api wires the daemon's collaborators (the directory registry, the
// ingest scheduler, the search engine, and the API key store) into the
// HTTP/JSON surface described in the external interfaces: routing, request
// decoding, permission checks, and response envelopes. Transport-wide
// concerns (CORS, security headers, rate limiting, TLS) live one layer up,
// in internal/middleware and cmd/dsearchd, so this package stays a plain
// collection of net/http handlers.
package api

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dsearch/dsearchd/internal/apierr"
	"github.com/dsearch/dsearchd/internal/auth"
	"github.com/dsearch/dsearchd/internal/chunkstore"
	"github.com/dsearch/dsearchd/internal/config"
	"github.com/dsearch/dsearchd/internal/embedding"
	"github.com/dsearch/dsearchd/internal/ledger"
	"github.com/dsearch/dsearchd/internal/lexindex"
	"github.com/dsearch/dsearchd/internal/middleware"
	"github.com/dsearch/dsearchd/internal/observability"
	"github.com/dsearch/dsearchd/internal/observability/audit"
	"github.com/dsearch/dsearchd/internal/registry"
	secauth "github.com/dsearch/dsearchd/internal/security/auth"
	"github.com/dsearch/dsearchd/internal/scheduler"
	"github.com/dsearch/dsearchd/internal/search"
)

// Version is the daemon's version string, surfaced by /api/info.
const Version = "0.1.0"

// Server holds every collaborator the API handlers need and builds the
// routed http.Handler the daemon serves.
type Server struct {
	Config *config.Config

	Registry  *registry.Store
	Scheduler *scheduler.Scheduler
	Search    *search.Engine
	AuthStore *auth.Store
	JWT       *secauth.JWTManager
	Chunks    *chunkstore.Store
	Ledger    *ledger.Ledger
	Lex       *lexindex.Index
	Embedder  embedding.Embedder
	Logger    *observability.Logger
	Metrics   *observability.MetricsCollector
	Audit     *audit.Logger

	startedAt time.Time
}

// auditLog records an administrative operation if audit logging is
// configured; it is a no-op when Audit is nil or disabled.
func (s *Server) auditLog(r *http.Request, resourceType, resourceID, action string, success bool) {
	if s.Audit == nil {
		return
	}
	userID := ""
	if key, ok := middleware.KeyFromContext(r.Context()); ok {
		userID = key.ID
	}
	s.Audit.LogOperation(r.Context(), resourceType, resourceID, action, success, 0, userID)
}

// New creates a Server. startedAt is recorded for uptime reporting in
// /api/v1/stats/system.
func New(cfg *config.Config, startedAt time.Time) *Server {
	return &Server{Config: cfg, startedAt: startedAt}
}

// Routes builds the daemon's route table. Routes not listed as public in
// internal/middleware's auth gate are wrapped with RequirePermission for
// the permission the operation requires: search routes need search,
// directory mutation needs index, key-lifecycle routes are checked
// separately via the X-Admin-Key header, and read-only stats need read.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	am := middleware.NewAuthMiddleware(s.AuthStore, s.JWT)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/info", s.handleInfo)

	mux.Handle("POST /api/v1/auth/create-key", s.requireAdminKey(s.handleCreateKey))
	mux.Handle("GET /api/v1/auth/list-keys", s.requireAdminKey(s.handleListKeys))
	mux.Handle("DELETE /api/v1/auth/revoke-key/{key_id}", s.requireAdminKey(s.handleRevokeKey))
	mux.HandleFunc("POST /api/v1/auth/validate-key", s.handleValidateKey)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)

	mux.Handle("POST /api/v1/directories/add", am.RequirePermission(auth.PermissionIndex, http.HandlerFunc(s.handleAddDirectory)))
	mux.Handle("GET /api/v1/directories/list", am.RequirePermission(auth.PermissionIndex, http.HandlerFunc(s.handleListDirectories)))
	mux.Handle("GET /api/v1/directories/status/{path...}", am.RequirePermission(auth.PermissionIndex, http.HandlerFunc(s.handleDirectoryStatus)))
	mux.Handle("POST /api/v1/directories/refresh/{path...}", am.RequirePermission(auth.PermissionIndex, http.HandlerFunc(s.handleRefreshDirectory)))
	mux.Handle("DELETE /api/v1/directories/remove/{path...}", am.RequirePermission(auth.PermissionIndex, http.HandlerFunc(s.handleRemoveDirectory)))

	mux.Handle("POST /api/v1/searcher/search", am.RequirePermission(auth.PermissionSearch, http.HandlerFunc(s.handleSearch)))

	mux.Handle("GET /api/v1/stats/system", am.RequirePermission(auth.PermissionRead, http.HandlerFunc(s.handleStats)))

	return mux
}

// requireAdminKey wraps a key-lifecycle handler with a check against the
// process-wide admin secret, bypassing the per-key permission gate entirely,
// since these routes exist to create the very keys that gate would check.
// A missing admin key in configuration disables the route.
func (s *Server) requireAdminKey(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Config.Auth.AdminKey == "" {
			middleware.WriteError(w, apierr.New(apierr.KindForbidden, "key lifecycle endpoints are disabled: no admin key configured"))
			return
		}
		if r.Header.Get("X-Admin-Key") != s.Config.Auth.AdminKey {
			middleware.WriteError(w, apierr.Unauthenticated("missing or invalid admin key"))
			return
		}
		h(w, r)
	})
}

// deriveDirectoryID computes a stable id for path, so status/refresh/remove
// routes that address a directory by path can look it up without scanning
// the registry. Add uses the same derivation when registering a new
// directory, so the id a client never sees stays consistent across calls.
func deriveDirectoryID(path string) string {
	cleaned := filepath.Clean(path)
	sum := sha256.Sum256([]byte(cleaned))
	return "dir_" + hex.EncodeToString(sum[:])[:16]
}
