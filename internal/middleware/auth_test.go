package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dsearch/dsearchd/internal/auth"
)

func newTestAuthStore(t *testing.T) *auth.Store {
	t.Helper()
	s, err := auth.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open auth store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRequirePermission_MissingKeyRejected(t *testing.T) {
	store := newTestAuthStore(t)
	mw := NewAuthMiddleware(store, nil)

	handler := mw.RequirePermission(auth.PermissionSearch, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/v1/searcher/search", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequirePermission_InsufficientPermissionRejected(t *testing.T) {
	store := newTestAuthStore(t)
	key, err := store.Create(context.Background(), "k1", "test", []auth.Permission{auth.PermissionSearch}, 0)
	if err != nil {
		t.Fatalf("create key: %v", err)
	}

	mw := NewAuthMiddleware(store, nil)
	handler := mw.RequirePermission(auth.PermissionIndex, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/v1/directories/add", nil)
	req.Header.Set("X-API-Key", key.Secret)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestRequirePermission_ValidKeyAllowed(t *testing.T) {
	store := newTestAuthStore(t)
	key, err := store.Create(context.Background(), "k1", "test", []auth.Permission{auth.PermissionSearch}, 0)
	if err != nil {
		t.Fatalf("create key: %v", err)
	}

	mw := NewAuthMiddleware(store, nil)
	var gotKey auth.Key
	handler := mw.RequirePermission(auth.PermissionSearch, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey, _ = KeyFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/v1/searcher/search", nil)
	req.Header.Set("Authorization", "Bearer "+key.Secret)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotKey.ID != "k1" {
		t.Fatalf("expected key id k1 in context, got %q", gotKey.ID)
	}
}

func TestRequirePermission_RevokedKeyRejected(t *testing.T) {
	store := newTestAuthStore(t)
	key, err := store.Create(context.Background(), "k1", "test", []auth.Permission{auth.PermissionSearch}, 0)
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	if err := store.Revoke(context.Background(), "k1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	mw := NewAuthMiddleware(store, nil)
	handler := mw.RequirePermission(auth.PermissionSearch, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/v1/searcher/search", nil)
	req.Header.Set("X-API-Key", key.Secret)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequirePermission_PublicPathSkipsAuth(t *testing.T) {
	store := newTestAuthStore(t)
	mw := NewAuthMiddleware(store, nil)

	handler := mw.RequirePermission(auth.PermissionRead, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for public path, got %d", w.Code)
	}
}
