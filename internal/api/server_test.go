package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dsearch/dsearchd/internal/auth"
	"github.com/dsearch/dsearchd/internal/chunker"
	"github.com/dsearch/dsearchd/internal/chunkstore"
	"github.com/dsearch/dsearchd/internal/config"
	"github.com/dsearch/dsearchd/internal/embedding"
	"github.com/dsearch/dsearchd/internal/extractor"
	"github.com/dsearch/dsearchd/internal/ingest"
	"github.com/dsearch/dsearchd/internal/ledger"
	"github.com/dsearch/dsearchd/internal/lexindex"
	"github.com/dsearch/dsearchd/internal/registry"
	"github.com/dsearch/dsearchd/internal/scheduler"
	"github.com/dsearch/dsearchd/internal/search"
	"github.com/dsearch/dsearchd/internal/walker"
)

const testAdminKey = "test-admin-secret"

// testHarness wires an in-memory Server the same way cmd/dsearchd does,
// with every backing store opened against ":memory:" so each test starts
// from a clean slate.
type testHarness struct {
	srv     *Server
	handler http.Handler
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	ctx := context.Background()

	chunks, err := chunkstore.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open chunkstore: %v", err)
	}
	t.Cleanup(func() { chunks.Close() })

	led, err := ledger.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { led.Close() })

	reg, err := registry.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	t.Cleanup(func() { reg.Close() })

	authStore, err := auth.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open auth store: %v", err)
	}
	t.Cleanup(func() { authStore.Close() })

	lex := lexindex.New()
	embedder := embedding.NewMock(8)

	pipeline := &ingest.Pipeline{
		Walker:     walker.New(0),
		Extractors: extractor.NewDefaultRegistry(extractor.DefaultMaxFileSize, extractor.DefaultDenyList()),
		Chunker:    chunker.New(0, 0),
		Embedder:   embedder,
		Chunks:     chunks,
		Lex:        lex,
		Ledger:     led,
	}

	sched := scheduler.New(2, pipeline.Run)

	engine := search.New(chunks, lex, embedder)

	cfg := &config.Config{}
	cfg.Auth.AdminKey = testAdminKey

	srv := &Server{
		Config:    cfg,
		Registry:  reg,
		Scheduler: sched,
		Search:    engine,
		AuthStore: authStore,
		Chunks:    chunks,
		Ledger:    led,
		Lex:       lex,
		Embedder:  embedder,
	}

	return &testHarness{srv: srv, handler: srv.Routes()}
}

func (h *testHarness) do(t *testing.T, method, path, apiKey string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

// createKey creates an API key with perms via the admin-gated lifecycle
// route and returns its raw secret.
func (h *testHarness) createKey(t *testing.T, name string, perms ...string) string {
	t.Helper()
	body, _ := json.Marshal(createKeyRequest{Name: name, Permissions: perms})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/create-key", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Key", testAdminKey)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create-key: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data struct {
			APIKey string `json:"api_key"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create-key response: %v", err)
	}
	return resp.Data.APIKey
}

// waitIndexed polls the status route until the directory reaches a
// terminal state or the deadline passes.
func (h *testHarness) waitIndexed(t *testing.T, apiKey, path string) directoryStatusResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := h.do(t, http.MethodGet, "/api/v1/directories/status/"+path, apiKey, "")
		if rec.Code == http.StatusOK {
			var resp struct {
				Data directoryStatusResponse `json:"data"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode status response: %v", err)
			}
			if resp.Data.Status == "indexed" || resp.Data.Status == "failed" {
				return resp.Data
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("directory %s never reached a terminal status", path)
	return directoryStatusResponse{}
}

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// S1: register a directory (which queues its first indexing task), poll until
// indexed, and confirm a keyword search surfaces the file containing the query term at rank one.
func TestRegisterThenSearch(t *testing.T) {
	h := newTestHarness(t)
	key := h.createKey(t, "s1", string(auth.PermissionIndex), string(auth.PermissionSearch))

	dir := t.TempDir()
	writeTestFile(t, dir, "a.txt", "Python is a language. Python is great.")
	writeTestFile(t, dir, "b.txt", "Java is an object-oriented language.")

	rec := h.do(t, http.MethodPost, "/api/v1/directories/add?path="+dir, key, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("add directory: status %d body %s", rec.Code, rec.Body.String())
	}

	status := h.waitIndexed(t, key, dir)
	if status.Status != "indexed" {
		t.Fatalf("expected indexed status, got %q", status.Status)
	}

	searchBody, _ := json.Marshal(searchRequest{Query: "python", SearchType: "keyword", Limit: 10})
	rec = h.do(t, http.MethodPost, "/api/v1/searcher/search", key, string(searchBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("search: status %d body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data searchResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode search response: %v", err)
	}
	if resp.Data.TotalResults < 1 {
		t.Fatalf("expected at least one result, got %d", resp.Data.TotalResults)
	}
	if resp.Data.Results[0].DisplayName != "a.txt" {
		t.Fatalf("expected top result a.txt, got %q", resp.Data.Results[0].DisplayName)
	}
}

// S6: an admin-created key limited to search cannot mutate directories, can
// search, and can no longer search once revoked.
func TestAPIKeyLifecycle(t *testing.T) {
	h := newTestHarness(t)
	key := h.createKey(t, "s6", string(auth.PermissionSearch))

	dir := t.TempDir()
	rec := h.do(t, http.MethodPost, "/api/v1/directories/add?path="+dir, key, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 adding directory with search-only key, got %d", rec.Code)
	}

	searchBody, _ := json.Marshal(searchRequest{Query: "anything", SearchType: "keyword"})
	rec = h.do(t, http.MethodPost, "/api/v1/searcher/search", key, string(searchBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 searching with search key, got %d body %s", rec.Code, rec.Body.String())
	}

	keys, err := h.srv.AuthStore.List(context.Background())
	if err != nil || len(keys) == 0 {
		t.Fatalf("list keys: %v", err)
	}
	var keyID string
	for _, k := range keys {
		if k.Name == "s6" {
			keyID = k.ID
		}
	}
	if keyID == "" {
		t.Fatalf("could not find key id for s6")
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/auth/revoke-key/"+keyID, nil)
	req.Header.Set("X-Admin-Key", testAdminKey)
	revokeRec := httptest.NewRecorder()
	h.handler.ServeHTTP(revokeRec, req)
	if revokeRec.Code != http.StatusOK {
		t.Fatalf("revoke-key: status %d body %s", revokeRec.Code, revokeRec.Body.String())
	}

	rec = h.do(t, http.MethodPost, "/api/v1/searcher/search", key, string(searchBody))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 searching with revoked key, got %d", rec.Code)
	}
}

// S5: cancelling an in-flight indexing task leaves the directory status
// route reporting a terminal state (cancelled, or indexed if the task
// finished first).
func TestCancellationPreservesProgress(t *testing.T) {
	h := newTestHarness(t)
	key := h.createKey(t, "s5", string(auth.PermissionIndex), string(auth.PermissionSearch))

	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		writeTestFile(t, dir, "doc"+strconv.Itoa(i)+".txt", "document body number "+strconv.Itoa(i)+" about gardening and soil")
	}

	rec := h.do(t, http.MethodPost, "/api/v1/directories/add?path="+dir, key, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("add directory: status %d body %s", rec.Code, rec.Body.String())
	}

	var taskID string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if task, ok := h.srv.Scheduler.ForDirectory(deriveDirectoryID(dir)); ok {
			taskID = task.ID
			if task.Progress.FilesProcessed > 0 {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	if taskID == "" {
		t.Fatalf("task never started")
	}

	if err := h.srv.Scheduler.Cancel(taskID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/directories/status/"+dir, key, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data directoryStatusResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if resp.Data.Status != "cancelled" && resp.Data.Status != "indexed" {
		t.Fatalf("expected terminal status after cancel, got %q", resp.Data.Status)
	}
}

// a refresh request issued while a directory is already indexing returns
// the id of the in-flight task instead of submitting a redundant one.
func TestRefreshWhileIndexingReturnsExistingTask(t *testing.T) {
	h := newTestHarness(t)
	key := h.createKey(t, "refresh-dedup", string(auth.PermissionIndex), string(auth.PermissionSearch))

	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		writeTestFile(t, dir, "doc"+strconv.Itoa(i)+".txt", "document body number "+strconv.Itoa(i)+" about gardening and soil")
	}

	rec := h.do(t, http.MethodPost, "/api/v1/directories/add?path="+dir, key, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("add directory: status %d body %s", rec.Code, rec.Body.String())
	}
	var addResp struct {
		Data struct {
			TaskID string `json:"task_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &addResp); err != nil {
		t.Fatalf("decode add response: %v", err)
	}

	rec = h.do(t, http.MethodPost, "/api/v1/directories/refresh/"+dir, key, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("refresh directory: status %d body %s", rec.Code, rec.Body.String())
	}
	var refreshResp struct {
		Data struct {
			TaskID string `json:"task_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &refreshResp); err != nil {
		t.Fatalf("decode refresh response: %v", err)
	}

	if refreshResp.Data.TaskID != addResp.Data.TaskID {
		t.Fatalf("expected refresh to reuse in-flight task %q, got %q", addResp.Data.TaskID, refreshResp.Data.TaskID)
	}
}

