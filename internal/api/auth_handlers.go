package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dsearch/dsearchd/internal/apierr"
	"github.com/dsearch/dsearchd/internal/auth"
	"github.com/dsearch/dsearchd/internal/middleware"
)

// keyInfo is the caller-facing projection of auth.Key: it never includes
// the secret or its hash.
type keyInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Permissions []string   `json:"permissions"`
	Revoked     bool       `json:"revoked"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  time.Time  `json:"last_used_at,omitempty"`
}

func toKeyInfo(k auth.Key) keyInfo {
	perms := make([]string, len(k.Permissions))
	for i, p := range k.Permissions {
		perms[i] = string(p)
	}
	info := keyInfo{
		ID:          k.ID,
		Name:        k.Name,
		Permissions: perms,
		Revoked:     k.Revoked,
		CreatedAt:   k.CreatedAt,
		LastUsedAt:  k.LastUsedAt,
	}
	if !k.ExpiresAt.IsZero() {
		info.ExpiresAt = &k.ExpiresAt
	}
	return info
}

type createKeyRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	ExpiresDays int      `json:"expires_days,omitempty"`
	Permissions []string `json:"permissions"`
}

func (s *Server) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, apierr.InvalidInput("malformed request body: %v", err))
		return
	}
	if req.Name == "" {
		middleware.WriteError(w, apierr.InvalidInput("name is required"))
		return
	}
	if len(req.Permissions) == 0 {
		middleware.WriteError(w, apierr.InvalidInput("permissions must not be empty"))
		return
	}

	perms := make([]auth.Permission, len(req.Permissions))
	for i, p := range req.Permissions {
		perms[i] = auth.Permission(p)
	}

	id := generateKeyID()
	key, err := s.AuthStore.Create(r.Context(), id, req.Name, perms, req.ExpiresDays)
	if err != nil {
		middleware.WriteError(w, apierr.Internal(err))
		return
	}
	s.auditLog(r, "api_key", id, "create", true)

	middleware.WriteJSON(w, http.StatusCreated, "api key created", map[string]interface{}{
		"api_key":  key.Secret,
		"key_info": toKeyInfo(key),
	})
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.AuthStore.List(r.Context())
	if err != nil {
		middleware.WriteError(w, apierr.Internal(err))
		return
	}

	infos := make([]keyInfo, len(keys))
	for i, k := range keys {
		infos[i] = toKeyInfo(k)
	}
	middleware.WriteJSON(w, http.StatusOK, "", map[string]interface{}{"keys": infos})
}

func (s *Server) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("key_id")
	if id == "" {
		middleware.WriteError(w, apierr.InvalidInput("key_id is required"))
		return
	}
	if err := s.AuthStore.Revoke(r.Context(), id); err != nil {
		if err == auth.ErrNotFound {
			middleware.WriteError(w, apierr.NotFound("api key"))
			return
		}
		middleware.WriteError(w, apierr.Internal(err))
		return
	}
	s.auditLog(r, "api_key", id, "revoke", true)
	middleware.WriteJSON(w, http.StatusOK, "", map[string]bool{"ok": true})
}

type validateKeyRequest struct {
	APIKey string `json:"api_key"`
}

func (s *Server) handleValidateKey(w http.ResponseWriter, r *http.Request) {
	var req validateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, apierr.InvalidInput("malformed request body: %v", err))
		return
	}

	key, err := s.AuthStore.Validate(r.Context(), req.APIKey)
	if err != nil {
		middleware.WriteError(w, apierr.Unauthenticated("invalid or revoked api key"))
		return
	}
	middleware.WriteJSON(w, http.StatusOK, "", map[string]interface{}{"key_info": toKeyInfo(key)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.JWT == nil {
		middleware.WriteError(w, apierr.New(apierr.KindForbidden, "jwt exchange is disabled"))
		return
	}

	var req validateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, apierr.InvalidInput("malformed request body: %v", err))
		return
	}

	key, err := s.AuthStore.Validate(r.Context(), req.APIKey)
	if err != nil {
		middleware.WriteError(w, apierr.Unauthenticated("invalid or revoked api key"))
		return
	}

	roles := make([]string, len(key.Permissions))
	for i, p := range key.Permissions {
		roles[i] = string(p)
	}

	token, err := s.JWT.GenerateToken(r.Context(), key.ID, key.Name, roles)
	if err != nil {
		middleware.WriteError(w, apierr.Internal(err))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, "", map[string]interface{}{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(s.JWT.GetExpiry().Seconds()),
	})
}
