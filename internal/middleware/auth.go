package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dsearch/dsearchd/internal/apierr"
	"github.com/dsearch/dsearchd/internal/auth"
	secauth "github.com/dsearch/dsearchd/internal/security/auth"
)

type contextKey string

const keyContextKey contextKey = "api_key"

// AuthMiddleware validates API keys and enforces per-route permissions. A
// request may instead present a bearer JWT obtained from the optional
// /api/v1/auth/login exchange; jwt may be nil, in which case only raw API
// keys are accepted.
type AuthMiddleware struct {
	store *auth.Store
	jwt   *secauth.JWTManager
}

// NewAuthMiddleware creates an authentication middleware backed by store.
// jwt may be nil to disable the JWT exchange path.
func NewAuthMiddleware(store *auth.Store, jwt *secauth.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{store: store, jwt: jwt}
}

// publicPaths never require authentication.
var publicPaths = []string{
	"/health",
	"/api/info",
	"/api/v1/auth/validate-key",
	"/api/v1/auth/login",
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// RequirePermission wraps next, rejecting requests that lack a valid,
// unrevoked API key granting perm. The matched Key is stored in the request
// context for downstream handlers and rate limiting.
func (am *AuthMiddleware) RequirePermission(perm auth.Permission, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		secret, err := extractAPIKey(r)
		if err != nil {
			WriteError(w, apierr.Unauthenticated(""))
			return
		}

		key, err := am.resolveKey(r.Context(), secret)
		if err != nil {
			WriteError(w, apierr.Unauthenticated(""))
			return
		}

		if !key.HasPermission(perm) {
			WriteError(w, apierr.Forbidden(""))
			return
		}

		ctx := context.WithValue(r.Context(), keyContextKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveKey validates secret either as a raw API key (the "ds_" prefix) or,
// when jwt is configured, as a bearer token from the /auth/login exchange.
func (am *AuthMiddleware) resolveKey(ctx context.Context, secret string) (auth.Key, error) {
	if !strings.HasPrefix(secret, "ds_") && am.jwt != nil {
		claims, err := am.jwt.ValidateToken(ctx, secret)
		if err != nil {
			return auth.Key{}, err
		}
		perms := make([]auth.Permission, 0, len(claims.Roles))
		for _, role := range claims.Roles {
			perms = append(perms, auth.Permission(role))
		}
		return auth.Key{ID: claims.UserID, Name: claims.Username, Permissions: perms}, nil
	}
	return am.store.Validate(ctx, secret)
}

// extractAPIKey pulls the key secret from Authorization: Bearer, X-API-Key,
// or an api_key query parameter, in that order.
func extractAPIKey(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			if token := strings.TrimPrefix(h, "Bearer "); token != "" {
				return token, nil
			}
		}
	}
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k, nil
	}
	if k := r.URL.Query().Get("api_key"); k != "" {
		return k, nil
	}
	return "", http.ErrNoCookie
}

// KeyFromContext extracts the validated API key from a request context
// populated by RequirePermission.
func KeyFromContext(ctx context.Context) (auth.Key, bool) {
	k, ok := ctx.Value(keyContextKey).(auth.Key)
	return k, ok
}
