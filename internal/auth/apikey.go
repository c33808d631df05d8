// Package auth manages API keys: creation, listing, revocation, and
// validation, plus the permission model routes are gated on.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Permission is one capability an API key may be granted.
type Permission string

const (
	PermissionRead   Permission = "read"
	PermissionSearch Permission = "search"
	PermissionIndex  Permission = "index"
	PermissionAdmin  Permission = "admin"
)

// keyPrefix marks every generated secret so it is recognizable in logs and
// UIs without revealing the underlying value.
const keyPrefix = "ds_"

// ErrNotFound is returned when a key id is unknown.
var ErrNotFound = errors.New("auth: api key not found")

// ErrInvalidKey is returned by Validate when the presented secret does not
// match any stored key.
var ErrInvalidKey = errors.New("auth: invalid api key")

// ErrRevoked is returned by Validate when the key matched but has been
// revoked.
var ErrRevoked = errors.New("auth: api key revoked")

// ErrExpired is returned by Validate when the key matched but its
// expiration time has passed.
var ErrExpired = errors.New("auth: api key expired")

// Key is a stored API key record. Secret holds the plaintext value only at
// creation time; it is never persisted or returned again afterward.
type Key struct {
	ID          string
	Name        string
	Secret      string // populated only by Create, empty everywhere else
	SecretHash  string
	Permissions []Permission
	Revoked     bool
	CreatedAt   time.Time
	ExpiresAt   time.Time // zero means the key never expires
	LastUsedAt  time.Time
}

// Expired reports whether k's expiration time has passed as of now.
func (k Key) Expired(now time.Time) bool {
	return !k.ExpiresAt.IsZero() && now.After(k.ExpiresAt)
}

// HasPermission reports whether k grants perm. Admin implicitly grants
// every other permission.
func (k Key) HasPermission(perm Permission) bool {
	for _, p := range k.Permissions {
		if p == perm || p == PermissionAdmin {
			return true
		}
	}
	return false
}

// Store is a SQLite-backed API key store.
type Store struct {
	db *sql.DB
}

// Open creates or opens an API key store at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("auth: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("auth: init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		secret_hash TEXT NOT NULL UNIQUE,
		permissions TEXT NOT NULL,
		revoked INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		expires_at INTEGER,
		last_used_at INTEGER
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// generateSecret returns a new random key secret in the ds_<base64url> form.
func generateSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("auth: generate secret: %w", err)
	}
	return keyPrefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Create generates a new API key with the given name and permissions. If
// expiresDays is positive, the key expires at creation time plus that many
// days; zero or negative means the key never expires. The returned Key's
// Secret field holds the plaintext value; the caller must display it
// immediately, since it cannot be recovered afterward.
func (s *Store) Create(ctx context.Context, id, name string, perms []Permission, expiresDays int) (Key, error) {
	secret, err := generateSecret()
	if err != nil {
		return Key{}, err
	}
	hash := hashSecret(secret)

	permStr := encodePermissions(perms)
	now := time.Now()

	var expiresAt time.Time
	var expiresAtParam interface{}
	if expiresDays > 0 {
		expiresAt = now.AddDate(0, 0, expiresDays)
		expiresAtParam = expiresAt.Unix()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, name, secret_hash, permissions, revoked, created_at, expires_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
	`, id, name, hash, permStr, now.Unix(), expiresAtParam)
	if err != nil {
		return Key{}, fmt.Errorf("auth: create key: %w", err)
	}

	return Key{
		ID:          id,
		Name:        name,
		Secret:      secret,
		SecretHash:  hash,
		Permissions: perms,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}, nil
}

// List returns every key, with Secret always empty.
func (s *Store) List(ctx context.Context) ([]Key, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, secret_hash, permissions, revoked, created_at, expires_at, last_used_at FROM api_keys ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Revoke marks a key as no longer usable. Validate continues to
// distinguish a revoked key (ErrRevoked) from one that never existed
// (ErrInvalidKey), since callers may want to log the difference.
func (s *Store) Revoke(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE api_keys SET revoked = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Validate looks up secret by its hash and returns the matching key if it
// is active (neither revoked nor expired), updating its last-used
// timestamp.
func (s *Store) Validate(ctx context.Context, secret string) (Key, error) {
	hash := hashSecret(secret)

	row := s.db.QueryRowContext(ctx, `SELECT id, name, secret_hash, permissions, revoked, created_at, expires_at, last_used_at FROM api_keys WHERE secret_hash = ?`, hash)
	k, err := scanKey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Key{}, ErrInvalidKey
	}
	if err != nil {
		return Key{}, err
	}
	if k.Revoked {
		return Key{}, ErrRevoked
	}
	if k.Expired(time.Now()) {
		return Key{}, ErrExpired
	}

	_, _ = s.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = ? WHERE id = ?`, time.Now().Unix(), k.ID)
	return k, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanKey(row rowScanner) (Key, error) {
	var (
		k         Key
		permStr   string
		revoked   int
		created   int64
		expiresAt sql.NullInt64
		lastUsed  sql.NullInt64
	)
	if err := row.Scan(&k.ID, &k.Name, &k.SecretHash, &permStr, &revoked, &created, &expiresAt, &lastUsed); err != nil {
		return Key{}, err
	}
	k.Permissions = decodePermissions(permStr)
	k.Revoked = revoked != 0
	k.CreatedAt = time.Unix(created, 0)
	if expiresAt.Valid {
		k.ExpiresAt = time.Unix(expiresAt.Int64, 0)
	}
	if lastUsed.Valid {
		k.LastUsedAt = time.Unix(lastUsed.Int64, 0)
	}
	return k, nil
}

func encodePermissions(perms []Permission) string {
	s := ""
	for i, p := range perms {
		if i > 0 {
			s += ","
		}
		s += string(p)
	}
	return s
}

func decodePermissions(s string) []Permission {
	if s == "" {
		return nil
	}
	var perms []Permission
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				perms = append(perms, Permission(s[start:i]))
			}
			start = i + 1
		}
	}
	return perms
}
