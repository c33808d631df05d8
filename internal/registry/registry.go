// Package registry is the CRUD store of directories the daemon has been
// asked to index, independent of the per-directory indexing lifecycle that
// runs against each entry.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dsearch/dsearchd/internal/security"
)

// ErrInvalidPath is returned by Add when the given path fails validation
// (does not exist, is not a directory, or escapes via traversal).
var ErrInvalidPath = errors.New("registry: invalid directory path")

// ErrNotFound is returned when a directory id is not registered.
var ErrNotFound = errors.New("registry: directory not found")

// ErrAlreadyRegistered is returned by Add when path is already registered.
var ErrAlreadyRegistered = errors.New("registry: directory already registered")

// Directory is one registered root to index.
type Directory struct {
	ID        string
	Path      string
	Status    string // lifecycle status, e.g. "pending", "indexing", "indexed", "failed", "cancelled"
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is a SQLite-backed directory registry.
type Store struct {
	db *sql.DB
}

// Open creates or opens a registry database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("registry: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS directories (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Add validates and registers path under the caller-supplied directory id.
func (s *Store) Add(ctx context.Context, id, path string) (Directory, error) {
	cleaned, err := security.ValidatePath(path, "")
	if err != nil {
		return Directory{}, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	info, err := os.Stat(cleaned)
	if err != nil || !info.IsDir() {
		return Directory{}, fmt.Errorf("%w: not a directory", ErrInvalidPath)
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO directories (id, path, status, created_at, updated_at)
		VALUES (?, ?, 'pending', ?, ?)
	`, id, cleaned, now.Unix(), now.Unix())
	if err != nil {
		return Directory{}, fmt.Errorf("%w: %v", ErrAlreadyRegistered, err)
	}

	return Directory{ID: id, Path: cleaned, Status: "pending", CreatedAt: now, UpdatedAt: now}, nil
}

// Remove deletes a directory registration. It does not remove the chunks,
// lexical postings, or ledger entries associated with it; callers are
// responsible for tearing those down first.
func (s *Store) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM directories WHERE id = ?`, id)
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

// Get retrieves a directory by id.
func (s *Store) Get(ctx context.Context, id string) (Directory, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, path, status, created_at, updated_at FROM directories WHERE id = ?`, id)
	return scanDirectory(row)
}

// List returns a stable snapshot of all registered directories, ordered by
// creation time.
func (s *Store) List(ctx context.Context) ([]Directory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, path, status, created_at, updated_at FROM directories ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dirs []Directory
	for rows.Next() {
		d, err := scanDirectory(rows)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, d)
	}
	return dirs, rows.Err()
}

// SetStatus updates a directory's lifecycle status.
func (s *Store) SetStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE directories SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now().Unix(), id)
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

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDirectory(row rowScanner) (Directory, error) {
	var (
		d              Directory
		created, updated int64
	)
	if err := row.Scan(&d.ID, &d.Path, &d.Status, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Directory{}, ErrNotFound
		}
		return Directory{}, err
	}
	d.CreatedAt = time.Unix(created, 0)
	d.UpdatedAt = time.Unix(updated, 0)
	return d, nil
}
