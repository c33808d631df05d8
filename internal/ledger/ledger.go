// Package ledger tracks per-source ingest state so a directory refresh can
// classify each discovered file as new, unchanged, modified, or deleted
// without re-chunking and re-embedding content that has not changed.
// Classification compares content hashes of the extracted text only, so
// every discovered file is still read and extracted; file size and
// modification time are not recorded.
package ledger

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Status classifies a source against the ledger's last recorded state.
type Status string

const (
	StatusNew       Status = "new"
	StatusUnchanged Status = "unchanged"
	StatusModified  Status = "modified"
	StatusDeleted   Status = "deleted"
)

// FileState is the last recorded ingest state for one source_id.
type FileState struct {
	SourceID    string
	DirectoryID string
	ContentHash string
	ChunkCount  int
	LastSeenAt  time.Time
	IndexedAt   time.Time
}

// ErrNotFound is returned by Get when no state is recorded for a source_id.
var ErrNotFound = errors.New("ledger: source not found")

// Ledger persists FileState rows in SQLite.
type Ledger struct {
	db *sql.DB
}

// Open creates or opens a ledger database at path.
func Open(ctx context.Context, path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	l := &Ledger{db: db}
	if err := l.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: init schema: %w", err)
	}
	return l, nil
}

func (l *Ledger) initSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS file_state (
		source_id TEXT PRIMARY KEY,
		directory_id TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		chunk_count INTEGER NOT NULL,
		last_seen_at INTEGER NOT NULL,
		indexed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_file_state_directory_id ON file_state(directory_id);
	`
	_, err := l.db.ExecContext(ctx, schema)
	return err
}

// ContentHash returns the sha256 hex digest of extracted text. The hash is
// computed over the extracted text rather than raw file bytes, so a
// harmless re-save (different line endings, BOM) does not appear modified.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Classify compares a freshly computed content hash against the ledger's
// recorded state for sourceID and returns the change status. A source not
// previously seen is StatusNew.
func (l *Ledger) Classify(ctx context.Context, sourceID, newHash string) (Status, error) {
	state, err := l.Get(ctx, sourceID)
	if errors.Is(err, ErrNotFound) {
		return StatusNew, nil
	}
	if err != nil {
		return "", err
	}
	if state.ContentHash == newHash {
		return StatusUnchanged, nil
	}
	return StatusModified, nil
}

// Get retrieves the recorded state for sourceID.
func (l *Ledger) Get(ctx context.Context, sourceID string) (FileState, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT source_id, directory_id, content_hash, chunk_count, last_seen_at, indexed_at
		FROM file_state WHERE source_id = ?`, sourceID)

	var (
		fs             FileState
		lastSeen, idxd int64
	)
	err := row.Scan(&fs.SourceID, &fs.DirectoryID, &fs.ContentHash, &fs.ChunkCount, &lastSeen, &idxd)
	if errors.Is(err, sql.ErrNoRows) {
		return FileState{}, ErrNotFound
	}
	if err != nil {
		return FileState{}, err
	}
	fs.LastSeenAt = time.Unix(lastSeen, 0)
	fs.IndexedAt = time.Unix(idxd, 0)
	return fs, nil
}

// Record upserts the ingest state for a source after it has been
// (re)indexed. chunkCount reflects whatever was persisted so far, even on
// partial failure — per this daemon's refresh semantics, a cancelled or
// failed task keeps whatever progress the ledger already recorded rather
// than rolling back.
func (l *Ledger) Record(ctx context.Context, fs FileState) error {
	now := time.Now().Unix()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO file_state (source_id, directory_id, content_hash, chunk_count, last_seen_at, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			directory_id = excluded.directory_id,
			content_hash = excluded.content_hash,
			chunk_count = excluded.chunk_count,
			last_seen_at = excluded.last_seen_at,
			indexed_at = excluded.indexed_at
	`, fs.SourceID, fs.DirectoryID, fs.ContentHash, fs.ChunkCount, now, now)
	return err
}

// TouchSeen updates only last_seen_at, used to mark a source as still
// present during a refresh walk without re-indexing it.
func (l *Ledger) TouchSeen(ctx context.Context, sourceID string) error {
	_, err := l.db.ExecContext(ctx, `UPDATE file_state SET last_seen_at = ? WHERE source_id = ?`, time.Now().Unix(), sourceID)
	return err
}

// Forget removes the recorded state for sourceID, used when a source is
// found deleted during a refresh.
func (l *Ledger) Forget(ctx context.Context, sourceID string) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM file_state WHERE source_id = ?`, sourceID)
	return err
}

// ListByDirectory returns every recorded source_id under directoryID, used
// to detect sources that were removed from disk since the last refresh.
func (l *Ledger) ListByDirectory(ctx context.Context, directoryID string) ([]FileState, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT source_id, directory_id, content_hash, chunk_count, last_seen_at, indexed_at
		FROM file_state WHERE directory_id = ?`, directoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []FileState
	for rows.Next() {
		var (
			fs             FileState
			lastSeen, idxd int64
		)
		if err := rows.Scan(&fs.SourceID, &fs.DirectoryID, &fs.ContentHash, &fs.ChunkCount, &lastSeen, &idxd); err != nil {
			return nil, err
		}
		fs.LastSeenAt = time.Unix(lastSeen, 0)
		fs.IndexedAt = time.Unix(idxd, 0)
		states = append(states, fs)
	}
	return states, rows.Err()
}

// Close releases the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}
