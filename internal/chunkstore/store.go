// Package chunkstore persists document chunks and their embeddings, and
// answers semantic (vector) similarity queries over them.
//
// Storage is SQLite (content, metadata, and a JSON-encoded vector per row);
// the nearest-neighbor index is an in-memory HNSW graph rebuilt from the
// table at startup and kept in sync on every write.
package chunkstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dsearch/dsearchd/internal/embedding"
)

var errEmptyVector = errors.New("chunkstore: empty vector")

// Chunk is one stored unit of searchable text.
type Chunk struct {
	ID        string // stable id, e.g. sha256(source_id + ordinal)
	SourceID  string
	Ordinal   int
	Text      string
	Vector    embedding.Vector
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Match is a chunk returned from a semantic query with its similarity score.
type Match struct {
	Chunk Chunk
	Score float32 // cosine similarity, higher is better
}

// Stats summarizes the chunk store's contents.
type Stats struct {
	TotalChunks  int64
	TotalSources int64
}

// Store is a SQLite-backed chunk store with an in-memory HNSW vector index.
type Store struct {
	db  *sql.DB
	idx *hnswIndex
}

// Open creates or opens a chunk store at path (":memory:" for ephemeral use)
// and rebuilds the vector index from any existing rows.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("chunkstore: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, idx: newHNSWIndex(DefaultHNSWConfig())}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("chunkstore: init schema: %w", err)
	}
	if err := s.rebuildIndex(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("chunkstore: rebuild index: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		text TEXT NOT NULL,
		vector TEXT NOT NULL,
		metadata TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_source_id ON chunks(source_id);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) rebuildIndex(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, vector FROM chunks`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, vecJSON string
		if err := rows.Scan(&id, &vecJSON); err != nil {
			return err
		}
		var vec embedding.Vector
		if err := json.Unmarshal([]byte(vecJSON), &vec); err != nil {
			return err
		}
		if err := s.idx.Insert(id, vec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Upsert inserts or replaces a chunk and updates the vector index.
func (s *Store) Upsert(ctx context.Context, c Chunk) error {
	if c.ID == "" {
		return errors.New("chunkstore: chunk id cannot be empty")
	}
	if len(c.Vector) == 0 {
		return errEmptyVector
	}

	vecJSON, err := json.Marshal(c.Vector)
	if err != nil {
		return fmt.Errorf("chunkstore: marshal vector: %w", err)
	}
	metaJSON, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("chunkstore: marshal metadata: %w", err)
	}

	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chunks (id, source_id, ordinal, text, vector, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			ordinal = excluded.ordinal,
			text = excluded.text,
			vector = excluded.vector,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, c.ID, c.SourceID, c.Ordinal, c.Text, vecJSON, metaJSON, now, now)
	if err != nil {
		return fmt.Errorf("chunkstore: upsert: %w", err)
	}

	return s.idx.Insert(c.ID, c.Vector)
}

// UpsertBatch upserts multiple chunks in a single transaction.
func (s *Store) UpsertBatch(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("chunkstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, source_id, ordinal, text, vector, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			ordinal = excluded.ordinal,
			text = excluded.text,
			vector = excluded.vector,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("chunkstore: prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, c := range chunks {
		if len(c.Vector) == 0 {
			return errEmptyVector
		}
		vecJSON, err := json.Marshal(c.Vector)
		if err != nil {
			return fmt.Errorf("chunkstore: marshal vector: %w", err)
		}
		metaJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("chunkstore: marshal metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.SourceID, c.Ordinal, c.Text, vecJSON, metaJSON, now, now); err != nil {
			return fmt.Errorf("chunkstore: batch upsert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("chunkstore: commit: %w", err)
	}

	for _, c := range chunks {
		if err := s.idx.Insert(c.ID, c.Vector); err != nil {
			return err
		}
	}
	return nil
}

// DeleteBySource removes every chunk belonging to sourceID.
func (s *Store) DeleteBySource(ctx context.Context, sourceID string) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM chunks WHERE source_id = ?`, sourceID)
	if err != nil {
		return fmt.Errorf("chunkstore: select for delete: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("chunkstore: delete: %w", err)
	}
	for _, id := range ids {
		s.idx.Remove(id)
	}
	return nil
}

// Get retrieves a single chunk by id.
func (s *Store) Get(ctx context.Context, id string) (Chunk, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, source_id, ordinal, text, vector, metadata, created_at, updated_at FROM chunks WHERE id = ?`, id)
	return scanChunk(row)
}

// QuerySemantic returns the topK chunks most similar to query by cosine
// similarity. Callers apply any score threshold themselves.
func (s *Store) QuerySemantic(ctx context.Context, query embedding.Vector, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 10
	}
	ef := topK * 4
	if ef < DefaultHNSWConfig().EfSearch {
		ef = DefaultHNSWConfig().EfSearch
	}

	candidates := s.idx.Search(query, topK, ef)
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		chunk, err := s.Get(ctx, c.ID)
		if err != nil {
			continue
		}
		matches = append(matches, Match{Chunk: chunk, Score: 1.0 - c.Distance})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches, nil
}

// Stats reports chunk and distinct-source counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&stats.TotalChunks); err != nil {
		return Stats{}, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT source_id) FROM chunks`).Scan(&stats.TotalSources); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChunk(row rowScanner) (Chunk, error) {
	var (
		c        Chunk
		vecJSON  string
		metaJSON sql.NullString
		created  int64
		updated  int64
	)
	if err := row.Scan(&c.ID, &c.SourceID, &c.Ordinal, &c.Text, &vecJSON, &metaJSON, &created, &updated); err != nil {
		return Chunk{}, err
	}
	if err := json.Unmarshal([]byte(vecJSON), &c.Vector); err != nil {
		return Chunk{}, fmt.Errorf("chunkstore: unmarshal vector: %w", err)
	}
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &c.Metadata); err != nil {
			return Chunk{}, fmt.Errorf("chunkstore: unmarshal metadata: %w", err)
		}
	}
	c.CreatedAt = time.Unix(created, 0)
	c.UpdatedAt = time.Unix(updated, 0)
	return c, nil
}
