// Package ingest composes the walker, extractor, chunker, embedder, chunk
// store, lexical index, and ledger into the per-directory ingest algorithm
// the scheduler runs as one task: walk, classify each file against the
// ledger, extract/chunk/embed/upsert what changed, then reconcile deletions.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dsearch/dsearchd/internal/chunker"
	"github.com/dsearch/dsearchd/internal/chunkstore"
	"github.com/dsearch/dsearchd/internal/embedding"
	"github.com/dsearch/dsearchd/internal/extractor"
	"github.com/dsearch/dsearchd/internal/ledger"
	"github.com/dsearch/dsearchd/internal/lexindex"
	"github.com/dsearch/dsearchd/internal/observability"
	"github.com/dsearch/dsearchd/internal/scheduler"
	"github.com/dsearch/dsearchd/internal/walker"
)

// batchSize bounds how many changed files are embedded and upserted together
// before progress is reported and the next batch starts.
const batchSize = 16

// DefaultEmbedTimeout bounds how long a single embedding batch call may run
// before it is treated as a failure.
const DefaultEmbedTimeout = 15 * time.Second

// Pipeline wires the ingest collaborators together and exposes Run, which
// satisfies scheduler.RunFunc.
type Pipeline struct {
	Walker     *walker.Walker
	Extractors *extractor.Registry
	Chunker    *chunker.Chunker
	Embedder   embedding.Embedder
	Chunks     *chunkstore.Store
	Lex        *lexindex.Index
	Ledger     *ledger.Ledger
	Logger     *observability.Logger

	SkipPatterns []string

	// EmbedTimeout bounds each embed batch call. Zero uses DefaultEmbedTimeout.
	EmbedTimeout time.Duration

	// DegradedMode, when true, downgrades a batch to keyword-only indexing
	// on embedder failure instead of failing the whole directory task.
	DegradedMode bool
}

type fileRef struct {
	path    string
	rel     string
	ext     string
	size    int64
	modTime time.Time
}

// Run performs one ingest pass over t.Path: walk, classify each file
// against the ledger, extract/chunk/embed/upsert what's new or modified,
// then reconcile ledger entries for files no longer present.
func (p *Pipeline) Run(ctx context.Context, t *scheduler.Task, report func(scheduler.Progress)) error {
	files, err := p.walk(ctx, t.Path)
	if err != nil {
		return fmt.Errorf("ingest: walk %s: %w", t.Path, err)
	}

	progress := scheduler.Progress{TotalFiles: len(files)}
	report(progress)

	seen := make(map[string]bool, len(files))

	for i := 0; i < len(files); i += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := i + batchSize
		if end > len(files) {
			end = len(files)
		}
		chunksCreated, err := p.processBatch(ctx, t.DirectoryID, files[i:end], seen)
		if err != nil {
			return err
		}
		progress.FilesProcessed += end - i
		progress.ChunksCreated += chunksCreated
		report(progress)
	}

	if err := p.reconcileDeletes(ctx, t.DirectoryID, seen); err != nil {
		return fmt.Errorf("ingest: reconcile deletes: %w", err)
	}

	return nil
}

func (p *Pipeline) walk(ctx context.Context, root string) ([]fileRef, error) {
	patterns := p.SkipPatterns
	if patterns == nil {
		patterns = walker.DefaultSkipPatterns()
	}

	var files []fileRef
	err := p.Walker.Walk(ctx, root, patterns, func(path string, info fs.FileInfo) error {
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		files = append(files, fileRef{
			path:    path,
			rel:     filepath.ToSlash(rel),
			ext:     strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		return nil
	})
	return files, err
}

// processBatch extracts, chunks, embeds, and upserts every changed file in
// batch, returning the number of chunks it created. Per-file extraction
// errors are logged and skipped rather than failing the whole task.
func (p *Pipeline) processBatch(ctx context.Context, directoryID string, batch []fileRef, seen map[string]bool) (int, error) {
	type pending struct {
		sourceID string
		chunks   []chunker.Chunk
		hash     string
		file     fileRef
	}
	var work []pending

	for _, f := range batch {
		sourceID := sourceIDFor(directoryID, f.rel)
		seen[sourceID] = true

		result, err := p.Extractors.Extract(ctx, f.path, f.ext, f.size)
		if err != nil {
			if p.Logger != nil {
				p.Logger.Warn("skipping file", "source_id", sourceID, "error", err.Error())
			}
			continue
		}

		hash := ledger.ContentHash(result.Text)
		status, err := p.Ledger.Classify(ctx, sourceID, hash)
		if err != nil {
			return 0, fmt.Errorf("classify %s: %w", sourceID, err)
		}
		if status == ledger.StatusUnchanged {
			_ = p.Ledger.TouchSeen(ctx, sourceID)
			continue
		}

		chunks := p.Chunker.Chunk(result.Text)
		work = append(work, pending{sourceID: sourceID, chunks: chunks, hash: hash, file: f})
	}

	if len(work) == 0 {
		return 0, nil
	}

	var texts []string
	for _, w := range work {
		for _, c := range w.chunks {
			texts = append(texts, c.Text)
		}
	}

	embeddings, err := p.embedAll(ctx, texts)
	if err != nil {
		return 0, err
	}

	chunksCreated := 0
	offset := 0
	for _, w := range work {
		if err := p.Chunks.DeleteBySource(ctx, w.sourceID); err != nil {
			return 0, fmt.Errorf("delete previous chunks for %s: %w", w.sourceID, err)
		}
		p.Lex.RemoveBySource(w.sourceID)

		meta := map[string]string{
			"display_name":  w.file.rel,
			"file_type":     w.file.ext,
			"size_bytes":    strconv.FormatInt(w.file.size, 10),
			"last_modified": w.file.modTime.UTC().Format(time.RFC3339),
		}

		storeChunks := make([]chunkstore.Chunk, 0, len(w.chunks))
		for _, c := range w.chunks {
			var vec embedding.Vector
			if offset < len(embeddings) && embeddings[offset] != nil {
				vec = embeddings[offset].Vector
			}
			offset++

			id := chunkID(w.sourceID, c.Ordinal)
			storeChunks = append(storeChunks, chunkstore.Chunk{
				ID:       id,
				SourceID: w.sourceID,
				Ordinal:  c.Ordinal,
				Text:     c.Text,
				Metadata: meta,
			})
			if len(vec) == 0 {
				// No embedder configured, or this batch fell back to
				// keyword-only mode: store a placeholder vector so the
				// chunk stays queryable by keyword search alone.
				vec = embedding.Vector{0}
			}
			storeChunks[len(storeChunks)-1].Vector = vec
			p.Lex.Upsert(id, w.sourceID, c.Text)
		}

		if err := p.Chunks.UpsertBatch(ctx, storeChunks); err != nil {
			return 0, fmt.Errorf("upsert chunks for %s: %w", w.sourceID, err)
		}

		if err := p.Ledger.Record(ctx, ledger.FileState{
			SourceID:    w.sourceID,
			DirectoryID: directoryID,
			ContentHash: w.hash,
			ChunkCount:  len(w.chunks),
			LastSeenAt:  time.Now(),
			IndexedAt:   time.Now(),
		}); err != nil {
			return 0, fmt.Errorf("record ledger entry for %s: %w", w.sourceID, err)
		}

		chunksCreated += len(w.chunks)
	}

	return chunksCreated, nil
}

// embedAll embeds every text, per the degraded-mode policy: when no
// embedder is configured the batch is skipped and chunks are stored with a
// placeholder vector, leaving keyword search fully functional. Each call is
// bounded by EmbedTimeout; if the embedder fails or times out and
// DegradedMode is set, the batch falls back to keyword-only instead of
// failing the whole directory task.
func (p *Pipeline) embedAll(ctx context.Context, texts []string) ([]*embedding.Embedding, error) {
	if p.Embedder == nil || len(texts) == 0 {
		return nil, nil
	}

	timeout := p.EmbedTimeout
	if timeout <= 0 {
		timeout = DefaultEmbedTimeout
	}
	embedCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	embeddings, err := p.Embedder.EmbedBatch(embedCtx, texts)
	if err != nil {
		if p.DegradedMode {
			if p.Logger != nil {
				p.Logger.Warn("embed batch failed, continuing in keyword-only mode", "error", err.Error())
			}
			return nil, nil
		}
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	return embeddings, nil
}

// reconcileDeletes removes ledger entries and chunks for every source_id
// previously recorded under directoryID that the walk did not observe.
func (p *Pipeline) reconcileDeletes(ctx context.Context, directoryID string, seen map[string]bool) error {
	states, err := p.Ledger.ListByDirectory(ctx, directoryID)
	if err != nil {
		return err
	}
	for _, st := range states {
		if seen[st.SourceID] {
			continue
		}
		if err := p.Chunks.DeleteBySource(ctx, st.SourceID); err != nil {
			return fmt.Errorf("delete chunks for removed source %s: %w", st.SourceID, err)
		}
		p.Lex.RemoveBySource(st.SourceID)
		if err := p.Ledger.Forget(ctx, st.SourceID); err != nil {
			return fmt.Errorf("forget ledger entry for %s: %w", st.SourceID, err)
		}
	}
	return nil
}

func sourceIDFor(directoryID, rel string) string {
	return directoryID + ":" + rel
}

func chunkID(sourceID string, ordinal int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", sourceID, ordinal)))
	return hex.EncodeToString(sum[:])
}
