// Package search answers keyword, semantic, and hybrid queries over the
// chunk store and lexical index, merging and deduping results down to the
// best chunk per source.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dsearch/dsearchd/internal/apierr"
	"github.com/dsearch/dsearchd/internal/chunkstore"
	"github.com/dsearch/dsearchd/internal/embedding"
	"github.com/dsearch/dsearchd/internal/lexindex"
)

// Mode selects which retrieval method(s) a query uses.
type Mode string

const (
	ModeKeyword  Mode = "keyword"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// DefaultAlpha is the default weight given to the semantic score in hybrid
// fusion (1-alpha goes to the keyword score).
const DefaultAlpha = 0.5

// DefaultSemanticThreshold is the minimum cosine similarity a semantic
// match must clear to be considered relevant.
const DefaultSemanticThreshold = 0.3

// snippetWindow is the number of runes of context kept on each side of a
// highlighted match inside a generated snippet.
const snippetWindow = 200

// Query describes one search request.
type Query struct {
	Text      string
	Mode      Mode
	Limit     int
	Alpha     float32 // hybrid fusion weight; defaults to DefaultAlpha
	Threshold float32 // semantic similarity floor; defaults to DefaultSemanticThreshold
}

// Result is one ranked chunk, with a generated snippet for display.
type Result struct {
	SourceID string
	ChunkID  string
	Score    float32
	Snippet  string
	Metadata map[string]string
}

// Engine answers queries by combining the lexical index and chunk store.
type Engine struct {
	chunks   *chunkstore.Store
	lex      *lexindex.Index
	embedder embedding.Embedder
}

// New creates a search Engine. embedder may be nil if only keyword search
// will be used; semantic and hybrid queries require one.
func New(chunks *chunkstore.Store, lex *lexindex.Index, embedder embedding.Embedder) *Engine {
	return &Engine{chunks: chunks, lex: lex, embedder: embedder}
}

// Search executes q and returns results ranked best-first, deduplicated to
// the single best-scoring chunk per source.
func (e *Engine) Search(ctx context.Context, q Query) ([]Result, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("search: query text cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}

	switch q.Mode {
	case ModeKeyword, "":
		return e.searchKeyword(q)
	case ModeSemantic:
		return e.searchSemantic(ctx, q)
	case ModeHybrid:
		return e.searchHybrid(ctx, q)
	default:
		return nil, fmt.Errorf("search: unknown mode %q", q.Mode)
	}
}

func (e *Engine) searchKeyword(q Query) ([]Result, error) {
	matches := e.lex.Search(q.Text, q.Limit*3)

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		chunk, err := e.chunks.Get(context.Background(), m.ChunkID)
		if err != nil {
			continue
		}
		results = append(results, Result{
			SourceID: chunk.SourceID,
			ChunkID:  chunk.ID,
			Score:    float32(m.Score),
			Snippet:  snippet(chunk.Text, q.Text),
			Metadata: chunk.Metadata,
		})
	}

	return dedupAndLimit(results, q.Limit), nil
}

func (e *Engine) searchSemantic(ctx context.Context, q Query) ([]Result, error) {
	if e.embedder == nil {
		return nil, fmt.Errorf("search: semantic search requires an embedder")
	}
	threshold := q.Threshold
	if threshold == 0 {
		threshold = DefaultSemanticThreshold
	}

	emb, err := e.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, apierr.EmbedderUnavailable(err)
	}

	// Over-fetch by 3x so the threshold filter still leaves enough results.
	matches, err := e.chunks.QuerySemantic(ctx, emb.Vector, q.Limit*3)
	if err != nil {
		return nil, fmt.Errorf("search: semantic query: %w", err)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		if m.Score < threshold {
			continue
		}
		results = append(results, Result{
			SourceID: m.Chunk.SourceID,
			ChunkID:  m.Chunk.ID,
			Score:    m.Score,
			Snippet:  snippet(m.Chunk.Text, q.Text),
			Metadata: m.Chunk.Metadata,
		})
	}

	return dedupAndLimit(results, q.Limit), nil
}

// searchHybrid fuses keyword and semantic scores via min-max normalization
// and a weighted linear combination: score = alpha*semantic_norm +
// (1-alpha)*keyword_norm.
func (e *Engine) searchHybrid(ctx context.Context, q Query) ([]Result, error) {
	alpha := q.Alpha
	if alpha == 0 {
		alpha = DefaultAlpha
	}

	keywordMatches := e.lex.Search(q.Text, q.Limit*3)

	var semanticMatches []chunkstore.Match
	if e.embedder != nil {
		emb, err := e.embedder.Embed(ctx, q.Text)
		if err != nil {
			return nil, apierr.EmbedderUnavailable(err)
		}
		semanticMatches, err = e.chunks.QuerySemantic(ctx, emb.Vector, q.Limit*3)
		if err != nil {
			return nil, fmt.Errorf("search: semantic query: %w", err)
		}
	}

	keywordScores := normalizeLexical(keywordMatches)
	semanticScores := normalizeSemantic(semanticMatches)

	combined := make(map[string]float32)
	for id, score := range keywordScores {
		combined[id] += (1 - alpha) * score
	}
	for id, score := range semanticScores {
		combined[id] += alpha * score
	}

	type scored struct {
		id    string
		score float32
	}
	ordered := make([]scored, 0, len(combined))
	for id, score := range combined {
		ordered = append(ordered, scored{id: id, score: score})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].score != ordered[j].score {
			return ordered[i].score > ordered[j].score
		}
		return ordered[i].id < ordered[j].id
	})

	results := make([]Result, 0, len(ordered))
	for _, o := range ordered {
		chunk, err := e.chunks.Get(ctx, o.id)
		if err != nil {
			continue
		}
		results = append(results, Result{
			SourceID: chunk.SourceID,
			ChunkID:  chunk.ID,
			Score:    o.score,
			Snippet:  snippet(chunk.Text, q.Text),
			Metadata: chunk.Metadata,
		})
	}

	return dedupAndLimit(results, q.Limit), nil
}

func normalizeLexical(matches []lexindex.Match) map[string]float32 {
	out := make(map[string]float32, len(matches))
	if len(matches) == 0 {
		return out
	}
	min, max := matches[0].Score, matches[0].Score
	for _, m := range matches {
		if m.Score < min {
			min = m.Score
		}
		if m.Score > max {
			max = m.Score
		}
	}
	span := max - min
	for _, m := range matches {
		if span == 0 {
			out[m.ChunkID] = 1.0
			continue
		}
		out[m.ChunkID] = float32((m.Score - min) / span)
	}
	return out
}

func normalizeSemantic(matches []chunkstore.Match) map[string]float32 {
	out := make(map[string]float32, len(matches))
	if len(matches) == 0 {
		return out
	}
	min, max := matches[0].Score, matches[0].Score
	for _, m := range matches {
		if m.Score < min {
			min = m.Score
		}
		if m.Score > max {
			max = m.Score
		}
	}
	span := max - min
	for _, m := range matches {
		if span == 0 {
			out[m.Chunk.ID] = 1.0
			continue
		}
		out[m.Chunk.ID] = (m.Score - min) / span
	}
	return out
}

// dedupAndLimit keeps only the best-scoring result per source_id, then
// truncates to limit.
func dedupAndLimit(results []Result, limit int) []Result {
	best := make(map[string]Result, len(results))
	for _, r := range results {
		if existing, ok := best[r.SourceID]; !ok || r.Score > existing.Score {
			best[r.SourceID] = r
		}
	}

	out := make([]Result, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].SourceID < out[j].SourceID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// snippet builds a highlighted excerpt of text around the first occurrence
// of any query term, bounded by snippetWindow runes on each side.
func snippet(text, query string) string {
	runes := []rune(text)
	lowerText := strings.ToLower(text)

	pos := -1
	var matchedLen int
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if term == "" {
			continue
		}
		if i := strings.Index(lowerText, term); i != -1 && (pos == -1 || i < pos) {
			pos = i
			matchedLen = len(term)
		}
	}

	if pos == -1 {
		if len(runes) <= snippetWindow*2 {
			return text
		}
		return string(runes[:snippetWindow*2]) + "…"
	}

	startByte := pos
	endByte := pos + matchedLen
	startRune := len([]rune(text[:startByte]))
	endRune := len([]rune(text[:endByte]))

	winStart := startRune - snippetWindow
	if winStart < 0 {
		winStart = 0
	}
	winEnd := endRune + snippetWindow
	if winEnd > len(runes) {
		winEnd = len(runes)
	}

	var b strings.Builder
	if winStart > 0 {
		b.WriteString("…")
	}
	b.WriteString(string(runes[winStart:startRune]))
	b.WriteString("**")
	b.WriteString(string(runes[startRune:endRune]))
	b.WriteString("**")
	b.WriteString(string(runes[endRune:winEnd]))
	if winEnd < len(runes) {
		b.WriteString("…")
	}
	return b.String()
}
