package search

import (
	"context"
	"errors"
	"testing"

	"github.com/dsearch/dsearchd/internal/apierr"
	"github.com/dsearch/dsearchd/internal/chunkstore"
	"github.com/dsearch/dsearchd/internal/embedding"
	"github.com/dsearch/dsearchd/internal/lexindex"
)

// failingEmbedder always returns an error, simulating an unreachable
// embedding provider.
type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) (*embedding.Embedding, error) {
	return nil, errors.New("provider unreachable")
}

func (failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*embedding.Embedding, error) {
	return nil, errors.New("provider unreachable")
}

func setupEngine(t *testing.T) (*Engine, context.Context) {
	t.Helper()
	ctx := context.Background()

	store, err := chunkstore.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open chunkstore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	lex := lexindex.New()
	embedder := embedding.NewMock(8)

	docs := []struct {
		id, source, text string
	}{
		{"c1", "doc1", "Python is a popular programming language for data science."},
		{"c2", "doc2", "Gardening tips for growing tomatoes in containers."},
		{"c3", "doc3", "Go is a statically typed programming language from Google."},
	}

	for _, d := range docs {
		emb, err := embedder.Embed(ctx, d.text)
		if err != nil {
			t.Fatalf("embed: %v", err)
		}
		if err := store.Upsert(ctx, chunkstore.Chunk{ID: d.id, SourceID: d.source, Text: d.text, Vector: emb.Vector}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		lex.Upsert(d.id, d.source, d.text)
	}

	return New(store, lex, embedder), ctx
}

func TestSearchKeyword(t *testing.T) {
	e, ctx := setupEngine(t)
	results, err := e.Search(ctx, Query{Text: "programming language", Mode: ModeKeyword})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(results), results)
	}
}

func TestSearchSemantic(t *testing.T) {
	e, ctx := setupEngine(t)
	results, err := e.Search(ctx, Query{Text: "Python programming language", Mode: ModeSemantic, Threshold: -1})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one semantic result")
	}
}

func TestSearchHybrid(t *testing.T) {
	e, ctx := setupEngine(t)
	results, err := e.Search(ctx, Query{Text: "programming language", Mode: ModeHybrid})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected hybrid results")
	}
}

func TestSearchSemanticWrapsEmbedderFailure(t *testing.T) {
	ctx := context.Background()
	store, err := chunkstore.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open chunkstore: %v", err)
	}
	defer store.Close()

	e := New(store, lexindex.New(), failingEmbedder{})
	_, err = e.Search(ctx, Query{Text: "anything", Mode: ModeSemantic})
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Kind != apierr.KindEmbedderUnavailable {
		t.Fatalf("expected KindEmbedderUnavailable, got %v", err)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	e, ctx := setupEngine(t)
	if _, err := e.Search(ctx, Query{Text: "  "}); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestSnippetHighlightsMatch(t *testing.T) {
	s := snippet("the quick brown fox jumps over the lazy dog", "fox")
	if s == "" {
		t.Fatal("expected non-empty snippet")
	}
	if !contains(s, "**fox**") {
		t.Fatalf("expected highlighted match, got %q", s)
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}
