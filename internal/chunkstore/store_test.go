package chunkstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/dsearch/dsearchd/internal/embedding"
)

func unitVector(dims int, hot int) embedding.Vector {
	v := make(embedding.Vector, dims)
	v[hot%dims] = 1.0
	return v
}

func TestUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	c := Chunk{ID: "c1", SourceID: "doc1", Ordinal: 0, Text: "hello", Vector: unitVector(4, 0)}
	if err := s.Upsert(ctx, c); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Text != "hello" || got.SourceID != "doc1" {
		t.Fatalf("got %+v", got)
	}
}

func TestDeleteBySource(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	for i := 0; i < 3; i++ {
		c := Chunk{ID: fmt.Sprintf("c%d", i), SourceID: "doc1", Ordinal: i, Text: "x", Vector: unitVector(4, i)}
		if err := s.Upsert(ctx, c); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	if err := s.DeleteBySource(ctx, "doc1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalChunks != 0 {
		t.Fatalf("expected 0 chunks after delete, got %d", stats.TotalChunks)
	}
}

func TestQuerySemanticReturnsClosest(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	a := Chunk{ID: "a", SourceID: "docA", Text: "alpha", Vector: embedding.Vector{1, 0, 0}}
	b := Chunk{ID: "b", SourceID: "docB", Text: "beta", Vector: embedding.Vector{0, 1, 0}}
	if err := s.Upsert(ctx, a); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	if err := s.Upsert(ctx, b); err != nil {
		t.Fatalf("upsert b: %v", err)
	}

	matches, err := s.QuerySemantic(ctx, embedding.Vector{1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 1 || matches[0].Chunk.ID != "a" {
		t.Fatalf("expected closest match 'a', got %+v", matches)
	}
}
