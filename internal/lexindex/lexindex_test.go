package lexindex

import (
	"context"
	"path/filepath"
	"testing"
)

func TestUpsertAndSearch(t *testing.T) {
	idx := New()
	idx.Upsert("c1", "doc1", "the quick brown fox jumps over the lazy dog")
	idx.Upsert("c2", "doc2", "a completely unrelated sentence about cooking")

	matches := idx.Search("fox", 10)
	if len(matches) != 1 || matches[0].ChunkID != "c1" {
		t.Fatalf("expected c1 to match 'fox', got %+v", matches)
	}
}

func TestSearchRanksByTFIDF(t *testing.T) {
	idx := New()
	idx.Upsert("c1", "doc1", "python python python language")
	idx.Upsert("c2", "doc2", "python language design")
	idx.Upsert("c3", "doc3", "unrelated cooking recipe")

	matches := idx.Search("python", 10)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ChunkID != "c1" {
		t.Fatalf("expected c1 to rank first (higher term frequency), got %+v", matches)
	}
}

func TestRemoveBySource(t *testing.T) {
	idx := New()
	idx.Upsert("c1", "doc1", "alpha beta gamma")
	idx.Upsert("c2", "doc1", "alpha delta")
	idx.Upsert("c3", "doc2", "alpha epsilon")
	idx.Upsert("c4", "doc3", "zeta omega")

	idx.RemoveBySource("doc1")

	if idx.NumDocs() != 2 {
		t.Fatalf("expected 2 remaining docs, got %d", idx.NumDocs())
	}
	matches := idx.Search("alpha", 10)
	if len(matches) != 1 || matches[0].ChunkID != "c3" {
		t.Fatalf("expected only c3 to remain, got %+v", matches)
	}
}

func TestSaveAndLoad(t *testing.T) {
	idx := New()
	idx.Upsert("c1", "doc1", "persisted content here")
	idx.Upsert("c2", "doc2", "unrelated words elsewhere")

	path := filepath.Join(t.TempDir(), "lexindex.gob")
	if err := idx.Save(context.Background(), path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	matches := loaded.Search("persisted", 10)
	if len(matches) != 1 || matches[0].ChunkID != "c1" {
		t.Fatalf("expected loaded index to retain c1, got %+v", matches)
	}
}

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	idx, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.gob"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if idx.NumDocs() != 0 {
		t.Fatalf("expected empty index, got %d docs", idx.NumDocs())
	}
}

func TestSearchDropsZeroScoreChunks(t *testing.T) {
	idx := New()
	idx.Upsert("c1", "doc1", "common word here")
	idx.Upsert("c2", "doc2", "common word there")

	// "common" appears in every doc, so its idf (and thus every chunk's
	// score for it) is exactly zero; such chunks must not be returned.
	matches := idx.Search("common", 10)
	if len(matches) != 0 {
		t.Fatalf("expected zero-score chunks to be dropped, got %+v", matches)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	idx := New()
	idx.Upsert("c1", "doc1", "content")
	if got := idx.Search("", 10); got != nil {
		t.Fatalf("expected nil matches for empty query, got %v", got)
	}
}
