package ledger

import (
	"context"
	"testing"
)

func TestClassifyNewSource(t *testing.T) {
	ctx := context.Background()
	l, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()

	status, err := l.Classify(ctx, "file1", ContentHash("hello"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if status != StatusNew {
		t.Fatalf("expected StatusNew, got %v", status)
	}
}

func TestClassifyUnchangedAndModified(t *testing.T) {
	ctx := context.Background()
	l, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()

	hash := ContentHash("hello world")
	if err := l.Record(ctx, FileState{SourceID: "file1", DirectoryID: "dir1", ContentHash: hash, ChunkCount: 2}); err != nil {
		t.Fatalf("record: %v", err)
	}

	status, err := l.Classify(ctx, "file1", hash)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if status != StatusUnchanged {
		t.Fatalf("expected StatusUnchanged, got %v", status)
	}

	status, err = l.Classify(ctx, "file1", ContentHash("hello world, changed"))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if status != StatusModified {
		t.Fatalf("expected StatusModified, got %v", status)
	}
}

func TestForgetAndListByDirectory(t *testing.T) {
	ctx := context.Background()
	l, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()

	for _, id := range []string{"a", "b", "c"} {
		if err := l.Record(ctx, FileState{SourceID: id, DirectoryID: "dir1", ContentHash: ContentHash(id), ChunkCount: 1}); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	if err := l.Forget(ctx, "b"); err != nil {
		t.Fatalf("forget: %v", err)
	}

	states, err := l.ListByDirectory(ctx, "dir1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected 2 remaining states, got %d", len(states))
	}

	if _, err := l.Get(ctx, "b"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for forgotten source, got %v", err)
	}
}

func TestContentHashDeterministic(t *testing.T) {
	if ContentHash("same text") != ContentHash("same text") {
		t.Fatal("expected identical hash for identical text")
	}
	if ContentHash("a") == ContentHash("b") {
		t.Fatal("expected different hashes for different text")
	}
}
