package registry

import (
	"context"
	"testing"
)

func TestAddAndGet(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	dir := t.TempDir()
	d, err := s.Add(ctx, "dir1", dir)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if d.Status != "pending" {
		t.Fatalf("expected pending status, got %q", d.Status)
	}

	got, err := s.Get(ctx, "dir1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "dir1" {
		t.Fatalf("got %+v", got)
	}
}

func TestAddRejectsNonexistentPath(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if _, err := s.Add(ctx, "dir1", "/nonexistent/path/that/should/not/exist"); err == nil {
		t.Fatal("expected error for nonexistent path")
	}
}

func TestRemoveAndList(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	dir1, dir2 := t.TempDir(), t.TempDir()
	if _, err := s.Add(ctx, "dir1", dir1); err != nil {
		t.Fatalf("add dir1: %v", err)
	}
	if _, err := s.Add(ctx, "dir2", dir2); err != nil {
		t.Fatalf("add dir2: %v", err)
	}

	if err := s.Remove(ctx, "dir1"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	dirs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(dirs) != 1 || dirs[0].ID != "dir2" {
		t.Fatalf("expected only dir2 remaining, got %+v", dirs)
	}
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	dir := t.TempDir()
	if _, err := s.Add(ctx, "dir1", dir); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.SetStatus(ctx, "dir1", "ready"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got, err := s.Get(ctx, "dir1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != "ready" {
		t.Fatalf("expected ready, got %q", got.Status)
	}
}
