package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitForState(t *testing.T, s *Scheduler, taskID string, want State, timeout time.Duration) Task {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		task, err := s.Status(taskID)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if task.State == want {
			return task
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("task %s did not reach state %s in time", taskID, want)
	return Task{}
}

func TestSubmitCompletes(t *testing.T) {
	s := New(2, func(ctx context.Context, tsk *Task, report func(Progress)) error {
		report(Progress{FilesProcessed: 1, TotalFiles: 1})
		return nil
	})

	id := s.Submit("dir1", "/tmp/dir1")
	task := waitForState(t, s, id, StateCompleted, time.Second)
	if task.Progress.FilesProcessed != 1 {
		t.Fatalf("expected progress recorded, got %+v", task.Progress)
	}
}

func TestSubmitFails(t *testing.T) {
	s := New(2, func(ctx context.Context, tsk *Task, report func(Progress)) error {
		return errors.New("boom")
	})

	id := s.Submit("dir1", "/tmp/dir1")
	task := waitForState(t, s, id, StateFailed, time.Second)
	if task.Err != "boom" {
		t.Fatalf("expected error recorded, got %q", task.Err)
	}
}

func TestCancelPropagatesToRunFunc(t *testing.T) {
	started := make(chan struct{})
	s := New(2, func(ctx context.Context, tsk *Task, report func(Progress)) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	id := s.Submit("dir1", "/tmp/dir1")
	<-started
	if err := s.Cancel(id); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	waitForState(t, s, id, StateCancelled, time.Second)
}

func TestSameDirectorySerialized(t *testing.T) {
	var running int32
	var maxConcurrent int32
	var mu sync.Mutex

	s := New(5, func(ctx context.Context, tsk *Task, report func(Progress)) error {
		n := atomic.AddInt32(&running, 1)
		mu.Lock()
		if n > maxConcurrent {
			maxConcurrent = n
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	})

	id1 := s.Submit("dir1", "/tmp/dir1")
	id2 := s.Submit("dir1", "/tmp/dir1")

	waitForState(t, s, id1, StateCompleted, time.Second)
	waitForState(t, s, id2, StateCompleted, time.Second)

	if maxConcurrent > 1 {
		t.Fatalf("expected serialized execution for same directory, saw %d concurrent", maxConcurrent)
	}
}

func TestGlobalConcurrencyCap(t *testing.T) {
	var running int32
	var maxConcurrent int32
	var mu sync.Mutex

	s := New(2, func(ctx context.Context, tsk *Task, report func(Progress)) error {
		n := atomic.AddInt32(&running, 1)
		mu.Lock()
		if n > maxConcurrent {
			maxConcurrent = n
		}
		mu.Unlock()
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	})

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		ids = append(ids, s.Submit(fmt.Sprintf("dir%d", i), fmt.Sprintf("/tmp/dir%d", i)))
	}
	for _, id := range ids {
		waitForState(t, s, id, StateCompleted, 2*time.Second)
	}

	if maxConcurrent > 2 {
		t.Fatalf("expected at most 2 concurrent tasks, saw %d", maxConcurrent)
	}
}
