package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/dsearch/dsearchd/internal/apierr"
	"github.com/dsearch/dsearchd/internal/middleware"
	"github.com/dsearch/dsearchd/internal/registry"
	"github.com/dsearch/dsearchd/internal/scheduler"
)

type directoryInfo struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Status string `json:"status"`
}

func toDirectoryInfo(d registry.Directory) directoryInfo {
	return directoryInfo{ID: d.ID, Path: d.Path, Status: d.Status}
}

func (s *Server) handleAddDirectory(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		middleware.WriteError(w, apierr.InvalidInput("path query parameter is required"))
		return
	}

	id := deriveDirectoryID(path)
	dir, err := s.Registry.Add(r.Context(), id, path)
	if err != nil {
		if errors.Is(err, registry.ErrInvalidPath) {
			middleware.WriteError(w, apierr.InvalidInput("%v", err))
			return
		}
		if errors.Is(err, registry.ErrAlreadyRegistered) {
			middleware.WriteError(w, apierr.Conflict("directory already registered"))
			return
		}
		middleware.WriteError(w, apierr.Internal(err))
		return
	}

	taskID := s.Scheduler.Submit(dir.ID, dir.Path)
	_ = s.Registry.SetStatus(r.Context(), dir.ID, "indexing")
	s.auditLog(r, "directory", dir.ID, "register", true)

	middleware.WriteJSON(w, http.StatusAccepted, "directory registered", map[string]interface{}{
		"directory": toDirectoryInfo(dir),
		"task_id":   taskID,
	})
}

func (s *Server) handleListDirectories(w http.ResponseWriter, r *http.Request) {
	dirs, err := s.Registry.List(r.Context())
	if err != nil {
		middleware.WriteError(w, apierr.Internal(err))
		return
	}

	infos := make([]directoryInfo, len(dirs))
	for i, d := range dirs {
		infos[i] = toDirectoryInfo(d)
	}
	middleware.WriteJSON(w, http.StatusOK, "", map[string]interface{}{"directories": infos})
}

type directoryStatusResponse struct {
	Path          string `json:"path"`
	Status        string `json:"status"`
	Progress      int    `json:"progress"`
	TotalFiles    int    `json:"total_files"`
	IndexedFiles  int    `json:"indexed_files"`
	TaskID        string `json:"task_id,omitempty"`
	Message       string `json:"message,omitempty"`
}

func (s *Server) handleDirectoryStatus(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if path == "" {
		middleware.WriteError(w, apierr.InvalidInput("path is required"))
		return
	}

	dir, err := s.Registry.Get(r.Context(), deriveDirectoryID(path))
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			middleware.WriteError(w, apierr.NotFound("directory"))
			return
		}
		middleware.WriteError(w, apierr.Internal(err))
		return
	}

	resp := directoryStatusResponse{Path: dir.Path, Status: dir.Status}

	if task, ok := s.Scheduler.ForDirectory(dir.ID); ok {
		resp.TaskID = task.ID
		resp.TotalFiles = task.Progress.TotalFiles
		resp.IndexedFiles = task.Progress.FilesProcessed
		if task.Progress.TotalFiles > 0 {
			resp.Progress = task.Progress.FilesProcessed * 100 / task.Progress.TotalFiles
		}
		if task.State == scheduler.StateFailed {
			resp.Message = task.Err
		}
		if status := directoryStatusFor(task.State); status != "" {
			resp.Status = status
			if status != dir.Status {
				_ = s.Registry.SetStatus(r.Context(), dir.ID, status)
			}
		}
	}

	middleware.WriteJSON(w, http.StatusOK, "", resp)
}

// directoryStatusFor maps a task's terminal or in-flight scheduler state to
// the directory-lifecycle status reported to callers. It returns "" for a
// queued task, leaving the directory's last recorded status unchanged.
func directoryStatusFor(state scheduler.State) string {
	switch state {
	case scheduler.StateRunning:
		return "indexing"
	case scheduler.StateCompleted:
		return "indexed"
	case scheduler.StateFailed:
		return "failed"
	case scheduler.StateCancelled:
		return "cancelled"
	default:
		return ""
	}
}

func (s *Server) handleRefreshDirectory(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if path == "" {
		middleware.WriteError(w, apierr.InvalidInput("path is required"))
		return
	}

	dir, err := s.Registry.Get(r.Context(), deriveDirectoryID(path))
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			middleware.WriteError(w, apierr.NotFound("directory"))
			return
		}
		middleware.WriteError(w, apierr.Internal(err))
		return
	}

	if task, ok := s.Scheduler.ForDirectory(dir.ID); ok && (task.State == scheduler.StateQueued || task.State == scheduler.StateRunning) {
		middleware.WriteJSON(w, http.StatusAccepted, "refresh already in progress", map[string]string{"task_id": task.ID})
		return
	}

	taskID := s.Scheduler.Submit(dir.ID, dir.Path)
	_ = s.Registry.SetStatus(r.Context(), dir.ID, "indexing")

	middleware.WriteJSON(w, http.StatusAccepted, "refresh queued", map[string]string{"task_id": taskID})
}

func (s *Server) handleRemoveDirectory(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if path == "" {
		middleware.WriteError(w, apierr.InvalidInput("path is required"))
		return
	}

	id := deriveDirectoryID(path)
	if task, ok := s.Scheduler.ForDirectory(id); ok && task.State == scheduler.StateRunning {
		_ = s.Scheduler.Cancel(task.ID)
	}

	if err := s.purgeDirectory(r.Context(), id); err != nil {
		middleware.WriteError(w, apierr.Internal(err))
		return
	}

	if err := s.Registry.Remove(r.Context(), id); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			middleware.WriteError(w, apierr.NotFound("directory"))
			return
		}
		middleware.WriteError(w, apierr.Internal(err))
		return
	}
	s.auditLog(r, "directory", id, "remove", true)

	middleware.WriteJSON(w, http.StatusOK, "", map[string]bool{"ok": true})
}

// purgeDirectory removes every chunk, lexical posting, and ledger entry
// recorded under directoryID, ahead of Remove deleting the registration
// itself. Registry.Remove deliberately leaves this data alone, so the
// removal order (cancel, purge, unregister) stays explicit at the call
// site instead of hidden inside the registry.
func (s *Server) purgeDirectory(ctx context.Context, directoryID string) error {
	states, err := s.Ledger.ListByDirectory(ctx, directoryID)
	if err != nil {
		return err
	}
	for _, st := range states {
		if err := s.Chunks.DeleteBySource(ctx, st.SourceID); err != nil {
			return err
		}
		s.Lex.RemoveBySource(st.SourceID)
		if err := s.Ledger.Forget(ctx, st.SourceID); err != nil {
			return err
		}
	}
	return nil
}
