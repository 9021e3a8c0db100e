package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"noteharvest/internal/export"
	"noteharvest/internal/harvest"
	"noteharvest/internal/metrics"
	"noteharvest/internal/source/rednote"
)

type submitTaskRequest struct {
	Keyword    string `json:"keyword"`
	NumNotes   *int   `json:"num_notes"`
	Credential string `json:"credential"`
}

type credentialCheckRequest struct {
	Credential string `json:"credential"`
}

// taskSummary is the list-endpoint projection of a task.
type taskSummary struct {
	ID        string    `json:"task_id"`
	Keyword   string    `json:"keyword"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
}

// submitTask handles POST /api/tasks. Validation failures never start any
// work; an accepted submission returns immediately with the task id while
// the runner proceeds in the background.
func (s *Server) submitTask(w http.ResponseWriter, r *http.Request) {
	var req submitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	keyword := strings.TrimSpace(req.Keyword)
	credential := strings.TrimSpace(req.Credential)
	if keyword == "" {
		writeError(w, http.StatusBadRequest, "keyword must not be empty")
		return
	}
	if credential == "" {
		writeError(w, http.StatusBadRequest, "credential must not be empty")
		return
	}
	count := s.cfg.Harvest.DefaultCount
	if req.NumNotes != nil {
		count = *req.NumNotes
	}
	if count <= 0 || count > s.cfg.Harvest.MaxCount {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("num_notes must be between 1 and %d", s.cfg.Harvest.MaxCount))
		return
	}

	task, writer, err := s.registry.Create(keyword, count, credential)
	if err != nil {
		s.logger.Error("task creation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}
	s.runner.Dispatch(s.taskCtx, task, writer)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"task_id": task.ID,
		"status":  string(task.Status),
	})
}

// listTasks handles GET /api/tasks, newest first.
func (s *Server) listTasks(w http.ResponseWriter, _ *http.Request) {
	tasks := s.registry.List()
	summaries := make([]taskSummary, 0, len(tasks))
	for _, t := range tasks {
		summaries = append(summaries, taskSummary{
			ID:        t.ID,
			Keyword:   t.Keyword,
			Status:    string(t.Status),
			Progress:  t.Progress,
			CreatedAt: t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": summaries})
}

// getTaskStatus handles GET /api/tasks/{task_id}/status.
func (s *Server) getTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, err := s.registry.Get(chi.URLParam(r, "task_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// getTaskResult handles GET /api/tasks/{task_id}/result, serving the stored
// artifact.
func (s *Server) getTaskResult(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	result, err := s.store.Load(r.Context(), taskID)
	if err != nil {
		s.writeLoadError(w, taskID, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// exportComments handles GET /api/export/comments/{task_id}. Query params:
// format (json|csv|txt, default json) and note_index (optional).
func (s *Server) exportComments(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")

	formatToken := r.URL.Query().Get("format")
	if formatToken == "" {
		formatToken = string(export.FormatJSON)
	}
	format, err := export.ParseFormat(formatToken)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var noteIndex *int
	if raw := r.URL.Query().Get("note_index"); raw != "" {
		idx, convErr := strconv.Atoi(raw)
		if convErr != nil {
			writeError(w, http.StatusBadRequest, "invalid note_index")
			return
		}
		noteIndex = &idx
	}

	result, err := s.store.Load(r.Context(), taskID)
	if err != nil {
		s.writeLoadError(w, taskID, err)
		return
	}

	doc, err := s.formatter.Render(result, noteIndex, format)
	if err != nil {
		s.logger.Error("export render failed", zap.String("task_id", taskID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	metrics.ObserveExport(string(format))

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=comments_%s.%s", taskID, format.Ext()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		s.logger.Error("export write failed", zap.Error(err))
	}
}

// checkCredential handles POST /api/credential/check. Collaborator
// rejections are reported with a classified, human-readable reason.
func (s *Server) checkCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	credential := strings.TrimSpace(req.Credential)
	if credential == "" {
		writeError(w, http.StatusBadRequest, "credential must not be empty")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	profile, err := s.source.ProbeAuth(ctx, credential)
	if err != nil {
		class := rednote.ClassifyAuthFailure(err.Error())
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      false,
			"class":   string(class),
			"message": class.Reason(),
		})
		return
	}
	message := "credential is valid"
	if profile.Nickname != "" {
		message = fmt.Sprintf("credential is valid, signed in as %s", profile.Nickname)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": message,
	})
}

func (s *Server) writeLoadError(w http.ResponseWriter, taskID string, err error) {
	switch {
	case errors.Is(err, harvest.ErrNotFound):
		writeError(w, http.StatusNotFound, "result not found")
	case harvest.IsInputError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("result load failed", zap.String("task_id", taskID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load result")
	}
}
