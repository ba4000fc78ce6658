package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eldtechnologies/contextstack/internal/models"
)

// CreateTaskRequest represents the task creation request.
type CreateTaskRequest struct {
	ChannelID    string     `json:"channelId"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	AssigneeName string     `json:"assigneeName,omitempty"`
	Status       string     `json:"status,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
}

// TaskListResponse represents the channel tasks response.
type TaskListResponse struct {
	ChannelID string        `json:"channelId"`
	Tasks     []models.Task `json:"tasks"`
}

// UpdateTaskRequest represents a task status change.
type UpdateTaskRequest struct {
	Status string `json:"status"`
}

// CreateTask handles POST /api/tasks.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.ChannelID = strings.TrimSpace(req.ChannelID)
	req.Title = strings.TrimSpace(req.Title)
	if req.ChannelID == "" || req.Title == "" {
		h.Error(w, http.StatusBadRequest, "channelId and title are required")
		return
	}
	if len(req.Title) > 200 {
		h.Error(w, http.StatusBadRequest, "title too long (max 200 characters)")
		return
	}
	if req.Status != "" && !models.ValidTaskStatus(req.Status) {
		h.Error(w, http.StatusBadRequest, "status must be one of todo, in-progress, done")
		return
	}

	task, err := h.store.CreateTask(r.Context(), &models.Task{
		ChannelID:    req.ChannelID,
		Title:        req.Title,
		Description:  strings.TrimSpace(req.Description),
		AssigneeName: sanitizeName(req.AssigneeName),
		Status:       req.Status,
		DueDate:      req.DueDate,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("channel_id", req.ChannelID).Msg("failed to create task")
		h.Error(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	h.JSON(w, http.StatusCreated, task)
}

// ListTasks handles GET /api/tasks/{channelId}.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	channelID := strings.TrimSpace(chi.URLParam(r, "channelId"))
	if channelID == "" {
		h.Error(w, http.StatusBadRequest, "channelId is required")
		return
	}

	tasks, err := h.store.ListTasks(r.Context(), channelID)
	if err != nil {
		h.logger.Error().Err(err).Str("channel_id", channelID).Msg("failed to list tasks")
		h.Error(w, http.StatusInternalServerError, "failed to fetch tasks")
		return
	}

	h.JSON(w, http.StatusOK, TaskListResponse{ChannelID: channelID, Tasks: tasks})
}

// UpdateTask handles PATCH /api/tasks/{id}.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid task ID format")
		return
	}

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !models.ValidTaskStatus(req.Status) {
		h.Error(w, http.StatusBadRequest, "status must be one of todo, in-progress, done")
		return
	}

	task, err := h.store.UpdateTaskStatus(r.Context(), id, req.Status)
	if err != nil {
		h.logger.Error().Err(err).Str("task_id", id.String()).Msg("failed to update task")
		h.Error(w, http.StatusInternalServerError, "failed to update task")
		return
	}
	if task == nil {
		h.Error(w, http.StatusNotFound, "task not found")
		return
	}

	h.JSON(w, http.StatusOK, task)
}
