package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/taskping/taskping/internal/dates"
	"github.com/taskping/taskping/internal/models"
	"github.com/taskping/taskping/internal/repository"
	"github.com/taskping/taskping/internal/service"
	"github.com/taskping/taskping/internal/summary"
)

type AddTaskRequestBody struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	DueDate string `json:"due_date"`
}

type CompleteTasksRequestBody struct {
	IDs []int64 `json:"ids"`
}

type TaskResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	DueDate    *string   `json:"due_date"`
	Label      string    `json:"label"`
	AssignerID string    `json:"assigner_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type TaskHandler struct {
	taskService     *service.TaskService
	settingsService *service.SettingsService
	composer        *summary.Composer
}

func NewTaskHandler(
	taskService *service.TaskService,
	settingsService *service.SettingsService,
	composer *summary.Composer,
) *TaskHandler {
	return &TaskHandler{
		taskService:     taskService,
		settingsService: settingsService,
		composer:        composer,
	}
}

// AddTask stores a new self-assigned task. The due_date field takes
// the same raw input as the chat command: a day offset or YYYY-MM-DD.
func (h *TaskHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	var reqBody AddTaskRequestBody
	if err := decodeJSON(r, &reqBody); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if reqBody.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	task, err := h.taskService.Add(reqBody.UserID, reqBody.Name, reqBody.DueDate)
	if err != nil {
		if errors.Is(err, service.ErrEmptyName) || errors.Is(err, dates.ErrBadDateInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Error trying to add task: "+err.Error())
		return
	}

	today := h.taskService.ReferenceToday()
	writeJSON(w, http.StatusCreated, map[string]any{
		"task": toTaskResponse(*task, today),
		"message": fmt.Sprintf("Task added: %s (%s) (ID: %d)",
			task.Name, dates.DisplayLabel(task.DueDate, today), task.ID),
	})
}

// ListUpcoming returns the soonest tasks, at most the configured limit.
func (h *TaskHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	tasks, err := h.taskService.Upcoming(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error trying to list tasks: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": toTaskResponses(tasks, h.taskService.ReferenceToday()),
	})
}

// ListAll returns every task in display order.
func (h *TaskHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	tasks, err := h.taskService.All(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error trying to list tasks: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": toTaskResponses(tasks, h.taskService.ReferenceToday()),
	})
}

// Focus picks one task to work on right now.
func (h *TaskHandler) Focus(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	task, reason, err := h.taskService.Focus(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error trying to pick a task: "+err.Error())
		return
	}
	if task == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"task":    nil,
			"message": "No tasks available! Good job.",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"task":   toTaskResponse(*task, h.taskService.ReferenceToday()),
		"reason": reason,
	})
}

// CompleteMany removes a batch of the user's tasks by id.
func (h *TaskHandler) CompleteMany(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	var reqBody CompleteTasksRequestBody
	if err := decodeJSON(r, &reqBody); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(reqBody.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids must not be empty")
		return
	}

	count, err := h.taskService.CompleteMany(user, reqBody.IDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error trying to complete tasks: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"completed": count})
}

// CompleteOne removes a single task by id.
func (h *TaskHandler) CompleteOne(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "task id must be a number")
		return
	}

	ok, err := h.taskService.Complete(user, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error trying to complete task: "+err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Task with ID %d not found (or not yours).", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Task %d completed and removed.", id),
	})
}

// Summary composes the reminder body for a user as of their own local
// date, falling back to the reference frame when their zone is unset
// or broken.
func (h *TaskHandler) Summary(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	today := h.taskService.ReferenceToday()
	if zone, err := h.settingsService.Get(user, repository.KeyTimezone); err == nil {
		if local, _, _, err := dates.LocalNow(zone, time.Now()); err == nil {
			today = local
		}
	}

	sum, err := h.composer.Compose(r.Context(), user, today)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error trying to compose summary: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":   sum.Kind.String(),
		"header": sum.Header,
		"lines":  sum.Lines,
		"text":   sum.Text(),
	})
}

func toTaskResponse(t models.Task, today dates.Date) TaskResponse {
	resp := TaskResponse{
		ID:         t.ID,
		Name:       t.Name,
		Label:      dates.DisplayLabel(t.DueDate, today),
		AssignerID: t.AssignerID,
		CreatedAt:  t.CreatedAt,
	}
	if t.DueDate != nil {
		due := t.DueDate.String()
		resp.DueDate = &due
	}
	return resp
}

func toTaskResponses(tasks []models.Task, today dates.Date) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t, today))
	}
	return out
}
