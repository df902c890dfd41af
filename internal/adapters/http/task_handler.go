package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/protodo/core/internal/application/services"
	"github.com/protodo/core/internal/domain/entities"
	"github.com/protodo/core/internal/infrastructure/logger"
	"github.com/protodo/core/internal/ports"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	store  *services.TaskStore
	logger *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(store *services.TaskStore, appLogger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		store:  store,
		logger: appLogger,
	}
}

// taskView decorates a task with its derived overdue state.
type taskView struct {
	entities.Task
	Overdue bool `json:"overdue"`
}

// ListTasks projects the collection through filter, search and sort query
// parameters and returns the visible sequence.
func (h *TaskHandler) ListTasks(c echo.Context) error {
	filter := entities.FilterMode(c.QueryParam("filter"))
	if filter == "" {
		filter = entities.FilterAll
	}
	if !filter.IsValid() {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid filter mode")
	}

	sortMode := entities.SortMode(c.QueryParam("sort"))
	if sortMode == "" {
		sortMode = entities.SortManual
	}
	if !sortMode.IsValid() {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid sort mode")
	}

	tasks, order := h.store.Snapshot()
	visible := services.Project(tasks, order, filter, c.QueryParam("q"), sortMode)

	now := time.Now()
	views := make([]taskView, 0, len(visible))
	for i := range visible {
		views = append(views, taskView{Task: visible[i], Overdue: visible[i].IsOverdue(now)})
	}

	return c.JSON(http.StatusOK, views)
}

// CreateTask handles task creation
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.store.Add(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, entities.ErrEmptyTitle) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		h.logger.Error("Create task failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create task")
	}

	return c.JSON(http.StatusCreated, task)
}

// GetTask handles getting a task by id
func (h *TaskHandler) GetTask(c echo.Context) error {
	task, err := h.store.Get(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Task not found")
	}

	return c.JSON(http.StatusOK, task)
}

// UpdateTask handles patching a task
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	var req ports.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	task, err := h.store.Edit(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		if errors.Is(err, entities.ErrTaskNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Task not found")
		}
		h.logger.Error("Update task failed", "error", err, "task_id", c.Param("id"))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update task")
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask handles task deletion; deleting an unknown id succeeds.
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	if err := h.store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		h.logger.Error("Delete task failed", "error", err, "task_id", c.Param("id"))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete task")
	}

	return c.NoContent(http.StatusNoContent)
}

// ToggleTask flips a task's completion state
func (h *TaskHandler) ToggleTask(c echo.Context) error {
	task, err := h.store.ToggleComplete(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, entities.ErrTaskNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Task not found")
		}
		h.logger.Error("Toggle task failed", "error", err, "task_id", c.Param("id"))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to toggle task")
	}

	return c.JSON(http.StatusOK, task)
}

// AddSubtask handles adding a subtask to a task
func (h *TaskHandler) AddSubtask(c echo.Context) error {
	var req ports.SubtaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	subtask, err := h.store.AddSubtask(c.Request().Context(), c.Param("id"), req.Text)
	if err != nil {
		return subtaskError(err)
	}

	return c.JSON(http.StatusCreated, subtask)
}

// ToggleSubtask flips a subtask's completion state
func (h *TaskHandler) ToggleSubtask(c echo.Context) error {
	err := h.store.ToggleSubtask(c.Request().Context(), c.Param("id"), c.Param("subId"))
	if err != nil {
		return subtaskError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// RenameSubtask updates a subtask title; blank titles are ignored.
func (h *TaskHandler) RenameSubtask(c echo.Context) error {
	var req ports.SubtaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	err := h.store.RenameSubtask(c.Request().Context(), c.Param("id"), c.Param("subId"), req.Text)
	if err != nil {
		return subtaskError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// RemoveSubtask deletes a subtask
func (h *TaskHandler) RemoveSubtask(c echo.Context) error {
	err := h.store.RemoveSubtask(c.Request().Context(), c.Param("id"), c.Param("subId"))
	if err != nil {
		return subtaskError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// ReorderTasks moves a task in the manual order index
func (h *TaskHandler) ReorderTasks(c echo.Context) error {
	var req ports.ReorderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.store.Reorder(c.Request().Context(), req.DraggedID, req.TargetID); err != nil {
		h.logger.Error("Reorder failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to reorder tasks")
	}

	return c.NoContent(http.StatusNoContent)
}

// ClearCompleted removes all completed tasks
func (h *TaskHandler) ClearCompleted(c echo.Context) error {
	removed, err := h.store.ClearCompleted(c.Request().Context())
	if err != nil {
		h.logger.Error("Clear completed failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to clear completed tasks")
	}

	return c.JSON(http.StatusOK, map[string]int{"removed": removed})
}

// GetStats returns completion progress for the stats display
func (h *TaskHandler) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Stats())
}

func subtaskError(err error) error {
	switch {
	case errors.Is(err, entities.ErrTaskNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Task not found")
	case errors.Is(err, entities.ErrSubtaskNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Subtask not found")
	case errors.Is(err, entities.ErrEmptyTitle):
		return echo.NewHTTPError(http.StatusBadRequest, "Subtask title cannot be empty")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Subtask operation failed")
	}
}
