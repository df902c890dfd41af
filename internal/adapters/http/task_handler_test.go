package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protodo/core/internal/application/services"
	"github.com/protodo/core/internal/domain/entities"
	"github.com/protodo/core/internal/infrastructure/logger"
	"github.com/protodo/core/internal/ports"
)

// stubRepo is a no-op repository so handler tests exercise only the store.
type stubRepo struct{}

func (stubRepo) LoadTasks(ctx context.Context) ([]entities.Task, error) { return nil, nil }

func (stubRepo) SaveTasks(ctx context.Context, tasks []entities.Task) error { return nil }

func (stubRepo) LoadOrder(ctx context.Context) ([]string, error) { return nil, nil }

func (stubRepo) SaveOrder(ctx context.Context, order []string) error { return nil }

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

func newHandlerTest(t *testing.T) (*echo.Echo, *TaskHandler, *services.TaskStore) {
	t.Helper()
	store, err := services.NewTaskStore(context.Background(), stubRepo{}, logger.NewNop())
	require.NoError(t, err)

	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}
	return e, NewTaskHandler(store, logger.NewNop()), store
}

func addTask(t *testing.T, store *services.TaskStore, req ports.CreateTaskRequest) entities.Task {
	t.Helper()
	task, err := store.Add(context.Background(), req)
	require.NoError(t, err)
	return task
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestCreateTask(t *testing.T) {
	e, h, _ := newHandlerTest(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/v1/tasks", `{"text":"Ship release","priority":"high"}`), rec)

	require.NoError(t, h.CreateTask(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var task entities.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, "Ship release", task.Text)
	assert.Equal(t, entities.PriorityHigh, task.Priority)
	assert.Equal(t, "general", task.Category)
}

func TestCreateTaskValidation(t *testing.T) {
	e, h, _ := newHandlerTest(t)

	cases := []string{
		`{}`,
		`{"text":"x","priority":"urgent"}`,
		`{"text":"x","dueDate":"31-01-2024"}`,
	}
	for _, body := range cases {
		c := e.NewContext(jsonRequest(http.MethodPost, "/api/v1/tasks", body), httptest.NewRecorder())
		err := h.CreateTask(c)
		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr, "body: %s", body)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	}
}

func TestListTasksProjection(t *testing.T) {
	e, h, store := newHandlerTest(t)
	ctx := context.Background()

	a := addTask(t, store, ports.CreateTaskRequest{Text: "buy milk"})
	addTask(t, store, ports.CreateTaskRequest{Text: "write code"})
	_, err := store.ToggleComplete(ctx, a.ID)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/tasks?filter=pending", nil), rec)
	require.NoError(t, h.ListTasks(c))

	var views []struct {
		entities.Task
		Overdue bool `json:"overdue"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "write code", views[0].Text)
}

func TestListTasksRejectsUnknownModes(t *testing.T) {
	e, h, _ := newHandlerTest(t)

	for _, target := range []string{"/api/v1/tasks?filter=bogus", "/api/v1/tasks?sort=bogus"} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		err := h.ListTasks(c)
		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	e, h, _ := newHandlerTest(t)

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := h.GetTask(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestDeleteUnknownTaskSucceeds(t *testing.T) {
	e, h, _ := newHandlerTest(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("never-existed")

	require.NoError(t, h.DeleteTask(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestToggleTask(t *testing.T) {
	e, h, store := newHandlerTest(t)
	task := addTask(t, store, ports.CreateTaskRequest{Text: "flip me"})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(task.ID)

	require.NoError(t, h.ToggleTask(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var got entities.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Completed)
}

func TestSubtaskErrorsMapToNotFound(t *testing.T) {
	e, h, store := newHandlerTest(t)
	task := addTask(t, store, ports.CreateTaskRequest{Text: "parent"})

	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id", "subId")
	c.SetParamValues(task.ID, "missing-sub")

	err := h.ToggleSubtask(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestReorderEndpoint(t *testing.T) {
	e, h, store := newHandlerTest(t)
	a := addTask(t, store, ports.CreateTaskRequest{Text: "a"})
	b := addTask(t, store, ports.CreateTaskRequest{Text: "b"})

	body := `{"dragged_id":"` + b.ID + `","target_id":"` + a.ID + `"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/v1/tasks/reorder", body), rec)

	require.NoError(t, h.ReorderTasks(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, order := store.Snapshot()
	assert.Equal(t, []string{b.ID, a.ID}, order)
}

func TestClearCompletedEndpoint(t *testing.T) {
	e, h, store := newHandlerTest(t)
	ctx := context.Background()
	a := addTask(t, store, ports.CreateTaskRequest{Text: "done"})
	addTask(t, store, ports.CreateTaskRequest{Text: "open"})
	_, err := store.ToggleComplete(ctx, a.ID)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	require.NoError(t, h.ClearCompleted(c))

	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp["removed"])
}

func TestGetStats(t *testing.T) {
	e, h, store := newHandlerTest(t)
	addTask(t, store, ports.CreateTaskRequest{Text: "a"})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, h.GetStats(c))

	var stats services.StoreStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 0, stats.Done)
}
