package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/protodo/core/internal/domain/entities"
	"github.com/protodo/core/internal/infrastructure/logger"
	"github.com/protodo/core/internal/ports"
)

// Client talks to the remote per-user document store over HTTP. Each task
// is stored as its own document under the user's collection. The client
// imposes no timeouts of its own; that is the injected http.Client's job.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger
}

// NewClient creates a sync client for the given document-store base URL.
// A nil httpClient falls back to http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client, appLogger *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		logger:  appLogger.WithComponent("sync_client"),
	}
}

// Push uploads every task as a separate document and reports the outcome
// per task. A failed task does not stop the remaining uploads.
func (c *Client) Push(ctx context.Context, userID string, tasks []entities.Task) ([]ports.PushResult, error) {
	results := make([]ports.PushResult, 0, len(tasks))
	for _, task := range tasks {
		result := ports.PushResult{TaskID: task.ID, Synced: true}
		if err := c.putTask(ctx, userID, task); err != nil {
			result.Synced = false
			result.Error = err.Error()
			c.logger.Warnw("Task push failed", "user_id", userID, "task_id", task.ID, "error", err)
		}
		results = append(results, result)
	}
	return results, nil
}

// Pull downloads the user's full remote collection in arrival order.
func (c *Client) Pull(ctx context.Context, userID string) ([]entities.Task, error) {
	url := fmt.Sprintf("%s/users/%s/tasks", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrSyncFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrSyncFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", entities.ErrSyncFailed, resp.StatusCode)
	}

	var tasks []entities.Task
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrSyncFailed, err)
	}
	return tasks, nil
}

func (c *Client) putTask(ctx context.Context, userID string, task entities.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/users/%s/tasks/%s", c.baseURL, userID, task.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
