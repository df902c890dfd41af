package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protodo/core/internal/domain/entities"
	"github.com/protodo/core/internal/infrastructure/logger"
	"github.com/protodo/core/internal/ports"
)

// fakeSyncClient scripts push/pull outcomes for sync service tests.
type fakeSyncClient struct {
	pushed  [][]entities.Task
	pullRes []entities.Task
	pullErr error

	started chan struct{}
	release chan struct{}
}

func (c *fakeSyncClient) Push(ctx context.Context, userID string, tasks []entities.Task) ([]ports.PushResult, error) {
	if c.started != nil {
		close(c.started)
		<-c.release
	}
	c.pushed = append(c.pushed, tasks)
	results := make([]ports.PushResult, 0, len(tasks))
	for _, t := range tasks {
		results = append(results, ports.PushResult{TaskID: t.ID, Synced: true})
	}
	return results, nil
}

func (c *fakeSyncClient) Pull(ctx context.Context, userID string) ([]entities.Task, error) {
	return c.pullRes, c.pullErr
}

func TestPushAllReportsPerTaskResults(t *testing.T) {
	store, _ := newTestStore(t)
	a := mustAdd(t, store, ports.CreateTaskRequest{Text: "a"})
	b := mustAdd(t, store, ports.CreateTaskRequest{Text: "b"})

	client := &fakeSyncClient{}
	svc := NewSyncService(store, client, logger.NewNop())

	results, err := svc.PushAll(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, a.ID, results[0].TaskID)
	assert.Equal(t, b.ID, results[1].TaskID)
	assert.True(t, results[0].Synced)
	require.Len(t, client.pushed, 1)
}

func TestPullReplaceSwapsLocalState(t *testing.T) {
	store, _ := newTestStore(t)
	mustAdd(t, store, ports.CreateTaskRequest{Text: "local only"})

	client := &fakeSyncClient{pullRes: []entities.Task{
		{ID: "r2", Text: "remote b"},
		{ID: "r1", Text: "remote a"},
	}}
	svc := NewSyncService(store, client, logger.NewNop())

	count, err := svc.PullReplace(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	tasks, order := store.Snapshot()
	require.Len(t, tasks, 2)
	assert.Equal(t, []string{"r2", "r1"}, order)
}

func TestPullReplaceFailureLeavesStateUntouched(t *testing.T) {
	store, _ := newTestStore(t)
	task := mustAdd(t, store, ports.CreateTaskRequest{Text: "keep"})

	client := &fakeSyncClient{pullErr: errors.New("network down")}
	svc := NewSyncService(store, client, logger.NewNop())

	_, err := svc.PullReplace(context.Background(), "user-1")
	require.Error(t, err)

	got, err := store.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep", got.Text)
}

func TestOnlyOneSyncInFlight(t *testing.T) {
	store, _ := newTestStore(t)
	mustAdd(t, store, ports.CreateTaskRequest{Text: "a"})

	client := &fakeSyncClient{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := NewSyncService(store, client, logger.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := svc.PushAll(context.Background(), "user-1")
		done <- err
	}()

	<-client.started
	_, err := svc.PullReplace(context.Background(), "user-1")
	assert.ErrorIs(t, err, entities.ErrSyncInFlight)

	close(client.release)
	require.NoError(t, <-done)
}
