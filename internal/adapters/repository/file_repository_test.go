package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protodo/core/internal/domain/entities"
	"github.com/protodo/core/internal/infrastructure/logger"
)

func newTestRepo(t *testing.T) *FileRepository {
	t.Helper()
	repo, err := NewFileRepository(t.TempDir(), logger.NewNop())
	require.NoError(t, err)
	return repo
}

func TestFileRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tasks := []entities.Task{
		{
			ID:        "t1",
			Text:      "persist me",
			Priority:  entities.PriorityHigh,
			DueDate:   "2024-07-01",
			Category:  "work",
			Recurring: entities.RecurrenceWeekly,
			Reminder:  "off",
			Subtasks:  []entities.Subtask{{ID: "s1", Text: "part", Completed: true}},
			CreatedAt: 1700000000000,
		},
	}
	order := []string{"t1"}

	require.NoError(t, repo.SaveTasks(ctx, tasks))
	require.NoError(t, repo.SaveOrder(ctx, order))

	gotTasks, err := repo.LoadTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, tasks, gotTasks)

	gotOrder, err := repo.LoadOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, order, gotOrder)
}

func TestFileRepositoryMissingFilesLoadEmpty(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tasks, err := repo.LoadTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.NotNil(t, tasks)

	order, err := repo.LoadOrder(ctx)
	require.NoError(t, err)
	assert.Empty(t, order)
	assert.NotNil(t, order)
}

func TestFileRepositoryCorruptFilesLoadEmpty(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileRepository(dir, logger.NewNop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks_v2.json"), []byte("{nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "order_v2.json"), []byte("42"), 0o644))

	tasks, err := repo.LoadTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)

	order, err := repo.LoadOrder(context.Background())
	require.NoError(t, err)
	assert.Empty(t, order)
}

func TestFileRepositoryNormalizesNilSubtasks(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileRepository(dir, logger.NewNop())
	require.NoError(t, err)

	raw := `[{"id":"t1","text":"no subtasks key"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks_v2.json"), []byte(raw), 0o644))

	tasks, err := repo.LoadTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.NotNil(t, tasks[0].Subtasks)
}
