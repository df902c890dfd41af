package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protodo/core/internal/domain/entities"
	"github.com/protodo/core/internal/infrastructure/logger"
)

func newSQLiteRepo(t *testing.T) *SQLRepository {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "protodo.db")
	repo, err := NewSQLRepository("sqlite", dsn, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLRepositoryRoundTrip(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	tasks := []entities.Task{
		{
			ID:        "t1",
			Text:      "first",
			Notes:     "with notes",
			Priority:  entities.PriorityHigh,
			DueDate:   "2024-08-01",
			Category:  "work",
			Recurring: entities.RecurrenceNone,
			Reminder:  "off",
			Subtasks:  []entities.Subtask{{ID: "s1", Text: "part one", Completed: true}},
			CreatedAt: 1700000000000,
		},
		{
			ID:        "t2",
			Text:      "second",
			Completed: true,
			Priority:  entities.PriorityLow,
			Category:  "general",
			Recurring: entities.RecurrenceDaily,
			Reminder:  "30",
			Subtasks:  []entities.Subtask{},
			CreatedAt: 1700000001000,
		},
	}
	order := []string{"t2", "t1"}

	require.NoError(t, repo.SaveTasks(ctx, tasks))
	require.NoError(t, repo.SaveOrder(ctx, order))

	gotTasks, err := repo.LoadTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, tasks, gotTasks)

	gotOrder, err := repo.LoadOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, order, gotOrder)
}

func TestSQLRepositorySaveReplacesCollection(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	first := []entities.Task{{ID: "old", Text: "stale", Subtasks: []entities.Subtask{}}}
	require.NoError(t, repo.SaveTasks(ctx, first))

	second := []entities.Task{{ID: "new", Text: "fresh", Subtasks: []entities.Subtask{}}}
	require.NoError(t, repo.SaveTasks(ctx, second))

	got, err := repo.LoadTasks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].ID)
}

func TestSQLRepositoryEmptyDatabase(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	tasks, err := repo.LoadTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	order, err := repo.LoadOrder(ctx)
	require.NoError(t, err)
	assert.Empty(t, order)
	assert.NotNil(t, order)
}
