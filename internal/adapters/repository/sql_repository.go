package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/protodo/core/internal/domain/entities"
	"github.com/protodo/core/internal/infrastructure/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	text       TEXT NOT NULL,
	notes      TEXT NOT NULL DEFAULT '',
	completed  BOOLEAN NOT NULL DEFAULT FALSE,
	priority   TEXT NOT NULL DEFAULT 'medium',
	due_date   TEXT NOT NULL DEFAULT '',
	category   TEXT NOT NULL DEFAULT 'general',
	recurring  TEXT NOT NULL DEFAULT 'none',
	reminder   TEXT NOT NULL DEFAULT 'off',
	subtasks   TEXT NOT NULL DEFAULT '[]',
	created_at BIGINT NOT NULL,
	position   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS task_order (
	position INTEGER PRIMARY KEY,
	task_id  TEXT NOT NULL
);
`

// taskRow mirrors the tasks table; subtasks are stored as a JSON column.
type taskRow struct {
	ID        string `db:"id"`
	Text      string `db:"text"`
	Notes     string `db:"notes"`
	Completed bool   `db:"completed"`
	Priority  string `db:"priority"`
	DueDate   string `db:"due_date"`
	Category  string `db:"category"`
	Recurring string `db:"recurring"`
	Reminder  string `db:"reminder"`
	Subtasks  string `db:"subtasks"`
	CreatedAt int64  `db:"created_at"`
	Position  int    `db:"position"`
}

// SQLRepository persists tasks through sqlx. The sqlite driver serves the
// default local deployment; postgres is available for shared setups. Saves
// replace the full collection in one transaction, mirroring the
// whole-document write contract of the file backend.
type SQLRepository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewSQLRepository opens the database and bootstraps the schema.
// Driver is "sqlite" or "postgres".
func NewSQLRepository(driver, dsn string, appLogger *logger.Logger) (*SQLRepository, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to bootstrap schema: %w", err)
	}

	return &SQLRepository{
		db:     db,
		logger: appLogger.WithComponent("sql_repository"),
	}, nil
}

// Close releases the underlying database handle.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// LoadTasks reads the stored task collection in insertion order.
func (r *SQLRepository) LoadTasks(ctx context.Context) ([]entities.Task, error) {
	var rows []taskRow
	err := r.db.SelectContext(ctx, &rows, `SELECT * FROM tasks ORDER BY position`)
	if err != nil {
		if err == sql.ErrNoRows {
			return []entities.Task{}, nil
		}
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	tasks := make([]entities.Task, 0, len(rows))
	for _, row := range rows {
		task := entities.Task{
			ID:        row.ID,
			Text:      row.Text,
			Notes:     row.Notes,
			Completed: row.Completed,
			Priority:  entities.Priority(row.Priority),
			DueDate:   row.DueDate,
			Category:  row.Category,
			Recurring: entities.Recurrence(row.Recurring),
			Reminder:  row.Reminder,
			Subtasks:  []entities.Subtask{},
			CreatedAt: row.CreatedAt,
		}
		if err := json.Unmarshal([]byte(row.Subtasks), &task.Subtasks); err != nil {
			r.logger.Warnw("Discarding corrupt subtask column", "task_id", row.ID, "error", err)
			task.Subtasks = []entities.Subtask{}
		}
		if task.Subtasks == nil {
			task.Subtasks = []entities.Subtask{}
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// SaveTasks replaces the stored collection.
func (r *SQLRepository) SaveTasks(ctx context.Context, tasks []entities.Task) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("failed to clear tasks: %w", err)
	}

	insert := tx.Rebind(`INSERT INTO tasks
		(id, text, notes, completed, priority, due_date, category, recurring, reminder, subtasks, created_at, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for i, t := range tasks {
		subtasks, err := json.Marshal(t.Subtasks)
		if err != nil {
			return fmt.Errorf("failed to marshal subtasks for %s: %w", t.ID, err)
		}
		_, err = tx.ExecContext(ctx, insert,
			t.ID, t.Text, t.Notes, t.Completed, string(t.Priority), t.DueDate,
			t.Category, string(t.Recurring), t.Reminder, string(subtasks), t.CreatedAt, i)
		if err != nil {
			return fmt.Errorf("failed to insert task %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tasks: %w", err)
	}
	return nil
}

// LoadOrder reads the stored manual order index.
func (r *SQLRepository) LoadOrder(ctx context.Context) ([]string, error) {
	var order []string
	err := r.db.SelectContext(ctx, &order, `SELECT task_id FROM task_order ORDER BY position`)
	if err != nil {
		if err == sql.ErrNoRows {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		order = []string{}
	}
	return order, nil
}

// SaveOrder replaces the stored manual order index.
func (r *SQLRepository) SaveOrder(ctx context.Context, order []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_order`); err != nil {
		return fmt.Errorf("failed to clear order: %w", err)
	}

	insert := tx.Rebind(`INSERT INTO task_order (position, task_id) VALUES (?, ?)`)
	for i, id := range order {
		if _, err := tx.ExecContext(ctx, insert, i, id); err != nil {
			return fmt.Errorf("failed to insert order entry %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}
