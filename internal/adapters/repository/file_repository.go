package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/protodo/core/internal/domain/entities"
	"github.com/protodo/core/internal/infrastructure/logger"
)

const (
	tasksFile = "tasks_v2.json"
	orderFile = "order_v2.json"
)

// FileRepository persists the task collection and the manual order index
// as JSON files in a data directory. Missing or corrupt files load as
// empty collections so a damaged store never blocks startup.
type FileRepository struct {
	dir    string
	logger *logger.Logger
}

// NewFileRepository creates a file-backed repository rooted at dir.
func NewFileRepository(dir string, appLogger *logger.Logger) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileRepository{
		dir:    dir,
		logger: appLogger.WithComponent("file_repository"),
	}, nil
}

// LoadTasks reads the stored task collection.
func (r *FileRepository) LoadTasks(ctx context.Context) ([]entities.Task, error) {
	var tasks []entities.Task
	if err := r.read(tasksFile, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []entities.Task{}
	}
	for i := range tasks {
		if tasks[i].Subtasks == nil {
			tasks[i].Subtasks = []entities.Subtask{}
		}
	}
	return tasks, nil
}

// SaveTasks writes the full task collection.
func (r *FileRepository) SaveTasks(ctx context.Context, tasks []entities.Task) error {
	return r.write(tasksFile, tasks)
}

// LoadOrder reads the stored manual order index.
func (r *FileRepository) LoadOrder(ctx context.Context) ([]string, error) {
	var order []string
	if err := r.read(orderFile, &order); err != nil {
		return nil, err
	}
	if order == nil {
		order = []string{}
	}
	return order, nil
}

// SaveOrder writes the manual order index.
func (r *FileRepository) SaveOrder(ctx context.Context, order []string) error {
	return r.write(orderFile, order)
}

func (r *FileRepository) read(name string, dest interface{}) error {
	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		r.logger.Warnw("Discarding corrupt store file", "file", name, "error", err)
		return nil
	}
	return nil
}

// write marshals to a temp file and renames it into place so readers never
// observe a half-written file.
func (r *FileRepository) write(name string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	path := filepath.Join(r.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
