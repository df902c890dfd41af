package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/protodo/core/internal/domain/entities"
	"github.com/protodo/core/internal/infrastructure/logger"
)

// exportVersion tags the JSON export payload shape.
const exportVersion = 2

// ExportPayload is the portable JSON shape for backup and import.
type ExportPayload struct {
	Version int             `json:"version"`
	Tasks   []entities.Task `json:"tasks"`
	Order   []string        `json:"order"`
}

// ExportService serializes the store for backup and restores it from
// imported payloads. Imports are atomic: either the full replacement
// succeeds or the prior state is left untouched.
type ExportService struct {
	store  *TaskStore
	logger *logger.Logger
}

// NewExportService creates a new export service
func NewExportService(store *TaskStore, appLogger *logger.Logger) *ExportService {
	return &ExportService{
		store:  store,
		logger: appLogger.WithComponent("export"),
	}
}

// ExportJSON renders the collection and order index as a version-2 payload.
func (s *ExportService) ExportJSON() ([]byte, error) {
	tasks, order := s.store.Snapshot()
	payload := ExportPayload{Version: exportVersion, Tasks: tasks, Order: order}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export payload: %w", err)
	}

	s.logger.Infow("Exported tasks", "format", "json", "count", len(tasks))
	return data, nil
}

// ExportCSV renders one row per task with every field quoted and embedded
// quotes doubled. encoding/csv quotes only when necessary, so the fixed
// format is written by hand.
func (s *ExportService) ExportCSV() ([]byte, error) {
	tasks, _ := s.store.Snapshot()

	var b strings.Builder
	b.WriteString("id,text,notes,completed,priority,dueDate,category,recurring,createdAt\n")
	for _, t := range tasks {
		recurring := t.Recurring
		if recurring == "" {
			recurring = entities.RecurrenceNone
		}
		fields := []string{
			t.ID,
			t.Text,
			t.Notes,
			strconv.FormatBool(t.Completed),
			string(t.Priority),
			t.DueDate,
			t.Category,
			string(recurring),
			strconv.FormatInt(t.CreatedAt, 10),
		}
		for i, f := range fields {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(f, `"`, `""`))
			b.WriteByte('"')
		}
		b.WriteByte('\n')
	}

	s.logger.Infow("Exported tasks", "format", "csv", "count", len(tasks))
	return []byte(b.String()), nil
}

// ImportJSON replaces the entire store content from a JSON export payload.
// The top-level value must be an object with a tasks array; a missing or
// malformed order index falls back to the tasks' own order.
func (s *ExportService) ImportJSON(ctx context.Context, data []byte) (int, error) {
	var raw struct {
		Version int             `json:"version"`
		Tasks   json.RawMessage `json:"tasks"`
		Order   json.RawMessage `json:"order"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("%w: %v", entities.ErrInvalidImport, err)
	}
	trimmed := strings.TrimSpace(string(raw.Tasks))
	if !strings.HasPrefix(trimmed, "[") {
		return 0, fmt.Errorf("%w: tasks must be an array", entities.ErrInvalidImport)
	}
	var tasks []entities.Task
	if err := json.Unmarshal(raw.Tasks, &tasks); err != nil {
		return 0, fmt.Errorf("%w: tasks must be an array", entities.ErrInvalidImport)
	}

	var order []string
	if err := json.Unmarshal(raw.Order, &order); err != nil {
		order = nil
	}

	if err := s.store.ReplaceAll(ctx, tasks, order); err != nil {
		return 0, err
	}

	s.logger.Infow("Imported tasks", "count", len(tasks), "version", raw.Version)
	return len(tasks), nil
}
