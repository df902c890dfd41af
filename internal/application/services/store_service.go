package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/protodo/core/internal/domain/entities"
	"github.com/protodo/core/internal/infrastructure/logger"
	"github.com/protodo/core/internal/ports"
)

// TaskStore is the authoritative in-memory task collection together with
// the manual order index. Every mutation reconciles the index and writes
// both through the repository. Writes are optimistic: a failed write is
// logged and counted but the in-memory mutation stands.
type TaskStore struct {
	mu    sync.Mutex
	tasks []entities.Task
	order []string

	repo   ports.TaskRepository
	logger *logger.Logger

	now   func() time.Time
	newID func() string

	persistFailures atomic.Int64
}

// NewTaskStore creates a task store primed from the repository. Missing or
// corrupt stored data loads as empty collections.
func NewTaskStore(ctx context.Context, repo ports.TaskRepository, appLogger *logger.Logger) (*TaskStore, error) {
	tasks, err := repo.LoadTasks(ctx)
	if err != nil {
		return nil, err
	}
	order, err := repo.LoadOrder(ctx)
	if err != nil {
		return nil, err
	}

	s := &TaskStore{
		tasks:  tasks,
		order:  order,
		repo:   repo,
		logger: appLogger.WithComponent("task_store"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	s.order = ReconcileOrder(s.order, s.tasks)
	return s, nil
}

// SetClock overrides the store's time source, for tests.
func (s *TaskStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Add creates a new task from the draft and appends it to both the
// collection and the manual order index.
func (s *TaskStore) Add(ctx context.Context, req ports.CreateTaskRequest) (entities.Task, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return entities.Task{}, entities.ErrEmptyTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task := entities.Task{
		ID:        s.newID(),
		Text:      text,
		Notes:     strings.TrimSpace(req.Notes),
		Completed: false,
		Priority:  req.Priority,
		Category:  req.Category,
		Recurring: req.Recurring,
		Reminder:  req.Reminder,
		Subtasks:  []entities.Subtask{},
		CreatedAt: s.now().UnixMilli(),
	}
	if !task.Priority.IsValid() {
		task.Priority = entities.PriorityMedium
	}
	if entities.ValidDueDate(req.DueDate) {
		task.DueDate = req.DueDate
	}
	if task.Category == "" {
		task.Category = "general"
	}
	if !task.Recurring.IsValid() {
		task.Recurring = entities.RecurrenceNone
	}
	if task.Reminder == "" {
		task.Reminder = "off"
	}

	s.tasks = append(s.tasks, task)
	s.order = append(s.order, task.ID)
	s.persist(ctx, "add")

	s.logger.LogStoreMutation("add", task.ID)
	return task.Clone(), nil
}

// Edit applies the patch to an existing task. Only provided fields change;
// empty titles, malformed due dates and unknown priorities are ignored so
// the previous value is retained.
func (s *TaskStore) Edit(ctx context.Context, id string, patch ports.UpdateTaskRequest) (entities.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := s.find(id)
	if task == nil {
		return entities.Task{}, entities.ErrTaskNotFound
	}

	if patch.Text != nil {
		if text := strings.TrimSpace(*patch.Text); text != "" {
			task.Text = text
		}
	}
	if patch.Notes != nil {
		task.Notes = strings.TrimSpace(*patch.Notes)
	}
	if patch.DueDate != nil && entities.ValidDueDate(*patch.DueDate) {
		task.DueDate = *patch.DueDate
	}
	if patch.Priority != nil && patch.Priority.IsValid() {
		task.Priority = *patch.Priority
	}
	if patch.Category != nil {
		if category := strings.TrimSpace(*patch.Category); category != "" {
			task.Category = category
		}
	}
	if patch.Recurring != nil && patch.Recurring.IsValid() {
		task.Recurring = *patch.Recurring
	}
	if patch.Reminder != nil {
		task.Reminder = *patch.Reminder
	}

	s.persist(ctx, "edit")
	s.logger.LogStoreMutation("edit", id)
	return task.Clone(), nil
}

// ToggleComplete flips a task's completion state. Completing a recurring
// task that carries a due date spawns a successor with a fresh id and the
// due date advanced by one recurrence unit; the original stays completed
// with its original due date.
func (s *TaskStore) ToggleComplete(ctx context.Context, id string) (entities.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := s.find(id)
	if task == nil {
		return entities.Task{}, entities.ErrTaskNotFound
	}

	task.Completed = !task.Completed

	if task.Completed {
		if next, ok := task.NextDueDate(); ok {
			// Successor copies notes, category and subtasks forward.
			spawn := task.Clone()
			spawn.ID = s.newID()
			spawn.Completed = false
			spawn.DueDate = next
			spawn.CreatedAt = s.now().UnixMilli()
			s.tasks = append(s.tasks, spawn)
			s.order = append(s.order, spawn.ID)
			s.logger.LogStoreMutation("recurrence_spawn", spawn.ID)
		}
	}

	s.persist(ctx, "toggle_complete")
	s.logger.LogStoreMutation("toggle_complete", id)
	return task.Clone(), nil
}

// Delete removes a task from the collection and the order index. Deleting
// an unknown id is a no-op, which makes the operation idempotent.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil
	}

	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	s.order = removeID(s.order, id)
	s.persist(ctx, "delete")

	s.logger.LogStoreMutation("delete", id)
	return nil
}

// AddSubtask appends a subtask to the parent task.
func (s *TaskStore) AddSubtask(ctx context.Context, taskID, text string) (entities.Subtask, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return entities.Subtask{}, entities.ErrEmptyTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task := s.find(taskID)
	if task == nil {
		return entities.Subtask{}, entities.ErrTaskNotFound
	}

	subtask := entities.Subtask{ID: s.newID(), Text: text}
	task.Subtasks = append(task.Subtasks, subtask)
	s.persist(ctx, "add_subtask")

	s.logger.LogStoreMutation("add_subtask", taskID)
	return subtask, nil
}

// ToggleSubtask flips a subtask's completion state.
func (s *TaskStore) ToggleSubtask(ctx context.Context, taskID, subID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := s.find(taskID)
	if task == nil {
		return entities.ErrTaskNotFound
	}
	subtask := task.FindSubtask(subID)
	if subtask == nil {
		return entities.ErrSubtaskNotFound
	}

	subtask.Completed = !subtask.Completed
	s.persist(ctx, "toggle_subtask")

	s.logger.LogStoreMutation("toggle_subtask", taskID)
	return nil
}

// RenameSubtask updates a subtask's title. A blank title is a no-op that
// retains the prior text.
func (s *TaskStore) RenameSubtask(ctx context.Context, taskID, subID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := s.find(taskID)
	if task == nil {
		return entities.ErrTaskNotFound
	}
	subtask := task.FindSubtask(subID)
	if subtask == nil {
		return entities.ErrSubtaskNotFound
	}

	if text = strings.TrimSpace(text); text != "" {
		subtask.Text = text
		s.persist(ctx, "rename_subtask")
		s.logger.LogStoreMutation("rename_subtask", taskID)
	}
	return nil
}

// RemoveSubtask deletes a subtask from its parent.
func (s *TaskStore) RemoveSubtask(ctx context.Context, taskID, subID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := s.find(taskID)
	if task == nil {
		return entities.ErrTaskNotFound
	}
	if task.FindSubtask(subID) == nil {
		return entities.ErrSubtaskNotFound
	}

	kept := task.Subtasks[:0]
	for _, st := range task.Subtasks {
		if st.ID != subID {
			kept = append(kept, st)
		}
	}
	task.Subtasks = kept
	s.persist(ctx, "remove_subtask")

	s.logger.LogStoreMutation("remove_subtask", taskID)
	return nil
}

// Reorder moves the dragged task immediately before the target task in the
// manual order index. Unknown ids and dragging onto itself are no-ops.
func (s *TaskStore) Reorder(ctx context.Context, draggedID, targetID string) error {
	if draggedID == targetID {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if indexOfID(s.order, draggedID) < 0 || indexOfID(s.order, targetID) < 0 {
		return nil
	}

	order := removeID(s.order, draggedID)
	to := indexOfID(order, targetID)
	order = append(order, "")
	copy(order[to+1:], order[to:])
	order[to] = draggedID
	s.order = order

	s.persist(ctx, "reorder")
	s.logger.LogStoreMutation("reorder", draggedID)
	return nil
}

// ClearCompleted removes every completed task from the collection and the
// order index.
func (s *TaskStore) ClearCompleted(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]entities.Task, 0, len(s.tasks))
	removed := 0
	for _, t := range s.tasks {
		if t.Completed {
			s.order = removeID(s.order, t.ID)
			removed++
			continue
		}
		kept = append(kept, t)
	}
	s.tasks = kept
	s.persist(ctx, "clear_completed")

	s.logger.LogStoreMutation("clear_completed", "")
	return removed, nil
}

// ReplaceAll swaps the entire collection, used by import and sync pull.
// When order is nil the index is derived from the incoming collection's
// own order.
func (s *TaskStore) ReplaceAll(ctx context.Context, tasks []entities.Task, order []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make([]entities.Task, 0, len(tasks))
	for i := range tasks {
		t := tasks[i].Clone()
		if t.Subtasks == nil {
			t.Subtasks = []entities.Subtask{}
		}
		s.tasks = append(s.tasks, t)
	}

	if order == nil {
		order = make([]string, 0, len(s.tasks))
		for _, t := range s.tasks {
			order = append(order, t.ID)
		}
	}
	s.order = ReconcileOrder(order, s.tasks)
	s.persist(ctx, "replace_all")

	s.logger.LogStoreMutation("replace_all", "")
	return nil
}

// Get returns a copy of the task with the given id.
func (s *TaskStore) Get(id string) (entities.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := s.find(id)
	if task == nil {
		return entities.Task{}, entities.ErrTaskNotFound
	}
	return task.Clone(), nil
}

// Snapshot returns deep copies of the collection and the reconciled order
// index, suitable for projection or export.
func (s *TaskStore) Snapshot() ([]entities.Task, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]entities.Task, 0, len(s.tasks))
	for i := range s.tasks {
		tasks = append(tasks, s.tasks[i].Clone())
	}
	order := make([]string, len(s.order))
	copy(order, s.order)
	return tasks, order
}

// Stats summarizes completion progress.
func (s *TaskStore) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := StoreStats{Total: len(s.tasks)}
	for _, t := range s.tasks {
		if t.Completed {
			stats.Done++
		}
	}
	if stats.Total > 0 {
		stats.Percent = int(float64(stats.Done)/float64(stats.Total)*100 + 0.5)
	}
	return stats
}

// PersistFailures reports how many repository writes have failed since the
// store was created.
func (s *TaskStore) PersistFailures() int64 {
	return s.persistFailures.Load()
}

// StoreStats summarizes the collection for the progress display.
type StoreStats struct {
	Total   int `json:"total"`
	Done    int `json:"done"`
	Percent int `json:"percent"`
}

// persist reconciles the order index and writes both collections through
// the repository. Callers hold s.mu. Failures do not roll back the
// in-memory state.
func (s *TaskStore) persist(ctx context.Context, op string) {
	s.order = ReconcileOrder(s.order, s.tasks)

	if err := s.repo.SaveTasks(ctx, s.tasks); err != nil {
		s.persistFailures.Add(1)
		s.logger.LogPersistenceFailure(op, err)
		return
	}
	if err := s.repo.SaveOrder(ctx, s.order); err != nil {
		s.persistFailures.Add(1)
		s.logger.LogPersistenceFailure(op, err)
	}
}

func (s *TaskStore) find(id string) *entities.Task {
	idx := s.indexOf(id)
	if idx < 0 {
		return nil
	}
	return &s.tasks[idx]
}

func (s *TaskStore) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// ReconcileOrder drops ids no longer present in the collection and appends
// ids the index has never seen, pinned to the collection's own (creation)
// order so the result is stable across reloads.
func ReconcileOrder(order []string, tasks []entities.Task) []string {
	present := make(map[string]bool, len(tasks))
	for i := range tasks {
		present[tasks[i].ID] = true
	}

	reconciled := make([]string, 0, len(tasks))
	seen := make(map[string]bool, len(tasks))
	for _, id := range order {
		if present[id] && !seen[id] {
			reconciled = append(reconciled, id)
			seen[id] = true
		}
	}
	for i := range tasks {
		if !seen[tasks[i].ID] {
			reconciled = append(reconciled, tasks[i].ID)
			seen[tasks[i].ID] = true
		}
	}
	return reconciled
}

func indexOfID(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}

func removeID(order []string, id string) []string {
	kept := order[:0]
	for _, v := range order {
		if v != id {
			kept = append(kept, v)
		}
	}
	return kept
}
