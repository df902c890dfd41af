package entities

import (
	"errors"
	"strings"
	"time"
)

// Common errors
var (
	ErrEmptyTitle      = errors.New("task title cannot be empty")
	ErrTaskNotFound    = errors.New("task not found")
	ErrSubtaskNotFound = errors.New("subtask not found")
	ErrInvalidImport   = errors.New("invalid import payload")
	ErrSyncInFlight    = errors.New("sync operation already in progress")
	ErrSyncFailed      = errors.New("sync failed")
)

// DateLayout is the calendar-date format used for due dates. ISO dates
// compare correctly as plain strings, which the sort comparators rely on.
const DateLayout = "2006-01-02"

// maxDueDate sorts tasks without a due date after every dated task.
const maxDueDate = "9999-12-31"

// Enums and types
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

type FilterMode string

const (
	FilterAll       FilterMode = "all"
	FilterCompleted FilterMode = "completed"
	FilterPending   FilterMode = "pending"
)

type SortMode string

const (
	SortManual   SortMode = "manual"
	SortPriority SortMode = "priority"
	SortStatus   SortMode = "status"
	SortCreated  SortMode = "created"
	SortDate     SortMode = "date"
)

// Subtask represents a checklist item owned by a single task.
type Subtask struct {
	ID        string `json:"id" db:"id"`
	Text      string `json:"text" db:"text"`
	Completed bool   `json:"completed" db:"completed"`
}

// Task represents a to-do item in the system.
type Task struct {
	ID        string     `json:"id" db:"id"`
	Text      string     `json:"text" db:"text"`
	Notes     string     `json:"notes" db:"notes"`
	Completed bool       `json:"completed" db:"completed"`
	Priority  Priority   `json:"priority" db:"priority"`
	DueDate   string     `json:"dueDate" db:"due_date"` // YYYY-MM-DD, empty when unset
	Category  string     `json:"category" db:"category"`
	Recurring Recurrence `json:"recurring" db:"recurring"`
	Reminder  string     `json:"reminder" db:"reminder"` // "off" or minutes before due
	Subtasks  []Subtask  `json:"subtasks"`
	CreatedAt int64      `json:"createdAt" db:"created_at"` // epoch milliseconds
}

// Business logic methods for Task

// IsOverdue reports whether the task's due date has fully elapsed at the
// given instant. A task counts as overdue only after the end of its due
// day (23:59:59.999 local time), and never once completed.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == "" || t.Completed {
		return false
	}
	due, err := time.ParseInLocation(DateLayout, t.DueDate, now.Location())
	if err != nil {
		return false
	}
	endOfDay := due.Add(24*time.Hour - time.Millisecond)
	return endOfDay.Before(now)
}

// NextDueDate returns the due date advanced by one recurrence unit.
// Monthly advancement follows the calendar's own addition rules, so
// Jan 31 + 1 month normalizes past the end of February.
func (t *Task) NextDueDate() (string, bool) {
	if t.DueDate == "" || t.Recurring == "" || t.Recurring == RecurrenceNone {
		return "", false
	}
	due, err := time.Parse(DateLayout, t.DueDate)
	if err != nil {
		return "", false
	}
	switch t.Recurring {
	case RecurrenceDaily:
		due = due.AddDate(0, 0, 1)
	case RecurrenceWeekly:
		due = due.AddDate(0, 0, 7)
	case RecurrenceMonthly:
		due = due.AddDate(0, 1, 0)
	default:
		return "", false
	}
	return due.Format(DateLayout), true
}

// Matches reports whether the task matches a case-insensitive substring
// search over its title, notes, category and subtask titles. An empty
// query matches everything.
func (t *Task) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(t.Text), q) ||
		strings.Contains(strings.ToLower(t.Notes), q) ||
		strings.Contains(strings.ToLower(t.Category), q) {
		return true
	}
	for _, st := range t.Subtasks {
		if strings.Contains(strings.ToLower(st.Text), q) {
			return true
		}
	}
	return false
}

// DueDateOrMax returns the due date, or a far-future sentinel when the
// task has none, so dateless tasks sort after all dated ones.
func (t *Task) DueDateOrMax() string {
	if t.DueDate == "" {
		return maxDueDate
	}
	return t.DueDate
}

// Clone returns a deep copy of the task, including its subtasks.
func (t *Task) Clone() Task {
	clone := *t
	clone.Subtasks = make([]Subtask, len(t.Subtasks))
	copy(clone.Subtasks, t.Subtasks)
	return clone
}

// FindSubtask returns a pointer to the subtask with the given id, or nil.
func (t *Task) FindSubtask(subID string) *Subtask {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == subID {
			return &t.Subtasks[i]
		}
	}
	return nil
}

// Utility methods

// ValidDueDate reports whether s is a well-formed YYYY-MM-DD calendar date.
func ValidDueDate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Rank maps priorities to ascending sort order: high before medium before low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

func (r Recurrence) IsValid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	default:
		return false
	}
}

func (f FilterMode) IsValid() bool {
	switch f {
	case FilterAll, FilterCompleted, FilterPending:
		return true
	default:
		return false
	}
}

func (s SortMode) IsValid() bool {
	switch s {
	case SortManual, SortPriority, SortStatus, SortCreated, SortDate:
		return true
	default:
		return false
	}
}
