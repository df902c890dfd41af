package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsOverdue(t *testing.T) {
	noon := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		task Task
		now  time.Time
		want bool
	}{
		{
			name: "due yesterday",
			task: Task{DueDate: "2024-03-14"},
			now:  noon,
			want: true,
		},
		{
			name: "due today is not overdue until the day ends",
			task: Task{DueDate: "2024-03-15"},
			now:  noon,
			want: false,
		},
		{
			name: "due today at one millisecond past end of day",
			task: Task{DueDate: "2024-03-15"},
			now:  time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
			want: true,
		},
		{
			name: "completed tasks are never overdue",
			task: Task{DueDate: "2024-03-01", Completed: true},
			now:  noon,
			want: false,
		},
		{
			name: "no due date",
			task: Task{},
			now:  noon,
			want: false,
		},
		{
			name: "malformed due date",
			task: Task{DueDate: "soon"},
			now:  noon,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.IsOverdue(tt.now))
		})
	}
}

func TestNextDueDate(t *testing.T) {
	tests := []struct {
		name      string
		dueDate   string
		recurring Recurrence
		want      string
		ok        bool
	}{
		{"daily", "2024-01-10", RecurrenceDaily, "2024-01-11", true},
		{"weekly", "2024-01-10", RecurrenceWeekly, "2024-01-17", true},
		{"monthly", "2024-01-15", RecurrenceMonthly, "2024-02-15", true},
		{"monthly end of month normalizes", "2024-01-31", RecurrenceMonthly, "2024-03-02", true},
		{"daily across year boundary", "2023-12-31", RecurrenceDaily, "2024-01-01", true},
		{"none", "2024-01-10", RecurrenceNone, "", false},
		{"no due date", "", RecurrenceDaily, "", false},
		{"malformed due date", "not-a-date", RecurrenceDaily, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := Task{DueDate: tt.dueDate, Recurring: tt.recurring}
			got, ok := task.NextDueDate()
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatches(t *testing.T) {
	task := Task{
		Text:     "Buy groceries",
		Notes:    "Milk and eggs",
		Category: "errands",
		Subtasks: []Subtask{{ID: "s1", Text: "Check pantry"}},
	}

	assert.True(t, task.Matches(""))
	assert.True(t, task.Matches("  "))
	assert.True(t, task.Matches("GROCERIES"))
	assert.True(t, task.Matches("eggs"))
	assert.True(t, task.Matches("errand"))
	assert.True(t, task.Matches("pantry"))
	assert.False(t, task.Matches("laundry"))
}

func TestDueDateOrMax(t *testing.T) {
	dated := Task{DueDate: "2024-06-01"}
	dateless := Task{}

	assert.Equal(t, "2024-06-01", dated.DueDateOrMax())
	assert.Greater(t, dateless.DueDateOrMax(), dated.DueDateOrMax())
}

func TestClone(t *testing.T) {
	task := Task{
		ID:       "t1",
		Text:     "original",
		Subtasks: []Subtask{{ID: "s1", Text: "step"}},
	}

	clone := task.Clone()
	clone.Subtasks[0].Text = "changed"

	assert.Equal(t, "step", task.Subtasks[0].Text)
}

func TestValidDueDate(t *testing.T) {
	assert.True(t, ValidDueDate("2024-02-29"))
	assert.False(t, ValidDueDate("2023-02-29"))
	assert.False(t, ValidDueDate("2024-2-9"))
	assert.False(t, ValidDueDate("tomorrow"))
	assert.False(t, ValidDueDate(""))
}

func TestPriorityRank(t *testing.T) {
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.Greater(t, Priority("urgent").Rank(), PriorityLow.Rank())
}
