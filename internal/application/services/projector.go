package services

import (
	"sort"

	"github.com/protodo/core/internal/domain/entities"
)

// Project derives the visible task sequence from the collection: filter by
// completion status, then by search query, then sort. It is a pure
// function of its inputs and never mutates the given slices.
func Project(tasks []entities.Task, order []string, filter entities.FilterMode, query string, sortMode entities.SortMode) []entities.Task {
	result := make([]entities.Task, 0, len(tasks))
	for i := range tasks {
		switch filter {
		case entities.FilterCompleted:
			if !tasks[i].Completed {
				continue
			}
		case entities.FilterPending:
			if tasks[i].Completed {
				continue
			}
		}
		if !tasks[i].Matches(query) {
			continue
		}
		result = append(result, tasks[i])
	}

	switch sortMode {
	case entities.SortPriority:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Priority.Rank() < result[j].Priority.Rank()
		})
	case entities.SortStatus:
		sort.SliceStable(result, func(i, j int) bool {
			return !result[i].Completed && result[j].Completed
		})
	case entities.SortCreated:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].CreatedAt < result[j].CreatedAt
		})
	case entities.SortDate:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].DueDateOrMax() < result[j].DueDateOrMax()
		})
	case entities.SortManual:
		reconciled := ReconcileOrder(order, tasks)
		position := make(map[string]int, len(reconciled))
		for i, id := range reconciled {
			position[id] = i
		}
		// Post-reconciliation every id has a position; unknown ids sort last.
		last := len(reconciled)
		at := func(t *entities.Task) int {
			if p, ok := position[t.ID]; ok {
				return p
			}
			return last
		}
		sort.SliceStable(result, func(i, j int) bool {
			return at(&result[i]) < at(&result[j])
		})
	}

	return result
}
