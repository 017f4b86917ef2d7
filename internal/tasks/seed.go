package tasks

import (
	"github.com/google/uuid"

	"dayplan/internal/model"
)

// Seed supplies the initial open-task list used when no tasks are persisted.
type Seed struct {
	tasks []model.Task
}

// NewSeed wraps a configured seed list. Entries without an id get a fresh
// uuid; invalid priorities fall back to medium.
func NewSeed(list []model.Task) *Seed {
	out := make([]model.Task, 0, len(list))
	for _, t := range list {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if !t.Priority.Valid() {
			t.Priority = model.PriorityMedium
		}
		out = append(out, t)
	}
	return &Seed{tasks: out}
}

// Defaults returns the built-in demo tasks.
func Defaults() []model.Task {
	return []model.Task{
		{ID: "1", Title: "Review pull requests", EstimatedDuration: 45, Priority: model.PriorityHigh},
		{ID: "2", Title: "Write documentation", EstimatedDuration: 60, Priority: model.PriorityMedium},
		{ID: "3", Title: "Update project dependencies", EstimatedDuration: 30, Priority: model.PriorityLow},
	}
}

// LoadDefaultTasks returns the open (not completed) seed tasks.
func (s *Seed) LoadDefaultTasks() []model.Task {
	open := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.Completed {
			open = append(open, t)
		}
	}
	return open
}
