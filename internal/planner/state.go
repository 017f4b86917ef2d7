package planner

import (
	"slices"

	"dayplan/internal/model"
)

// State is one immutable snapshot of the planner. Reduce never modifies a
// State in place; every transition returns a new value with fresh slices.
type State struct {
	Events  []model.Event    `json:"events"`
	Tasks   []model.Task     `json:"tasks"`
	Plan    *model.DailyPlan `json:"currentPlan"`
	Loading bool             `json:"isLoading"`
	Err     string           `json:"error,omitempty"`
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	s.Events = slices.Clone(s.Events)
	s.Tasks = slices.Clone(s.Tasks)
	s.Plan = s.Plan.Clone()
	return s
}

// dirty flags which persisted fields an action may change.
type dirty uint8

const (
	dirtyTasks dirty = 1 << iota
	dirtyPlan
)

// Action is one of the closed set of state transitions below.
type Action interface {
	reduce(State) State
	dirty() dirty
}

// Reduce applies a to s and returns the resulting state. It is pure and
// total: every action yields a valid state, unknown preconditions are no-ops.
func Reduce(s State, a Action) State {
	if a == nil {
		return s
	}
	return a.reduce(s)
}

type SetLoading struct{ Loading bool }

func (a SetLoading) reduce(s State) State {
	s.Loading = a.Loading
	return s
}

func (SetLoading) dirty() dirty { return 0 }

type SetEvents struct{ Events []model.Event }

func (a SetEvents) reduce(s State) State {
	s.Events = slices.Clone(a.Events)
	return s
}

func (SetEvents) dirty() dirty { return 0 }

type SetTasks struct{ Tasks []model.Task }

func (a SetTasks) reduce(s State) State {
	s.Tasks = slices.Clone(a.Tasks)
	return s
}

func (SetTasks) dirty() dirty { return dirtyTasks }

type AddTask struct{ Task model.Task }

func (a AddTask) reduce(s State) State {
	tasks := make([]model.Task, 0, len(s.Tasks)+1)
	tasks = append(tasks, s.Tasks...)
	s.Tasks = append(tasks, a.Task)
	return s
}

func (AddTask) dirty() dirty { return dirtyTasks }

type UpdateTask struct {
	ID    string
	Patch model.TaskPatch
}

func (a UpdateTask) reduce(s State) State {
	tasks := make([]model.Task, len(s.Tasks))
	for i, t := range s.Tasks {
		if t.ID == a.ID {
			t = a.Patch.Apply(t)
		}
		tasks[i] = t
	}
	s.Tasks = tasks
	return s
}

func (UpdateTask) dirty() dirty { return dirtyTasks }

type DeleteTask struct{ ID string }

func (a DeleteTask) reduce(s State) State {
	tasks := make([]model.Task, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		if t.ID != a.ID {
			tasks = append(tasks, t)
		}
	}
	s.Tasks = tasks
	return s
}

func (DeleteTask) dirty() dirty { return dirtyTasks }

// SetPlan replaces the current plan wholesale. A nil Plan clears it.
type SetPlan struct{ Plan *model.DailyPlan }

func (a SetPlan) reduce(s State) State {
	s.Plan = a.Plan.Clone()
	return s
}

func (SetPlan) dirty() dirty { return dirtyPlan }

// ApprovePlan marks the current plan approved without touching its items.
type ApprovePlan struct{}

func (ApprovePlan) reduce(s State) State {
	if s.Plan == nil {
		return s
	}
	p := s.Plan.Clone()
	p.Approved = true
	s.Plan = p
	return s
}

func (ApprovePlan) dirty() dirty { return dirtyPlan }

type SetError struct{ Message string }

func (a SetError) reduce(s State) State {
	s.Err = a.Message
	return s
}

func (SetError) dirty() dirty { return 0 }

type ClearError struct{}

func (ClearError) reduce(s State) State {
	s.Err = ""
	return s
}

func (ClearError) dirty() dirty { return 0 }
