package model

import (
	"errors"
	"strings"
	"time"
)

// Priority ranks a Task for placement. Higher priorities are placed first.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var ErrInvalidPriority = errors.New("invalid priority")

// Rank returns the fixed ordinal used for ordering: high=3, medium=2, low=1.
// Unknown values rank 0 and therefore sort after every known priority.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// ParsePriority accepts "low", "medium" or "high" in any case.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", ErrInvalidPriority
	}
	return p, nil
}

// ItemType tells whether a PlanItem wraps an Event or a placed Task.
type ItemType string

const (
	ItemEvent ItemType = "event"
	ItemTask  ItemType = "task"
)

// Event is an immovable calendar occurrence for the current day, as produced
// by a calendar source. Start is always before End.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
}

// Task is a unit of discretionary work to be placed into a free slot.
type Task struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	// EstimatedDuration is in minutes.
	EstimatedDuration int      `json:"estimatedDuration"`
	Priority          Priority `json:"priority"`
	Completed         bool     `json:"completed"`
}

// Duration returns EstimatedDuration as a time.Duration.
func (t Task) Duration() time.Duration {
	return time.Duration(t.EstimatedDuration) * time.Minute
}

// TaskPatch carries a partial update for a Task. Nil fields are left as-is.
type TaskPatch struct {
	Title             *string   `json:"title,omitempty"`
	EstimatedDuration *int      `json:"estimatedDuration,omitempty"`
	Priority          *Priority `json:"priority,omitempty"`
	Completed         *bool     `json:"completed,omitempty"`
}

// Apply returns a copy of t with the non-nil fields of p merged in.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.EstimatedDuration != nil {
		t.EstimatedDuration = *p.EstimatedDuration
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

// PlanItem is a scheduled occupant of a time slot: either a materialized
// Event or a placed Task. TaskID is set only for task items.
type PlanItem struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Type   ItemType  `json:"type"`
	TaskID string    `json:"taskId,omitempty"`
}

// DailyPlan is the generated agenda for one calendar date. Items are ordered
// by Start. Only Approved changes after generation.
type DailyPlan struct {
	Date     time.Time  `json:"date"`
	Items    []PlanItem `json:"items"`
	Approved bool       `json:"approved"`
}

// Clone returns a deep copy of the plan so callers can hand it out without
// sharing the Items backing array.
func (p *DailyPlan) Clone() *DailyPlan {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Items = append([]PlanItem(nil), p.Items...)
	return &cp
}

func EventItemID(eventID string) string { return "event-" + eventID }

func TaskItemID(taskID string) string { return "task-" + taskID }
