package planner_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"dayplan/internal/model"
	"dayplan/internal/planner"
)

func sampleTasks() []model.Task {
	return []model.Task{
		{ID: "1", Title: "Review pull requests", EstimatedDuration: 45, Priority: model.PriorityHigh},
		{ID: "2", Title: "Write documentation", EstimatedDuration: 60, Priority: model.PriorityMedium},
	}
}

func TestReduceTasks(t *testing.T) {
	base := planner.State{Tasks: sampleTasks()}

	t.Run("add appends without aliasing", func(t *testing.T) {
		next := planner.Reduce(base, planner.AddTask{Task: model.Task{ID: "3", Title: "New"}})
		gt.A(t, next.Tasks).Length(3)
		gt.A(t, base.Tasks).Length(2)
		gt.Equal(t, next.Tasks[2].ID, "3")
	})

	t.Run("update merges fields of matching task", func(t *testing.T) {
		done := true
		title := "Renamed"
		next := planner.Reduce(base, planner.UpdateTask{ID: "2", Patch: model.TaskPatch{Completed: &done, Title: &title}})
		gt.True(t, next.Tasks[1].Completed)
		gt.Equal(t, next.Tasks[1].Title, "Renamed")
		gt.Equal(t, next.Tasks[1].EstimatedDuration, 60)
		gt.False(t, base.Tasks[1].Completed)
		gt.Equal(t, base.Tasks[1].Title, "Write documentation")
	})

	t.Run("update of unknown id changes nothing", func(t *testing.T) {
		done := true
		next := planner.Reduce(base, planner.UpdateTask{ID: "x", Patch: model.TaskPatch{Completed: &done}})
		gt.Equal(t, next.Tasks, base.Tasks)
	})

	t.Run("delete removes matching task", func(t *testing.T) {
		next := planner.Reduce(base, planner.DeleteTask{ID: "1"})
		gt.A(t, next.Tasks).Length(1)
		gt.Equal(t, next.Tasks[0].ID, "2")
		gt.A(t, base.Tasks).Length(2)
	})

	t.Run("delete of unknown id keeps tasks", func(t *testing.T) {
		next := planner.Reduce(base, planner.DeleteTask{ID: "x"})
		gt.Equal(t, next.Tasks, base.Tasks)
	})
}

func TestReducePlan(t *testing.T) {
	start := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	p := &model.DailyPlan{
		Date: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
		Items: []model.PlanItem{
			{ID: "event-1", Title: "Standup", Start: start, End: start.Add(30 * time.Minute), Type: model.ItemEvent},
		},
	}

	withPlan := planner.Reduce(planner.State{}, planner.SetPlan{Plan: p})
	gt.NotNil(t, withPlan.Plan)
	gt.False(t, withPlan.Plan.Approved)

	approved := planner.Reduce(withPlan, planner.ApprovePlan{})
	gt.True(t, approved.Plan.Approved)
	gt.Equal(t, approved.Plan.Items, withPlan.Plan.Items)
	gt.False(t, withPlan.Plan.Approved)

	t.Run("approve without plan is a no-op", func(t *testing.T) {
		next := planner.Reduce(planner.State{}, planner.ApprovePlan{})
		gt.Nil(t, next.Plan)
	})

	t.Run("set nil plan clears it", func(t *testing.T) {
		next := planner.Reduce(approved, planner.SetPlan{Plan: nil})
		gt.Nil(t, next.Plan)
	})
}

func TestReduceFlags(t *testing.T) {
	s := planner.Reduce(planner.State{}, planner.SetLoading{Loading: true})
	gt.True(t, s.Loading)

	s = planner.Reduce(s, planner.SetError{Message: "boom"})
	gt.Equal(t, s.Err, "boom")

	s = planner.Reduce(s, planner.ClearError{})
	gt.Equal(t, s.Err, "")

	s = planner.Reduce(s, nil)
	gt.True(t, s.Loading)
}
