package plan

import (
	"errors"
	"slices"
	"time"

	appLog "dayplan/internal/log"
	"dayplan/internal/model"
)

// Default working window and cursor step.
const (
	DefaultWorkStart = 8 * time.Hour
	DefaultWorkEnd   = 22 * time.Hour
	DefaultStep      = 15 * time.Minute
)

// Window is the daily range within which tasks may be placed. Start and End
// are offsets from local midnight of the planning date. Step is how far the
// cursor moves when a candidate slot is rejected without an event to skip.
type Window struct {
	Start time.Duration
	End   time.Duration
	Step  time.Duration
}

// DefaultWindow returns the 08:00-22:00 window with a 15 minute step.
func DefaultWindow() Window {
	return Window{Start: DefaultWorkStart, End: DefaultWorkEnd, Step: DefaultStep}
}

func (w Window) Validate() error {
	if w.Start < 0 || w.End > 24*time.Hour {
		return errors.New("plan: window must lie within one day")
	}
	if w.Start >= w.End {
		return errors.New("plan: window start must be before window end")
	}
	if w.Step <= 0 {
		return errors.New("plan: window step must be positive")
	}
	return nil
}

// Bounds returns the absolute window boundaries on the calendar date of now,
// in now's location. Both are wall-clock times, so they hold on days when the
// clocks change.
func (w Window) Bounds(now time.Time) (start, end time.Time) {
	return wallClock(now, w.Start), wallClock(now, w.End)
}

// wallClock returns the instant reading offset (hours and minutes since
// midnight) on the clock of now's date and location.
func wallClock(now time.Time, offset time.Duration) time.Time {
	y, m, d := now.Date()
	h := int(offset / time.Hour)
	mins := int((offset % time.Hour) / time.Minute)
	return time.Date(y, m, d, h, mins, 0, 0, now.Location())
}

// StartOfDay returns local midnight of t's calendar date.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Generator builds a DailyPlan from fixed events and movable tasks.
type Generator struct {
	window Window
}

// NewGenerator constructs a Generator for the given window.
func NewGenerator(w Window) (*Generator, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Generator{window: w}, nil
}

// Generate places tasks around events using the default window.
func Generate(now time.Time, events []model.Event, tasks []model.Task) model.DailyPlan {
	g := &Generator{window: DefaultWindow()}
	return g.Generate(now, events, tasks)
}

// Generate places tasks in priority order around events, on the calendar
// date of now.
//
// Placement is greedy with a single cursor shared by all tasks: each task
// takes the first free slot at or after the position where the previous task
// ended. A lower priority task that does not fit after the cursor is left out
// even if an earlier gap could have held it. Tasks that find no slot are not
// reported.
func (g *Generator) Generate(now time.Time, events []model.Event, tasks []model.Task) model.DailyPlan {
	workStart, workEnd := g.window.Bounds(now)

	eventItems := make([]model.PlanItem, 0, len(events))
	for _, ev := range events {
		eventItems = append(eventItems, model.PlanItem{
			ID:    model.EventItemID(ev.ID),
			Title: ev.Title,
			Start: ev.Start,
			End:   ev.End,
			Type:  model.ItemEvent,
		})
	}
	sortByStart(eventItems)

	ordered := slices.Clone(tasks)
	slices.SortStableFunc(ordered, func(a, b model.Task) int {
		return b.Priority.Rank() - a.Priority.Rank()
	})

	taskItems := make([]model.PlanItem, 0, len(ordered))
	cursor := workStart

	for _, task := range ordered {
		dur := task.Duration()
		if dur <= 0 {
			appLog.Debug("plan: skipping task without duration", "task_id", task.ID)
			continue
		}

		placed := false
		for cursor.Before(workEnd) {
			candEnd := cursor.Add(dur)
			conflict := conflictsWithAny(cursor, candEnd, eventItems)

			if !conflict && candEnd.Before(workEnd) {
				taskItems = append(taskItems, model.PlanItem{
					ID:     model.TaskItemID(task.ID),
					Title:  task.Title,
					Start:  cursor,
					End:    candEnd,
					Type:   model.ItemTask,
					TaskID: task.ID,
				})
				cursor = candEnd
				placed = true
				break
			}

			cursor = advance(cursor, conflict, eventItems, g.window.Step)
		}

		if !placed {
			appLog.Debug("plan: no slot for task", "task_id", task.ID, "duration_min", task.EstimatedDuration)
		}
	}

	items := make([]model.PlanItem, 0, len(eventItems)+len(taskItems))
	items = append(items, eventItems...)
	items = append(items, taskItems...)
	sortByStart(items)

	return model.DailyPlan{
		Date:     StartOfDay(now),
		Items:    items,
		Approved: false,
	}
}

// advance moves the cursor after a rejected candidate. On a conflict it jumps
// to the end of the event the cursor sits in, or else to the end of the first
// event starting after the cursor. Without a conflict, or if no such event
// exists, it moves by step.
func advance(cursor time.Time, conflict bool, events []model.PlanItem, step time.Duration) time.Time {
	if conflict {
		for _, ev := range events {
			if !ev.Start.After(cursor) && cursor.Before(ev.End) {
				return ev.End
			}
		}
		for _, ev := range events {
			if ev.Start.After(cursor) {
				return ev.End
			}
		}
	}
	return cursor.Add(step)
}

// Conflicts reports whether [start, end) shares a span of positive length
// with [evStart, evEnd). Intervals that only touch at an edge do not conflict.
func Conflicts(start, end, evStart, evEnd time.Time) bool {
	return start.Before(evEnd) && end.After(evStart)
}

func conflictsWithAny(start, end time.Time, events []model.PlanItem) bool {
	for _, ev := range events {
		if Conflicts(start, end, ev.Start, ev.End) {
			return true
		}
	}
	return false
}

func sortByStart(items []model.PlanItem) {
	slices.SortStableFunc(items, func(a, b model.PlanItem) int {
		return a.Start.Compare(b.Start)
	})
}
