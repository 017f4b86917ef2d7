package plan_test

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/m-mizutani/gt"

	appLog "dayplan/internal/log"
	"dayplan/internal/model"
	"dayplan/internal/plan"
)

func TestMain(m *testing.M) {
	appLog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

var day = time.Date(2026, 10, 19, 6, 45, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, time.UTC)
}

func event(id, title string, sh, sm, eh, em int) model.Event {
	return model.Event{ID: id, Title: title, Start: at(sh, sm), End: at(eh, em)}
}

func task(id string, minutes int, p model.Priority) model.Task {
	return model.Task{ID: id, Title: "Task " + id, EstimatedDuration: minutes, Priority: p}
}

// slots renders items as "title@HH:MM-HH:MM" for compact comparison.
func slots(items []model.PlanItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, fmt.Sprintf("%s@%s-%s", it.Title, it.Start.Format("15:04"), it.End.Format("15:04")))
	}
	return out
}

func TestGenerateTaskBeforeFirstEvent(t *testing.T) {
	events := []model.Event{event("1", "Standup", 9, 0, 9, 30)}
	tasks := []model.Task{task("a", 30, model.PriorityHigh)}

	p := plan.Generate(day, events, tasks)

	gt.Equal(t, slots(p.Items), []string{"Task a@08:00-08:30", "Standup@09:00-09:30"})
	gt.Equal(t, p.Items[0].Type, model.ItemTask)
	gt.Equal(t, p.Items[0].ID, "task-a")
	gt.Equal(t, p.Items[0].TaskID, "a")
	gt.Equal(t, p.Items[1].Type, model.ItemEvent)
	gt.Equal(t, p.Items[1].ID, "event-1")
	gt.Equal(t, p.Items[1].TaskID, "")
	gt.False(t, p.Approved)
	gt.True(t, p.Date.Equal(at(0, 0)))
}

func TestGenerateOrdersByPriority(t *testing.T) {
	tasks := []model.Task{
		task("low", 45, model.PriorityLow),
		task("high", 30, model.PriorityHigh),
	}

	p := plan.Generate(day, nil, tasks)

	gt.Equal(t, slots(p.Items), []string{"Task high@08:00-08:30", "Task low@08:30-09:15"})
}

func TestGenerateEventCoveringWindow(t *testing.T) {
	events := []model.Event{event("all", "Offsite", 8, 0, 22, 0)}

	for _, minutes := range []int{15, 30, 240, 840} {
		t.Run(fmt.Sprintf("%dmin", minutes), func(t *testing.T) {
			p := plan.Generate(day, events, []model.Task{task("a", minutes, model.PriorityHigh)})
			gt.Equal(t, slots(p.Items), []string{"Offsite@08:00-22:00"})
		})
	}
}

func TestGenerateStableWithinPriority(t *testing.T) {
	tasks := []model.Task{
		task("m1", 15, model.PriorityMedium),
		task("h1", 15, model.PriorityHigh),
		task("m2", 15, model.PriorityMedium),
		task("l1", 15, model.PriorityLow),
		task("h2", 15, model.PriorityHigh),
		task("m3", 15, model.PriorityMedium),
	}

	p := plan.Generate(day, nil, tasks)

	var order []string
	for _, it := range p.Items {
		order = append(order, it.TaskID)
	}
	gt.Equal(t, order, []string{"h1", "h2", "m1", "m2", "m3", "l1"})
}

func TestGenerateEdgeTouchingIsNotConflict(t *testing.T) {
	events := []model.Event{event("1", "Sync", 8, 30, 9, 0)}
	tasks := []model.Task{
		task("a", 30, model.PriorityHigh),
		task("b", 60, model.PriorityMedium),
	}

	p := plan.Generate(day, events, tasks)

	gt.Equal(t, slots(p.Items), []string{
		"Task a@08:00-08:30",
		"Sync@08:30-09:00",
		"Task b@09:00-10:00",
	})
}

func TestGenerateConflictJumpsPastNextEvent(t *testing.T) {
	events := []model.Event{
		event("1", "Standup", 9, 0, 9, 30),
		event("2", "Client", 14, 0, 15, 0),
	}
	// a fills 08:00-08:45; b (60m) conflicts with Standup at 08:45, so the
	// cursor jumps to the end of Standup.
	tasks := []model.Task{
		task("a", 45, model.PriorityHigh),
		task("b", 60, model.PriorityHigh),
	}

	p := plan.Generate(day, events, tasks)

	gt.Equal(t, slots(p.Items), []string{
		"Task a@08:00-08:45",
		"Standup@09:00-09:30",
		"Task b@09:30-10:30",
		"Client@14:00-15:00",
	})
}

func TestGenerateConflictAtEventStartSkipsOnlyThatEvent(t *testing.T) {
	events := []model.Event{
		event("1", "Standup", 9, 0, 9, 30),
		event("2", "Client", 14, 0, 15, 0),
	}
	// a ends exactly when Standup starts, so b's first candidate starts inside
	// Standup. The cursor moves to Standup's end, not past Client.
	tasks := []model.Task{
		task("a", 60, model.PriorityHigh),
		task("b", 60, model.PriorityHigh),
	}

	p := plan.Generate(day, events, tasks)

	gt.Equal(t, slots(p.Items), []string{
		"Task a@08:00-09:00",
		"Standup@09:00-09:30",
		"Task b@09:30-10:30",
		"Client@14:00-15:00",
	})
}

func TestGenerateWindowIsWallClockOnDSTChange(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	gt.NoError(t, err)

	testCases := map[string]time.Time{
		"spring forward": time.Date(2026, 3, 8, 6, 0, 0, 0, ny),
		"fall back":      time.Date(2026, 11, 1, 6, 0, 0, 0, ny),
	}
	for name, now := range testCases {
		t.Run(name, func(t *testing.T) {
			start, end := plan.DefaultWindow().Bounds(now)
			gt.Equal(t, start.Format("15:04"), "08:00")
			gt.Equal(t, end.Format("15:04"), "22:00")

			p := plan.Generate(now, nil, []model.Task{task("a", 30, model.PriorityHigh)})
			gt.A(t, p.Items).Length(1)
			gt.Equal(t, p.Items[0].Start.In(ny).Format("15:04"), "08:00")
			gt.Equal(t, p.Items[0].End.In(ny).Format("15:04"), "08:30")
			gt.Equal(t, p.Date.In(ny).Format("2006-01-02 15:04"), now.Format("2006-01-02")+" 00:00")
		})
	}
}

func TestGenerateCursorNeverMovesBack(t *testing.T) {
	events := []model.Event{event("1", "Review", 9, 0, 10, 0)}
	// The long medium task cannot fit before Review and lands after it. The
	// short low task then follows the cursor and the 08:30-09:00 gap stays
	// unused.
	tasks := []model.Task{
		task("a", 30, model.PriorityHigh),
		task("b", 120, model.PriorityMedium),
		task("c", 15, model.PriorityLow),
	}

	p := plan.Generate(day, events, tasks)

	gt.Equal(t, slots(p.Items), []string{
		"Task a@08:00-08:30",
		"Review@09:00-10:00",
		"Task b@10:00-12:00",
		"Task c@12:00-12:15",
	})
}

func TestGenerateRejectsEndAtWindowEnd(t *testing.T) {
	events := []model.Event{event("1", "Day", 8, 0, 21, 0)}

	t.Run("ending exactly at window end is rejected", func(t *testing.T) {
		p := plan.Generate(day, events, []model.Task{task("a", 60, model.PriorityHigh)})
		gt.A(t, p.Items).Length(1)
	})

	t.Run("ending before window end is placed", func(t *testing.T) {
		p := plan.Generate(day, events, []model.Task{task("a", 45, model.PriorityHigh)})
		gt.Equal(t, slots(p.Items), []string{"Day@08:00-21:00", "Task a@21:00-21:45"})
	})
}

func TestGenerateSkipsTaskLongerThanRemainingWindow(t *testing.T) {
	tasks := []model.Task{
		task("a", 13*60, model.PriorityHigh),
		task("b", 90, model.PriorityMedium),
		task("c", 30, model.PriorityLow),
	}

	p := plan.Generate(day, nil, tasks)

	// b cannot end before 22:00. Its failed search leaves the shared cursor at
	// the window end, so c is not placed either.
	gt.Equal(t, slots(p.Items), []string{"Task a@08:00-21:00"})
}

func TestGenerateSameStartEventIsConflict(t *testing.T) {
	events := []model.Event{event("1", "Standup", 8, 0, 8, 30)}

	p := plan.Generate(day, events, []model.Task{task("a", 30, model.PriorityHigh)})

	gt.Equal(t, slots(p.Items), []string{"Standup@08:00-08:30", "Task a@08:30-09:00"})
}

func TestGenerateEmptyInputs(t *testing.T) {
	p := plan.Generate(day, nil, nil)
	gt.A(t, p.Items).Length(0)

	events := []model.Event{event("2", "Later", 11, 0, 12, 0), event("1", "Early", 9, 0, 9, 30)}
	p = plan.Generate(day, events, nil)
	gt.Equal(t, slots(p.Items), []string{"Early@09:00-09:30", "Later@11:00-12:00"})
}

func TestGenerateSkipsZeroDuration(t *testing.T) {
	p := plan.Generate(day, nil, []model.Task{task("a", 0, model.PriorityHigh), task("b", 15, model.PriorityLow)})
	gt.Equal(t, slots(p.Items), []string{"Task b@08:00-08:15"})
}

func TestGenerateIsDeterministic(t *testing.T) {
	events := []model.Event{event("1", "Standup", 9, 0, 9, 30), event("2", "Client", 14, 0, 15, 0)}
	tasks := []model.Task{
		task("a", 45, model.PriorityMedium),
		task("b", 60, model.PriorityHigh),
		task("c", 30, model.PriorityLow),
	}

	first := plan.Generate(day, events, tasks)
	second := plan.Generate(day.Add(3*time.Hour), events, tasks)

	gt.Equal(t, slots(first.Items), slots(second.Items))
	gt.True(t, first.Date.Equal(second.Date))
}

func TestGenerateDoesNotMutateInput(t *testing.T) {
	tasks := []model.Task{task("l", 15, model.PriorityLow), task("h", 15, model.PriorityHigh)}
	_ = plan.Generate(day, nil, tasks)
	gt.Equal(t, tasks[0].ID, "l")
	gt.Equal(t, tasks[1].ID, "h")
}

func TestGenerateCustomWindow(t *testing.T) {
	g, err := plan.NewGenerator(plan.Window{Start: 10 * time.Hour, End: 12 * time.Hour, Step: 5 * time.Minute})
	gt.NoError(t, err)

	p := g.Generate(day, nil, []model.Task{
		task("a", 60, model.PriorityHigh),
		task("c", 55, model.PriorityHigh),
		task("b", 60, model.PriorityHigh),
	})

	gt.Equal(t, slots(p.Items), []string{"Task a@10:00-11:00", "Task c@11:00-11:55"})
}

func TestNewGeneratorValidatesWindow(t *testing.T) {
	testCases := map[string]plan.Window{
		"inverted": {Start: 12 * time.Hour, End: 8 * time.Hour, Step: time.Minute},
		"empty":    {Start: 8 * time.Hour, End: 8 * time.Hour, Step: time.Minute},
		"no step":  {Start: 8 * time.Hour, End: 9 * time.Hour},
		"past 24h": {Start: 8 * time.Hour, End: 25 * time.Hour, Step: time.Minute},
		"negative": {Start: -time.Hour, End: 9 * time.Hour, Step: time.Minute},
	}
	for name, w := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := plan.NewGenerator(w)
			gt.Error(t, err)
		})
	}
}

func TestGenerateNeverOverlaps(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	priorities := []model.Priority{model.PriorityLow, model.PriorityMedium, model.PriorityHigh}

	for round := 0; round < 200; round++ {
		var events []model.Event
		numEvents := rnd.Intn(6)
		for i := 0; i < numEvents; i++ {
			start := at(7, 0).Add(time.Duration(rnd.Intn(16*12)) * 5 * time.Minute)
			end := start.Add(time.Duration(1+rnd.Intn(36)) * 5 * time.Minute)
			events = append(events, model.Event{ID: fmt.Sprint(i), Title: "ev", Start: start, End: end})
		}
		var tasks []model.Task
		numTasks := rnd.Intn(10)
		for i := 0; i < numTasks; i++ {
			tasks = append(tasks, task(fmt.Sprint(i), 5+rnd.Intn(180), priorities[rnd.Intn(3)]))
		}

		p := plan.Generate(day, events, tasks)

		_, windowEnd := plan.DefaultWindow().Bounds(day)
		var placed []model.PlanItem
		for i, it := range p.Items {
			gt.True(t, it.Start.Before(it.End))
			if i > 0 {
				gt.False(t, it.Start.Before(p.Items[i-1].Start))
			}
			if it.Type == model.ItemTask {
				gt.True(t, it.End.Before(windowEnd))
				placed = append(placed, it)
			}
		}
		gt.Equal(t, len(p.Items), len(events)+len(placed))

		for i, a := range placed {
			for _, ev := range events {
				if plan.Conflicts(a.Start, a.End, ev.Start, ev.End) {
					t.Fatalf("round %d: task %s overlaps event %s", round, a.ID, ev.ID)
				}
			}
			for _, b := range placed[i+1:] {
				if plan.Conflicts(a.Start, a.End, b.Start, b.End) {
					t.Fatalf("round %d: tasks %s and %s overlap", round, a.ID, b.ID)
				}
			}
		}

		// Placement follows priority order: start times of placed tasks never
		// decrease when walking tasks in rank order.
		rankOf := map[string]int{}
		for _, tk := range tasks {
			rankOf[tk.ID] = tk.Priority.Rank()
		}
		for i := 1; i < len(placed); i++ {
			gt.True(t, rankOf[placed[i-1].TaskID] >= rankOf[placed[i].TaskID])
		}
	}
}

func TestConflicts(t *testing.T) {
	testCases := map[string]struct {
		s, e, es, ee time.Time
		want         bool
	}{
		"start inside": {at(9, 15), at(10, 0), at(9, 0), at(9, 30), true},
		"end inside":   {at(8, 45), at(9, 15), at(9, 0), at(9, 30), true},
		"contains":     {at(8, 45), at(9, 45), at(9, 0), at(9, 30), true},
		"inside":       {at(9, 5), at(9, 10), at(9, 0), at(9, 30), true},
		"identical":    {at(9, 0), at(9, 30), at(9, 0), at(9, 30), true},
		"touch before": {at(8, 30), at(9, 0), at(9, 0), at(9, 30), false},
		"touch after":  {at(9, 30), at(10, 0), at(9, 0), at(9, 30), false},
		"disjoint":     {at(11, 0), at(12, 0), at(9, 0), at(9, 30), false},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			gt.Equal(t, plan.Conflicts(tc.s, tc.e, tc.es, tc.ee), tc.want)
		})
	}
}
