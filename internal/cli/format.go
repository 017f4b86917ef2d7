package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"dayplan/internal/model"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	headerColor  = color.New(color.FgBlue, color.Bold)
	eventColor   = color.New(color.FgCyan)
	taskColor    = color.New(color.FgGreen)
	dimColor     = color.New(color.FgHiBlack)

	priorityColors = map[model.Priority]*color.Color{
		model.PriorityHigh:   color.New(color.FgRed, color.Bold),
		model.PriorityMedium: color.New(color.FgYellow),
		model.PriorityLow:    color.New(color.FgHiBlack),
	}
)

const clockLayout = "15:04"

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSuccess(w io.Writer, msg string) {
	_, _ = successColor.Fprintf(w, "✓ %s\n", msg)
}

func printWarning(w io.Writer, msg string) {
	_, _ = warningColor.Fprintf(w, "⚠ %s\n", msg)
}

func printHeader(w io.Writer, title string) {
	_, _ = headerColor.Fprintf(w, "▸ %s\n", title)
	fmt.Fprintln(w)
}

func timeRange(start, end time.Time) string {
	return start.Format(clockLayout) + "-" + end.Format(clockLayout)
}

// printAgenda prints a plan with events and tasks in different colors.
func printAgenda(w io.Writer, p model.DailyPlan) {
	title := "Daily Plan - " + p.Date.Format("Monday, January 2, 2006")
	if p.Approved {
		title += " (approved)"
	}
	printHeader(w, title)

	if len(p.Items) == 0 {
		_, _ = dimColor.Fprintln(w, "  nothing scheduled")
		return
	}
	for _, item := range p.Items {
		c := taskColor
		marker := "[ ]"
		if item.Type == model.ItemEvent {
			c = eventColor
			marker = " • "
		}
		fmt.Fprintf(w, "  %s %s  ", marker, timeRange(item.Start, item.End))
		_, _ = c.Fprintln(w, item.Title)
	}
}

func printEvents(w io.Writer, events []model.Event) {
	printHeader(w, fmt.Sprintf("Today's events (%d)", len(events)))
	if len(events) == 0 {
		_, _ = dimColor.Fprintln(w, "  no events")
		return
	}
	for _, ev := range events {
		fmt.Fprintf(w, "  %s  ", timeRange(ev.Start, ev.End))
		_, _ = eventColor.Fprintln(w, ev.Title)
	}
}

func printTasks(w io.Writer, list []model.Task) {
	printHeader(w, fmt.Sprintf("Tasks (%d)", len(list)))
	if len(list) == 0 {
		_, _ = dimColor.Fprintln(w, "  no tasks")
		return
	}
	for _, t := range list {
		mark := "[ ]"
		if t.Completed {
			mark = "[x]"
		}
		pc, ok := priorityColors[t.Priority]
		if !ok {
			pc = dimColor
		}
		fmt.Fprintf(w, "  %s %-6s ", mark, pc.Sprint(t.Priority))
		fmt.Fprintf(w, "%4dm  %s  ", t.EstimatedDuration, t.Title)
		_, _ = dimColor.Fprintln(w, t.ID)
	}
}
