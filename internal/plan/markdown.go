package plan

import (
	"strings"

	"dayplan/internal/model"
)

const (
	headerDateLayout = "Monday, January 2, 2006"
	clockLayout      = "15:04"
)

// Markdown renders a plan in the saved daily-note format:
//
//	# Daily Plan - Monday, January 2, 2006
//
//	- 09:00-09:30: Standup (event)
//	- [ ] 09:30-10:00: Write report (task)
func Markdown(p model.DailyPlan) string {
	var b strings.Builder
	b.WriteString("# Daily Plan - ")
	b.WriteString(p.Date.Format(headerDateLayout))
	b.WriteString("\n\n")

	for _, item := range p.Items {
		checkbox := "-"
		if item.Type == model.ItemTask {
			checkbox = "- [ ]"
		}
		b.WriteString(checkbox)
		b.WriteString(" ")
		b.WriteString(item.Start.Format(clockLayout))
		b.WriteString("-")
		b.WriteString(item.End.Format(clockLayout))
		b.WriteString(": ")
		b.WriteString(item.Title)
		b.WriteString(" (")
		b.WriteString(string(item.Type))
		b.WriteString(")\n")
	}
	return b.String()
}
