package ics

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/m-mizutani/goerr/v2"

	appLog "dayplan/internal/log"
	"dayplan/internal/model"
)

// Calendar turns configured ICS feeds into today's events.
type Calendar struct {
	fetcher *Fetcher
	sources []Source
	loc     *time.Location
	now     func() time.Time
}

// NewCalendar builds a Calendar. Events are reported in loc (time.Local if
// nil); now defaults to time.Now.
func NewCalendar(fetcher *Fetcher, sources []Source, loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{fetcher: fetcher, sources: sources, loc: loc, now: now}
}

// FetchTodayEvents fetches and parses every source and returns the timed
// events starting today, sorted by start. Sources that fail are skipped; an
// error is returned only when every source failed. All-day events and events
// without a positive duration are left out because they cannot act as fixed
// time blocks.
func (c *Calendar) FetchTodayEvents(ctx context.Context) ([]model.Event, error) {
	if len(c.sources) == 0 {
		return []model.Event{}, nil
	}

	results, errs := c.fetcher.FetchAll(ctx, c.sources)

	parsed := make([]ParsedEvent, 0)
	for _, res := range results {
		events, err := ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, goerr.Wrap(err, "failed to parse calendar", goerr.V("id", res.Source.ID)))
			continue
		}
		parsed = append(parsed, events...)
	}

	if len(errs) == len(c.sources) {
		return nil, goerr.Wrap(errors.Join(errs...), "all calendar sources failed", goerr.V("count", len(errs)))
	}
	if len(errs) > 0 {
		appLog.Error("calendar: some sources failed", errors.Join(errs...), "failed", len(errs), "total", len(c.sources))
	}

	return TodayEvents(parsed, c.now().In(c.loc)), nil
}

// TodayEvents selects the timed events whose start falls on the calendar date
// of now (in now's location) and converts them into model.Event values.
// Event ids are the VEVENT UIDs, suffixed with the start time when the same
// UID appears again at a different start.
func TodayEvents(parsed []ParsedEvent, now time.Time) []model.Event {
	loc := now.Location()
	y, m, d := now.Date()

	seen := make(map[string]bool)
	usedID := make(map[string]bool)
	out := make([]model.Event, 0, len(parsed))

	for _, pe := range parsed {
		if pe.AllDay {
			appLog.Debug("calendar: skipping all-day event", "uid", pe.UID)
			continue
		}
		if !pe.Start.Before(pe.End) {
			appLog.Debug("calendar: skipping event without duration", "uid", pe.UID)
			continue
		}

		start := pe.Start.In(loc)
		sy, sm, sd := start.Date()
		if sy != y || sm != m || sd != d {
			continue
		}

		// The same UID at the same start is one event listed by two feeds.
		key := pe.UID + "@" + start.Format(time.RFC3339)
		if seen[key] {
			continue
		}
		seen[key] = true

		id := pe.UID
		if usedID[id] {
			id = key
		}
		usedID[id] = true

		out = append(out, model.Event{
			ID:          id,
			Title:       pe.Summary,
			Start:       start,
			End:         pe.End.In(loc),
			Description: pe.Description,
		})
	}

	slices.SortStableFunc(out, func(a, b model.Event) int {
		return a.Start.Compare(b.Start)
	})
	return out
}
