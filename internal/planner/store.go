package planner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	appLog "dayplan/internal/log"
	"dayplan/internal/model"
	"dayplan/internal/plan"
)

var (
	ErrEmptyTitle      = errors.New("task title is empty")
	ErrInvalidDuration = errors.New("estimated duration must be a positive number of minutes")
	ErrTaskNotFound    = errors.New("task not found")
	ErrNoPlan          = errors.New("no current plan")
	ErrPlanNotApproved = errors.New("plan is not approved")
)

// Messages stored in State.Err for recovered failures.
const (
	msgLoadEvents = "Failed to load events"
	msgGenerate   = "Failed to generate plan"
)

// CalendarSource produces today's events. Implementations own their timeouts.
type CalendarSource interface {
	FetchTodayEvents(ctx context.Context) ([]model.Event, error)
}

// PlanGenerator builds a plan for the calendar date of now.
type PlanGenerator interface {
	Generate(now time.Time, events []model.Event, tasks []model.Task) model.DailyPlan
}

// TaskSource supplies the seed task list used when nothing is persisted.
type TaskSource interface {
	LoadDefaultTasks() []model.Task
}

// Persistence stores tasks and the current plan across sessions. Read
// methods return an error matching fs.ErrNotExist when nothing is stored.
// WritePlan with a nil plan deletes the stored plan.
type Persistence interface {
	ReadTasks(ctx context.Context) ([]model.Task, error)
	WriteTasks(ctx context.Context, tasks []model.Task) error
	ReadPlan(ctx context.Context) (*model.DailyPlan, error)
	WritePlan(ctx context.Context, p *model.DailyPlan) error
	WriteSavedMarkdown(ctx context.Context, text string) error
}

// NewTask is the user input for AddTask.
type NewTask struct {
	Title             string         `json:"title"`
	EstimatedDuration int            `json:"estimatedDuration"`
	Priority          model.Priority `json:"priority"`
}

// Options configures a Store.
type Options struct {
	Calendar    CalendarSource
	Tasks       TaskSource
	Persistence Persistence
	// Generator defaults to the 08:00-22:00 window.
	Generator PlanGenerator

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// NewID returns a fresh task id. Defaults to uuid.NewString.
	NewID func() string
	// OnChange, if set, receives every new snapshot after a mutation.
	OnChange func(State)
}

// Store owns the planner state. All mutations are serialized through one
// mutex and publish whole snapshots; slow I/O (calendar fetch) runs outside
// the lock.
type Store struct {
	mu    sync.Mutex
	state State

	// loadSeq identifies the newest LoadEvents call; older results are dropped.
	loadSeq uint64

	calendar  CalendarSource
	persist   Persistence
	generator PlanGenerator
	now       func() time.Time
	newID     func() string
	onChange  func(State)
}

// New builds a Store and restores persisted tasks and plan. Missing or
// unreadable data falls back to the default tasks and no plan.
func New(ctx context.Context, opts Options) *Store {
	s := &Store{
		calendar:  opts.Calendar,
		persist:   opts.Persistence,
		generator: opts.Generator,
		now:       opts.Now,
		newID:     opts.NewID,
		onChange:  opts.OnChange,
	}
	if s.generator == nil {
		g, _ := plan.NewGenerator(plan.DefaultWindow())
		s.generator = g
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}

	s.state = initialState(ctx, s.persist, opts.Tasks)
	return s
}

func initialState(ctx context.Context, p Persistence, src TaskSource) State {
	defaults := func() []model.Task {
		if src == nil {
			return []model.Task{}
		}
		return slices.Clone(src.LoadDefaultTasks())
	}

	st := State{Events: []model.Event{}}
	if p == nil {
		st.Tasks = defaults()
		return st
	}

	tasks, err := p.ReadTasks(ctx)
	switch {
	case err == nil && tasks != nil:
		st.Tasks = tasks
	case err == nil || errors.Is(err, fs.ErrNotExist):
		st.Tasks = defaults()
	default:
		appLog.Error("planner: failed to read persisted tasks; using defaults", err)
		st.Tasks = defaults()
	}

	pl, err := p.ReadPlan(ctx)
	switch {
	case err == nil:
		st.Plan = pl
	case errors.Is(err, fs.ErrNotExist):
	default:
		appLog.Error("planner: failed to read persisted plan; starting without one", err)
	}

	return st
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// dispatch applies actions in order under the lock, persists touched fields
// and notifies the observer once with the final state.
func (s *Store) dispatch(ctx context.Context, actions ...Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatchLocked(ctx, actions...)
}

func (s *Store) dispatchLocked(ctx context.Context, actions ...Action) State {
	var touched dirty
	next := s.state
	for _, a := range actions {
		next = Reduce(next, a)
		touched |= a.dirty()
	}
	s.state = next

	if touched&dirtyTasks != 0 {
		s.writeTasks(ctx, next.Tasks)
	}
	if touched&dirtyPlan != 0 {
		s.writePlan(ctx, next.Plan)
	}
	if s.onChange != nil {
		s.onChange(next.Clone())
	}
	return next.Clone()
}

func (s *Store) writeTasks(ctx context.Context, tasks []model.Task) {
	if s.persist == nil {
		return
	}
	if err := s.persist.WriteTasks(ctx, tasks); err != nil {
		appLog.Error("planner: failed to persist tasks", err, "count", len(tasks))
	}
}

func (s *Store) writePlan(ctx context.Context, p *model.DailyPlan) {
	if s.persist == nil {
		return
	}
	if err := s.persist.WritePlan(ctx, p); err != nil {
		appLog.Error("planner: failed to persist plan", err)
	}
}

// LoadEvents fetches today's events from the calendar source. A failure is
// recorded in State.Err, leaves the previous events in place and is returned.
// If a newer LoadEvents call started meanwhile, this call's result is
// discarded and the error is nil.
func (s *Store) LoadEvents(ctx context.Context) (State, error) {
	s.mu.Lock()
	s.loadSeq++
	token := s.loadSeq
	s.dispatchLocked(ctx, SetLoading{Loading: true})
	s.mu.Unlock()

	var (
		events []model.Event
		err    error
	)
	if s.calendar == nil {
		err = errors.New("no calendar source configured")
	} else {
		events, err = s.fetch(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.loadSeq {
		appLog.Debug("planner: discarding stale event load", "token", token, "latest", s.loadSeq)
		return s.state.Clone(), nil
	}

	if err != nil {
		appLog.Error("planner: failed to load events", err)
		return s.dispatchLocked(ctx, SetError{Message: msgLoadEvents}, SetLoading{Loading: false}), err
	}

	appLog.Info("planner: events loaded", "count", len(events))
	return s.dispatchLocked(ctx, SetEvents{Events: events}, SetLoading{Loading: false}), nil
}

func (s *Store) fetch(ctx context.Context) (events []model.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("calendar source panicked: %v", r)
		}
	}()
	return s.calendar.FetchTodayEvents(ctx)
}

// AddTask appends a new open task with a fresh id. An empty priority means
// medium; any other unknown priority is rejected.
func (s *Store) AddTask(ctx context.Context, in NewTask) (model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Task{}, ErrEmptyTitle
	}
	if in.EstimatedDuration <= 0 {
		return model.Task{}, ErrInvalidDuration
	}
	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return model.Task{}, goerr.Wrap(model.ErrInvalidPriority, "add task", goerr.V("priority", priority))
	}

	t := model.Task{
		ID:                s.newID(),
		Title:             title,
		EstimatedDuration: in.EstimatedDuration,
		Priority:          priority,
		Completed:         false,
	}
	s.dispatch(ctx, AddTask{Task: t})
	appLog.Debug("planner: task added", "task_id", t.ID, "priority", t.Priority)
	return t, nil
}

// UpdateTask merges patch into the task with the given id. Patched fields are
// validated like AddTask input; a patched title is trimmed.
func (s *Store) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return model.Task{}, ErrEmptyTitle
		}
		patch.Title = &title
	}
	if patch.EstimatedDuration != nil && *patch.EstimatedDuration <= 0 {
		return model.Task{}, ErrInvalidDuration
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return model.Task{}, goerr.Wrap(model.ErrInvalidPriority, "update task", goerr.V("priority", *patch.Priority))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.state.Tasks, func(t model.Task) bool { return t.ID == id })
	if idx < 0 {
		return model.Task{}, goerr.Wrap(ErrTaskNotFound, "update task", goerr.V("task_id", id))
	}
	next := s.dispatchLocked(ctx, UpdateTask{ID: id, Patch: patch})
	return next.Tasks[idx], nil
}

// DeleteTask removes the task with the given id. Deleting an unknown id is a
// no-op.
func (s *Store) DeleteTask(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.ContainsFunc(s.state.Tasks, func(t model.Task) bool { return t.ID == id }) {
		return
	}
	s.dispatchLocked(ctx, DeleteTask{ID: id})
}

// GeneratePlan builds a new plan from the current events and tasks, replacing
// any previous plan and its approval.
func (s *Store) GeneratePlan(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.generate(s.state.Events, s.state.Tasks)
	if err != nil {
		appLog.Error("planner: plan generation failed", err)
		return s.dispatchLocked(ctx, SetError{Message: msgGenerate})
	}

	appLog.Info("planner: plan generated", "items", len(p.Items), "date", p.Date.Format(time.DateOnly))
	return s.dispatchLocked(ctx, SetPlan{Plan: &p})
}

func (s *Store) generate(events []model.Event, tasks []model.Task) (p model.DailyPlan, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panicked: %v", r)
		}
	}()
	return s.generator.Generate(s.now(), events, tasks), nil
}

// ApprovePlan marks the current plan approved.
func (s *Store) ApprovePlan(ctx context.Context) (model.DailyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Plan == nil {
		return model.DailyPlan{}, ErrNoPlan
	}
	next := s.dispatchLocked(ctx, ApprovePlan{})
	return *next.Plan, nil
}

// SavePlan writes the approved plan as Markdown to the persistence sink and
// returns the text written.
func (s *Store) SavePlan(ctx context.Context) (string, error) {
	s.mu.Lock()
	cur := s.state.Plan.Clone()
	s.mu.Unlock()

	if cur == nil {
		return "", ErrNoPlan
	}
	if !cur.Approved {
		return "", ErrPlanNotApproved
	}

	text := plan.Markdown(*cur)
	if s.persist == nil {
		return text, nil
	}
	if err := s.persist.WriteSavedMarkdown(ctx, text); err != nil {
		appLog.Error("planner: failed to save plan markdown", err)
		return text, goerr.Wrap(err, "save plan markdown")
	}
	appLog.Info("planner: plan saved", "date", cur.Date.Format(time.DateOnly), "items", len(cur.Items))
	return text, nil
}

// ClearError resets State.Err.
func (s *Store) ClearError(ctx context.Context) State {
	return s.dispatch(ctx, ClearError{})
}
