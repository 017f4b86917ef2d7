package storage

import (
	"context"
	"io/fs"
	"slices"
	"sync"

	"dayplan/internal/model"
)

// Memory is an in-process persistence sink. Nothing survives the process.
type Memory struct {
	mu       sync.Mutex
	tasks    []model.Task
	plan     *model.DailyPlan
	markdown []string
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) ReadTasks(_ context.Context) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tasks == nil {
		return nil, fs.ErrNotExist
	}
	return slices.Clone(m.tasks), nil
}

func (m *Memory) WriteTasks(_ context.Context, tasks []model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = slices.Clone(tasks)
	if m.tasks == nil {
		m.tasks = []model.Task{}
	}
	return nil
}

func (m *Memory) ReadPlan(_ context.Context) (*model.DailyPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.plan == nil {
		return nil, fs.ErrNotExist
	}
	return m.plan.Clone(), nil
}

func (m *Memory) WritePlan(_ context.Context, p *model.DailyPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plan = p.Clone()
	return nil
}

func (m *Memory) WriteSavedMarkdown(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markdown = append(m.markdown, text)
	return nil
}

// Saved returns every Markdown document written so far, oldest first.
func (m *Memory) Saved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.markdown)
}
