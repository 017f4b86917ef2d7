package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"

	"dayplan/internal/model"
)

const (
	tasksFile    = "tasks.json"
	planFile     = "plan.json"
	markdownFile = "daily-plan.md"
)

// FileStore persists tasks and the current plan as JSON files under dir.
// Timestamps are stored as RFC 3339 strings and revived on read.
type FileStore struct {
	dir          string
	markdownPath string
}

// NewFileStore creates a FileStore rooted at dir. If markdownPath is empty
// the saved plan goes to <dir>/daily-plan.md.
func NewFileStore(dir, markdownPath string) *FileStore {
	if markdownPath == "" {
		markdownPath = filepath.Join(dir, markdownFile)
	}
	return &FileStore{dir: dir, markdownPath: markdownPath}
}

func (s *FileStore) MarkdownPath() string { return s.markdownPath }

// ReadTasks returns the stored tasks, or an error matching fs.ErrNotExist.
func (s *FileStore) ReadTasks(_ context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := s.readJSON(tasksFile, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

func (s *FileStore) WriteTasks(_ context.Context, tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	return s.writeJSON(tasksFile, tasks)
}

// ReadPlan returns the stored plan, or an error matching fs.ErrNotExist.
func (s *FileStore) ReadPlan(_ context.Context) (*model.DailyPlan, error) {
	var p model.DailyPlan
	if err := s.readJSON(planFile, &p); err != nil {
		return nil, err
	}
	if p.Items == nil {
		p.Items = []model.PlanItem{}
	}
	return &p, nil
}

// WritePlan stores p, or removes the stored plan when p is nil.
func (s *FileStore) WritePlan(_ context.Context, p *model.DailyPlan) error {
	if p == nil {
		path := filepath.Join(s.dir, planFile)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return goerr.Wrap(err, "failed to delete plan", goerr.V("path", path))
		}
		return nil
	}
	return s.writeJSON(planFile, p)
}

func (s *FileStore) WriteSavedMarkdown(_ context.Context, text string) error {
	if err := atomicWrite(s.markdownPath, []byte(text)); err != nil {
		return goerr.Wrap(err, "failed to write markdown", goerr.V("path", s.markdownPath))
	}
	return nil
}

func (s *FileStore) readJSON(name string, v any) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fs.ErrNotExist
		}
		return goerr.Wrap(err, "failed to read file", goerr.V("path", path))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return goerr.Wrap(err, "failed to decode file", goerr.V("path", path))
	}
	return nil
}

func (s *FileStore) writeJSON(name string, v any) error {
	path := filepath.Join(s.dir, name)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to encode", goerr.V("path", path))
	}
	if err := atomicWrite(path, data); err != nil {
		return goerr.Wrap(err, "failed to write file", goerr.V("path", path))
	}
	return nil
}

// atomicWrite writes data to a temp file in the target directory, then
// renames it over path. The final file has 0600 permissions.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".dayplan-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
