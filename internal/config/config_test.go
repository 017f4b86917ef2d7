package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"dayplan/internal/config"
	"dayplan/internal/model"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg, err := config.Load(path)
	gt.NoError(t, err)
	gt.Equal(t, cfg.Listen, "127.0.0.1:8080")
	gt.Equal(t, cfg.WorkStart, "08:00")
	gt.A(t, cfg.DefaultTasks).Length(3)

	info, err := os.Stat(path)
	gt.NoError(t, err)
	gt.Equal(t, info.Mode().Perm(), os.FileMode(0o600))

	again, err := config.Load(path)
	gt.NoError(t, err)
	gt.Equal(t, again.DefaultTasks, cfg.DefaultTasks)
}

func TestLoadNormalizesPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
timezone: UTC
work_start: "09:30"
ics:
  - name: work
    url: ./work.ics
  - id: empty
default_tasks:
  - title: Inbox zero
    minutes: 20
    priority: HIGH
  - title: Stretch
    minutes: 10
    priority: whenever
`
	gt.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := config.Load(path)
	gt.NoError(t, err)
	gt.Equal(t, cfg.Listen, "127.0.0.1:8080")
	gt.Equal(t, cfg.WorkEnd, "22:00")
	gt.Equal(t, cfg.SlotMinutes, 15)

	w, err := cfg.Window()
	gt.NoError(t, err)
	gt.Equal(t, w.Start, 9*time.Hour+30*time.Minute)
	gt.Equal(t, w.End, 22*time.Hour)
	gt.Equal(t, w.Step, 15*time.Minute)

	sources := cfg.Sources()
	gt.A(t, sources).Length(1)
	gt.Equal(t, sources[0].ID, "work")

	seed := cfg.SeedTasks()
	gt.A(t, seed).Length(2)
	gt.Equal(t, seed[0].Priority, model.PriorityHigh)
	gt.Equal(t, seed[0].EstimatedDuration, 20)
	gt.Equal(t, seed[1].Priority, model.PriorityMedium)

	loc, err := cfg.Location()
	gt.NoError(t, err)
	gt.Equal(t, loc.String(), "UTC")
}

func TestLoadRejectsInvalid(t *testing.T) {
	testCases := map[string]string{
		"bad yaml":        "listen: [",
		"inverted window": "work_start: \"20:00\"\nwork_end: \"09:00\"\n",
		"bad clock":       "work_start: \"8am\"\n",
		"bad timezone":    "timezone: Mars/Olympus\n",
	}
	for name, data := range testCases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			gt.NoError(t, os.WriteFile(path, []byte(data), 0o600))
			_, err := config.Load(path)
			gt.Error(t, err)
		})
	}
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := config.Load("")
	gt.Error(t, err)
}

func TestWindowAllowsMidnightEnd(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.WorkEnd = "24:00"
	w, err := cfg.Window()
	gt.NoError(t, err)
	gt.Equal(t, w.End, 24*time.Hour)
}
