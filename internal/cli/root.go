package cli

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"

	"dayplan/internal/config"
	"dayplan/internal/ics"
	appLog "dayplan/internal/log"
	"dayplan/internal/plan"
	"dayplan/internal/planner"
	"dayplan/internal/storage"
	"dayplan/internal/tasks"
)

var version = "dev"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	jsonOutput bool
	debug      bool
	ephemeral  bool
}

func SetVersion(v string) {
	if v == "" {
		return
	}
	version = v
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "dayplan",
		Version: version,
		Short:   "Plan today around your calendar",
		Long: `dayplan merges today's calendar events with your task list into a single
agenda. Tasks are placed by priority into the free time between 08:00 and
22:00; an approved plan can be saved as a Markdown daily note.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath(), "Path to config file")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&opts.ephemeral, "ephemeral", false, "Keep tasks and plans in memory only; nothing is written to the data dir")

	cmd.AddCommand(
		newServeCmd(opts),
		newEventsCmd(opts),
		newPlanCmd(opts),
		newTaskCmd(opts),
	)
	return cmd
}

// Execute executes the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "dayplan", "config.yaml")
}

// app is the wired object graph behind every command.
type app struct {
	cfg   *config.Config
	loc   *time.Location
	store *planner.Store
	// markdownPath is where SavePlan writes; empty for ephemeral runs.
	markdownPath string
}

// newApp loads the config and builds the store over the file persistence,
// the configured ICS feeds and the configured seed tasks.
func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	level := appLog.ParseLevel(cfg.LogLevel)
	if opts.debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	window, err := cfg.Window()
	if err != nil {
		return nil, err
	}
	gen, err := plan.NewGenerator(window)
	if err != nil {
		return nil, err
	}

	clock := func() time.Time { return time.Now().In(loc) }
	var (
		persist      planner.Persistence
		markdownPath string
		cacheDir     = cfg.CacheDir()
	)
	if opts.ephemeral {
		persist = storage.NewMemory()
		cacheDir = filepath.Join(os.TempDir(), "dayplan-ics-cache")
		appLog.Debug("ephemeral run, persistence kept in memory")
	} else {
		files := storage.NewFileStore(cfg.DataDir, cfg.MarkdownPath)
		persist = files
		markdownPath = files.MarkdownPath()
	}
	cal := ics.NewCalendar(ics.NewFetcher(cacheDir, nil), cfg.Sources(), loc, clock)

	appLog.Debug("effective config",
		"config_path", opts.configPath,
		"listen", cfg.Listen,
		"timezone", loc.String(),
		"work_start", cfg.WorkStart,
		"work_end", cfg.WorkEnd,
		"ics_count", len(cfg.ICS),
		"data_dir", cfg.DataDir,
		"ephemeral", opts.ephemeral,
	)

	store := planner.New(ctx, planner.Options{
		Calendar:    cal,
		Tasks:       tasks.NewSeed(cfg.SeedTasks()),
		Persistence: persist,
		Generator:   gen,
		Now:         clock,
	})

	return &app{cfg: cfg, loc: loc, store: store, markdownPath: markdownPath}, nil
}

// loadEvents refreshes today's events. The error belongs to this refresh
// only; a failure left in State.Err by an earlier refresh is not reported.
func (a *app) loadEvents(ctx context.Context) (planner.State, error) {
	st, err := a.store.LoadEvents(ctx)
	if err != nil {
		return st, goerr.Wrap(err, "Failed to load events")
	}
	return st, nil
}
