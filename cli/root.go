// Package cli implements the todo command-line front end on top of the engine.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"tasklist/client"
	"tasklist/config"
	"tasklist/database"
	"tasklist/engine"
	"tasklist/model"
	"tasklist/storage"
)

type rootOptions struct {
	configPath string
	file       string
	remote     bool
	apiURL     string

	out    io.Writer
	errOut io.Writer
	now    func() time.Time
}

// NewRootCommand builds the command tree. Output goes to out, logs to errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	return newRootCommand(out, errOut, time.Now)
}

func newRootCommand(out, errOut io.Writer, now func() time.Time) *cobra.Command {
	opts := &rootOptions{out: out, errOut: errOut, now: now}

	root := &cobra.Command{
		Use:           "todo",
		Short:         "Manage a task list stored locally or behind the task API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", os.Getenv("TASKLIST_CONFIG"), "path to a .yaml or .toml config file")
	flags.StringVar(&opts.file, "file", "", "snapshot file (overrides config)")
	flags.BoolVar(&opts.remote, "remote", false, "use the remote task API instead of a local snapshot")
	flags.StringVar(&opts.apiURL, "api", "", "remote API base URL (implies --remote)")

	root.AddCommand(
		newAddCommand(opts),
		newListCommand(opts),
		newToggleCommand(opts),
		newEditCommand(opts),
		newRemoveCommand(opts),
		newClearCommand(opts),
		newMoveCommand(opts),
		newStatsCommand(opts),
		newExportCommand(opts),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(args []string) int {
	root := NewRootCommand(os.Stdout, os.Stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// session is an opened engine plus whatever needs closing afterwards.
type session struct {
	engine *engine.Engine
	closer func()
}

func (s *session) Close() {
	if s.closer != nil {
		s.closer()
	}
}

func (o *rootOptions) open(ctx context.Context) (*session, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.remote || o.apiURL != "" {
		cfg.Engine.Mode = string(engine.ModeRemote)
	}
	if o.apiURL != "" {
		cfg.Remote.BaseURL = o.apiURL
	}
	if o.file != "" {
		cfg.Snapshot.Backend = "file"
		cfg.Snapshot.Path = o.file
	}

	logger := cfg.Log.NewLogger(o.errOut)
	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithClock(o.now),
	}
	s := &session{}

	switch engine.Mode(cfg.Engine.Mode) {
	case engine.ModeRemote:
		c, err := client.New(cfg.Remote.BaseURL, client.WithHTTPClient(&http.Client{Timeout: cfg.Remote.Timeout.Duration}))
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, engine.WithRemoteStore(c))
	default:
		store, closer, err := openSnapshot(cfg, logger)
		if err != nil {
			return nil, err
		}
		s.closer = closer
		engineOpts = append(engineOpts, engine.WithSnapshotStore(store))
	}

	e, err := engine.New(cfg.EngineConfig(), engineOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	if err := e.Open(ctx); err != nil {
		s.Close()
		return nil, err
	}
	s.engine = e
	return s, nil
}

func openSnapshot(cfg *config.Config, logger *log.Logger) (engine.SnapshotStore, func(), error) {
	if cfg.Snapshot.Backend == "sqlite" {
		db, err := database.New(cfg.Database.Driver, cfg.Database.DSN, logger)
		if err != nil {
			return nil, nil, err
		}
		store, err := storage.NewBlobStore(db.Snapshots(cfg.Snapshot.Key), logger)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil
	}

	store, err := storage.NewFileStore(cfg.Snapshot.Path, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, nil, nil
}

// resolveID accepts a full id or a unique prefix.
func resolveID(tasks []model.Task, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("task id is empty")
	}

	var matches []string
	for _, t := range tasks {
		if t.ID == ref {
			return t.ID, nil
		}
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 0:
		return ref, nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("task id %q is ambiguous (%d matches)", ref, len(matches))
	}
}

// userError turns engine errors into messages fit for the terminal.
func userError(err error) error {
	var ve *engine.ValidationError
	if errors.As(err, &ve) {
		return errors.New(ve.Message())
	}
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printEvent(w io.Writer, ev engine.Event) {
	switch ev.Kind {
	case engine.EventCreated:
		fmt.Fprintf(w, "created %s %q\n", shortID(ev.TaskID), ev.Title)
	case engine.EventUpdated:
		fmt.Fprintf(w, "updated %s %q\n", shortID(ev.TaskID), ev.Title)
	case engine.EventDeleted:
		fmt.Fprintf(w, "deleted %s\n", shortID(ev.TaskID))
	case engine.EventCleared:
		fmt.Fprintf(w, "cleared %d completed task(s)\n", ev.Count)
	case engine.EventReordered:
		fmt.Fprintf(w, "moved %s\n", shortID(ev.TaskID))
	default:
		fmt.Fprintln(w, "nothing changed")
	}
}
