package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tasklist/engine"
	"tasklist/export"
	"tasklist/model"
)

func newAddCommand(opts *rootOptions) *cobra.Command {
	var due, priority string
	cmd := &cobra.Command{
		Use:   "add TITLE...",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dueDate, err := model.ParseDate(due)
			if err != nil {
				return err
			}
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			ev, err := s.engine.Add(cmd.Context(), engine.NewTaskInput{
				Title:    strings.Join(args, " "),
				DueDate:  dueDate,
				Priority: model.ParsePriority(priority),
			})
			if err != nil {
				return userError(err)
			}
			printEvent(opts.out, ev)
			return nil
		},
	}
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&priority, "priority", "p", string(model.PriorityMedium), "high, medium or low")
	return cmd
}

type viewFlags struct {
	priority string
	status   string
	search   string
	sort     string
}

func (v *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&v.priority, "priority", engine.PriorityAll, "all, high, medium or low")
	cmd.Flags().StringVar(&v.status, "status", string(engine.StatusAll), "all, active or completed")
	cmd.Flags().StringVarP(&v.search, "search", "s", "", "case-insensitive title search")
	cmd.Flags().StringVar(&v.sort, "sort", "", "newest, oldest, priority, dueDate or order")
}

func (v *viewFlags) options() (engine.ViewOptions, error) {
	status := engine.StatusFilter(v.status)
	switch status {
	case engine.StatusAll, engine.StatusActive, engine.StatusCompleted:
	default:
		return engine.ViewOptions{}, fmt.Errorf("unknown status filter %q", v.status)
	}
	if v.priority != engine.PriorityAll && !model.Priority(v.priority).Valid() {
		return engine.ViewOptions{}, fmt.Errorf("unknown priority filter %q", v.priority)
	}
	key := engine.ParseSortKey(v.sort)
	if v.sort != "" && key == engine.SortNone {
		return engine.ViewOptions{}, fmt.Errorf("unknown sort key %q", v.sort)
	}
	return engine.ViewOptions{
		PriorityFilter: v.priority,
		StatusFilter:   status,
		SearchTerm:     v.search,
		SortKey:        key,
	}, nil
}

func newListCommand(opts *rootOptions) *cobra.Command {
	var vf viewFlags
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := vf.options()
			if err != nil {
				return err
			}
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			tasks := s.engine.View(view)
			if len(tasks) == 0 {
				fmt.Fprintln(opts.out, "No tasks")
				return nil
			}
			today := opts.now()
			for _, t := range tasks {
				box := "[ ]"
				if t.Completed {
					box = "[x]"
				}
				line := fmt.Sprintf("%-8s %s %s (%s)", shortID(t.ID), box, t.Title, t.Priority)
				if !t.DueDate.IsZero() {
					line += " due " + t.DueDate.String()
					switch engine.DueStatus(t, today) {
					case engine.DueOverdue:
						line += " • Overdue"
					case engine.DueToday:
						line += " • Today"
					}
				}
				fmt.Fprintln(opts.out, line)
			}
			return nil
		},
	}
	vf.register(cmd)
	return cmd
}

// idCommand builds a command that resolves its first argument to a task id.
func idCommand(opts *rootOptions, use, short string, nargs int, run func(cmd *cobra.Command, s *session, id string, rest []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := resolveID(s.engine.Tasks(), args[0])
			if err != nil {
				return err
			}
			return run(cmd, s, id, args[1:])
		},
	}
}

func newToggleCommand(opts *rootOptions) *cobra.Command {
	cmd := idCommand(opts, "toggle ID", "Mark a task done or not done", 1, func(cmd *cobra.Command, s *session, id string, _ []string) error {
		ev, err := s.engine.Toggle(cmd.Context(), id)
		if err != nil {
			return err
		}
		printEvent(opts.out, ev)
		return nil
	})
	cmd.Aliases = []string{"done"}
	return cmd
}

func newEditCommand(opts *rootOptions) *cobra.Command {
	return idCommand(opts, "edit ID TITLE...", "Rename a task", 2, func(cmd *cobra.Command, s *session, id string, rest []string) error {
		ev, err := s.engine.Edit(cmd.Context(), id, strings.Join(rest, " "))
		if err != nil {
			return err
		}
		printEvent(opts.out, ev)
		return nil
	})
}

func newRemoveCommand(opts *rootOptions) *cobra.Command {
	cmd := idCommand(opts, "rm ID", "Delete a task", 1, func(cmd *cobra.Command, s *session, id string, _ []string) error {
		ev, err := s.engine.Delete(cmd.Context(), id)
		if err != nil {
			return err
		}
		printEvent(opts.out, ev)
		return nil
	})
	cmd.Aliases = []string{"delete"}
	return cmd
}

func newMoveCommand(opts *rootOptions) *cobra.Command {
	return idCommand(opts, "mv ID TARGET_ID", "Move a task to the position of another", 2, func(cmd *cobra.Command, s *session, id string, rest []string) error {
		target, err := resolveID(s.engine.Tasks(), rest[0])
		if err != nil {
			return err
		}
		ev, err := s.engine.Reorder(cmd.Context(), id, target)
		if err != nil {
			return err
		}
		printEvent(opts.out, ev)
		return nil
	})
}

func newClearCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every completed task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			ev, err := s.engine.ClearCompleted(cmd.Context())
			if err != nil {
				return err
			}
			printEvent(opts.out, ev)
			return nil
		},
	}
}

func newStatsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			st := s.engine.Stats()
			fmt.Fprintf(opts.out, "Total: %d  Active: %d  Completed: %d  (%d%% done)\n",
				st.Total, st.Active, st.Completed, st.Percent)
			if st.Overdue > 0 || st.DueToday > 0 {
				fmt.Fprintf(opts.out, "Overdue: %d  Due today: %d\n", st.Overdue, st.DueToday)
			}
			return nil
		},
	}
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var (
		vf     viewFlags
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the current view as json, csv or pdf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := vf.options()
			if err != nil {
				return err
			}
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			data, err := export.Export(s.engine.View(view), format, opts.now())
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = opts.out.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(opts.out, "wrote %s\n", output)
			return nil
		},
	}
	vf.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "json", strings.Join(export.Formats, ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
