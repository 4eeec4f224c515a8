package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/superemem/azwaryfocus/internal/domain/kanban"
)

var errLoadFailed = errors.New("project load failed")

func statsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats <project-id>",
		Short: "Print task counts for a project board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := a.authenticate(ctx)
			if err != nil {
				return err
			}
			engine, err := a.newEngine(sess, false)
			if err != nil {
				return err
			}
			state, err := loadBoard(ctx, engine, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(state.Stats())
			}
			fmt.Fprintf(out, "%s\n", state.Project.Name)
			printStats(out, state.Stats())
			fmt.Fprintf(out, "Lead:        %s\n", valueOrDefault(state.ProjectLead, "-"))
			fmt.Fprintf(out, "Members:     %d\n", len(state.TeamMembers))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")
	return cmd
}

func watchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <project-id>",
		Short: "Load a project and print every board change until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := a.authenticate(ctx)
			if err != nil {
				return err
			}
			engine, err := a.newEngine(sess, true)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			unsubscribe := engine.Subscribe(func(s kanban.State) {
				printChange(out, s)
			})
			defer unsubscribe()

			if _, err := loadBoard(ctx, engine, args[0]); err != nil {
				return err
			}
			if l := engine.Listener(); l == nil {
				a.logger.Warn("change feed disabled; showing the loaded board only")
			}
			<-ctx.Done()
			return nil
		},
	}
}

// loadBoard loads projectID and turns a failed load into an error.
func loadBoard(ctx context.Context, engine *kanban.Engine, projectID string) (kanban.State, error) {
	if err := engine.LoadProject(ctx, projectID); err != nil {
		return kanban.State{}, err
	}
	state := engine.Snapshot()
	if state.Error != "" {
		return kanban.State{}, fmt.Errorf("%w: %s", errLoadFailed, state.Error)
	}
	if state.Project == nil {
		return kanban.State{}, fmt.Errorf("%w: project %s was not loaded", errLoadFailed, projectID)
	}
	return state, nil
}

func printChange(w io.Writer, s kanban.State) {
	stamp := time.Now().Format(time.TimeOnly)
	switch {
	case s.Loading:
		fmt.Fprintf(w, "%s loading %s\n", stamp, s.ProjectID)
	case s.Error != "":
		fmt.Fprintf(w, "%s error: %s\n", stamp, s.Error)
	case s.Project == nil:
		fmt.Fprintf(w, "%s closed\n", stamp)
	default:
		st := s.Stats()
		fmt.Fprintf(w, "%s %s: %d columns, %d tasks | todo=%d in_progress=%d done=%d progress=%d%%\n",
			stamp, s.Project.Name, len(s.Columns), len(s.Tasks),
			st.TodoCount, st.InProgressCount, st.DoneCount, st.ProgressPercent)
	}
}

func printStats(w io.Writer, st kanban.Stats) {
	fmt.Fprintf(w, "To do:       %d\n", st.TodoCount)
	fmt.Fprintf(w, "In progress: %d\n", st.InProgressCount)
	fmt.Fprintf(w, "Done:        %d\n", st.DoneCount)
	fmt.Fprintf(w, "Total:       %d\n", st.TotalTasks)
	fmt.Fprintf(w, "Progress:    %d%%\n", st.ProgressPercent)
}

func valueOrDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}
