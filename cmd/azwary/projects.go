package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/superemem/azwaryfocus/internal/domain/project"
)

func projectsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List the active projects you own or have joined",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := a.authenticate(ctx)
			if err != nil {
				return err
			}
			svc := project.NewService(a.gateway.WithToken(sess.AccessToken), a.logger)
			projects, err := svc.ListForUser(ctx, sess.UserID())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(projects)
			}
			if len(projects) == 0 {
				fmt.Fprintln(out, "No projects.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tROLE\tCREATED")
			for _, p := range projects {
				created := "-"
				if !p.CreatedAt.IsZero() {
					created = p.CreatedAt.Local().Format(time.DateOnly)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Role, created)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")
	return cmd
}
