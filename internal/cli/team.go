package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zenibako/runsheet-golang/store"
)

// NewTeamCmd manages the technician directory used to label cues.
func NewTeamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Manage technicians",
	}
	cmd.AddCommand(newTeamAddCmd(), newTeamListCmd(), newTeamRemoveCmd())
	return cmd
}

func newTeamAddCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:     "add <id> <name>",
		Short:   "Add or rename a technician",
		Example: `  runsheet team add sam "Sam Rivera" --role audio`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			team, err := cliCtx.Team()
			if err != nil {
				return err
			}
			t := store.Technician{ID: args[0], Name: args[1], Role: role}
			if err := team.PutTechnician(cmd.Context(), t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", t.ID, t.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "role, e.g. audio or lighting")
	return cmd
}

func newTeamListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List technicians",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			team, err := cliCtx.Team()
			if err != nil {
				return err
			}
			techs, err := team.ListTechnicians(cmd.Context())
			if err != nil {
				return err
			}
			if len(techs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no technicians")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tROLE")
			for _, t := range techs {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Name, t.Role)
			}
			return tw.Flush()
		},
	}
}

func newTeamRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a technician",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			team, err := cliCtx.Team()
			if err != nil {
				return err
			}
			if err := team.DeleteTechnician(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}
