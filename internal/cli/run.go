package cli

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/zenibako/runsheet-golang/templates"
)

// NewResetCmd returns every cue of the run to upcoming.
func NewResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Return every cue of the run to upcoming",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			if !yes {
				confirmed := false
				form := huh.NewForm(
					huh.NewGroup(
						huh.NewConfirm().
							Title(fmt.Sprintf("Reset every cue of run %q to upcoming?", cliCtx.RunID)).
							Affirmative("Reset").
							Negative("Cancel").
							Value(&confirmed),
					),
				)
				if err := form.Run(); err != nil {
					return fmt.Errorf("failed to confirm reset: %v", err)
				}
				if !confirmed {
					log.Info("Reset cancelled")
					return nil
				}
			}

			c, err := cliCtx.Controller(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.ResetAll(cmd.Context()); err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), c.RunID(), c.Stats())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// NewStatsCmd prints the per-status counts of the run.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cue counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			c, err := cliCtx.Controller(cmd.Context())
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), c.RunID(), c.Stats())
			return nil
		},
	}
}

// NewBoardCmd prints the run with each cue's due state.
func NewBoardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Show the cues with their due state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			c, err := cliCtx.Controller(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s at %s\n", c.RunID(), c.Clock().Now().Format("15:04:05 MST"))
			printBoard(cmd.OutOrStdout(), c.Board())
			return nil
		},
	}
}

// NewSeedCmd creates the cues of a template in the run.
func NewSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the cues of the default template",
		Long: `Seed creates every cue of a template through the ordinary creation path.
Without --file it uses templates.path from the config, or the built-in
"Conference Day" template when that is empty.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			loader := cliCtx.TemplateLoader()
			if file != "" {
				loader = templates.NewLoader(file)
			}

			c, err := cliCtx.Controller(cmd.Context())
			if err != nil {
				return err
			}
			created, err := c.SeedTemplate(cmd.Context(), loader)
			if err != nil {
				return err
			}
			log.Info("Template seeded", "run", c.RunID(), "cues", len(created))
			printCues(cmd.OutOrStdout(), c.List())
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "template file (yaml, toml or json)")
	return cmd
}
