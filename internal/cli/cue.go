package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/zenibako/runsheet-golang/runsheet"
)

// NewCueCmd groups the per-cue commands.
func NewCueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cue",
		Short: "Create, list and operate cues of a run",
	}
	cmd.AddCommand(newCueAddCmd())
	cmd.AddCommand(newCueListCmd())
	cmd.AddCommand(newCueShowCmd())
	cmd.AddCommand(newCueRemoveCmd())
	for _, command := range runsheet.Commands {
		cmd.AddCommand(newCueCommandCmd(command))
	}
	return cmd
}

func newCueAddCmd() *cobra.Command {
	var (
		at          string
		duration    int
		title       string
		cueType     string
		technician  string
		description string
		notes       string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an upcoming cue",
		Example: `  runsheet cue add --at 19:00 --duration 10 --title "Walk-in Music" --type audio
  runsheet cue add -i`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			if interactive {
				if err := promptCueFields(&at, &duration, &title, &cueType, &technician, &notes); err != nil {
					return err
				}
			}

			in, err := buildCueInput(at, duration, title, cueType, technician, description, notes)
			if err != nil {
				return err
			}
			c, err := cliCtx.Controller(cmd.Context())
			if err != nil {
				return err
			}
			cue, err := c.CreateCue(cmd.Context(), in)
			if err != nil {
				return err
			}
			printCue(cmd.OutOrStdout(), cue)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "scheduled time of day, HH:MM")
	cmd.Flags().IntVarP(&duration, "duration", "d", 0, "duration in minutes")
	cmd.Flags().StringVarP(&title, "title", "t", "", "cue title")
	cmd.Flags().StringVar(&cueType, "type", "general", "cue type: general, audio, visual, lighting, stage")
	cmd.Flags().StringVar(&technician, "tech", "", "technician id")
	cmd.Flags().StringVar(&description, "description", "", "longer description")
	cmd.Flags().StringVar(&notes, "notes", "", "operator notes")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for the cue fields")
	return cmd
}

func buildCueInput(at string, duration int, title, cueType, technician, description, notes string) (runsheet.CueInput, error) {
	scheduled, err := runsheet.ParseClockTime(at)
	if err != nil {
		return runsheet.CueInput{}, &runsheet.ValidationError{Field: "scheduledTime", Reason: err.Error()}
	}
	kind, err := runsheet.ParseCueType(cueType)
	if err != nil {
		return runsheet.CueInput{}, &runsheet.ValidationError{Field: "cueType", Reason: err.Error()}
	}
	return runsheet.CueInput{
		ScheduledTime:   scheduled,
		DurationMinutes: duration,
		Title:           title,
		Description:     description,
		CueType:         kind,
		TechnicianID:    technician,
		Notes:           notes,
	}, nil
}

func promptCueFields(at *string, duration *int, title, cueType, technician, notes *string) error {
	durationText := ""
	if *duration > 0 {
		durationText = strconv.Itoa(*duration)
	}

	typeOptions := make([]huh.Option[string], 0, len(runsheet.CueTypes))
	for _, t := range runsheet.CueTypes {
		typeOptions = append(typeOptions, huh.NewOption(string(t), string(t)))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("title is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Scheduled time (HH:MM)").
				Value(at).
				Validate(func(s string) error {
					_, err := runsheet.ParseClockTime(s)
					return err
				}),
			huh.NewInput().
				Title("Duration (minutes)").
				Value(&durationText).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 1 {
						return fmt.Errorf("enter a whole number of minutes, at least 1")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Cue type").
				Options(typeOptions...).
				Value(cueType),
			huh.NewInput().
				Title("Technician id (optional)").
				Value(technician),
			huh.NewText().
				Title("Notes (optional)").
				Value(notes),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("failed to get cue details: %v", err)
	}

	n, err := strconv.Atoi(strings.TrimSpace(durationText))
	if err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	*duration = n
	return nil
}

func newCueListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List cues in scheduled order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			c, err := cliCtx.Controller(cmd.Context())
			if err != nil {
				return err
			}
			printCues(cmd.OutOrStdout(), c.List())
			return nil
		},
	}
}

func newCueShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <cue-id>",
		Short: "Show one cue with its due state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			c, err := cliCtx.Controller(cmd.Context())
			if err != nil {
				return err
			}
			cue, err := c.Get(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printCue(out, cue)
			fmt.Fprintf(out, "  due: %s\n", c.Clock().DueState(cue))
			if cue.TechnicianID != "" {
				fmt.Fprintf(out, "  technician: %s\n", technician(cue))
			}
			if cue.Description != "" {
				fmt.Fprintf(out, "  description: %s\n", cue.Description)
			}
			if cue.Notes != "" {
				fmt.Fprintf(out, "  notes: %s\n", cue.Notes)
			}
			if cmds := runsheet.AvailableCommands(cue.Status); len(cmds) > 0 {
				fmt.Fprintf(out, "  next: %v\n", cmds)
			}
			return nil
		},
	}
}

func newCueCommandCmd(command runsheet.Command) *cobra.Command {
	short := map[runsheet.Command]string{
		runsheet.CommandStart:    "Start an upcoming cue or resume a delayed one",
		runsheet.CommandComplete: "Complete a live cue",
		runsheet.CommandSkip:     "Skip an upcoming cue",
		runsheet.CommandDelay:    "Delay a live cue",
	}[command]

	return &cobra.Command{
		Use:   string(command) + " <cue-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			c, err := cliCtx.Controller(cmd.Context())
			if err != nil {
				return err
			}
			cue, err := c.Apply(cmd.Context(), args[0], command)
			if err != nil {
				return err
			}
			printCue(cmd.OutOrStdout(), cue)
			return nil
		},
	}
}

func newCueRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <cue-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a cue in any status",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			c, err := cliCtx.Controller(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.DeleteCue(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
