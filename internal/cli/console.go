package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/zenibako/runsheet-golang/runsheet"
)

const (
	consoleQuit    = "quit"
	consoleRefresh = "refresh"
	consoleBack    = "back"
)

// NewConsoleCmd opens an interactive operator console for one run.
func NewConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Operate the run interactively",
		Long: `Console shows the board and lets the operator pick a cue and one of
the commands its status accepts. Choose quit to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			c, err := cliCtx.Controller(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for {
				board := c.Board()
				printBoard(out, board)
				printStats(out, c.RunID(), c.Stats())

				cueID, err := pickCue(board)
				if err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return nil
					}
					return err
				}
				switch cueID {
				case consoleQuit:
					return nil
				case consoleRefresh:
					continue
				}

				cue, err := c.Get(cueID)
				if err != nil {
					log.Warn("Cue is gone", "id", cueID)
					continue
				}
				command, err := pickCommand(cue)
				if err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return nil
					}
					return err
				}
				if command == consoleBack {
					continue
				}

				updated, err := c.Apply(cmd.Context(), cue.ID, runsheet.Command(command))
				if err != nil {
					log.Error("Command failed", "cue", cue.Title, "command", command, "error", err)
					continue
				}
				log.Info("Cue updated", "cue", updated.Title, "status", updated.Status)
			}
		},
	}
}

func pickCue(board []runsheet.BoardEntry) (string, error) {
	options := make([]huh.Option[string], 0, len(board)+2)
	for _, e := range board {
		if len(runsheet.AvailableCommands(e.Status)) == 0 {
			continue
		}
		label := fmt.Sprintf("%s  %s [%s, %s]", e.ScheduledTime, e.Title, e.Status, e.Due)
		options = append(options, huh.NewOption(label, e.ID))
	}
	options = append(options,
		huh.NewOption("Refresh board", consoleRefresh),
		huh.NewOption("Quit", consoleQuit),
	)

	var choice string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select a cue").
				Description("Completed and skipped cues are hidden").
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return choice, nil
}

func pickCommand(cue runsheet.Cue) (string, error) {
	commands := runsheet.AvailableCommands(cue.Status)
	options := make([]huh.Option[string], 0, len(commands)+1)
	for _, cmd := range commands {
		options = append(options, huh.NewOption(string(cmd), string(cmd)))
	}
	options = append(options, huh.NewOption("Back", consoleBack))

	var choice string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("%s (%s)", cue.Title, cue.Status)).
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return choice, nil
}
