package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zenibako/runsheet-golang/oscctl"
	"github.com/zenibako/runsheet-golang/runsheet"
)

// NewOSCCmd drives a running server through its OSC control surface.
func NewOSCCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "osc",
		Short: "Talk to a running server over OSC",
		Long: `The osc commands send requests to the OSC port of a running
"runsheet serve" and wait for the reply on osc.reply_port.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cue counts by status",
		RunE: withOSCClient(func(cmd *cobra.Command, client *oscctl.Client, args []string) error {
			s, err := client.Stats()
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), client.RunID(), s)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cues in scheduled order",
		RunE: withOSCClient(func(cmd *cobra.Command, client *oscctl.Client, args []string) error {
			cues, err := client.Cues()
			if err != nil {
				return err
			}
			printCues(cmd.OutOrStdout(), cues)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "board",
		Short: "Show the cues with their due state",
		RunE: withOSCClient(func(cmd *cobra.Command, client *oscctl.Client, args []string) error {
			board, err := client.Board()
			if err != nil {
				return err
			}
			printBoard(cmd.OutOrStdout(), board)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "cue <cue-id> <start|complete|skip|delay>",
		Short: "Send a lifecycle command for one cue",
		Args:  cobra.ExactArgs(2),
		RunE: withOSCClient(func(cmd *cobra.Command, client *oscctl.Client, args []string) error {
			command, err := runsheet.ParseCommand(args[1])
			if err != nil {
				return err
			}
			cue, err := client.Command(args[0], command)
			if err != nil {
				return err
			}
			printCue(cmd.OutOrStdout(), cue)
			return nil
		}),
	})

	return cmd
}

type oscRunFunc func(cmd *cobra.Command, client *oscctl.Client, args []string) error

func withOSCClient(fn oscRunFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cliCtx, err := mustCLIContext(cmd)
		if err != nil {
			return err
		}
		cfg := cliCtx.Config.OSC

		client := oscctl.NewClient(cfg.Host, cfg.Port, cliCtx.RunID)
		client.SetReplyPort(cfg.Host, cfg.ReplyPort)
		client.SetTimeout(cfg.GetTimeout())
		client.SetMaxRetries(cfg.MaxRetries)
		if err := client.Listen(); err != nil {
			return fmt.Errorf("osc: %w", err)
		}
		defer client.Close()

		return fn(cmd, client, args)
	}
}
