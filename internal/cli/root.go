package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zenibako/runsheet-golang/config"
)

// GlobalFlags are shared by every command.
type GlobalFlags struct {
	ConfigPath string
	RunID      string
	Verbose    bool
	Quiet      bool
}

var globalFlags GlobalFlags

type contextKey struct{}

// NewRootCmd builds the runsheet command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "runsheet",
		Short: "Runsheet - run-of-show cue scheduler",
		Long: `Runsheet tracks the timed technical cues of a live event.
Operators create cues, move them through their lifecycle and watch
which ones are due or overdue, over HTTP, OSC or this command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "init" {
				return nil
			}

			configPath := globalFlags.ConfigPath
			if configPath == "" {
				var err error
				configPath, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := setupLogging(cfg.Log, globalFlags.Verbose, globalFlags.Quiet); err != nil {
				return err
			}

			cliCtx := NewCLIContext(cfg, configPath, globalFlags.RunID)
			cmd.SetContext(context.WithValue(cmd.Context(), contextKey{}, cliCtx))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cliCtx := GetCLIContext(cmd); cliCtx != nil {
				return cliCtx.Close()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigPath, "config", "c", "", "config file path (default ~/.runsheet/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.RunID, "run", "r", "default", "run key the command applies to")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "only log errors")

	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewCueCmd())
	rootCmd.AddCommand(NewResetCmd())
	rootCmd.AddCommand(NewStatsCmd())
	rootCmd.AddCommand(NewBoardCmd())
	rootCmd.AddCommand(NewSeedCmd())
	rootCmd.AddCommand(NewConsoleCmd())
	rootCmd.AddCommand(NewTeamCmd())
	rootCmd.AddCommand(NewOSCCmd())

	return rootCmd
}

// GetCLIContext returns the context installed by the root command.
func GetCLIContext(cmd *cobra.Command) *CLIContext {
	if cmd.Context() == nil {
		return nil
	}
	cliCtx, _ := cmd.Context().Value(contextKey{}).(*CLIContext)
	return cliCtx
}

func mustCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	cliCtx := GetCLIContext(cmd)
	if cliCtx == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cliCtx, nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
