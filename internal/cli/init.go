package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/zenibako/runsheet-golang/config"
)

// NewInitCmd writes a default config file.
func NewInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := globalFlags.ConfigPath
			if path == "" {
				var err error
				path, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}
			expanded, err := config.ExpandPath(path)
			if err != nil {
				return err
			}

			if _, err := os.Stat(expanded); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", expanded)
			}
			if err := config.SaveTo(config.Default(), expanded); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			log.Info("Config written", "path", expanded)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}
