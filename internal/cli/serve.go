package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/zenibako/runsheet-golang/httpapi"
	"github.com/zenibako/runsheet-golang/oscctl"
	"github.com/zenibako/runsheet-golang/runsheet"
	"github.com/zenibako/runsheet-golang/watch"
)

// NewServeCmd runs the HTTP API, the OSC control surface and the due watcher.
func NewServeCmd() *cobra.Command {
	var preload []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and OSC control surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cliCtx.Config

			runs, err := cliCtx.Runs()
			if err != nil {
				return err
			}
			if err := preloadRuns(cmd.Context(), cliCtx, runs, preload); err != nil {
				return err
			}

			httpServer := httpapi.NewServer(runs, cliCtx.TemplateLoader(), cfg.HTTP.Addr())
			httpErr := make(chan error, 1)
			go func() { httpErr <- httpServer.Start() }()

			var oscServer *oscctl.Server
			if cfg.OSC.Enabled {
				oscServer = oscctl.NewServer(runs, fmt.Sprintf("%s:%d", cfg.OSC.Host, cfg.OSC.Port), cfg.OSC.Host, cfg.OSC.ReplyPort)
				oscServer.SetTimeout(cfg.OSC.GetTimeout())
				if err := oscServer.Start(); err != nil {
					return err
				}
			}

			var watcher *watch.Watcher
			if cfg.Watch.Enabled {
				loc, err := cliCtx.ClockLocation()
				if err != nil {
					return err
				}
				watcher, err = watch.New(runs, cfg.Watch.Schedule, watch.WithLocation(loc))
				if err != nil {
					return err
				}
				if err := watcher.Start(); err != nil {
					return err
				}
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case sig := <-sigCh:
				log.Info("Received signal, shutting down", "signal", sig.String())
			case err := <-httpErr:
				if err != nil {
					log.Error("HTTP server failed", "error", err)
				}
			}

			if watcher != nil {
				<-watcher.Stop().Done()
			}
			if oscServer != nil {
				if err := oscServer.Stop(); err != nil {
					log.Warn("Failed to stop OSC server", "error", err)
				}
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(ctx)
		},
	}

	cmd.Flags().StringSliceVar(&preload, "preload", nil, "run keys to load at startup (default: every stored run)")
	return cmd
}

// preloadRuns hydrates runs up front so the watcher sees them before the first request.
func preloadRuns(ctx context.Context, cliCtx *CLIContext, runs *runsheet.Runs, ids []string) error {
	if len(ids) == 0 {
		cueStore, err := cliCtx.Store()
		if err != nil {
			return err
		}
		lister, ok := cueStore.(runsheet.RunLister)
		if !ok {
			return nil
		}
		stored, err := lister.RunIDs(ctx)
		if err != nil {
			return err
		}
		ids = stored
	}
	for _, id := range ids {
		c, err := runs.Controller(ctx, id)
		if err != nil {
			return fmt.Errorf("load run %s: %w", id, err)
		}
		log.Info("Run loaded", "run", id, "cues", c.Stats().Total)
	}
	return nil
}
