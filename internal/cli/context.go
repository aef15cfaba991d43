package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/zenibako/runsheet-golang/config"
	"github.com/zenibako/runsheet-golang/runsheet"
	"github.com/zenibako/runsheet-golang/store"
	"github.com/zenibako/runsheet-golang/templates"
)

// CLIContext carries the loaded configuration and lazily opened resources.
type CLIContext struct {
	Config     *config.Config
	ConfigPath string
	RunID      string

	storeOnce sync.Once
	store     runsheet.Store
	sqlite    *store.SQLiteStore
	storeErr  error

	runsOnce sync.Once
	runs     *runsheet.Runs
	runsErr  error
}

func NewCLIContext(cfg *config.Config, configPath, runID string) *CLIContext {
	return &CLIContext{
		Config:     cfg,
		ConfigPath: configPath,
		RunID:      runID,
	}
}

// Store opens the configured cue store.
func (c *CLIContext) Store() (runsheet.Store, error) {
	c.storeOnce.Do(func() {
		switch c.Config.Storage.Driver {
		case config.DriverMemory:
			log.Warn("Using the in-memory cue store; cues are lost on exit")
			c.store = runsheet.NewMemoryStore()
		default:
			c.sqlite, c.storeErr = store.Open(c.Config.Storage.Path)
			if c.storeErr == nil {
				c.store = c.sqlite
			}
		}
	})
	return c.store, c.storeErr
}

// Team returns the technician directory. It needs the sqlite driver.
func (c *CLIContext) Team() (*store.SQLiteStore, error) {
	if _, err := c.Store(); err != nil {
		return nil, err
	}
	if c.sqlite == nil {
		return nil, fmt.Errorf("the team directory needs storage.driver %q", config.DriverSQLite)
	}
	return c.sqlite, nil
}

// ClockLocation returns the run-local zone.
func (c *CLIContext) ClockLocation() (*time.Location, error) {
	return c.Config.Clock.Location()
}

// Runs builds the run set with the configured options.
func (c *CLIContext) Runs() (*runsheet.Runs, error) {
	c.runsOnce.Do(func() {
		s, err := c.Store()
		if err != nil {
			c.runsErr = err
			return
		}
		loc, err := c.ClockLocation()
		if err != nil {
			c.runsErr = err
			return
		}
		opts := []runsheet.Option{
			runsheet.WithClock(runsheet.NewScheduleClock(nil, loc)),
			runsheet.WithExclusiveLive(c.Config.Runsheet.ExclusiveLive),
		}
		if c.sqlite != nil {
			opts = append(opts, runsheet.WithDirectory(c.sqlite))
		}
		c.runs = runsheet.NewRuns(s, opts...)
	})
	return c.runs, c.runsErr
}

// Controller returns the controller of the --run key.
func (c *CLIContext) Controller(ctx context.Context) (*runsheet.Controller, error) {
	runs, err := c.Runs()
	if err != nil {
		return nil, err
	}
	return runs.Controller(ctx, c.RunID)
}

// TemplateLoader returns the configured template source.
func (c *CLIContext) TemplateLoader() *templates.Loader {
	return templates.NewLoader(c.Config.Templates.Path)
}

// Close releases the store.
func (c *CLIContext) Close() error {
	if c.sqlite != nil {
		return c.sqlite.Close()
	}
	return nil
}
