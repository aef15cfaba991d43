package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/zenibako/runsheet-golang/config"
)

func setupLogging(cfg config.LogConfig, verbose, quiet bool) error {
	levelName := cfg.Level
	if verbose {
		levelName = "debug"
	}
	if quiet {
		levelName = "error"
	}
	level, err := log.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	log.SetOutput(os.Stderr)
	log.SetLevel(level)
	log.SetReportTimestamp(cfg.Timestamps)
	log.SetTimeFormat(time.DateTime)
	switch strings.ToLower(cfg.Format) {
	case "json":
		log.SetFormatter(log.JSONFormatter)
	case "logfmt":
		log.SetFormatter(log.LogfmtFormatter)
	default:
		log.SetFormatter(log.TextFormatter)
	}
	return nil
}
