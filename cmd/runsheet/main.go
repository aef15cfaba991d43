package main

import (
	"os"

	"github.com/charmbracelet/log"

	"github.com/zenibako/runsheet-golang/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Error("runsheet failed", "error", err)
		os.Exit(1)
	}
}
