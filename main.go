package main

import (
	"fmt"
	"os"

	"github.com/fernwick/speciarium/cmd"
	"github.com/fernwick/speciarium/internal/conf"
	"github.com/fernwick/speciarium/internal/logging"
)

func main() {
	// Load the configuration before anything else touches it
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init()

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
