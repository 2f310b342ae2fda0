package main

import (
	"os"

	"github.com/mrlokans/readingroom/internal/cli"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	rootCmd := cli.NewRootCommand(cli.BuildInfo{Version: Version, Commit: Commit})
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
