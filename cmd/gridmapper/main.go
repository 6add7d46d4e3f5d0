// Command gridmapper draws Maidenhead grid square maps from contest logs.
package main

import (
	"fmt"
	"os"

	"evalgo.org/gridmapper/internal/commands"
	"evalgo.org/gridmapper/internal/version"
)

// Set at build time with -ldflags "-X main.Version=...".
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime
	version.GitCommit = GitCommit

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
