// Command jobsupervisord is the daemon supervisor entry point: it wires
// cobra's command tree (start/run/stop/status/reload) and the hidden
// re-exec worker subcommand.
package main

import (
	"os"

	"github.com/daniel-kadosh/JobDaemon/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
