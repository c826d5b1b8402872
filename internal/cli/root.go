// Package cli wires cobra commands for the daemon: start (daemonize and
// run), run (foreground), stop, status, reload, and a hidden worker
// subcommand used only by the supervisor's own re-exec launcher.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const banner = `
     _       _       ____
    | | ___ | |__   / ___| _   _ _ ____   __
 _  | |/ _ \| '_ \  \___ \| | | | '_ \ \ / /
| |_| | (_) | |_) |  ___) | |_| | |_) \ V /
 \___/ \___/|_.__/  |____/ \__,_| .__/ \_/
                                 |_|
`

var (
	configPath string
	pidFile    string
	watchDir   string
	maxWorkers int
)

var rootCmd = &cobra.Command{
	Use:           "jobsupervisord",
	Short:         "Daemon supervisor that dispatches jobs to re-exec'd worker processes",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI. On error it prints the error to stderr and exits
// 1. The banner is printed only by the start and run commands.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "jobsupervisord: %v\n", err)
		os.Exit(1)
	}
	return nil
}

func printBanner() {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintln(os.Stderr, banner)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&pidFile, "pidfile", "/var/run/jobsupervisord.pid", "lock file path")
	rootCmd.PersistentFlags().StringVar(&watchDir, "watch-dir", ".", "directory the demo scanner application watches")
	rootCmd.PersistentFlags().IntVar(&maxWorkers, "max-workers", 4, "maximum concurrent worker processes")

	rootCmd.AddCommand(startCmd, runCmd, stopCmd, statusCmd, reloadCmd, workerCmd)
}
