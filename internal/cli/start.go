package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daniel-kadosh/JobDaemon/internal/app"
	"github.com/daniel-kadosh/JobDaemon/internal/applog"
	"github.com/daniel-kadosh/JobDaemon/internal/config"
	"github.com/daniel-kadosh/JobDaemon/internal/daemon"
	"github.com/daniel-kadosh/JobDaemon/internal/scanner"
	"github.com/daniel-kadosh/JobDaemon/internal/supervisor"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Daemonize and run the supervisor in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSupervisor(cmd, true)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the supervisor in the foreground (no daemonize)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSupervisor(cmd, false)
	},
}

func runSupervisor(cmd *cobra.Command, daemonize bool) error {
	printBanner()

	file, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg := file.ToSupervisorConfig()
	if cmd.Flags().Changed("max-workers") {
		cfg.MaxWorkers = maxWorkers
	}
	if cmd.Flags().Changed("pidfile") {
		cfg.PIDFilePath = pidFile
	}

	var logger *applog.Logger
	if cfg.LogPath != "" {
		logger, err = applog.Open(cfg.LogPath, applog.Info)
		if err != nil {
			return err
		}
	} else {
		logger = applog.New(os.Stderr, applog.Info)
	}

	scannerApp := &scanner.App{Dir: watchDir, Log: logger}

	sup := supervisor.New(cfg, app.Application(scannerApp), logger)
	if !daemonize {
		sup.Daemonize = func(string, *daemon.LockFile) error { return nil }
	}

	if configPath != "" {
		watch, err := config.NewWatcher(configPath, logger, func(f config.File) {
			if sup.Control == nil {
				return
			}
			sup.Control.SetMaxWorkers(f.MaxWorkers)
			sup.Control.SetPropagateSignals(f.PropagateSignals)
		})
		if err == nil {
			defer watch.Close()
		} else {
			logger.Warnf("config hot-reload disabled: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT)
	defer stop()

	if err := sup.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "jobsupervisord: %v\n", err)
		os.Exit(1)
	}
	return nil
}
