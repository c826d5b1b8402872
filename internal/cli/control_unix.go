//go:build !windows

package cli

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Send TERM to the running supervisor named by --pidfile",
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := readPID(pidFile)
		if err != nil {
			return err
		}
		return syscall.Kill(pid, syscall.SIGTERM)
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Send HUP to the running supervisor named by --pidfile",
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := readPID(pidFile)
		if err != nil {
			return err
		}
		return syscall.Kill(pid, syscall.SIGHUP)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the supervisor named by --pidfile is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := readPID(pidFile)
		if err != nil {
			fmt.Println("not running (no lock file)")
			return nil
		}
		if err := syscall.Kill(pid, syscall.Signal(0)); err != nil {
			fmt.Printf("not running (stale lock file, pid %d)\n", pid)
			return nil
		}
		fmt.Printf("running (pid %d)\n", pid)
		return nil
	},
}
