//go:build windows

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Request the running supervisor named by --pidfile to exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := readPID(pidFile)
		if err != nil {
			return err
		}
		proc, err := os.FindProcess(pid)
		if err != nil {
			return err
		}
		return proc.Signal(os.Interrupt)
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload is not supported on Windows (no HUP analogue)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("reload is not supported on windows")
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
		if _, err := os.FindProcess(pid); err != nil {
			fmt.Printf("not running (stale lock file, pid %d)\n", pid)
			return nil
		}
		fmt.Printf("running (pid %d)\n", pid)
		return nil
	},
}
