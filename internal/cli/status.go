package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/harun/chronicle/internal/daemon"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  `Show the current status of the Chronicle daemon and the session store.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	pidFile := daemon.PIDFilePath(state.cfg.DataDir)

	if !daemon.IsRunning(pidFile) {
		fmt.Fprintln(out, "Status: stopped")
	} else {
		pid, err := daemon.ReadPID(pidFile)
		if err != nil {
			return fmt.Errorf("failed to read PID file: %w", err)
		}

		fmt.Fprintf(out, "Status: running\n")
		fmt.Fprintf(out, "PID: %d\n", pid)

		// The PID file is written at startup, so its age is the uptime
		if fileInfo, err := os.Stat(pidFile); err == nil {
			fmt.Fprintf(out, "Uptime: %s\n", formatDuration(time.Since(fileInfo.ModTime())))
		}
	}

	fmt.Fprintf(out, "Backend: %s\n", state.cfg.Storage.Backend)
	if state.cfg.Storage.Backend == "sqlite" {
		fmt.Fprintf(out, "Store: %s\n", state.cfg.Storage.DBPath)
	} else {
		fmt.Fprintf(out, "Store: %s\n", state.cfg.Storage.Dir)
	}

	return nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
