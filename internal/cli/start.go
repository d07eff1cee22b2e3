package cli

import (
	"fmt"
	"os"

	"github.com/harun/chronicle/internal/daemon"
	"github.com/spf13/cobra"
)

var startMetricsAddr string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the Chronicle sync daemon",
	Long: `Run the Chronicle daemon in the foreground until interrupted.
The daemon keeps the session index in sync with the store, runs the scheduled
resync and serves Prometheus metrics when an address is configured.`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&startMetricsAddr, "metrics-addr", "", "serve metrics on this address, overrides daemon.metrics_addr")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	// Check if daemon is already running
	pidFile := daemon.PIDFilePath(state.cfg.DataDir)
	if daemon.IsRunning(pidFile) {
		return fmt.Errorf("daemon is already running (PID file: %s)", pidFile)
	}

	if startMetricsAddr != "" {
		state.cfg.Daemon.MetricsAddr = startMetricsAddr
	}

	m, err := manager(cmd.Context())
	if err != nil {
		return err
	}

	d, err := daemon.New(state.cfg, state.log, m)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}
	if err := d.Start(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Chronicle daemon running (PID %d)\n", os.Getpid())
	if addr := d.MetricsAddr(); addr != "" {
		fmt.Fprintf(out, "Metrics: http://%s/metrics\n", addr)
	}

	d.Wait()
	return nil
}
