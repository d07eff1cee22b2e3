package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/harun/chronicle/internal/config"
	"github.com/spf13/cobra"
)

var (
	configureDataDir     string
	configureBackend     string
	configureDBPath      string
	configureWatch       bool
	configureResync      string
	configureFormat      string
	configureMetricsAddr string
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Write the Chronicle configuration file",
	Long: `Write the Chronicle configuration file from the current settings.
Flags given on the command line replace the matching values before saving.`,
	Args: cobra.NoArgs,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().StringVar(&configureDataDir, "data-dir", "", "data directory")
	configureCmd.Flags().StringVar(&configureBackend, "backend", "", "storage backend (file, sqlite)")
	configureCmd.Flags().StringVar(&configureDBPath, "db-path", "", "SQLite database path")
	configureCmd.Flags().BoolVar(&configureWatch, "watch", false, "watch the session directory for external changes")
	configureCmd.Flags().StringVar(&configureResync, "resync", "", "cron schedule for index resync, e.g. \"*/30 * * * *\"")
	configureCmd.Flags().StringVar(&configureFormat, "export-format", "", "default export format (markdown, json, text)")
	configureCmd.Flags().StringVar(&configureMetricsAddr, "metrics-addr", "", "daemon metrics address, e.g. 127.0.0.1:9464")
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	cfg := *state.cfg
	flags := cmd.Flags()

	if flags.Changed("data-dir") {
		rebaseDataDir(&cfg, configureDataDir)
	}
	if flags.Changed("backend") {
		cfg.Storage.Backend = configureBackend
	}
	if flags.Changed("db-path") {
		cfg.Storage.DBPath = configureDBPath
	}
	if flags.Changed("watch") {
		cfg.Storage.Watch = configureWatch
	}
	if flags.Changed("resync") {
		cfg.Storage.ResyncSchedule = configureResync
	}
	if flags.Changed("export-format") {
		cfg.Export.DefaultFormat = configureFormat
	}
	if flags.Changed("metrics-addr") {
		cfg.Daemon.MetricsAddr = configureMetricsAddr
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Save configuration
	loader := config.NewLoader(cfgFile)
	if err := loader.Save(&cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration saved to: %s\n", loader.GetConfigPath())
	fmt.Fprintln(out, "You can now start Chronicle with: chronicle start")

	return nil
}

// rebaseDataDir moves paths that lived under the old data directory into dir.
func rebaseDataDir(cfg *config.Config, dir string) {
	old := cfg.DataDir
	for _, path := range []*string{
		&cfg.Storage.Dir,
		&cfg.Storage.DBPath,
		&cfg.Logging.File,
		&cfg.Logging.AuditFile,
	} {
		rel, err := filepath.Rel(old, *path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		*path = filepath.Join(dir, rel)
	}
	cfg.DataDir = dir
}
