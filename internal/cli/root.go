package cli

import (
	"context"
	"fmt"

	"github.com/harun/chronicle/internal/config"
	"github.com/harun/chronicle/internal/logger"
	"github.com/harun/chronicle/internal/observability"
	"github.com/harun/chronicle/pkg/history"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	cfgFile  string
	logLevel string
)

// openManager opens the history manager for a command. Tests swap it for isolated stores.
var openManager = history.Shared

// state holds what PersistentPreRunE set up for the running command.
var state struct {
	cfg     *config.Config
	log     *logger.Logger
	manager *history.Manager
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chronicle",
	Short: "Chronicle - session history for your assistant runs",
	Long: `Chronicle stores, searches and exports the sessions of an interactive
assistant: transcripts, cost and metadata, with tags, pins and
markdown, JSON or plain text exports.`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	err := rootCmd.Execute()
	if closeErr := teardown(); err == nil {
		err = closeErr
	}
	return err
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.chronicle/chronicle.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error), overrides the config file")

	// Version template
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return err
	}

	if cfg.Logging.AuditFile != "" {
		if err := observability.InitAuditLogger(cfg.Logging.AuditFile); err != nil {
			log.Warn().Err(err).Msg("Failed to open audit log, continuing without it")
		}
	}

	state.cfg = cfg
	state.log = log
	state.manager = nil
	return nil
}

// teardown releases what setup opened. It runs after failed commands too.
func teardown() error {
	if state.manager != nil {
		if err := state.manager.Close(); err != nil {
			state.log.Error().Err(err).Msg("Failed to close session store")
		}
		state.manager = nil
	}
	if state.log != nil {
		err := state.log.Close()
		state.log = nil
		return err
	}
	return nil
}

// manager returns the history manager, opening the store on first use.
func manager(ctx context.Context) (*history.Manager, error) {
	if state.manager != nil {
		return state.manager, nil
	}
	m, err := openManager(ctx, state.cfg)
	if err != nil {
		return nil, err
	}
	state.manager = m
	return m, nil
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}
