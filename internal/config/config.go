package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main Chronicle configuration
type Config struct {
	// Data directory; storage and log paths default to locations inside it
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Storage
	Storage StorageConfig `json:"storage" mapstructure:"storage"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Export
	Export ExportConfig `json:"export" mapstructure:"export"`

	// Daemon
	Daemon DaemonConfig `json:"daemon" mapstructure:"daemon"`
}

// StorageConfig selects and configures the session store
type StorageConfig struct {
	Backend        string `json:"backend" mapstructure:"backend"` // file, sqlite
	Dir            string `json:"dir" mapstructure:"dir"`
	DBPath         string `json:"db_path" mapstructure:"db_path"`
	Watch          bool   `json:"watch" mapstructure:"watch"`
	ResyncSchedule string `json:"resync_schedule" mapstructure:"resync_schedule"` // cron spec, empty disables
	RetentionDays  int    `json:"retention_days" mapstructure:"retention_days"`   // unpinned sessions idle longer are pruned, 0 keeps all
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	AuditFile string `json:"audit_file" mapstructure:"audit_file"`
}

// ExportConfig holds export defaults
type ExportConfig struct {
	DefaultFormat string `json:"default_format" mapstructure:"default_format"` // markdown, json, text
}

// DaemonConfig holds settings for the long-running sync daemon
type DaemonConfig struct {
	MetricsAddr string `json:"metrics_addr" mapstructure:"metrics_addr"` // empty disables the metrics endpoint
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: "file",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
		Export: ExportConfig{
			DefaultFormat: "markdown",
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	v := NewValidator()

	if err := v.ValidateBackend(c.Storage.Backend); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("storage.db_path is required for the sqlite backend")
		}
		if c.Storage.Watch {
			return fmt.Errorf("storage.watch is only supported by the file backend")
		}
	default:
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for the file backend")
		}
	}

	if err := v.ValidateSchedule(c.Storage.ResyncSchedule); err != nil {
		return err
	}
	if c.Storage.RetentionDays < 0 {
		return fmt.Errorf("storage.retention_days must not be negative")
	}
	if err := v.ValidateLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if err := v.ValidateExportFormat(c.Export.DefaultFormat); err != nil {
		return err
	}

	return nil
}
