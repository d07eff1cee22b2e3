package config

import (
	"fmt"
	"strings"

	"github.com/harun/chronicle/pkg/model"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateBackend validates a storage backend name
func (v *Validator) ValidateBackend(backend string) error {
	switch backend {
	case "file", "sqlite":
		return nil
	default:
		return fmt.Errorf("invalid storage backend %q (must be: file, sqlite)", backend)
	}
}

// ValidateSchedule validates a resync schedule. Empty disables resync.
func (v *Validator) ValidateSchedule(spec string) error {
	if strings.TrimSpace(spec) == "" {
		return nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid resync schedule %q: %w", spec, err)
	}
	return nil
}

// ValidateLogLevel validates a log level name
func (v *Validator) ValidateLogLevel(level string) error {
	if level == "" {
		return nil
	}
	if _, err := zerolog.ParseLevel(level); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	return nil
}

// ValidateExportFormat validates an export format name
func (v *Validator) ValidateExportFormat(format string) error {
	if format == "" {
		return nil
	}
	_, err := model.ParseExportFormat(format)
	return err
}
