package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harun/chronicle/pkg/model"
)

const (
	untitled   = "Untitled session"
	timeLayout = time.RFC3339
)

// Session renders p in the requested format.
func Session(p model.PersistedSession, format model.ExportFormat) (string, error) {
	switch format {
	case model.FormatMarkdown:
		return Markdown(p), nil
	case model.FormatJSON:
		return JSON(p)
	case model.FormatText:
		return Text(p), nil
	default:
		return "", fmt.Errorf("%w: unsupported export format %q", model.ErrValidation, format)
	}
}

// JSON renders a lossless, indented serialization of p. Output is byte-identical for
// identical input.
func JSON(p model.PersistedSession) (string, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal session %s: %w", p.ID, err)
	}
	return string(data), nil
}

// ParseJSON reads a session produced by JSON back into its normalized form.
func ParseJSON(data []byte) (model.PersistedSession, error) {
	var p model.PersistedSession
	if err := json.Unmarshal(data, &p); err != nil {
		return model.PersistedSession{}, fmt.Errorf("parse exported session: %w", err)
	}
	p.Normalize()
	return p, nil
}

func displayTitle(p model.PersistedSession) string {
	if t := strings.TrimSpace(p.Title); t != "" {
		return t
	}
	return untitled
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format(timeLayout)
}

func formatCost(usd float64) string {
	return fmt.Sprintf("$%.4f", usd)
}
