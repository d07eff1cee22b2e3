package history

import (
	"context"
	"errors"
	"strings"

	"github.com/harun/chronicle/internal/observability"
	"github.com/harun/chronicle/internal/tracing"
	"github.com/harun/chronicle/pkg/export"
	"github.com/harun/chronicle/pkg/model"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "chronicle.history"

const (
	markdownSeparator = "\n\n---\n\n"
	textDividerWidth  = 80
)

// ExportResult is an exported document and the filename suggested for it.
type ExportResult struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
}

// ExportSession renders the session id in format. It returns nil when the session does not
// exist.
func (m *Manager) ExportSession(ctx context.Context, id string, format model.ExportFormat) (*ExportResult, error) {
	ctx, span := tracing.StartSpan(tracing.WithSessionID(ctx, id), tracerName, "history.export",
		attribute.String("session_id", id),
		attribute.String("format", string(format)),
	)
	defer span.End()

	format, err := model.ParseExportFormat(string(format))
	if err != nil {
		return nil, tracing.Fail(span, err)
	}

	p, err := m.engine.GetSession(ctx, id)
	if err != nil {
		return nil, tracing.Fail(span, err)
	}
	if p == nil {
		logger := tracing.LoggerFromContext(ctx, m.logger)
		logger.Debug().Msg("Nothing to export")
		return nil, nil
	}

	content, err := export.Session(*p, format)
	if err != nil {
		return nil, tracing.Fail(span, err)
	}

	observability.RecordExport(string(format), 1)
	observability.RecordSessionAudit(ctx, "export", id, "success", map[string]interface{}{
		"format": string(format),
	})

	return &ExportResult{
		Content:  content,
		Filename: export.Filename(*p, format),
	}, nil
}

// ExportMultipleSessions renders every existing session of ids in input order and joins the
// results into one document: markdown with a horizontal rule between sessions, json as a
// single array and text with a divider line. Missing or malformed ids are skipped. It returns
// nil when none of the ids exist.
func (m *Manager) ExportMultipleSessions(ctx context.Context, ids []string, format model.ExportFormat) (*ExportResult, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "history.export_multiple",
		attribute.Int("requested", len(ids)),
		attribute.String("format", string(format)),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, m.logger)

	format, err := model.ParseExportFormat(string(format))
	if err != nil {
		return nil, tracing.Fail(span, err)
	}

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		p, err := m.engine.GetSession(ctx, id)
		if errors.Is(err, model.ErrValidation) {
			logger.Debug().Err(err).Str("session_id", id).Msg("Skipping invalid session id in export")
			continue
		}
		if err != nil {
			return nil, tracing.Fail(span, err)
		}
		if p == nil {
			logger.Debug().Str("session_id", id).Msg("Skipping missing session in export")
			continue
		}
		content, err := export.Session(*p, format)
		if err != nil {
			return nil, tracing.Fail(span, err)
		}
		parts = append(parts, content)
	}

	if len(parts) == 0 {
		return nil, nil
	}

	observability.RecordExport(string(format), len(parts))
	observability.RecordIndexAudit(ctx, "export_multiple", "success", map[string]interface{}{
		"format":   string(format),
		"sessions": len(parts),
	})

	return &ExportResult{
		Content:  joinExports(parts, format),
		Filename: "sessions-export-" + m.clock.Now().UTC().Format("2006-01-02") + format.Extension(),
	}, nil
}

func joinExports(parts []string, format model.ExportFormat) string {
	switch format {
	case model.FormatJSON:
		return "[" + strings.Join(parts, ",\n") + "]"
	case model.FormatText:
		return strings.Join(parts, "\n\n"+strings.Repeat("=", textDividerWidth)+"\n\n")
	default:
		return strings.Join(parts, markdownSeparator)
	}
}
