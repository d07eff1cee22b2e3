package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/harun/chronicle/pkg/model"
)

const defaultRenderWidth = 100

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// renderMarkdown renders markdown for the terminal, falling back to the raw text.
func renderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width <= 0 {
		width = defaultRenderWidth
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}

	return strings.TrimRight(rendered, "\n")
}

func writeSummaries(w io.Writer, summaries []model.SessionSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPIN\tUPDATED\tMSGS\tCOST\tTITLE\tTAGS")
	for _, s := range summaries {
		pin := ""
		if s.Pinned {
			pin = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			s.ID,
			pin,
			s.UpdatedAt.Local().Format("2006-01-02 15:04"),
			s.MessageCount,
			formatCost(s.TotalCostUSD),
			displayTitle(s.Title),
			strings.Join(s.Tags, ","),
		)
	}
	return tw.Flush()
}

func displayTitle(title string) string {
	if title == "" {
		return "(untitled)"
	}
	return title
}

func formatCost(usd float64) string {
	return fmt.Sprintf("$%.4f", usd)
}

// parseTimeFlag accepts RFC 3339 timestamps or plain dates. A plain date used as an upper
// bound covers the whole day.
func parseTimeFlag(name, value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q (use YYYY-MM-DD or RFC 3339)", name, value)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	t = t.UTC()
	return &t, nil
}
