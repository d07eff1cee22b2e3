package export

import (
	"fmt"
	"strings"

	"github.com/harun/chronicle/pkg/model"
)

// Markdown renders p with a metadata list and one heading per message. Message content is
// written verbatim so fenced code blocks survive unchanged.
func Markdown(p model.PersistedSession) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", displayTitle(p))
	fmt.Fprintf(&b, "- **Session ID:** %s\n", p.ID)
	if p.ProjectPath != "" {
		fmt.Fprintf(&b, "- **Project:** `%s`\n", p.ProjectPath)
	}
	if p.Model != "" {
		fmt.Fprintf(&b, "- **Model:** %s\n", p.Model)
	}
	fmt.Fprintf(&b, "- **Created:** %s\n", formatTime(p.CreatedAt))
	fmt.Fprintf(&b, "- **Updated:** %s\n", formatTime(p.UpdatedAt))
	fmt.Fprintf(&b, "- **Total cost:** %s\n", formatCost(p.TotalCostUSD))
	fmt.Fprintf(&b, "- **Messages:** %d\n", len(p.Messages))
	if len(p.Tags) > 0 {
		tags := make([]string, len(p.Tags))
		for i, t := range p.Tags {
			tags[i] = "`" + t + "`"
		}
		fmt.Fprintf(&b, "- **Tags:** %s\n", strings.Join(tags, ", "))
	}
	if p.Pinned {
		b.WriteString("- **Pinned:** yes\n")
	}

	for _, msg := range p.Messages {
		b.WriteString("\n---\n\n")
		heading := msg.Role.Label()
		if msg.ToolName != "" {
			heading = fmt.Sprintf("%s (%s)", heading, msg.ToolName)
		}
		fmt.Fprintf(&b, "## %s\n\n", heading)
		if !msg.Timestamp.IsZero() {
			fmt.Fprintf(&b, "_%s_\n\n", formatTime(msg.Timestamp))
		}
		if thinking := strings.TrimSpace(msg.Thinking); thinking != "" {
			b.WriteString("<details>\n<summary>Thinking</summary>\n\n")
			b.WriteString(thinking)
			b.WriteString("\n\n</details>\n\n")
		}
		b.WriteString(strings.TrimRight(msg.Content, "\n"))
		b.WriteString("\n")
	}

	return b.String()
}
