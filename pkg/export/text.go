package export

import (
	"fmt"
	"strings"

	"github.com/harun/chronicle/pkg/model"
)

// Text renders p as a flat transcript with role labels and no markup.
func Text(p model.PersistedSession) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Title: %s\n", displayTitle(p))
	fmt.Fprintf(&b, "Session: %s\n", p.ID)
	if p.ProjectPath != "" {
		fmt.Fprintf(&b, "Project: %s\n", p.ProjectPath)
	}
	if p.Model != "" {
		fmt.Fprintf(&b, "Model: %s\n", p.Model)
	}
	fmt.Fprintf(&b, "Created: %s\n", formatTime(p.CreatedAt))
	fmt.Fprintf(&b, "Updated: %s\n", formatTime(p.UpdatedAt))
	fmt.Fprintf(&b, "Cost: %s\n", formatCost(p.TotalCostUSD))
	if len(p.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(p.Tags, ", "))
	}
	if p.Pinned {
		b.WriteString("Pinned: yes\n")
	}

	for _, msg := range p.Messages {
		label := msg.Role.Label()
		if msg.ToolName != "" {
			label = fmt.Sprintf("%s (%s)", label, msg.ToolName)
		}
		fmt.Fprintf(&b, "\n%s:\n", label)
		if thinking := strings.TrimSpace(msg.Thinking); thinking != "" {
			fmt.Fprintf(&b, "(thinking)\n%s\n(end thinking)\n", thinking)
		}
		b.WriteString(strings.TrimRight(msg.Content, "\n"))
		b.WriteString("\n")
	}

	return b.String()
}
