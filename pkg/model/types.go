package model

import (
	"strings"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Label returns the display label for the role.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	case RoleTool:
		return "Tool"
	case "":
		return "Unknown"
	default:
		s := string(r)
		return strings.ToUpper(s[:1]) + s[1:]
	}
}

// Message is a single event of a session transcript.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Thinking  string    `json:"thinking,omitempty"`
	ToolName  string    `json:"tool_name,omitempty"`
	CostUSD   float64   `json:"cost_usd,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the live record of an assistant run, handed over by the runtime when a run
// completes or checkpoints.
type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	ProjectPath  string    `json:"project_path"`
	Model        string    `json:"model,omitempty"`
	Messages     []Message `json:"messages"`
	TotalCostUSD float64   `json:"total_cost_usd"`
}

// PersistedSession is the durable form of a Session with user-editable metadata.
type PersistedSession struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	ProjectPath  string    `json:"project_path"`
	Model        string    `json:"model"`
	Pinned       bool      `json:"pinned"`
	Tags         []string  `json:"tags"`
	Messages     []Message `json:"messages"`
	TotalCostUSD float64   `json:"total_cost_usd"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SessionSummary is the lightweight index projection of a PersistedSession.
type SessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	ProjectPath  string    `json:"project_path"`
	Model        string    `json:"model"`
	Pinned       bool      `json:"pinned"`
	Tags         []string  `json:"tags"`
	MessageCount int       `json:"message_count"`
	TotalCostUSD float64   `json:"total_cost_usd"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SearchOptions filters summaries. A zero value matches everything; every set field narrows
// the result with logical AND.
type SearchOptions struct {
	// Query matches case-insensitively against the title and tag text.
	Query string
	// PinnedOnly restricts the result to pinned sessions.
	PinnedOnly bool
	// StartDate and EndDate bound CreatedAt, both inclusive. Nil leaves the side open.
	StartDate *time.Time
	EndDate   *time.Time
	// Tag requires an exact, case-insensitive tag match.
	Tag string
	// ProjectPath requires an exact project match.
	ProjectPath string
	// Limit caps the number of results. Zero means unlimited.
	Limit int
}

// ExportFormat selects the export codec output mode.
type ExportFormat string

const (
	FormatMarkdown ExportFormat = "markdown"
	FormatJSON     ExportFormat = "json"
	FormatText     ExportFormat = "text"
)

// ParseExportFormat parses a user-supplied format name. "md" and "txt" are accepted aliases.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "text", "txt":
		return FormatText, nil
	default:
		return "", validationErrorf("unknown export format %q (must be: markdown, json, text)", s)
	}
}

// Extension returns the filename extension for the format, including the dot.
func (f ExportFormat) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatJSON:
		return ".json"
	case FormatText:
		return ".txt"
	default:
		return ""
	}
}

// Valid reports whether f is one of the known formats.
func (f ExportFormat) Valid() bool {
	return f.Extension() != ""
}
