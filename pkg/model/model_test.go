package model

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		shouldErr bool
	}{
		{"valid id", "sess_1_abc", false},
		{"unicode id", "sessão-1", false},
		{"empty id", "", true},
		{"blank id", "   ", true},
		{"path traversal", "../etc/passwd", true},
		{"forward slash", "a/b", true},
		{"backslash", "a\\b", true},
		{"null byte", "a\x00b", true},
		{"newline", "a\nb", true},
		{"too long", strings.Repeat("x", 129), true},
		{"leading dot", ".hidden", true},
		{"dot only", ".", true},
		{"inner dot", "a.b", false},
		{"colon", "a:b", true},
		{"wildcard", "a*b", true},
		{"quote", "a\"b", true},
		{"unicode control", "a\u0085b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id)
			if tt.shouldErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" go ", "Bug", "", "bug", "api", "Go"})
	assert.Equal(t, []string{"api", "Bug", "go"}, got)

	empty := NormalizeTags(nil)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestNormalizeTag(t *testing.T) {
	tag, err := NormalizeTag("  release ")
	require.NoError(t, err)
	assert.Equal(t, "release", tag)

	_, err = NormalizeTag("   ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NormalizeTag("a\nb")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSummaryDerivation(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := PersistedSession{
		ID:           "s1",
		Title:        "Refactor parser",
		ProjectPath:  "/work/parser",
		Model:        "sonnet",
		Pinned:       true,
		Tags:         []string{"go"},
		Messages:     []Message{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hello"}},
		TotalCostUSD: 0.42,
		CreatedAt:    created,
		UpdatedAt:    created.Add(time.Hour),
	}

	s := p.Summary()
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, "Refactor parser", s.Title)
	assert.Equal(t, "/work/parser", s.ProjectPath)
	assert.Equal(t, 2, s.MessageCount)
	assert.Equal(t, 0.42, s.TotalCostUSD)
	assert.True(t, s.Pinned)
	assert.Equal(t, []string{"go"}, s.Tags)

	// The summary must not share the tag slice with its record.
	s.Tags[0] = "changed"
	assert.Equal(t, "go", p.Tags[0])
}

func TestNormalize(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	p := PersistedSession{
		ID:        "s1",
		Tags:      []string{"b", "a", "A"},
		CreatedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, loc),
	}
	p.Normalize()

	assert.NotNil(t, p.Messages)
	assert.Equal(t, []string{"a", "b"}, p.Tags)
	assert.Equal(t, time.UTC, p.CreatedAt.Location())
	assert.Equal(t, 10, p.CreatedAt.Hour())
	assert.True(t, p.UpdatedAt.IsZero())
}

func TestSearchOptionsMatches(t *testing.T) {
	at := func(sec int64) time.Time { return time.Unix(sec, 0).UTC() }
	ptr := func(v time.Time) *time.Time { return &v }

	base := SessionSummary{
		ID:          "s1",
		Title:       "Fix Login Flow",
		ProjectPath: "/work/web",
		Tags:        []string{"auth", "Urgent"},
		CreatedAt:   at(200),
	}

	tests := []struct {
		name string
		opts SearchOptions
		want bool
	}{
		{"zero options", SearchOptions{}, true},
		{"query title case-insensitive", SearchOptions{Query: "login"}, true},
		{"query tag", SearchOptions{Query: "urg"}, true},
		{"query miss", SearchOptions{Query: "database"}, false},
		{"pinned only", SearchOptions{PinnedOnly: true}, false},
		{"range includes", SearchOptions{StartDate: ptr(at(150)), EndDate: ptr(at(250))}, true},
		{"range inclusive start", SearchOptions{StartDate: ptr(at(200))}, true},
		{"range inclusive end", SearchOptions{EndDate: ptr(at(200))}, true},
		{"range before", SearchOptions{EndDate: ptr(at(199))}, false},
		{"range after", SearchOptions{StartDate: ptr(at(201))}, false},
		{"tag exact", SearchOptions{Tag: "urgent"}, true},
		{"tag partial does not match", SearchOptions{Tag: "urg"}, false},
		{"project", SearchOptions{ProjectPath: "/work/web"}, true},
		{"project miss", SearchOptions{ProjectPath: "/work/api"}, false},
		{"and combination", SearchOptions{Query: "login", ProjectPath: "/work/api"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.Matches(base))
		})
	}
}

func TestSortSummaries(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	summaries := []SessionSummary{
		{ID: "b", UpdatedAt: now},
		{ID: "c", UpdatedAt: now.Add(time.Minute)},
		{ID: "a", UpdatedAt: now},
	}
	SortSummaries(summaries)

	ids := []string{summaries[0].ID, summaries[1].ID, summaries[2].ID}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestInferTitle(t *testing.T) {
	assert.Equal(t, "", InferTitle(nil))
	assert.Equal(t, "", InferTitle([]Message{{Role: RoleAssistant, Content: "hi"}}))
	assert.Equal(t, "add a flag", InferTitle([]Message{
		{Role: RoleSystem, Content: "setup"},
		{Role: RoleUser, Content: "  \n "},
		{Role: RoleUser, Content: "add   a\nflag"},
	}))

	long := strings.Repeat("é", 60)
	got := InferTitle([]Message{{Role: RoleUser, Content: long}})
	assert.Equal(t, strings.Repeat("é", 48)+"...", got)
}

func TestParseExportFormat(t *testing.T) {
	for input, want := range map[string]ExportFormat{
		"markdown": FormatMarkdown,
		"MD":       FormatMarkdown,
		"json":     FormatJSON,
		"text":     FormatText,
		"txt":      FormatText,
	} {
		got, err := ParseExportFormat(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	_, err := ParseExportFormat("pdf")
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, ".md", FormatMarkdown.Extension())
	assert.Equal(t, ".json", FormatJSON.Extension())
	assert.Equal(t, ".txt", FormatText.Extension())
	assert.False(t, ExportFormat("pdf").Valid())
}

func TestNewSessionID(t *testing.T) {
	id, err := NewSessionID()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "sess_"))
	assert.NoError(t, ValidateID(id))

	other, err := NewSessionID()
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestRoleLabel(t *testing.T) {
	assert.Equal(t, "User", RoleUser.Label())
	assert.Equal(t, "Assistant", RoleAssistant.Label())
	assert.Equal(t, "Critic", Role("critic").Label())
	assert.Equal(t, "Unknown", Role("").Label())
}
