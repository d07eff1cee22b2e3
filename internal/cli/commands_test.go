package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harun/chronicle/internal/config"
	"github.com/harun/chronicle/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionsFixture = `[
  {
    "id": "s-login",
    "title": "Fix login flow",
    "project_path": "/work/web",
    "model": "sonnet",
    "messages": [
      {"role": "user", "content": "the login form breaks", "timestamp": "2026-03-01T10:00:00Z"},
      {"role": "assistant", "content": "Fixed the handler", "timestamp": "2026-03-01T10:01:00Z"}
    ],
    "total_cost_usd": 0.25
  },
  {
    "id": "s-parser",
    "project_path": "/work/api",
    "messages": [
      {"role": "user", "content": "refactor the parser", "timestamp": "2026-03-02T09:00:00Z"}
    ],
    "total_cost_usd": 0.5
  }
]`

// setupSessions imports the fixture sessions into a fresh store and returns the config path.
func setupSessions(t *testing.T) (string, string) {
	t.Helper()
	cfgPath, dataDir := newTestConfig(t, nil)

	fixture := filepath.Join(t.TempDir(), "sessions.json")
	require.NoError(t, os.WriteFile(fixture, []byte(sessionsFixture), 0600))

	output, err := executeCommand(t, "--config", cfgPath, "import", fixture)
	require.NoError(t, err)
	assert.Contains(t, output, "Saved s-login: Fix login flow\n")
	assert.Contains(t, output, "Saved s-parser: refactor the parser\n")

	return cfgPath, dataDir
}

func listSummaries(t *testing.T, cfgPath string, args ...string) []model.SessionSummary {
	t.Helper()
	output, err := executeCommand(t, append([]string{"--config", cfgPath, "list", "--json"}, args...)...)
	require.NoError(t, err)

	var summaries []model.SessionSummary
	require.NoError(t, json.Unmarshal([]byte(output), &summaries))
	return summaries
}

func summaryByID(summaries []model.SessionSummary, id string) *model.SessionSummary {
	for i := range summaries {
		if summaries[i].ID == id {
			return &summaries[i]
		}
	}
	return nil
}

func TestImportCommand(t *testing.T) {
	t.Run("stores sessions as files", func(t *testing.T) {
		_, dataDir := setupSessions(t)

		assert.FileExists(t, filepath.Join(dataDir, "sessions", "s-login.json"))
		assert.FileExists(t, filepath.Join(dataDir, "sessions", "s-parser.json"))
	})

	t.Run("single object from stdin", func(t *testing.T) {
		cfgPath, _ := newTestConfig(t, nil)

		output, err := executeWithInput(t, `{"id":"s-stdin","project_path":"/p","messages":[]}`,
			"--config", cfgPath, "import", "-")
		require.NoError(t, err)
		assert.Equal(t, "Saved s-stdin: (untitled)\n", output)
	})

	t.Run("invalid json", func(t *testing.T) {
		cfgPath, _ := newTestConfig(t, nil)

		_, err := executeWithInput(t, `{"id":`, "--config", cfgPath, "import", "-")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid session")
	})

	t.Run("invalid id", func(t *testing.T) {
		cfgPath, _ := newTestConfig(t, nil)

		_, err := executeWithInput(t, `{"id":"../escape","messages":[]}`, "--config", cfgPath, "import", "-")
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrValidation)
	})
}

func TestListCommand(t *testing.T) {
	cfgPath, _ := setupSessions(t)

	t.Run("table", func(t *testing.T) {
		output, err := executeCommand(t, "--config", cfgPath, "list")
		require.NoError(t, err)

		assert.Contains(t, output, "2 session(s)")
		assert.Contains(t, output, "s-login")
		assert.Contains(t, output, "Fix login flow")
		assert.Contains(t, output, "$0.5000")
	})

	t.Run("json", func(t *testing.T) {
		summaries := listSummaries(t, cfgPath)
		require.Len(t, summaries, 2)

		login := summaryByID(summaries, "s-login")
		require.NotNil(t, login)
		assert.Equal(t, 2, login.MessageCount)
		assert.Equal(t, "/work/web", login.ProjectPath)
	})

	t.Run("filters", func(t *testing.T) {
		summaries := listSummaries(t, cfgPath, "--query", "PARSER")
		require.Len(t, summaries, 1)
		assert.Equal(t, "s-parser", summaries[0].ID)

		summaries = listSummaries(t, cfgPath, "--project", "/work/web")
		require.Len(t, summaries, 1)
		assert.Equal(t, "s-login", summaries[0].ID)

		assert.Empty(t, listSummaries(t, cfgPath, "--pinned"))
		assert.Len(t, listSummaries(t, cfgPath, "--limit", "1"), 1)
		assert.Empty(t, listSummaries(t, cfgPath, "--until", "2000-01-01"))
		assert.Len(t, listSummaries(t, cfgPath, "--since", "2000-01-01"), 2)
	})

	t.Run("by project", func(t *testing.T) {
		output, err := executeCommand(t, "--config", cfgPath, "list", "--by-project")
		require.NoError(t, err)
		assert.Contains(t, output, "/work/api (1)")
		assert.Contains(t, output, "/work/web (1)")
	})

	t.Run("empty result", func(t *testing.T) {
		output, err := executeCommand(t, "--config", cfgPath, "list", "--tag", "missing")
		require.NoError(t, err)
		assert.Contains(t, output, "No sessions found")
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := executeCommand(t, "--config", cfgPath, "list", "--since", "yesterday")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--since")
	})

	t.Run("negative limit", func(t *testing.T) {
		_, err := executeCommand(t, "--config", cfgPath, "list", "--limit", "-1")
		require.Error(t, err)
	})
}

func TestShowCommand(t *testing.T) {
	cfgPath, _ := setupSessions(t)

	t.Run("text", func(t *testing.T) {
		output, err := executeCommand(t, "--config", cfgPath, "show", "s-login")
		require.NoError(t, err)

		assert.Contains(t, output, "Title: Fix login flow")
		assert.Contains(t, output, "User:\nthe login form breaks")
		assert.Contains(t, output, "Assistant:\nFixed the handler")
	})

	t.Run("json", func(t *testing.T) {
		output, err := executeCommand(t, "--config", cfgPath, "show", "s-login", "--json")
		require.NoError(t, err)

		var record model.PersistedSession
		require.NoError(t, json.Unmarshal([]byte(output), &record))
		assert.Equal(t, "s-login", record.ID)
		assert.Len(t, record.Messages, 2)
	})

	t.Run("render", func(t *testing.T) {
		output, err := executeCommand(t, "--config", cfgPath, "show", "s-parser", "--render")
		require.NoError(t, err)
		assert.Contains(t, output, "parser")
	})

	t.Run("json and render conflict", func(t *testing.T) {
		_, err := executeCommand(t, "--config", cfgPath, "show", "s-login", "--json", "--render")
		require.Error(t, err)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := executeCommand(t, "--config", cfgPath, "show", "missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestExportCommand(t *testing.T) {
	cfgPath, _ := setupSessions(t)

	t.Run("single session to file", func(t *testing.T) {
		outDir := t.TempDir()

		output, err := executeCommand(t, "--config", cfgPath, "export", "s-login", "--output", outDir)
		require.NoError(t, err)
		assert.Contains(t, output, "Exported to")

		entries, err := os.ReadDir(outDir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.True(t, strings.HasPrefix(entries[0].Name(), "Fix-login-flow_"))
		assert.Equal(t, ".md", filepath.Ext(entries[0].Name()))

		content, err := os.ReadFile(filepath.Join(outDir, entries[0].Name()))
		require.NoError(t, err)
		assert.Contains(t, string(content), "Fix login flow")
	})

	t.Run("multiple sessions as json", func(t *testing.T) {
		output, err := executeCommand(t, "--config", cfgPath, "export", "s-login", "missing", "s-parser",
			"--format", "json", "--stdout")
		require.NoError(t, err)

		var records []model.PersistedSession
		require.NoError(t, json.Unmarshal([]byte(output), &records))
		require.Len(t, records, 2)
		assert.Equal(t, "s-login", records[0].ID)
		assert.Equal(t, "s-parser", records[1].ID)
	})

	t.Run("all sessions to file", func(t *testing.T) {
		outDir := t.TempDir()

		_, err := executeCommand(t, "--config", cfgPath, "export", "--all", "--format", "txt", "--output", outDir)
		require.NoError(t, err)

		matches, err := filepath.Glob(filepath.Join(outDir, "sessions-export-*.txt"))
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})

	t.Run("nothing to export", func(t *testing.T) {
		_, err := executeCommand(t, "--config", cfgPath, "export", "missing", "--stdout")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nothing to export")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := executeCommand(t, "--config", cfgPath, "export", "s-login", "--format", "pdf")
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("ids and all are exclusive", func(t *testing.T) {
		_, err := executeCommand(t, "--config", cfgPath, "export", "s-login", "--all")
		require.Error(t, err)

		_, err = executeCommand(t, "--config", cfgPath, "export")
		require.Error(t, err)
	})
}

func TestMetadataCommands(t *testing.T) {
	cfgPath, _ := setupSessions(t)

	output, err := executeCommand(t, "--config", cfgPath, "rename", "s-parser", "Parser", "cleanup")
	require.NoError(t, err)
	assert.Contains(t, output, "Renamed s-parser")

	output, err = executeCommand(t, "--config", cfgPath, "pin", "s-parser")
	require.NoError(t, err)
	assert.Contains(t, output, "Pinned s-parser")

	_, err = executeCommand(t, "--config", cfgPath, "tag", "add", "s-parser", "Refactor")
	require.NoError(t, err)
	_, err = executeCommand(t, "--config", cfgPath, "tag", "add", "s-login", "auth")
	require.NoError(t, err)

	summaries := listSummaries(t, cfgPath, "--pinned")
	require.Len(t, summaries, 1)
	assert.Equal(t, "Parser cleanup", summaries[0].Title)
	assert.Equal(t, []string{"Refactor"}, summaries[0].Tags)

	output, err = executeCommand(t, "--config", cfgPath, "tag", "list")
	require.NoError(t, err)
	assert.Equal(t, "auth\nRefactor\n", output)

	_, err = executeCommand(t, "--config", cfgPath, "tag", "rm", "s-parser", "refactor")
	require.NoError(t, err)
	assert.Len(t, listSummaries(t, cfgPath, "--tag", "refactor"), 0)

	output, err = executeCommand(t, "--config", cfgPath, "pin", "s-parser")
	require.NoError(t, err)
	assert.Contains(t, output, "Unpinned s-parser")

	output, err = executeCommand(t, "--config", cfgPath, "delete", "s-login")
	require.NoError(t, err)
	assert.Contains(t, output, "Deleted s-login")
	assert.Len(t, listSummaries(t, cfgPath), 1)

	t.Run("missing sessions", func(t *testing.T) {
		for _, args := range [][]string{
			{"rename", "missing", "x"},
			{"pin", "missing"},
			{"tag", "add", "missing", "x"},
			{"tag", "rm", "missing", "x"},
			{"delete", "missing"},
		} {
			_, err := executeCommand(t, append([]string{"--config", cfgPath}, args...)...)
			require.Error(t, err, args)
			assert.Contains(t, err.Error(), "not found", args)
		}

		_, err := executeCommand(t, "--config", cfgPath, "delete", "missing", "--force")
		assert.NoError(t, err)
	})

	t.Run("invalid title", func(t *testing.T) {
		_, err := executeCommand(t, "--config", cfgPath, "rename", "s-parser", "two\nlines")
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrValidation)
	})
}

func TestStatsCommand(t *testing.T) {
	cfgPath, _ := setupSessions(t)

	_, err := executeCommand(t, "--config", cfgPath, "tag", "add", "s-login", "auth")
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		output, err := executeCommand(t, "--config", cfgPath, "stats", "--json")
		require.NoError(t, err)

		var got struct {
			Statistics struct {
				TotalSessions int                `json:"total_sessions"`
				TotalMessages int                `json:"total_messages"`
				TotalCostUSD  float64            `json:"total_cost_usd"`
				CostByProject map[string]float64 `json:"cost_by_project"`
				TagCounts     map[string]int     `json:"tag_counts"`
			} `json:"statistics"`
			PeriodCostUSD *float64 `json:"period_cost_usd"`
		}
		require.NoError(t, json.Unmarshal([]byte(output), &got))

		assert.Equal(t, 2, got.Statistics.TotalSessions)
		assert.Equal(t, 3, got.Statistics.TotalMessages)
		assert.InDelta(t, 0.75, got.Statistics.TotalCostUSD, 1e-9)
		assert.InDelta(t, 0.5, got.Statistics.CostByProject["/work/api"], 1e-9)
		assert.Equal(t, 1, got.Statistics.TagCounts["auth"])
		assert.Nil(t, got.PeriodCostUSD)
	})

	t.Run("period", func(t *testing.T) {
		output, err := executeCommand(t, "--config", cfgPath, "stats", "--until", "2000-01-01")
		require.NoError(t, err)
		assert.Contains(t, output, "Period:   $0.0000")
		assert.Contains(t, output, "Cost:     $0.7500")

		since := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
		output, err = executeCommand(t, "--config", cfgPath, "stats", "--since", since)
		require.NoError(t, err)
		assert.Contains(t, output, "Period:   $0.7500")
	})
}

func TestReloadCommand(t *testing.T) {
	cfgPath, dataDir := setupSessions(t)

	output, err := executeCommand(t, "--config", cfgPath, "reload")
	require.NoError(t, err)
	assert.Contains(t, output, "Loaded 2 session(s), skipped 0")

	corrupt := filepath.Join(dataDir, "sessions", "broken.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0600))

	output, err = executeCommand(t, "--config", cfgPath, "reload")
	require.NoError(t, err)
	assert.Contains(t, output, "Loaded 2 session(s), skipped 1")
	assert.Contains(t, output, "broken")
}

func TestSQLiteBackendCommands(t *testing.T) {
	cfgPath, dataDir := newTestConfig(t, map[string]any{"backend": "sqlite"})

	_, err := executeWithInput(t, sessionsFixture, "--config", cfgPath, "import", "-")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dataDir, "sessions.db"))
	assert.Len(t, listSummaries(t, cfgPath), 2)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
}

func TestParseTimeFlag(t *testing.T) {
	got, err := parseTimeFlag("since", "", false)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseTimeFlag("since", "2026-03-01T10:00:00+02:00", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), *got)

	start, err := parseTimeFlag("since", "2026-03-01", false)
	require.NoError(t, err)
	end, err := parseTimeFlag("until", "2026-03-01", true)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour-time.Nanosecond, end.Sub(*start))

	_, err = parseTimeFlag("until", "03/01/2026", true)
	assert.Error(t, err)
}

func TestDecodeSessions(t *testing.T) {
	sessions, err := decodeSessions([]byte(sessionsFixture))
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, model.RoleAssistant, sessions[0].Messages[1].Role)

	sessions, err = decodeSessions([]byte(`  {"id":"one"}`))
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "one", sessions[0].ID)

	_, err = decodeSessions([]byte("   "))
	assert.Error(t, err)
}

func TestPruneCommand(t *testing.T) {
	cfgPath, _ := setupSessions(t)

	t.Run("requires a period", func(t *testing.T) {
		_, err := executeCommand(t, "--config", cfgPath, "prune")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "retention")
	})

	t.Run("keeps recent sessions", func(t *testing.T) {
		output, err := executeCommand(t, "--config", cfgPath, "prune", "--older-than-days", "1", "--dry-run")
		require.NoError(t, err)
		assert.Contains(t, output, "Nothing to prune")

		output, err = executeCommand(t, "--config", cfgPath, "prune", "--older-than-days", "1")
		require.NoError(t, err)
		assert.Contains(t, output, "Pruned 0 session(s)")
		assert.Len(t, listSummaries(t, cfgPath), 2)
	})

	t.Run("negative period", func(t *testing.T) {
		_, err := executeCommand(t, "--config", cfgPath, "prune", "--older-than-days", "-3")
		require.Error(t, err)
	})
}
