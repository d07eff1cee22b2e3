package storage

import (
	"testing"
	"time"

	"github.com/harun/chronicle/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 30, 0, 123456789, time.UTC)

	tests := []struct {
		name    string
		session model.PersistedSession
	}{
		{
			name: "full session",
			session: model.PersistedSession{
				ID:          "s1",
				Title:       "Index swap",
				ProjectPath: "/work",
				Model:       "sonnet",
				Pinned:      true,
				Tags:        []string{"go", "storage"},
				Messages: []model.Message{
					{Role: model.RoleUser, Content: "```go\nfmt.Println()\n```", Timestamp: created},
					{Role: model.RoleTool, ToolName: "bash", Content: "ok", CostUSD: 0.5, Timestamp: created.Add(time.Second)},
				},
				TotalCostUSD: 1.25,
				CreatedAt:    created,
				UpdatedAt:    created.Add(time.Minute),
			},
		},
		{
			name: "empty tags and zero messages",
			session: model.PersistedSession{
				ID:        "s2",
				Tags:      []string{},
				Messages:  []model.Message{},
				CreatedAt: created,
				UpdatedAt: created,
			},
		},
		{
			name: "unicode title",
			session: model.PersistedSession{
				ID:        "s3",
				Title:     "Überprüfung 日本語 🚀",
				Tags:      []string{"ünï"},
				Messages:  []model.Message{},
				CreatedAt: created,
				UpdatedAt: created,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeRecord(tt.session)
			require.NoError(t, err)

			decoded, err := DecodeRecord(tt.session.ID, data)
			require.NoError(t, err)
			assert.Equal(t, tt.session, decoded)
		})
	}
}

func TestDecodeRecord_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		key  string
		data string
	}{
		{"invalid json", "s1", "{"},
		{"not an object", "s1", `["s1"]`},
		{"missing id", "s1", `{"title":"x"}`},
		{"empty id", "s1", `{"id":""}`},
		{"wrong tag type", "s1", `{"id":"s1","tags":"go"}`},
		{"negative cost", "s1", `{"id":"s1","total_cost_usd":-1}`},
		{"message without role", "s1", `{"id":"s1","messages":[{"content":"x"}]}`},
		{"id mismatch", "s1", `{"id":"s2"}`},
		{"unsafe id", "..", `{"id":".."}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRecord(tt.key, []byte(tt.data))
			assert.ErrorIs(t, err, model.ErrCorruptRecord)
		})
	}
}

func TestDecodeRecord_ToleratesUnknownAndMissingFields(t *testing.T) {
	p, err := DecodeRecord("s1", []byte(`{"id":"s1","tags":null,"messages":null,"color":"blue"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{}, p.Tags)
	assert.Equal(t, []model.Message{}, p.Messages)
	assert.True(t, p.CreatedAt.IsZero())
}
