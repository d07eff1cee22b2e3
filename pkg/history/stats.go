package history

import (
	"context"
	"strings"

	"github.com/harun/chronicle/pkg/model"
)

// Statistics aggregates usage across every stored session.
type Statistics struct {
	TotalSessions  int                `json:"total_sessions"`
	PinnedSessions int                `json:"pinned_sessions"`
	TotalMessages  int                `json:"total_messages"`
	TotalCostUSD   float64            `json:"total_cost_usd"`
	CostByProject  map[string]float64 `json:"cost_by_project"`
	TagCounts      map[string]int     `json:"tag_counts"`
}

// GetStatistics computes usage aggregates from the summary index. Tags differing only in
// case are counted together under the spelling GetAllTags reports.
func (m *Manager) GetStatistics(ctx context.Context) Statistics {
	stats := Statistics{
		CostByProject: make(map[string]float64),
		TagCounts:     make(map[string]int),
	}

	canonical := make(map[string]string)
	for _, tag := range m.engine.GetAllTags(ctx) {
		canonical[strings.ToLower(tag)] = tag
	}

	for _, s := range m.engine.GetAllSummaries(ctx, model.SearchOptions{}) {
		stats.TotalSessions++
		if s.Pinned {
			stats.PinnedSessions++
		}
		stats.TotalMessages += s.MessageCount
		stats.TotalCostUSD += s.TotalCostUSD
		stats.CostByProject[s.ProjectPath] += s.TotalCostUSD
		for _, tag := range s.Tags {
			// the index may have changed between the two reads
			key, ok := canonical[strings.ToLower(tag)]
			if !ok {
				key = tag
			}
			stats.TagCounts[key]++
		}
	}

	return stats
}
